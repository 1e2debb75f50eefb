package checkin

import (
	"log/slog"
	"sync"
	"time"
)

const tickInterval = time.Second

// Ticker ages the shared snapshot between scans: once a second it decrements
// every positive countdown in place, without any I/O. Start is idempotent;
// a running ticker is never duplicated.
type Ticker struct {
	store    *StatusStore
	logger   *slog.Logger
	interval time.Duration

	mu   sync.Mutex
	stop chan struct{}
}

func NewTicker(store *StatusStore, logger *slog.Logger) *Ticker {
	return &Ticker{
		store:    store,
		logger:   logger.With("module", "ticker"),
		interval: tickInterval,
	}
}

func (t *Ticker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop != nil {
		return
	}
	t.stop = make(chan struct{})
	go t.run(t.stop)
	t.logger.Debug("countdown ticker started")
}

func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop == nil {
		return
	}
	close(t.stop)
	t.stop = nil
	t.logger.Debug("countdown ticker stopped")
}

func (t *Ticker) run(stop chan struct{}) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			t.store.Tick()
		case <-stop:
			return
		}
	}
}
