package checkin

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"gannetx/chains"

	"github.com/ethereum/go-ethereum/common"
)

const (
	scanBatchSize  = 3
	scanBatchDelay = 500 * time.Millisecond
	scanMaxJitter  = 200 * time.Millisecond
)

// Scanner fans the prober out over every enabled network in fixed-size
// batches, merging each batch into the shared store before the next one
// starts. A scan cannot fail as a whole: individual probe failures keep the
// network's pre-scan status.
type Scanner struct {
	store           *StatusStore
	prober          Prober
	logger          *slog.Logger
	includeTestnets bool

	batchSize  int
	batchDelay time.Duration
	maxJitter  time.Duration

	scanning atomic.Bool
}

func NewScanner(store *StatusStore, prober Prober, includeTestnets bool, logger *slog.Logger) *Scanner {
	return &Scanner{
		store:           store,
		prober:          prober,
		logger:          logger.With("module", "scanner"),
		includeTestnets: includeTestnets,
		batchSize:       scanBatchSize,
		batchDelay:      scanBatchDelay,
		maxJitter:       scanMaxJitter,
	}
}

// Scanning reports whether a scan is currently running. Callers use it to
// avoid requesting overlapping scans; ScanAll additionally refuses to overlap
// and returns the current snapshot unchanged.
func (s *Scanner) Scanning() bool {
	return s.scanning.Load()
}

// ScanAll refreshes every enabled network's status for the given account and
// returns the resulting snapshot, covering exactly the enabled networks.
func (s *Scanner) ScanAll(ctx context.Context, account common.Address) map[uint64]Status {
	if !s.scanning.CompareAndSwap(false, true) {
		s.logger.Debug("scan already running, skipping")
		return s.store.Snapshot()
	}
	defer s.scanning.Store(false)

	startTime := time.Now()
	chainIds := chains.Ids(s.includeTestnets)

	// capture pre-scan state first: failed probes fall back to it
	previous := s.store.Snapshot()
	s.store.Seed(chainIds)

	for batchStart := 0; batchStart < len(chainIds); batchStart += s.batchSize {
		batchEnd := batchStart + s.batchSize
		if batchEnd > len(chainIds) {
			batchEnd = len(chainIds)
		}
		batch := chainIds[batchStart:batchEnd]

		var wg sync.WaitGroup
		for _, chainId := range batch {
			wg.Add(1)
			go func(chainId uint64) {
				defer wg.Done()

				prevStatus, ok := previous[chainId]
				if !ok {
					prevStatus = OptimisticStatus()
				}

				// desynchronize simultaneous requests to shared RPC providers
				if s.maxJitter > 0 {
					if !sleepCtx(ctx, rand.N(s.maxJitter)) {
						s.store.Set(chainId, prevStatus)
						return
					}
				}

				s.store.Set(chainId, s.prober.Probe(ctx, chainId, account, prevStatus))
			}(chainId)
		}
		wg.Wait()

		if batchEnd < len(chainIds) {
			if !sleepCtx(ctx, s.batchDelay) {
				break
			}
		}
	}

	s.logger.Debug("scan finished",
		slog.Int("networks", len(chainIds)),
		slog.Duration("timeElapsed", time.Since(startTime)),
	)
	return s.store.Snapshot()
}

// sleepCtx waits for the duration, returning false when the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
