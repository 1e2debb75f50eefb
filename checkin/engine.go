package checkin

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"gannetx/provider"

	"github.com/ethereum/go-ethereum/common"
)

// Options configures the orchestration engine's external collaborators.
type Options struct {
	// StatusEndpoint is the chain-status intermediary the prober talks to.
	StatusEndpoint string

	// IncludeTestnets widens scans beyond the default mainnet display set.
	IncludeTestnets bool

	// OnCheckinSuccess receives the completion event once per success.
	OnCheckinSuccess func(CompletionEvent)

	// OnCheckinFailure receives user-actionable and ambiguous failures.
	OnCheckinFailure func(chainId uint64, reason error)
}

// Engine owns the eligibility snapshot and coordinates scanner, ticker,
// submitter and reconciler around it. External collaborators only ever see
// snapshot copies and events.
type Engine struct {
	logger     *slog.Logger
	store      *StatusStore
	scanner    *Scanner
	ticker     *Ticker
	submitter  *Submitter
	reconciler *Reconciler

	mu          sync.Mutex
	started     bool
	account     common.Address
	ctx         context.Context
	rescanTimer *time.Timer
}

func NewEngine(prov provider.Provider, opts Options, logger *slog.Logger) *Engine {
	logger = logger.With("module", "engine")
	store := NewStatusStore()

	e := &Engine{
		logger:    logger,
		store:     store,
		ticker:    NewTicker(store, logger),
		submitter: NewSubmitter(prov, logger),
	}
	e.scanner = NewScanner(store, NewHttpProber(opts.StatusEndpoint, logger), opts.IncludeTestnets, logger)
	e.reconciler = NewReconciler(store, opts.OnCheckinSuccess, opts.OnCheckinFailure, e.scheduleRescan, logger)
	return e
}

// Start begins tracking eligibility for the given account: it launches the
// countdown ticker and kicks off an initial scan. Repeated starts are no-ops.
func (e *Engine) Start(ctx context.Context, account common.Address) {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return
	}
	e.started = true
	e.account = account
	e.ctx = ctx
	e.mu.Unlock()

	e.ticker.Start()
	go e.scanner.ScanAll(ctx, account)
	e.logger.Info("engine started", slog.String("account", account.Hex()))
}

// Stop halts the ticker and any pending re-scan. In-flight scans finish on
// their own when the start context ends.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return
	}
	e.started = false
	if e.rescanTimer != nil {
		e.rescanTimer.Stop()
		e.rescanTimer = nil
	}
	e.mu.Unlock()

	e.ticker.Stop()
	e.logger.Info("engine stopped")
}

// Account returns the account the engine tracks.
func (e *Engine) Account() common.Address {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.account
}

// Snapshot returns a read-only copy of the eligibility map.
func (e *Engine) Snapshot() map[uint64]Status {
	return e.store.Snapshot()
}

// Scanning reports whether a status scan is currently running.
func (e *Engine) Scanning() bool {
	return e.scanner.Scanning()
}

// Refresh kicks off a scan in the background unless one is already running.
func (e *Engine) Refresh() {
	e.mu.Lock()
	started, ctx, account := e.started, e.ctx, e.account
	e.mu.Unlock()
	if !started || e.scanner.Scanning() {
		return
	}
	go e.scanner.ScanAll(ctx, account)
}

// CheckIn submits one check-in and reconciles the settled outcome into the
// snapshot. A call while another submission is in flight is a no-op.
func (e *Engine) CheckIn(ctx context.Context, chainId uint64) (common.Hash, error) {
	txHash, err := e.submitter.Submit(ctx, chainId)
	if errors.Is(err, ErrInFlight) {
		return common.Hash{}, err
	}
	e.reconciler.OnSubmissionSettled(chainId, txHash, err)
	return txHash, err
}

// InFlight exposes the live submission attempt, or nil when idle.
func (e *Engine) InFlight() *Attempt {
	return e.submitter.InFlight()
}

func (e *Engine) scheduleRescan(delay time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return
	}
	if e.rescanTimer != nil {
		e.rescanTimer.Stop()
	}
	e.rescanTimer = time.AfterFunc(delay, e.Refresh)
}
