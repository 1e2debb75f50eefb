package checkin

import (
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// delay before the authoritative re-scan that replaces the optimistic
// just-completed marker with the contract's real cooldown
const rescanAfterSuccess = 5 * time.Second

// CompletionEvent is delivered to the celebration collaborator exactly once
// per successful submission.
type CompletionEvent struct {
	ChainId uint64
	TxHash  common.Hash
}

// Reconciler folds a settled submission back into the shared snapshot exactly
// once per attempt, and notifies the external collaborators.
type Reconciler struct {
	store  *StatusStore
	logger *slog.Logger

	onSuccess      func(CompletionEvent)
	onFailure      func(chainId uint64, reason error)
	scheduleRescan func(delay time.Duration)
	rescanDelay    time.Duration
}

func NewReconciler(
	store *StatusStore,
	onSuccess func(CompletionEvent),
	onFailure func(chainId uint64, reason error),
	scheduleRescan func(delay time.Duration),
	logger *slog.Logger,
) *Reconciler {
	return &Reconciler{
		store:          store,
		logger:         logger.With("module", "reconciler"),
		onSuccess:      onSuccess,
		onFailure:      onFailure,
		scheduleRescan: scheduleRescan,
		rescanDelay:    rescanAfterSuccess,
	}
}

// OnSubmissionSettled records the outcome of one settled submission.
// Success marks the network just-completed and schedules an authoritative
// re-scan: the true cooldown start is defined by the contract, not the local
// clock, so optimistic state is always re-derived from the network. Failure
// leaves the snapshot untouched; the user decides whether to retry.
func (r *Reconciler) OnSubmissionSettled(chainId uint64, txHash common.Hash, submitErr error) {
	if submitErr == nil {
		r.store.MarkJustCompleted(chainId)
		r.logger.Info("check-in succeeded",
			slog.Uint64("chainId", chainId),
			slog.String("txHash", txHash.Hex()),
		)
		if r.onSuccess != nil {
			r.onSuccess(CompletionEvent{ChainId: chainId, TxHash: txHash})
		}
		if r.scheduleRescan != nil {
			r.scheduleRescan(r.rescanDelay)
		}
		return
	}

	r.logger.Info("check-in failed",
		slog.Uint64("chainId", chainId),
		slog.String("error", submitErr.Error()),
	)
	if r.onFailure != nil {
		r.onFailure(chainId, submitErr)
	}
}
