package checkin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"gannetx/chains"
	"gannetx/contracts"
	"gannetx/provider"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

const (
	// conservative gas limit used when estimation fails
	fallbackGasLimit = uint64(150_000)

	receiptPollInterval = 3 * time.Second
	receiptPollAttempts = 60
)

var (
	// ErrInFlight means another submission is already running; the call was a no-op.
	ErrInFlight = errors.New("another check-in submission is already in flight")

	// ErrConfirmationTimeout means no receipt was observed within the polling
	// budget. The transaction may still confirm later; this is not an on-chain
	// failure and must not be reported as one.
	ErrConfirmationTimeout = errors.New("transaction confirmation not observed in time")
)

type Phase string

const (
	PhaseResolvingAccount Phase = "resolving-account"
	PhaseReadingFee       Phase = "reading-fee"
	PhaseSwitchingNetwork Phase = "switching-network"
	PhaseEstimatingGas    Phase = "estimating-gas"
	PhaseAwaitingSig      Phase = "awaiting-signature"
	PhaseAwaitingReceipt  Phase = "awaiting-receipt"
	PhaseSucceeded        Phase = "succeeded"
	PhaseFailed           Phase = "failed"
)

// Attempt describes the one submission that may be live at any time.
type Attempt struct {
	ChainId uint64
	Phase   Phase
	TxHash  common.Hash
}

// ChainReader is the read-only connection used for fee reads, gas estimation
// and receipt polling, kept separate from the wallet provider's possibly
// restricted call surface. *ethclient.Client satisfies it.
type ChainReader interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
}

type ReaderDialer func(ctx context.Context, rawUrl string) (ChainReader, error)

// Submitter drives the per-network check-in transaction state machine.
// At most one submission is live system-wide; a second Submit while one is
// pending returns ErrInFlight without touching any provider or network.
type Submitter struct {
	prov       provider.Provider
	dialReader ReaderDialer
	logger     *slog.Logger

	pollInterval time.Duration
	pollAttempts int
	gasFallback  uint64

	mu      sync.Mutex
	current *Attempt
}

func NewSubmitter(prov provider.Provider, logger *slog.Logger) *Submitter {
	return &Submitter{
		prov:   prov,
		logger: logger.With("module", "submitter"),
		dialReader: func(ctx context.Context, rawUrl string) (ChainReader, error) {
			return ethclient.DialContext(ctx, rawUrl)
		},
		pollInterval: receiptPollInterval,
		pollAttempts: receiptPollAttempts,
		gasFallback:  fallbackGasLimit,
	}
}

// InFlight returns a copy of the live attempt, or nil when idle.
func (s *Submitter) InFlight() *Attempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	attempt := *s.current
	return &attempt
}

func (s *Submitter) setPhase(phase Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.Phase = phase
	}
}

func (s *Submitter) setTxHash(txHash common.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.TxHash = txHash
	}
}

// Submit performs one check-in on the given chain and blocks until the
// attempt settles. Fee read, network switch and gas estimation failures
// degrade to documented fallbacks; only a missing account, wallet rejection
// and confirmation timeout are terminal.
func (s *Submitter) Submit(ctx context.Context, chainId uint64) (common.Hash, error) {
	chain, err := chains.Get(chainId)
	if err != nil {
		return common.Hash{}, err
	}
	if !chain.Enabled() {
		return common.Hash{}, fmt.Errorf("%w: %d", chains.ErrUnknownChain, chainId)
	}

	s.mu.Lock()
	if s.current != nil {
		s.mu.Unlock()
		return common.Hash{}, ErrInFlight
	}
	s.current = &Attempt{ChainId: chainId, Phase: PhaseResolvingAccount}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.current = nil
		s.mu.Unlock()
	}()

	txHash, err := s.run(ctx, chain)
	if err != nil {
		s.setPhase(PhaseFailed)
		return txHash, err
	}
	s.setPhase(PhaseSucceeded)
	return txHash, nil
}

func (s *Submitter) run(ctx context.Context, chain chains.Chain) (common.Hash, error) {
	logger := s.logger.With(slog.Uint64("chainId", chain.Id))
	startTime := time.Now()

	// resolve acting account
	if s.prov == nil {
		return common.Hash{}, provider.ErrNoProvider
	}
	accounts, err := s.prov.Accounts(ctx)
	if err != nil {
		return common.Hash{}, errors.Join(provider.ErrNoProvider, err)
	}
	if len(accounts) == 0 {
		return common.Hash{}, provider.ErrNoProvider
	}
	from := accounts[0]
	logger.Debug("resolved acting account", slog.String("account", from.Hex()))

	// the wallet provider's call surface may be restricted, so fee reads, gas
	// estimation and receipt polling go through a dedicated connection
	reader, err := s.dialChainReader(ctx, chain)
	if err != nil {
		return common.Hash{}, errors.Join(errors.New("failed to connect to a read-only endpoint"), err)
	}

	// read current fee
	s.setPhase(PhaseReadingFee)
	tax, err := contracts.NewCheckin(chain, reader, s.logger).GetCurrentTax(ctx)
	if err != nil {
		logger.Warn("fee read failed, using default tax",
			slog.String("error", err.Error()),
			slog.String("defaultTax", contracts.DefaultCheckinTax.String()),
		)
		tax = new(big.Int).Set(contracts.DefaultCheckinTax)
	}

	// conditional network switch
	s.setPhase(PhaseSwitchingNetwork)
	s.switchChainIfNeeded(ctx, logger, chain)

	// gas estimation with fallback
	s.setPhase(PhaseEstimatingGas)
	callData := contracts.ActivateBeaconCalldata()
	gasLimit := s.gasFallback
	estimate, err := reader.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &chain.ContractAddress,
		Value: tax,
		Data:  callData,
	})
	if err != nil {
		logger.Warn("gas estimation failed, using fallback limit",
			slog.String("error", err.Error()),
			slog.Uint64("gasLimit", gasLimit),
		)
	} else {
		gasLimit = estimate * 120 / 100
	}

	// submit through the wallet provider
	s.setPhase(PhaseAwaitingSig)
	txHash, err := s.prov.SendTransaction(ctx, provider.TxRequest{
		ChainId: new(big.Int).SetUint64(chain.Id),
		From:    from,
		To:      chain.ContractAddress,
		Data:    callData,
		Value:   tax,
		Gas:     gasLimit,
	})
	if err != nil {
		if errors.Is(err, provider.ErrUserRejected) {
			logger.Info("check-in rejected by user")
			return common.Hash{}, err
		}
		return common.Hash{}, errors.Join(errors.New("failed to submit transaction"), err)
	}
	logger.Info("transaction submitted",
		slog.String("txHash", txHash.Hex()),
		slog.Duration("timeElapsed", time.Since(startTime)),
	)

	// await confirmation
	s.setTxHash(txHash)
	s.setPhase(PhaseAwaitingReceipt)
	if err := s.awaitReceipt(ctx, reader, txHash); err != nil {
		return txHash, err
	}
	logger.Info("transaction confirmed",
		slog.String("txHash", txHash.Hex()),
		slog.Duration("timeElapsed", time.Since(startTime)),
	)
	return txHash, nil
}

// switchChainIfNeeded asks the provider to select the target network when it
// reports a different one and offers the switching capability. Failures are
// logged and otherwise ignored: the wallet may still allow confirming a
// cross-network transaction.
func (s *Submitter) switchChainIfNeeded(ctx context.Context, logger *slog.Logger, chain chains.Chain) {
	current, err := s.prov.ChainId(ctx)
	if err != nil {
		logger.Warn("could not determine provider network", slog.String("error", err.Error()))
		return
	}
	if current == nil || current.Uint64() == chain.Id {
		return
	}

	switcher, ok := s.prov.(provider.ChainSwitcher)
	if !ok {
		logger.Debug("provider manages its own chain context, skipping switch")
		return
	}
	if err := switcher.SwitchChain(ctx, new(big.Int).SetUint64(chain.Id)); err != nil {
		logger.Warn("network switch failed, proceeding anyway", slog.String("error", err.Error()))
		return
	}
	logger.Debug("provider switched to target network")
}

func (s *Submitter) dialChainReader(ctx context.Context, chain chains.Chain) (ChainReader, error) {
	var lastErr error
	for _, endpoint := range chain.RpcEndpoints {
		reader, err := s.dialReader(ctx, endpoint)
		if err == nil {
			return reader, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (s *Submitter) awaitReceipt(ctx context.Context, reader ChainReader, txHash common.Hash) error {
	for attempt := 0; attempt < s.pollAttempts; attempt++ {
		receipt, err := reader.TransactionReceipt(ctx, txHash)
		if err == nil && receipt != nil {
			return nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			s.logger.Debug("receipt poll failed", slog.String("error", err.Error()))
		}
		if !sleepCtx(ctx, s.pollInterval) {
			return errors.Join(ErrConfirmationTimeout, ctx.Err())
		}
	}
	return fmt.Errorf("%w (%d attempts)", ErrConfirmationTimeout, s.pollAttempts)
}
