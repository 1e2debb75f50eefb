package contracts

import (
	"context"
	"errors"
	"log/slog"
	"math/big"

	"gannetx/chains"
	"gannetx/multicall"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// DefaultCheckinTax is the documented fallback fee (0.000029 ether in wei),
// used whenever the on-chain tax read fails.
var DefaultCheckinTax = big.NewInt(29_000_000_000_000)

type NavigatorMetrics struct {
	TotalBeacons  *big.Int
	LastBeacon    *big.Int
	CurrentStreak *big.Int
	NextResetTime *big.Int
}

type SystemMetrics struct {
	TotalActivations *big.Int
	TotalNavigators  *big.Int
	CurrentTax       *big.Int
}

// Eligibility is the raw on-chain check-in state for one navigator on one chain.
// Metrics is nil when the optional metrics read failed; only CanActivate is
// required for an eligibility answer.
type Eligibility struct {
	CanActivate bool
	Metrics     *NavigatorMetrics
}

type CheckinInstance struct {
	chain       chains.Chain
	contractAbi *abi.ABI
	caller      multicall.Caller
	multiCaller *multicall.MultiCaller
	logger      *slog.Logger
}

func NewCheckin(chain chains.Chain, caller multicall.Caller, logger *slog.Logger) *CheckinInstance {
	return &CheckinInstance{
		chain:       chain,
		contractAbi: chains.CheckinAbi(),
		caller:      caller,
		multiCaller: multicall.NewMultiCaller(caller, chain.MulticallAddress),
		logger:      logger.With("module", "contracts", "chainId", chain.Id),
	}
}

// GetEligibility batches canActivateToday and getNavigatorMetrics into a
// single aggregate call. canActivateToday must succeed; the metrics read is
// best-effort.
func (c *CheckinInstance) GetEligibility(ctx context.Context, navigator common.Address) (*Eligibility, error) {
	var canActivate bool
	var metrics NavigatorMetrics

	if err := c.multiCaller.AddCall(c.chain.ContractAddress, c.contractAbi, &canActivate, "canActivateToday", navigator); err != nil {
		return nil, errors.Join(errors.New("failed to queue canActivateToday call"), err)
	}
	if err := c.multiCaller.AddCall(c.chain.ContractAddress, c.contractAbi, &metrics, "getNavigatorMetrics", navigator); err != nil {
		return nil, errors.Join(errors.New("failed to queue getNavigatorMetrics call"), err)
	}

	results, err := c.multiCaller.ExecuteAndParseCalldata(ctx, false)
	if err != nil {
		return nil, errors.Join(errors.New("failed to execute eligibility multicall"), err)
	}
	if len(results) != 2 {
		return nil, errors.New("unexpected response length")
	}
	if !results[0].Success {
		return nil, errors.New("canActivateToday call failed")
	}

	eligibility := &Eligibility{CanActivate: canActivate}
	if results[1].Success {
		eligibility.Metrics = &metrics
	} else {
		c.logger.Debug("navigator metrics read failed, continuing without metrics")
	}
	return eligibility, nil
}

// GetCurrentTax reads the current check-in fee from the contract.
func (c *CheckinInstance) GetCurrentTax(ctx context.Context) (*big.Int, error) {
	callData, err := c.contractAbi.Pack("getSystemMetrics")
	if err != nil {
		return nil, errors.Join(errors.New("failed to pack getSystemMetrics call"), err)
	}

	resp, err := c.caller.CallContract(ctx, ethereum.CallMsg{To: &c.chain.ContractAddress, Data: callData}, nil)
	if err != nil {
		return nil, errors.Join(errors.New("getSystemMetrics call failed"), err)
	}

	var metrics SystemMetrics
	if err := c.contractAbi.UnpackIntoInterface(&metrics, "getSystemMetrics", resp); err != nil {
		return nil, errors.Join(errors.New("failed to decode system metrics"), err)
	}
	if metrics.CurrentTax == nil {
		return nil, errors.New("system metrics missing current tax")
	}
	return metrics.CurrentTax, nil
}

// ActivateBeaconCalldata returns the encoded payable check-in call.
func ActivateBeaconCalldata() []byte {
	callData, err := chains.CheckinAbi().Pack("activateBeacon")
	if err != nil {
		// static abi, cannot fail at runtime
		panic("failed to pack activateBeacon call: " + err.Error())
	}
	return callData
}
