package provider

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrNoProvider   = errors.New("no wallet provider available")
	ErrUserRejected = errors.New("transaction rejected by user")
)

// TxRequest is the raw call handed to a wallet-like provider for submission.
// Gas and Value are resolved by the caller beforehand; the provider only
// signs and forwards.
type TxRequest struct {
	ChainId *big.Int
	From    common.Address
	To      common.Address
	Data    []byte
	Value   *big.Int
	Gas     uint64
}

// Provider is the minimal capability set every wallet host offers.
//
// ChainId reports the provider's currently selected network. A provider that
// has no fixed network because it manages chain context per transaction
// (an embedded/self-contained wallet) returns nil; callers must not request
// a network switch from such a provider.
type Provider interface {
	Accounts(ctx context.Context) ([]common.Address, error)
	ChainId(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx TxRequest) (common.Hash, error)
}

// ChainSwitcher is the optional switching capability. Standalone browser-style
// wallets implement it; embedded wallets do not, and callers detect that with
// a type assertion instead of sniffing provider properties.
type ChainSwitcher interface {
	SwitchChain(ctx context.Context, chainId *big.Int) error
}
