package provider

import (
	"context"
	"errors"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// provider-side rejection code when the user declines a request
const userRejectedRequestCode = 4001

// BridgeProvider forwards wallet requests to an external wallet-RPC bridge
// (a standalone browser-style wallet exposed over JSON-RPC). It carries the
// full capability set, including network switching.
type BridgeProvider struct {
	client *rpc.Client
	logger *slog.Logger
}

func DialBridge(ctx context.Context, rawUrl string, logger *slog.Logger) (*BridgeProvider, error) {
	client, err := rpc.DialContext(ctx, rawUrl)
	if err != nil {
		return nil, errors.Join(errors.New("failed to connect to wallet bridge"), err)
	}
	return &BridgeProvider{
		client: client,
		logger: logger.With("module", "walletBridge"),
	}, nil
}

func (b *BridgeProvider) Accounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	if err := b.client.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, errors.Join(errors.New("failed to read authorized accounts"), err)
	}
	return accounts, nil
}

func (b *BridgeProvider) ChainId(ctx context.Context) (*big.Int, error) {
	var chainId hexutil.Big
	if err := b.client.CallContext(ctx, &chainId, "eth_chainId"); err != nil {
		return nil, errors.Join(errors.New("failed to read selected chain id"), err)
	}
	return (*big.Int)(&chainId), nil
}

func (b *BridgeProvider) SwitchChain(ctx context.Context, chainId *big.Int) error {
	params := map[string]string{"chainId": hexutil.EncodeBig(chainId)}
	if err := b.client.CallContext(ctx, nil, "wallet_switchEthereumChain", params); err != nil {
		return errors.Join(errors.New("wallet refused the network switch"), wrapBridgeError(err))
	}
	return nil
}

func (b *BridgeProvider) SendTransaction(ctx context.Context, tx TxRequest) (common.Hash, error) {
	params := map[string]interface{}{
		"from":  tx.From,
		"to":    tx.To,
		"data":  hexutil.Bytes(tx.Data),
		"value": (*hexutil.Big)(tx.Value),
		"gas":   hexutil.Uint64(tx.Gas),
	}
	if tx.ChainId != nil {
		params["chainId"] = hexutil.EncodeBig(tx.ChainId)
	}

	var txHash common.Hash
	if err := b.client.CallContext(ctx, &txHash, "eth_sendTransaction", params); err != nil {
		return common.Hash{}, wrapBridgeError(err)
	}
	b.logger.Debug("transaction forwarded to wallet bridge", slog.String("txHash", txHash.Hex()))
	return txHash, nil
}

// wrapBridgeError surfaces a user cancellation as ErrUserRejected, everything
// else unchanged.
func wrapBridgeError(err error) error {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == userRejectedRequestCode {
		return errors.Join(ErrUserRejected, err)
	}
	return err
}
