package provider

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// BIP-39 reference vector, safe to embed: zero-entropy test mnemonic.
const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestRecoverLocalWalletKnownVector(t *testing.T) {
	w, err := RecoverLocalWallet(testMnemonic, "", 0)
	if err != nil {
		t.Fatalf("recover failed: %v", err)
	}

	want := common.HexToAddress("0x9858EfFD232B4033E47d90003D41EC34EcaEda94")
	if got := w.Address(); got != want {
		t.Errorf("address = %s, want %s", got, want)
	}
}

func TestRecoverLocalWalletValidation(t *testing.T) {
	tests := []struct {
		name     string
		mnemonic string
		wantErr  error
	}{
		{
			name:     "too few words",
			mnemonic: "abandon abandon abandon",
			wantErr:  ErrInvalidWordCount,
		},
		{
			name:     "word count not multiple of three",
			mnemonic: strings.Repeat("abandon ", 13),
			wantErr:  ErrInvalidWordCount,
		},
		{
			name:     "invalid checksum",
			mnemonic: strings.TrimSpace(strings.Repeat("abandon ", 12)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RecoverLocalWallet(tt.mnemonic, "", 0)
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRecoverLocalWalletCommaSeparated(t *testing.T) {
	w, err := RecoverLocalWallet(strings.ReplaceAll(testMnemonic, " ", ","), "", 0)
	if err != nil {
		t.Fatalf("recover failed: %v", err)
	}
	want := common.HexToAddress("0x9858EfFD232B4033E47d90003D41EC34EcaEda94")
	if got := w.Address(); got != want {
		t.Errorf("address = %s, want %s", got, want)
	}
}

func TestLocalWalletRoundTripsThroughKeystore(t *testing.T) {
	original, err := RecoverLocalWallet(testMnemonic, "", 0)
	if err != nil {
		t.Fatalf("recover failed: %v", err)
	}

	serialized, err := original.SerializeData()
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}

	restored, err := LoadLocalWallet(serialized, original.password)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if restored.Address() != original.Address() {
		t.Errorf("restored address %s, want %s", restored.Address(), original.Address())
	}
}

func TestLoadLocalWalletWrongPassword(t *testing.T) {
	original, err := RecoverLocalWallet(testMnemonic, "", 0)
	if err != nil {
		t.Fatalf("recover failed: %v", err)
	}
	serialized, err := original.SerializeData()
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}

	if _, err := LoadLocalWallet(serialized, "not-the-password"); err == nil {
		t.Error("expected decryption to fail with the wrong password")
	}
}

func TestLocalWalletIsSelfManaging(t *testing.T) {
	w, err := RecoverLocalWallet(testMnemonic, "", 0)
	if err != nil {
		t.Fatalf("recover failed: %v", err)
	}

	chainId, err := w.ChainId(context.Background())
	if err != nil {
		t.Fatalf("ChainId failed: %v", err)
	}
	if chainId != nil {
		t.Errorf("chainId = %v, want nil", chainId)
	}

	accounts, err := w.Accounts(context.Background())
	if err != nil {
		t.Fatalf("Accounts failed: %v", err)
	}
	if len(accounts) != 1 || accounts[0] != w.Address() {
		t.Errorf("accounts = %v, want [%s]", accounts, w.Address())
	}
}

type fakeSender struct {
	nonce   uint64
	baseFee *big.Int
	sent    []*types.Transaction
}

func (s *fakeSender) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return s.nonce, nil
}

func (s *fakeSender) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return nil, errors.New("method not supported")
}

func (s *fakeSender) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return &types.Header{BaseFee: s.baseFee}, nil
}

func (s *fakeSender) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	s.sent = append(s.sent, tx)
	return nil
}

func TestLocalWalletSendTransaction(t *testing.T) {
	w, err := RecoverLocalWallet(testMnemonic, "", 0)
	if err != nil {
		t.Fatalf("recover failed: %v", err)
	}

	sender := &fakeSender{nonce: 7, baseFee: big.NewInt(100)}
	w.dial = func(ctx context.Context, rawUrl string) (txSender, error) {
		return sender, nil
	}

	to := common.HexToAddress("0x8A0043A965dF6683A71a87a4B8F33e64290eB3E7")
	txHash, err := w.SendTransaction(context.Background(), TxRequest{
		ChainId: big.NewInt(8453),
		From:    w.Address(),
		To:      to,
		Value:   big.NewInt(29_000_000_000_000),
		Gas:     150_000,
	})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("sent %d transactions, want 1", len(sender.sent))
	}
	tx := sender.sent[0]
	if txHash != tx.Hash() {
		t.Errorf("returned hash %s, want %s", txHash, tx.Hash())
	}
	if tx.Nonce() != 7 {
		t.Errorf("nonce = %d, want 7", tx.Nonce())
	}
	if tx.ChainId().Uint64() != 8453 {
		t.Errorf("chain id = %d, want 8453", tx.ChainId().Uint64())
	}
	if tx.Type() != types.DynamicFeeTxType {
		t.Errorf("tx type = %d, want dynamic fee", tx.Type())
	}
	// tip falls back to 1 gwei when the node rejects the suggestion call
	if tx.GasTipCap().Cmp(big.NewInt(1_000_000_000)) != 0 {
		t.Errorf("tip = %s, want 1 gwei", tx.GasTipCap())
	}

	signer := types.LatestSignerForChainID(big.NewInt(8453))
	from, err := types.Sender(signer, tx)
	if err != nil {
		t.Fatalf("failed to recover sender: %v", err)
	}
	if from != w.Address() {
		t.Errorf("signed by %s, want %s", from, w.Address())
	}
}

func TestLocalWalletSendTransactionMissingChainId(t *testing.T) {
	w, err := RecoverLocalWallet(testMnemonic, "", 0)
	if err != nil {
		t.Fatalf("recover failed: %v", err)
	}

	_, err = w.SendTransaction(context.Background(), TxRequest{})
	if err == nil {
		t.Error("expected an error for a missing chain id")
	}
}
