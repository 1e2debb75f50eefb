package provider

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"gannetx/chains"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sethvargo/go-password/password"
	"github.com/tyler-smith/go-bip39"

	"github.com/rocket-pool/node-manager-core/wallet"
	eth2ks "github.com/wealdtech/go-eth2-wallet-encryptor-keystorev4"
)

const (
	DefaultAccountPath       = "m/44'/60'/0'/0/%d"
	MyEtherWalletAccountPath = "m/44'/60'/0'/%d"
	LedgerLiveAccountPath    = "m/44'/60'/%d/0/0"
)

var ErrInvalidWordCount = errors.New("mnemonic must be 12, 15, 18, 21 or 24 words")

// txSender is the per-chain connection a LocalWallet submits through.
// *ethclient.Client satisfies it.
type txSender interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// LocalWallet is a self-contained wallet provider: it derives its key from a
// mnemonic, signs transactions itself and submits them through the target
// chain's own RPC endpoint. It has no selected network and therefore does not
// implement ChainSwitcher.
type LocalWallet struct {
	walletData *wallet.LocalWalletData
	seed       []byte
	password   string
	privateKey *ecdsa.PrivateKey
	publicKey  *ecdsa.PublicKey

	dial func(ctx context.Context, rawUrl string) (txSender, error)
}

// RecoverLocalWallet derives a wallet from a BIP-39 mnemonic. An empty
// derivation path selects the default account path.
func RecoverLocalWallet(mnemonic string, derivationPath string, index uint) (*LocalWallet, error) {
	mnemonic = strings.TrimSpace(strings.ReplaceAll(mnemonic, ",", " "))
	numOfWords := len(strings.Fields(mnemonic))
	if numOfWords%3 != 0 || numOfWords < 12 || numOfWords > 24 {
		return nil, ErrInvalidWordCount
	}

	if _, err := bip39.EntropyFromMnemonic(mnemonic); err != nil {
		return nil, err
	}

	if derivationPath == "" {
		derivationPath = DefaultAccountPath
	}

	seed := bip39.NewSeed(mnemonic, "")

	// random keystore password, recoverable through SerializeDataWithPassword
	pw, err := password.Generate(32, 10, 0, false, true)
	if err != nil {
		return nil, fmt.Errorf("failed to generate keystore password: %w", err)
	}

	encryptor := eth2ks.New()
	encryptedSeed, err := encryptor.Encrypt(seed, pw)
	if err != nil {
		return nil, fmt.Errorf("error encrypting wallet seed: %w", err)
	}

	data := &wallet.LocalWalletData{
		Crypto:         encryptedSeed,
		Name:           encryptor.Name(),
		Version:        encryptor.Version(),
		DerivationPath: derivationPath,
		WalletIndex:    index,
	}

	return newLocalWallet(data, seed, pw)
}

// LoadLocalWallet restores a wallet from its serialized keystore JSON.
func LoadLocalWallet(jsonData string, pw string) (*LocalWallet, error) {
	data := &wallet.LocalWalletData{}
	if err := json.Unmarshal([]byte(jsonData), data); err != nil {
		return nil, errors.New("could not unmarshal wallet keystore from JSON")
	}

	encryptor := eth2ks.New()
	if data.Version != encryptor.Version() {
		return nil, fmt.Errorf("invalid wallet keystore version %d, expected %d", data.Version, encryptor.Version())
	}
	if data.Name != encryptor.Name() {
		return nil, fmt.Errorf("invalid wallet keystore name %s, expected %s", data.Name, encryptor.Name())
	}

	seed, err := encryptor.Decrypt(data.Crypto, pw)
	if err != nil {
		return nil, fmt.Errorf("error decrypting wallet keystore: %w", err)
	}

	return newLocalWallet(data, seed, pw)
}

func newLocalWallet(data *wallet.LocalWalletData, seed []byte, pw string) (*LocalWallet, error) {
	masterKey, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("error creating wallet master key: %w", err)
	}

	if data.DerivationPath == "" {
		data.DerivationPath = DefaultAccountPath
	}

	var derivedKey *hdkeychain.ExtendedKey
	var index uint
	if strings.Contains(data.DerivationPath, "%d") {
		derivedKey, index, err = getDerivedKey(masterKey, data.DerivationPath, data.WalletIndex)
	} else {
		derivedKey, err = getDerivedKeyFixedPath(masterKey, data.DerivationPath)
		index = data.WalletIndex
	}
	if err != nil {
		return nil, fmt.Errorf("error getting account derived key: %w", err)
	}
	data.WalletIndex = index // updated in case of the ErrInvalidChild issue

	privateKey, err := derivedKey.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("error getting account private key: %w", err)
	}
	privateKeyECDSA := privateKey.ToECDSA()

	w := &LocalWallet{
		walletData: data,
		seed:       seed,
		password:   pw,
		privateKey: privateKeyECDSA,
		publicKey:  privateKeyECDSA.Public().(*ecdsa.PublicKey),
	}
	w.dial = func(ctx context.Context, rawUrl string) (txSender, error) {
		return ethclient.DialContext(ctx, rawUrl)
	}
	return w, nil
}

func (w *LocalWallet) Address() common.Address {
	if w.publicKey == nil {
		return common.Address{}
	}
	return crypto.PubkeyToAddress(*w.publicKey)
}

func (w *LocalWallet) SerializeData() (string, error) {
	bytes, err := json.Marshal(w.walletData)
	if err != nil {
		return "", fmt.Errorf("error serializing wallet data: %w", err)
	}
	return string(bytes), nil
}

func (w *LocalWallet) SerializeDataWithPassword() (string, error) {
	data := struct {
		WalletData     *wallet.LocalWalletData
		WalletPassword string
	}{
		WalletData:     w.walletData,
		WalletPassword: w.password,
	}

	bytes, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("error serializing wallet data: %w", err)
	}
	return string(bytes), nil
}

func (w *LocalWallet) Accounts(ctx context.Context) ([]common.Address, error) {
	return []common.Address{w.Address()}, nil
}

// ChainId returns nil: a local wallet follows the transaction's chain instead
// of holding a selected network.
func (w *LocalWallet) ChainId(ctx context.Context) (*big.Int, error) {
	return nil, nil
}

// SendTransaction signs the request as an EIP-1559 transaction and submits it
// through the target chain's configured endpoints, first working one first.
func (w *LocalWallet) SendTransaction(ctx context.Context, tx TxRequest) (common.Hash, error) {
	if tx.ChainId == nil {
		return common.Hash{}, errors.New("transaction is missing a chain id")
	}

	chain, err := chains.Get(tx.ChainId.Uint64())
	if err != nil {
		return common.Hash{}, err
	}

	var client txSender
	var dialErr error
	for _, endpoint := range chain.RpcEndpoints {
		client, dialErr = w.dial(ctx, endpoint)
		if dialErr == nil {
			break
		}
	}
	if client == nil {
		return common.Hash{}, errors.Join(errors.New("failed to connect to any RPC endpoint"), dialErr)
	}

	nonce, err := client.PendingNonceAt(ctx, w.Address())
	if err != nil {
		return common.Hash{}, errors.Join(errors.New("failed to get nonce"), err)
	}

	tip, err := client.SuggestGasTipCap(ctx)
	if err != nil {
		tip = big.NewInt(1_000_000_000) // 1 gwei
	}

	head, err := client.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, errors.Join(errors.New("failed to get chain head"), err)
	}
	baseFee := head.BaseFee
	if baseFee == nil {
		baseFee = big.NewInt(0)
	}
	feeCap := new(big.Int).Mul(baseFee, big.NewInt(2))
	feeCap.Add(feeCap, tip)

	signedTx, err := types.SignNewTx(w.privateKey, types.LatestSignerForChainID(tx.ChainId), &types.DynamicFeeTx{
		ChainID:   tx.ChainId,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       tx.Gas,
		To:        &tx.To,
		Value:     tx.Value,
		Data:      tx.Data,
	})
	if err != nil {
		return common.Hash{}, errors.Join(errors.New("failed to sign transaction"), err)
	}

	if err := client.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, errors.Join(errors.New("failed to send transaction"), err)
	}
	return signedTx.Hash(), nil
}

func getDerivedKey(masterKey *hdkeychain.ExtendedKey, derivationPath string, index uint) (*hdkeychain.ExtendedKey, uint, error) {
	formattedDerivationPath := fmt.Sprintf(derivationPath, index)

	path, err := accounts.ParseDerivationPath(formattedDerivationPath)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid account derivation path '%s': %w", formattedDerivationPath, err)
	}

	key := masterKey
	for i, n := range path {
		key, err = key.Derive(n)
		if err == hdkeychain.ErrInvalidChild {
			// start over with the next index
			return getDerivedKey(masterKey, derivationPath, index+1)
		} else if err != nil {
			return nil, 0, fmt.Errorf("invalid child key at depth %d: %w", i, err)
		}
	}

	return key, index, nil
}

func getDerivedKeyFixedPath(masterKey *hdkeychain.ExtendedKey, derivationPath string) (*hdkeychain.ExtendedKey, error) {
	path, err := accounts.ParseDerivationPath(derivationPath)
	if err != nil {
		return nil, fmt.Errorf("invalid account derivation path '%s': %w", derivationPath, err)
	}

	key := masterKey
	for i, n := range path {
		key, err = key.Derive(n)
		if err != nil {
			return nil, fmt.Errorf("invalid child key at depth %d: %w", i, err)
		}
	}

	return key, nil
}
