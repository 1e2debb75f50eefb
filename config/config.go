package config

import (
	"errors"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	WalletModeMnemonic = "mnemonic"
	WalletModeKeystore = "keystore"
	WalletModeBridge   = "bridge"
)

// Settings is the service configuration, read from the environment with an
// optional .env file. All keys are prefixed GANNETX_.
type Settings struct {
	ListenAddr string `default:"127.0.0.1:8080" split_words:"true"`

	// StatusEndpoint overrides where the prober sends eligibility requests.
	// Empty means the service's own chain-status endpoint.
	StatusEndpoint string `split_words:"true"`

	IncludeTestnets bool `split_words:"true"`

	// WalletMode selects the provider: mnemonic and keystore build the local
	// signing wallet, bridge forwards to an external wallet RPC.
	WalletMode string `default:"mnemonic" split_words:"true"`

	Mnemonic       string
	DerivationPath string `split_words:"true"`
	WalletIndex    uint   `split_words:"true"`

	WalletKeystore string `split_words:"true"`
	WalletPassword string `split_words:"true"`

	WalletBridgeUrl string `split_words:"true"`
}

// Load reads the optional .env file and the environment.
func Load() (Settings, error) {
	// missing .env is fine, the environment may carry everything
	_ = godotenv.Load()

	var settings Settings
	if err := envconfig.Process("GANNETX", &settings); err != nil {
		return Settings{}, fmt.Errorf("failed to parse settings: %w", err)
	}

	if settings.StatusEndpoint == "" {
		settings.StatusEndpoint = fmt.Sprintf("http://%s/api/chain-status", settings.ListenAddr)
	}

	switch settings.WalletMode {
	case WalletModeMnemonic:
		if settings.Mnemonic == "" {
			return Settings{}, errors.New("GANNETX_MNEMONIC is required in mnemonic wallet mode")
		}
	case WalletModeKeystore:
		if settings.WalletKeystore == "" || settings.WalletPassword == "" {
			return Settings{}, errors.New("GANNETX_WALLET_KEYSTORE and GANNETX_WALLET_PASSWORD are required in keystore wallet mode")
		}
	case WalletModeBridge:
		if settings.WalletBridgeUrl == "" {
			return Settings{}, errors.New("GANNETX_WALLET_BRIDGE_URL is required in bridge wallet mode")
		}
	default:
		return Settings{}, fmt.Errorf("unknown wallet mode %q", settings.WalletMode)
	}

	return settings, nil
}
