package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"

	"gannetx/app"
	"gannetx/checkin"
	"gannetx/config"
	"gannetx/provider"

	"github.com/ethereum/go-ethereum/common"
)

func buildProvider(ctx context.Context, settings config.Settings, logger *slog.Logger) (provider.Provider, error) {
	switch settings.WalletMode {
	case config.WalletModeMnemonic:
		return provider.RecoverLocalWallet(settings.Mnemonic, settings.DerivationPath, settings.WalletIndex)
	case config.WalletModeKeystore:
		keystoreJson, err := os.ReadFile(settings.WalletKeystore)
		if err != nil {
			return nil, errors.Join(errors.New("failed to read keystore file"), err)
		}
		return provider.LoadLocalWallet(string(keystoreJson), settings.WalletPassword)
	case config.WalletModeBridge:
		return provider.DialBridge(ctx, settings.WalletBridgeUrl, logger)
	default:
		return nil, errors.New("unknown wallet mode " + settings.WalletMode)
	}
}

func resolveAccount(ctx context.Context, prov provider.Provider) (common.Address, error) {
	accounts, err := prov.Accounts(ctx)
	if err != nil {
		return common.Address{}, errors.Join(errors.New("failed to list wallet accounts"), err)
	}
	if len(accounts) == 0 {
		return common.Address{}, errors.New("wallet exposes no accounts")
	}
	return accounts[0], nil
}

func setupRoutes(engine *checkin.Engine, settings config.Settings, logger *slog.Logger) *http.ServeMux {
	app := app.NewApp(engine, settings.IncludeTestnets, logger)

	mux := http.NewServeMux()
	mux.Handle("/", http.HandlerFunc(app.Home))
	mux.Handle("/status", http.HandlerFunc(app.GetStatusRows))
	mux.Handle("/status/scan", http.HandlerFunc(app.PostScan))
	mux.Handle("/checkin", http.HandlerFunc(app.PostCheckin))
	mux.Handle("/api/chain-status", http.HandlerFunc(app.ChainStatus))

	return mux
}

func main() {
	debugPtr := flag.Bool("debug", false, "Enable debug mode")
	flag.Parse()
	if *debugPtr {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	logger := slog.Default()
	ctx := context.Background()

	settings, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	prov, err := buildProvider(ctx, settings, logger)
	if err != nil {
		log.Fatal(err)
	}

	account, err := resolveAccount(ctx, prov)
	if err != nil {
		log.Fatal(err)
	}
	logger.Info("wallet ready", slog.String("account", account.Hex()))

	engine := checkin.NewEngine(prov, checkin.Options{
		StatusEndpoint:  settings.StatusEndpoint,
		IncludeTestnets: settings.IncludeTestnets,
		OnCheckinSuccess: func(event checkin.CompletionEvent) {
			logger.Info("check-in completed",
				slog.Uint64("chainId", event.ChainId),
				slog.String("txHash", event.TxHash.Hex()),
			)
		},
	}, logger)
	engine.Start(ctx, account)
	defer engine.Stop()

	mux := setupRoutes(engine, settings, logger)

	log.Printf("Server running on %s...", settings.ListenAddr)
	err = http.ListenAndServe(settings.ListenAddr, mux)
	log.Fatal(err)
}
