package config

import (
	"strings"
	"testing"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GANNETX_MNEMONIC", testMnemonic)

	settings, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if settings.ListenAddr != "127.0.0.1:8080" {
		t.Errorf("ListenAddr = %q", settings.ListenAddr)
	}
	if settings.WalletMode != WalletModeMnemonic {
		t.Errorf("WalletMode = %q, want mnemonic", settings.WalletMode)
	}
	if settings.StatusEndpoint != "http://127.0.0.1:8080/api/chain-status" {
		t.Errorf("StatusEndpoint = %q", settings.StatusEndpoint)
	}
}

func TestLoadStatusEndpointFollowsListenAddr(t *testing.T) {
	t.Setenv("GANNETX_MNEMONIC", testMnemonic)
	t.Setenv("GANNETX_LISTEN_ADDR", "0.0.0.0:9999")

	settings, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if settings.StatusEndpoint != "http://0.0.0.0:9999/api/chain-status" {
		t.Errorf("StatusEndpoint = %q", settings.StatusEndpoint)
	}
}

func TestLoadWalletModeValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "mnemonic mode without mnemonic",
			env:     map[string]string{"GANNETX_WALLET_MODE": WalletModeMnemonic},
			wantErr: "GANNETX_MNEMONIC",
		},
		{
			name:    "keystore mode without keystore",
			env:     map[string]string{"GANNETX_WALLET_MODE": WalletModeKeystore},
			wantErr: "GANNETX_WALLET_KEYSTORE",
		},
		{
			name:    "bridge mode without url",
			env:     map[string]string{"GANNETX_WALLET_MODE": WalletModeBridge},
			wantErr: "GANNETX_WALLET_BRIDGE_URL",
		},
		{
			name:    "unknown mode",
			env:     map[string]string{"GANNETX_WALLET_MODE": "hardware"},
			wantErr: "unknown wallet mode",
		},
		{
			name: "keystore mode complete",
			env: map[string]string{
				"GANNETX_WALLET_MODE":     WalletModeKeystore,
				"GANNETX_WALLET_KEYSTORE": "/tmp/wallet.json",
				"GANNETX_WALLET_PASSWORD": "hunter2",
			},
		},
		{
			name: "bridge mode complete",
			env: map[string]string{
				"GANNETX_WALLET_MODE":       WalletModeBridge,
				"GANNETX_WALLET_BRIDGE_URL": "http://127.0.0.1:8545",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.env {
				t.Setenv(key, value)
			}

			_, err := Load()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("load failed: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %q, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
