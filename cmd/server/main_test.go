package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewAccount(t *testing.T) {
	acc, err := newAccount(walletConfig{Backend: "none"})
	require.NoError(t, err)
	require.Nil(t, acc)

	acc, err = newAccount(walletConfig{
		Backend:    "key",
		PrivateKey: "0x4f3edf983ac636a65a842ce7c78d9aa706d3b113bce9c46f30d7d21715b23b1d",
	})
	require.NoError(t, err)
	require.Equal(t, "0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1", acc.Address().Hex())

	_, err = newAccount(walletConfig{Backend: "key", PrivateKey: "nope"})
	require.Error(t, err)

	_, err = newAccount(walletConfig{Backend: "ledger"})
	require.ErrorContains(t, err, "invalid WALLET_BACKEND")
}

func TestNewConfigDefaults(t *testing.T) {
	t.Setenv("WALLET_BACKEND", "key")
	t.Setenv("RPC_AMOY_URL", "http://localhost:8545")

	cfg, err := newConfig()
	require.NoError(t, err)
	require.Equal(t, "key", cfg.Wallet.Backend)
	require.Equal(t, uint64(137), cfg.Wallet.ChainID)
	require.Equal(t, "http://localhost:8545", cfg.Rpc.Amoy.URL)
	require.Equal(t, 8080, cfg.Server.Port)
	require.True(t, cfg.Metrics.Enabled)
}
