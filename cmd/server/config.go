package main

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/vultisig/tx-signer/internal/logging"
	"github.com/vultisig/tx-signer/internal/metrics"
	"github.com/vultisig/tx-signer/internal/server"
)

type config struct {
	LogFormat logging.LogFormat `envconfig:"LOG_FORMAT" default:"text"`
	Server    server.Config
	Metrics   metrics.Config
	DataDog   dataDog
	Wallet    walletConfig
	Rpc       rpc
	Notify    notifyConfig
}

type dataDog struct {
	Host string
	Port string
}

type walletConfig struct {
	Backend          string `default:"none"`
	ChainID          uint64 `envconfig:"CHAIN_ID" default:"137"`
	PrivateKey       string `envconfig:"PRIVATE_KEY"`
	KeystoreDir      string `envconfig:"KEYSTORE_DIR"`
	KeystoreAddress  string `envconfig:"KEYSTORE_ADDRESS"`
	KeystorePassword string `envconfig:"KEYSTORE_PASSWORD"`
	ExternalURL      string `envconfig:"EXTERNAL_URL"`
}

type rpc struct {
	Polygon  rpcItem
	Amoy     rpcItem
	Ethereum rpcItem
	Sepolia  rpcItem
}

type rpcItem struct {
	URL string
}

type notifyConfig struct {
	URL     string
	Timeout time.Duration `default:"10s"`
}

func newConfig() (config, error) {
	var cfg config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return config{}, fmt.Errorf("failed to process env var: %w", err)
	}
	return cfg, nil
}
