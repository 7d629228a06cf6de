package main

import (
	"context"
	"fmt"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vultisig/tx-signer/internal/evm"
	"github.com/vultisig/tx-signer/internal/flow"
	"github.com/vultisig/tx-signer/internal/graceful"
	"github.com/vultisig/tx-signer/internal/logging"
	"github.com/vultisig/tx-signer/internal/metrics"
	"github.com/vultisig/tx-signer/internal/notify"
	"github.com/vultisig/tx-signer/internal/server"
	"github.com/vultisig/tx-signer/internal/wallet"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := newConfig()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	logger := logging.NewLogger(cfg.LogFormat)

	metricsServer := metrics.StartMetricsServer(
		cfg.Metrics,
		[]string{metrics.ServiceHTTP, metrics.ServiceFlow},
		logger,
	)
	defer func() {
		if metricsServer != nil {
			if err := metricsServer.Stop(context.Background()); err != nil {
				logger.Errorf("failed to stop metrics server: %v", err)
			}
		}
	}()

	var sd statsd.ClientInterface
	if cfg.DataDog.Host != "" {
		sdClient, err := statsd.New(cfg.DataDog.Host + ":" + cfg.DataDog.Port)
		if err != nil {
			logger.Fatalf("failed to initialize StatsD client: %v", err)
		}
		defer func() {
			_ = sdClient.Close()
		}()
		sd = sdClient
	}

	networks := evm.NewManager(nil)
	networks.SetRPCURL(evm.Polygon.ID, cfg.Rpc.Polygon.URL)
	networks.SetRPCURL(evm.PolygonAmoy.ID, cfg.Rpc.Amoy.URL)
	networks.SetRPCURL(evm.Ethereum.ID, cfg.Rpc.Ethereum.URL)
	networks.SetRPCURL(evm.Sepolia.ID, cfg.Rpc.Sepolia.URL)

	if _, ok := evm.ChainByID(cfg.Wallet.ChainID); !ok {
		logger.Fatalf("unsupported WALLET_CHAIN_ID: %d", cfg.Wallet.ChainID)
	}

	account, err := newAccount(cfg.Wallet)
	if err != nil {
		logger.Fatalf("failed to initialize wallet: %v", err)
	}

	opener := server.WalletOpener(nil)
	if account != nil {
		provider := wallet.NewProvider(account, networks, cfg.Wallet.ChainID)
		opener = func() flow.Connector {
			return provider.Open()
		}
		logger.WithFields(logrus.Fields{
			"backend": cfg.Wallet.Backend,
			"address": account.Address().Hex(),
			"chain":   cfg.Wallet.ChainID,
		}).Info("wallet ready")
	} else {
		logger.Warn("no wallet configured, only demo submissions are possible")
	}

	var notifier flow.Notifier
	if cfg.Notify.URL != "" {
		notifier = notify.NewClient(cfg.Notify.URL, cfg.Notify.Timeout)
	}

	runner := flow.NewRunner(logger, notifier, metrics.NewFlowMetrics(sd, logger))
	srv := server.NewServer(cfg.Server, runner, opener, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(ctx)
	})
	g.Go(func() error {
		graceful.CancelOnSignal(ctx, cancel, logger)
		return nil
	})

	err = g.Wait()
	if err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}

func newAccount(cfg walletConfig) (evm.Account, error) {
	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "key":
		acc, err := wallet.NewKeyAccount(cfg.PrivateKey)
		if err != nil {
			return nil, err
		}
		return acc, nil
	case "keystore":
		acc, err := wallet.NewKeystoreAccount(
			cfg.KeystoreDir,
			cfg.KeystoreAddress,
			cfg.KeystorePassword,
			keystore.StandardScryptN,
			keystore.StandardScryptP,
		)
		if err != nil {
			return nil, err
		}
		return acc, nil
	case "external":
		acc, err := wallet.NewExternalAccount(cfg.ExternalURL)
		if err != nil {
			return nil, err
		}
		return acc, nil
	default:
		return nil, fmt.Errorf("invalid WALLET_BACKEND: %s (must be none, key, keystore or external)", cfg.Backend)
	}
}
