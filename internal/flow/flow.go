package flow

import (
	"context"
	"errors"
	"fmt"
	"time"

	ecommon "github.com/ethereum/go-ethereum/common"
	etypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"github.com/vultisig/tx-signer/internal/evm"
	"github.com/vultisig/tx-signer/internal/pending"
)

var (
	ErrConnectorUnavailable = errors.New("no wallet available")
	ErrNotConnected         = errors.New("wallet not connected")
	ErrNoTransactionData    = pending.ErrNoTransactionData
	ErrInProgress           = errors.New("submission in progress")
	ErrAlreadyComplete      = errors.New("submission already complete")
)

const (
	ModeMainnet = "mainnet"
	ModeTestnet = "testnet"
	ModeDemo    = "demo"
)

type Connector interface {
	Connect(ctx context.Context) (ecommon.Address, error)
	Signer(ctx context.Context) (Signer, error)
	SwitchChain(ctx context.Context, chainID uint64) error
}

type Signer interface {
	SendTransaction(ctx context.Context, tx pending.Tx) (ecommon.Hash, error)
	WaitMined(ctx context.Context, hash ecommon.Hash) (*etypes.Receipt, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID int64, txHash string, marketQuestion string) error
}

type Recorder interface {
	RecordRun(mode string, success bool, duration time.Duration)
	RecordTransaction(mode, step string, success bool)
}

// Session is a connected wallet.
type Session struct {
	Address   ecommon.Address
	connector Connector
}

func (s *Session) ShortAddress() string {
	hex := s.Address.Hex()
	return hex[:6] + "..." + hex[len(hex)-4:]
}

type Runner struct {
	logger   *logrus.Logger
	notifier Notifier
	metrics  Recorder
	sleep    func(ctx context.Context, d time.Duration) error
	testnet  evm.Chain
}

func NewRunner(logger *logrus.Logger, notifier Notifier, metrics Recorder) *Runner {
	if metrics == nil {
		metrics = nopRecorder{}
	}
	return &Runner{
		logger:   logger,
		notifier: notifier,
		metrics:  metrics,
		sleep:    sleepCtx,
		testnet:  evm.PolygonAmoy,
	}
}

// Connect asks the connector for an account. A nil connector means no wallet is installed.
func (r *Runner) Connect(ctx context.Context, st *State, connector Connector) (*Session, error) {
	if connector == nil {
		st.Append("Please install a wallet!")
		return nil, ErrConnectorUnavailable
	}

	addr, err := connector.Connect(ctx)
	if err != nil {
		st.Append("Error: " + err.Error())
		return nil, fmt.Errorf("failed to connect wallet: %w", err)
	}

	st.Append("Connected: " + addr.Hex())
	r.logger.WithField("address", addr.Hex()).Info("wallet connected")

	return &Session{
		Address:   addr,
		connector: connector,
	}, nil
}

// Submit sends the swap and, once the swap is confirmed, the approve through the session's
// wallet. The first failure ends the attempt.
func (r *Runner) Submit(ctx context.Context, st *State, set *pending.Set, session *Session) error {
	if session == nil {
		st.Append("Please connect wallet first")
		return ErrNotConnected
	}
	if set == nil {
		st.Append("No transaction data")
		return ErrNoTransactionData
	}

	return r.run(st, ModeMainnet, func() error {
		signer, err := session.connector.Signer(ctx)
		if err != nil {
			return err
		}
		st.Append("Signer ready: " + session.Address.Hex())

		_, err = r.step(ctx, st, signer, ModeMainnet, "Swap", set.Swap)
		if err != nil {
			return err
		}

		if set.Approve != nil {
			_, err = r.step(ctx, st, signer, ModeMainnet, "Approve", pending.Tx{
				To:   set.Approve.To,
				Data: set.Approve.Data,
			})
			if err != nil {
				return err
			}
		}

		st.Append("✅ All transactions complete!")
		return nil
	})
}

func (r *Runner) step(
	ctx context.Context,
	st *State,
	signer Signer,
	mode, label string,
	tx pending.Tx,
) (ecommon.Hash, error) {
	l := r.logger.WithFields(logrus.Fields{
		"mode": mode,
		"step": label,
		"to":   tx.To.Hex(),
	})

	st.Append("Sending " + label + " TX...")
	hash, err := signer.SendTransaction(ctx, tx)
	if err != nil {
		r.metrics.RecordTransaction(mode, label, false)
		return ecommon.Hash{}, err
	}
	st.Append(label + " TX sent: " + hash.Hex())
	l.WithField("hash", hash.Hex()).Info("transaction sent, wait mined")

	_, err = signer.WaitMined(ctx, hash)
	if err != nil {
		r.metrics.RecordTransaction(mode, label, false)
		return hash, err
	}
	r.metrics.RecordTransaction(mode, label, true)
	st.Append(label + " Confirmed!")
	return hash, nil
}

func (r *Runner) run(st *State, mode string, fn func() error) error {
	err := st.Begin()
	if err != nil {
		return err
	}

	start := time.Now()
	err = fn()
	r.metrics.RecordRun(mode, err == nil, time.Since(start))

	if err != nil {
		st.Append("Error: " + err.Error())
		st.finish(StatusError)
		r.logger.WithError(err).WithField("mode", mode).Error("submission failed")
		return err
	}

	st.finish(StatusSuccess)
	r.logger.WithField("mode", mode).Info("submission complete")
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type nopRecorder struct{}

func (nopRecorder) RecordRun(string, bool, time.Duration)  {}
func (nopRecorder) RecordTransaction(string, string, bool) {}
