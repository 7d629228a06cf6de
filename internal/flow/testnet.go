package flow

import (
	"context"

	ecommon "github.com/ethereum/go-ethereum/common"

	"github.com/vultisig/tx-signer/internal/pending"
)

// SubmitTestnet switches the wallet to the testnet chain and sends zero-value transactions to the
// connected address instead of the prepared calls: one, or two when the set has an approve step.
// The bot backend is told the last hash.
func (r *Runner) SubmitTestnet(
	ctx context.Context,
	st *State,
	set *pending.Set,
	params pending.Params,
	session *Session,
) error {
	if session == nil {
		st.Append("Please connect wallet first")
		return ErrNotConnected
	}
	if set == nil {
		st.Append("No transaction data")
		return ErrNoTransactionData
	}

	return r.run(st, ModeTestnet, func() error {
		st.Append("🔵 Switching to " + r.testnet.Name + "...")

		err := session.connector.SwitchChain(ctx, r.testnet.ID)
		if err != nil {
			return err
		}

		signer, err := session.connector.Signer(ctx)
		if err != nil {
			return err
		}
		st.Append("✅ Network Switched. Sending Dummy TX...")

		dummy := pending.Tx{To: session.Address}

		hash, err := r.sendDummy(ctx, signer, dummy, func(hash ecommon.Hash) {
			st.Append("📝 Transaction Sent! Hash: " + hash.Hex()[:10] + "...")
		})
		if err != nil {
			return err
		}
		st.Append("✅ Transaction Confirmed on Testnet!")

		last := hash
		if set.Approve != nil {
			st.Append("📝 Sending 2nd Transaction (Simulation)...")
			last, err = r.sendDummy(ctx, signer, dummy, nil)
			if err != nil {
				return err
			}
			st.Append("✅ All Transactions Confirmed!")
		}

		r.sendReceipt(ctx, st, params, last.Hex())
		return nil
	})
}

// sendDummy sends a zero-value transaction and waits for it. sent, when set, runs once the hash is
// known.
func (r *Runner) sendDummy(ctx context.Context, signer Signer, tx pending.Tx, sent func(ecommon.Hash)) (ecommon.Hash, error) {
	hash, err := signer.SendTransaction(ctx, tx)
	if err != nil {
		r.metrics.RecordTransaction(ModeTestnet, "Dummy", false)
		return ecommon.Hash{}, err
	}
	if sent != nil {
		sent(hash)
	}

	_, err = signer.WaitMined(ctx, hash)
	if err != nil {
		r.metrics.RecordTransaction(ModeTestnet, "Dummy", false)
		return ecommon.Hash{}, err
	}
	r.metrics.RecordTransaction(ModeTestnet, "Dummy", true)
	return hash, nil
}

// sendReceipt never fails the run: a lost receipt is logged and the run still succeeds.
func (r *Runner) sendReceipt(ctx context.Context, st *State, params pending.Params, hash string) {
	if params.UserID == nil || r.notifier == nil {
		return
	}

	st.Append("📩 Sending Receipt to Telegram...")

	err := r.notifier.Notify(ctx, *params.UserID, hash, params.MarketQuestion)
	if err != nil {
		r.logger.WithError(err).WithField("userID", *params.UserID).Warn("failed to send receipt")
		st.Append("⚠️ Receipt not sent: " + err.Error())
		return
	}
	st.Append("✅ Receipt Sent!")
}
