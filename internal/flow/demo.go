package flow

import (
	"context"
	"time"

	"github.com/vultisig/tx-signer/internal/pending"
)

const (
	demoPause   = time.Second
	demoSigning = 1500 * time.Millisecond
)

// SubmitDemo plays the submission log with delays only. It needs a connected session like the
// other modes but never touches the wallet, and nothing is sent.
func (r *Runner) SubmitDemo(ctx context.Context, st *State, set *pending.Set, session *Session) error {
	if session == nil {
		st.Append("Please connect wallet first")
		return ErrNotConnected
	}
	if set == nil {
		st.Append("No transaction data")
		return ErrNoTransactionData
	}

	return r.run(st, ModeDemo, func() error {
		st.Append("🔵 DEMO MODE: Simulating transactions...")

		err := r.demoStep(ctx, st, "Swap")
		if err != nil {
			return err
		}

		if set.Approve != nil {
			err = r.demoStep(ctx, st, "Approve")
			if err != nil {
				return err
			}
		}

		err = r.sleep(ctx, demoPause)
		if err != nil {
			return err
		}
		st.Append("🚀 Order Placed Successfully! (Simulated)")
		return nil
	})
}

func (r *Runner) demoStep(ctx context.Context, st *State, label string) error {
	err := r.sleep(ctx, demoPause)
	if err != nil {
		return err
	}
	st.Append("📝 Signing " + label + " Transaction...")

	err = r.sleep(ctx, demoSigning)
	if err != nil {
		return err
	}
	st.Append("✅ " + label + " Transaction Confirmed! (Simulated)")
	return nil
}
