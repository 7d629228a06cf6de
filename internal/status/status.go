package status

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	ecommon "github.com/ethereum/go-ethereum/common"
	etypes "github.com/ethereum/go-ethereum/core/types"
)

var ErrReverted = errors.New("transaction reverted")

type ReceiptReader interface {
	TransactionReceipt(ctx context.Context, txHash ecommon.Hash) (*etypes.Receipt, error)
}

type Status struct {
	caller   ReceiptReader
	interval time.Duration
}

func NewStatus(caller ReceiptReader) *Status {
	return &Status{
		caller:   caller,
		interval: time.Second,
	}
}

// WaitMined blocks until the transaction has a receipt. It has no timeout of its own; callers
// bound it with ctx.
func (s *Status) WaitMined(ctx context.Context, txHash ecommon.Hash) (*etypes.Receipt, error) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			receipt, err := s.caller.TransactionReceipt(ctx, txHash)
			if errors.Is(err, ethereum.NotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			if receipt.Status != etypes.ReceiptStatusSuccessful {
				return receipt, fmt.Errorf("%w: hash=%s, block=%s", ErrReverted, txHash.Hex(), receipt.BlockNumber)
			}
			return receipt, nil
		}
	}
}
