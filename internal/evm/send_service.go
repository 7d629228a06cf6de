package evm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	ecommon "github.com/ethereum/go-ethereum/common"
	etypes "github.com/ethereum/go-ethereum/core/types"
)

// gas estimate headroom, percent
const gasHeadroom = 20

type sendService struct {
	rpc     Backend
	chainID *big.Int
}

func newSendService(rpc Backend, chainID *big.Int) *sendService {
	return &sendService{
		rpc:     rpc,
		chainID: chainID,
	}
}

// BuildTx makes an unsigned transaction. Chains reporting a base fee get an EIP-1559 tx, the
// rest a legacy one.
func (s *sendService) BuildTx(
	ctx context.Context,
	from ecommon.Address,
	to ecommon.Address,
	value *big.Int,
	data []byte,
) (*etypes.Transaction, error) {
	if value == nil {
		value = big.NewInt(0)
	}

	nonce, err := s.rpc.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}

	gas, err := s.rpc.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &to,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to estimate gas: %w", err)
	}
	gas += gas * gasHeadroom / 100

	head, err := s.rpc.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest header: %w", err)
	}

	if head.BaseFee == nil {
		gasPrice, er := s.rpc.SuggestGasPrice(ctx)
		if er != nil {
			return nil, fmt.Errorf("failed to suggest gas price: %w", er)
		}
		return etypes.NewTx(&etypes.LegacyTx{
			Nonce:    nonce,
			GasPrice: gasPrice,
			Gas:      gas,
			To:       &to,
			Value:    value,
			Data:     data,
		}), nil
	}

	tip, err := s.rpc.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to suggest gas tip: %w", err)
	}
	feeCap := new(big.Int).Add(new(big.Int).Mul(head.BaseFee, big.NewInt(2)), tip)

	return etypes.NewTx(&etypes.DynamicFeeTx{
		ChainID:   s.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Value:     value,
		Data:      data,
	}), nil
}

func (s *sendService) Broadcast(ctx context.Context, tx *etypes.Transaction) error {
	err := s.rpc.SendTransaction(ctx, tx)
	if err != nil {
		return fmt.Errorf("failed to send transaction: %w", err)
	}
	return nil
}
