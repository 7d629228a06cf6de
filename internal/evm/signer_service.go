package evm

import (
	"context"
	"fmt"
	"math/big"

	ecommon "github.com/ethereum/go-ethereum/common"
	etypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"github.com/vultisig/tx-signer/internal/pending"
)

// Account is a key the user controls. Implementations may block until the user approves.
type Account interface {
	Address() ecommon.Address
	SignTx(ctx context.Context, tx *etypes.Transaction, chainID *big.Int) (*etypes.Transaction, error)
}

type SignerService struct {
	network *Network
	account Account
}

func newSignerService(network *Network, account Account) *SignerService {
	return &SignerService{
		network: network,
		account: account,
	}
}

func (s *SignerService) Address() ecommon.Address {
	return s.account.Address()
}

func (s *SignerService) ChainID() uint64 {
	return s.network.Chain.ID
}

// SendTransaction builds, signs and broadcasts tx from the bound account.
func (s *SignerService) SendTransaction(ctx context.Context, tx pending.Tx) (ecommon.Hash, error) {
	from := s.account.Address()

	log := logrus.WithFields(logrus.Fields{
		"chain": s.network.Chain.ID,
		"from":  from.Hex(),
		"to":    tx.To.Hex(),
		"value": tx.ValueOrZero().String(),
	})

	s.network.sendMu.Lock()
	defer s.network.sendMu.Unlock()

	unsignedTx, err := s.network.Send.BuildTx(ctx, from, tx.To, tx.ValueOrZero(), tx.Data)
	if err != nil {
		return ecommon.Hash{}, fmt.Errorf("failed to build tx: %w", err)
	}

	signedTx, err := s.account.SignTx(ctx, unsignedTx, new(big.Int).SetUint64(s.network.Chain.ID))
	if err != nil {
		return ecommon.Hash{}, fmt.Errorf("failed to sign tx: %w", err)
	}

	err = s.network.Send.Broadcast(ctx, signedTx)
	if err != nil {
		return ecommon.Hash{}, fmt.Errorf("failed to broadcast tx: %w", err)
	}

	log.WithField("hash", signedTx.Hash().Hex()).Info("transaction broadcast")
	return signedTx.Hash(), nil
}

func (s *SignerService) WaitMined(ctx context.Context, hash ecommon.Hash) (*etypes.Receipt, error) {
	receipt, err := s.network.Status.WaitMined(ctx, hash)
	if err != nil {
		return receipt, fmt.Errorf("failed to wait tx: %w", err)
	}
	return receipt, nil
}
