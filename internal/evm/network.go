package evm

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	ecommon "github.com/ethereum/go-ethereum/common"
	etypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/vultisig/tx-signer/internal/status"
)

// Backend is the part of an RPC client the signer uses. *ethclient.Client satisfies it.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account ecommon.Address) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*etypes.Header, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *etypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash ecommon.Hash) (*etypes.Receipt, error)
}

type Network struct {
	Chain  Chain
	Send   *sendService
	Status *status.Status

	// held from nonce lookup to broadcast so two pages sharing a key never reuse a nonce
	sendMu sync.Mutex
}

func NewNetwork(ctx context.Context, chain Chain, rpcURL string) (*Network, error) {
	if rpcURL == "" {
		rpcURL = chain.RPCURL
	}

	rpc, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}

	id, err := rpc.ChainID(ctx)
	if err != nil {
		rpc.Close()
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}
	if id.Uint64() != chain.ID {
		rpc.Close()
		return nil, fmt.Errorf("rpc %s serves chain %s, expected %d", rpcURL, id, chain.ID)
	}

	return NewNetworkWithBackend(chain, rpc), nil
}

func NewNetworkWithBackend(chain Chain, rpc Backend) *Network {
	return &Network{
		Chain:  chain,
		Send:   newSendService(rpc, new(big.Int).SetUint64(chain.ID)),
		Status: status.NewStatus(rpc),
	}
}

// Signer binds an account to this network.
func (n *Network) Signer(account Account) *SignerService {
	return newSignerService(n, account)
}
