package wallet

import (
	"context"
	"fmt"
	"sync"

	ecommon "github.com/ethereum/go-ethereum/common"

	"github.com/vultisig/tx-signer/internal/evm"
	"github.com/vultisig/tx-signer/internal/flow"
)

// Provider holds the account and the networks shared by every page. Each page opens its own
// Wallet so a chain switch on one page never moves another.
type Provider struct {
	account  evm.Account
	networks *evm.Manager
	chainID  uint64
}

func NewProvider(account evm.Account, networks *evm.Manager, chainID uint64) *Provider {
	return &Provider{
		account:  account,
		networks: networks,
		chainID:  chainID,
	}
}

func (p *Provider) Open() *Wallet {
	return &Wallet{
		provider: p,
		chainID:  p.chainID,
	}
}

type Wallet struct {
	provider *Provider

	mu      sync.Mutex
	chainID uint64
}

func (w *Wallet) ChainID() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.chainID
}

func (w *Wallet) Connect(ctx context.Context) (ecommon.Address, error) {
	_, err := w.provider.networks.Ensure(ctx, w.ChainID())
	if err != nil {
		return ecommon.Address{}, fmt.Errorf("failed to reach network: %w", err)
	}
	return w.provider.account.Address(), nil
}

func (w *Wallet) Signer(ctx context.Context) (flow.Signer, error) {
	net, err := w.provider.networks.Ensure(ctx, w.ChainID())
	if err != nil {
		return nil, fmt.Errorf("failed to get network: %w", err)
	}
	return net.Signer(w.provider.account), nil
}

// SwitchChain makes chainID the active chain, adding it from the registry when it is not
// configured.
func (w *Wallet) SwitchChain(ctx context.Context, chainID uint64) error {
	_, err := w.provider.networks.Ensure(ctx, chainID)
	if err != nil {
		return fmt.Errorf("failed to switch chain: %w", err)
	}

	w.mu.Lock()
	w.chainID = chainID
	w.mu.Unlock()
	return nil
}
