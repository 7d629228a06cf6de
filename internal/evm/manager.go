package evm

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
)

type dialFunc func(ctx context.Context, chain Chain, rpcURL string) (*Network, error)

type Manager struct {
	mu      sync.RWMutex
	network map[uint64]*Network
	rpcURL  map[uint64]string
	dial    dialFunc
	group   singleflight.Group
}

func NewManager(network map[uint64]*Network) *Manager {
	if network == nil {
		network = make(map[uint64]*Network)
	}
	return &Manager{
		network: network,
		rpcURL:  make(map[uint64]string),
		dial:    NewNetwork,
	}
}

// SetRPCURL overrides the registry RPC used when chainID is first dialled.
func (m *Manager) SetRPCURL(chainID uint64, url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if url != "" {
		m.rpcURL[chainID] = url
	}
}

func (m *Manager) Get(chainID uint64) (*Network, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	net, ok := m.network[chainID]
	if !ok {
		return nil, fmt.Errorf("failed to get network for chain: %d", chainID)
	}
	return net, nil
}

// Ensure returns the network for chainID, dialling it the first time a known chain is requested.
func (m *Manager) Ensure(ctx context.Context, chainID uint64) (*Network, error) {
	if net, err := m.Get(chainID); err == nil {
		return net, nil
	}

	chain, ok := ChainByID(chainID)
	if !ok {
		return nil, fmt.Errorf("unsupported chain: %d", chainID)
	}

	// The dial runs outside mu so Get for other chains is never blocked on a slow RPC; concurrent
	// callers for the same chain share one dial.
	v, err, _ := m.group.Do(strconv.FormatUint(chainID, 10), func() (interface{}, error) {
		m.mu.RLock()
		net, ok := m.network[chainID]
		url := m.rpcURL[chainID]
		m.mu.RUnlock()
		if ok {
			return net, nil
		}

		if url == "" {
			url = chain.RPCURL
		}
		net, err := m.dial(ctx, chain, url)
		if err != nil {
			return nil, fmt.Errorf("failed to add %s: %w", chain, err)
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		m.network[chainID] = net
		return net, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Network), nil
}
