package evm

import (
	"fmt"
	"strconv"
)

type Currency struct {
	Name     string
	Symbol   string
	Decimals int
}

// Chain is what a wallet needs to know to add a network it has never seen.
type Chain struct {
	ID          uint64
	Name        string
	Currency    Currency
	RPCURL      string
	ExplorerURL string
	Testnet     bool
}

// HexID is the chain id in the 0x-prefixed form wallets use for chain switching.
func (c Chain) HexID() string {
	return "0x" + strconv.FormatUint(c.ID, 16)
}

func (c Chain) String() string {
	return fmt.Sprintf("%s (%d)", c.Name, c.ID)
}

var matic = Currency{Name: "MATIC", Symbol: "MATIC", Decimals: 18}
var ether = Currency{Name: "Ether", Symbol: "ETH", Decimals: 18}

var (
	Polygon = Chain{
		ID:          137,
		Name:        "Polygon",
		Currency:    matic,
		RPCURL:      "https://polygon-rpc.com",
		ExplorerURL: "https://polygonscan.com",
	}
	PolygonAmoy = Chain{
		ID:          80002,
		Name:        "Polygon Amoy Testnet",
		Currency:    matic,
		RPCURL:      "https://rpc-amoy.polygon.technology",
		ExplorerURL: "https://www.oklink.com/amoy",
		Testnet:     true,
	}
	Ethereum = Chain{
		ID:          1,
		Name:        "Ethereum",
		Currency:    ether,
		RPCURL:      "https://ethereum-rpc.publicnode.com",
		ExplorerURL: "https://etherscan.io",
	}
	Sepolia = Chain{
		ID:          11155111,
		Name:        "Sepolia",
		Currency:    ether,
		RPCURL:      "https://ethereum-sepolia-rpc.publicnode.com",
		ExplorerURL: "https://sepolia.etherscan.io",
		Testnet:     true,
	}
)

// SupportedChains returns every chain the signer can switch to without extra configuration
func SupportedChains() []Chain {
	return []Chain{
		Polygon,
		PolygonAmoy,
		Ethereum,
		Sepolia,
	}
}

func ChainByID(id uint64) (Chain, bool) {
	for _, c := range SupportedChains() {
		if c.ID == id {
			return c, true
		}
	}
	return Chain{}, false
}

// IsTestnet reports whether transactions on the chain carry no real value
func IsTestnet(id uint64) bool {
	c, ok := ChainByID(id)
	return ok && c.Testnet
}
