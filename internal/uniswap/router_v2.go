package uniswap

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/vultisig/tx-signer/internal/pending"
)

const (
	txDeadline   = 20 * time.Minute
	slippageBips = 100
)

// QuickSwap is the Uniswap V2 fork on Polygon.
var (
	QuickSwapRouter = common.HexToAddress("0xa5E0829CaCEd8fFDD4De3c43696c57F7D7A678ff")
	WrappedMatic    = common.HexToAddress("0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270")
)

// Native is the asset id of the chain's native coin.
var Native = common.Address{}

const routerV2ABI = `[
	{"type":"function","name":"getAmountsOut","stateMutability":"view",
	 "inputs":[{"name":"amountIn","type":"uint256"},{"name":"path","type":"address[]"}],
	 "outputs":[{"name":"amounts","type":"uint256[]"}]},
	{"type":"function","name":"swapExactETHForTokens","stateMutability":"payable",
	 "inputs":[{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],
	 "outputs":[{"name":"amounts","type":"uint256[]"}]},
	{"type":"function","name":"swapExactTokensForETH","stateMutability":"nonpayable",
	 "inputs":[{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],
	 "outputs":[{"name":"amounts","type":"uint256[]"}]},
	{"type":"function","name":"swapExactTokensForTokens","stateMutability":"nonpayable",
	 "inputs":[{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],
	 "outputs":[{"name":"amounts","type":"uint256[]"}]}
]`

var routerABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(routerV2ABI))
	if err != nil {
		panic(fmt.Sprintf("invalid router abi: %v", err))
	}
	return parsed
}()

// RouterV2 prices a swap against a V2 router and encodes the call for it.
type RouterV2 struct {
	caller  ethereum.ContractCaller
	router  common.Address
	wrapped common.Address
	now     func() time.Time
}

func NewRouterV2(caller ethereum.ContractCaller, router, wrapped common.Address) *RouterV2 {
	return &RouterV2{
		caller:  caller,
		router:  router,
		wrapped: wrapped,
		now:     time.Now,
	}
}

func (r *RouterV2) hop(asset common.Address) common.Address {
	if asset == Native {
		return r.wrapped
	}
	return asset
}

// MakeTx quotes amount of from in to and returns the expected output together with the router
// call that performs the swap for recipient. The minimum output allows for slippageBips.
func (r *RouterV2) MakeTx(
	ctx context.Context,
	from, to common.Address,
	recipient common.Address,
	amount *big.Int,
) (*big.Int, pending.Tx, error) {
	if from == to {
		return nil, pending.Tx{}, fmt.Errorf("invalid path: same asset %s", from.Hex())
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, pending.Tx{}, fmt.Errorf("invalid amount: %v", amount)
	}

	path := []common.Address{r.hop(from), r.hop(to)}

	amountsOut, err := r.getAmountsOut(ctx, amount, path)
	if err != nil {
		return nil, pending.Tx{}, fmt.Errorf("failed to compute amount out: %w", err)
	}
	if len(amountsOut) == 0 {
		return nil, pending.Tx{}, fmt.Errorf("unexpected empty amountsOut")
	}

	lastAmountOut := amountsOut[len(amountsOut)-1]
	amountOutMin := deductSlippage(lastAmountOut, slippageBips)
	deadline := big.NewInt(r.now().Add(txDeadline).Unix())

	var data []byte
	value := big.NewInt(0)
	switch {
	case from == Native:
		data, err = routerABI.Pack("swapExactETHForTokens", amountOutMin, path, recipient, deadline)
		value = amount
	case to == Native:
		data, err = routerABI.Pack("swapExactTokensForETH", amount, amountOutMin, path, recipient, deadline)
	default:
		data, err = routerABI.Pack("swapExactTokensForTokens", amount, amountOutMin, path, recipient, deadline)
	}
	if err != nil {
		return nil, pending.Tx{}, fmt.Errorf("failed to pack swap: %w", err)
	}

	return lastAmountOut, pending.Tx{
		To:    r.router,
		Data:  data,
		Value: value,
	}, nil
}

func (r *RouterV2) getAmountsOut(ctx context.Context, amount *big.Int, path []common.Address) ([]*big.Int, error) {
	input, err := routerABI.Pack("getAmountsOut", amount, path)
	if err != nil {
		return nil, fmt.Errorf("failed to pack getAmountsOut: %w", err)
	}

	out, err := r.caller.CallContract(ctx, ethereum.CallMsg{
		To:   &r.router,
		Data: input,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call router: %w", err)
	}

	res, err := routerABI.Unpack("getAmountsOut", out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack getAmountsOut: %w", err)
	}
	amounts, ok := res[0].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected getAmountsOut type %T", res[0])
	}
	return amounts, nil
}

func deductSlippage(amount *big.Int, slippageBips uint64) *big.Int {
	if amount == nil || amount.Sign() <= 0 {
		return big.NewInt(0)
	}

	bipsTotal := big.NewInt(10000)
	multiplier := new(big.Int).Sub(bipsTotal, new(big.Int).SetUint64(slippageBips))
	result := new(big.Int).Mul(amount, multiplier)
	return result.Div(result, bipsTotal)
}
