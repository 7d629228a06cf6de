package uniswap

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

var (
	usdc      = common.HexToAddress("0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359")
	recipient = common.HexToAddress("0x1111111111111111111111111111111111111111")
)

// MockCaller answers getAmountsOut with a fixed output and records the path it was asked for.
type MockCaller struct {
	out  *big.Int
	err  error
	path []common.Address
}

func (m *MockCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}

	args, err := routerABI.Methods["getAmountsOut"].Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}
	amountIn := args[0].(*big.Int)
	m.path = args[1].([]common.Address)

	return routerABI.Methods["getAmountsOut"].Outputs.Pack([]*big.Int{amountIn, m.out})
}

func newTestRouter(caller *MockCaller) *RouterV2 {
	r := NewRouterV2(caller, QuickSwapRouter, WrappedMatic)
	r.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return r
}

func TestDeductSlippage(t *testing.T) {
	tests := []struct {
		name         string
		amount       *big.Int
		slippageBips uint64
		expected     *big.Int
	}{
		{
			name:         "5% slippage (500 bips)",
			amount:       big.NewInt(1000),
			slippageBips: 500,
			expected:     big.NewInt(950),
		},
		{
			name:         "fractional result",
			amount:       big.NewInt(999),
			slippageBips: 100,
			expected:     big.NewInt(989),
		},
		{
			name:         "nil amount",
			amount:       nil,
			slippageBips: 100,
			expected:     big.NewInt(0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, 0, deductSlippage(tt.amount, tt.slippageBips).Cmp(tt.expected))
		})
	}
}

func TestMakeTxNativeIn(t *testing.T) {
	caller := &MockCaller{out: big.NewInt(2_000_000)}
	r := newTestRouter(caller)
	amount := big.NewInt(1e18)

	out, tx, err := r.MakeTx(context.Background(), Native, usdc, recipient, amount)
	require.NoError(t, err)
	require.Equal(t, "2000000", out.String())
	require.Equal(t, []common.Address{WrappedMatic, usdc}, caller.path)

	require.Equal(t, QuickSwapRouter, tx.To)
	require.Equal(t, amount, tx.Value)

	method, err := routerABI.MethodById(tx.Data[:4])
	require.NoError(t, err)
	require.Equal(t, "swapExactETHForTokens", method.Name)

	args, err := method.Inputs.Unpack(tx.Data[4:])
	require.NoError(t, err)
	require.Equal(t, "1980000", args[0].(*big.Int).String())
	require.Equal(t, recipient, args[2])
	require.Equal(t, int64(1_700_000_000)+int64(txDeadline/time.Second), args[3].(*big.Int).Int64())
}

func TestMakeTxTokenPaths(t *testing.T) {
	caller := &MockCaller{out: big.NewInt(5)}
	r := newTestRouter(caller)

	_, tx, err := r.MakeTx(context.Background(), usdc, Native, recipient, big.NewInt(10))
	require.NoError(t, err)
	require.Equal(t, 0, tx.Value.Sign())
	method, err := routerABI.MethodById(tx.Data[:4])
	require.NoError(t, err)
	require.Equal(t, "swapExactTokensForETH", method.Name)
	require.Equal(t, []common.Address{usdc, WrappedMatic}, caller.path)

	other := common.HexToAddress("0x2222222222222222222222222222222222222222")
	_, tx, err = r.MakeTx(context.Background(), usdc, other, recipient, big.NewInt(10))
	require.NoError(t, err)
	method, err = routerABI.MethodById(tx.Data[:4])
	require.NoError(t, err)
	require.Equal(t, "swapExactTokensForTokens", method.Name)
}

func TestMakeTxErrors(t *testing.T) {
	r := newTestRouter(&MockCaller{err: errors.New("execution reverted")})

	_, _, err := r.MakeTx(context.Background(), Native, usdc, recipient, big.NewInt(1))
	require.ErrorContains(t, err, "failed to compute amount out")

	_, _, err = r.MakeTx(context.Background(), usdc, usdc, recipient, big.NewInt(1))
	require.ErrorContains(t, err, "same asset")

	_, _, err = r.MakeTx(context.Background(), Native, usdc, recipient, big.NewInt(0))
	require.ErrorContains(t, err, "invalid amount")
}
