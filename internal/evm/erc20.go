package evm

import (
	"bytes"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ecommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const erc20ABI = `[
	{"constant":false,"inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"type":"function"},
	{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function"}
]`

var erc20 = mustParseABI(erc20ABI)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(fmt.Sprintf("invalid erc20 abi: %v", err))
	}
	return parsed
}

// ApproveSelector is the 4-byte selector of approve(address,uint256).
var ApproveSelector = erc20.Methods["approve"].ID

func PackApprove(spender ecommon.Address, amount *big.Int) ([]byte, error) {
	data, err := erc20.Pack("approve", spender, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to pack approve: %w", err)
	}
	return data, nil
}

func UnpackApprove(data []byte) (ecommon.Address, *big.Int, error) {
	if len(data) < 4 || !bytes.Equal(data[:4], ApproveSelector) {
		return ecommon.Address{}, nil, fmt.Errorf("not an approve call")
	}

	args, err := erc20.Methods["approve"].Inputs.Unpack(data[4:])
	if err != nil {
		return ecommon.Address{}, nil, fmt.Errorf("failed to unpack approve: %w", err)
	}
	spender, ok := args[0].(ecommon.Address)
	if !ok {
		return ecommon.Address{}, nil, fmt.Errorf("unexpected spender type %T", args[0])
	}
	amount, ok := args[1].(*big.Int)
	if !ok {
		return ecommon.Address{}, nil, fmt.Errorf("unexpected amount type %T", args[1])
	}
	return spender, amount, nil
}

// DescribeCall renders calldata for the review panel: decoded arguments for known ERC20 methods,
// the bare selector otherwise.
func DescribeCall(data []byte) string {
	if len(data) == 0 {
		return "native transfer"
	}
	if len(data) < 4 {
		return hexutil.Encode(data)
	}

	method, err := erc20.MethodById(data[:4])
	if err != nil {
		return "call " + hexutil.Encode(data[:4])
	}

	args, err := method.Inputs.Unpack(data[4:])
	if err != nil || len(args) != 2 {
		return method.Name + "(?)"
	}
	return fmt.Sprintf("%s(%v, %v)", method.Name, args[0], args[1])
}
