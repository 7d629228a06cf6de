package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"

	ecommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/vultisig/tx-signer/internal/evm"
	"github.com/vultisig/tx-signer/internal/pending"
	"github.com/vultisig/tx-signer/internal/uniswap"
	"github.com/vultisig/tx-signer/internal/util"
)

var (
	host       = flag.String("host", "http://localhost:8080", "signer server host")
	flatPreset = flag.String("preset", "", "preset to execute")

	swapTo    = flag.String("swap-to", "", "swap contract address")
	swapData  = flag.String("swap-data", "0x", "swap calldata")
	swapValue = flag.String("swap-value", "", "native amount sent with the swap, e.g. 1.5")

	approveToken    = flag.String("approve-token", "", "token to approve, empty for no approve step")
	approveSpender  = flag.String("approve-spender", "", "spender allowed to pull the token")
	approveAmount   = flag.String("approve-amount", "", "approve amount in token units")
	approveDecimals = flag.Int("approve-decimals", 6, "token decimals")

	userID   = flag.String("user-id", "", "bot user id for the testnet receipt")
	question = flag.String("question", "", "market question shown in the receipt")

	rpcURL    = flag.String("rpc", evm.Polygon.RPCURL, "polygon rpc used to quote swaps")
	buyToken  = flag.String("buy-token", "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359", "token bought by the quickswap preset")
	recipient = flag.String("recipient", "", "address receiving the swapped tokens")
)

var presets = map[string]func(context.Context) error{
	"link":      printLink,
	"quickswap": quickswapLink,
	"health":    health,
}

func main() {
	flag.Parse()

	if *flatPreset == "" {
		panic("preset is required")
	}
	preset, ok := presets[*flatPreset]
	if !ok {
		panic("unknown preset: " + *flatPreset)
	}

	ctx := context.Background()
	err := preset(ctx)
	if err != nil {
		panic(err)
	}
}

type linkParams struct {
	SwapTo          string
	SwapData        string
	SwapValue       string
	ApproveToken    string
	ApproveSpender  string
	ApproveAmount   string
	ApproveDecimals int
	UserID          string
	Question        string
}

// buildLink encodes a signing page URL. The approve calldata is packed here so the bot only needs
// the token, spender and amount.
func buildLink(base string, p linkParams) (string, error) {
	if !ecommon.IsHexAddress(p.SwapTo) {
		return "", fmt.Errorf("invalid swap-to address: %q", p.SwapTo)
	}

	q := url.Values{}
	q.Set(pending.ParamSwapTo, p.SwapTo)
	q.Set(pending.ParamSwapData, p.SwapData)

	if p.SwapValue != "" {
		wei, err := util.ToBaseUnits(p.SwapValue, evm.Polygon.Currency.Decimals)
		if err != nil {
			return "", fmt.Errorf("failed to parse swap-value: %w", err)
		}
		q.Set(pending.ParamSwapValue, wei.String())
	}

	if p.ApproveToken != "" {
		if !ecommon.IsHexAddress(p.ApproveToken) {
			return "", fmt.Errorf("invalid approve-token address: %q", p.ApproveToken)
		}
		if !ecommon.IsHexAddress(p.ApproveSpender) {
			return "", fmt.Errorf("invalid approve-spender address: %q", p.ApproveSpender)
		}
		amount, err := util.ToBaseUnits(p.ApproveAmount, p.ApproveDecimals)
		if err != nil {
			return "", fmt.Errorf("failed to parse approve-amount: %w", err)
		}
		data, err := evm.PackApprove(ecommon.HexToAddress(p.ApproveSpender), amount)
		if err != nil {
			return "", fmt.Errorf("failed to pack approve: %w", err)
		}
		q.Set(pending.ParamApproveTo, p.ApproveToken)
		q.Set(pending.ParamApproveData, hexutil.Encode(data))
	}

	if p.UserID != "" {
		q.Set(pending.ParamUserID, p.UserID)
	}
	if p.Question != "" {
		q.Set(pending.ParamMarketQuestion, p.Question)
	}

	return base + "/?" + q.Encode(), nil
}

func printLink(_ context.Context) error {
	link, err := buildLink(*host, linkParams{
		SwapTo:          *swapTo,
		SwapData:        *swapData,
		SwapValue:       *swapValue,
		ApproveToken:    *approveToken,
		ApproveSpender:  *approveSpender,
		ApproveAmount:   *approveAmount,
		ApproveDecimals: *approveDecimals,
		UserID:          *userID,
		Question:        *question,
	})
	if err != nil {
		return fmt.Errorf("failed to build link: %w", err)
	}
	fmt.Println(link)
	return nil
}

// quickswapLink quotes a MATIC to token swap on QuickSwap and prints a link that signs it. The
// approve flags are passed through unchanged.
func quickswapLink(ctx context.Context) error {
	if !ecommon.IsHexAddress(*recipient) {
		return fmt.Errorf("invalid recipient: %q", *recipient)
	}
	if !ecommon.IsHexAddress(*buyToken) {
		return fmt.Errorf("invalid buy-token: %q", *buyToken)
	}
	amount, err := util.ToBaseUnits(*swapValue, evm.Polygon.Currency.Decimals)
	if err != nil {
		return fmt.Errorf("failed to parse swap-value: %w", err)
	}

	client, err := ethclient.DialContext(ctx, *rpcURL)
	if err != nil {
		return fmt.Errorf("failed to connect to RPC: %w", err)
	}
	defer client.Close()

	router := uniswap.NewRouterV2(client, uniswap.QuickSwapRouter, uniswap.WrappedMatic)
	out, tx, err := router.MakeTx(ctx, uniswap.Native, ecommon.HexToAddress(*buyToken), ecommon.HexToAddress(*recipient), amount)
	if err != nil {
		return fmt.Errorf("failed to quote swap: %w", err)
	}

	link, err := buildLink(*host, linkParams{
		SwapTo:          tx.To.Hex(),
		SwapData:        hexutil.Encode(tx.Data),
		SwapValue:       *swapValue,
		ApproveToken:    *approveToken,
		ApproveSpender:  *approveSpender,
		ApproveAmount:   *approveAmount,
		ApproveDecimals: *approveDecimals,
		UserID:          *userID,
		Question:        *question,
	})
	if err != nil {
		return fmt.Errorf("failed to build link: %w", err)
	}
	fmt.Printf("expected out: %s\n%s\n", out, link)
	return nil
}

func health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, *host+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make http call: %w", err)
	}
	defer func() {
		_ = res.Body.Close()
	}()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var r map[string]string
	err = json.Unmarshal(body, &r)
	if err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	fmt.Printf("%d %+v\n", res.StatusCode, r)
	return nil
}
