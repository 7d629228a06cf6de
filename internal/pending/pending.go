package pending

import (
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strconv"
	"strings"

	ecommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	ParamSwapTo         = "swap_to"
	ParamSwapData       = "swap_data"
	ParamSwapValue      = "swap_value"
	ParamApproveTo      = "approve_to"
	ParamApproveData    = "approve_data"
	ParamMode           = "mode"
	ParamUserID         = "user_id"
	ParamMarketQuestion = "market_question"

	ModeConnect = "connect"

	DefaultMarketQuestion = "Polymarket Bet"
)

var ErrNoTransactionData = errors.New("no transaction data")

// Tx is a prepared call the wallet is asked to send.
type Tx struct {
	To    ecommon.Address
	Data  []byte
	Value *big.Int
}

// ValueOrZero never returns nil.
func (t Tx) ValueOrZero() *big.Int {
	if t.Value == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(t.Value)
}

// Set is immutable once parsed. Approve is nil when the link carries no approve step.
type Set struct {
	Swap    Tx
	Approve *Tx
}

func (s *Set) HasApprove() bool {
	return s != nil && s.Approve != nil
}

// Count is the number of on-chain calls the set requires.
func (s *Set) Count() int {
	if s == nil {
		return 0
	}
	if s.Approve != nil {
		return 2
	}
	return 1
}

// Parse reads the transaction set from page query parameters. Both swap_to and swap_data must be
// present, otherwise ErrNoTransactionData is returned.
func Parse(q url.Values) (*Set, error) {
	swapTo := strings.TrimSpace(q.Get(ParamSwapTo))
	swapData := strings.TrimSpace(q.Get(ParamSwapData))
	if swapTo == "" || swapData == "" {
		return nil, ErrNoTransactionData
	}

	swap, err := parseTx(swapTo, swapData)
	if err != nil {
		return nil, fmt.Errorf("invalid swap: %w", err)
	}

	if v := strings.TrimSpace(q.Get(ParamSwapValue)); v != "" {
		value, ok := new(big.Int).SetString(v, 10)
		if !ok || value.Sign() < 0 {
			return nil, fmt.Errorf("invalid swap: value %q", v)
		}
		swap.Value = value
	}

	set := &Set{Swap: swap}

	approveTo := strings.TrimSpace(q.Get(ParamApproveTo))
	if approveTo != "" {
		approve, er := parseTx(approveTo, strings.TrimSpace(q.Get(ParamApproveData)))
		if er != nil {
			return nil, fmt.Errorf("invalid approve: %w", er)
		}
		set.Approve = &approve
	}

	return set, nil
}

func parseTx(to, data string) (Tx, error) {
	if !ecommon.IsHexAddress(to) {
		return Tx{}, fmt.Errorf("to %q is not an address", to)
	}

	var payload []byte
	if data != "" && data != "0x" {
		b, err := hexutil.Decode(data)
		if err != nil {
			return Tx{}, fmt.Errorf("data: %w", err)
		}
		payload = b
	}

	return Tx{
		To:    ecommon.HexToAddress(to),
		Data:  payload,
		Value: big.NewInt(0),
	}, nil
}

// Params are the non-transaction page parameters.
type Params struct {
	Mode           string
	UserID         *int64
	MarketQuestion string
}

func (p Params) ConnectOnly() bool {
	return p.Mode == ModeConnect
}

// ParseParams never fails: a user_id that is not an integer is treated as absent.
func ParseParams(q url.Values) Params {
	p := Params{
		Mode:           strings.TrimSpace(q.Get(ParamMode)),
		MarketQuestion: q.Get(ParamMarketQuestion),
	}
	if p.MarketQuestion == "" {
		p.MarketQuestion = DefaultMarketQuestion
	}
	if raw := strings.TrimSpace(q.Get(ParamUserID)); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			p.UserID = &id
		}
	}
	return p
}
