package util

import (
	"fmt"
	"math/big"
	"strings"
)

// ToBaseUnits converts a decimal amount into integer base units, e.g. "1.5" with 18 decimals is
// 1500000000000000000. Digits past the token's precision are truncated.
func ToBaseUnits(amount string, decimals int) (*big.Int, error) {
	if amount == "" {
		return nil, fmt.Errorf("amount cannot be empty")
	}

	digits, negative := strings.CutPrefix(amount, "-")
	whole, frac, _ := strings.Cut(digits, ".")
	if strings.Contains(frac, ".") || whole+frac == "" {
		return nil, fmt.Errorf("invalid amount format: %s", amount)
	}

	if len(frac) > decimals {
		frac = frac[:decimals]
	}
	frac += strings.Repeat("0", decimals-len(frac))

	combined := strings.TrimLeft(whole+frac, "0")
	if combined == "" {
		combined = "0"
	}

	result, ok := new(big.Int).SetString(combined, 10)
	if !ok || strings.ContainsAny(combined, "+-") {
		return nil, fmt.Errorf("invalid amount: %s", amount)
	}
	if negative {
		result.Neg(result)
	}
	return result, nil
}

// FromBaseUnits renders base units as a decimal string without trailing zeros.
func FromBaseUnits(amount *big.Int, decimals int) string {
	if amount == nil {
		return "0"
	}

	str := new(big.Int).Abs(amount).String()
	if len(str) <= decimals {
		str = strings.Repeat("0", decimals-len(str)+1) + str
	}

	split := len(str) - decimals
	result := str[:split]
	if frac := strings.TrimRight(str[split:], "0"); frac != "" {
		result += "." + frac
	}

	if amount.Sign() < 0 {
		result = "-" + result
	}
	return result
}
