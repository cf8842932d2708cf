package types

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Decimals is the number of implied fractional digits carried by every asset.
const Decimals = 18

var (
	errNegativeAmount  = errors.New("amount must not be negative")
	errTooManyDecimals = fmt.Errorf("amount has more than %d fractional digits", Decimals)
)

// ParseUnits converts a human readable decimal string ("1.5") into base units
// (1.5 * 10^18). Raw integer strings prefixed with "wei:" are taken verbatim.
func ParseUnits(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, errors.New("amount required")
	}
	if raw, ok := strings.CutPrefix(trimmed, "wei:"); ok {
		out, ok := new(big.Int).SetString(raw, 10)
		if !ok {
			return nil, fmt.Errorf("invalid integer amount %q", raw)
		}
		if out.Sign() < 0 {
			return nil, errNegativeAmount
		}
		return out, nil
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", trimmed, err)
	}
	if d.IsNegative() {
		return nil, errNegativeAmount
	}
	if -d.Exponent() > Decimals {
		return nil, errTooManyDecimals
	}
	return d.Shift(Decimals).BigInt(), nil
}

// FormatUnits renders base units as a decimal string with trailing zeros
// trimmed.
func FormatUnits(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v, -Decimals).String()
}

// ParseAmount accepts either a base-10 integer string of base units or a JSON
// number encoded as a string. It is used on wire boundaries where amounts are
// transported in base units.
func ParseAmount(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	out, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", trimmed)
	}
	if out.Sign() < 0 {
		return nil, errNegativeAmount
	}
	return out, nil
}
