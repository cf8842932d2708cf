package lending

import (
	"fmt"
	"strings"

	"soudefi/crypto"
)

// WithdrawCheck selects the post-condition applied to collateral withdrawals.
type WithdrawCheck string

const (
	// WithdrawCheckBalance only requires the withdrawn amount to be deposited.
	WithdrawCheckBalance WithdrawCheck = "balance"
	// WithdrawCheckRatio additionally requires the remaining collateral to
	// cover the outstanding debt at the collateral ratio.
	WithdrawCheckRatio WithdrawCheck = "ratio"
)

const (
	DefaultCollateralRatioBps = 15_000
	DefaultBaseRateBps        = 500
	DefaultBorrowRateBps      = 500
	DefaultLiquidatorShareBps = 10_000
)

// Params fixes the behaviour of a lending deployment. It is immutable once the
// engine is constructed.
type Params struct {
	BaseAsset          string
	CollateralAsset    string
	CollateralRatioBps uint64
	BaseRateBps        uint64
	BorrowRateBps      uint64
	// CollateralQuoteMultiplier converts the pool's native-currency quote into
	// base-asset units.
	CollateralQuoteMultiplier uint64
	WithdrawCheck             WithdrawCheck
	LiquidatorShareBps        uint64
	Treasury                  crypto.Address
	LiquidatorRepays          bool
}

// DefaultParams returns the reference deployment parameters for the given
// asset pair.
func DefaultParams(baseAsset, collateralAsset string) Params {
	return Params{
		BaseAsset:                 baseAsset,
		CollateralAsset:           collateralAsset,
		CollateralRatioBps:        DefaultCollateralRatioBps,
		BaseRateBps:               DefaultBaseRateBps,
		BorrowRateBps:             DefaultBorrowRateBps,
		CollateralQuoteMultiplier: 1,
		WithdrawCheck:             WithdrawCheckBalance,
		LiquidatorShareBps:        DefaultLiquidatorShareBps,
	}
}

// Validate checks the parameters for internal consistency.
func (p Params) Validate() error {
	if strings.TrimSpace(p.BaseAsset) == "" || strings.TrimSpace(p.CollateralAsset) == "" {
		return fmt.Errorf("lending: base and collateral assets required")
	}
	if strings.EqualFold(strings.TrimSpace(p.BaseAsset), strings.TrimSpace(p.CollateralAsset)) {
		return fmt.Errorf("lending: base and collateral assets must differ")
	}
	if p.CollateralRatioBps < 10_000 {
		return fmt.Errorf("lending: collateral ratio must be at least 10000 bps, got %d", p.CollateralRatioBps)
	}
	if p.CollateralQuoteMultiplier == 0 {
		return fmt.Errorf("lending: collateral quote multiplier must be positive")
	}
	switch p.WithdrawCheck {
	case WithdrawCheckBalance, WithdrawCheckRatio:
	default:
		return fmt.Errorf("lending: unknown withdraw check %q", p.WithdrawCheck)
	}
	if p.LiquidatorShareBps > 10_000 {
		return fmt.Errorf("lending: liquidator share exceeds 100%%")
	}
	if p.LiquidatorShareBps < 10_000 && p.Treasury.IsZero() {
		return errTreasuryNotConfigured
	}
	return nil
}

// Config is the TOML rendering of Params.
type Config struct {
	BaseAsset                 string `toml:"BaseAsset"`
	CollateralAsset           string `toml:"CollateralAsset"`
	CollateralRatioBps        uint64 `toml:"CollateralRatioBps"`
	BaseRateBps               uint64 `toml:"BaseRateBps"`
	BorrowRateBps             uint64 `toml:"BorrowRateBps"`
	CollateralQuoteMultiplier uint64 `toml:"CollateralQuoteMultiplier"`
	WithdrawCheck             string `toml:"WithdrawCheck"`
	LiquidatorShareBps        uint64 `toml:"LiquidatorShareBps"`
	Treasury                  string `toml:"Treasury"`
	LiquidatorRepays          bool   `toml:"LiquidatorRepays"`
}

// Params converts the configuration into engine parameters, filling unset
// fields with defaults.
func (c Config) Params() (Params, error) {
	params := DefaultParams(c.BaseAsset, c.CollateralAsset)
	if c.CollateralRatioBps != 0 {
		params.CollateralRatioBps = c.CollateralRatioBps
	}
	params.BaseRateBps = c.BaseRateBps
	params.BorrowRateBps = c.BorrowRateBps
	if c.CollateralQuoteMultiplier != 0 {
		params.CollateralQuoteMultiplier = c.CollateralQuoteMultiplier
	}
	if trimmed := strings.ToLower(strings.TrimSpace(c.WithdrawCheck)); trimmed != "" {
		params.WithdrawCheck = WithdrawCheck(trimmed)
	}
	if c.LiquidatorShareBps != 0 {
		params.LiquidatorShareBps = c.LiquidatorShareBps
	}
	if trimmed := strings.TrimSpace(c.Treasury); trimmed != "" {
		addr, err := crypto.DecodeAddress(trimmed)
		if err != nil {
			return Params{}, fmt.Errorf("lending: treasury: %w", err)
		}
		params.Treasury = addr
	}
	params.LiquidatorRepays = c.LiquidatorRepays
	return params, params.Validate()
}
