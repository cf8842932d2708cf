package events

import (
	"math/big"

	"soudefi/core/types"
	"soudefi/crypto"
)

const (
	// TypeSwapInitialized is emitted once when the pool receives its first
	// liquidity.
	TypeSwapInitialized = "swap.initialized"
	// TypeSwapTrade is emitted for every native<->token trade against the pool.
	TypeSwapTrade = "swap.trade"
	// TypeSwapLiquidityAdded is emitted when a provider mints pool shares.
	TypeSwapLiquidityAdded = "swap.liquidity_added"
	// TypeSwapLiquidityRemoved is emitted when a provider burns pool shares.
	TypeSwapLiquidityRemoved = "swap.liquidity_removed"
)

type SwapInitialized struct {
	Provider     crypto.Address
	NativeAmount *big.Int
	TokenAmount  *big.Int
	Shares       *big.Int
}

func (SwapInitialized) EventType() string { return TypeSwapInitialized }

func (e SwapInitialized) Event() *types.Event {
	return &types.Event{
		Type: TypeSwapInitialized,
		Attributes: map[string]string{
			"provider":     formatAddress(e.Provider),
			"nativeAmount": formatAmount(e.NativeAmount),
			"tokenAmount":  formatAmount(e.TokenAmount),
			"shares":       formatAmount(e.Shares),
		},
	}
}

// SwapTrade records a single trade. AssetIn/AssetOut carry the asset ids so
// both directions share one event type.
type SwapTrade struct {
	Trader    crypto.Address
	AssetIn   string
	AmountIn  *big.Int
	AssetOut  string
	AmountOut *big.Int
}

func (SwapTrade) EventType() string { return TypeSwapTrade }

func (e SwapTrade) Event() *types.Event {
	return &types.Event{
		Type: TypeSwapTrade,
		Attributes: map[string]string{
			"trader":    formatAddress(e.Trader),
			"assetIn":   normalizeAsset(e.AssetIn),
			"amountIn":  formatAmount(e.AmountIn),
			"assetOut":  normalizeAsset(e.AssetOut),
			"amountOut": formatAmount(e.AmountOut),
		},
	}
}

type SwapLiquidityAdded struct {
	Provider     crypto.Address
	NativeAmount *big.Int
	TokenAmount  *big.Int
	Shares       *big.Int
}

func (SwapLiquidityAdded) EventType() string { return TypeSwapLiquidityAdded }

func (e SwapLiquidityAdded) Event() *types.Event {
	return &types.Event{
		Type: TypeSwapLiquidityAdded,
		Attributes: map[string]string{
			"provider":     formatAddress(e.Provider),
			"nativeAmount": formatAmount(e.NativeAmount),
			"tokenAmount":  formatAmount(e.TokenAmount),
			"shares":       formatAmount(e.Shares),
		},
	}
}

type SwapLiquidityRemoved struct {
	Provider     crypto.Address
	NativeAmount *big.Int
	TokenAmount  *big.Int
	Shares       *big.Int
}

func (SwapLiquidityRemoved) EventType() string { return TypeSwapLiquidityRemoved }

func (e SwapLiquidityRemoved) Event() *types.Event {
	return &types.Event{
		Type: TypeSwapLiquidityRemoved,
		Attributes: map[string]string{
			"provider":     formatAddress(e.Provider),
			"nativeAmount": formatAmount(e.NativeAmount),
			"tokenAmount":  formatAmount(e.TokenAmount),
			"shares":       formatAmount(e.Shares),
		},
	}
}
