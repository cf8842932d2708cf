package swap

import "errors"

var (
	// ErrAlreadyInitialized is returned by Init once the pool holds shares.
	ErrAlreadyInitialized = errors.New("swap: DEX already has liquidity")
	// ErrUninitialized is returned by trades and liquidity changes on an empty pool.
	ErrUninitialized = errors.New("swap: pool not initialized")
	// ErrInvalidReserves is returned by the pricing function when either reserve is zero.
	ErrInvalidReserves = errors.New("swap: INVALID_VALUE")
	// ErrZeroAmount is returned when an operation is given a zero amount.
	ErrZeroAmount = errors.New("swap: amount must be positive")
	// ErrNegativeAmount is returned when an amount is below zero.
	ErrNegativeAmount = errors.New("swap: amount must not be negative")
	// ErrInsufficientLiquidity covers draining trades and over-sized withdrawals.
	ErrInsufficientLiquidity = errors.New("swap: Insufficient liquidity")
	// ErrOverflow is returned when an intermediate value exceeds 256 bits.
	ErrOverflow = errors.New("swap: arithmetic overflow")
	// ErrUnknownAsset is returned by Price for assets the pool does not hold.
	ErrUnknownAsset = errors.New("swap: unknown asset")

	errNilState = errors.New("swap: state not configured")
	errNilBank  = errors.New("swap: bank not configured")
)
