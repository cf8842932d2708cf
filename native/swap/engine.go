package swap

import (
	"fmt"
	"math/big"
	"strings"

	"soudefi/core/events"
	"soudefi/crypto"
	"soudefi/native/bank"
	nativecommon "soudefi/native/common"
)

const moduleName = "swap"

type engineState interface {
	SwapPool() (*Pool, error)
	PutSwapPool(pool *Pool) error
	SwapShares(addr crypto.Address) (*big.Int, error)
	PutSwapShares(addr crypto.Address, shares *big.Int) error
	SwapProviders() ([]crypto.Address, error)
}

// Bank is the asset custody surface the pool moves funds through.
type Bank interface {
	Balance(asset string, addr crypto.Address) (*big.Int, error)
	Transfer(asset string, from, to crypto.Address, amount *big.Int) error
	TransferFrom(asset string, owner, spender, to crypto.Address, amount *big.Int) error
}

// Engine implements the constant-product pool. It holds no pool state of its
// own: every operation loads the Pool aggregate, validates, and writes it back.
type Engine struct {
	state         engineState
	bank          Bank
	emitter       events.Emitter
	pauses        nativecommon.PauseView
	moduleAddress crypto.Address
	tokenAsset    string
}

// NewEngine constructs a swap engine whose reserves are held by moduleAddr and
// whose non-native side is tokenAsset.
func NewEngine(moduleAddr crypto.Address, tokenAsset string) *Engine {
	return &Engine{
		moduleAddress: moduleAddr,
		tokenAsset:    bank.NormalizeAsset(tokenAsset),
		emitter:       events.NoopEmitter{},
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetBank wires the asset custody ledger.
func (e *Engine) SetBank(b Bank) { e.bank = b }

func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// ModuleAddress returns the account holding the pool reserves.
func (e *Engine) ModuleAddress() crypto.Address { return e.moduleAddress }

// TokenAsset returns the paired token identifier.
func (e *Engine) TokenAsset() string { return e.tokenAsset }

func (e *Engine) ready(mutating bool) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if mutating {
		if e.bank == nil {
			return errNilBank
		}
		if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) loadPool() (*Pool, error) {
	pool, err := e.state.SwapPool()
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return NewPool(), nil
	}
	pool.ensure()
	return pool, nil
}

func (e *Engine) loadActivePool() (*Pool, error) {
	pool, err := e.loadPool()
	if err != nil {
		return nil, err
	}
	if pool.Status() != StatusActive || pool.ReserveBase.Sign() == 0 || pool.ReserveToken.Sign() == 0 {
		return nil, ErrUninitialized
	}
	return pool, nil
}

func (e *Engine) requireBalance(asset string, addr crypto.Address, amount *big.Int) error {
	balance, err := e.bank.Balance(asset, addr)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s balance %s < %s", bank.ErrInsufficientBalance, asset, balance, amount)
	}
	return nil
}

func checkAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return ErrZeroAmount
	}
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	return nil
}

// Init seeds the pool. tokenAmount is pulled from the caller with the swap
// module as spender and nativeAmount is the value attached to the call.
func (e *Engine) Init(caller crypto.Address, tokenAmount, nativeAmount *big.Int) error {
	if err := e.ready(true); err != nil {
		return err
	}
	pool, err := e.loadPool()
	if err != nil {
		return err
	}
	if pool.TotalShares.Sign() != 0 {
		return ErrAlreadyInitialized
	}
	if err := checkAmount(tokenAmount); err != nil {
		return err
	}
	if err := checkAmount(nativeAmount); err != nil {
		return err
	}
	if _, err := toU256(tokenAmount); err != nil {
		return err
	}
	if _, err := toU256(nativeAmount); err != nil {
		return err
	}
	if err := e.requireBalance(bank.NativeAsset, caller, nativeAmount); err != nil {
		return err
	}

	if err := e.bank.TransferFrom(e.tokenAsset, caller, e.moduleAddress, e.moduleAddress, tokenAmount); err != nil {
		return err
	}
	if err := e.bank.Transfer(bank.NativeAsset, caller, e.moduleAddress, nativeAmount); err != nil {
		return err
	}
	pool.ReserveBase = new(big.Int).Set(nativeAmount)
	pool.ReserveToken = new(big.Int).Set(tokenAmount)
	pool.TotalShares = new(big.Int).Set(nativeAmount)
	if err := e.state.PutSwapPool(pool); err != nil {
		return err
	}
	if err := e.state.PutSwapShares(caller, new(big.Int).Set(nativeAmount)); err != nil {
		return err
	}
	e.emitter.Emit(events.SwapInitialized{
		Provider:     caller,
		NativeAmount: new(big.Int).Set(nativeAmount),
		TokenAmount:  new(big.Int).Set(tokenAmount),
		Shares:       new(big.Int).Set(nativeAmount),
	})
	return nil
}

// EthToToken sells nativeIn of the native currency for the paired token and
// returns the amount of token delivered to the caller.
func (e *Engine) EthToToken(caller crypto.Address, nativeIn *big.Int) (*big.Int, error) {
	if err := e.ready(true); err != nil {
		return nil, err
	}
	pool, err := e.loadActivePool()
	if err != nil {
		return nil, err
	}
	if err := checkAmount(nativeIn); err != nil {
		return nil, err
	}
	tokenOut, err := GetInputPrice(nativeIn, pool.ReserveBase, pool.ReserveToken)
	if err != nil {
		return nil, err
	}
	if tokenOut.Cmp(pool.ReserveToken) >= 0 {
		return nil, ErrInsufficientLiquidity
	}
	newBase, err := add256(pool.ReserveBase, nativeIn)
	if err != nil {
		return nil, err
	}
	if err := e.requireBalance(bank.NativeAsset, caller, nativeIn); err != nil {
		return nil, err
	}

	if err := e.bank.Transfer(bank.NativeAsset, caller, e.moduleAddress, nativeIn); err != nil {
		return nil, err
	}
	if err := e.bank.Transfer(e.tokenAsset, e.moduleAddress, caller, tokenOut); err != nil {
		return nil, err
	}
	pool.ReserveBase = newBase
	pool.ReserveToken = new(big.Int).Sub(pool.ReserveToken, tokenOut)
	if err := e.state.PutSwapPool(pool); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.SwapTrade{
		Trader:    caller,
		AssetIn:   bank.NativeAsset,
		AmountIn:  new(big.Int).Set(nativeIn),
		AssetOut:  e.tokenAsset,
		AmountOut: new(big.Int).Set(tokenOut),
	})
	return tokenOut, nil
}

// TokenToEth sells tokenIn of the paired token for the native currency. The
// token is pulled with the swap module as spender.
func (e *Engine) TokenToEth(caller crypto.Address, tokenIn *big.Int) (*big.Int, error) {
	if err := e.ready(true); err != nil {
		return nil, err
	}
	pool, err := e.loadActivePool()
	if err != nil {
		return nil, err
	}
	if err := checkAmount(tokenIn); err != nil {
		return nil, err
	}
	nativeOut, err := GetInputPrice(tokenIn, pool.ReserveToken, pool.ReserveBase)
	if err != nil {
		return nil, err
	}
	if nativeOut.Cmp(pool.ReserveBase) >= 0 {
		return nil, ErrInsufficientLiquidity
	}
	newToken, err := add256(pool.ReserveToken, tokenIn)
	if err != nil {
		return nil, err
	}

	if err := e.bank.TransferFrom(e.tokenAsset, caller, e.moduleAddress, e.moduleAddress, tokenIn); err != nil {
		return nil, err
	}
	if err := e.bank.Transfer(bank.NativeAsset, e.moduleAddress, caller, nativeOut); err != nil {
		return nil, err
	}
	pool.ReserveToken = newToken
	pool.ReserveBase = new(big.Int).Sub(pool.ReserveBase, nativeOut)
	if err := e.state.PutSwapPool(pool); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.SwapTrade{
		Trader:    caller,
		AssetIn:   e.tokenAsset,
		AmountIn:  new(big.Int).Set(tokenIn),
		AssetOut:  bank.NativeAsset,
		AmountOut: new(big.Int).Set(nativeOut),
	})
	return nativeOut, nil
}

// ProvideLiquidity deposits nativeIn plus the proportional token amount and
// mints shares to the caller. It returns the token pulled and shares minted.
func (e *Engine) ProvideLiquidity(caller crypto.Address, nativeIn *big.Int) (*big.Int, *big.Int, error) {
	if err := e.ready(true); err != nil {
		return nil, nil, err
	}
	pool, err := e.loadActivePool()
	if err != nil {
		return nil, nil, err
	}
	if err := checkAmount(nativeIn); err != nil {
		return nil, nil, err
	}
	tokenIn, err := mulDiv(nativeIn, pool.ReserveToken, pool.ReserveBase)
	if err != nil {
		return nil, nil, err
	}
	sharesIn, err := mulDiv(nativeIn, pool.TotalShares, pool.ReserveBase)
	if err != nil {
		return nil, nil, err
	}
	if sharesIn.Sign() == 0 {
		return nil, nil, ErrZeroAmount
	}
	newBase, err := add256(pool.ReserveBase, nativeIn)
	if err != nil {
		return nil, nil, err
	}
	newToken, err := add256(pool.ReserveToken, tokenIn)
	if err != nil {
		return nil, nil, err
	}
	newTotal, err := add256(pool.TotalShares, sharesIn)
	if err != nil {
		return nil, nil, err
	}
	shares, err := e.state.SwapShares(caller)
	if err != nil {
		return nil, nil, err
	}
	if err := e.requireBalance(bank.NativeAsset, caller, nativeIn); err != nil {
		return nil, nil, err
	}

	if err := e.bank.TransferFrom(e.tokenAsset, caller, e.moduleAddress, e.moduleAddress, tokenIn); err != nil {
		return nil, nil, err
	}
	if err := e.bank.Transfer(bank.NativeAsset, caller, e.moduleAddress, nativeIn); err != nil {
		return nil, nil, err
	}
	pool.ReserveBase = newBase
	pool.ReserveToken = newToken
	pool.TotalShares = newTotal
	if err := e.state.PutSwapPool(pool); err != nil {
		return nil, nil, err
	}
	if err := e.state.PutSwapShares(caller, new(big.Int).Add(shares, sharesIn)); err != nil {
		return nil, nil, err
	}
	e.emitter.Emit(events.SwapLiquidityAdded{
		Provider:     caller,
		NativeAmount: new(big.Int).Set(nativeIn),
		TokenAmount:  new(big.Int).Set(tokenIn),
		Shares:       new(big.Int).Set(sharesIn),
	})
	return tokenIn, sharesIn, nil
}

// WithdrawLiquidity burns sharesIn and pays the caller the proportional
// reserves. It returns the native and token amounts paid out. A withdrawal
// that would empty either reserve is rejected so the pool never leaves the
// active state.
func (e *Engine) WithdrawLiquidity(caller crypto.Address, sharesIn *big.Int) (*big.Int, *big.Int, error) {
	if err := e.ready(true); err != nil {
		return nil, nil, err
	}
	pool, err := e.loadActivePool()
	if err != nil {
		return nil, nil, err
	}
	if err := checkAmount(sharesIn); err != nil {
		return nil, nil, err
	}
	shares, err := e.state.SwapShares(caller)
	if err != nil {
		return nil, nil, err
	}
	if sharesIn.Cmp(shares) > 0 {
		return nil, nil, ErrInsufficientLiquidity
	}
	nativeOut, err := mulDiv(sharesIn, pool.ReserveBase, pool.TotalShares)
	if err != nil {
		return nil, nil, err
	}
	tokenOut, err := mulDiv(sharesIn, pool.ReserveToken, pool.TotalShares)
	if err != nil {
		return nil, nil, err
	}
	newBase := new(big.Int).Sub(pool.ReserveBase, nativeOut)
	newToken := new(big.Int).Sub(pool.ReserveToken, tokenOut)
	if newBase.Sign() == 0 || newToken.Sign() == 0 {
		return nil, nil, ErrInsufficientLiquidity
	}

	if err := e.bank.Transfer(bank.NativeAsset, e.moduleAddress, caller, nativeOut); err != nil {
		return nil, nil, err
	}
	if err := e.bank.Transfer(e.tokenAsset, e.moduleAddress, caller, tokenOut); err != nil {
		return nil, nil, err
	}
	pool.ReserveBase = newBase
	pool.ReserveToken = newToken
	pool.TotalShares = new(big.Int).Sub(pool.TotalShares, sharesIn)
	if err := e.state.PutSwapPool(pool); err != nil {
		return nil, nil, err
	}
	if err := e.state.PutSwapShares(caller, new(big.Int).Sub(shares, sharesIn)); err != nil {
		return nil, nil, err
	}
	e.emitter.Emit(events.SwapLiquidityRemoved{
		Provider:     caller,
		NativeAmount: new(big.Int).Set(nativeOut),
		TokenAmount:  new(big.Int).Set(tokenOut),
		Shares:       new(big.Int).Set(sharesIn),
	})
	return nativeOut, tokenOut, nil
}

// Pool returns a copy of the current pool aggregate.
func (e *Engine) Pool() (*Pool, error) {
	if err := e.ready(false); err != nil {
		return nil, err
	}
	return e.loadPool()
}

// Status reports whether the pool has been seeded.
func (e *Engine) Status() (Status, error) {
	pool, err := e.Pool()
	if err != nil {
		return StatusUninitialized, err
	}
	return pool.Status(), nil
}

// SharesOf returns the liquidity shares held by addr.
func (e *Engine) SharesOf(addr crypto.Address) (*big.Int, error) {
	if err := e.ready(false); err != nil {
		return nil, err
	}
	return e.state.SwapShares(addr)
}

// Providers lists every address that ever held shares, in first-mint order.
func (e *Engine) Providers() ([]crypto.Address, error) {
	if err := e.ready(false); err != nil {
		return nil, err
	}
	return e.state.SwapProviders()
}

// Price quotes amountIn of asset against the current reserves without
// touching state. Selling the paired token yields native currency and selling
// native yields the token.
//
// The quote is the instantaneous spot price of the pool and moves with every
// trade, so a large enough trade in the same block can skew it.
func (e *Engine) Price(asset string, amountIn *big.Int) (*big.Int, error) {
	if err := e.ready(false); err != nil {
		return nil, err
	}
	pool, err := e.loadPool()
	if err != nil {
		return nil, err
	}
	switch strings.ToUpper(strings.TrimSpace(asset)) {
	case e.tokenAsset:
		return GetInputPrice(amountIn, pool.ReserveToken, pool.ReserveBase)
	case bank.NativeAsset:
		return GetInputPrice(amountIn, pool.ReserveBase, pool.ReserveToken)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAsset, asset)
	}
}
