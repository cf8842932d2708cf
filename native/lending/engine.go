package lending

import (
	"errors"
	"fmt"
	"math/big"

	"soudefi/core/events"
	"soudefi/core/interest"
	"soudefi/crypto"
	"soudefi/native/bank"
	nativecommon "soudefi/native/common"
)

var (
	ErrZeroAmount                    = errors.New("lending engine: amount must be positive")
	ErrNegativeAmount                = errors.New("lending engine: amount must not be negative")
	ErrInsufficientBalance           = errors.New("lending engine: insufficient balance")
	ErrInsufficientDeposit           = errors.New("lending engine: insufficient deposit")
	ErrInsufficientCollateralBalance = errors.New("lending engine: insufficient collateral balance")
	ErrInsufficientCollateral        = errors.New("lending engine: insufficient collateral")
	ErrInsufficientLiquidity         = errors.New("lending engine: Insufficient liquidity")
	ErrNoActiveBorrow                = errors.New("lending engine: No active borrow")
	ErrRepayExceedsDebt              = errors.New("lending engine: Repay amount exceeds debt")
	ErrSufficientCollateral          = errors.New("lending engine: User's collateral ratio is sufficient")

	errNilState              = errors.New("lending engine: state not configured")
	errNilBank               = errors.New("lending engine: bank not configured")
	errNilPrices             = errors.New("lending engine: price source not configured")
	errTreasuryNotConfigured = errors.New("lending engine: treasury required when liquidator share is below 100%")
)

var basisPoints = big.NewInt(10_000)

const moduleName = "lending"

// PriceSource quotes amountIn of asset in the counter asset of the pool that
// backs it. The swap engine's spot price satisfies it, which means collateral
// valuation follows the instantaneous reserve ratio and can be moved by a
// large trade. A hardened deployment should inject a manipulation-resistant
// source instead.
type PriceSource interface {
	Price(asset string, amountIn *big.Int) (*big.Int, error)
}

type engineState interface {
	LendingAccount(addr crypto.Address) (*UserAccount, error)
	PutLendingAccount(account *UserAccount) error
	LendingAccounts() ([]crypto.Address, error)
}

// Bank is the asset custody surface used to move base and collateral.
type Bank interface {
	Balance(asset string, addr crypto.Address) (*big.Int, error)
	Transfer(asset string, from, to crypto.Address, amount *big.Int) error
	TransferFrom(asset string, owner, spender, to crypto.Address, amount *big.Int) error
}

// Engine orchestrates the primary state transitions for the lending module.
type Engine struct {
	state         engineState
	bank          Bank
	prices        PriceSource
	emitter       events.Emitter
	pauses        nativecommon.PauseView
	moduleAddress crypto.Address
	params        Params
	now           uint64
}

// NewEngine constructs a lending engine whose vault is moduleAddr. Asset ids
// in params are normalised.
func NewEngine(moduleAddr crypto.Address, params Params, prices PriceSource) *Engine {
	params.BaseAsset = bank.NormalizeAsset(params.BaseAsset)
	params.CollateralAsset = bank.NormalizeAsset(params.CollateralAsset)
	if params.CollateralQuoteMultiplier == 0 {
		params.CollateralQuoteMultiplier = 1
	}
	if params.WithdrawCheck == "" {
		params.WithdrawCheck = WithdrawCheckBalance
	}
	return &Engine{
		moduleAddress: moduleAddr,
		params:        params,
		prices:        prices,
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

// SetNow records the unix timestamp used when computing accrual deltas.
func (e *Engine) SetNow(ts uint64) {
	if e == nil {
		return
	}
	e.now = ts
}

// Params returns the engine parameters.
func (e *Engine) Params() Params { return e.params }

// ModuleAddress returns the vault account.
func (e *Engine) ModuleAddress() crypto.Address { return e.moduleAddress }

func (e *Engine) ready(mutating bool) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.prices == nil {
		return errNilPrices
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

func checkAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return ErrZeroAmount
	}
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	return nil
}

// accrue folds interest earned since LastAccrual into the account.
func (e *Engine) accrue(account *UserAccount) {
	account.ensure()
	if e.now <= account.LastAccrual {
		return
	}
	account.DepositedBase = interest.Accrue(account.DepositedBase, e.params.BaseRateBps, account.LastAccrual, e.now)
	account.BorrowedBase = interest.Accrue(account.BorrowedBase, e.params.BorrowRateBps, account.LastAccrual, e.now)
	account.LastAccrual = e.now
}

func (e *Engine) loadAccount(addr crypto.Address) (*UserAccount, error) {
	account, err := e.state.LendingAccount(addr)
	if err != nil {
		return nil, err
	}
	if account == nil {
		account = NewUserAccount(addr)
	}
	account.Address = addr
	e.accrue(account)
	return account, nil
}

func (e *Engine) requireBalance(asset string, addr crypto.Address, amount *big.Int, sentinel error) error {
	balance, err := e.bank.Balance(asset, addr)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s balance %s < %s", sentinel, asset, balance, amount)
	}
	return nil
}

func (e *Engine) emitMovement(kind string, account crypto.Address, asset string, amount *big.Int) {
	e.emitter.Emit(events.LendingMovement{
		Kind:    kind,
		Account: account,
		Asset:   asset,
		Amount:  new(big.Int).Set(amount),
	})
}

// CollateralValue prices amount of the collateral asset in base units through
// the injected price source.
func (e *Engine) CollateralValue(amount *big.Int) (*big.Int, error) {
	if e == nil || e.prices == nil {
		return nil, errNilPrices
	}
	if amount == nil || amount.Sign() == 0 {
		return big.NewInt(0), nil
	}
	if amount.Sign() < 0 {
		return nil, ErrNegativeAmount
	}
	quote, err := e.prices.Price(e.params.CollateralAsset, amount)
	if err != nil {
		return nil, err
	}
	return quote.Mul(quote, new(big.Int).SetUint64(e.params.CollateralQuoteMultiplier)), nil
}

// covers reports whether value*10_000 >= debt*CollateralRatioBps.
func (e *Engine) covers(value, debt *big.Int) bool {
	lhs := new(big.Int).Mul(value, basisPoints)
	rhs := new(big.Int).Mul(debt, new(big.Int).SetUint64(e.params.CollateralRatioBps))
	return lhs.Cmp(rhs) >= 0
}

// DepositBase moves amount of the base asset from the caller into the vault.
func (e *Engine) DepositBase(caller crypto.Address, amount *big.Int) error {
	if err := e.ready(true); err != nil {
		return err
	}
	if err := checkAmount(amount); err != nil {
		return err
	}
	account, err := e.loadAccount(caller)
	if err != nil {
		return err
	}
	if err := e.requireBalance(e.params.BaseAsset, caller, amount, ErrInsufficientBalance); err != nil {
		return err
	}
	if err := e.bank.TransferFrom(e.params.BaseAsset, caller, e.moduleAddress, e.moduleAddress, amount); err != nil {
		return err
	}
	account.DepositedBase.Add(account.DepositedBase, amount)
	if err := e.state.PutLendingAccount(account); err != nil {
		return err
	}
	e.emitMovement(events.TypeLendingDepositBase, caller, e.params.BaseAsset, amount)
	return nil
}

// WithdrawBase returns amount of previously deposited base to the caller.
func (e *Engine) WithdrawBase(caller crypto.Address, amount *big.Int) error {
	if err := e.ready(true); err != nil {
		return err
	}
	if err := checkAmount(amount); err != nil {
		return err
	}
	account, err := e.loadAccount(caller)
	if err != nil {
		return err
	}
	if amount.Cmp(account.DepositedBase) > 0 {
		return ErrInsufficientDeposit
	}
	if err := e.requireBalance(e.params.BaseAsset, e.moduleAddress, amount, ErrInsufficientLiquidity); err != nil {
		return err
	}
	if err := e.bank.Transfer(e.params.BaseAsset, e.moduleAddress, caller, amount); err != nil {
		return err
	}
	account.DepositedBase.Sub(account.DepositedBase, amount)
	if err := e.state.PutLendingAccount(account); err != nil {
		return err
	}
	e.emitMovement(events.TypeLendingWithdrawBase, caller, e.params.BaseAsset, amount)
	return nil
}

// DepositCollateral moves amount of the collateral asset into the vault.
func (e *Engine) DepositCollateral(caller crypto.Address, amount *big.Int) error {
	if err := e.ready(true); err != nil {
		return err
	}
	if err := checkAmount(amount); err != nil {
		return err
	}
	account, err := e.loadAccount(caller)
	if err != nil {
		return err
	}
	if err := e.requireBalance(e.params.CollateralAsset, caller, amount, ErrInsufficientBalance); err != nil {
		return err
	}
	if err := e.bank.TransferFrom(e.params.CollateralAsset, caller, e.moduleAddress, e.moduleAddress, amount); err != nil {
		return err
	}
	account.DepositedCollateral.Add(account.DepositedCollateral, amount)
	if err := e.state.PutLendingAccount(account); err != nil {
		return err
	}
	e.emitMovement(events.TypeLendingDepositCollateral, caller, e.params.CollateralAsset, amount)
	return nil
}

// WithdrawCollateral returns amount of deposited collateral. Under the ratio
// policy the remaining collateral must still cover the debt.
func (e *Engine) WithdrawCollateral(caller crypto.Address, amount *big.Int) error {
	if err := e.ready(true); err != nil {
		return err
	}
	if err := checkAmount(amount); err != nil {
		return err
	}
	account, err := e.loadAccount(caller)
	if err != nil {
		return err
	}
	if amount.Cmp(account.DepositedCollateral) > 0 {
		return ErrInsufficientCollateralBalance
	}
	remaining := new(big.Int).Sub(account.DepositedCollateral, amount)
	if e.params.WithdrawCheck == WithdrawCheckRatio && account.BorrowedBase.Sign() > 0 {
		value, err := e.CollateralValue(remaining)
		if err != nil {
			return err
		}
		if !e.covers(value, account.BorrowedBase) {
			return ErrInsufficientCollateral
		}
	}
	if err := e.bank.Transfer(e.params.CollateralAsset, e.moduleAddress, caller, amount); err != nil {
		return err
	}
	account.DepositedCollateral = remaining
	if err := e.state.PutLendingAccount(account); err != nil {
		return err
	}
	e.emitMovement(events.TypeLendingWithdrawCollateral, caller, e.params.CollateralAsset, amount)
	return nil
}

// BorrowBase lends amount of base to the caller against their collateral. It
// succeeds iff (borrowed+amount)*ratio <= collateralValue*10_000.
func (e *Engine) BorrowBase(caller crypto.Address, amount *big.Int) error {
	if err := e.ready(true); err != nil {
		return err
	}
	if err := checkAmount(amount); err != nil {
		return err
	}
	account, err := e.loadAccount(caller)
	if err != nil {
		return err
	}
	value, err := e.CollateralValue(account.DepositedCollateral)
	if err != nil {
		return err
	}
	newDebt := new(big.Int).Add(account.BorrowedBase, amount)
	if !e.covers(value, newDebt) {
		return ErrInsufficientCollateral
	}
	if err := e.requireBalance(e.params.BaseAsset, e.moduleAddress, amount, ErrInsufficientLiquidity); err != nil {
		return err
	}
	if err := e.bank.Transfer(e.params.BaseAsset, e.moduleAddress, caller, amount); err != nil {
		return err
	}
	account.BorrowedBase = newDebt
	if err := e.state.PutLendingAccount(account); err != nil {
		return err
	}
	e.emitMovement(events.TypeLendingBorrow, caller, e.params.BaseAsset, amount)
	return nil
}

// RepayBase pulls amount of base from the caller against their debt.
func (e *Engine) RepayBase(caller crypto.Address, amount *big.Int) error {
	if err := e.ready(true); err != nil {
		return err
	}
	if err := checkAmount(amount); err != nil {
		return err
	}
	account, err := e.loadAccount(caller)
	if err != nil {
		return err
	}
	if account.BorrowedBase.Sign() == 0 {
		return ErrNoActiveBorrow
	}
	if amount.Cmp(account.BorrowedBase) > 0 {
		return ErrRepayExceedsDebt
	}
	if err := e.requireBalance(e.params.BaseAsset, caller, amount, ErrInsufficientBalance); err != nil {
		return err
	}
	if err := e.bank.TransferFrom(e.params.BaseAsset, caller, e.moduleAddress, e.moduleAddress, amount); err != nil {
		return err
	}
	account.BorrowedBase.Sub(account.BorrowedBase, amount)
	if err := e.state.PutLendingAccount(account); err != nil {
		return err
	}
	e.emitMovement(events.TypeLendingRepay, caller, e.params.BaseAsset, amount)
	return nil
}

// Liquidate closes an under-collateralised position. All of the user's
// collateral is seized and their debt is cancelled; the seized collateral is
// split between the liquidator and the treasury. It returns the debt cleared
// and the collateral seized.
func (e *Engine) Liquidate(liquidator, user crypto.Address) (*big.Int, *big.Int, error) {
	if err := e.ready(true); err != nil {
		return nil, nil, err
	}
	account, err := e.loadAccount(user)
	if err != nil {
		return nil, nil, err
	}
	value, err := e.CollateralValue(account.DepositedCollateral)
	if err != nil {
		return nil, nil, err
	}
	if e.covers(value, account.BorrowedBase) {
		return nil, nil, ErrSufficientCollateral
	}
	debt := new(big.Int).Set(account.BorrowedBase)
	seized := new(big.Int).Set(account.DepositedCollateral)
	liquidatorShare := new(big.Int).Mul(seized, new(big.Int).SetUint64(e.params.LiquidatorShareBps))
	liquidatorShare.Quo(liquidatorShare, basisPoints)
	treasuryShare := new(big.Int).Sub(seized, liquidatorShare)
	if treasuryShare.Sign() > 0 && e.params.Treasury.IsZero() {
		return nil, nil, errTreasuryNotConfigured
	}
	if e.params.LiquidatorRepays {
		if err := e.requireBalance(e.params.BaseAsset, liquidator, debt, ErrInsufficientBalance); err != nil {
			return nil, nil, err
		}
		if err := e.bank.TransferFrom(e.params.BaseAsset, liquidator, e.moduleAddress, e.moduleAddress, debt); err != nil {
			return nil, nil, err
		}
	}
	if err := e.bank.Transfer(e.params.CollateralAsset, e.moduleAddress, liquidator, liquidatorShare); err != nil {
		return nil, nil, err
	}
	if treasuryShare.Sign() > 0 {
		if err := e.bank.Transfer(e.params.CollateralAsset, e.moduleAddress, e.params.Treasury, treasuryShare); err != nil {
			return nil, nil, err
		}
	}
	account.DepositedCollateral = big.NewInt(0)
	account.BorrowedBase = big.NewInt(0)
	if err := e.state.PutLendingAccount(account); err != nil {
		return nil, nil, err
	}
	e.emitter.Emit(events.LendingLiquidated{
		Liquidator:      liquidator,
		Account:         user,
		DebtCleared:     new(big.Int).Set(debt),
		Seized:          new(big.Int).Set(seized),
		LiquidatorShare: liquidatorShare,
		TreasuryShare:   treasuryShare,
		CollateralValue: value,
	})
	return debt, seized, nil
}

// Account returns the account with interest projected to the engine clock.
// Nothing is persisted.
func (e *Engine) Account(addr crypto.Address) (*UserAccount, error) {
	if err := e.ready(false); err != nil {
		return nil, err
	}
	account, err := e.loadAccount(addr)
	if err != nil {
		return nil, err
	}
	return account.Clone(), nil
}

// Accounts lists every address with a lending record.
func (e *Engine) Accounts() ([]crypto.Address, error) {
	if err := e.ready(false); err != nil {
		return nil, err
	}
	return e.state.LendingAccounts()
}

// Position values the account at the current pool price.
func (e *Engine) Position(addr crypto.Address) (*Position, error) {
	account, err := e.Account(addr)
	if err != nil {
		return nil, err
	}
	value, err := e.CollateralValue(account.DepositedCollateral)
	if err != nil {
		return nil, err
	}
	pos := &Position{Account: account, CollateralValue: value}
	if account.BorrowedBase.Sign() > 0 {
		health := new(big.Int).Mul(value, basisPoints)
		pos.HealthBps = health.Quo(health, account.BorrowedBase)
		pos.Liquidatable = !e.covers(value, account.BorrowedBase)
	}
	return pos, nil
}

// HealthBps returns collateral value over debt in basis points, or nil when
// the account has no debt.
func (e *Engine) HealthBps(addr crypto.Address) (*big.Int, error) {
	pos, err := e.Position(addr)
	if err != nil {
		return nil, err
	}
	return pos.HealthBps, nil
}
