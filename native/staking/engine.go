package staking

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
	ErrZeroAmount          = errors.New("staking: amount must be positive")
	ErrNegativeAmount      = errors.New("staking: amount must not be negative")
	ErrInsufficientBalance = errors.New("staking: Insufficient balance")
	ErrNoActiveDeposit     = errors.New("staking: No active deposit")
	ErrVaultUnderfunded    = errors.New("staking: vault cannot cover interest")

	errNilState = errors.New("staking: state not configured")
	errNilBank  = errors.New("staking: bank not configured")
)

// DefaultRateBps is the 5% simple annual rate of the reference vault.
const DefaultRateBps = 500

const moduleName = "staking"

// Deposit is a staked position. Interest accrues on Principal since
// LastAccrual and is folded in on every further deposit.
type Deposit struct {
	Principal   *big.Int
	LastAccrual uint64
}

type engineState interface {
	StakingDeposit(addr crypto.Address) (*Deposit, error)
	PutStakingDeposit(addr crypto.Address, deposit *Deposit) error
}

// Bank is the asset custody surface used by the vault.
type Bank interface {
	Balance(asset string, addr crypto.Address) (*big.Int, error)
	Transfer(asset string, from, to crypto.Address, amount *big.Int) error
	TransferFrom(asset string, owner, spender, to crypto.Address, amount *big.Int) error
}

// Engine is a single-asset staking vault paying simple interest.
type Engine struct {
	state         engineState
	bank          Bank
	emitter       events.Emitter
	pauses        nativecommon.PauseView
	moduleAddress crypto.Address
	asset         string
	rateBps       uint64
	now           uint64
}

func NewEngine(moduleAddr crypto.Address, asset string, rateBps uint64) *Engine {
	return &Engine{
		moduleAddress: moduleAddr,
		asset:         bank.NormalizeAsset(asset),
		rateBps:       rateBps,
		emitter:       events.NoopEmitter{},
	}
}

func (e *Engine) SetState(state engineState) { e.state = state }

func (e *Engine) SetBank(b Bank) { e.bank = b }

func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

func (e *Engine) SetNow(ts uint64) { e.now = ts }

func (e *Engine) Asset() string { return e.asset }

func (e *Engine) ModuleAddress() crypto.Address { return e.moduleAddress }

func (e *Engine) ready(mutating bool) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if mutating {
		if e.bank == nil {
			return errNilBank
		}
		return nativecommon.Guard(e.pauses, moduleName)
	}
	return nil
}

func (e *Engine) load(addr crypto.Address) (*Deposit, error) {
	deposit, err := e.state.StakingDeposit(addr)
	if err != nil {
		return nil, err
	}
	if deposit == nil {
		deposit = &Deposit{}
	}
	if deposit.Principal == nil {
		deposit.Principal = big.NewInt(0)
	}
	return deposit, nil
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

// Deposit stakes amount, compounding any pending interest into the principal.
func (e *Engine) Deposit(caller crypto.Address, amount *big.Int) error {
	if err := e.ready(true); err != nil {
		return err
	}
	if err := checkAmount(amount); err != nil {
		return err
	}
	balance, err := e.bank.Balance(e.asset, caller)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s < %s", ErrInsufficientBalance, balance, amount)
	}
	deposit, err := e.load(caller)
	if err != nil {
		return err
	}
	compounded := interest.Interest(deposit.Principal, e.rateBps, deposit.LastAccrual, e.now)

	if err := e.bank.TransferFrom(e.asset, caller, e.moduleAddress, e.moduleAddress, amount); err != nil {
		return err
	}
	deposit.Principal = new(big.Int).Add(deposit.Principal, compounded)
	deposit.Principal.Add(deposit.Principal, amount)
	deposit.LastAccrual = e.now
	if err := e.state.PutStakingDeposit(caller, deposit); err != nil {
		return err
	}
	e.emitter.Emit(events.StakingDeposit{
		Account:    caller,
		Amount:     new(big.Int).Set(amount),
		Compounded: compounded,
		Timestamp:  e.now,
	})
	return nil
}

// Withdraw pays out amount of principal plus all interest accrued on the
// position. amount may not exceed the stored principal.
func (e *Engine) Withdraw(caller crypto.Address, amount *big.Int) (*big.Int, error) {
	if err := e.ready(true); err != nil {
		return nil, err
	}
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	deposit, err := e.load(caller)
	if err != nil {
		return nil, err
	}
	if deposit.Principal.Sign() == 0 {
		return nil, ErrNoActiveDeposit
	}
	if amount.Cmp(deposit.Principal) > 0 {
		return nil, ErrInsufficientBalance
	}
	earned := interest.Interest(deposit.Principal, e.rateBps, deposit.LastAccrual, e.now)
	payout := new(big.Int).Add(amount, earned)
	vault, err := e.bank.Balance(e.asset, e.moduleAddress)
	if err != nil {
		return nil, err
	}
	if vault.Cmp(payout) < 0 {
		return nil, fmt.Errorf("%w: vault %s < payout %s", ErrVaultUnderfunded, vault, payout)
	}

	if err := e.bank.Transfer(e.asset, e.moduleAddress, caller, payout); err != nil {
		return nil, err
	}
	deposit.Principal = new(big.Int).Sub(deposit.Principal, amount)
	deposit.LastAccrual = e.now
	if err := e.state.PutStakingDeposit(caller, deposit); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.StakingWithdraw{
		Account:   caller,
		Amount:    new(big.Int).Set(amount),
		Interest:  earned,
		Timestamp: e.now,
	})
	return payout, nil
}

// CalculateInterest returns the interest pending on addr's position.
func (e *Engine) CalculateInterest(addr crypto.Address) (*big.Int, error) {
	if err := e.ready(false); err != nil {
		return nil, err
	}
	deposit, err := e.load(addr)
	if err != nil {
		return nil, err
	}
	return interest.Interest(deposit.Principal, e.rateBps, deposit.LastAccrual, e.now), nil
}

// Balance returns principal plus pending interest.
func (e *Engine) Balance(addr crypto.Address) (*big.Int, error) {
	if err := e.ready(false); err != nil {
		return nil, err
	}
	deposit, err := e.load(addr)
	if err != nil {
		return nil, err
	}
	return interest.Accrue(deposit.Principal, e.rateBps, deposit.LastAccrual, e.now), nil
}

// Position returns the stored deposit without projecting interest.
func (e *Engine) Position(addr crypto.Address) (*Deposit, error) {
	if err := e.ready(false); err != nil {
		return nil, err
	}
	return e.load(addr)
}
