package bank

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"soudefi/core/events"
	"soudefi/crypto"
)

// NativeAsset identifies the chain's native currency (the pool's "ETH" side).
const NativeAsset = "NATIVE"

var (
	ErrInsufficientBalance   = errors.New("bank: insufficient balance")
	ErrInsufficientAllowance = errors.New("bank: insufficient allowance")
	ErrInvalidAmount         = errors.New("bank: amount must not be negative")
	ErrAssetRequired         = errors.New("bank: asset required")
	errNilState              = errors.New("bank: state not configured")
)

// MaxAllowance is treated as an infinite approval and never decremented.
var MaxAllowance = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

type ledgerState interface {
	Balance(asset string, addr crypto.Address) (*big.Int, error)
	SetBalance(asset string, addr crypto.Address, amount *big.Int) error
	Allowance(asset string, owner, spender crypto.Address) (*big.Int, error)
	SetAllowance(asset string, owner, spender crypto.Address, amount *big.Int) error
}

// Ledger custodies fungible balances keyed by asset id. It implements the
// transfer/transferFrom semantics the native modules rely on.
type Ledger struct {
	state   ledgerState
	emitter events.Emitter
}

// NewLedger binds a ledger to the provided state.
func NewLedger(state ledgerState) *Ledger {
	return &Ledger{state: state, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the sink for transfer events.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

// NormalizeAsset canonicalises asset identifiers.
func NormalizeAsset(asset string) string {
	return strings.ToUpper(strings.TrimSpace(asset))
}

func (l *Ledger) ready(asset string, amount *big.Int) (string, error) {
	if l == nil || l.state == nil {
		return "", errNilState
	}
	normalized := NormalizeAsset(asset)
	if normalized == "" {
		return "", ErrAssetRequired
	}
	if amount != nil && amount.Sign() < 0 {
		return "", ErrInvalidAmount
	}
	return normalized, nil
}

// Balance returns the holder's balance of asset.
func (l *Ledger) Balance(asset string, addr crypto.Address) (*big.Int, error) {
	normalized, err := l.ready(asset, nil)
	if err != nil {
		return nil, err
	}
	return l.state.Balance(normalized, addr)
}

// Mint credits new supply. Only genesis and operator tooling call it.
func (l *Ledger) Mint(asset string, to crypto.Address, amount *big.Int) error {
	normalized, err := l.ready(asset, amount)
	if err != nil {
		return err
	}
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	balance, err := l.state.Balance(normalized, to)
	if err != nil {
		return err
	}
	if err := l.state.SetBalance(normalized, to, new(big.Int).Add(balance, amount)); err != nil {
		return err
	}
	l.emitter.Emit(events.Mint{Asset: normalized, To: to, Amount: new(big.Int).Set(amount)})
	return nil
}

// Approve sets the amount spender may move out of owner's balance.
func (l *Ledger) Approve(asset string, owner, spender crypto.Address, amount *big.Int) error {
	normalized, err := l.ready(asset, amount)
	if err != nil {
		return err
	}
	if amount == nil {
		amount = big.NewInt(0)
	}
	return l.state.SetAllowance(normalized, owner, spender, amount)
}

// Allowance returns the remaining approval of spender over owner's balance.
func (l *Ledger) Allowance(asset string, owner, spender crypto.Address) (*big.Int, error) {
	normalized, err := l.ready(asset, nil)
	if err != nil {
		return nil, err
	}
	return l.state.Allowance(normalized, owner, spender)
}

// Transfer moves amount from one holder to another. A zero amount is a no-op.
func (l *Ledger) Transfer(asset string, from, to crypto.Address, amount *big.Int) error {
	normalized, err := l.ready(asset, amount)
	if err != nil {
		return err
	}
	return l.move(normalized, from, to, amount)
}

// TransferFrom moves amount from owner to recipient using spender's allowance.
// Both the allowance and the owner's balance are checked before anything is
// written.
func (l *Ledger) TransferFrom(asset string, owner, spender, to crypto.Address, amount *big.Int) error {
	normalized, err := l.ready(asset, amount)
	if err != nil {
		return err
	}
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	allowance, err := l.state.Allowance(normalized, owner, spender)
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s allowance %s < %s", ErrInsufficientAllowance, normalized, allowance, amount)
	}
	balance, err := l.state.Balance(normalized, owner)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s balance %s < %s", ErrInsufficientBalance, normalized, balance, amount)
	}
	if allowance.Cmp(MaxAllowance) != 0 {
		if err := l.state.SetAllowance(normalized, owner, spender, new(big.Int).Sub(allowance, amount)); err != nil {
			return err
		}
	}
	return l.move(normalized, owner, to, amount)
}

func (l *Ledger) move(asset string, from, to crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	fromBalance, err := l.state.Balance(asset, from)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s balance %s < %s", ErrInsufficientBalance, asset, fromBalance, amount)
	}
	if from.Equal(to) {
		return nil
	}
	toBalance, err := l.state.Balance(asset, to)
	if err != nil {
		return err
	}
	if err := l.state.SetBalance(asset, from, new(big.Int).Sub(fromBalance, amount)); err != nil {
		return err
	}
	if err := l.state.SetBalance(asset, to, new(big.Int).Add(toBalance, amount)); err != nil {
		return err
	}
	l.emitter.Emit(events.Transfer{
		Asset:  asset,
		From:   from,
		To:     to,
		Amount: new(big.Int).Set(amount),
	})
	return nil
}
