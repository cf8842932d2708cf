package lending

import (
	"math/big"

	"soudefi/crypto"
)

// UserAccount captures a participant's lending position. All amounts are in
// base units of their respective assets.
type UserAccount struct {
	Address             crypto.Address
	DepositedBase       *big.Int
	DepositedCollateral *big.Int
	BorrowedBase        *big.Int
	// LastAccrual is the unix timestamp interest was last folded into the
	// balances above.
	LastAccrual uint64
}

// NewUserAccount returns the zero-valued account every participant starts with.
func NewUserAccount(addr crypto.Address) *UserAccount {
	return &UserAccount{
		Address:             addr,
		DepositedBase:       big.NewInt(0),
		DepositedCollateral: big.NewInt(0),
		BorrowedBase:        big.NewInt(0),
	}
}

// Clone returns a deep copy of the account.
func (a *UserAccount) Clone() *UserAccount {
	if a == nil {
		return nil
	}
	clone := NewUserAccount(a.Address)
	clone.LastAccrual = a.LastAccrual
	if a.DepositedBase != nil {
		clone.DepositedBase.Set(a.DepositedBase)
	}
	if a.DepositedCollateral != nil {
		clone.DepositedCollateral.Set(a.DepositedCollateral)
	}
	if a.BorrowedBase != nil {
		clone.BorrowedBase.Set(a.BorrowedBase)
	}
	return clone
}

func (a *UserAccount) ensure() {
	if a.DepositedBase == nil {
		a.DepositedBase = big.NewInt(0)
	}
	if a.DepositedCollateral == nil {
		a.DepositedCollateral = big.NewInt(0)
	}
	if a.BorrowedBase == nil {
		a.BorrowedBase = big.NewInt(0)
	}
}

// Position is a read-only view of an account together with its current
// valuation.
type Position struct {
	Account         *UserAccount
	CollateralValue *big.Int
	// HealthBps is CollateralValue * 10_000 / BorrowedBase, or nil when the
	// account has no debt.
	HealthBps    *big.Int
	Liquidatable bool
}
