package state

import (
	"math/big"

	"soudefi/crypto"
	"soudefi/native/lending"
)

type storedLendingAccount struct {
	Address             string
	DepositedBase       *big.Int
	DepositedCollateral *big.Int
	BorrowedBase        *big.Int
	LastAccrual         uint64
}

func cloneOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// LendingAccount loads the account for addr. Accounts that were never
// touched are returned zero-valued.
func (m *Manager) LendingAccount(addr crypto.Address) (*lending.UserAccount, error) {
	var stored storedLendingAccount
	ok, err := m.KVGet(LendingAccountKey(addr.Bytes()), &stored)
	if err != nil {
		return nil, err
	}
	account := lending.NewUserAccount(addr)
	if !ok {
		return account, nil
	}
	account.DepositedBase = cloneOrZero(stored.DepositedBase)
	account.DepositedCollateral = cloneOrZero(stored.DepositedCollateral)
	account.BorrowedBase = cloneOrZero(stored.BorrowedBase)
	account.LastAccrual = stored.LastAccrual
	return account, nil
}

// PutLendingAccount persists the account and appends its address to the
// account index on first write.
func (m *Manager) PutLendingAccount(account *lending.UserAccount) error {
	if account == nil {
		return nil
	}
	stored := storedLendingAccount{
		Address:             account.Address.String(),
		DepositedBase:       cloneOrZero(account.DepositedBase),
		DepositedCollateral: cloneOrZero(account.DepositedCollateral),
		BorrowedBase:        cloneOrZero(account.BorrowedBase),
		LastAccrual:         account.LastAccrual,
	}
	if err := m.KVPut(LendingAccountKey(account.Address.Bytes()), stored); err != nil {
		return err
	}
	_, err := m.KVAppend(lendingIndexKeyBytes, []byte(stored.Address))
	return err
}

// LendingAccounts returns every address that has a lending record, in first
// touch order.
func (m *Manager) LendingAccounts() ([]crypto.Address, error) {
	return m.addressList(lendingIndexKeyBytes)
}
