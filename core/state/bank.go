package state

import (
	"fmt"
	"math/big"

	"soudefi/crypto"
)

func (m *Manager) readAmount(key []byte) (*big.Int, error) {
	amount := new(big.Int)
	ok, err := m.KVGet(key, amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return amount, nil
}

func (m *Manager) writeAmount(key []byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return m.KVDelete(key)
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("negative amount not allowed")
	}
	return m.KVPut(key, amount)
}

// Balance retrieves an asset balance for the provided account.
func (m *Manager) Balance(asset string, addr crypto.Address) (*big.Int, error) {
	return m.readAmount(BalanceKey(asset, addr.Bytes()))
}

// SetBalance stores an account balance for the provided asset. Zero balances
// are removed from the store.
func (m *Manager) SetBalance(asset string, addr crypto.Address, amount *big.Int) error {
	if len(addr.Bytes()) == 0 {
		return fmt.Errorf("address must not be empty")
	}
	return m.writeAmount(BalanceKey(asset, addr.Bytes()), amount)
}

// Allowance returns how much spender may move out of owner's balance.
func (m *Manager) Allowance(asset string, owner, spender crypto.Address) (*big.Int, error) {
	return m.readAmount(AllowanceKey(asset, owner.Bytes(), spender.Bytes()))
}

// SetAllowance records an approval.
func (m *Manager) SetAllowance(asset string, owner, spender crypto.Address, amount *big.Int) error {
	if len(owner.Bytes()) == 0 || len(spender.Bytes()) == 0 {
		return fmt.Errorf("address must not be empty")
	}
	return m.writeAmount(AllowanceKey(asset, owner.Bytes(), spender.Bytes()), amount)
}
