package state

import (
	"math/big"

	"soudefi/crypto"
	"soudefi/native/staking"
)

type storedStakingDeposit struct {
	Principal   *big.Int
	LastAccrual uint64
}

// StakingDeposit loads the staking position for addr. Missing positions are
// returned zero-valued.
func (m *Manager) StakingDeposit(addr crypto.Address) (*staking.Deposit, error) {
	var stored storedStakingDeposit
	ok, err := m.KVGet(StakingDepositKey(addr.Bytes()), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &staking.Deposit{Principal: big.NewInt(0)}, nil
	}
	return &staking.Deposit{Principal: cloneOrZero(stored.Principal), LastAccrual: stored.LastAccrual}, nil
}

// PutStakingDeposit persists a staking position. A position with no
// principal is deleted.
func (m *Manager) PutStakingDeposit(addr crypto.Address, deposit *staking.Deposit) error {
	key := StakingDepositKey(addr.Bytes())
	if deposit == nil || deposit.Principal == nil || deposit.Principal.Sign() == 0 {
		return m.KVDelete(key)
	}
	return m.KVPut(key, storedStakingDeposit{
		Principal:   new(big.Int).Set(deposit.Principal),
		LastAccrual: deposit.LastAccrual,
	})
}
