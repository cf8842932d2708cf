package state

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"soudefi/crypto"
	"soudefi/native/staking"
	"soudefi/native/swap"
	"soudefi/storage"
)

func makeAddress(b byte) crypto.Address {
	raw := make([]byte, crypto.AddressLength)
	raw[len(raw)-1] = b
	return crypto.NewAddress(crypto.SouPrefix, raw)
}

func TestKeyFormats(t *testing.T) {
	require.Equal(t, "bank/balance/SOU/\x01", string(BalanceKey(" sou ", []byte{0x01})))
	require.Equal(t, "bank/allowance/SOU/\x01/\x02", string(AllowanceKey("sou", []byte{0x01}, []byte{0x02})))
	require.Equal(t, "lending/account/\x07", string(LendingAccountKey([]byte{0x07})))
	require.Equal(t, "swap/shares/\x07", string(SwapSharesKey([]byte{0x07})))
	require.Equal(t, "staking/deposit/\x07", string(StakingDepositKey([]byte{0x07})))
}

func TestBalancesAndAllowances(t *testing.T) {
	db := storage.NewMemDB()
	mgr := NewManager(db)
	alice, bob := makeAddress(1), makeAddress(2)

	bal, err := mgr.Balance("SOU", alice)
	require.NoError(t, err)
	require.Zero(t, bal.Sign())

	require.NoError(t, mgr.SetBalance("sou", alice, big.NewInt(42)))
	bal, err = mgr.Balance("SOU", alice)
	require.NoError(t, err)
	require.Equal(t, int64(42), bal.Int64())

	require.NoError(t, mgr.SetAllowance("SOU", alice, bob, big.NewInt(7)))
	allowance, err := mgr.Allowance("sou", alice, bob)
	require.NoError(t, err)
	require.Equal(t, int64(7), allowance.Int64())

	require.NoError(t, mgr.SetBalance("SOU", alice, big.NewInt(0)))
	require.NoError(t, mgr.SetAllowance("SOU", alice, bob, big.NewInt(0)))
	require.Equal(t, 0, db.Len())

	require.Error(t, mgr.SetBalance("SOU", alice, big.NewInt(-1)))
}

func TestSwapRecords(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	pool, err := mgr.SwapPool()
	require.NoError(t, err)
	require.Equal(t, swap.StatusUninitialized, pool.Status())

	require.NoError(t, mgr.PutSwapPool(&swap.Pool{
		ReserveBase:  big.NewInt(10),
		ReserveToken: big.NewInt(20),
		TotalShares:  big.NewInt(10),
	}))
	pool, err = mgr.SwapPool()
	require.NoError(t, err)
	require.Equal(t, "20", pool.ReserveToken.String())
	require.Equal(t, swap.StatusActive, pool.Status())

	alice, bob := makeAddress(1), makeAddress(2)
	require.NoError(t, mgr.PutSwapShares(bob, big.NewInt(0)))
	require.NoError(t, mgr.PutSwapShares(alice, big.NewInt(10)))
	require.NoError(t, mgr.PutSwapShares(bob, big.NewInt(3)))
	require.NoError(t, mgr.PutSwapShares(alice, big.NewInt(7)))
	providers, err := mgr.SwapProviders()
	require.NoError(t, err)
	require.Len(t, providers, 2)
	require.True(t, providers[0].Equal(alice))
	require.Equal(t, crypto.SouPrefix, providers[0].Prefix())
	shares, err := mgr.SwapShares(alice)
	require.NoError(t, err)
	require.Equal(t, int64(7), shares.Int64())
}

func TestLendingRecords(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	user := makeAddress(9)

	acc, err := mgr.LendingAccount(user)
	require.NoError(t, err)
	require.Zero(t, acc.DepositedBase.Sign())
	accounts, err := mgr.LendingAccounts()
	require.NoError(t, err)
	require.Empty(t, accounts)

	acc.DepositedBase = big.NewInt(100)
	acc.BorrowedBase = big.NewInt(5)
	acc.LastAccrual = 1234
	require.NoError(t, mgr.PutLendingAccount(acc))
	require.NoError(t, mgr.PutLendingAccount(acc))

	loaded, err := mgr.LendingAccount(user)
	require.NoError(t, err)
	require.True(t, loaded.Address.Equal(user))
	require.Equal(t, "100", loaded.DepositedBase.String())
	require.Equal(t, "0", loaded.DepositedCollateral.String())
	require.Equal(t, "5", loaded.BorrowedBase.String())
	require.Equal(t, uint64(1234), loaded.LastAccrual)
	accounts, err = mgr.LendingAccounts()
	require.NoError(t, err)
	require.Len(t, accounts, 1)
}

func TestStakingRecords(t *testing.T) {
	db := storage.NewMemDB()
	mgr := NewManager(db)
	user := makeAddress(3)

	require.NoError(t, mgr.PutStakingDeposit(user, &staking.Deposit{Principal: big.NewInt(50), LastAccrual: 9}))
	dep, err := mgr.StakingDeposit(user)
	require.NoError(t, err)
	require.Equal(t, int64(50), dep.Principal.Int64())
	require.Equal(t, uint64(9), dep.LastAccrual)

	require.NoError(t, mgr.PutStakingDeposit(user, &staking.Deposit{Principal: big.NewInt(0)}))
	require.Equal(t, 0, db.Len())
}

func TestGenesisHash(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	hash, err := mgr.GenesisHash()
	require.NoError(t, err)
	require.Nil(t, hash)
	require.NoError(t, mgr.SetGenesisHash([]byte{0xde, 0xad}))
	hash, err = mgr.GenesisHash()
	require.NoError(t, err)
	require.Equal(t, []byte{0xde, 0xad}, hash)
}
