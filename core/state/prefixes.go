package state

import "strings"

var (
	swapPoolKeyBytes      = []byte("swap/pool")
	swapSharesPrefix      = []byte("swap/shares/")
	swapProvidersKeyBytes = []byte("swap/providers")

	lendingAccountPrefix = []byte("lending/account/")
	lendingIndexKeyBytes = []byte("lending/index")

	stakingDepositPrefix = []byte("staking/deposit/")

	bankBalancePrefix   = []byte("bank/balance/")
	bankAllowancePrefix = []byte("bank/allowance/")

	genesisKeyBytes = []byte("meta/genesis")
)

func prefixed(prefix []byte, parts ...[]byte) []byte {
	size := len(prefix)
	for _, p := range parts {
		size += len(p) + 1
	}
	buf := make([]byte, 0, size)
	buf = append(buf, prefix...)
	for i, p := range parts {
		if i > 0 {
			buf = append(buf, '/')
		}
		buf = append(buf, p...)
	}
	return buf
}

func normalizeAsset(asset string) []byte {
	return []byte(strings.ToUpper(strings.TrimSpace(asset)))
}

// SwapSharesKey returns the raw (unhashed) key of a provider's share balance.
func SwapSharesKey(addr []byte) []byte { return prefixed(swapSharesPrefix, addr) }

// LendingAccountKey returns the raw key of a lending account record.
func LendingAccountKey(addr []byte) []byte { return prefixed(lendingAccountPrefix, addr) }

// StakingDepositKey returns the raw key of a staking deposit record.
func StakingDepositKey(addr []byte) []byte { return prefixed(stakingDepositPrefix, addr) }

// BalanceKey returns the raw key of an asset balance.
func BalanceKey(asset string, addr []byte) []byte {
	return prefixed(bankBalancePrefix, normalizeAsset(asset), addr)
}

// AllowanceKey returns the raw key of an approval.
func AllowanceKey(asset string, owner, spender []byte) []byte {
	return prefixed(bankAllowancePrefix, normalizeAsset(asset), owner, spender)
}
