package events

import (
	"math/big"

	"soudefi/core/types"
	"soudefi/crypto"
)

const (
	// TypeStakingDeposit is emitted when a user adds to their staked principal.
	TypeStakingDeposit = "staking.deposit"
	// TypeStakingWithdraw is emitted when principal and interest are paid out.
	TypeStakingWithdraw = "staking.withdraw"
)

type StakingDeposit struct {
	Account    crypto.Address
	Amount     *big.Int
	Compounded *big.Int
	Timestamp  uint64
}

func (StakingDeposit) EventType() string { return TypeStakingDeposit }

func (e StakingDeposit) Event() *types.Event {
	return &types.Event{
		Type: TypeStakingDeposit,
		Attributes: map[string]string{
			"account":    formatAddress(e.Account),
			"amount":     formatAmount(e.Amount),
			"compounded": formatAmount(e.Compounded),
			"timestamp":  formatUint(e.Timestamp),
		},
	}
}

type StakingWithdraw struct {
	Account   crypto.Address
	Amount    *big.Int
	Interest  *big.Int
	Timestamp uint64
}

func (StakingWithdraw) EventType() string { return TypeStakingWithdraw }

func (e StakingWithdraw) Event() *types.Event {
	return &types.Event{
		Type: TypeStakingWithdraw,
		Attributes: map[string]string{
			"account":   formatAddress(e.Account),
			"amount":    formatAmount(e.Amount),
			"interest":  formatAmount(e.Interest),
			"timestamp": formatUint(e.Timestamp),
		},
	}
}
