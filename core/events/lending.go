package events

import (
	"math/big"

	"soudefi/core/types"
	"soudefi/crypto"
)

const (
	TypeLendingDepositBase        = "lending.deposit_base"
	TypeLendingWithdrawBase       = "lending.withdraw_base"
	TypeLendingDepositCollateral  = "lending.deposit_collateral"
	TypeLendingWithdrawCollateral = "lending.withdraw_collateral"
	TypeLendingBorrow             = "lending.borrow"
	TypeLendingRepay              = "lending.repay"
	TypeLendingLiquidated         = "lending.liquidated"
)

// LendingMovement covers the six single-account operations. Kind selects the
// event type and must be one of the TypeLending* constants above.
type LendingMovement struct {
	Kind    string
	Account crypto.Address
	Asset   string
	Amount  *big.Int
}

func (e LendingMovement) EventType() string { return e.Kind }

func (e LendingMovement) Event() *types.Event {
	return &types.Event{
		Type: e.Kind,
		Attributes: map[string]string{
			"account": formatAddress(e.Account),
			"asset":   normalizeAsset(e.Asset),
			"amount":  formatAmount(e.Amount),
		},
	}
}

// LendingLiquidated records a liquidation. Seized is the whole collateral
// balance; LiquidatorShare plus TreasuryShare always equals Seized.
type LendingLiquidated struct {
	Liquidator      crypto.Address
	Account         crypto.Address
	DebtCleared     *big.Int
	Seized          *big.Int
	LiquidatorShare *big.Int
	TreasuryShare   *big.Int
	CollateralValue *big.Int
}

func (LendingLiquidated) EventType() string { return TypeLendingLiquidated }

func (e LendingLiquidated) Event() *types.Event {
	return &types.Event{
		Type: TypeLendingLiquidated,
		Attributes: map[string]string{
			"liquidator":      formatAddress(e.Liquidator),
			"account":         formatAddress(e.Account),
			"debtCleared":     formatAmount(e.DebtCleared),
			"seized":          formatAmount(e.Seized),
			"liquidatorShare": formatAmount(e.LiquidatorShare),
			"treasuryShare":   formatAmount(e.TreasuryShare),
			"collateralValue": formatAmount(e.CollateralValue),
		},
	}
}
