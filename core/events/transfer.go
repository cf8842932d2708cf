package events

import (
	"math/big"

	"soudefi/core/types"
	"soudefi/crypto"
)

const (
	// TypeTransfer is emitted for every asset movement performed by the bank.
	TypeTransfer = "bank.transfer"
	// TypeMint is emitted when genesis or an operator credits new supply.
	TypeMint = "bank.mint"
)

type Transfer struct {
	Asset  string
	From   crypto.Address
	To     crypto.Address
	Amount *big.Int
}

func (Transfer) EventType() string { return TypeTransfer }

func (e Transfer) Event() *types.Event {
	attrs := map[string]string{}
	if asset := normalizeAsset(e.Asset); asset != "" {
		attrs["asset"] = asset
	}
	attrs["from"] = formatAddress(e.From)
	attrs["to"] = formatAddress(e.To)
	attrs["amount"] = formatAmount(e.Amount)
	return &types.Event{Type: TypeTransfer, Attributes: attrs}
}

type Mint struct {
	Asset  string
	To     crypto.Address
	Amount *big.Int
}

func (Mint) EventType() string { return TypeMint }

func (e Mint) Event() *types.Event {
	return &types.Event{
		Type: TypeMint,
		Attributes: map[string]string{
			"asset":  normalizeAsset(e.Asset),
			"to":     formatAddress(e.To),
			"amount": formatAmount(e.Amount),
		},
	}
}
