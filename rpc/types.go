package rpc

import (
	"math/big"
	"strings"

	"soudefi/core/genesis"
	"soudefi/core/host"
	"soudefi/core/types"
	"soudefi/crypto"
)

// ReceiptResult is the rendered form of a committed submission.
type ReceiptResult struct {
	TxID      string         `json:"txId"`
	Op        string         `json:"op"`
	Timestamp uint64         `json:"timestamp"`
	Result    map[string]any `json:"result,omitempty"`
	Events    []types.Event  `json:"events"`
}

// Amounts travel as base-10 strings of base units.
func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func renderReceipt(r *host.Receipt) *ReceiptResult {
	out := &ReceiptResult{TxID: r.TxID, Op: r.Op, Timestamp: r.Timestamp, Events: r.Events}
	if out.Events == nil {
		out.Events = []types.Event{}
	}
	switch res := r.Result.(type) {
	case *host.TradeResult:
		out.Result = map[string]any{"amountOut": amountString(res.AmountOut)}
	case *host.LiquidityResult:
		out.Result = map[string]any{
			"native": amountString(res.Native),
			"token":  amountString(res.Token),
			"shares": amountString(res.Shares),
		}
	case *host.LiquidationResult:
		out.Result = map[string]any{
			"debtCleared": amountString(res.DebtCleared),
			"seized":      amountString(res.Seized),
		}
	case *host.WithdrawResult:
		out.Result = map[string]any{"payout": amountString(res.Payout)}
	}
	return out
}

func parseAddressParam(name, value string) (crypto.Address, *RPCError) {
	if strings.TrimSpace(value) == "" {
		return crypto.Address{}, invalidParams(name+" required", nil)
	}
	addr, err := genesis.ParseAccount(value)
	if err != nil {
		return crypto.Address{}, invalidParams("invalid "+name, err.Error())
	}
	return addr, nil
}

func parseAmountParam(name, value string) (*big.Int, *RPCError) {
	amount, err := types.ParseAmount(value)
	if err != nil {
		return nil, invalidParams("invalid "+name, err.Error())
	}
	return amount, nil
}

// callerAmount is the parameter object shared by every single-amount call.
type callerAmount struct {
	From   string `json:"from"`
	Amount string `json:"amount"`
}

func (p callerAmount) parse() (crypto.Address, *big.Int, *RPCError) {
	from, rpcErr := parseAddressParam("from", p.From)
	if rpcErr != nil {
		return crypto.Address{}, nil, rpcErr
	}
	amount, rpcErr := parseAmountParam("amount", p.Amount)
	if rpcErr != nil {
		return crypto.Address{}, nil, rpcErr
	}
	return from, amount, nil
}

type addressParam struct {
	Address string `json:"address"`
}
