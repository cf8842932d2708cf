package events

import (
	"math/big"
	"testing"

	"soudefi/crypto"
)

func TestSwapTradeEvent(t *testing.T) {
	trader := crypto.ModuleAddress("trader")
	evt := SwapTrade{
		Trader:    trader,
		AssetIn:   "native",
		AmountIn:  big.NewInt(1000),
		AssetOut:  "sou",
		AmountOut: big.NewInt(987),
	}.Event()
	if evt == nil {
		t.Fatalf("expected event")
	}
	if evt.Type != TypeSwapTrade {
		t.Fatalf("unexpected type: %s", evt.Type)
	}
	if evt.Attributes["assetIn"] != "NATIVE" || evt.Attributes["assetOut"] != "SOU" {
		t.Fatalf("unexpected assets: %+v", evt.Attributes)
	}
	if evt.Attributes["amountOut"] != "987" {
		t.Fatalf("unexpected amountOut: %s", evt.Attributes["amountOut"])
	}
	if evt.Attributes["trader"] != trader.String() {
		t.Fatalf("unexpected trader: %s", evt.Attributes["trader"])
	}
}

func TestLendingMovementUsesKind(t *testing.T) {
	evt := LendingMovement{Kind: TypeLendingBorrow, Amount: nil}
	if evt.EventType() != TypeLendingBorrow {
		t.Fatalf("unexpected type: %s", evt.EventType())
	}
	if got := evt.Event().Attributes["amount"]; got != "0" {
		t.Fatalf("nil amount should render as 0, got %s", got)
	}
}

func TestRecorderPreservesOrder(t *testing.T) {
	var rec Recorder
	var sink Recorder
	fan := Multi{&rec, &sink, nil}
	fan.Emit(StakingDeposit{Amount: big.NewInt(1)})
	fan.Emit(StakingWithdraw{Amount: big.NewInt(2)})
	fan.Emit(nil)

	records := rec.Records()
	if len(records) != 2 {
		t.Fatalf("expected 2 events, got %d", len(records))
	}
	if records[0].Type != TypeStakingDeposit || records[1].Type != TypeStakingWithdraw {
		t.Fatalf("unexpected order: %+v", records)
	}
	if len(sink.Events()) != 2 {
		t.Fatalf("fan-out did not reach second emitter")
	}
	rec.Reset()
	if len(rec.Events()) != 0 {
		t.Fatalf("reset did not clear events")
	}
}
