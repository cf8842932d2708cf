package bank

import (
	"errors"
	"math/big"
	"testing"

	"soudefi/core/events"
	"soudefi/crypto"
)

type mockState struct {
	balances   map[string]*big.Int
	allowances map[string]*big.Int
}

func newMockState() *mockState {
	return &mockState{
		balances:   make(map[string]*big.Int),
		allowances: make(map[string]*big.Int),
	}
}

func (m *mockState) Balance(asset string, addr crypto.Address) (*big.Int, error) {
	if v, ok := m.balances[asset+"/"+addr.Hex()]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

func (m *mockState) SetBalance(asset string, addr crypto.Address, amount *big.Int) error {
	m.balances[asset+"/"+addr.Hex()] = new(big.Int).Set(amount)
	return nil
}

func (m *mockState) Allowance(asset string, owner, spender crypto.Address) (*big.Int, error) {
	if v, ok := m.allowances[asset+"/"+owner.Hex()+"/"+spender.Hex()]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

func (m *mockState) SetAllowance(asset string, owner, spender crypto.Address, amount *big.Int) error {
	m.allowances[asset+"/"+owner.Hex()+"/"+spender.Hex()] = new(big.Int).Set(amount)
	return nil
}

func makeAddress(b byte) crypto.Address {
	raw := make([]byte, crypto.AddressLength)
	raw[len(raw)-1] = b
	return crypto.NewAddress(crypto.SouPrefix, raw)
}

func TestTransferMovesBalance(t *testing.T) {
	ledger := NewLedger(newMockState())
	rec := &events.Recorder{}
	ledger.SetEmitter(rec)
	alice, bob := makeAddress(1), makeAddress(2)

	if err := ledger.Mint("sou", alice, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Transfer("SOU", alice, bob, big.NewInt(40)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if bal, _ := ledger.Balance("sou", alice); bal.Int64() != 60 {
		t.Fatalf("alice balance = %s", bal)
	}
	if bal, _ := ledger.Balance("sou", bob); bal.Int64() != 40 {
		t.Fatalf("bob balance = %s", bal)
	}
	if err := ledger.Transfer("sou", alice, bob, big.NewInt(61)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if got := len(rec.Events()); got != 2 {
		t.Fatalf("expected mint + transfer events, got %d", got)
	}
}

func TestTransferFromConsumesAllowance(t *testing.T) {
	ledger := NewLedger(newMockState())
	owner, spender := makeAddress(1), makeAddress(9)
	if err := ledger.Mint("sou", owner, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	if err := ledger.TransferFrom("sou", owner, spender, spender, big.NewInt(10)); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("expected ErrInsufficientAllowance, got %v", err)
	}
	if err := ledger.Approve("sou", owner, spender, big.NewInt(30)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := ledger.TransferFrom("sou", owner, spender, spender, big.NewInt(20)); err != nil {
		t.Fatalf("transferFrom: %v", err)
	}
	allowance, _ := ledger.Allowance("sou", owner, spender)
	if allowance.Int64() != 10 {
		t.Fatalf("allowance = %s, want 10", allowance)
	}

	if err := ledger.Approve("sou", owner, spender, MaxAllowance); err != nil {
		t.Fatalf("approve max: %v", err)
	}
	if err := ledger.TransferFrom("sou", owner, spender, spender, big.NewInt(80)); err != nil {
		t.Fatalf("transferFrom with max allowance: %v", err)
	}
	allowance, _ = ledger.Allowance("sou", owner, spender)
	if allowance.Cmp(MaxAllowance) != 0 {
		t.Fatalf("infinite allowance was decremented to %s", allowance)
	}
	if err := ledger.TransferFrom("sou", owner, spender, spender, big.NewInt(1)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestLedgerRejectsInvalidInput(t *testing.T) {
	ledger := NewLedger(newMockState())
	a, b := makeAddress(1), makeAddress(2)
	if err := ledger.Transfer("", a, b, big.NewInt(1)); !errors.Is(err, ErrAssetRequired) {
		t.Fatalf("expected ErrAssetRequired, got %v", err)
	}
	if err := ledger.Transfer("sou", a, b, big.NewInt(-1)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if err := ledger.Transfer("sou", a, b, big.NewInt(0)); err != nil {
		t.Fatalf("zero transfer should be a no-op: %v", err)
	}
}
