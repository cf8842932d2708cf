package staking

import (
	"errors"
	"math/big"
	"testing"

	"soudefi/core/events"
	"soudefi/core/interest"
	"soudefi/crypto"
)

type mockState struct {
	deposits map[string]*Deposit
}

func (m *mockState) StakingDeposit(addr crypto.Address) (*Deposit, error) {
	if d, ok := m.deposits[string(addr.Bytes())]; ok {
		return &Deposit{Principal: new(big.Int).Set(d.Principal), LastAccrual: d.LastAccrual}, nil
	}
	return &Deposit{Principal: big.NewInt(0)}, nil
}

func (m *mockState) PutStakingDeposit(addr crypto.Address, d *Deposit) error {
	m.deposits[string(addr.Bytes())] = &Deposit{Principal: new(big.Int).Set(d.Principal), LastAccrual: d.LastAccrual}
	return nil
}

type mockBank struct {
	balances map[string]*big.Int
}

func (b *mockBank) key(asset string, addr crypto.Address) string {
	return asset + "/" + string(addr.Bytes())
}

func (b *mockBank) Balance(asset string, addr crypto.Address) (*big.Int, error) {
	if v, ok := b.balances[b.key(asset, addr)]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

func (b *mockBank) Transfer(asset string, from, to crypto.Address, amount *big.Int) error {
	fromBal, _ := b.Balance(asset, from)
	if fromBal.Cmp(amount) < 0 {
		return errors.New("mock bank: insufficient balance")
	}
	toBal, _ := b.Balance(asset, to)
	b.balances[b.key(asset, from)] = fromBal.Sub(fromBal, amount)
	b.balances[b.key(asset, to)] = toBal.Add(toBal, amount)
	return nil
}

func (b *mockBank) TransferFrom(asset string, owner, _ crypto.Address, to crypto.Address, amount *big.Int) error {
	return b.Transfer(asset, owner, to, amount)
}

func makeAddress(b byte) crypto.Address {
	raw := make([]byte, crypto.AddressLength)
	raw[len(raw)-1] = b
	return crypto.NewAddress(crypto.SouPrefix, raw)
}

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000_000_000_000))
}

func newTestEngine(t *testing.T) (*Engine, *mockBank, *events.Recorder) {
	t.Helper()
	module := crypto.ModuleAddress("staking")
	engine := NewEngine(module, "sou", DefaultRateBps)
	bank := &mockBank{balances: map[string]*big.Int{}}
	bank.balances[bank.key("SOU", module)] = ether(1_000)
	rec := &events.Recorder{}
	engine.SetState(&mockState{deposits: map[string]*Deposit{}})
	engine.SetBank(bank)
	engine.SetEmitter(rec)
	return engine, bank, rec
}

func TestInterestAfterOneDay(t *testing.T) {
	engine, bank, _ := newTestEngine(t)
	user := makeAddress(1)
	bank.balances[bank.key("SOU", user)] = ether(100)

	engine.SetNow(10_000)
	if err := engine.Deposit(user, ether(100)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	engine.SetNow(10_000 + 86_400)
	earned, err := engine.CalculateInterest(user)
	if err != nil {
		t.Fatalf("calculate interest: %v", err)
	}
	if earned.String() != "13698630136986301" {
		t.Fatalf("unexpected one-day interest: %s", earned)
	}
}

func TestWithdrawAfterOneYearPaysInterest(t *testing.T) {
	engine, bank, rec := newTestEngine(t)
	user := makeAddress(1)
	bank.balances[bank.key("SOU", user)] = ether(100)

	engine.SetNow(0)
	if err := engine.Deposit(user, ether(100)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	engine.SetNow(interest.SecondsPerYear)
	balance, err := engine.Balance(user)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Cmp(ether(105)) != 0 {
		t.Fatalf("unexpected balance after a year: %s", balance)
	}
	payout, err := engine.Withdraw(user, ether(100))
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if payout.Cmp(ether(105)) != 0 {
		t.Fatalf("unexpected payout: %s", payout)
	}
	wallet, _ := bank.Balance("SOU", user)
	if wallet.Cmp(ether(105)) != 0 {
		t.Fatalf("unexpected wallet balance: %s", wallet)
	}
	if _, err := engine.Withdraw(user, ether(1)); !errors.Is(err, ErrNoActiveDeposit) {
		t.Fatalf("expected ErrNoActiveDeposit, got %v", err)
	}
	evts := rec.Events()
	if len(evts) != 2 || evts[1].EventType() != events.TypeStakingWithdraw {
		t.Fatalf("unexpected events: %+v", evts)
	}
}

func TestDepositCompoundsPendingInterest(t *testing.T) {
	engine, bank, _ := newTestEngine(t)
	user := makeAddress(1)
	bank.balances[bank.key("SOU", user)] = ether(200)

	engine.SetNow(0)
	if err := engine.Deposit(user, ether(100)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	engine.SetNow(interest.SecondsPerYear)
	if err := engine.Deposit(user, ether(100)); err != nil {
		t.Fatalf("second deposit: %v", err)
	}
	pos, err := engine.Position(user)
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	if pos.Principal.Cmp(ether(205)) != 0 {
		t.Fatalf("expected compounded principal 205, got %s", pos.Principal)
	}
	if pos.LastAccrual != interest.SecondsPerYear {
		t.Fatalf("timestamp not reset: %d", pos.LastAccrual)
	}
}

func TestStakingValidation(t *testing.T) {
	engine, bank, _ := newTestEngine(t)
	user := makeAddress(1)
	bank.balances[bank.key("SOU", user)] = ether(10)

	if err := engine.Deposit(user, big.NewInt(0)); !errors.Is(err, ErrZeroAmount) {
		t.Fatalf("expected ErrZeroAmount, got %v", err)
	}
	if err := engine.Deposit(user, ether(11)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if _, err := engine.Withdraw(user, ether(1)); !errors.Is(err, ErrNoActiveDeposit) {
		t.Fatalf("expected ErrNoActiveDeposit, got %v", err)
	}
	if err := engine.Deposit(user, ether(10)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := engine.Withdraw(user, ether(11)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}
