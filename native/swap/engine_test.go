package swap_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"soudefi/core/events"
	"soudefi/core/state"
	"soudefi/crypto"
	"soudefi/native/bank"
	nativecommon "soudefi/native/common"
	"soudefi/native/swap"
	"soudefi/storage"
)

const token = "SOU"

type harness struct {
	db     *storage.MemDB
	ledger *bank.Ledger
	engine *swap.Engine
	rec    *events.Recorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := storage.NewMemDB()
	mgr := state.NewManager(db)
	ledger := bank.NewLedger(mgr)
	engine := swap.NewEngine(crypto.ModuleAddress("swap"), token)
	rec := &events.Recorder{}
	engine.SetState(mgr)
	engine.SetBank(ledger)
	engine.SetEmitter(rec)
	return &harness{db: db, ledger: ledger, engine: engine, rec: rec}
}

func (h *harness) fund(t *testing.T, addr crypto.Address, native, tok *big.Int) {
	t.Helper()
	require.NoError(t, h.ledger.Mint(bank.NativeAsset, addr, native))
	require.NoError(t, h.ledger.Mint(token, addr, tok))
	require.NoError(t, h.ledger.Approve(token, addr, h.engine.ModuleAddress(), bank.MaxAllowance))
}

func (h *harness) balance(t *testing.T, asset string, addr crypto.Address) *big.Int {
	t.Helper()
	bal, err := h.ledger.Balance(asset, addr)
	require.NoError(t, err)
	return bal
}

func (h *harness) pool(t *testing.T) *swap.Pool {
	t.Helper()
	pool, err := h.engine.Pool()
	require.NoError(t, err)
	return pool
}

func makeAddress(b byte) crypto.Address {
	raw := make([]byte, crypto.AddressLength)
	raw[len(raw)-1] = b
	return crypto.NewAddress(crypto.SouPrefix, raw)
}

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000_000_000_000))
}

func TestInitThenEthToToken(t *testing.T) {
	h := newHarness(t)
	owner, trader := makeAddress(1), makeAddress(2)
	h.fund(t, owner, ether(100), ether(100))
	h.fund(t, trader, ether(10), big.NewInt(0))

	status, err := h.engine.Status()
	require.NoError(t, err)
	require.Equal(t, swap.StatusUninitialized, status)

	require.NoError(t, h.engine.Init(owner, ether(100), ether(100)))
	status, err = h.engine.Status()
	require.NoError(t, err)
	require.Equal(t, swap.StatusActive, status)

	shares, err := h.engine.SharesOf(owner)
	require.NoError(t, err)
	require.Equal(t, ether(100).String(), shares.String())

	out, err := h.engine.EthToToken(trader, ether(1))
	require.NoError(t, err)
	require.Equal(t, "987158034397061298", out.String())

	pool := h.pool(t)
	require.Equal(t, ether(101).String(), pool.ReserveBase.String())
	require.Equal(t, new(big.Int).Sub(ether(100), out).String(), pool.ReserveToken.String())
	require.Equal(t, out.String(), h.balance(t, token, trader).String())
	require.Equal(t, ether(9).String(), h.balance(t, bank.NativeAsset, trader).String())

	var types []string
	for _, evt := range h.rec.Events() {
		types = append(types, evt.EventType())
	}
	require.Contains(t, types, events.TypeSwapInitialized)
	require.Contains(t, types, events.TypeSwapTrade)
}

func TestInitTwiceFails(t *testing.T) {
	h := newHarness(t)
	owner := makeAddress(1)
	h.fund(t, owner, ether(10), ether(10))
	require.NoError(t, h.engine.Init(owner, ether(5), ether(5)))
	err := h.engine.Init(owner, ether(1), ether(1))
	require.ErrorIs(t, err, swap.ErrAlreadyInitialized)
}

func TestInitValidation(t *testing.T) {
	h := newHarness(t)
	owner := makeAddress(1)
	h.fund(t, owner, ether(1), ether(1))
	require.ErrorIs(t, h.engine.Init(owner, big.NewInt(0), ether(1)), swap.ErrZeroAmount)
	require.ErrorIs(t, h.engine.Init(owner, ether(1), big.NewInt(0)), swap.ErrZeroAmount)

	before := h.db.Snapshot()
	err := h.engine.Init(owner, ether(1), ether(2))
	require.ErrorIs(t, err, bank.ErrInsufficientBalance)
	require.Equal(t, before, h.db.Snapshot())
}

func TestOperationsRequireActivePool(t *testing.T) {
	h := newHarness(t)
	user := makeAddress(3)
	h.fund(t, user, ether(1), ether(1))

	_, err := h.engine.EthToToken(user, ether(1))
	require.ErrorIs(t, err, swap.ErrUninitialized)
	_, err = h.engine.TokenToEth(user, ether(1))
	require.ErrorIs(t, err, swap.ErrUninitialized)
	_, _, err = h.engine.ProvideLiquidity(user, ether(1))
	require.ErrorIs(t, err, swap.ErrUninitialized)
	_, _, err = h.engine.WithdrawLiquidity(user, ether(1))
	require.ErrorIs(t, err, swap.ErrUninitialized)
}

func TestProductNonDecreasingAcrossTrades(t *testing.T) {
	h := newHarness(t)
	owner, trader := makeAddress(1), makeAddress(2)
	h.fund(t, owner, ether(1000), ether(5000))
	h.fund(t, trader, ether(1000), ether(1000))
	require.NoError(t, h.engine.Init(owner, ether(5000), ether(1000)))

	trades := []struct {
		buy    bool
		amount *big.Int
	}{
		{true, ether(3)},
		{false, ether(25)},
		{true, big.NewInt(1)},
		{false, big.NewInt(1)},
		{true, ether(250)},
		{false, ether(700)},
	}
	product := h.pool(t).Product()
	for i, trade := range trades {
		var err error
		if trade.buy {
			_, err = h.engine.EthToToken(trader, trade.amount)
		} else {
			_, err = h.engine.TokenToEth(trader, trade.amount)
		}
		require.NoError(t, err, "trade %d", i)
		next := h.pool(t).Product()
		require.True(t, next.Cmp(product) >= 0, "trade %d decreased product", i)
		product = next
	}
}

func TestOneWeiTradeDoesNotRevert(t *testing.T) {
	h := newHarness(t)
	owner, trader := makeAddress(1), makeAddress(2)
	h.fund(t, owner, ether(1), ether(100))
	h.fund(t, trader, ether(1), ether(1))
	require.NoError(t, h.engine.Init(owner, ether(100), ether(1)))

	out, err := h.engine.TokenToEth(trader, big.NewInt(1))
	require.NoError(t, err)
	require.Zero(t, out.Sign())

	pool := h.pool(t)
	require.Equal(t, new(big.Int).Add(ether(100), big.NewInt(1)).String(), pool.ReserveToken.String())
	require.Equal(t, ether(1).String(), pool.ReserveBase.String())
}

func TestLiquiditySharesConserved(t *testing.T) {
	h := newHarness(t)
	alice, bob, trader := makeAddress(1), makeAddress(2), makeAddress(3)
	h.fund(t, alice, ether(100), ether(1000))
	h.fund(t, bob, ether(100), ether(1000))
	h.fund(t, trader, ether(100), ether(100))
	require.NoError(t, h.engine.Init(alice, ether(500), ether(50)))

	_, err := h.engine.EthToToken(trader, ether(7))
	require.NoError(t, err)

	before := h.pool(t)
	tokenIn, sharesIn, err := h.engine.ProvideLiquidity(bob, ether(20))
	require.NoError(t, err)
	require.True(t, sharesIn.Sign() > 0)
	require.True(t, tokenIn.Sign() > 0)
	after := h.pool(t)
	require.Equal(t, new(big.Int).Add(before.ReserveBase, ether(20)).String(), after.ReserveBase.String())
	require.Equal(t, new(big.Int).Add(before.ReserveToken, tokenIn).String(), after.ReserveToken.String())

	assertConserved := func() {
		providers, err := h.engine.Providers()
		require.NoError(t, err)
		sum := new(big.Int)
		for _, p := range providers {
			s, err := h.engine.SharesOf(p)
			require.NoError(t, err)
			sum.Add(sum, s)
		}
		require.Equal(t, h.pool(t).TotalShares.String(), sum.String())
	}
	assertConserved()

	half := new(big.Int).Quo(sharesIn, big.NewInt(2))
	nativeOut, tokenOut, err := h.engine.WithdrawLiquidity(bob, half)
	require.NoError(t, err)
	require.True(t, nativeOut.Sign() > 0 && tokenOut.Sign() > 0)
	assertConserved()

	providers, err := h.engine.Providers()
	require.NoError(t, err)
	require.Len(t, providers, 2)
	require.True(t, providers[0].Equal(alice))
	require.True(t, providers[1].Equal(bob))
}

func TestWithdrawLiquidityLimits(t *testing.T) {
	h := newHarness(t)
	owner, other := makeAddress(1), makeAddress(2)
	h.fund(t, owner, ether(10), ether(10))
	require.NoError(t, h.engine.Init(owner, ether(10), ether(10)))

	_, _, err := h.engine.WithdrawLiquidity(owner, ether(11))
	require.ErrorIs(t, err, swap.ErrInsufficientLiquidity)
	_, _, err = h.engine.WithdrawLiquidity(other, big.NewInt(1))
	require.ErrorIs(t, err, swap.ErrInsufficientLiquidity)

	// The last provider cannot empty the pool.
	_, _, err = h.engine.WithdrawLiquidity(owner, ether(10))
	require.ErrorIs(t, err, swap.ErrInsufficientLiquidity)

	nativeOut, tokenOut, err := h.engine.WithdrawLiquidity(owner, ether(4))
	require.NoError(t, err)
	require.Equal(t, ether(4).String(), nativeOut.String())
	require.Equal(t, ether(4).String(), tokenOut.String())
	status, err := h.engine.Status()
	require.NoError(t, err)
	require.Equal(t, swap.StatusActive, status)
}

func TestTokenToEthRequiresAllowance(t *testing.T) {
	h := newHarness(t)
	owner, trader := makeAddress(1), makeAddress(2)
	h.fund(t, owner, ether(10), ether(10))
	require.NoError(t, h.engine.Init(owner, ether(10), ether(10)))
	require.NoError(t, h.ledger.Mint(token, trader, ether(1)))

	_, err := h.engine.TokenToEth(trader, ether(1))
	require.True(t, errors.Is(err, bank.ErrInsufficientAllowance), "got %v", err)
}

func TestPriceQuotes(t *testing.T) {
	h := newHarness(t)
	owner := makeAddress(1)
	h.fund(t, owner, ether(1), ether(100))
	require.NoError(t, h.engine.Init(owner, ether(100), ether(1)))

	quote, err := h.engine.Price("sou", ether(100))
	require.NoError(t, err)
	require.Equal(t, "499248873309964947", quote.String())

	reverse, err := h.engine.Price(bank.NativeAsset, big.NewInt(1000))
	require.NoError(t, err)
	want, err := swap.GetInputPrice(big.NewInt(1000), ether(1), ether(100))
	require.NoError(t, err)
	require.Equal(t, want.String(), reverse.String())

	_, err = h.engine.Price("BTC", ether(1))
	require.ErrorIs(t, err, swap.ErrUnknownAsset)
}

func TestPausedEngineRejectsTrades(t *testing.T) {
	h := newHarness(t)
	owner := makeAddress(1)
	h.fund(t, owner, ether(10), ether(10))
	h.engine.SetPauses(nativecommon.NewStaticPauses("swap"))
	require.ErrorIs(t, h.engine.Init(owner, ether(1), ether(1)), nativecommon.ErrModulePaused)
}
