package host

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"soudefi/core/events"
	"soudefi/core/types"
	"soudefi/crypto"
	"soudefi/native/bank"
	nativecommon "soudefi/native/common"
	"soudefi/native/lending"
	"soudefi/native/swap"
	"soudefi/storage"
)

type memJournal struct {
	mu       sync.Mutex
	receipts []*Receipt
}

func (j *memJournal) Record(r *Receipt) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.receipts = append(j.receipts, r)
	return nil
}

type memSink struct {
	txs    []string
	events []types.Event
}

func (s *memSink) Append(_ context.Context, txID string, _ uint64, evts []types.Event) error {
	s.txs = append(s.txs, txID)
	s.events = append(s.events, evts...)
	return nil
}

type fixture struct {
	db       *storage.MemDB
	exec     *Executor
	journal  *memJournal
	sink     *memSink
	recorder *events.Recorder
	now      time.Time
}

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000_000_000_000))
}

func addr(b byte) crypto.Address {
	raw := make([]byte, crypto.AddressLength)
	raw[len(raw)-1] = b
	return crypto.NewAddress(crypto.SouPrefix, raw)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		db:       storage.NewMemDB(),
		journal:  &memJournal{},
		sink:     &memSink{},
		recorder: &events.Recorder{},
		now:      time.Unix(1_700_000_000, 0),
	}
	exec, err := NewExecutor(f.db, Options{
		Clock:    func() time.Time { return f.now },
		Journal:  f.journal,
		Sinks:    []EventSink{f.sink},
		Emitters: []events.Emitter{f.recorder},
	})
	require.NoError(t, err)
	f.exec = exec
	return f
}

func (f *fixture) submit(t *testing.T, call Call) *Receipt {
	t.Helper()
	receipt, err := f.exec.Submit(context.Background(), call)
	require.NoError(t, err)
	return receipt
}

func (f *fixture) seedPool(t *testing.T, provider crypto.Address, token, native *big.Int) {
	t.Helper()
	f.submit(t, BankMint("SOU", provider, token))
	f.submit(t, BankMint(bank.NativeAsset, provider, native))
	f.submit(t, ApproveModules(provider))
	f.submit(t, SwapInit(provider, token, native))
}

func TestSubmitCommitsAndPublishes(t *testing.T) {
	f := newFixture(t)
	provider := addr(1)
	f.seedPool(t, provider, ether(100), ether(100))

	trader := addr(2)
	f.submit(t, BankMint(bank.NativeAsset, trader, ether(1)))
	receipt := f.submit(t, SwapEthToToken(trader, ether(1)))

	require.NotEmpty(t, receipt.TxID)
	require.Equal(t, "swap.eth_to_token", receipt.Op)
	require.Equal(t, uint64(f.now.Unix()), receipt.Timestamp)
	result, ok := receipt.Result.(*TradeResult)
	require.True(t, ok)
	require.Equal(t, "987158034397061298", result.AmountOut.String())
	require.NotEmpty(t, receipt.Events)
	require.Equal(t, events.TypeSwapTrade, receipt.Events[len(receipt.Events)-1].Type)

	require.Len(t, f.journal.receipts, 6)
	require.Equal(t, receipt.TxID, f.journal.receipts[5].TxID)
	require.Len(t, f.sink.txs, 6)
	require.NotEmpty(t, f.recorder.Events())

	err := f.exec.View(context.Background(), func(env *Env) error {
		balance, err := env.Bank.Balance("SOU", trader)
		if err != nil {
			return err
		}
		require.Equal(t, result.AmountOut.String(), balance.String())
		pool, err := env.Swap.Pool()
		if err != nil {
			return err
		}
		require.Equal(t, ether(101).String(), pool.ReserveBase.String())
		return nil
	})
	require.NoError(t, err)
}

func TestSubmitRevertLeavesStateUntouched(t *testing.T) {
	f := newFixture(t)
	f.submit(t, BankMint(bank.NativeAsset, addr(3), ether(5)))
	before := f.db.Snapshot()
	journaled := len(f.journal.receipts)
	published := len(f.recorder.Events())

	// The mint succeeds inside the overlay, then the trade fails on an
	// uninitialised pool.
	_, err := f.exec.Submit(context.Background(), Call{Op: "composite", Run: func(env *Env) (any, error) {
		if err := env.Bank.Mint(bank.NativeAsset, addr(3), ether(50)); err != nil {
			return nil, err
		}
		return env.Swap.EthToToken(addr(3), ether(1))
	}})
	require.Error(t, err)
	require.ErrorIs(t, err, swap.ErrUninitialized)
	var revert *Revert
	require.True(t, errors.As(err, &revert))
	require.Equal(t, "composite", revert.Op)

	require.Equal(t, before, f.db.Snapshot())
	require.Len(t, f.journal.receipts, journaled)
	require.Len(t, f.recorder.Events(), published)
}

func TestSubmitRejectedBorrowKeepsBalances(t *testing.T) {
	f := newFixture(t)
	f.seedPool(t, addr(1), ether(100), ether(1))

	lender := addr(4)
	f.submit(t, BankMint("USD", lender, ether(1_000)))
	f.submit(t, ApproveModules(lender))
	f.submit(t, LendingDepositBase(lender, ether(1_000)))

	borrower := addr(5)
	f.submit(t, BankMint("SOU", borrower, ether(10)))
	f.submit(t, ApproveModules(borrower))
	f.submit(t, LendingDepositCollateral(borrower, ether(10)))

	before := f.db.Snapshot()
	_, err := f.exec.Submit(context.Background(), LendingBorrowBase(borrower, ether(500)))
	require.ErrorIs(t, err, lending.ErrInsufficientCollateral)
	require.Equal(t, before, f.db.Snapshot())
}

func TestViewIsReadOnly(t *testing.T) {
	f := newFixture(t)
	err := f.exec.View(context.Background(), func(env *Env) error {
		return env.Bank.Mint(bank.NativeAsset, addr(9), ether(1))
	})
	require.ErrorIs(t, err, errReadOnly)
	require.Zero(t, f.db.Len())
}

func TestStakingAccruesThroughExecutorClock(t *testing.T) {
	f := newFixture(t)
	staker := addr(6)
	f.submit(t, BankMint("SOU", staker, ether(100)))
	// Fund the vault so it can pay interest.
	f.submit(t, BankMint("SOU", crypto.ModuleAddress(ModuleStaking), ether(10)))
	f.submit(t, ApproveModules(staker))
	f.submit(t, StakingDeposit(staker, ether(100)))

	f.now = f.now.Add(24 * time.Hour)
	err := f.exec.View(context.Background(), func(env *Env) error {
		pending, err := env.Staking.CalculateInterest(staker)
		if err != nil {
			return err
		}
		require.Equal(t, "13698630136986301", pending.String())
		return nil
	})
	require.NoError(t, err)

	receipt := f.submit(t, StakingWithdraw(staker, ether(100)))
	payout := receipt.Result.(*WithdrawResult).Payout
	require.Equal(t, new(big.Int).Add(ether(100), big.NewInt(13698630136986301)).String(), payout.String())
}

func TestNewExecutorRequiresDatabase(t *testing.T) {
	_, err := NewExecutor(nil, Options{})
	require.ErrorIs(t, err, errNilDatabase)
}

func TestNewExecutorKeepsCallerDeployment(t *testing.T) {
	deployment := DefaultDeployment()
	deployment.Lending.CollateralRatioBps = 20_000
	deployment.Pauses = nativecommon.NewStaticPauses("lending")

	exec, err := NewExecutor(storage.NewMemDB(), Options{Deployment: deployment})
	require.NoError(t, err)
	require.Equal(t, uint64(20_000), exec.Deployment().Lending.CollateralRatioBps)

	_, err = exec.Submit(context.Background(), LendingDepositBase(addr(1), ether(1)))
	require.ErrorIs(t, err, nativecommon.ErrModulePaused)
}

func TestNewExecutorRejectsIncompleteDeployment(t *testing.T) {
	deployment := DefaultDeployment()
	deployment.TokenAsset = ""
	_, err := NewExecutor(storage.NewMemDB(), Options{Deployment: deployment})
	require.Error(t, err)

	deployment = DefaultDeployment()
	deployment.TokenAsset = "ABC"
	_, err = NewExecutor(storage.NewMemDB(), Options{Deployment: deployment})
	require.ErrorContains(t, err, "pool token")
}
