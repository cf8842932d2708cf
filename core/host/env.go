package host

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"soudefi/core/events"
	"soudefi/core/state"
	"soudefi/crypto"
	"soudefi/native/bank"
	nativecommon "soudefi/native/common"
	"soudefi/native/lending"
	"soudefi/native/staking"
	"soudefi/native/swap"
	"soudefi/storage"
)

// Module names double as the seeds for the module account addresses.
const (
	ModuleSwap     = "swap"
	ModuleLending  = "lending"
	ModuleStaking  = "staking"
	ModuleTreasury = "treasury"
)

var errReadOnly = errors.New("host: state is read-only inside View")

// Deployment fixes the engine parameters of a running instance.
type Deployment struct {
	// TokenAsset is the non-native side of the swap pool.
	TokenAsset     string
	Lending        lending.Params
	StakingAsset   string
	StakingRateBps uint64
	Pauses         nativecommon.PauseView
}

// DefaultDeployment mirrors the reference contracts: a SOU/NATIVE pool, a
// USD lending market collateralised by SOU, and a 5% SOU staking vault.
func DefaultDeployment() Deployment {
	params := lending.DefaultParams("USD", "SOU")
	return Deployment{
		TokenAsset:     "SOU",
		Lending:        params,
		StakingAsset:   "SOU",
		StakingRateBps: staking.DefaultRateBps,
	}
}

// Validate checks that the modules of d can be wired together. Lending values
// collateral against the swap pool, so the collateral must be the pool token.
func (d Deployment) Validate() error {
	token := strings.TrimSpace(d.TokenAsset)
	if token == "" {
		return errors.New("host: swap token asset required")
	}
	if strings.TrimSpace(d.StakingAsset) == "" {
		return errors.New("host: staking asset required")
	}
	if !strings.EqualFold(strings.TrimSpace(d.Lending.CollateralAsset), token) {
		return fmt.Errorf("host: lending collateral %q must be the pool token %q", d.Lending.CollateralAsset, d.TokenAsset)
	}
	if err := d.Lending.Validate(); err != nil {
		return fmt.Errorf("host: lending params: %w", err)
	}
	return nil
}

// isZero reports whether d was left unset by the caller.
func (d Deployment) isZero() bool {
	return d.TokenAsset == "" &&
		d.StakingAsset == "" &&
		d.StakingRateBps == 0 &&
		d.Pauses == nil &&
		d.Lending.BaseAsset == "" &&
		d.Lending.CollateralAsset == "" &&
		d.Lending.CollateralRatioBps == 0
}

// Env is the per-submission execution environment. Every engine is bound to
// the same write buffer and event recorder, so a failed call leaves nothing
// behind.
type Env struct {
	Ctx     context.Context
	TxID    string
	Now     uint64
	State   *state.Manager
	Bank    *bank.Ledger
	Swap    *swap.Engine
	Lending *lending.Engine
	Staking *staking.Engine
}

func (x *Executor) newEnv(ctx context.Context, store storage.Store, txID string, now uint64, emitter events.Emitter) *Env {
	mgr := state.NewManager(store)
	ledger := bank.NewLedger(mgr)
	ledger.SetEmitter(emitter)

	pool := swap.NewEngine(crypto.ModuleAddress(ModuleSwap), x.deployment.TokenAsset)
	pool.SetState(mgr)
	pool.SetBank(ledger)
	pool.SetEmitter(emitter)
	pool.SetPauses(x.deployment.Pauses)

	lend := lending.NewEngine(crypto.ModuleAddress(ModuleLending), x.deployment.Lending, pool)
	lend.SetState(mgr)
	lend.SetBank(ledger)
	lend.SetEmitter(emitter)
	lend.SetPauses(x.deployment.Pauses)
	lend.SetNow(now)

	vault := staking.NewEngine(crypto.ModuleAddress(ModuleStaking), x.deployment.StakingAsset, x.deployment.StakingRateBps)
	vault.SetState(mgr)
	vault.SetBank(ledger)
	vault.SetEmitter(emitter)
	vault.SetPauses(x.deployment.Pauses)
	vault.SetNow(now)

	return &Env{
		Ctx:     ctx,
		TxID:    txID,
		Now:     now,
		State:   mgr,
		Bank:    ledger,
		Swap:    pool,
		Lending: lend,
		Staking: vault,
	}
}

// readOnlyStore rejects writes so View callbacks cannot mutate committed state.
type readOnlyStore struct {
	storage.Reader
}

func (readOnlyStore) Put([]byte, []byte) error { return errReadOnly }

func (readOnlyStore) Delete([]byte) error { return errReadOnly }
