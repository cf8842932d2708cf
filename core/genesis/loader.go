// core/genesis/loader.go
package genesis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"soudefi/core/host"
)

// ErrGenesisMismatch is returned when the store was initialised from a
// different document.
var ErrGenesisMismatch = errors.New("genesis: store initialised from a different document")

// Hash is the keccak256 of the canonical JSON rendering of the document.
func (d *Document) Hash() ([]byte, error) {
	encoded, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode genesis: %w", err)
	}
	return ethcrypto.Keccak256(encoded), nil
}

// Apply seeds an empty store in one submission: allocations first, then the
// pool. Applying the same document again is a no-op.
func Apply(ctx context.Context, exec *host.Executor, doc *Document) (applied bool, err error) {
	if exec == nil || doc == nil {
		return false, fmt.Errorf("genesis: executor and document required")
	}
	if err := doc.Validate(); err != nil {
		return false, err
	}
	hash, err := doc.Hash()
	if err != nil {
		return false, err
	}

	var existing []byte
	if err := exec.View(ctx, func(env *host.Env) error {
		existing, err = env.State.GenesisHash()
		return err
	}); err != nil {
		return false, err
	}
	if len(existing) > 0 {
		if !bytes.Equal(existing, hash) {
			return false, ErrGenesisMismatch
		}
		return false, nil
	}

	_, err = exec.Submit(ctx, host.Call{Op: "genesis", Run: func(env *host.Env) (any, error) {
		for _, a := range doc.alloc {
			if err := env.Bank.Mint(a.asset, a.addr, a.amount); err != nil {
				return nil, fmt.Errorf("alloc %s %s: %w", a.addr, a.asset, err)
			}
		}
		if seed := doc.pool; seed != nil {
			if _, err := host.ApproveModules(seed.provider).Run(env); err != nil {
				return nil, err
			}
			if err := env.Swap.Init(seed.provider, seed.token, seed.native); err != nil {
				return nil, fmt.Errorf("seed pool: %w", err)
			}
		}
		return nil, env.State.SetGenesisHash(hash)
	}})
	if err != nil {
		return false, err
	}
	return true, nil
}
