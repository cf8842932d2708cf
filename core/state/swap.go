package state

import (
	"math/big"

	"soudefi/crypto"
	"soudefi/native/swap"
)

type storedPool struct {
	ReserveBase  *big.Int
	ReserveToken *big.Int
	TotalShares  *big.Int
}

// SwapPool loads the pool aggregate. An absent record yields an
// uninitialized pool.
func (m *Manager) SwapPool() (*swap.Pool, error) {
	var stored storedPool
	ok, err := m.KVGet(swapPoolKeyBytes, &stored)
	if err != nil {
		return nil, err
	}
	pool := swap.NewPool()
	if !ok {
		return pool, nil
	}
	pool.ReserveBase = cloneOrZero(stored.ReserveBase)
	pool.ReserveToken = cloneOrZero(stored.ReserveToken)
	pool.TotalShares = cloneOrZero(stored.TotalShares)
	return pool, nil
}

// PutSwapPool persists the pool aggregate.
func (m *Manager) PutSwapPool(pool *swap.Pool) error {
	if pool == nil {
		pool = swap.NewPool()
	}
	normalized := pool.Clone()
	return m.KVPut(swapPoolKeyBytes, storedPool{
		ReserveBase:  normalized.ReserveBase,
		ReserveToken: normalized.ReserveToken,
		TotalShares:  normalized.TotalShares,
	})
}

// SwapShares returns the provider's liquidity share balance.
func (m *Manager) SwapShares(addr crypto.Address) (*big.Int, error) {
	return m.readAmount(SwapSharesKey(addr.Bytes()))
}

// PutSwapShares stores the provider's share balance and records the provider
// in the append-only provider index the first time it holds shares.
func (m *Manager) PutSwapShares(addr crypto.Address, shares *big.Int) error {
	if err := m.writeAmount(SwapSharesKey(addr.Bytes()), shares); err != nil {
		return err
	}
	if shares == nil || shares.Sign() == 0 {
		return nil
	}
	_, err := m.KVAppend(swapProvidersKeyBytes, []byte(addr.String()))
	return err
}

// SwapProviders lists every address that has held pool shares.
func (m *Manager) SwapProviders() ([]crypto.Address, error) {
	return m.addressList(swapProvidersKeyBytes)
}

func (m *Manager) addressList(key []byte) ([]crypto.Address, error) {
	var raw [][]byte
	if err := m.KVGetList(key, &raw); err != nil {
		return nil, err
	}
	out := make([]crypto.Address, 0, len(raw))
	for _, entry := range raw {
		addr, err := crypto.DecodeAddress(string(entry))
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}
