package swap

import "math/big"

// Status is the pool lifecycle state.
type Status uint8

const (
	// StatusUninitialized is the state before Init has seeded reserves.
	StatusUninitialized Status = iota
	// StatusActive is entered once by Init and never left.
	StatusActive
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	default:
		return "uninitialized"
	}
}

// Pool is the two-asset reserve aggregate. ReserveBase is denominated in the
// native currency and ReserveToken in the paired token.
type Pool struct {
	ReserveBase  *big.Int
	ReserveToken *big.Int
	TotalShares  *big.Int
}

// NewPool returns a zero-valued (uninitialized) pool.
func NewPool() *Pool {
	return &Pool{
		ReserveBase:  big.NewInt(0),
		ReserveToken: big.NewInt(0),
		TotalShares:  big.NewInt(0),
	}
}

// Clone returns a deep copy of the pool.
func (p *Pool) Clone() *Pool {
	if p == nil {
		return nil
	}
	out := NewPool()
	if p.ReserveBase != nil {
		out.ReserveBase.Set(p.ReserveBase)
	}
	if p.ReserveToken != nil {
		out.ReserveToken.Set(p.ReserveToken)
	}
	if p.TotalShares != nil {
		out.TotalShares.Set(p.TotalShares)
	}
	return out
}

// Status derives the lifecycle state from the share supply.
func (p *Pool) Status() Status {
	if p == nil || p.TotalShares == nil || p.TotalShares.Sign() == 0 {
		return StatusUninitialized
	}
	return StatusActive
}

// Product returns ReserveBase * ReserveToken.
func (p *Pool) Product() *big.Int {
	if p == nil || p.ReserveBase == nil || p.ReserveToken == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Mul(p.ReserveBase, p.ReserveToken)
}

func (p *Pool) ensure() {
	if p.ReserveBase == nil {
		p.ReserveBase = big.NewInt(0)
	}
	if p.ReserveToken == nil {
		p.ReserveToken = big.NewInt(0)
	}
	if p.TotalShares == nil {
		p.TotalShares = big.NewInt(0)
	}
}
