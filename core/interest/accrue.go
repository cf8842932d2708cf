// Package interest implements the lazy simple-interest primitive shared by
// the lending engine and the staking vault. Nothing here reads a clock;
// callers pass both timestamps.
package interest

import "math/big"

// SecondsPerYear is the accrual year used by every rate.
const SecondsPerYear = 31_536_000

const basisPoints = 10_000

var denominator = big.NewInt(basisPoints * SecondsPerYear)

// Interest returns principal * rateBps * (now-last) / (10_000 * SecondsPerYear),
// rounded down. It is zero when now <= last, the principal is nil or zero, or
// the rate is zero.
func Interest(principal *big.Int, rateBps uint64, last, now uint64) *big.Int {
	if principal == nil || principal.Sign() <= 0 || rateBps == 0 || now <= last {
		return big.NewInt(0)
	}
	elapsed := new(big.Int).SetUint64(now - last)
	out := new(big.Int).Mul(principal, new(big.Int).SetUint64(rateBps))
	out.Mul(out, elapsed)
	return out.Quo(out, denominator)
}

// Accrue returns principal plus the interest earned between last and now. The
// input is never mutated.
func Accrue(principal *big.Int, rateBps uint64, last, now uint64) *big.Int {
	out := new(big.Int)
	if principal != nil {
		out.Set(principal)
	}
	return out.Add(out, Interest(principal, rateBps, last, now))
}
