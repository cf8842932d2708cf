package swap

import (
	"math/big"

	"github.com/holiman/uint256"
)

const (
	feeNumerator   = 997
	feeDenominator = 1000
)

var (
	u256FeeNumerator   = uint256.NewInt(feeNumerator)
	u256FeeDenominator = uint256.NewInt(feeDenominator)
)

// GetInputPrice returns the output amount for inputAmount against the given
// reserves using the constant-product formula with a 0.3% input fee:
//
//	out = in*997*outRes / (inRes*1000 + in*997)
//
// Division truncates. Every intermediate is checked against the 256-bit range.
func GetInputPrice(inputAmount, inputReserve, outputReserve *big.Int) (*big.Int, error) {
	if inputReserve == nil || outputReserve == nil || inputReserve.Sign() == 0 || outputReserve.Sign() == 0 {
		return nil, ErrInvalidReserves
	}
	in, err := toU256(inputAmount)
	if err != nil {
		return nil, err
	}
	inRes, err := toU256(inputReserve)
	if err != nil {
		return nil, err
	}
	outRes, err := toU256(outputReserve)
	if err != nil {
		return nil, err
	}

	inWithFee, overflow := new(uint256.Int).MulOverflow(in, u256FeeNumerator)
	if overflow {
		return nil, ErrOverflow
	}
	numerator, overflow := new(uint256.Int).MulOverflow(inWithFee, outRes)
	if overflow {
		return nil, ErrOverflow
	}
	denominator, overflow := new(uint256.Int).MulOverflow(inRes, u256FeeDenominator)
	if overflow {
		return nil, ErrOverflow
	}
	if _, overflow = denominator.AddOverflow(denominator, inWithFee); overflow {
		return nil, ErrOverflow
	}
	return new(uint256.Int).Div(numerator, denominator).ToBig(), nil
}

// mulDiv returns floor(a*b/d) with the product checked against 256 bits.
func mulDiv(a, b, d *big.Int) (*big.Int, error) {
	x, err := toU256(a)
	if err != nil {
		return nil, err
	}
	y, err := toU256(b)
	if err != nil {
		return nil, err
	}
	if _, overflow := new(uint256.Int).MulOverflow(x, y); overflow {
		return nil, ErrOverflow
	}
	z, err := toU256(d)
	if err != nil {
		return nil, err
	}
	if z.IsZero() {
		return nil, ErrInvalidReserves
	}
	out, _ := new(uint256.Int).MulDivOverflow(x, y, z)
	return out.ToBig(), nil
}

// add256 returns a+b, failing when the sum leaves the 256-bit range.
func add256(a, b *big.Int) (*big.Int, error) {
	x, err := toU256(a)
	if err != nil {
		return nil, err
	}
	y, err := toU256(b)
	if err != nil {
		return nil, err
	}
	sum, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, ErrOverflow
	}
	return sum.ToBig(), nil
}

func toU256(v *big.Int) (*uint256.Int, error) {
	if v == nil {
		return new(uint256.Int), nil
	}
	if v.Sign() < 0 {
		return nil, ErrNegativeAmount
	}
	out, overflow := uint256.FromBig(v)
	if overflow {
		return nil, ErrOverflow
	}
	return out, nil
}
