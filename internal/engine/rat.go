package engine

import "math/big"

// Precision used for the single operation that leaves the rationals: the
// square root of root 4. 256 bits keeps the reconstructed rate well inside
// the tolerance of the exact post-checks.
const sqrtPrec = 256

var (
	ratOne  = big.NewRat(1, 1)
	ratTwo  = big.NewRat(2, 1)
	ratFour = big.NewRat(4, 1)
)

func radd(a, b *big.Rat) *big.Rat { return new(big.Rat).Add(a, b) }
func rsub(a, b *big.Rat) *big.Rat { return new(big.Rat).Sub(a, b) }
func rmul(a, b *big.Rat) *big.Rat { return new(big.Rat).Mul(a, b) }
func rinv(a *big.Rat) *big.Rat    { return new(big.Rat).Inv(a) }

// rquo divides a by b, reporting failure on a zero divisor instead of
// panicking the way big.Rat.Quo does.
func rquo(a, b *big.Rat) (*big.Rat, bool) {
	if b.Sign() == 0 {
		return nil, false
	}
	return new(big.Rat).Quo(a, b), true
}

func rmin(a, b *big.Rat) *big.Rat {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// ratSqrt approximates the square root of x as a rational, via a
// high-precision big.Float. Fails on negative x.
func ratSqrt(x *big.Rat) (*big.Rat, bool) {
	if x.Sign() < 0 {
		return nil, false
	}
	f := new(big.Float).SetPrec(sqrtPrec).SetRat(x)
	f.Sqrt(f)
	r, _ := f.Rat(nil)
	return r, true
}
