package gasprice

import (
	"context"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ratOne  = big.NewRat(1, 1)
	ratHalf = big.NewRat(1, 2)
)

// Escalate returns initial * coefficient^n, rounded half up and capped at
// ceiling, where n is the number of whole steps that fit in elapsed.
//
// The power is taken in exact rational arithmetic and rounded once, so the
// result matches the closed form for any number of steps. The cap applies
// even when no step has completed yet.
func Escalate(initial *big.Int, elapsed, step time.Duration, coefficient decimal.Decimal, ceiling *big.Int) *big.Int {
	var n uint64
	if step > 0 && elapsed > 0 {
		n = uint64(elapsed / step)
	}

	price := new(big.Rat).SetInt(initial)
	if n > 0 {
		price = power(price, coefficient.Rat(), n, new(big.Rat).SetInt(ceiling))
	}

	out := roundHalfUp(price)
	if out.Cmp(ceiling) > 0 {
		return new(big.Int).Set(ceiling)
	}
	return out
}

// power computes x * c^n by repeated squaring. It stops early once the answer
// is known to lie above limit (c > 1) or to round to zero (c < 1); in those
// cases the returned value is only guaranteed to be on the right side of the
// bound.
func power(x, c *big.Rat, n uint64, limit *big.Rat) *big.Rat {
	if x.Sign() == 0 {
		return x
	}

	growing := c.Cmp(ratOne) > 0
	shrinking := c.Cmp(ratOne) < 0
	if !growing && !shrinking {
		return x
	}

	result := new(big.Rat).Set(x)
	base := new(big.Rat).Set(c)

	for n > 0 {
		if n&1 == 1 {
			result.Mul(result, base)
		}
		n >>= 1

		// Bases only move further from one, and the top bit of n is always
		// set, so the rest of the product is bounded by x * base.
		if growing {
			if result.Cmp(limit) > 0 {
				return result
			}
			if n > 0 && new(big.Rat).Mul(x, base).Cmp(limit) > 0 {
				return new(big.Rat).Add(limit, ratOne)
			}
		} else {
			if result.Cmp(ratHalf) < 0 {
				return new(big.Rat)
			}
			if n > 0 && new(big.Rat).Mul(x, base).Cmp(ratHalf) < 0 {
				return new(big.Rat)
			}
		}

		if n > 0 {
			base.Mul(base, base)
		}
	}

	return result
}

// roundHalfUp rounds a non-negative rational to the nearest integer, with
// halves going up.
func roundHalfUp(r *big.Rat) *big.Int {
	num := new(big.Int).Mul(r.Num(), big.NewInt(2))
	num.Add(num, r.Denom())
	den := new(big.Int).Mul(r.Denom(), big.NewInt(2))
	return num.Div(num, den)
}

// Multiply scales price by m, rounding half up.
func Multiply(price *big.Int, m decimal.Decimal) *big.Int {
	r := new(big.Rat).SetInt(price)
	return roundHalfUp(r.Mul(r, m.Rat()))
}

// Geometric escalates whatever price its baseline strategy produces.
type Geometric struct {
	baseline    Strategy
	step        time.Duration
	coefficient decimal.Decimal
	maximum     *big.Int
}

func NewGeometric(baseline Strategy, step time.Duration, coefficient decimal.Decimal, maximum *big.Int) *Geometric {
	return &Geometric{
		baseline:    baseline,
		step:        step,
		coefficient: coefficient,
		maximum:     maximum,
	}
}

// GasPrice asks the baseline for its price at zero elapsed time and then
// escalates it.
func (g *Geometric) GasPrice(ctx context.Context, elapsed time.Duration) (*big.Int, error) {
	initial, err := g.baseline.GasPrice(ctx, 0)
	if err != nil {
		return nil, err
	}

	return Escalate(initial, elapsed, g.step, g.coefficient, g.maximum), nil
}
