package encode

import (
	"context"
	"errors"
	"math"

	"github.com/FelixaHub/mipverify/mip"
)

// Max encodes the maximum of xs.
//
// Candidates whose upper bound does not exceed the best lower bound among
// the others can never be the unique maximizer and are discarded before
// any indicator is allocated. A single survivor is returned as is. Each
// remaining candidate i gets an indicator a_i with
//
//	out ≤ x_i + (1−a_i)·(max_{j≠i} u_j − l_i),  out ≥ x_i,  Σ a_i = 1
func (e *Encoder) Max(ctx context.Context, xs []mip.Expr) (mip.Expr, error) {
	switch len(xs) {
	case 0:
		return mip.Expr{}, errors.New("encode: maximum of no values")
	case 1:
		return xs[0], nil
	}
	m := e.Model
	if err := m.Owns(xs...); err != nil {
		return mip.Expr{}, err
	}

	constant := true
	for _, x := range xs {
		constant = constant && x.IsConstant()
	}
	if constant {
		vals := make([]float64, len(xs))
		for i, x := range xs {
			vals[i] = x.Const
		}
		return mip.Constant(Max(vals)), nil
	}
	e.stats.Maxes++

	ivs := make([]mip.Interval, len(xs))
	best := 0
	for i, x := range xs {
		ivs[i] = e.Oracle.Tighten(ctx, m, x)
		if ivs[i].Lo > ivs[best].Lo {
			best = i
		}
	}
	bestLo := ivs[best].Lo

	keep := make([]int, 0, len(xs))
	for i := range xs {
		if i == best || ivs[i].Hi > bestLo {
			keep = append(keep, i)
		}
	}
	e.stats.Pruned += len(xs) - len(keep)
	if len(keep) == 1 {
		return xs[keep[0]], nil
	}

	hi := math.Inf(-1)
	for _, i := range keep {
		if err := finite(ivs[i], "maximum candidate"); err != nil {
			return mip.Expr{}, err
		}
		hi = max(hi, ivs[i].Hi)
	}

	out := m.NewVar("max", mip.Continuous, bestLo, hi)
	indicators := mip.Constant(0)
	for _, i := range keep {
		others := math.Inf(-1)
		for _, j := range keep {
			if j != i {
				others = max(others, ivs[j].Hi)
			}
		}
		big := others - ivs[i].Lo

		a := e.indicator("max_select")
		indicators = indicators.Plus(a)
		err := constrain(m,
			le(out, xs[i].AddConst(big).Minus(a.Scale(big))),
			ge(out, xs[i]),
		)
		if err != nil {
			return mip.Expr{}, err
		}
	}
	if err := m.AddEQ(indicators, mip.Constant(1)); err != nil {
		return mip.Expr{}, err
	}
	return out, nil
}
