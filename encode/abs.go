package encode

import (
	"context"
	"math"

	"github.com/FelixaHub/mipverify/mip"
)

// AbsLoose encodes out ≥ |x| with out ≥ x and out ≥ −x only. The value is
// exact wherever the objective minimizes out.
func (e *Encoder) AbsLoose(x mip.Expr) (mip.Expr, error) {
	if x.IsConstant() {
		return mip.Constant(math.Abs(x.Const)), nil
	}
	m := e.Model
	if err := m.Owns(x); err != nil {
		return mip.Expr{}, err
	}
	e.stats.LooseAbses++

	iv := m.Interval(x)
	lo := 0.0
	switch {
	case iv.Lo > 0:
		lo = iv.Lo
	case iv.Hi < 0:
		lo = -iv.Hi
	}
	out := m.NewVar("abs", mip.Continuous, lo, max(math.Abs(iv.Lo), math.Abs(iv.Hi)))
	if err := constrain(m, ge(out, x), ge(out, x.Scale(-1))); err != nil {
		return mip.Expr{}, err
	}
	return out, nil
}

// AbsStrict encodes out = |x| exactly. With bounds [l, u] on x:
//
//	u < 0: out = −x
//	l > 0: out = x
//	else:  out ≤ x + 2·(−l)·(1−a), out ≥ x, out ≤ −x + 2·u·a, out ≥ −x
func (e *Encoder) AbsStrict(ctx context.Context, x mip.Expr) (mip.Expr, error) {
	if x.IsConstant() {
		return mip.Constant(math.Abs(x.Const)), nil
	}
	m := e.Model
	if err := m.Owns(x); err != nil {
		return mip.Expr{}, err
	}
	e.stats.StrictAbses++

	iv := e.Oracle.TightenSign(ctx, m, x)
	switch {
	case iv.Hi < 0:
		return x.Scale(-1), nil
	case iv.Lo > 0:
		return x, nil
	}
	if err := finite(iv, "abs"); err != nil {
		return mip.Expr{}, err
	}

	l, u := iv.Lo, iv.Hi
	out := m.NewVar("abs", mip.Continuous, 0, max(-l, u))
	a := e.indicator("abs_positive")

	// x + 2·(−l)·(1−a) = x − 2l + 2l·a
	err := constrain(m,
		le(out, x.AddConst(-2*l).Plus(a.Scale(2*l))),
		ge(out, x),
		le(out, x.Scale(-1).Plus(a.Scale(2*u))),
		ge(out, x.Scale(-1)),
	)
	if err != nil {
		return mip.Expr{}, err
	}
	return out, nil
}
