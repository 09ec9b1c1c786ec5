package encode

import (
	"context"

	"github.com/FelixaHub/mipverify/mip"
)

// ReLU encodes max(0, x).
func (e *Encoder) ReLU(ctx context.Context, x mip.Expr) (mip.Expr, error) {
	out, slack, err := e.ReLUWithSlack(ctx, x)
	if err != nil {
		return mip.Expr{}, err
	}
	if e.Slack != nil && !slack.IsConstant() {
		e.Slack.Add(slack)
	}
	return out, nil
}

// ReLUWithSlack encodes max(0, x) and also returns the tightness slack
// out − x·u/(u−l) of a mixed rectification (the constant 0 otherwise).
//
// With bounds [l, u] on x:
//
//	u ≤ 0: out = 0
//	l ≥ 0: out = x
//	else:  out ≤ x − l·(1−a), out ≥ x, out ≤ u·a, out ≥ 0, a binary
func (e *Encoder) ReLUWithSlack(ctx context.Context, x mip.Expr) (out, slack mip.Expr, err error) {
	if x.IsConstant() {
		return mip.Constant(ReLU(x.Const)), mip.Constant(0), nil
	}
	m := e.Model
	if err := m.Owns(x); err != nil {
		return mip.Expr{}, mip.Expr{}, err
	}
	e.stats.ReLUs++

	iv := e.Oracle.TightenSign(ctx, m, x)
	switch {
	case iv.Hi <= 0:
		return mip.Constant(0), mip.Constant(0), nil
	case iv.Lo >= 0:
		return x, mip.Constant(0), nil
	}
	if err := finite(iv, "relu"); err != nil {
		return mip.Expr{}, mip.Expr{}, err
	}

	e.stats.MixedReLUs++
	l, u := iv.Lo, iv.Hi
	out = m.NewVar("relu", mip.Continuous, 0, u)
	a := e.indicator("relu_active")

	// x − l·(1−a) = x − l + l·a
	err = constrain(m,
		le(out, x.AddConst(-l).Plus(a.Scale(l))),
		ge(out, x),
		le(out, a.Scale(u)),
	)
	if err != nil {
		return mip.Expr{}, mip.Expr{}, err
	}
	return out, out.Minus(x.Scale(u / (u - l))), nil
}
