package encode

import (
	"context"
	"fmt"
	"strings"

	"github.com/FelixaHub/mipverify/mip"
)

// Norm selects the perturbation norm.
type Norm int

const (
	L1 Norm = iota
	L2
	LInf
)

func (n Norm) String() string {
	switch n {
	case L1:
		return "l1"
	case L2:
		return "l2"
	default:
		return "linf"
	}
}

func (n Norm) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

// ParseNorm accepts 1, 2, inf and their l-prefixed forms.
func ParseNorm(s string) (Norm, error) {
	switch strings.TrimPrefix(strings.ToLower(s), "l") {
	case "1":
		return L1, nil
	case "2":
		return L2, nil
	case "inf", "∞":
		return LInf, nil
	}
	return 0, fmt.Errorf("encode: unknown norm %q", s)
}

// NormObjective encodes the norm of xs as a linear part plus diagonal
// quadratic terms, ready for Model.SetQuadObjective.
//
//	L1:  Σ |x_i| with loose absolute values
//	L2:  Σ x_i², quadratic, no binaries
//	L∞:  maximum over loose |x_i|
func (e *Encoder) NormObjective(ctx context.Context, xs []mip.Expr, n Norm) (mip.Expr, []mip.QuadTerm, error) {
	m := e.Model
	if err := m.Owns(xs...); err != nil {
		return mip.Expr{}, nil, err
	}

	switch n {
	case L1:
		abs := make([]mip.Expr, len(xs))
		coefs := make([]float64, len(xs))
		for i, x := range xs {
			a, err := e.AbsLoose(x)
			if err != nil {
				return mip.Expr{}, nil, err
			}
			abs[i], coefs[i] = a, 1
		}
		sum, err := mip.Sum(coefs, abs, 0)
		return sum, nil, err

	case L2:
		linear := mip.Constant(0)
		quad := make([]mip.QuadTerm, 0, len(xs))
		for _, x := range xs {
			if x.IsConstant() {
				linear = linear.AddConst(x.Const * x.Const)
				continue
			}
			v, err := e.bareVar(x)
			if err != nil {
				return mip.Expr{}, nil, err
			}
			quad = append(quad, mip.QuadTerm{Var: v, Coef: 1})
		}
		return linear, quad, nil

	case LInf:
		abs := make([]mip.Expr, len(xs))
		for i, x := range xs {
			a, err := e.AbsLoose(x)
			if err != nil {
				return mip.Expr{}, nil, err
			}
			abs[i] = a
		}
		mx, err := e.Max(ctx, abs)
		return mx, nil, err
	}
	return mip.Expr{}, nil, fmt.Errorf("encode: unknown norm %d", n)
}

// bareVar returns the variable x consists of, introducing y = x when x is
// a general expression.
func (e *Encoder) bareVar(x mip.Expr) (mip.Var, error) {
	if len(x.Terms) == 1 && x.Terms[0].Coef == 1 && x.Const == 0 {
		return x.Terms[0].Var, nil
	}
	m := e.Model
	iv := m.Interval(x)
	y := m.AddVar("norm_aux", mip.Continuous, iv.Lo, iv.Hi)
	if err := m.AddEQ(m.Expr(y), x); err != nil {
		return 0, err
	}
	return y, nil
}
