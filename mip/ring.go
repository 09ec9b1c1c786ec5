package mip

import (
	"fmt"

	"github.com/FelixaHub/mipverify/tensor"
)

// Ring is the symbolic tensor.Ring. It builds affine expressions over the
// variables of M and rejects expressions of any other model. It never adds
// variables or constraints.
type Ring struct {
	M *Model
}

var _ tensor.Ring[Expr] = Ring{}

func (r Ring) Const(c float64) Expr {
	return Constant(c)
}

func (r Ring) Affine(weights []float64, xs []Expr, bias float64) (Expr, error) {
	if len(weights) != len(xs) {
		return Expr{}, fmt.Errorf("%w: %d weights for %d inputs", tensor.ErrShapeMismatch, len(weights), len(xs))
	}
	if err := r.M.Owns(xs...); err != nil {
		return Expr{}, err
	}
	l := linear{m: r.M, coefs: make(map[Var]float64), k: bias}
	for i, x := range xs {
		if err := l.add(weights[i], x); err != nil {
			return Expr{}, err
		}
	}
	return l.expr(), nil
}

// Lift converts a concrete tensor into constant expressions.
func Lift(t *tensor.Tensor[float64]) *tensor.Tensor[Expr] {
	return tensor.Map(t, Constant)
}

// Values evaluates every element of t at values.
func Values(t *tensor.Tensor[Expr], values []float64) *tensor.Tensor[float64] {
	return tensor.Map(t, func(e Expr) float64 { return e.Value(values) })
}
