package tensor

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Ring is the arithmetic the affine layer evaluators need from an element
// type. Implementations for symbolic elements only build expressions; they
// never add decision variables or constraints.
type Ring[T any] interface {
	// Const lifts a concrete number into the element type.
	Const(c float64) T

	// Affine returns Σ weights[i]·xs[i] + bias.
	Affine(weights []float64, xs []T, bias float64) (T, error)
}

// Float is the concrete Ring over float64.
type Float struct{}

func (Float) Const(c float64) float64 { return c }

func (Float) Affine(weights []float64, xs []float64, bias float64) (float64, error) {
	if len(weights) != len(xs) {
		return 0, fmt.Errorf("%w: %d weights for %d inputs", ErrShapeMismatch, len(weights), len(xs))
	}
	if len(xs) == 0 {
		return bias, nil
	}
	return floats.Dot(weights, xs) + bias, nil
}
