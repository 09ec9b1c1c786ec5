package encode

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// ReLU returns max(0, x).
func ReLU(x float64) float64 {
	return max(0, x)
}

// Abs returns |x|.
func Abs(x float64) float64 {
	return math.Abs(x)
}

// Max returns the largest element of xs. It panics on an empty slice.
func Max(xs []float64) float64 {
	return floats.Max(xs)
}

// Argmax returns the index of the largest element, the first on ties.
func Argmax(xs []float64) int {
	return floats.MaxIdx(xs)
}

// NormValue returns the norm of xs.
func NormValue(xs []float64, n Norm) float64 {
	if len(xs) == 0 {
		return 0
	}
	switch n {
	case L1:
		return floats.Norm(xs, 1)
	case L2:
		return floats.Norm(xs, 2)
	default:
		return floats.Norm(xs, math.Inf(1))
	}
}
