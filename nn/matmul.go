package nn

import (
	"fmt"

	"github.com/FelixaHub/mipverify/tensor"
)

// MatMul returns matrix·x + bias for a vector x.
func MatMul[T any](r tensor.Ring[T], x []T, p *MatMulParams) ([]T, error) {
	if len(x) != p.Cols() {
		return nil, fmt.Errorf("%w: matmul input has %d elements, matrix has %d columns", tensor.ErrShapeMismatch, len(x), p.Cols())
	}
	y := make([]T, p.Rows())
	for i := range y {
		v, err := r.Affine(p.Row(i), x, p.Bias[i])
		if err != nil {
			return nil, err
		}
		y[i] = v
	}
	return y, nil
}
