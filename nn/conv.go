// Modul: conv.go - Faltung mit gleicher Ausgabegroesse
// Enthaelt: Conv2D, Pool
package nn

import (
	"context"
	"fmt"

	"github.com/FelixaHub/mipverify/tensor"
)

// offset returns the 1-based center offset ceil(k/2) used by the exporting
// framework for a kernel dimension k, including even k.
func offset(k int) int {
	return (k + 1) / 2
}

// Conv2D correlates x of shape (batch, height, width, in) with p and adds
// the bias. The output has the input's spatial size; positions outside the
// input count as zero.
//
// Output row i reads input rows i + m + 1 − ceil(h/2) for kernel rows m
// (0-based i and m), and the same for columns.
func Conv2D[T any](r tensor.Ring[T], x *tensor.Tensor[T], p *Conv2DParams) (*tensor.Tensor[T], error) {
	if x.Dims() != 4 {
		return nil, fmt.Errorf("%w: conv2d input needs 4 dimensions, got %v", tensor.ErrShapeMismatch, x.Shape)
	}
	batch, height, width, in := x.Shape[0], x.Shape[1], x.Shape[2], x.Shape[3]
	if in != p.InChannels() {
		return nil, fmt.Errorf("%w: conv2d input has %d channels, filter expects %d", tensor.ErrShapeMismatch, in, p.InChannels())
	}

	fh, fw, out := p.Height(), p.Width(), p.OutChannels()
	oh, ow := offset(fh), offset(fw)
	y := tensor.New[T](batch, height, width, out)

	weights := make([]float64, 0, fh*fw*in)
	inputs := make([]T, 0, fh*fw*in)
	for b := range batch {
		for i := range height {
			for j := range width {
				for l := range out {
					weights, inputs = weights[:0], inputs[:0]
					for m := range fh {
						xi := i + m + 1 - oh
						if xi < 0 || xi >= height {
							continue
						}
						for n := range fw {
							xj := j + n + 1 - ow
							if xj < 0 || xj >= width {
								continue
							}
							for o := range in {
								weights = append(weights, p.Filter.At(m, n, o, l))
								inputs = append(inputs, x.At(b, xi, xj, o))
							}
						}
					}
					v, err := r.Affine(weights, inputs, p.Bias[l])
					if err != nil {
						return nil, err
					}
					y.Set(v, b, i, j, l)
				}
			}
		}
	}
	return y, nil
}

// Pool takes the maximum over non-overlapping windows of x. The window of
// output index k along a dimension with stride s covers [k·s, min((k+1)·s, n)).
func Pool[T any](ctx context.Context, ops Ops[T], x *tensor.Tensor[T], p *PoolParams) (*tensor.Tensor[T], error) {
	if x.Dims() != 4 {
		return nil, fmt.Errorf("%w: pool input needs 4 dimensions, got %v", tensor.ErrShapeMismatch, x.Shape)
	}
	shape := p.OutputShape(x.Shape)
	y := tensor.New[T](shape...)

	idx := make([]int, 4)
	window := make([]T, 0)
	for k := range y.Len() {
		// decompose k into the output index, row-major
		rem := k
		for d := 3; d >= 0; d-- {
			idx[d] = rem % shape[d]
			rem /= shape[d]
		}

		window = window[:0]
		lo, hi := [4]int{}, [4]int{}
		for d := range 4 {
			lo[d] = idx[d] * p.Strides[d]
			hi[d] = min(lo[d]+p.Strides[d], x.Shape[d])
		}
		for a := lo[0]; a < hi[0]; a++ {
			for b := lo[1]; b < hi[1]; b++ {
				for c := lo[2]; c < hi[2]; c++ {
					for d := lo[3]; d < hi[3]; d++ {
						window = append(window, x.At(a, b, c, d))
					}
				}
			}
		}

		v, err := ops.Max(ctx, window)
		if err != nil {
			return nil, err
		}
		y.Data[k] = v
	}
	return y, nil
}
