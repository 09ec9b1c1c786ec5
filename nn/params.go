// Package nn describes a feed-forward network as an immutable chain of
// layers and evaluates it over any element type: concrete float64 for
// inference, symbolic expressions for building the mixed-integer model.
package nn

import (
	"errors"
	"fmt"

	"github.com/FelixaHub/mipverify/tensor"
)

// ErrDimensionIncompatibility is returned when chained layers disagree on
// the size of the tensor passed between them.
var ErrDimensionIncompatibility = errors.New("dimension incompatibility")

// Conv2DParams holds a convolution filter of shape (height, width,
// in-channels, out-channels) and one bias per out-channel.
type Conv2DParams struct {
	Filter *tensor.Tensor[float64]
	Bias   []float64
}

// NewConv2DParams validates and wraps filter data of the given shape.
func NewConv2DParams(filter []float64, shape [4]int, bias []float64) (*Conv2DParams, error) {
	f, err := tensor.FromSlice(filter, shape[:]...)
	if err != nil {
		return nil, fmt.Errorf("conv2d filter: %w", err)
	}
	if len(bias) != shape[3] {
		return nil, fmt.Errorf("%w: conv2d bias has %d elements, filter has %d out-channels", tensor.ErrShapeMismatch, len(bias), shape[3])
	}
	return &Conv2DParams{Filter: f, Bias: bias}, nil
}

func (p *Conv2DParams) Height() int      { return p.Filter.Shape[0] }
func (p *Conv2DParams) Width() int       { return p.Filter.Shape[1] }
func (p *Conv2DParams) InChannels() int  { return p.Filter.Shape[2] }
func (p *Conv2DParams) OutChannels() int { return p.Filter.Shape[3] }

// PoolParams holds one stride per dimension of a (batch, height, width,
// channels) tensor. Windows do not overlap; the last window along a
// dimension is truncated at the tensor edge, never padded.
type PoolParams struct {
	Strides [4]int
}

// NewPoolParams validates strides.
func NewPoolParams(strides ...int) (*PoolParams, error) {
	if len(strides) != 4 {
		return nil, fmt.Errorf("%w: pool needs 4 strides, got %d", tensor.ErrShapeMismatch, len(strides))
	}
	var p PoolParams
	for i, s := range strides {
		if s <= 0 {
			return nil, fmt.Errorf("%w: pool stride %d is %d", tensor.ErrShapeMismatch, i, s)
		}
		p.Strides[i] = s
	}
	return &p, nil
}

// OutputShape returns ceil(n/s) along every dimension.
func (p *PoolParams) OutputShape(in []int) []int {
	out := make([]int, len(in))
	for i, n := range in {
		out[i] = (n + p.Strides[i] - 1) / p.Strides[i]
	}
	return out
}

// MatMulParams holds a rows × cols matrix and one bias per row. The layer
// computes matrix·x + bias.
type MatMulParams struct {
	Matrix *tensor.Tensor[float64]
	Bias   []float64
}

// NewMatMulParams validates and wraps matrix data.
func NewMatMulParams(matrix []float64, rows, cols int, bias []float64) (*MatMulParams, error) {
	mat, err := tensor.FromSlice(matrix, rows, cols)
	if err != nil {
		return nil, fmt.Errorf("matmul matrix: %w", err)
	}
	if len(bias) != rows {
		return nil, fmt.Errorf("%w: matmul bias has %d elements, matrix has %d rows", tensor.ErrShapeMismatch, len(bias), rows)
	}
	return &MatMulParams{Matrix: mat, Bias: bias}, nil
}

func (p *MatMulParams) Rows() int { return p.Matrix.Shape[0] }
func (p *MatMulParams) Cols() int { return p.Matrix.Shape[1] }

// Row returns the weights of output i.
func (p *MatMulParams) Row(i int) []float64 {
	c := p.Cols()
	return p.Matrix.Data[i*c : (i+1)*c]
}
