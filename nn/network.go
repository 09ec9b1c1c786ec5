package nn

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/FelixaHub/mipverify/tensor"
)

// ConvLayer is convolution, then max pooling, then rectification.
type ConvLayer struct {
	Name string
	Conv *Conv2DParams
	Pool *PoolParams
}

// FullyConnectedLayer is a matrix multiply followed by rectification. A
// non-nil Mask fixes the activation per output: -1 forces zero, 0 passes
// the value through, 1 rectifies.
type FullyConnectedLayer struct {
	Name   string
	MatMul *MatMulParams
	Mask   []int
}

// SoftmaxLayer is the terminal matrix multiply producing logits. No
// activation is applied.
type SoftmaxLayer struct {
	Name   string
	MatMul *MatMulParams
}

// Network is a chain of convolution layers, then fully-connected layers,
// then one logits layer. It is immutable after NewNetwork.
type Network struct {
	// ID names the network for callers and in logs.
	ID string
	// Fingerprint is the sha256 of the input shape, the layer chain and
	// every parameter value. Model caches key on it together with ID, so a
	// retrained network under an old ID never meets a stale model.
	Fingerprint string
	InputShape  []int
	Convs       []*ConvLayer
	FCs         []*FullyConnectedLayer
	Logits      *SoftmaxLayer
}

// NewNetwork checks that every layer accepts the output of the one before
// it, starting from inputShape.
func NewNetwork(id string, inputShape []int, convs []*ConvLayer, fcs []*FullyConnectedLayer, logits *SoftmaxLayer) (*Network, error) {
	if id == "" {
		return nil, fmt.Errorf("nn: network needs an id")
	}
	if logits == nil {
		return nil, fmt.Errorf("nn: network %s has no logits layer", id)
	}
	shape := slices.Clone(inputShape)
	if len(shape) == 0 || tensor.Size(shape) <= 0 {
		return nil, fmt.Errorf("%w: input shape %v", ErrDimensionIncompatibility, inputShape)
	}

	for _, l := range convs {
		if l.Conv == nil || l.Pool == nil {
			return nil, fmt.Errorf("nn: conv layer %s is incomplete", l.Name)
		}
		if len(shape) != 4 {
			return nil, fmt.Errorf("%w: conv layer %s needs a 4-d input, got %v", ErrDimensionIncompatibility, l.Name, shape)
		}
		if shape[3] != l.Conv.InChannels() {
			return nil, fmt.Errorf("%w: conv layer %s expects %d channels, gets %d", ErrDimensionIncompatibility, l.Name, l.Conv.InChannels(), shape[3])
		}
		shape[3] = l.Conv.OutChannels()
		shape = l.Pool.OutputShape(shape)
	}

	size := tensor.Size(shape)
	for _, l := range fcs {
		if l.MatMul == nil {
			return nil, fmt.Errorf("nn: fully-connected layer %s is incomplete", l.Name)
		}
		if l.MatMul.Cols() != size {
			return nil, fmt.Errorf("%w: layer %s expects %d inputs, gets %d", ErrDimensionIncompatibility, l.Name, l.MatMul.Cols(), size)
		}
		if l.Mask != nil && len(l.Mask) != l.MatMul.Rows() {
			return nil, fmt.Errorf("%w: layer %s mask has %d entries for %d outputs", ErrDimensionIncompatibility, l.Name, len(l.Mask), l.MatMul.Rows())
		}
		size = l.MatMul.Rows()
	}
	if logits.MatMul == nil {
		return nil, fmt.Errorf("nn: logits layer %s is incomplete", logits.Name)
	}
	if logits.MatMul.Cols() != size {
		return nil, fmt.Errorf("%w: logits layer %s expects %d inputs, gets %d", ErrDimensionIncompatibility, logits.Name, logits.MatMul.Cols(), size)
	}

	return &Network{
		ID:          id,
		Fingerprint: fingerprint(inputShape, convs, fcs, logits),
		InputShape:  slices.Clone(inputShape),
		Convs:       convs,
		FCs:         fcs,
		Logits:      logits,
	}, nil
}

// NumOutputs returns the number of logits.
func (n *Network) NumOutputs() int {
	return n.Logits.MatMul.Rows()
}

func (n *Network) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %v", n.ID, n.InputShape)
	for _, l := range n.Convs {
		fmt.Fprintf(&sb, " -> conv %s %v pool %v", l.Name, l.Conv.Filter.Shape, l.Pool.Strides)
	}
	for _, l := range n.FCs {
		fmt.Fprintf(&sb, " -> fc %s %dx%d", l.Name, l.MatMul.Rows(), l.MatMul.Cols())
	}
	fmt.Fprintf(&sb, " -> logits %s %dx%d", n.Logits.Name, n.Logits.MatMul.Rows(), n.Logits.MatMul.Cols())
	return sb.String()
}

// Forward applies the network to x in chain order and returns the logits.
// The same code evaluates concrete inputs with Concrete and builds the
// symbolic model with an encoder.
func Forward[T any](ctx context.Context, ops Ops[T], n *Network, x *tensor.Tensor[T]) ([]T, error) {
	if !tensor.SameShape(x.Shape, n.InputShape) {
		return nil, fmt.Errorf("%w: network %s expects input %v, got %v", tensor.ErrShapeMismatch, n.ID, n.InputShape, x.Shape)
	}

	var err error
	for _, l := range n.Convs {
		if x, err = Conv2D(ops, x, l.Conv); err != nil {
			return nil, fmt.Errorf("layer %s: %w", l.Name, err)
		}
		if x, err = Pool(ctx, ops, x, l.Pool); err != nil {
			return nil, fmt.Errorf("layer %s: %w", l.Name, err)
		}
		for i, v := range x.Data {
			if x.Data[i], err = ops.ReLU(ctx, v); err != nil {
				return nil, fmt.Errorf("layer %s: %w", l.Name, err)
			}
		}
		slog.Debug("nn: applied conv layer", "layer", l.Name, "shape", x.Shape)
	}

	h := tensor.FlattenReversed(x)
	for _, l := range n.FCs {
		if h, err = MatMul(ops, h, l.MatMul); err != nil {
			return nil, fmt.Errorf("layer %s: %w", l.Name, err)
		}
		for i, v := range h {
			mask := 1
			if l.Mask != nil {
				mask = l.Mask[i]
			}
			if h[i], err = activate(ctx, ops, v, mask); err != nil {
				return nil, fmt.Errorf("layer %s: %w", l.Name, err)
			}
		}
		slog.Debug("nn: applied fully-connected layer", "layer", l.Name, "size", len(h))
	}

	out, err := MatMul(ops, h, n.Logits.MatMul)
	if err != nil {
		return nil, fmt.Errorf("layer %s: %w", n.Logits.Name, err)
	}
	return out, nil
}

// Predict evaluates n on a concrete input and returns the logits and the
// index of the largest one.
func Predict(ctx context.Context, n *Network, x *tensor.Tensor[float64]) ([]float64, int, error) {
	out, err := Forward(ctx, Concrete{}, n, x)
	if err != nil {
		return nil, 0, err
	}
	best := 0
	for i, v := range out {
		if v > out[best] {
			best = i
		}
	}
	return out, best, nil
}
