package nn

import (
	"context"
	"errors"

	"github.com/FelixaHub/mipverify/tensor"
)

// Ops extends the affine Ring with the piecewise-linear operations a
// network needs. Concrete implements it in closed form; the symbolic
// implementation adds constraints to a model.
type Ops[T any] interface {
	tensor.Ring[T]
	ReLU(ctx context.Context, x T) (T, error)
	Max(ctx context.Context, xs []T) (T, error)
}

// Concrete evaluates layers over float64.
type Concrete struct {
	tensor.Float
}

var _ Ops[float64] = Concrete{}

func (Concrete) ReLU(_ context.Context, x float64) (float64, error) {
	return max(0, x), nil
}

func (Concrete) Max(_ context.Context, xs []float64) (float64, error) {
	if len(xs) == 0 {
		return 0, errors.New("nn: maximum of no values")
	}
	best := xs[0]
	for _, x := range xs[1:] {
		best = max(best, x)
	}
	return best, nil
}

// activate applies a fixed activation pattern: mask < 0 forces zero, mask
// == 0 passes x through, mask > 0 rectifies.
func activate[T any](ctx context.Context, ops Ops[T], x T, mask int) (T, error) {
	switch {
	case mask < 0:
		return ops.Const(0), nil
	case mask == 0:
		return x, nil
	}
	return ops.ReLU(ctx, x)
}
