package encode

import (
	"context"
	"fmt"
	"slices"

	"github.com/FelixaHub/mipverify/mip"
)

func checkIndex(xs []mip.Expr, k int, tol float64) error {
	if k < 0 || k >= len(xs) {
		return fmt.Errorf("encode: index %d out of range for %d values", k, len(xs))
	}
	if tol < 0 {
		return fmt.Errorf("encode: negative tolerance %g", tol)
	}
	return nil
}

// SetMaxIndex forces xs[k] to exceed every other element by at least tol.
func (e *Encoder) SetMaxIndex(xs []mip.Expr, k int, tol float64) error {
	if err := checkIndex(xs, k, tol); err != nil {
		return err
	}
	if err := e.Model.Owns(xs...); err != nil {
		return err
	}
	for j, x := range xs {
		if j == k {
			continue
		}
		if err := e.Model.AddLE(x.Minus(xs[k]), mip.Constant(-tol)); err != nil {
			return err
		}
	}
	return nil
}

// SetNotMaxIndex forces the maximum of xs to exceed xs[k] by at least tol.
func (e *Encoder) SetNotMaxIndex(ctx context.Context, xs []mip.Expr, k int, tol float64) error {
	if err := checkIndex(xs, k, tol); err != nil {
		return err
	}
	mx, err := e.Max(ctx, xs)
	if err != nil {
		return err
	}
	return e.Model.AddGE(mx.Minus(xs[k]), mip.Constant(tol))
}

// SetMaxIndexes forces the largest of the target elements to exceed every
// non-target element by at least tol.
func (e *Encoder) SetMaxIndexes(ctx context.Context, xs []mip.Expr, targets []int, tol float64) error {
	if len(targets) == 0 {
		return fmt.Errorf("encode: no target indexes")
	}
	for _, k := range targets {
		if err := checkIndex(xs, k, tol); err != nil {
			return err
		}
	}
	if len(targets) == 1 {
		return e.SetMaxIndex(xs, targets[0], tol)
	}

	var target []mip.Expr
	for _, k := range targets {
		target = append(target, xs[k])
	}
	best, err := e.Max(ctx, target)
	if err != nil {
		return err
	}
	for j, x := range xs {
		if slices.Contains(targets, j) {
			continue
		}
		if err := e.Model.AddLE(x.Minus(best), mip.Constant(-tol)); err != nil {
			return err
		}
	}
	return nil
}
