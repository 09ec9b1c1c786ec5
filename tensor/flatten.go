package tensor

import (
	"fmt"
	"slices"
)

// ReversedPerm returns the permutation that reverses n dimensions.
func ReversedPerm(n int) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = n - 1 - i
	}
	return perm
}

// Flatten permutes the dimensions of t by perm and then enumerates the
// permuted tensor with its first dimension varying fastest.
//
// Dimension i of the permuted tensor is dimension perm[i] of t.
func Flatten[T any](t *Tensor[T], perm []int) ([]T, error) {
	n := t.Dims()
	if len(perm) != n {
		return nil, fmt.Errorf("%w: permutation %v for %d dimensions", ErrShapeMismatch, perm, n)
	}
	sorted := slices.Clone(perm)
	slices.Sort(sorted)
	for i, p := range sorted {
		if p != i {
			return nil, fmt.Errorf("%w: %v is not a permutation", ErrShapeMismatch, perm)
		}
	}

	permuted := make([]int, n)
	for i, p := range perm {
		permuted[i] = t.Shape[p]
	}

	out := make([]T, 0, t.Len())
	j := make([]int, n)
	idx := make([]int, n)
	for range t.Len() {
		for i, p := range perm {
			idx[p] = j[i]
		}
		out = append(out, t.At(idx...))

		// advance j, first dimension fastest
		for i := 0; i < n; i++ {
			j[i]++
			if j[i] < permuted[i] {
				break
			}
			j[i] = 0
		}
	}
	return out, nil
}

// FlattenReversed flattens t after reversing its dimension order. This is
// the element order the exporting framework uses when it flattens the
// output of the convolutional stage, so fully-connected weights line up
// with it.
func FlattenReversed[T any](t *Tensor[T]) []T {
	out, err := Flatten(t, ReversedPerm(t.Dims()))
	if err != nil {
		panic(err) // reversed permutation is always valid
	}
	return out
}
