// Package tensor provides a dense row-major tensor that is generic over its
// element type, so the same layer code runs over concrete numbers and over
// symbolic expressions.
package tensor

import (
	"errors"
	"fmt"
	"slices"
)

// ErrShapeMismatch is returned whenever a declared shape and the supplied
// data or a layer's parameters disagree. It is never recovered from by
// broadcasting or truncation.
var ErrShapeMismatch = errors.New("shape mismatch")

// Tensor is a dense tensor stored in row-major order.
type Tensor[T any] struct {
	Shape []int
	Data  []T
}

// Size returns the number of elements a tensor of the given shape holds.
func Size(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// New allocates a zero-valued tensor of the given shape.
func New[T any](shape ...int) *Tensor[T] {
	return &Tensor[T]{
		Shape: slices.Clone(shape),
		Data:  make([]T, Size(shape)),
	}
}

// FromSlice wraps data as a tensor of the given shape. The data is not
// copied.
func FromSlice[T any](data []T, shape ...int) (*Tensor[T], error) {
	for _, d := range shape {
		if d <= 0 {
			return nil, fmt.Errorf("%w: non-positive dimension in %v", ErrShapeMismatch, shape)
		}
	}
	if n := Size(shape); n != len(data) {
		return nil, fmt.Errorf("%w: shape %v needs %d elements, got %d", ErrShapeMismatch, shape, n, len(data))
	}
	return &Tensor[T]{Shape: slices.Clone(shape), Data: data}, nil
}

// Len returns the number of elements.
func (t *Tensor[T]) Len() int {
	return len(t.Data)
}

// Dims returns the number of dimensions.
func (t *Tensor[T]) Dims() int {
	return len(t.Shape)
}

// Index returns the row-major offset of idx. It panics if idx is out of range.
func (t *Tensor[T]) Index(idx ...int) int {
	if len(idx) != len(t.Shape) {
		panic(fmt.Sprintf("tensor: index %v for shape %v", idx, t.Shape))
	}
	off := 0
	for i, d := range t.Shape {
		if idx[i] < 0 || idx[i] >= d {
			panic(fmt.Sprintf("tensor: index %v out of range for shape %v", idx, t.Shape))
		}
		off = off*d + idx[i]
	}
	return off
}

// At returns the element at idx.
func (t *Tensor[T]) At(idx ...int) T {
	return t.Data[t.Index(idx...)]
}

// Set stores v at idx.
func (t *Tensor[T]) Set(v T, idx ...int) {
	t.Data[t.Index(idx...)] = v
}

// Reshape returns a view of t with a different shape and the same data.
func (t *Tensor[T]) Reshape(shape ...int) (*Tensor[T], error) {
	return FromSlice(t.Data, shape...)
}

// Map applies f to every element and returns a tensor of the same shape.
func Map[T, U any](t *Tensor[T], f func(T) U) *Tensor[U] {
	out := &Tensor[U]{
		Shape: slices.Clone(t.Shape),
		Data:  make([]U, len(t.Data)),
	}
	for i, v := range t.Data {
		out.Data[i] = f(v)
	}
	return out
}

// MapErr is Map for conversions that can fail.
func MapErr[T, U any](t *Tensor[T], f func(T) (U, error)) (*Tensor[U], error) {
	out := &Tensor[U]{
		Shape: slices.Clone(t.Shape),
		Data:  make([]U, len(t.Data)),
	}
	for i, v := range t.Data {
		u, err := f(v)
		if err != nil {
			return nil, err
		}
		out.Data[i] = u
	}
	return out, nil
}

// SameShape reports whether a and b have identical shapes.
func SameShape(a, b []int) bool {
	return slices.Equal(a, b)
}
