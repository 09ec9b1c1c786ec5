// Package params looks up trained layer parameters by name and assembles
// networks from a YAML description.
package params

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"

	"github.com/FelixaHub/mipverify/tensor"
)

// ErrNotFound is returned for a parameter name the store does not hold.
var ErrNotFound = errors.New("params: not found")

// Store resolves a parameter name to its data. The shape is the one the
// caller expects; a store holding a different shape fails with
// tensor.ErrShapeMismatch.
type Store interface {
	Get(name string, shape ...int) ([]float64, error)
}

// Array is one stored parameter.
type Array struct {
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

// JSONStore holds parameters decoded from a flat JSON object:
//
//	{"fc1/weight": {"shape": [2, 2], "data": [1, 0, 0, 1]}, ...}
type JSONStore map[string]Array

// LoadJSON reads a JSONStore from path.
func LoadJSON(path string) (JSONStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var s JSONStore
	if err := json.NewDecoder(f).Decode(&s); err != nil {
		return nil, fmt.Errorf("params: decode %s: %w", path, err)
	}
	for name, a := range s {
		if tensor.Size(a.Shape) != len(a.Data) {
			return nil, fmt.Errorf("%w: parameter %s declares %v but has %d values", tensor.ErrShapeMismatch, name, a.Shape, len(a.Data))
		}
	}
	return s, nil
}

func (s JSONStore) Get(name string, shape ...int) ([]float64, error) {
	a, ok := s[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if !slices.Equal(a.Shape, shape) {
		return nil, fmt.Errorf("%w: parameter %s has shape %v, expected %v", tensor.ErrShapeMismatch, name, a.Shape, shape)
	}
	if len(a.Data) != tensor.Size(shape) {
		return nil, fmt.Errorf("%w: parameter %s has %d values for shape %v", tensor.ErrShapeMismatch, name, len(a.Data), shape)
	}
	return a.Data, nil
}

// Names returns the stored parameter names in sorted order.
func (s JSONStore) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Weight returns the conventional name of a layer's weights.
func Weight(layer string) string { return layer + "/weight" }

// Bias returns the conventional name of a layer's bias.
func Bias(layer string) string { return layer + "/bias" }
