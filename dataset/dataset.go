// Package dataset reads labelled samples.
package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/FelixaHub/mipverify/tensor"
)

// Sample is one labelled input. Labels are 0-based logit indexes.
type Sample struct {
	Image []float64 `json:"image"`
	Shape []int     `json:"shape"`
	Label int       `json:"label"`
}

// Tensor returns the image as a tensor of the sample's shape.
func (s Sample) Tensor() (*tensor.Tensor[float64], error) {
	return tensor.FromSlice(s.Image, s.Shape...)
}

// ReadJSONL reads one sample per line. Blank lines are skipped.
func ReadJSONL(r io.Reader) ([]Sample, error) {
	var samples []Sample
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		b := scanner.Bytes()
		if len(b) == 0 {
			continue
		}
		var s Sample
		if err := json.Unmarshal(b, &s); err != nil {
			return nil, fmt.Errorf("dataset: line %d: %w", line, err)
		}
		if tensor.Size(s.Shape) != len(s.Image) {
			return nil, fmt.Errorf("dataset: line %d: %w: shape %v for %d values", line, tensor.ErrShapeMismatch, s.Shape, len(s.Image))
		}
		samples = append(samples, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return samples, nil
}

// Load reads samples from a JSON-lines file.
func Load(path string) ([]Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadJSONL(f)
}
