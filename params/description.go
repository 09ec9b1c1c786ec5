package params

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/FelixaHub/mipverify/nn"
)

// Layer kinds.
const (
	KindConv   = "conv"
	KindFC     = "fc"
	KindLogits = "logits"
)

// ErrInvalidDescription is returned by Validate.
var ErrInvalidDescription = errors.New("params: invalid network description")

// Layer describes one layer. Parameters are looked up as "<name>/weight"
// and "<name>/bias".
type Layer struct {
	Kind string `yaml:"kind"`
	Name string `yaml:"name"`

	// conv: filter (height, width, in, out) and pool strides
	FilterShape []int `yaml:"filter_shape,omitempty"`
	PoolStride  []int `yaml:"pool_stride,omitempty"`

	// fc and logits: (rows, cols)
	Shape []int `yaml:"shape,omitempty"`
	Mask  []int `yaml:"mask,omitempty"`
}

// Description is a network description file:
//
//	id: mnist-small
//	version: v1.0.0
//	input_shape: [1, 28, 28, 1]
//	layers:
//	  - {kind: conv, name: conv1, filter_shape: [5, 5, 1, 16], pool_stride: [1, 2, 2, 1]}
//	  - {kind: fc, name: fc1, shape: [100, 3136]}
//	  - {kind: logits, name: logits, shape: [10, 100]}
type Description struct {
	ID         string  `yaml:"id"`
	Version    string  `yaml:"version"`
	InputShape []int   `yaml:"input_shape"`
	Layers     []Layer `yaml:"layers"`
}

// Load reads a description from path.
func Load(path string) (*Description, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads and validates a description.
func Decode(r io.Reader) (*Description, error) {
	var d Description
	if err := yaml.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("params: decode description: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate checks the layer order and the fields each kind needs. It does
// not check dimensions; Build does that against the parameters.
func (d *Description) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidDescription)
	}
	v := d.Version
	if v == "" {
		v = "v1.0.0"
	}
	if !semver.IsValid(v) {
		return fmt.Errorf("%w: version %q is not a semantic version", ErrInvalidDescription, d.Version)
	}
	if semver.Major(v) != "v1" {
		return fmt.Errorf("%w: unsupported version %s", ErrInvalidDescription, v)
	}
	if len(d.InputShape) == 0 {
		return fmt.Errorf("%w: missing input_shape", ErrInvalidDescription)
	}
	if len(d.Layers) == 0 {
		return fmt.Errorf("%w: no layers", ErrInvalidDescription)
	}

	// conv* fc* logits
	stage := 0
	for i, l := range d.Layers {
		if l.Name == "" {
			return fmt.Errorf("%w: layer %d has no name", ErrInvalidDescription, i)
		}
		switch l.Kind {
		case KindConv:
			if stage > 0 {
				return fmt.Errorf("%w: conv layer %s after fully-connected layers", ErrInvalidDescription, l.Name)
			}
			if len(l.FilterShape) != 4 || len(l.PoolStride) != 4 {
				return fmt.Errorf("%w: conv layer %s needs filter_shape and pool_stride of length 4", ErrInvalidDescription, l.Name)
			}
		case KindFC:
			if stage > 1 {
				return fmt.Errorf("%w: fc layer %s after logits", ErrInvalidDescription, l.Name)
			}
			stage = 1
			if len(l.Shape) != 2 {
				return fmt.Errorf("%w: fc layer %s needs a shape of length 2", ErrInvalidDescription, l.Name)
			}
		case KindLogits:
			if stage > 1 {
				return fmt.Errorf("%w: second logits layer %s", ErrInvalidDescription, l.Name)
			}
			stage = 2
			if len(l.Shape) != 2 {
				return fmt.Errorf("%w: logits layer %s needs a shape of length 2", ErrInvalidDescription, l.Name)
			}
		default:
			return fmt.Errorf("%w: layer %s has unknown kind %q", ErrInvalidDescription, l.Name, l.Kind)
		}
	}
	if stage != 2 {
		return fmt.Errorf("%w: last layer must be logits", ErrInvalidDescription)
	}
	return nil
}

// Build looks up every layer's parameters in s and composes the network.
func (d *Description) Build(s Store) (*nn.Network, error) {
	var (
		convs  []*nn.ConvLayer
		fcs    []*nn.FullyConnectedLayer
		logits *nn.SoftmaxLayer
	)
	for _, l := range d.Layers {
		switch l.Kind {
		case KindConv:
			var shape [4]int
			copy(shape[:], l.FilterShape)
			w, err := s.Get(Weight(l.Name), l.FilterShape...)
			if err != nil {
				return nil, err
			}
			b, err := s.Get(Bias(l.Name), shape[3])
			if err != nil {
				return nil, err
			}
			conv, err := nn.NewConv2DParams(w, shape, b)
			if err != nil {
				return nil, fmt.Errorf("layer %s: %w", l.Name, err)
			}
			pool, err := nn.NewPoolParams(l.PoolStride...)
			if err != nil {
				return nil, fmt.Errorf("layer %s: %w", l.Name, err)
			}
			convs = append(convs, &nn.ConvLayer{Name: l.Name, Conv: conv, Pool: pool})

		case KindFC, KindLogits:
			mm, err := matmul(s, l)
			if err != nil {
				return nil, err
			}
			if l.Kind == KindLogits {
				logits = &nn.SoftmaxLayer{Name: l.Name, MatMul: mm}
			} else {
				fcs = append(fcs, &nn.FullyConnectedLayer{Name: l.Name, MatMul: mm, Mask: l.Mask})
			}
		}
	}
	return nn.NewNetwork(d.ID, d.InputShape, convs, fcs, logits)
}

func matmul(s Store, l Layer) (*nn.MatMulParams, error) {
	w, err := s.Get(Weight(l.Name), l.Shape...)
	if err != nil {
		return nil, err
	}
	b, err := s.Get(Bias(l.Name), l.Shape[0])
	if err != nil {
		return nil, err
	}
	mm, err := nn.NewMatMulParams(w, l.Shape[0], l.Shape[1], b)
	if err != nil {
		return nil, fmt.Errorf("layer %s: %w", l.Name, err)
	}
	return mm, nil
}
