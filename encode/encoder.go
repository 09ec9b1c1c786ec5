// Package encode turns the piecewise-linear operations of a network into
// mixed-integer constraints. Every encoder takes the tightest bound the
// oracle can prove for its input and chooses the formulation from it: fixed
// branches need no binaries, mixed branches get a big-M formulation whose
// constants are the input's own bounds.
package encode

import (
	"errors"
	"fmt"

	"github.com/FelixaHub/mipverify/bounds"
	"github.com/FelixaHub/mipverify/mip"
)

// Version identifies the encoding logic. It is part of every model cache
// key and must be bumped whenever an encoder changes the model it builds.
const Version = 1

// ErrUnboundedInput is returned when a mixed-case encoder needs a big-M
// constant but its input has an infinite bound.
var ErrUnboundedInput = errors.New("encode: input has no finite bound")

// Stats counts the formulations chosen so far.
type Stats struct {
	ReLUs       int `json:"relus"`       // rectifications encoded
	MixedReLUs  int `json:"mixed_relus"` // of which needed an indicator
	Maxes       int `json:"maxes"`       // maximum encodings
	Pruned      int `json:"pruned"`      // maximum candidates discarded before indicator allocation
	Indicators  int `json:"indicators"`  // binaries allocated by all encoders
	StrictAbses int `json:"strict_abses"`
	LooseAbses  int `json:"loose_abses"`
}

// Encoder appends encodings to one model. It implements nn.Ops over
// mip.Expr, so the same layer code that evaluates concrete tensors builds
// the symbolic model.
type Encoder struct {
	Model  *mip.Model
	Oracle *bounds.Oracle

	// Slack, when set, collects the tightness slack of every mixed ReLU.
	Slack *Slack

	stats Stats
}

// New returns an encoder for m using oracle for bounds.
func New(m *mip.Model, oracle *bounds.Oracle) *Encoder {
	return &Encoder{Model: m, Oracle: oracle}
}

// Stats returns the counters accumulated so far.
func (e *Encoder) Stats() Stats {
	return e.stats
}

func (e *Encoder) Const(c float64) mip.Expr {
	return mip.Constant(c)
}

func (e *Encoder) Affine(weights []float64, xs []mip.Expr, bias float64) (mip.Expr, error) {
	return mip.Ring{M: e.Model}.Affine(weights, xs, bias)
}

func (e *Encoder) indicator(name string) mip.Expr {
	e.stats.Indicators++
	return e.Model.NewVar(name, mip.Binary, 0, 1)
}

// constrain adds all constraints or returns the first error.
func constrain(m *mip.Model, cs ...func(*mip.Model) error) error {
	for _, c := range cs {
		if err := c(m); err != nil {
			return err
		}
	}
	return nil
}

func le(lhs, rhs mip.Expr) func(*mip.Model) error {
	return func(m *mip.Model) error { return m.AddLE(lhs, rhs) }
}

func ge(lhs, rhs mip.Expr) func(*mip.Model) error {
	return func(m *mip.Model) error { return m.AddGE(lhs, rhs) }
}

func eq(lhs, rhs mip.Expr) func(*mip.Model) error {
	return func(m *mip.Model) error { return m.AddEQ(lhs, rhs) }
}

func finite(iv mip.Interval, what string) error {
	if !iv.IsFinite() {
		return fmt.Errorf("%w: %s bound %s", ErrUnboundedInput, what, iv)
	}
	return nil
}

// Slack accumulates Σ (out − x·u/(u−l)) over mixed ReLUs. It is an
// optional objective regularizer and plays no part in the correctness of
// the constraints.
type Slack struct {
	parts []mip.Expr
}

// Add appends one term.
func (s *Slack) Add(term mip.Expr) {
	s.parts = append(s.parts, term)
}

// Len returns the number of terms.
func (s *Slack) Len() int {
	return len(s.parts)
}

// Expr returns the accumulated sum.
func (s *Slack) Expr() (mip.Expr, error) {
	coefs := make([]float64, len(s.parts))
	for i := range coefs {
		coefs[i] = 1
	}
	return mip.Sum(coefs, s.parts, 0)
}
