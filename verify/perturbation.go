// Package verify assembles networks into mixed-integer models and runs
// adversarial searches on them.
//
// A build lays out the decision variables of a perturbation family, runs
// the network over them with the symbolic encoder and persists the result
// when the family allows reuse across inputs. A search pins the concrete
// input, adds the target constraints and the norm objective and solves
// once with the search-phase configuration.
package verify

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/FelixaHub/mipverify/mip"
	"github.com/FelixaHub/mipverify/tensor"
)

// ErrInputDomain is returned for inputs outside [0, 1].
var ErrInputDomain = errors.New("verify: input outside [0, 1]")

// PerturbationKind names a perturbation family.
type PerturbationKind string

const (
	// KindUnrestricted allows any perturbation that keeps the perturbed
	// input in [0, 1].
	KindUnrestricted PerturbationKind = "unrestricted"
	// KindLInf bounds every element of the perturbation by Epsilon.
	KindLInf PerturbationKind = "linf"
)

// Perturbation describes the set of admissible perturbations.
type Perturbation struct {
	Kind    PerturbationKind `json:"kind"`
	Epsilon float64          `json:"epsilon,omitempty"`
}

// Unrestricted returns the unrestricted family.
func Unrestricted() Perturbation {
	return Perturbation{Kind: KindUnrestricted}
}

// LInfBounded returns the family of perturbations with ‖p‖∞ ≤ eps.
func LInfBounded(eps float64) Perturbation {
	return Perturbation{Kind: KindLInf, Epsilon: eps}
}

// ParsePerturbation parses "unrestricted" or "linf:<eps>".
func ParsePerturbation(s string) (Perturbation, error) {
	kind, arg, _ := strings.Cut(strings.ToLower(strings.TrimSpace(s)), ":")
	switch PerturbationKind(kind) {
	case "", KindUnrestricted:
		return Unrestricted(), nil
	case KindLInf:
		eps, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return Perturbation{}, fmt.Errorf("verify: perturbation %q: %w", s, err)
		}
		p := LInfBounded(eps)
		return p, p.Validate()
	}
	return Perturbation{}, fmt.Errorf("verify: unknown perturbation family %q", s)
}

// Validate checks the family parameters.
func (p Perturbation) Validate() error {
	switch p.Kind {
	case KindUnrestricted:
		return nil
	case KindLInf:
		if !(p.Epsilon >= 0) {
			return fmt.Errorf("verify: linf perturbation needs a non-negative epsilon, got %g", p.Epsilon)
		}
		return nil
	}
	return fmt.Errorf("verify: unknown perturbation family %q", p.Kind)
}

// Tag identifies the family in cache keys and reports.
func (p Perturbation) Tag() string {
	if p.Kind == KindLInf {
		return fmt.Sprintf("linf-norm-bounded-%s", strconv.FormatFloat(p.Epsilon, 'g', -1, 64))
	}
	return string(p.Kind)
}

func (p Perturbation) String() string {
	return p.Tag()
}

// Reusable reports whether a model built for this family is valid for every
// input of the same shape. Only reusable models are cached.
func (p Perturbation) Reusable() bool {
	return p.Kind == KindUnrestricted
}

// Variables are the named groups of a built model.
type Variables struct {
	Input        *tensor.Tensor[mip.Expr]
	Perturbation *tensor.Tensor[mip.Expr]
	// Base is Input + Perturbation, the point the network is applied to.
	Base   *tensor.Tensor[mip.Expr]
	Output []mip.Expr
}

// Group names in a persisted model.
const (
	groupInput        = "input"
	groupPerturbation = "perturbation"
	groupBase         = "base"
	groupOutput       = "output"
	groupSlack        = "relu_slack"
)

// variables lays out the input, perturbation and base groups of the
// family for an input of the given shape. The input is only needed by
// families that are not reusable.
func (p Perturbation) variables(m *mip.Model, shape []int, input *tensor.Tensor[float64]) (Variables, error) {
	n := tensor.Size(shape)
	v := Variables{
		Input:        tensor.New[mip.Expr](shape...),
		Perturbation: tensor.New[mip.Expr](shape...),
		Base:         tensor.New[mip.Expr](shape...),
	}

	switch p.Kind {
	case KindUnrestricted:
		for i := range n {
			x := m.NewVar("input", mip.Continuous, 0, 1)
			d := m.NewVar("perturbation", mip.Continuous, -1, 1)
			b := m.NewVar("base", mip.Continuous, 0, 1)
			if err := m.AddEQ(b, x.Plus(d)); err != nil {
				return Variables{}, err
			}
			v.Input.Data[i], v.Perturbation.Data[i], v.Base.Data[i] = x, d, b
		}

	case KindLInf:
		if input == nil {
			return Variables{}, fmt.Errorf("verify: %s needs the concrete input", p)
		}
		for i, x := range input.Data {
			lo, hi := max(-p.Epsilon, -x), min(p.Epsilon, 1-x)
			d := m.NewVar("perturbation", mip.Continuous, lo, hi)
			v.Input.Data[i] = mip.Constant(x)
			v.Perturbation.Data[i] = d
			v.Base.Data[i] = d.AddConst(x)
		}

	default:
		return Variables{}, p.Validate()
	}
	return v, nil
}

func checkDomain(input *tensor.Tensor[float64]) error {
	for i, x := range input.Data {
		if !(x >= 0 && x <= 1) {
			return fmt.Errorf("%w: element %d is %g", ErrInputDomain, i, x)
		}
	}
	return nil
}
