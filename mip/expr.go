// Package mip holds the symbolic side of the encoding: decision variables,
// affine expressions over them, the bound record of every variable and the
// mixed-integer model that collects constraints and an objective.
package mip

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrForeignModel is returned when expressions owned by different models are
// combined or handed to a model that does not own them.
var ErrForeignModel = errors.New("expression belongs to a different model")

// Var identifies a decision variable inside one model.
type Var int

// Term is one coefficient·variable product of an affine expression.
type Term struct {
	Var  Var
	Coef float64
}

// Expr is the affine expression Σ Terms + Const. Terms are sorted by
// variable and never carry a zero coefficient.
//
// An Expr with no terms is a constant and has no owning model. Every other
// Expr belongs to exactly one Model.
type Expr struct {
	Terms []Term
	Const float64

	m *Model
}

// Constant returns the constant expression c.
func Constant(c float64) Expr {
	return Expr{Const: c}
}

// Model returns the owning model, or nil for a constant.
func (e Expr) Model() *Model {
	if len(e.Terms) == 0 {
		return nil
	}
	return e.m
}

// IsConstant reports whether e has no variable terms.
func (e Expr) IsConstant() bool {
	return len(e.Terms) == 0
}

// Value evaluates e at the given variable assignment.
func (e Expr) Value(values []float64) float64 {
	v := e.Const
	for _, t := range e.Terms {
		v += t.Coef * values[t.Var]
	}
	return v
}

// Scale returns c·e.
func (e Expr) Scale(c float64) Expr {
	if c == 0 {
		return Constant(0)
	}
	out := Expr{Terms: make([]Term, len(e.Terms)), Const: c * e.Const, m: e.m}
	for i, t := range e.Terms {
		out.Terms[i] = Term{Var: t.Var, Coef: c * t.Coef}
	}
	return out
}

// AddConst returns e + c.
func (e Expr) AddConst(c float64) Expr {
	e.Const += c
	return e
}

// Plus returns e + f. It panics if e and f belong to different models;
// callers check ownership with Model.Owns before building expressions.
func (e Expr) Plus(f Expr) Expr {
	return e.combine(1, f)
}

// Minus returns e − f. See Plus.
func (e Expr) Minus(f Expr) Expr {
	return e.combine(-1, f)
}

func (e Expr) combine(c float64, f Expr) Expr {
	m, err := owner(e, f)
	if err != nil {
		panic(err)
	}

	out := Expr{
		Terms: make([]Term, 0, len(e.Terms)+len(f.Terms)),
		Const: e.Const + c*f.Const,
		m:     m,
	}
	i, j := 0, 0
	for i < len(e.Terms) || j < len(f.Terms) {
		switch {
		case j == len(f.Terms) || (i < len(e.Terms) && e.Terms[i].Var < f.Terms[j].Var):
			out.Terms = append(out.Terms, e.Terms[i])
			i++
		case i == len(e.Terms) || f.Terms[j].Var < e.Terms[i].Var:
			out.Terms = append(out.Terms, Term{Var: f.Terms[j].Var, Coef: c * f.Terms[j].Coef})
			j++
		default:
			if coef := e.Terms[i].Coef + c*f.Terms[j].Coef; coef != 0 {
				out.Terms = append(out.Terms, Term{Var: e.Terms[i].Var, Coef: coef})
			}
			i++
			j++
		}
	}
	return out
}

func owner(es ...Expr) (*Model, error) {
	var m *Model
	for _, e := range es {
		em := e.Model()
		if em == nil {
			continue
		}
		if m != nil && em != m {
			return nil, ErrForeignModel
		}
		m = em
	}
	return m, nil
}

func (e Expr) String() string {
	var sb strings.Builder
	for i, t := range e.Terms {
		if i > 0 {
			sb.WriteString(" + ")
		}
		fmt.Fprintf(&sb, "%g·x%d", t.Coef, t.Var)
	}
	if len(e.Terms) == 0 || e.Const != 0 {
		if len(e.Terms) > 0 {
			sb.WriteString(" + ")
		}
		fmt.Fprintf(&sb, "%g", e.Const)
	}
	return sb.String()
}

// linear accumulates a sum of scaled expressions of one model.
type linear struct {
	m     *Model
	coefs map[Var]float64
	k     float64
}

func (l *linear) add(c float64, e Expr) error {
	if em := e.Model(); em != nil {
		if l.m != nil && em != l.m {
			return ErrForeignModel
		}
		l.m = em
	}
	l.k += c * e.Const
	if c == 0 {
		return nil
	}
	for _, t := range e.Terms {
		l.coefs[t.Var] += c * t.Coef
	}
	return nil
}

func (l *linear) expr() Expr {
	out := Expr{Const: l.k, m: l.m}
	if len(l.coefs) == 0 {
		return out
	}
	out.Terms = make([]Term, 0, len(l.coefs))
	for v, c := range l.coefs {
		if c != 0 {
			out.Terms = append(out.Terms, Term{Var: v, Coef: c})
		}
	}
	slices.SortFunc(out.Terms, func(a, b Term) int { return int(a.Var - b.Var) })
	return out
}

// Sum returns Σ coefs[i]·es[i] + k. It fails with ErrForeignModel if the
// expressions belong to different models.
func Sum(coefs []float64, es []Expr, k float64) (Expr, error) {
	if len(coefs) != len(es) {
		return Expr{}, fmt.Errorf("mip: %d coefficients for %d expressions", len(coefs), len(es))
	}
	l := linear{coefs: make(map[Var]float64), k: k}
	for i, e := range es {
		if err := l.add(coefs[i], e); err != nil {
			return Expr{}, err
		}
	}
	return l.expr(), nil
}
