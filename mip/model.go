package mip

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// VarKind distinguishes continuous from binary decision variables.
type VarKind uint8

const (
	Continuous VarKind = iota
	Binary
)

func (k VarKind) String() string {
	if k == Binary {
		return "binary"
	}
	return "continuous"
}

// Interval is the bound record [Lo, Hi] of a symbolic scalar.
type Interval struct {
	Lo, Hi float64
}

// Intersect returns the tighter of both ends. Bounds only ever shrink.
func (iv Interval) Intersect(o Interval) Interval {
	return Interval{Lo: max(iv.Lo, o.Lo), Hi: min(iv.Hi, o.Hi)}
}

// Contains reports whether x lies in iv within tol.
func (iv Interval) Contains(x, tol float64) bool {
	return x >= iv.Lo-tol && x <= iv.Hi+tol
}

// IsFinite reports whether both ends are finite.
func (iv Interval) IsFinite() bool {
	return !math.IsInf(iv.Lo, 0) && !math.IsInf(iv.Hi, 0)
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%g, %g]", iv.Lo, iv.Hi)
}

// VarInfo describes one decision variable.
type VarInfo struct {
	Name   string
	Kind   VarKind
	Bounds Interval
}

// Sense is the relation of a constraint.
type Sense uint8

const (
	LE Sense = iota
	GE
	EQ
)

func (s Sense) String() string {
	switch s {
	case LE:
		return "<="
	case GE:
		return ">="
	default:
		return "=="
	}
}

// Constraint is Σ Terms (Sense) RHS.
type Constraint struct {
	Terms []Term
	Sense Sense
	RHS   float64
}

// Satisfied reports whether the constraint holds at values within tol.
func (c Constraint) Satisfied(values []float64, tol float64) bool {
	lhs := 0.0
	for _, t := range c.Terms {
		lhs += t.Coef * values[t.Var]
	}
	switch c.Sense {
	case LE:
		return lhs <= c.RHS+tol
	case GE:
		return lhs >= c.RHS-tol
	default:
		return math.Abs(lhs-c.RHS) <= tol
	}
}

// ObjectiveSense selects minimization or maximization.
type ObjectiveSense uint8

const (
	Minimize ObjectiveSense = iota
	Maximize
)

// QuadTerm is Coef·Var².
type QuadTerm struct {
	Var  Var
	Coef float64
}

// Objective is Linear + Σ Quad, minimized or maximized.
type Objective struct {
	Sense  ObjectiveSense
	Linear Expr
	Quad   []QuadTerm
}

// Value evaluates the objective at values.
func (o Objective) Value(values []float64) float64 {
	v := o.Linear.Value(values)
	for _, q := range o.Quad {
		x := values[q.Var]
		v += q.Coef * x * x
	}
	return v
}

// Stats summarizes the size of a model.
type Stats struct {
	Vars        int `json:"vars"`
	Binaries    int `json:"binaries"`
	Constraints int `json:"constraints"`
}

// Model is a mixed-integer model under construction. Encoders append
// variables and constraints to it in place; it is not safe for concurrent
// use.
type Model struct {
	id   uuid.UUID
	vars []VarInfo
	cons []Constraint
	obj  Objective
}

// NewModel returns an empty model with a fresh identity.
func NewModel() *Model {
	return &Model{id: uuid.New()}
}

// ID returns the model identity.
func (m *Model) ID() uuid.UUID {
	return m.id
}

// Owns returns ErrForeignModel if any of es belongs to another model.
func (m *Model) Owns(es ...Expr) error {
	for _, e := range es {
		if em := e.Model(); em != nil && em != m {
			return fmt.Errorf("%w: model %s, expression from %s", ErrForeignModel, m.id, em.id)
		}
	}
	return nil
}

// AddVar adds a decision variable with bounds [lo, hi]. Binary variables
// have their bounds clamped to [0, 1].
func (m *Model) AddVar(name string, kind VarKind, lo, hi float64) Var {
	if kind == Binary {
		lo, hi = max(lo, 0), min(hi, 1)
	}
	m.vars = append(m.vars, VarInfo{Name: name, Kind: kind, Bounds: Interval{Lo: lo, Hi: hi}})
	return Var(len(m.vars) - 1)
}

// NewVar is AddVar returning the variable as an expression.
func (m *Model) NewVar(name string, kind VarKind, lo, hi float64) Expr {
	return m.Expr(m.AddVar(name, kind, lo, hi))
}

// Expr returns the expression 1·v.
func (m *Model) Expr(v Var) Expr {
	return Expr{Terms: []Term{{Var: v, Coef: 1}}, m: m}
}

// NumVars returns the number of variables.
func (m *Model) NumVars() int {
	return len(m.vars)
}

// Var returns the description of v.
func (m *Model) Var(v Var) VarInfo {
	return m.vars[v]
}

// Vars returns all variable descriptions. The slice must not be modified.
func (m *Model) Vars() []VarInfo {
	return m.vars
}

// Bounds returns the current bound record of v.
func (m *Model) Bounds(v Var) Interval {
	return m.vars[v].Bounds
}

// Tighten intersects the bounds of v with iv. It never loosens.
func (m *Model) Tighten(v Var, iv Interval) {
	m.vars[v].Bounds = m.vars[v].Bounds.Intersect(iv)
}

// Interval bounds e by interval arithmetic over the bounds of its variables.
func (m *Model) Interval(e Expr) Interval {
	iv := Interval{Lo: e.Const, Hi: e.Const}
	for _, t := range e.Terms {
		b := m.vars[t.Var].Bounds
		if t.Coef > 0 {
			iv.Lo += t.Coef * b.Lo
			iv.Hi += t.Coef * b.Hi
		} else {
			iv.Lo += t.Coef * b.Hi
			iv.Hi += t.Coef * b.Lo
		}
	}
	return iv
}

// Constrain adds lhs (sense) rhs.
func (m *Model) Constrain(lhs Expr, sense Sense, rhs Expr) error {
	if err := m.Owns(lhs, rhs); err != nil {
		return err
	}
	d := lhs.Minus(rhs)
	if len(d.Terms) == 0 {
		c := Constraint{Sense: sense, RHS: -d.Const}
		if !c.Satisfied(nil, 1e-9) {
			return fmt.Errorf("mip: constant constraint 0 %s %g cannot hold", sense, -d.Const)
		}
		return nil
	}
	m.cons = append(m.cons, Constraint{Terms: d.Terms, Sense: sense, RHS: -d.Const})
	return nil
}

// AddLE adds lhs <= rhs.
func (m *Model) AddLE(lhs, rhs Expr) error { return m.Constrain(lhs, LE, rhs) }

// AddGE adds lhs >= rhs.
func (m *Model) AddGE(lhs, rhs Expr) error { return m.Constrain(lhs, GE, rhs) }

// AddEQ adds lhs == rhs.
func (m *Model) AddEQ(lhs, rhs Expr) error { return m.Constrain(lhs, EQ, rhs) }

// Constraints returns all constraints. The slice must not be modified.
func (m *Model) Constraints() []Constraint {
	return m.cons
}

// SetObjective replaces the objective with a linear one.
func (m *Model) SetObjective(sense ObjectiveSense, e Expr) error {
	if err := m.Owns(e); err != nil {
		return err
	}
	m.obj = Objective{Sense: sense, Linear: e}
	return nil
}

// SetQuadObjective replaces the objective with linear + Σ quad.
func (m *Model) SetQuadObjective(sense ObjectiveSense, linear Expr, quad []QuadTerm) error {
	if err := m.Owns(linear); err != nil {
		return err
	}
	for _, q := range quad {
		if int(q.Var) < 0 || int(q.Var) >= len(m.vars) {
			return fmt.Errorf("mip: quadratic term on unknown variable %d", q.Var)
		}
	}
	m.obj = Objective{Sense: sense, Linear: linear, Quad: quad}
	return nil
}

// Objective returns the current objective.
func (m *Model) Objective() Objective {
	return m.obj
}

// Stats returns variable, binary and constraint counts.
func (m *Model) Stats() Stats {
	s := Stats{Vars: len(m.vars), Constraints: len(m.cons)}
	for _, v := range m.vars {
		if v.Kind == Binary {
			s.Binaries++
		}
	}
	return s
}

// Check verifies that values satisfies every bound, integrality
// requirement and constraint of m within tol. It returns the first
// violation found.
func (m *Model) Check(values []float64, tol float64) error {
	if len(values) != len(m.vars) {
		return fmt.Errorf("mip: %d values for %d variables", len(values), len(m.vars))
	}
	for i, v := range m.vars {
		x := values[i]
		if !v.Bounds.Contains(x, tol) {
			return fmt.Errorf("mip: variable %d (%s) = %g outside %s", i, v.Name, x, v.Bounds)
		}
		if v.Kind == Binary && math.Abs(x-math.Round(x)) > tol {
			return fmt.Errorf("mip: binary variable %d (%s) = %g", i, v.Name, x)
		}
	}
	for i, c := range m.cons {
		if !c.Satisfied(values, tol) {
			return fmt.Errorf("mip: constraint %d violated", i)
		}
	}
	return nil
}
