// Modul: relax.go - LP-Relaxation ueber gonum Simplex
// Enthaelt: relaxation Struktur, solve und die Umformung in die Standardform
package simplex

import (
	"errors"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/FelixaHub/mipverify/mip"
)

var (
	errInfeasible = errors.New("relaxation infeasible")
	errUnbounded  = errors.New("relaxation unbounded")
)

// relaxation is the continuous relaxation of a model in minimization form.
type relaxation struct {
	m    *mip.Model
	cost []float64 // per variable, minimization
	k    float64   // objective constant, minimization
	tol  float64
}

func newRelaxation(m *mip.Model, tol float64) *relaxation {
	obj := m.Objective()
	sign := 1.0
	if obj.Sense == mip.Maximize {
		sign = -1
	}
	r := &relaxation{
		m:    m,
		cost: make([]float64, m.NumVars()),
		k:    sign * obj.Linear.Const,
		tol:  tol,
	}
	for _, t := range obj.Linear.Terms {
		r.cost[t.Var] += sign * t.Coef
	}
	return r
}

// value returns the minimization objective at x.
func (r *relaxation) value(x []float64) float64 {
	v := r.k
	for j, c := range r.cost {
		v += c * x[j]
	}
	return v
}

// solve minimizes the relaxation with variable bounds lo, hi. Variables
// with lo == hi are substituted as constants.
func (r *relaxation) solve(lo, hi []float64) (float64, []float64, error) {
	n := r.m.NumVars()
	x := make([]float64, n)

	fixed := make([]bool, n)
	for j := range n {
		if lo[j] > hi[j]+r.tol {
			return 0, nil, errInfeasible
		}
		if hi[j]-lo[j] <= r.tol {
			fixed[j] = true
			x[j] = lo[j]
		}
	}

	inCons := make([]bool, n)
	for _, c := range r.m.Constraints() {
		for _, t := range c.Terms {
			inCons[t.Var] = true
		}
	}

	// column index of every free-to-move variable
	col := make([]int, n)
	var active []int
	for j := range n {
		col[j] = -1
		if fixed[j] {
			continue
		}
		finite := !math.IsInf(lo[j], -1) || !math.IsInf(hi[j], 1)
		if !finite && !inCons[j] {
			// appears nowhere; only the cost decides
			if r.cost[j] != 0 {
				return 0, nil, errUnbounded
			}
			continue
		}
		col[j] = len(active)
		active = append(active, j)
	}

	var rows [][]float64
	var rhs []float64
	addRow := func(row []float64, b float64) {
		rows = append(rows, row)
		rhs = append(rhs, b)
	}

	for _, c := range r.m.Constraints() {
		row := make([]float64, len(active))
		b := c.RHS
		for _, t := range c.Terms {
			if k := col[t.Var]; k >= 0 {
				row[k] += t.Coef
			} else {
				b -= t.Coef * x[t.Var]
			}
		}
		if !slices.ContainsFunc(row, func(v float64) bool { return v != 0 }) {
			if !(mip.Constraint{Sense: c.Sense, RHS: b}).Satisfied(nil, r.tol) {
				return 0, nil, errInfeasible
			}
			continue
		}
		switch c.Sense {
		case mip.LE:
			addRow(row, b)
		case mip.GE:
			addRow(negate(row), -b)
		case mip.EQ:
			addRow(row, b)
			addRow(negate(row), -b)
		}
	}

	for k, j := range active {
		if !math.IsInf(hi[j], 1) {
			row := make([]float64, len(active))
			row[k] = 1
			addRow(row, hi[j])
		}
		if !math.IsInf(lo[j], -1) {
			row := make([]float64, len(active))
			row[k] = -1
			addRow(row, -lo[j])
		}
	}

	if len(active) == 0 {
		return r.value(x), x, nil
	}

	c := make([]float64, len(active))
	for k, j := range active {
		c[k] = r.cost[j]
	}
	g := mat.NewDense(len(rows), len(active), nil)
	for i, row := range rows {
		g.SetRow(i, row)
	}

	cNew, aNew, bNew := lp.Convert(c, g, rhs, nil, nil)

	// The slack columns form a feasible basis when every right-hand side
	// is non-negative.
	var basic []int
	if allNonNegative(bNew) {
		basic = make([]int, len(bNew))
		for i := range basic {
			basic[i] = 2*len(active) + i
		}
	}

	_, xs, err := lp.Simplex(cNew, aNew, bNew, r.tol, basic)
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		return 0, nil, errInfeasible
	case errors.Is(err, lp.ErrUnbounded):
		return 0, nil, errUnbounded
	case err != nil:
		return 0, nil, err
	}

	for k, j := range active {
		x[j] = xs[k] - xs[len(active)+k]
	}
	return r.value(x), x, nil
}

// negate returns -row in a new slice; row is left untouched.
func negate(row []float64) []float64 {
	out := make([]float64, len(row))
	for i, v := range row {
		out[i] = -v
	}
	return out
}

func allNonNegative(b []float64) bool {
	for _, v := range b {
		if v < 0 {
			return false
		}
	}
	return true
}
