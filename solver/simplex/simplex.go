// Package simplex is the reference solver backend. It solves continuous
// relaxations with gonum's simplex method and closes the integrality gap of
// binary variables by best-first branch and bound.
package simplex

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/emirpasic/gods/v2/queues/priorityqueue"

	"github.com/FelixaHub/mipverify/logutil"
	"github.com/FelixaHub/mipverify/mip"
	"github.com/FelixaHub/mipverify/solver"
)

func init() {
	solver.Register("simplex", func() solver.Solver { return New() })
}

// Solver is a branch-and-bound MILP solver for models with a linear
// objective and binary integer variables.
type Solver struct {
	// Tol is the feasibility tolerance of the simplex method.
	Tol float64
	// IntTol is the distance from 0 or 1 below which a binary counts as
	// integral.
	IntTol float64
}

// New returns a solver with default tolerances.
func New() *Solver {
	return &Solver{Tol: 1e-10, IntTol: 1e-6}
}

type fixing struct {
	v     mip.Var
	value float64
}

type node struct {
	fix   []fixing
	bound float64 // lower bound from the parent relaxation
	depth int
}

func byBound(a, b *node) int {
	switch {
	case a.bound < b.bound:
		return -1
	case a.bound > b.bound:
		return 1
	}
	// deeper nodes first to reach incumbents early
	return b.depth - a.depth
}

// Solve solves the current objective of m.
func (s *Solver) Solve(ctx context.Context, m *mip.Model, cfg solver.Config) (solver.Result, error) {
	start := time.Now()
	obj := m.Objective()
	if len(obj.Quad) > 0 {
		res := solver.NoResult(solver.Error, obj.Sense)
		return res, fmt.Errorf("%w: quadratic objective", solver.ErrUnsupported)
	}

	r := newRelaxation(m, s.Tol)
	n := m.NumVars()
	baseLo := make([]float64, n)
	baseHi := make([]float64, n)
	var binaries []mip.Var
	for j, v := range m.Vars() {
		baseLo[j], baseHi[j] = v.Bounds.Lo, v.Bounds.Hi
		if v.Kind == mip.Binary {
			binaries = append(binaries, mip.Var(j))
		}
	}

	queue := priorityqueue.NewWith[*node](byBound)
	queue.Enqueue(&node{bound: math.Inf(-1)})

	incumbent := math.Inf(1)
	// pruned is the least bound of every node cut off without being solved
	// to the end; with a gap it can lie below the incumbent
	pruned := math.Inf(1)
	var best []float64
	nodes := 0
	limited := false

	gapTol := func() float64 {
		if math.IsInf(incumbent, 1) {
			return 0
		}
		return 1e-9 + cfg.Gap*math.Abs(incumbent)
	}

	lo := make([]float64, n)
	hi := make([]float64, n)
	for !queue.Empty() {
		if s.limitReached(ctx, cfg, start, nodes) {
			limited = true
			break
		}
		nd, _ := queue.Dequeue()
		if nd.bound >= incumbent-gapTol() {
			pruned = min(pruned, nd.bound)
			continue
		}

		copy(lo, baseLo)
		copy(hi, baseHi)
		for _, f := range nd.fix {
			lo[f.v], hi[f.v] = f.value, f.value
		}

		val, x, err := r.solve(lo, hi)
		nodes++
		switch {
		case err == errInfeasible:
			continue
		case err == errUnbounded:
			res := solver.NoResult(solver.Unbounded, obj.Sense)
			res.Nodes, res.Runtime = nodes, time.Since(start)
			return res, nil
		case err != nil:
			res := solver.NoResult(solver.Error, obj.Sense)
			res.Nodes, res.Runtime = nodes, time.Since(start)
			return res, fmt.Errorf("simplex: node %d: %w", nodes, err)
		}

		if cfg.Relax {
			res := s.result(solver.Optimal, obj.Sense, val, val, x)
			res.Nodes, res.Runtime = nodes, time.Since(start)
			return res, nil
		}

		if val >= incumbent-gapTol() {
			pruned = min(pruned, val)
			continue
		}

		branch := s.mostFractional(x, binaries)
		if branch < 0 {
			incumbent = val
			best = x
			for _, b := range binaries {
				best[b] = math.Round(best[b])
			}
			logutil.Trace("simplex: new incumbent", "value", val, "nodes", nodes)
			continue
		}

		for _, value := range []float64{0, 1} {
			fix := append(slices.Clone(nd.fix), fixing{v: branch, value: value})
			queue.Enqueue(&node{fix: fix, bound: val, depth: nd.depth + 1})
		}
	}

	var res solver.Result
	switch {
	case limited:
		bound := min(incumbent, pruned)
		for _, nd := range queue.Values() {
			bound = min(bound, nd.bound)
		}
		res = s.result(solver.ResourceLimit, obj.Sense, incumbent, bound, best)
	case best != nil:
		res = s.result(solver.Optimal, obj.Sense, incumbent, min(incumbent, pruned), best)
	default:
		res = solver.NoResult(solver.Infeasible, obj.Sense)
	}
	res.Nodes, res.Runtime = nodes, time.Since(start)
	slog.Debug("simplex: solve finished", "status", res.Status, "nodes", nodes, "bound", res.Bound, "elapsed", res.Runtime)
	return res, nil
}

func (s *Solver) limitReached(ctx context.Context, cfg solver.Config, start time.Time, nodes int) bool {
	if ctx.Err() != nil {
		return true
	}
	if cfg.NodeLimit > 0 && nodes >= cfg.NodeLimit {
		return true
	}
	return cfg.TimeLimit > 0 && time.Since(start) >= cfg.TimeLimit
}

// mostFractional returns the binary variable farthest from integrality, or
// -1 if all binaries are integral.
func (s *Solver) mostFractional(x []float64, binaries []mip.Var) mip.Var {
	branch := mip.Var(-1)
	worst := s.IntTol
	for _, b := range binaries {
		if d := math.Abs(x[b] - math.Round(x[b])); d > worst {
			branch, worst = b, d
		}
	}
	return branch
}

// result converts minimization values back into the model's sense.
func (s *Solver) result(status solver.Status, sense mip.ObjectiveSense, incumbent, bound float64, values []float64) solver.Result {
	res := solver.Result{
		Status:    status,
		Objective: incumbent,
		Bound:     bound,
		Values:    values,
	}
	if values == nil || math.IsInf(incumbent, 0) {
		res.Objective = math.NaN()
		res.Values = nil
	}
	if sense == mip.Maximize {
		res.Objective = -res.Objective
		res.Bound = -res.Bound
	}
	return res
}
