// Package solver defines the narrow interface the encoding engine uses to
// talk to an optimization backend: solve the current model under a resource
// limit and read back status, proven bound and incumbent.
package solver

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/FelixaHub/mipverify/mip"
)

// ErrUnsupported is returned by backends for models they cannot solve, for
// example a quadratic objective on a purely linear backend.
var ErrUnsupported = errors.New("solver: unsupported model")

// Status is the terminal state of one solve call.
type Status int

const (
	// Error means the backend failed. There is no usable result.
	Error Status = iota
	// Optimal means the incumbent is proven optimal within the gap.
	Optimal
	// Infeasible means the model has no feasible point.
	Infeasible
	// Unbounded means the objective is unbounded.
	Unbounded
	// ResourceLimit means the time or node limit ended the solve. The
	// proven bound is valid; an incumbent may or may not exist.
	ResourceLimit
)

func (s Status) String() string {
	switch s {
	case Optimal:
		return "optimal"
	case Infeasible:
		return "infeasible"
	case Unbounded:
		return "unbounded"
	case ResourceLimit:
		return "resource_limit"
	default:
		return "error"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Config limits and shapes one solve call.
type Config struct {
	// TimeLimit bounds the wall clock time of one call. Zero means no limit.
	TimeLimit time.Duration
	// NodeLimit bounds the number of relaxations solved. Zero means no limit.
	NodeLimit int
	// Relax solves only the continuous relaxation.
	Relax bool
	// Gap is the relative optimality gap at which the search stops. The
	// reported Bound stays a proven bound; it is no longer equal to the
	// objective when nodes were pruned within the gap.
	Gap float64
}

// Phases holds the two independent configurations of an adversarial search:
// Build drives the many bound tightening solves while the model is
// constructed, Search drives the single final solve.
type Phases struct {
	Build  Config
	Search Config
}

// Result is what a backend reports for one call.
type Result struct {
	Status Status
	// Objective is the incumbent objective value, NaN without incumbent.
	Objective float64
	// Bound is the proven bound on the objective: an upper bound when
	// maximizing, a lower bound when minimizing. It is ±Inf when nothing
	// was proven.
	Bound float64
	// Values is the incumbent assignment, indexed by mip.Var.
	Values []float64
	// Nodes is the number of relaxations solved.
	Nodes   int
	Runtime time.Duration
}

// HasSolution reports whether an incumbent exists.
func (r Result) HasSolution() bool {
	return r.Values != nil && !math.IsNaN(r.Objective)
}

// Solver solves the current objective of a model. Calls block until the
// backend returns; the engine never issues two calls at once.
type Solver interface {
	Solve(ctx context.Context, m *mip.Model, cfg Config) (Result, error)
}

// NoResult returns the result of a call that proved nothing.
func NoResult(status Status, sense mip.ObjectiveSense) Result {
	bound := math.Inf(-1)
	if sense == mip.Maximize {
		bound = math.Inf(1)
	}
	return Result{Status: status, Objective: math.NaN(), Bound: bound}
}
