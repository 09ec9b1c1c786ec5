// Package bounds computes the interval every symbolic scalar is encoded
// with. Interval arithmetic gives a cheap sound bound; the Oracle tightens it
// by solving the partially built model with the scalar as objective.
package bounds

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/FelixaHub/mipverify/logutil"
	"github.com/FelixaHub/mipverify/mip"
	"github.com/FelixaHub/mipverify/solver"
)

// Algorithm selects how hard the oracle works for a bound.
type Algorithm string

const (
	// Interval uses interval arithmetic only and never calls the solver.
	Interval Algorithm = "interval"
	// LP solves the continuous relaxation of the partial model.
	LP Algorithm = "lp"
	// MIP solves the partial model with integrality under the build limit.
	MIP Algorithm = "mip"
)

// ParseAlgorithm parses an algorithm name. The empty string selects MIP.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch a := Algorithm(s); a {
	case "":
		return MIP, nil
	case Interval, LP, MIP:
		return a, nil
	}
	return "", fmt.Errorf("bounds: unknown tightening algorithm %q", s)
}

// Stats counts oracle activity.
type Stats struct {
	Calls    int `json:"calls"`    // scalars handed to the oracle
	Skipped  int `json:"skipped"`  // scalars resolved by interval arithmetic alone
	Solves   int `json:"solves"`   // solver calls issued
	Improved int `json:"improved"` // solver calls that tightened a bound
	Failed   int `json:"failed"`   // solver calls that proved nothing
}

// Oracle tightens bounds of symbolic scalars. The zero value and a nil
// *Oracle fall back to interval arithmetic.
type Oracle struct {
	Solver    solver.Solver
	Config    solver.Config
	Algorithm Algorithm

	stats Stats
}

// Stats returns the counters accumulated so far.
func (o *Oracle) Stats() Stats {
	if o == nil {
		return Stats{}
	}
	return o.stats
}

func (o *Oracle) solves() bool {
	return o != nil && o.Solver != nil && o.Algorithm != Interval
}

// Tighten returns the tightest bound the oracle can prove for e, starting
// from interval arithmetic. The result is never looser than the interval
// bound.
func (o *Oracle) Tighten(ctx context.Context, m *mip.Model, e mip.Expr) mip.Interval {
	iv := m.Interval(e)
	if e.IsConstant() || !o.solves() {
		return iv
	}
	o.stats.Calls++
	return o.tighten(ctx, m, e, iv)
}

// TightenSign is Tighten for encoders whose formulation only depends on
// the sign of e. If interval arithmetic already proves e ≤ 0 or e ≥ 0 the
// solver is not called.
func (o *Oracle) TightenSign(ctx context.Context, m *mip.Model, e mip.Expr) mip.Interval {
	iv := m.Interval(e)
	if e.IsConstant() || !o.solves() {
		return iv
	}
	o.stats.Calls++
	if iv.Hi <= 0 || iv.Lo >= 0 {
		o.stats.Skipped++
		return iv
	}
	return o.tighten(ctx, m, e, iv)
}

func (o *Oracle) tighten(ctx context.Context, m *mip.Model, e mip.Expr, iv mip.Interval) mip.Interval {
	before := iv
	iv.Hi = o.bound(ctx, m, e, mip.Maximize, iv.Hi)
	iv.Lo = o.bound(ctx, m, e, mip.Minimize, iv.Lo)
	logutil.Trace("bounds: tightened", "before", before, "after", iv)
	return iv
}

// bound proves a bound on e in direction sense. Only the solver's proven
// bound is used, never its incumbent, and the result never crosses
// existing. Every failure keeps existing.
func (o *Oracle) bound(ctx context.Context, m *mip.Model, e mip.Expr, sense mip.ObjectiveSense, existing float64) float64 {
	if err := m.SetObjective(sense, e); err != nil {
		o.stats.Failed++
		slog.Debug("bounds: cannot set objective", "error", err)
		return existing
	}

	cfg := o.Config
	if o.Algorithm == LP {
		cfg.Relax = true
	}

	o.stats.Solves++
	res, err := o.Solver.Solve(ctx, m, cfg)
	if err != nil {
		o.stats.Failed++
		slog.Debug("bounds: solve failed, keeping bound", "error", err, "bound", existing)
		return existing
	}
	if res.Status != solver.Optimal && res.Status != solver.ResourceLimit {
		o.stats.Failed++
		slog.Debug("bounds: no proof, keeping bound", "status", res.Status, "bound", existing)
		return existing
	}
	if math.IsNaN(res.Bound) {
		o.stats.Failed++
		return existing
	}

	tight := existing
	if sense == mip.Maximize {
		tight = min(existing, res.Bound)
	} else {
		tight = max(existing, res.Bound)
	}
	if tight != existing {
		o.stats.Improved++
	}
	return tight
}
