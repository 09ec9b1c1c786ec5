package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/FelixaHub/mipverify/bounds"
	"github.com/FelixaHub/mipverify/encode"
	"github.com/FelixaHub/mipverify/mip"
	"github.com/FelixaHub/mipverify/nn"
	"github.com/FelixaHub/mipverify/solver"
	"github.com/FelixaHub/mipverify/tensor"
)

// ErrTargets is returned when the requested targets do not name a
// non-empty set of output labels.
var ErrTargets = errors.New("verify: invalid targets")

// ErrTolerance is returned for a negative or non-finite winning margin.
var ErrTolerance = errors.New("verify: invalid tolerance")

// DefaultTolerance is the margin by which the target logit must win.
const DefaultTolerance = 1e-6

// Request describes one adversarial search.
type Request struct {
	Network *nn.Network
	Input   *tensor.Tensor[float64]

	// Targets are the labels of which one must become the maximum. With
	// Invert they are the labels that must not. Empty targets mean "not
	// the label the network predicts for Input".
	Targets []int
	Invert  bool

	Perturbation Perturbation
	Norm         encode.Norm
	// Tolerance is the winning margin. Nil selects DefaultTolerance; zero
	// accepts a tie with the best other label.
	Tolerance *float64
	// SlackWeight adds SlackWeight times the ReLU tightness slack to the
	// objective. Zero leaves the objective the pure norm.
	SlackWeight float64
}

// Result reports the outcome of a search. Perturbation and the values
// derived from it are only set when the solver found an incumbent.
type Result struct {
	Status solver.Status `json:"status"`

	Predicted        int       `json:"predicted"`
	TargetIndexes    []int     `json:"target_indexes"`
	Perturbation     []float64 `json:"perturbation,omitempty"`
	PerturbedInput   []float64 `json:"perturbed_input,omitempty"`
	Output           []float64 `json:"output,omitempty"`
	AdversarialLabel int       `json:"adversarial_label"`

	// NormValue is the norm of Perturbation computed in closed form.
	NormValue float64 `json:"norm_value"`
	// Objective is the incumbent objective, Bound the proven bound on it.
	// Either is nil when not finite.
	Objective *float64 `json:"objective,omitempty"`
	Bound     *float64 `json:"bound,omitempty"`

	Model    mip.Stats    `json:"model"`
	Encoding encode.Stats `json:"encoding"`
	Oracle   bounds.Stats `json:"oracle"`
	Cached   bool         `json:"cached"`

	BuildTime time.Duration `json:"build_time"`
	SolveTime time.Duration `json:"solve_time"`
	TotalTime time.Duration `json:"total_time"`
}

// HasPerturbation reports whether the search found a perturbation.
func (r *Result) HasPerturbation() bool {
	return r.Perturbation != nil
}

// TargetIndexes resolves targets against n logits. With invert the
// complement is returned.
func TargetIndexes(targets []int, n int, invert bool) ([]int, error) {
	for _, k := range targets {
		if k < 0 || k >= n {
			return nil, fmt.Errorf("%w: %d out of range for %d outputs", ErrTargets, k, n)
		}
	}
	if !invert {
		out := slices.Clone(targets)
		slices.Sort(out)
		return slices.Compact(out), nil
	}
	var out []int
	for k := range n {
		if !slices.Contains(targets, k) {
			out = append(out, k)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: inverting %v leaves no target", ErrTargets, targets)
	}
	return out, nil
}

// FindAdversarialExample searches for the perturbation of least norm that
// makes one of the target labels the network's prediction.
func (b *Builder) FindAdversarialExample(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	net, input := req.Network, req.Input
	if err := checkDomain(input); err != nil {
		return nil, err
	}
	tol := DefaultTolerance
	if req.Tolerance != nil {
		tol = *req.Tolerance
	}
	if tol < 0 || math.IsNaN(tol) || math.IsInf(tol, 0) {
		return nil, fmt.Errorf("%w: %g", ErrTolerance, tol)
	}

	_, predicted, err := nn.Predict(ctx, net, input)
	if err != nil {
		return nil, err
	}
	targets, invert := req.Targets, req.Invert
	if len(targets) == 0 {
		targets, invert = []int{predicted}, true
	}
	indexes, err := TargetIndexes(targets, net.NumOutputs(), invert)
	if err != nil {
		return nil, err
	}

	built, err := b.BuildOrLoad(ctx, net, input, req.Perturbation)
	if err != nil {
		return nil, err
	}
	m := built.Model
	if err := m.Pin(input); err != nil {
		return nil, err
	}

	// target constraints and the objective are encoded with the build
	// configuration, like every other bound computed for the model
	oracle := &bounds.Oracle{Solver: b.Solver, Config: b.Phases.Build, Algorithm: b.tightening()}
	enc := encode.New(m.Model, oracle)
	if err := setTargets(ctx, enc, m.Output, indexes, tol); err != nil {
		return nil, err
	}
	linear, quad, err := enc.NormObjective(ctx, m.Perturbation.Data, req.Norm)
	if err != nil {
		return nil, err
	}
	if req.SlackWeight != 0 {
		linear = linear.Plus(m.Slack.Scale(req.SlackWeight))
	}
	if err := m.SetQuadObjective(mip.Minimize, linear, quad); err != nil {
		return nil, err
	}

	res := &Result{
		Predicted:     predicted,
		TargetIndexes: indexes,
		Model:         m.Stats(),
		Encoding:      addStats(built.Encoding, enc.Stats()),
		Oracle:        addOracleStats(built.Oracle, oracle.Stats()),
		Cached:        built.Cached,
		BuildTime:     built.BuildTime,
	}

	solveStart := time.Now()
	sol, err := b.Solver.Solve(ctx, m.Model, b.Phases.Search)
	res.SolveTime = time.Since(solveStart)
	if err != nil {
		return nil, fmt.Errorf("verify: search on %s: %w", net.ID, err)
	}
	res.Status, res.Objective, res.Bound = sol.Status, finite(sol.Objective), finite(sol.Bound)

	if sol.HasSolution() && (sol.Status == solver.Optimal || sol.Status == solver.ResourceLimit) {
		res.Perturbation = mip.Values(m.Perturbation, sol.Values).Data
		res.PerturbedInput = mip.Values(m.Base, sol.Values).Data
		res.Output = make([]float64, len(m.Output))
		for i, y := range m.Output {
			res.Output[i] = y.Value(sol.Values)
		}
		res.AdversarialLabel = encode.Argmax(res.Output)
		res.NormValue = encode.NormValue(res.Perturbation, req.Norm)
	}
	res.TotalTime = time.Since(start)

	slog.Info("verify: search finished", "network", net.ID, "status", res.Status,
		"predicted", predicted, "targets", indexes, "norm", req.Norm, "norm_value", res.NormValue,
		"bound", sol.Bound, "nodes", sol.Nodes, "duration", res.TotalTime)
	return res, nil
}

// setTargets forces one of indexes to be the maximum of out. When a
// single label is excluded the cheaper not-max formulation is used.
func setTargets(ctx context.Context, enc *encode.Encoder, out []mip.Expr, indexes []int, tol float64) error {
	if len(indexes) == len(out)-1 {
		for k := range out {
			if !slices.Contains(indexes, k) {
				return enc.SetNotMaxIndex(ctx, out, k, tol)
			}
		}
	}
	return enc.SetMaxIndexes(ctx, out, indexes, tol)
}

func finite(x float64) *float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil
	}
	return &x
}

func addStats(a, b encode.Stats) encode.Stats {
	return encode.Stats{
		ReLUs:       a.ReLUs + b.ReLUs,
		MixedReLUs:  a.MixedReLUs + b.MixedReLUs,
		Maxes:       a.Maxes + b.Maxes,
		Pruned:      a.Pruned + b.Pruned,
		Indicators:  a.Indicators + b.Indicators,
		StrictAbses: a.StrictAbses + b.StrictAbses,
		LooseAbses:  a.LooseAbses + b.LooseAbses,
	}
}

func addOracleStats(a, b bounds.Stats) bounds.Stats {
	return bounds.Stats{
		Calls:    a.Calls + b.Calls,
		Skipped:  a.Skipped + b.Skipped,
		Solves:   a.Solves + b.Solves,
		Improved: a.Improved + b.Improved,
		Failed:   a.Failed + b.Failed,
	}
}
