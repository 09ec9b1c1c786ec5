package bounds

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/FelixaHub/mipverify/mip"
	"github.com/FelixaHub/mipverify/solver"
)

// stubSolver liefert feste Schranken je Richtung
type stubSolver struct {
	status  solver.Status
	lo, hi  float64
	err     error
	calls   int
	relaxed bool
}

func (s *stubSolver) Solve(_ context.Context, m *mip.Model, cfg solver.Config) (solver.Result, error) {
	s.calls++
	s.relaxed = cfg.Relax
	sense := m.Objective().Sense
	if s.err != nil {
		return solver.NoResult(solver.Error, sense), s.err
	}
	res := solver.NoResult(s.status, sense)
	if s.status == solver.Optimal || s.status == solver.ResourceLimit {
		res.Bound = s.lo
		if sense == mip.Maximize {
			res.Bound = s.hi
		}
	}
	return res, nil
}

func newModel() (*mip.Model, mip.Expr) {
	m := mip.NewModel()
	x := m.NewVar("x", mip.Continuous, -2, 3)
	return m, x
}

func TestTighten(t *testing.T) {
	tests := []struct {
		name  string
		stub  *stubSolver
		algo  Algorithm
		want  mip.Interval
		solve int
	}{
		{
			name:  "Interval ruft den Solver nicht",
			stub:  &stubSolver{status: solver.Optimal, lo: -1, hi: 1},
			algo:  Interval,
			want:  mip.Interval{Lo: -2, Hi: 3},
			solve: 0,
		},
		{
			name:  "optimale Schranken verengen",
			stub:  &stubSolver{status: solver.Optimal, lo: -1, hi: 1},
			algo:  MIP,
			want:  mip.Interval{Lo: -1, Hi: 1},
			solve: 2,
		},
		{
			name:  "Ressourcenlimit liefert gueltige Schranke",
			stub:  &stubSolver{status: solver.ResourceLimit, lo: -1.5, hi: 2},
			algo:  MIP,
			want:  mip.Interval{Lo: -1.5, Hi: 2},
			solve: 2,
		},
		{
			name:  "lockere Schranken werden ignoriert",
			stub:  &stubSolver{status: solver.Optimal, lo: -5, hi: 7},
			algo:  LP,
			want:  mip.Interval{Lo: -2, Hi: 3},
			solve: 2,
		},
		{
			name:  "Solverfehler behaelt Intervall",
			stub:  &stubSolver{err: errors.New("boom")},
			algo:  MIP,
			want:  mip.Interval{Lo: -2, Hi: 3},
			solve: 2,
		},
		{
			name:  "ohne Beweis bleibt das Intervall",
			stub:  &stubSolver{status: solver.Infeasible},
			algo:  MIP,
			want:  mip.Interval{Lo: -2, Hi: 3},
			solve: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, x := newModel()
			o := &Oracle{Solver: tt.stub, Algorithm: tt.algo}
			got := o.Tighten(context.Background(), m, x)
			if got != tt.want {
				t.Errorf("Tighten() = %v, erwartet %v", got, tt.want)
			}
			if tt.stub.calls != tt.solve {
				t.Errorf("Solver-Aufrufe = %d, erwartet %d", tt.stub.calls, tt.solve)
			}
		})
	}
}

func TestTightenLPRelaxes(t *testing.T) {
	m, x := newModel()
	stub := &stubSolver{status: solver.Optimal, lo: -1, hi: 1}
	o := &Oracle{Solver: stub, Algorithm: LP}
	o.Tighten(context.Background(), m, x)
	if !stub.relaxed {
		t.Error("LP muss die Relaxation loesen")
	}
}

func TestTightenSignSkipsResolved(t *testing.T) {
	m := mip.NewModel()
	x := m.NewVar("x", mip.Continuous, 1, 3)
	stub := &stubSolver{status: solver.Optimal, lo: 2, hi: 2.5}
	o := &Oracle{Solver: stub, Algorithm: MIP}

	got := o.TightenSign(context.Background(), m, x)
	if got != (mip.Interval{Lo: 1, Hi: 3}) {
		t.Errorf("TightenSign() = %v, erwartet [1, 3]", got)
	}
	if stub.calls != 0 {
		t.Errorf("Solver-Aufrufe = %d, erwartet 0", stub.calls)
	}
	if s := o.Stats(); s.Calls != 1 || s.Skipped != 1 {
		t.Errorf("Stats = %+v, erwartet 1 Aufruf, 1 uebersprungen", s)
	}

	// Tighten loest auch bei bekanntem Vorzeichen
	if got := o.Tighten(context.Background(), m, x); got != (mip.Interval{Lo: 2, Hi: 2.5}) {
		t.Errorf("Tighten() = %v, erwartet [2, 2.5]", got)
	}
}

func TestNilOracle(t *testing.T) {
	m, x := newModel()
	var o *Oracle
	if got := o.Tighten(context.Background(), m, x.Scale(2)); got != (mip.Interval{Lo: -4, Hi: 6}) {
		t.Errorf("Tighten() = %v, erwartet [-4, 6]", got)
	}
	if s := o.Stats(); s != (Stats{}) {
		t.Errorf("Stats = %+v, erwartet leer", s)
	}
}

func TestTightenNaNBound(t *testing.T) {
	m, x := newModel()
	stub := &stubSolver{status: solver.Optimal, lo: math.NaN(), hi: math.NaN()}
	o := &Oracle{Solver: stub, Algorithm: MIP}
	if got := o.Tighten(context.Background(), m, x); got != (mip.Interval{Lo: -2, Hi: 3}) {
		t.Errorf("Tighten() = %v, erwartet [-2, 3]", got)
	}
	if s := o.Stats(); s.Failed != 2 {
		t.Errorf("Failed = %d, erwartet 2", s.Failed)
	}
}

func TestParseAlgorithm(t *testing.T) {
	for in, want := range map[string]Algorithm{"": MIP, "lp": LP, "interval": Interval, "mip": MIP} {
		got, err := ParseAlgorithm(in)
		if err != nil || got != want {
			t.Errorf("ParseAlgorithm(%q) = %v, %v; erwartet %v", in, got, err, want)
		}
	}
	if _, err := ParseAlgorithm("exact"); err == nil {
		t.Error("Erwartet Fehler fuer unbekannten Algorithmus")
	}
}
