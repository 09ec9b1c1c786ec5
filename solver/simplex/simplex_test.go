package simplex

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/FelixaHub/mipverify/mip"
	"github.com/FelixaHub/mipverify/solver"
)

func TestSolveLP(t *testing.T) {
	m := mip.NewModel()
	x := m.NewVar("x", mip.Continuous, 0, 10)
	y := m.NewVar("y", mip.Continuous, 0, 10)
	require.NoError(t, m.AddLE(x.Plus(y.Scale(2)), mip.Constant(4)))
	require.NoError(t, m.AddLE(x, mip.Constant(3)))
	require.NoError(t, m.SetObjective(mip.Maximize, x.Plus(y)))

	res, err := New().Solve(context.Background(), m, solver.Config{})
	require.NoError(t, err)
	require.Equal(t, solver.Optimal, res.Status)
	require.InDelta(t, 3.5, res.Objective, 1e-6)
	require.InDelta(t, 3.5, res.Bound, 1e-6)
	require.NoError(t, m.Check(res.Values, 1e-6))
}

// mipModel: max x − 2a mit x ≤ 4a, x ≤ 3, a binaer. Relaxation 1.5, ganzzahlig 1.
func mipModel(t *testing.T) *mip.Model {
	t.Helper()
	m := mip.NewModel()
	x := m.NewVar("x", mip.Continuous, 0, 10)
	a := m.NewVar("a", mip.Binary, 0, 1)
	require.NoError(t, m.AddLE(x, a.Scale(4)))
	require.NoError(t, m.AddLE(x, mip.Constant(3)))
	require.NoError(t, m.SetObjective(mip.Maximize, x.Minus(a.Scale(2))))
	return m
}

func TestSolveMIP(t *testing.T) {
	m := mipModel(t)
	res, err := New().Solve(context.Background(), m, solver.Config{})
	require.NoError(t, err)
	require.Equal(t, solver.Optimal, res.Status)
	require.True(t, res.HasSolution())
	require.InDelta(t, 1, res.Objective, 1e-6)
	require.InDelta(t, 3, res.Values[0], 1e-6)
	require.Equal(t, 1.0, res.Values[1])
	require.NoError(t, m.Check(res.Values, 1e-6))
}

func TestSolveRelaxed(t *testing.T) {
	m := mipModel(t)
	res, err := New().Solve(context.Background(), m, solver.Config{Relax: true})
	require.NoError(t, err)
	require.Equal(t, solver.Optimal, res.Status)
	require.InDelta(t, 1.5, res.Bound, 1e-6)
}

func TestSolveNodeLimit(t *testing.T) {
	m := mipModel(t)
	res, err := New().Solve(context.Background(), m, solver.Config{NodeLimit: 1})
	require.NoError(t, err)
	require.Equal(t, solver.ResourceLimit, res.Status)
	// die bewiesene Schranke bleibt gueltig
	require.GreaterOrEqual(t, res.Bound, 1-1e-6)
}

func TestSolveInfeasible(t *testing.T) {
	m := mip.NewModel()
	x := m.NewVar("x", mip.Continuous, 0, 10)
	require.NoError(t, m.AddGE(x, mip.Constant(2)))
	require.NoError(t, m.AddLE(x, mip.Constant(1)))
	require.NoError(t, m.SetObjective(mip.Minimize, x))

	res, err := New().Solve(context.Background(), m, solver.Config{})
	require.NoError(t, err)
	require.Equal(t, solver.Infeasible, res.Status)
	require.False(t, res.HasSolution())
}

func TestSolveQuadraticUnsupported(t *testing.T) {
	m := mip.NewModel()
	x := m.AddVar("x", mip.Continuous, -1, 1)
	require.NoError(t, m.SetQuadObjective(mip.Minimize, mip.Constant(0), []mip.QuadTerm{{Var: x, Coef: 1}}))

	_, err := New().Solve(context.Background(), m, solver.Config{})
	if !errors.Is(err, solver.ErrUnsupported) {
		t.Errorf("Fehler = %v, erwartet ErrUnsupported", err)
	}
}

func TestRegistered(t *testing.T) {
	s, err := solver.New("simplex")
	require.NoError(t, err)
	require.IsType(t, &Solver{}, s)
	require.Contains(t, solver.Names(), "simplex")

	_, err = solver.New("gurobi")
	require.Error(t, err)
}

func TestSolveEquality(t *testing.T) {
	m := mip.NewModel()
	x := m.NewVar("x", mip.Continuous, 0, 1)
	y := m.NewVar("y", mip.Continuous, 0, 1)
	require.NoError(t, m.AddEQ(x.Plus(y), mip.Constant(0.3)))
	require.NoError(t, m.SetObjective(mip.Maximize, x))

	res, err := New().Solve(context.Background(), m, solver.Config{})
	require.NoError(t, err)
	require.Equal(t, solver.Optimal, res.Status)
	require.InDelta(t, 0.3, res.Objective, 1e-6)
	require.InDelta(t, 0.3, res.Bound, 1e-6)
	require.NoError(t, m.Check(res.Values, 1e-6))

	// beide Seiten der Gleichung muessen gelten
	require.NoError(t, m.SetObjective(mip.Minimize, x.Plus(y)))
	res, err = New().Solve(context.Background(), m, solver.Config{})
	require.NoError(t, err)
	require.InDelta(t, 0.3, res.Objective, 1e-6)
}

func TestSolveEqualityOneHot(t *testing.T) {
	// genau ein Indikator ist aktiv: max x1 + x2 mit xi ≤ ai, a1 + a2 = 1
	m := mip.NewModel()
	x1 := m.NewVar("x1", mip.Continuous, 0, 1)
	x2 := m.NewVar("x2", mip.Continuous, 0, 1)
	a1 := m.NewVar("a1", mip.Binary, 0, 1)
	a2 := m.NewVar("a2", mip.Binary, 0, 1)
	require.NoError(t, m.AddLE(x1, a1))
	require.NoError(t, m.AddLE(x2, a2))
	require.NoError(t, m.AddEQ(a1.Plus(a2), mip.Constant(1)))
	require.NoError(t, m.SetObjective(mip.Maximize, x1.Plus(x2)))

	res, err := New().Solve(context.Background(), m, solver.Config{})
	require.NoError(t, err)
	require.Equal(t, solver.Optimal, res.Status)
	require.InDelta(t, 1, res.Objective, 1e-6)
	require.InDelta(t, 1, res.Bound, 1e-6)
	require.NoError(t, m.Check(res.Values, 1e-6))
}

// gapModel: max 3a + 2.9b mit a + b ≤ 1.5. Optimum 3, Relaxation 4.45.
func gapModel(t *testing.T) *mip.Model {
	t.Helper()
	m := mip.NewModel()
	a := m.NewVar("a", mip.Binary, 0, 1)
	b := m.NewVar("b", mip.Binary, 0, 1)
	require.NoError(t, m.AddLE(a.Plus(b), mip.Constant(1.5)))
	require.NoError(t, m.SetObjective(mip.Maximize, a.Scale(3).Plus(b.Scale(2.9))))
	return m
}

func TestSolveGapKeepsProvenBound(t *testing.T) {
	res, err := New().Solve(context.Background(), gapModel(t), solver.Config{})
	require.NoError(t, err)
	require.Equal(t, solver.Optimal, res.Status)
	require.InDelta(t, 3, res.Objective, 1e-6)
	require.InDelta(t, 3, res.Bound, 1e-6)

	// mit Luecke werden Knoten ohne Loesung abgeschnitten; die Schranke
	// muss deren Relaxationswert behalten statt des Incumbents
	res, err = New().Solve(context.Background(), gapModel(t), solver.Config{Gap: 0.5})
	require.NoError(t, err)
	require.Equal(t, solver.Optimal, res.Status)
	require.InDelta(t, 3, res.Objective, 1e-6)
	require.GreaterOrEqual(t, res.Bound, 4.4-1e-6)
	require.LessOrEqual(t, res.Bound, 4.45+1e-6)
}
