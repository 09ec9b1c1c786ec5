package encode

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/FelixaHub/mipverify/mip"
)

func newEncoder() *Encoder {
	// ohne Solver nur Intervallarithmetik
	return New(mip.NewModel(), nil)
}

func TestReLUFixedBranches(t *testing.T) {
	ctx := context.Background()
	e := newEncoder()
	neg := e.Model.NewVar("neg", mip.Continuous, -2, -1)
	pos := e.Model.NewVar("pos", mip.Continuous, 1, 2)

	out, err := e.ReLU(ctx, neg)
	if err != nil {
		t.Fatal(err)
	}
	if !out.IsConstant() || out.Const != 0 {
		t.Errorf("ReLU(negativ) = %v, erwartet 0", out)
	}

	out, err = e.ReLU(ctx, pos)
	if err != nil {
		t.Fatal(err)
	}
	if out.String() != pos.String() {
		t.Errorf("ReLU(positiv) = %v, erwartet %v", out, pos)
	}

	if s := e.Stats(); s.Indicators != 0 || s.ReLUs != 2 {
		t.Errorf("Stats = %+v, erwartet 2 ReLUs ohne Indikatoren", s)
	}

	c, err := e.ReLU(ctx, mip.Constant(-3))
	if err != nil || c.Const != 0 {
		t.Errorf("ReLU(-3) = %v, %v", c, err)
	}
}

func TestReLUMixed(t *testing.T) {
	e := newEncoder()
	e.Slack = &Slack{}
	x := e.Model.NewVar("x", mip.Continuous, -1, 2)

	out, err := e.ReLU(context.Background(), x)
	if err != nil {
		t.Fatal(err)
	}
	if s := e.Stats(); s.MixedReLUs != 1 || s.Indicators != 1 {
		t.Fatalf("Stats = %+v, erwartet einen gemischten ReLU", s)
	}
	if e.Slack.Len() != 1 {
		t.Errorf("Slack hat %d Terme, erwartet 1", e.Slack.Len())
	}

	// Variablen: x, out, a
	tests := []struct {
		name    string
		values  []float64
		wantErr bool
	}{
		{name: "aktiv", values: []float64{1.5, 1.5, 1}},
		{name: "inaktiv", values: []float64{-0.5, 0, 0}},
		{name: "aktiv aber null", values: []float64{1.5, 0, 0}, wantErr: true},
		{name: "inaktiv aber Indikator gesetzt", values: []float64{-0.5, 0, 1}, wantErr: true},
		{name: "zu gross", values: []float64{1, 1.5, 1}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.Model.Check(tt.values, 1e-9)
			if (err != nil) != tt.wantErr {
				t.Errorf("Check() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && out.Value(tt.values) != ReLU(x.Value(tt.values)) {
				t.Errorf("out = %v, erwartet %v", out.Value(tt.values), ReLU(x.Value(tt.values)))
			}
		})
	}
}

func TestReLUUnbounded(t *testing.T) {
	e := newEncoder()
	x := e.Model.NewVar("x", mip.Continuous, math.Inf(-1), 1)
	if _, err := e.ReLU(context.Background(), x); !errors.Is(err, ErrUnboundedInput) {
		t.Errorf("Fehler = %v, erwartet ErrUnboundedInput", err)
	}
}

func TestMaxPrunesDominated(t *testing.T) {
	e := newEncoder()
	m := e.Model
	xs := []mip.Expr{
		m.NewVar("a", mip.Continuous, 0, 1),
		m.NewVar("b", mip.Continuous, 4, 5),
		m.NewVar("c", mip.Continuous, 2, 3),
	}

	out, err := e.Max(context.Background(), xs)
	if err != nil {
		t.Fatal(err)
	}
	if out.String() != xs[1].String() {
		t.Errorf("Max() = %v, erwartet %v", out, xs[1])
	}
	if s := e.Stats(); s.Pruned != 2 || s.Indicators != 0 {
		t.Errorf("Stats = %+v, erwartet 2 verworfen ohne Indikatoren", s)
	}
}

func TestMaxConstants(t *testing.T) {
	e := newEncoder()
	out, err := e.Max(context.Background(), []mip.Expr{mip.Constant(1), mip.Constant(5), mip.Constant(3)})
	if err != nil {
		t.Fatal(err)
	}
	if !out.IsConstant() || out.Const != 5 {
		t.Errorf("Max() = %v, erwartet 5", out)
	}
	if _, err := e.Max(context.Background(), nil); err == nil {
		t.Error("Erwartet Fehler fuer leere Menge")
	}
}

func TestMaxMixed(t *testing.T) {
	e := newEncoder()
	m := e.Model
	xs := []mip.Expr{
		m.NewVar("a", mip.Continuous, 0, 3),
		m.NewVar("b", mip.Continuous, 2, 5),
		m.NewVar("c", mip.Continuous, 0, 1),
	}
	out, err := e.Max(context.Background(), xs)
	if err != nil {
		t.Fatal(err)
	}
	if s := e.Stats(); s.Pruned != 1 || s.Indicators != 2 {
		t.Fatalf("Stats = %+v, erwartet 1 verworfen und 2 Indikatoren", s)
	}

	// Variablen: a, b, c, out, sel_a, sel_b
	valid := []float64{3, 2, 0.5, 3, 1, 0}
	if err := m.Check(valid, 1e-9); err != nil {
		t.Errorf("Check() = %v", err)
	}
	if out.Value(valid) != 3 {
		t.Errorf("out = %v, erwartet 3", out.Value(valid))
	}
	wrong := []float64{3, 2, 0.5, 3, 0, 1}
	if err := m.Check(wrong, 1e-9); err == nil {
		t.Error("Falsche Auswahl sollte verletzt sein")
	}
}

func TestAbsStrict(t *testing.T) {
	e := newEncoder()
	x := e.Model.NewVar("x", mip.Continuous, -1, 2)
	out, err := e.AbsStrict(context.Background(), x)
	if err != nil {
		t.Fatal(err)
	}

	// Variablen: x, out, a
	if err := e.Model.Check([]float64{-0.5, 0.5, 0}, 1e-9); err != nil {
		t.Errorf("|-0.5| = 0.5 sollte zulaessig sein: %v", err)
	}
	if err := e.Model.Check([]float64{-0.5, 1, 0}, 1e-9); err == nil {
		t.Error("|-0.5| = 1 sollte unzulaessig sein")
	}
	if err := e.Model.Check([]float64{1.5, 1.5, 1}, 1e-9); err != nil {
		t.Errorf("|1.5| = 1.5 sollte zulaessig sein: %v", err)
	}
	if out.Value([]float64{1.5, 1.5, 1}) != 1.5 {
		t.Errorf("out = %v, erwartet 1.5", out.Value([]float64{1.5, 1.5, 1}))
	}

	neg := e.Model.NewVar("neg", mip.Continuous, -3, -1)
	got, err := e.AbsStrict(context.Background(), neg)
	if err != nil {
		t.Fatal(err)
	}
	if got.String() != neg.Scale(-1).String() {
		t.Errorf("AbsStrict(negativ) = %v, erwartet %v", got, neg.Scale(-1))
	}
}

func TestAbsLoose(t *testing.T) {
	e := newEncoder()
	x := e.Model.NewVar("x", mip.Continuous, -1, 2)
	if _, err := e.AbsLoose(x); err != nil {
		t.Fatal(err)
	}
	if s := e.Stats(); s.Indicators != 0 || s.LooseAbses != 1 {
		t.Errorf("Stats = %+v, erwartet keinen Indikator", s)
	}
	// out darf groesser als |x| sein
	if err := e.Model.Check([]float64{-0.5, 1.5}, 1e-9); err != nil {
		t.Errorf("Check() = %v", err)
	}
	if err := e.Model.Check([]float64{-0.5, 0.25}, 1e-9); err == nil {
		t.Error("out < |x| sollte unzulaessig sein")
	}
}

func TestSetMaxIndex(t *testing.T) {
	e := newEncoder()
	xs := []mip.Expr{
		e.Model.NewVar("a", mip.Continuous, 0, 1),
		e.Model.NewVar("b", mip.Continuous, 0, 1),
	}
	if err := e.SetMaxIndex(xs, 0, 0.1); err != nil {
		t.Fatal(err)
	}
	if err := e.Model.Check([]float64{0.5, 0.3}, 1e-9); err != nil {
		t.Errorf("Check() = %v", err)
	}
	if err := e.Model.Check([]float64{0.5, 0.45}, 1e-9); err == nil {
		t.Error("Abstand unter Toleranz sollte unzulaessig sein")
	}
	if err := e.SetMaxIndex(xs, 2, 0); err == nil {
		t.Error("Erwartet Fehler fuer Index ausserhalb")
	}
	if err := e.SetMaxIndex(xs, 0, -1); err == nil {
		t.Error("Erwartet Fehler fuer negative Toleranz")
	}
}

func TestNormObjective(t *testing.T) {
	ctx := context.Background()

	t.Run("L2", func(t *testing.T) {
		e := newEncoder()
		x := e.Model.NewVar("x", mip.Continuous, -1, 1)
		lin, quad, err := e.NormObjective(ctx, []mip.Expr{x, mip.Constant(2), x.Scale(2)}, L2)
		if err != nil {
			t.Fatal(err)
		}
		if lin.Const != 4 {
			t.Errorf("Konstante = %v, erwartet 4", lin.Const)
		}
		if len(quad) != 2 || quad[0].Var != 0 {
			t.Errorf("quad = %v, erwartet x und eine Hilfsvariable", quad)
		}
		// Hilfsvariable y = 2x mit Schranken [-2, 2]
		if got := e.Model.Bounds(quad[1].Var); got != (mip.Interval{Lo: -2, Hi: 2}) {
			t.Errorf("Hilfsvariable Schranken = %v", got)
		}

		// an x = 0.5 ist die Zielfunktion 0.5² + 2² + 1² = Σ x_i²
		if err := e.Model.SetQuadObjective(mip.Minimize, lin, quad); err != nil {
			t.Fatal(err)
		}
		values := []float64{0.5, 1}
		if err := e.Model.Check(values, 1e-9); err != nil {
			t.Fatalf("Punkt verletzt das Modell: %v", err)
		}
		if got := e.Model.Objective().Value(values); math.Abs(got-5.25) > 1e-12 {
			t.Errorf("L2 Zielfunktion = %v, erwartet 5.25", got)
		}
		if got := NormValue([]float64{0.5, 2, 1}, L2); math.Abs(got*got-5.25) > 1e-12 {
			t.Errorf("NormValue² = %v, erwartet 5.25", got*got)
		}
	})

	t.Run("L1", func(t *testing.T) {
		e := newEncoder()
		x := e.Model.NewVar("x", mip.Continuous, -1, 1)
		y := e.Model.NewVar("y", mip.Continuous, -1, 1)
		lin, quad, err := e.NormObjective(ctx, []mip.Expr{x, y}, L1)
		if err != nil {
			t.Fatal(err)
		}
		if quad != nil {
			t.Errorf("L1 darf keine quadratischen Terme haben: %v", quad)
		}
		// Variablen: x, y, |x|, |y|
		if got := lin.Value([]float64{0.5, -0.25, 0.5, 0.25}); got != 0.75 {
			t.Errorf("L1 = %v, erwartet 0.75", got)
		}
	})

	t.Run("LInf", func(t *testing.T) {
		e := newEncoder()
		x := e.Model.NewVar("x", mip.Continuous, -1, 1)
		y := e.Model.NewVar("y", mip.Continuous, -1, 1)
		if _, _, err := e.NormObjective(ctx, []mip.Expr{x, y}, LInf); err != nil {
			t.Fatal(err)
		}
		if s := e.Stats(); s.Maxes != 1 || s.LooseAbses != 2 {
			t.Errorf("Stats = %+v, erwartet ein Maximum ueber 2 Absolutwerte", s)
		}
	})
}

func TestParseNorm(t *testing.T) {
	for in, want := range map[string]Norm{"1": L1, "l1": L1, "L2": L2, "inf": LInf, "linf": LInf} {
		got, err := ParseNorm(in)
		if err != nil || got != want {
			t.Errorf("ParseNorm(%q) = %v, %v; erwartet %v", in, got, err, want)
		}
	}
	if _, err := ParseNorm("l3"); err == nil {
		t.Error("Erwartet Fehler fuer l3")
	}
}

func TestNormValue(t *testing.T) {
	xs := []float64{3, -4}
	for n, want := range map[Norm]float64{L1: 7, L2: 5, LInf: 4} {
		if got := NormValue(xs, n); math.Abs(got-want) > 1e-12 {
			t.Errorf("NormValue(%v) = %v, erwartet %v", n, got, want)
		}
	}
	if Argmax([]float64{1, 3, 3}) != 1 {
		t.Error("Argmax muss bei Gleichstand den ersten Index liefern")
	}
}
