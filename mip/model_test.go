package mip

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/FelixaHub/mipverify/tensor"
)

func TestSumMergesTerms(t *testing.T) {
	m := NewModel()
	x := m.NewVar("x", Continuous, 0, 1)
	y := m.NewVar("y", Continuous, 0, 1)

	e, err := Sum([]float64{2, 1, -2}, []Expr{x, y, x}, 3)
	if err != nil {
		t.Fatal(err)
	}
	want := []Term{{Var: 1, Coef: 1}}
	if diff := cmp.Diff(want, e.Terms); diff != "" {
		t.Errorf("Terms mismatch (-want +got):\n%s", diff)
	}
	if e.Const != 3 {
		t.Errorf("Const = %v, erwartet 3", e.Const)
	}
}

func TestForeignModel(t *testing.T) {
	a, b := NewModel(), NewModel()
	x := a.NewVar("x", Continuous, 0, 1)
	y := b.NewVar("y", Continuous, 0, 1)

	if _, err := Sum([]float64{1, 1}, []Expr{x, y}, 0); !errors.Is(err, ErrForeignModel) {
		t.Errorf("Sum() Fehler = %v, erwartet ErrForeignModel", err)
	}
	if err := a.AddLE(x, y); !errors.Is(err, ErrForeignModel) {
		t.Errorf("AddLE() Fehler = %v, erwartet ErrForeignModel", err)
	}
	// Konstanten gehoeren keinem Modell
	if err := a.AddLE(x, Constant(2)); err != nil {
		t.Errorf("AddLE() mit Konstante: %v", err)
	}
}

func TestInterval(t *testing.T) {
	m := NewModel()
	x := m.NewVar("x", Continuous, -1, 2)
	y := m.NewVar("y", Continuous, 0, 3)

	e := x.Scale(2).Minus(y).AddConst(1)
	if got, want := m.Interval(e), (Interval{Lo: -4, Hi: 5}); got != want {
		t.Errorf("Interval() = %v, erwartet %v", got, want)
	}

	m.Tighten(0, Interval{Lo: 0, Hi: 5})
	if got, want := m.Bounds(0), (Interval{Lo: 0, Hi: 2}); got != want {
		t.Errorf("Tighten darf nicht lockern: %v, erwartet %v", got, want)
	}
}

func TestConstantConstraint(t *testing.T) {
	m := NewModel()
	if err := m.AddLE(Constant(1), Constant(2)); err != nil {
		t.Errorf("1 <= 2 sollte gelten: %v", err)
	}
	if err := m.AddGE(Constant(1), Constant(2)); err == nil {
		t.Error("Erwartet Fehler fuer 1 >= 2")
	}
	if len(m.Constraints()) != 0 {
		t.Errorf("Konstante Constraints duerfen nicht gespeichert werden, %d vorhanden", len(m.Constraints()))
	}
}

func TestCheck(t *testing.T) {
	m := NewModel()
	x := m.NewVar("x", Continuous, 0, 10)
	a := m.NewVar("a", Binary, 0, 1)
	if err := m.AddLE(x, a.Scale(10)); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		values  []float64
		wantErr bool
	}{
		{name: "zulaessig", values: []float64{5, 1}},
		{name: "Constraint verletzt", values: []float64{5, 0}, wantErr: true},
		{name: "nicht ganzzahlig", values: []float64{0, 0.5}, wantErr: true},
		{name: "Schranke verletzt", values: []float64{11, 1}, wantErr: true},
		{name: "falsche Laenge", values: []float64{1}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.Check(tt.values, 1e-9)
			if (err != nil) != tt.wantErr {
				t.Errorf("Check() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncodeDecode(t *testing.T) {
	m := NewModel()
	x := m.NewVar("x", Continuous, -1, 1)
	a := m.NewVar("a", Binary, 0, 1)
	if err := m.AddLE(x, a); err != nil {
		t.Fatal(err)
	}
	if err := m.SetObjective(Maximize, x.AddConst(2)); err != nil {
		t.Fatal(err)
	}
	group, err := tensor.FromSlice([]Expr{x, a.Scale(3), Constant(7)}, 3)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, m, map[string]*tensor.Tensor[Expr]{"g": group}); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	got, groups, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if got.ID() != m.ID() {
		t.Errorf("ID = %v, erwartet %v", got.ID(), m.ID())
	}
	if diff := cmp.Diff(m.Vars(), got.Vars()); diff != "" {
		t.Errorf("Vars mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(m.Constraints(), got.Constraints()); diff != "" {
		t.Errorf("Constraints mismatch (-want +got):\n%s", diff)
	}

	g := groups["g"]
	if g == nil {
		t.Fatal("Gruppe g fehlt")
	}
	values := []float64{0.5, 1}
	want := []float64{0.5, 3, 7}
	for i, e := range g.Data {
		if e.Value(values) != want[i] {
			t.Errorf("Gruppe[%d] = %v, erwartet %v", i, e.Value(values), want[i])
		}
	}
	// dekodierte Ausdruecke gehoeren zum dekodierten Modell
	if err := got.Owns(g.Data...); err != nil {
		t.Errorf("Owns() = %v", err)
	}
	if obj := got.Objective(); obj.Sense != Maximize || obj.Linear.Const != 2 {
		t.Errorf("Objective = %+v, erwartet Maximize x+2", obj)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("nope"), []byte("MIPMxxxxxxxx")} {
		if _, _, err := Decode(bytes.NewReader(data)); !errors.Is(err, ErrFormat) {
			t.Errorf("Decode(%q) Fehler = %v, erwartet ErrFormat", data, err)
		}
	}
}

func TestRingAffine(t *testing.T) {
	m := NewModel()
	xs := []Expr{m.NewVar("x", Continuous, 0, 1), Constant(2)}
	e, err := Ring{M: m}.Affine([]float64{3, 0.5}, xs, 1)
	if err != nil {
		t.Fatal(err)
	}
	want := Expr{Terms: []Term{{Var: 0, Coef: 3}}, Const: 2}
	if diff := cmp.Diff(want, e, cmpopts.IgnoreUnexported(Expr{})); diff != "" {
		t.Errorf("Affine() mismatch (-want +got):\n%s", diff)
	}
}
