package mip

import (
	"bufio"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/FelixaHub/mipverify/tensor"
)

const (
	magic         uint32 = 0x4d49504d // "MIPM"
	formatVersion uint16 = 1
)

// ErrFormat is returned when an artifact is not a model written by Encode.
var ErrFormat = errors.New("mip: invalid model artifact")

type wireExpr struct {
	Terms []Term
	Const float64
}

type wireTensor struct {
	Shape []int
	Data  []wireExpr
}

type wireModel struct {
	ID     uuid.UUID
	Vars   []VarInfo
	Cons   []Constraint
	Obj    wireObjective
	Groups map[string]wireTensor
}

type wireObjective struct {
	Sense  ObjectiveSense
	Linear wireExpr
	Quad   []QuadTerm
}

func toWire(e Expr) wireExpr {
	return wireExpr{Terms: e.Terms, Const: e.Const}
}

func (m *Model) fromWire(w wireExpr) (Expr, error) {
	for _, t := range w.Terms {
		if int(t.Var) < 0 || int(t.Var) >= len(m.vars) {
			return Expr{}, fmt.Errorf("%w: term on unknown variable %d", ErrFormat, t.Var)
		}
	}
	return Expr{Terms: w.Terms, Const: w.Const, m: m}, nil
}

// Encode writes m together with named expression tensors (the variable
// groups of a build) to w.
func Encode(w io.Writer, m *Model, groups map[string]*tensor.Tensor[Expr]) error {
	if err := binary.Write(w, binary.LittleEndian, magic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, formatVersion); err != nil {
		return err
	}

	wm := wireModel{
		ID:   m.id,
		Vars: m.vars,
		Cons: m.cons,
		Obj: wireObjective{
			Sense:  m.obj.Sense,
			Linear: toWire(m.obj.Linear),
			Quad:   m.obj.Quad,
		},
		Groups: make(map[string]wireTensor, len(groups)),
	}
	for name, t := range groups {
		if err := m.Owns(t.Data...); err != nil {
			return fmt.Errorf("group %q: %w", name, err)
		}
		wt := wireTensor{Shape: t.Shape, Data: make([]wireExpr, len(t.Data))}
		for i, e := range t.Data {
			wt.Data[i] = toWire(e)
		}
		wm.Groups[name] = wt
	}
	return gob.NewEncoder(w).Encode(&wm)
}

// Decode reads a model and its named expression tensors written by Encode.
func Decode(r io.Reader) (*Model, map[string]*tensor.Tensor[Expr], error) {
	br := bufio.NewReader(r)

	var mg uint32
	if err := binary.Read(br, binary.LittleEndian, &mg); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if mg != magic {
		return nil, nil, fmt.Errorf("%w: bad magic %#x", ErrFormat, mg)
	}
	var version uint16
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if version != formatVersion {
		return nil, nil, fmt.Errorf("%w: unsupported version %d", ErrFormat, version)
	}

	var wm wireModel
	if err := gob.NewDecoder(br).Decode(&wm); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	m := &Model{id: wm.ID, vars: wm.Vars, cons: wm.Cons}
	for i, c := range m.cons {
		for _, t := range c.Terms {
			if int(t.Var) < 0 || int(t.Var) >= len(m.vars) {
				return nil, nil, fmt.Errorf("%w: constraint %d references unknown variable %d", ErrFormat, i, t.Var)
			}
		}
	}
	lin, err := m.fromWire(wm.Obj.Linear)
	if err != nil {
		return nil, nil, err
	}
	m.obj = Objective{Sense: wm.Obj.Sense, Linear: lin, Quad: wm.Obj.Quad}

	groups := make(map[string]*tensor.Tensor[Expr], len(wm.Groups))
	for name, wt := range wm.Groups {
		t := &tensor.Tensor[Expr]{Shape: wt.Shape, Data: make([]Expr, len(wt.Data))}
		if tensor.Size(wt.Shape) != len(wt.Data) {
			return nil, nil, fmt.Errorf("%w: group %q shape %v holds %d elements", ErrFormat, name, wt.Shape, len(wt.Data))
		}
		for i, we := range wt.Data {
			if t.Data[i], err = m.fromWire(we); err != nil {
				return nil, nil, err
			}
		}
		groups[name] = t
	}
	return m, groups, nil
}
