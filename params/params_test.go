package params

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/FelixaHub/mipverify/nn"
	"github.com/FelixaHub/mipverify/tensor"
)

const description = `
id: tiny
version: v1.2.0
input_shape: [1, 2, 2, 1]
layers:
  - {kind: conv, name: conv1, filter_shape: [1, 1, 1, 1], pool_stride: [1, 2, 2, 1]}
  - {kind: fc, name: fc1, shape: [2, 1], mask: [1, 0]}
  - {kind: logits, name: logits, shape: [2, 2]}
`

const parameters = `{
  "conv1/weight": {"shape": [1, 1, 1, 1], "data": [2]},
  "conv1/bias": {"shape": [1], "data": [0]},
  "fc1/weight": {"shape": [2, 1], "data": [1, -1]},
  "fc1/bias": {"shape": [2], "data": [0, 0]},
  "logits/weight": {"shape": [2, 2], "data": [1, 0, 0, 1]},
  "logits/bias": {"shape": [2], "data": [0, 0.5]}
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBuild(t *testing.T) {
	desc, err := Load(writeFile(t, "net.yaml", description))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	store, err := LoadJSON(writeFile(t, "params.json", parameters))
	if err != nil {
		t.Fatalf("LoadJSON() error = %v", err)
	}

	net, err := desc.Build(store)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if net.ID != "tiny" || len(net.Convs) != 1 || len(net.FCs) != 1 {
		t.Fatalf("Netzwerk = %s", net)
	}

	// conv: 2x, pool: max = 8, fc: [8, -8] mit Maske [relu, durch], logits + bias
	x, _ := tensor.FromSlice([]float64{1, 4, 3, 2}, 1, 2, 2, 1)
	out, predicted, err := nn.Predict(context.Background(), net, x)
	if err != nil {
		t.Fatal(err)
	}
	if out[0] != 8 || out[1] != -7.5 || predicted != 0 {
		t.Errorf("Predict() = %v, %d; erwartet [8 -7.5], 0", out, predicted)
	}
}

func TestBuildMissingParameter(t *testing.T) {
	desc, err := Decode(strings.NewReader(description))
	if err != nil {
		t.Fatal(err)
	}
	store := JSONStore{}
	if _, err := desc.Build(store); !errors.Is(err, ErrNotFound) {
		t.Errorf("Fehler = %v, erwartet ErrNotFound", err)
	}
}

func TestGetShapeMismatch(t *testing.T) {
	store := JSONStore{"w": {Shape: []int{2, 2}, Data: []float64{1, 2, 3, 4}}}
	if _, err := store.Get("w", 4); !errors.Is(err, tensor.ErrShapeMismatch) {
		t.Errorf("Fehler = %v, erwartet ErrShapeMismatch", err)
	}
	if _, err := store.Get("w", 2, 2); err != nil {
		t.Errorf("Get() error = %v", err)
	}
}

func TestLoadJSONInconsistent(t *testing.T) {
	path := writeFile(t, "bad.json", `{"w": {"shape": [3], "data": [1, 2]}}`)
	if _, err := LoadJSON(path); !errors.Is(err, tensor.ErrShapeMismatch) {
		t.Errorf("Fehler = %v, erwartet ErrShapeMismatch", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "ohne id",
			yaml: "input_shape: [2]\nlayers:\n  - {kind: logits, name: l, shape: [2, 2]}\n",
		},
		{
			name: "Version 2",
			yaml: "id: x\nversion: v2.0.0\ninput_shape: [2]\nlayers:\n  - {kind: logits, name: l, shape: [2, 2]}\n",
		},
		{
			name: "keine Semver",
			yaml: "id: x\nversion: latest\ninput_shape: [2]\nlayers:\n  - {kind: logits, name: l, shape: [2, 2]}\n",
		},
		{
			name: "conv nach fc",
			yaml: "id: x\ninput_shape: [2]\nlayers:\n  - {kind: fc, name: f, shape: [2, 2]}\n  - {kind: conv, name: c, filter_shape: [1, 1, 1, 1], pool_stride: [1, 1, 1, 1]}\n  - {kind: logits, name: l, shape: [2, 2]}\n",
		},
		{
			name: "ohne logits",
			yaml: "id: x\ninput_shape: [2]\nlayers:\n  - {kind: fc, name: f, shape: [2, 2]}\n",
		},
		{
			name: "unbekannte Art",
			yaml: "id: x\ninput_shape: [2]\nlayers:\n  - {kind: attention, name: a}\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(strings.NewReader(tt.yaml)); !errors.Is(err, ErrInvalidDescription) {
				t.Errorf("Fehler = %v, erwartet ErrInvalidDescription", err)
			}
		})
	}
}

func TestNames(t *testing.T) {
	store := JSONStore{"b": {}, "a": {}}
	if got := store.Names(); len(got) != 2 || got[0] != "a" {
		t.Errorf("Names() = %v, erwartet [a b]", got)
	}
}
