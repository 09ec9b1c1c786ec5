package verify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/FelixaHub/mipverify/bounds"
	"github.com/FelixaHub/mipverify/cache"
	"github.com/FelixaHub/mipverify/encode"
	"github.com/FelixaHub/mipverify/mip"
	"github.com/FelixaHub/mipverify/nn"
	"github.com/FelixaHub/mipverify/solver"
	"github.com/FelixaHub/mipverify/tensor"
)

// Builder builds models and runs searches on them. Its fields are read
// only; one Builder may serve concurrent searches on distinct models.
type Builder struct {
	// Cache stores reusable models. Nil disables caching.
	Cache  cache.Store
	Solver solver.Solver
	Phases solver.Phases
	// Tightening selects the bound oracle algorithm. Empty means MIP.
	Tightening bounds.Algorithm
}

// Built is a model with its variable groups.
type Built struct {
	Model *Model
	Key   cache.Key
	// Cached reports whether the model was loaded instead of built.
	Cached bool

	Encoding  encode.Stats
	Oracle    bounds.Stats
	BuildTime time.Duration
}

// Model is a mip.Model together with its named groups.
type Model struct {
	*mip.Model
	Variables
	// Slack is the accumulated tightness slack of every mixed ReLU.
	Slack mip.Expr
}

func (b *Builder) tightening() bounds.Algorithm {
	if b.Tightening == "" {
		return bounds.MIP
	}
	return b.Tightening
}

// Key returns the cache key of the model for net, shape and family.
func (b *Builder) Key(net *nn.Network, shape []int, p Perturbation) cache.Key {
	return cache.Key{
		NetworkID:       net.ID,
		Parameters:      net.Fingerprint,
		InputShape:      shape,
		Variant:         p.Tag() + "/" + string(b.tightening()),
		EncodingVersion: encode.Version,
	}
}

// BuildOrLoad returns the model of net for inputs like input under
// family p. Reusable models come from the cache when present and are
// stored after a fresh build. The returned model does not yet constrain
// the input; see Pin.
func (b *Builder) BuildOrLoad(ctx context.Context, net *nn.Network, input *tensor.Tensor[float64], p Perturbation) (*Built, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if !tensor.SameShape(input.Shape, net.InputShape) {
		return nil, fmt.Errorf("%w: network %s expects input %v, got %v", tensor.ErrShapeMismatch, net.ID, net.InputShape, input.Shape)
	}

	key := b.Key(net, input.Shape, p)
	caching := b.Cache != nil && p.Reusable()
	if caching {
		data, err := b.Cache.Get(ctx, key)
		switch {
		case err == nil:
			start := time.Now()
			m, err := decode(data)
			if err != nil {
				return nil, fmt.Errorf("verify: cached model %s: %w", key, err)
			}
			slog.Info("verify: loaded cached model", "key", key, "vars", m.NumVars(), "duration", time.Since(start))
			return &Built{Model: m, Key: key, Cached: true, BuildTime: time.Since(start)}, nil
		case !errors.Is(err, cache.ErrNotFound):
			return nil, err
		}
	}

	built, err := b.build(ctx, net, input, p)
	if err != nil {
		return nil, err
	}
	built.Key = key

	if caching {
		var buf bytes.Buffer
		if err := encodeModel(&buf, built.Model); err != nil {
			return nil, err
		}
		if err := b.Cache.Put(ctx, key, buf.Bytes()); err != nil {
			return nil, fmt.Errorf("verify: store model %s: %w", key, err)
		}
	}
	return built, nil
}

func (b *Builder) build(ctx context.Context, net *nn.Network, input *tensor.Tensor[float64], p Perturbation) (*Built, error) {
	start := time.Now()
	m := mip.NewModel()
	oracle := &bounds.Oracle{Solver: b.Solver, Config: b.Phases.Build, Algorithm: b.tightening()}
	enc := encode.New(m, oracle)
	enc.Slack = &encode.Slack{}

	vars, err := p.variables(m, input.Shape, input)
	if err != nil {
		return nil, err
	}
	vars.Output, err = nn.Forward[mip.Expr](ctx, enc, net, vars.Base)
	if err != nil {
		return nil, err
	}
	slack, err := enc.Slack.Expr()
	if err != nil {
		return nil, err
	}

	built := &Built{
		Model:     &Model{Model: m, Variables: vars, Slack: slack},
		Encoding:  enc.Stats(),
		Oracle:    oracle.Stats(),
		BuildTime: time.Since(start),
	}
	st := m.Stats()
	slog.Info("verify: built model", "network", net.ID, "perturbation", p,
		"vars", st.Vars, "binaries", st.Binaries, "constraints", st.Constraints,
		"solves", built.Oracle.Solves, "skipped", built.Oracle.Skipped, "duration", built.BuildTime)
	return built, nil
}

// Pin constrains the input group to input. Constant input groups are
// checked instead.
func (m *Model) Pin(input *tensor.Tensor[float64]) error {
	if !tensor.SameShape(input.Shape, m.Input.Shape) {
		return fmt.Errorf("%w: model input is %v, got %v", tensor.ErrShapeMismatch, m.Input.Shape, input.Shape)
	}
	for i, x := range m.Input.Data {
		if err := m.AddEQ(x, mip.Constant(input.Data[i])); err != nil {
			return fmt.Errorf("verify: pin input %d: %w", i, err)
		}
	}
	return nil
}

// OutputBounds builds the model of net around input under family p and
// returns the tightest bound the search-phase configuration can prove
// for every logit.
func (b *Builder) OutputBounds(ctx context.Context, net *nn.Network, input *tensor.Tensor[float64], p Perturbation) ([]mip.Interval, error) {
	if err := checkDomain(input); err != nil {
		return nil, err
	}
	built, err := b.BuildOrLoad(ctx, net, input, p)
	if err != nil {
		return nil, err
	}
	m := built.Model
	if err := m.Pin(input); err != nil {
		return nil, err
	}

	oracle := &bounds.Oracle{Solver: b.Solver, Config: b.Phases.Search, Algorithm: bounds.MIP}
	out := make([]mip.Interval, len(m.Output))
	for i, y := range m.Output {
		out[i] = oracle.Tighten(ctx, m.Model, y)
	}
	return out, nil
}

func encodeModel(buf *bytes.Buffer, m *Model) error {
	slack := tensor.New[mip.Expr](1)
	slack.Data[0] = m.Slack
	output, err := tensor.FromSlice(m.Output, len(m.Output))
	if err != nil {
		return err
	}
	return mip.Encode(buf, m.Model, map[string]*tensor.Tensor[mip.Expr]{
		groupInput:        m.Input,
		groupPerturbation: m.Perturbation,
		groupBase:         m.Base,
		groupOutput:       output,
		groupSlack:        slack,
	})
}

func decode(data []byte) (*Model, error) {
	mm, groups, err := mip.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	for _, name := range []string{groupInput, groupPerturbation, groupBase, groupOutput, groupSlack} {
		if groups[name] == nil {
			return nil, fmt.Errorf("%w: missing group %q", mip.ErrFormat, name)
		}
	}
	return &Model{
		Model: mm,
		Variables: Variables{
			Input:        groups[groupInput],
			Perturbation: groups[groupPerturbation],
			Base:         groups[groupBase],
			Output:       groups[groupOutput].Data,
		},
		Slack: groups[groupSlack].Data[0],
	}, nil
}
