package verify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/FelixaHub/mipverify/dataset"
	"github.com/FelixaHub/mipverify/nn"
)

// BatchResult is the outcome for one sample.
type BatchResult struct {
	Index     int `json:"index"`
	Label     int `json:"label"`
	Predicted int `json:"predicted"`
	// Skipped is set for misclassified samples, which are not searched.
	Skipped bool    `json:"skipped,omitempty"`
	Result  *Result `json:"result,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// Batch runs an untargeted search (the template's targets are ignored) for
// every correctly classified sample. Up to parallel samples are searched at
// once, each on its own model. A failing sample is reported in its result
// and does not stop the others.
func (b *Builder) Batch(ctx context.Context, net *nn.Network, samples []dataset.Sample, template Request, parallel int) ([]BatchResult, error) {
	run := uuid.New()
	slog.Info("verify: batch started", "run", run, "network", net.ID, "samples", len(samples), "parallel", max(parallel, 1))

	results := make([]BatchResult, len(samples))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(parallel, 1))
	for i, s := range samples {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = b.batchOne(ctx, net, i, s, template)
			slog.Debug("verify: batch sample done", "run", run, "index", i, "skipped", results[i].Skipped, "error", results[i].Error)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func (b *Builder) batchOne(ctx context.Context, net *nn.Network, i int, s dataset.Sample, template Request) BatchResult {
	r := BatchResult{Index: i, Label: s.Label}
	x, err := s.Tensor()
	if err != nil {
		r.Error = err.Error()
		return r
	}
	_, predicted, err := nn.Predict(ctx, net, x)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	r.Predicted = predicted
	if predicted != s.Label {
		r.Skipped = true
		return r
	}

	req := template
	req.Network, req.Input = net, x
	req.Targets, req.Invert = []int{s.Label}, true
	res, err := b.FindAdversarialExample(ctx, req)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	r.Result = res
	return r
}

// FracCorrect returns the fraction of samples net classifies correctly.
func FracCorrect(ctx context.Context, net *nn.Network, samples []dataset.Sample) (float64, error) {
	if len(samples) == 0 {
		return 0, nil
	}
	correct := 0
	for _, s := range samples {
		x, err := s.Tensor()
		if err != nil {
			return 0, err
		}
		_, predicted, err := nn.Predict(ctx, net, x)
		if err != nil {
			return 0, err
		}
		if predicted == s.Label {
			correct++
		}
	}
	return float64(correct) / float64(len(samples)), nil
}
