package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/FelixaHub/mipverify/api"
	"github.com/FelixaHub/mipverify/dataset"
	"github.com/FelixaHub/mipverify/encode"
	"github.com/FelixaHub/mipverify/nn"
	"github.com/FelixaHub/mipverify/params"
	"github.com/FelixaHub/mipverify/verify"
)

// loadNetwork - Laedt Netzwerkbeschreibung und Parameter
func loadNetwork(descPath, paramsPath string) (*nn.Network, error) {
	desc, err := params.Load(descPath)
	if err != nil {
		return nil, err
	}
	store, err := params.LoadJSON(paramsPath)
	if err != nil {
		return nil, err
	}
	return desc.Build(store)
}

// loadSample - Laedt ein Sample aus einer JSON-Lines-Datei
func loadSample(path string, index int) (dataset.Sample, error) {
	samples, err := dataset.Load(path)
	if err != nil {
		return dataset.Sample{}, err
	}
	if index < 0 || index >= len(samples) {
		return dataset.Sample{}, fmt.Errorf("sample index %d out of range, %s has %d samples", index, path, len(samples))
	}
	return samples[index], nil
}

// searchRequest - Liest die gemeinsamen Such-Flags
func searchRequest(cmd *cobra.Command) (verify.Request, error) {
	var req verify.Request

	s, _ := cmd.Flags().GetString("perturbation")
	p, err := verify.ParsePerturbation(s)
	if err != nil {
		return req, err
	}
	s, _ = cmd.Flags().GetString("norm")
	norm, err := encode.ParseNorm(s)
	if err != nil {
		return req, err
	}

	req.Perturbation, req.Norm = p, norm
	tol, _ := cmd.Flags().GetFloat64("tolerance")
	req.Tolerance = &tol
	req.SlackWeight, _ = cmd.Flags().GetFloat64("slack-weight")
	return req, nil
}

// checkServerHeartbeat - Prueft ob der Server erreichbar ist
func checkServerHeartbeat(cmd *cobra.Command, _ []string) error {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return err
	}
	if err := client.Heartbeat(cmd.Context()); err != nil {
		if strings.Contains(err.Error(), " refused") || strings.Contains(err.Error(), "could not connect") {
			return fmt.Errorf("mipverify server not responding, start it with 'mipverify serve' - %w", err)
		}
		return err
	}
	return nil
}
