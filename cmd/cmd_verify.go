package cmd

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/FelixaHub/mipverify/api"
	"github.com/FelixaHub/mipverify/dataset"
	"github.com/FelixaHub/mipverify/envconfig"
	"github.com/FelixaHub/mipverify/nn"
	"github.com/FelixaHub/mipverify/params"
	"github.com/FelixaHub/mipverify/server"
	"github.com/FelixaHub/mipverify/verify"
)

// ForwardHandler - Wertet das Netzwerk auf allen Samples aus
func ForwardHandler(cmd *cobra.Command, args []string) error {
	asJSON, err := useJSON(cmd)
	if err != nil {
		return err
	}
	net, err := loadNetwork(args[0], args[1])
	if err != nil {
		return err
	}
	samples, err := dataset.Load(args[2])
	if err != nil {
		return err
	}

	var (
		out  []api.ForwardResponse
		data [][]string
	)
	correct := 0
	for i, s := range samples {
		x, err := s.Tensor()
		if err != nil {
			return fmt.Errorf("sample %d: %w", i, err)
		}
		logits, predicted, err := nn.Predict(cmd.Context(), net, x)
		if err != nil {
			return fmt.Errorf("sample %d: %w", i, err)
		}
		if predicted == s.Label {
			correct++
		}
		out = append(out, api.ForwardResponse{Network: net.ID, Output: logits, Predicted: predicted})
		data = append(data, []string{strconv.Itoa(i), strconv.Itoa(s.Label), strconv.Itoa(predicted), formatFloats(logits, 10)})
	}

	if asJSON {
		return writeJSON(os.Stdout, out)
	}
	renderTable(os.Stdout, []string{"INDEX", "LABEL", "PREDICTED", "LOGITS"}, data)
	if len(samples) > 0 {
		fmt.Printf("\naccuracy: %d/%d (%.2f%%)\n", correct, len(samples), 100*float64(correct)/float64(len(samples)))
	}
	return nil
}

// SearchHandler - Sucht eine adversariale Perturbation fuer ein Sample
func SearchHandler(cmd *cobra.Command, args []string) error {
	asJSON, err := useJSON(cmd)
	if err != nil {
		return err
	}
	index, _ := cmd.Flags().GetInt("index")
	sample, err := loadSample(args[2], index)
	if err != nil {
		return err
	}
	req, err := searchRequest(cmd)
	if err != nil {
		return err
	}
	req.Targets, _ = cmd.Flags().GetIntSlice("target")
	req.Invert, _ = cmd.Flags().GetBool("invert")

	var resp *api.SearchResponse
	if remote, _ := cmd.Flags().GetBool("remote"); remote {
		resp, err = remoteSearch(cmd, args[0], sample, req)
	} else {
		resp, err = localSearch(cmd, args[0], args[1], sample, req)
	}
	if err != nil {
		return err
	}

	if asJSON {
		return writeJSON(os.Stdout, resp)
	}
	renderTable(os.Stdout, []string{"FIELD", "VALUE"}, [][]string{
		{"network", resp.Network},
		{"status", resp.Status},
		{"label", strconv.Itoa(sample.Label)},
		{"predicted", strconv.Itoa(resp.Predicted)},
		{"targets", fmt.Sprint(resp.TargetIndexes)},
		{"adversarial label", adversarialLabel(resp)},
		{"norm", strconv.FormatFloat(resp.NormValue, 'g', 6, 64)},
		{"objective", formatOptional(resp.Objective)},
		{"bound", formatOptional(resp.Bound)},
		{"perturbation", formatFloats(resp.Perturbation, 10)},
		{"model", fmt.Sprintf("%d vars, %d binaries, %d constraints", resp.Vars, resp.Binaries, resp.Constraints)},
		{"cached", strconv.FormatBool(resp.Cached)},
		{"time", fmt.Sprintf("build %s, solve %s, total %s", resp.BuildTime, resp.SolveTime, resp.TotalTime)},
	})
	return nil
}

func adversarialLabel(resp *api.SearchResponse) string {
	if resp.Perturbation == nil {
		return "-"
	}
	return strconv.Itoa(resp.AdversarialLabel)
}

func localSearch(cmd *cobra.Command, descPath, paramsPath string, sample dataset.Sample, req verify.Request) (*api.SearchResponse, error) {
	net, err := loadNetwork(descPath, paramsPath)
	if err != nil {
		return nil, err
	}
	x, err := sample.Tensor()
	if err != nil {
		return nil, err
	}
	b, err := verify.FromEnvironment()
	if err != nil {
		return nil, err
	}
	defer b.Close()

	req.Network, req.Input = net, x
	res, err := b.FindAdversarialExample(cmd.Context(), req)
	if err != nil {
		return nil, err
	}
	resp := server.SearchResponse(net.ID, res)
	return &resp, nil
}

func remoteSearch(cmd *cobra.Command, descPath string, sample dataset.Sample, req verify.Request) (*api.SearchResponse, error) {
	if err := checkServerHeartbeat(cmd, nil); err != nil {
		return nil, err
	}
	desc, err := params.Load(descPath)
	if err != nil {
		return nil, err
	}
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, err
	}
	perturbation, _ := cmd.Flags().GetString("perturbation")
	return client.Search(cmd.Context(), &api.SearchRequest{
		Network:      desc.ID,
		Input:        sample.Image,
		Targets:      req.Targets,
		Invert:       req.Invert,
		Perturbation: perturbation,
		Norm:         req.Norm.String(),
		Tolerance:    req.Tolerance,
		SlackWeight:  req.SlackWeight,
	})
}

// BatchHandler - Untargeted Suche fuer alle korrekt klassifizierten Samples
func BatchHandler(cmd *cobra.Command, args []string) error {
	asJSON, err := useJSON(cmd)
	if err != nil {
		return err
	}
	net, err := loadNetwork(args[0], args[1])
	if err != nil {
		return err
	}
	samples, err := dataset.Load(args[2])
	if err != nil {
		return err
	}
	if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 && limit < len(samples) {
		samples = samples[:limit]
	}
	req, err := searchRequest(cmd)
	if err != nil {
		return err
	}
	parallel, _ := cmd.Flags().GetInt("parallel")
	if parallel <= 0 {
		parallel = int(envconfig.NumParallel())
	}

	b, err := verify.FromEnvironment()
	if err != nil {
		return err
	}
	defer b.Close()

	results, err := b.Batch(cmd.Context(), net, samples, req, parallel)
	if err != nil {
		return err
	}

	if asJSON {
		return writeJSON(os.Stdout, results)
	}
	var data [][]string
	for _, r := range results {
		row := []string{strconv.Itoa(r.Index), strconv.Itoa(r.Label), strconv.Itoa(r.Predicted), "-", "-", "-", r.Error}
		switch {
		case r.Skipped:
			row[3] = "misclassified"
		case r.Result != nil:
			row[3] = r.Result.Status.String()
			if r.Result.HasPerturbation() {
				row[4] = strconv.Itoa(r.Result.AdversarialLabel)
				row[5] = strconv.FormatFloat(r.Result.NormValue, 'g', 6, 64)
			}
		}
		data = append(data, row)
	}
	renderTable(os.Stdout, []string{"INDEX", "LABEL", "PREDICTED", "STATUS", "ADVERSARIAL", "NORM", "ERROR"}, data)

	acc, err := verify.FracCorrect(cmd.Context(), net, samples)
	if err != nil {
		return err
	}
	fmt.Printf("\naccuracy: %.2f%%\n", 100*acc)
	return nil
}

// EnvHandler - Zeigt die Konfiguration aus der Umgebung an
func EnvHandler(cmd *cobra.Command, _ []string) error {
	asJSON, err := useJSON(cmd)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(os.Stdout, envconfig.Values())
	}

	vars := envconfig.AsMap()
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	var data [][]string
	for _, name := range names {
		v := vars[name]
		data = append(data, []string{v.Name, fmt.Sprintf("%v", v.Value), v.Description})
	}
	renderTable(os.Stdout, []string{"NAME", "VALUE", "DESCRIPTION"}, data)
	return nil
}
