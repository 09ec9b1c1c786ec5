package cmd

import (
	"github.com/spf13/cobra"

	"github.com/FelixaHub/mipverify/verify"
)

// addSearchFlags - Gemeinsame Flags fuer search und batch
func addSearchFlags(cmd *cobra.Command) {
	cmd.Flags().String("perturbation", "unrestricted", "Perturbation family: unrestricted or linf:<epsilon>")
	cmd.Flags().String("norm", "l1", "Norm of the perturbation to minimize: l1, l2 or linf")
	cmd.Flags().Float64("tolerance", verify.DefaultTolerance, "Margin by which the target logit must win")
	cmd.Flags().Float64("slack-weight", 0, "Weight of the ReLU tightness slack in the objective")
	cmd.Flags().String("format", "", "Output format: table or json (default table on a terminal)")
}

// newForwardCmd - Erstellt den forward Command
func newForwardCmd() *cobra.Command {
	forwardCmd := &cobra.Command{
		Use:   "forward NETWORK PARAMS SAMPLES",
		Short: "Evaluate a network on every sample of a dataset",
		Args:  cobra.ExactArgs(3),
		RunE:  ForwardHandler,
	}
	forwardCmd.Flags().String("format", "", "Output format: table or json (default table on a terminal)")
	return forwardCmd
}

// newSearchCmd - Erstellt den search Command
func newSearchCmd() *cobra.Command {
	searchCmd := &cobra.Command{
		Use:   "search NETWORK PARAMS SAMPLES",
		Short: "Find the least-norm adversarial perturbation of one sample",
		Args:  cobra.ExactArgs(3),
		RunE:  SearchHandler,
	}
	searchCmd.Flags().Int("index", 0, "Index of the sample in SAMPLES")
	searchCmd.Flags().IntSlice("target", nil, "Target labels (default: any label but the predicted one)")
	searchCmd.Flags().Bool("invert", false, "Treat --target as the labels that must not win")
	searchCmd.Flags().Bool("remote", false, "Run the search on the server at MIPVERIFY_HOST")
	addSearchFlags(searchCmd)
	return searchCmd
}

// newBatchCmd - Erstellt den batch Command
func newBatchCmd() *cobra.Command {
	batchCmd := &cobra.Command{
		Use:   "batch NETWORK PARAMS SAMPLES",
		Short: "Run an untargeted search for every correctly classified sample",
		Args:  cobra.ExactArgs(3),
		RunE:  BatchHandler,
	}
	batchCmd.Flags().Int("limit", 0, "Only process the first N samples (0 = all)")
	batchCmd.Flags().Int("parallel", 0, "Samples searched in parallel (default MIPVERIFY_NUM_PARALLEL)")
	addSearchFlags(batchCmd)
	return batchCmd
}

// newServeCmd - Erstellt den serve Command
func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"start"},
		Short:   "Start the mipverify server",
		Args:    cobra.ExactArgs(0),
		RunE:    RunServer,
	}
	serveCmd.Flags().StringArray("network", nil, "Network to serve as NETWORK:PARAMS (repeatable)")
	return serveCmd
}

// newEnvCmd - Erstellt den env Command
func newEnvCmd() *cobra.Command {
	envCmd := &cobra.Command{
		Use:   "env",
		Short: "Show the configuration read from the environment",
		Args:  cobra.ExactArgs(0),
		RunE:  EnvHandler,
	}
	envCmd.Flags().String("format", "", "Output format: table or json (default table on a terminal)")
	return envCmd
}
