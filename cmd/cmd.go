// cmd.go - Haupt-CLI Setup und Root Command
// Hauptfunktionen: NewCLI, appendEnvDocs
package cmd

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/FelixaHub/mipverify/envconfig"
	"github.com/FelixaHub/mipverify/logutil"
	_ "github.com/FelixaHub/mipverify/solver/simplex" // Solver-Backend registrieren
)

// appendEnvDocs - Fuegt Umgebungsvariablen-Dokumentation zum Command hinzu
func appendEnvDocs(cmd *cobra.Command, envs []envconfig.EnvVar) {
	if len(envs) == 0 {
		return
	}

	envUsage := `
Environment Variables:
`
	for _, e := range envs {
		envUsage += fmt.Sprintf("      %-28s   %s\n", e.Name, e.Description)
	}

	cmd.SetUsageTemplate(cmd.UsageTemplate() + envUsage)
}

// NewCLI - Erstellt das Haupt-CLI mit allen Commands
func NewCLI() *cobra.Command {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:           "mipverify",
		Short:         "Exact verification and adversarial search for feed-forward networks",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(logutil.NewLogger(os.Stderr, envconfig.LogLevel()))
		},
		Run: func(cmd *cobra.Command, args []string) {
			if version, _ := cmd.Flags().GetBool("version"); version {
				versionHandler(cmd, args)
				return
			}

			cmd.Print(cmd.UsageString())
		},
	}

	rootCmd.Flags().BoolP("version", "v", false, "Show version information")

	// Commands erstellen
	forwardCmd := newForwardCmd()
	searchCmd := newSearchCmd()
	batchCmd := newBatchCmd()
	serveCmd := newServeCmd()
	envCmd := newEnvCmd()

	// Environment-Dokumentation hinzufuegen
	envVars := envconfig.AsMap()
	solverEnvs := []envconfig.EnvVar{
		envVars["MIPVERIFY_DEBUG"],
		envVars["MIPVERIFY_SOLVER"],
		envVars["MIPVERIFY_TIGHTENING"],
		envVars["MIPVERIFY_BUILD_TIME_LIMIT"],
		envVars["MIPVERIFY_BUILD_NODE_LIMIT"],
		envVars["MIPVERIFY_SEARCH_TIME_LIMIT"],
		envVars["MIPVERIFY_SEARCH_NODE_LIMIT"],
		envVars["MIPVERIFY_CACHE_DIR"],
		envVars["MIPVERIFY_CACHE_BACKEND"],
		envVars["MIPVERIFY_NOCACHE"],
	}

	for _, cmd := range []*cobra.Command{forwardCmd, searchCmd, batchCmd, serveCmd} {
		switch cmd {
		case forwardCmd:
			appendEnvDocs(cmd, []envconfig.EnvVar{envVars["MIPVERIFY_DEBUG"]})
		case searchCmd:
			appendEnvDocs(cmd, append([]envconfig.EnvVar{envVars["MIPVERIFY_HOST"]}, solverEnvs...))
		case batchCmd:
			appendEnvDocs(cmd, append(solverEnvs, envVars["MIPVERIFY_NUM_PARALLEL"]))
		case serveCmd:
			appendEnvDocs(cmd, append(solverEnvs,
				envVars["MIPVERIFY_HOST"],
				envVars["MIPVERIFY_ORIGINS"],
				envVars["MIPVERIFY_NUM_PARALLEL"],
			))
		}
	}

	rootCmd.AddCommand(
		forwardCmd,
		searchCmd,
		batchCmd,
		serveCmd,
		envCmd,
	)

	return rootCmd
}
