package cmd

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/FelixaHub/mipverify/api"
	"github.com/FelixaHub/mipverify/envconfig"
	"github.com/FelixaHub/mipverify/nn"
	"github.com/FelixaHub/mipverify/server"
	"github.com/FelixaHub/mipverify/verify"
	"github.com/FelixaHub/mipverify/version"
)

// RunServer - Startet den mipverify-Server
func RunServer(cmd *cobra.Command, _ []string) error {
	specs, _ := cmd.Flags().GetStringArray("network")
	if len(specs) == 0 {
		return errors.New("serve needs at least one --network NETWORK:PARAMS")
	}

	var networks []*nn.Network
	for _, spec := range specs {
		desc, paramsPath, ok := strings.Cut(spec, ":")
		if !ok {
			return fmt.Errorf("invalid --network %q, expected NETWORK:PARAMS", spec)
		}
		n, err := loadNetwork(desc, paramsPath)
		if err != nil {
			return fmt.Errorf("network %s: %w", desc, err)
		}
		networks = append(networks, n)
	}

	b, err := verify.FromEnvironment()
	if err != nil {
		return err
	}
	defer b.Close()

	ln, err := net.Listen("tcp", envconfig.Host().Host)
	if err != nil {
		return err
	}

	err = server.Serve(ln, b, networks)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

// versionHandler - Zeigt die Version an
func versionHandler(cmd *cobra.Command, _ []string) {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return
	}

	serverVersion, err := client.Version(cmd.Context())
	if err != nil {
		fmt.Println("Warning: could not connect to a running mipverify instance")
	}

	if serverVersion != "" {
		fmt.Printf("mipverify version is %s\n", serverVersion)
	}

	if serverVersion != version.Version {
		fmt.Printf("Warning: client version is %s\n", version.Version)
	}
}
