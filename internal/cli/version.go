package cli

import (
	"fmt"

	"github.com/persona/backend/internal/cli/apiclient"
	"github.com/persona/backend/internal/cli/output"
	"github.com/spf13/cobra"
)

// Version is the CLI version, injected at build time:
//
//	go build -ldflags "-X github.com/persona/backend/internal/cli.Version=1.2.3"
var Version = "dev"

type serverVersion struct {
	Service    string `json:"service"`
	Version    string `json:"version"`
	APIVersion string `json:"apiVersion"`
	Commit     string `json:"commit"`
	BuildTime  string `json:"buildTime"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show CLI and server version",
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp apiclient.Response[serverVersion]
		serverErr := apiClient.Get("/version", nil, &resp)

		if flagJSON {
			type jsonOut struct {
				CLIVersion    string `json:"cliVersion"`
				ServerVersion string `json:"serverVersion,omitempty"`
				APIVersion    string `json:"apiVersion,omitempty"`
				ServerCommit  string `json:"serverCommit,omitempty"`
				ServerError   string `json:"serverError,omitempty"`
			}
			out := jsonOut{CLIVersion: Version}
			if serverErr == nil {
				out.ServerVersion = resp.Data.Version
				out.APIVersion = resp.Data.APIVersion
				out.ServerCommit = resp.Data.Commit
			} else {
				out.ServerError = serverErr.Error()
			}
			output.JSON(cmd.OutOrStdout(), out)
			return nil
		}

		fmt.Fprintf(cmd.OutOrStdout(), "CLI:    %s\n", Version)
		if serverErr != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Server: unavailable (%v)\n", serverErr)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Server: %s (API %s)\n", resp.Data.Version, resp.Data.APIVersion)
		if resp.Data.Commit != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "Commit: %s\n", resp.Data.Commit)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
