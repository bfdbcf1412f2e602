// Package cli implements the persona command line client.
package cli

import (
	"fmt"
	"os"

	"github.com/persona/backend/internal/cli/apiclient"
	"github.com/persona/backend/internal/cli/cliconfig"
	"github.com/spf13/cobra"
)

var (
	flagJSON      bool
	flagServerURL string

	cfg       *cliconfig.Config
	apiClient *apiclient.Client
)

var rootCmd = &cobra.Command{
	Use:   "persona",
	Short: "Persona CLI: edit and preview your profile page from the terminal",
	Long: `Persona CLI talks to a persona server to manage your profile page.

Get started:
  persona login --login alice     Authenticate with your password
  persona assets backgrounds      Browse the background catalogue
  persona render alice            Preview a published page
  persona normalize theme.json    Repair a stored theme document offline`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = cliconfig.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if flagServerURL != "" {
			cfg.ServerURL = flagServerURL
		}
		apiClient = apiclient.NewClient(cfg.ServerURL, cfg.Token)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().StringVar(&flagServerURL, "server", "", "Override server URL (default: from config or "+cliconfig.DefaultURL+")")
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func requireAuth() error {
	if cfg == nil || !cfg.HasToken() {
		return fmt.Errorf("not authenticated, run \"persona login\" first")
	}
	return nil
}
