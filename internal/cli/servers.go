package cli

import (
	"fmt"
	"net/url"

	"github.com/persona/backend/internal/cli/apiclient"
	"github.com/persona/backend/internal/cli/output"
	"github.com/spf13/cobra"
)

var serversCmd = &cobra.Command{
	Use:   "servers",
	Short: "Manage linked community servers",
	Long: `List, verify and unlink the servers shown in the presence panel.

  persona servers
  persona servers verify https://discord.gg/owls
  persona servers activate <id>
  persona servers unlink <id>
  persona servers unlink --all`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		var resp apiclient.Response[apiclient.PresenceView]
		if err := apiClient.Get("/presence", nil, &resp); err != nil {
			return fmt.Errorf("loading servers: %w", err)
		}
		return printPresence(cmd, resp.Data)
	},
}

var serversVerifyCmd = &cobra.Command{
	Use:   "verify <invite>",
	Short: "Verify an invite and link its server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		var resp apiclient.Response[apiclient.PresenceView]
		if err := apiClient.Post("/presence/servers/verify", map[string]string{"invite": args[0]}, &resp); err != nil {
			return fmt.Errorf("verifying invite: %w", err)
		}
		return printPresence(cmd, resp.Data)
	},
}

var flagUnlinkAll bool

var serversUnlinkCmd = &cobra.Command{
	Use:   "unlink [id]",
	Short: "Unlink one server, or all with --all",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		path := "/presence/servers"
		switch {
		case flagUnlinkAll:
		case len(args) == 1:
			path += "/" + url.PathEscape(args[0])
		default:
			return fmt.Errorf("a server id or --all is required")
		}
		var resp apiclient.Response[apiclient.PresenceView]
		if err := apiClient.Delete(path, &resp); err != nil {
			return fmt.Errorf("unlinking: %w", err)
		}
		return printPresence(cmd, resp.Data)
	},
}

var serversActivateCmd = &cobra.Command{
	Use:   "activate <id>",
	Short: "Show this server in the presence panel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		var resp apiclient.Response[apiclient.PresenceView]
		if err := apiClient.Put("/presence/servers/"+url.PathEscape(args[0])+"/active", nil, &resp); err != nil {
			return fmt.Errorf("activating server: %w", err)
		}
		return printPresence(cmd, resp.Data)
	},
}

func printPresence(cmd *cobra.Command, view apiclient.PresenceView) error {
	if flagJSON {
		output.JSON(cmd.OutOrStdout(), view)
		return nil
	}
	output.PresenceTable(cmd.OutOrStdout(), view.Presence, view.States, view.Limit)
	return nil
}

func init() {
	serversUnlinkCmd.Flags().BoolVar(&flagUnlinkAll, "all", false, "Unlink every server")
	serversCmd.AddCommand(serversVerifyCmd, serversUnlinkCmd, serversActivateCmd)
	rootCmd.AddCommand(serversCmd)
}
