package cli

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/persona/backend/internal/cli/apiclient"
	"github.com/persona/backend/internal/cli/output"
	"github.com/persona/backend/internal/editor"
	"github.com/persona/backend/internal/preview"
	"github.com/spf13/cobra"
)

var (
	flagPage int
	flagSize int
)

var assetsCmd = &cobra.Command{
	Use:   "assets <category>",
	Short: "Browse an asset catalogue",
	Long: `List one page of the catalogue for background, avatar, frame, audio or cursor.
Pages start at 0; page 0 begins with the default slot. A * marks the
current selection.

  persona assets background
  persona assets frame --page 1
  persona assets apply frame halo
  persona assets apply background          Restore the default`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		params := url.Values{"page": {strconv.Itoa(flagPage)}}
		if flagSize > 0 {
			params.Set("size", strconv.Itoa(flagSize))
		}
		var resp apiclient.Response[editor.Listing]
		if err := apiClient.Get("/assets/"+url.PathEscape(args[0]), params, &resp); err != nil {
			return fmt.Errorf("listing assets: %w", err)
		}
		if flagJSON {
			output.JSON(cmd.OutOrStdout(), resp.Data)
			return nil
		}
		output.AssetTable(cmd.OutOrStdout(), resp.Data)
		return nil
	},
}

var assetsApplyCmd = &cobra.Command{
	Use:   "apply <category> [asset-id]",
	Short: "Select an asset; omit the id to restore the default",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		assetID := ""
		if len(args) == 2 {
			assetID = args[1]
		}
		var resp apiclient.Response[preview.Frame]
		if err := apiClient.Post("/assets/"+url.PathEscape(args[0])+"/apply", map[string]string{"assetId": assetID}, &resp); err != nil {
			return fmt.Errorf("applying asset: %w", err)
		}
		if flagJSON {
			output.JSON(cmd.OutOrStdout(), resp.Data)
			return nil
		}
		if assetID == "" {
			fmt.Fprintf(cmd.OutOrStdout(), "Restored the default %s. Run \"persona save\" to publish.\n", args[0])
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %s %s. Run \"persona save\" to publish.\n", args[0], assetID)
		}
		return nil
	},
}

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Publish the editor's unsaved changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		if err := apiClient.Post("/profile/save", nil, nil); err != nil {
			return fmt.Errorf("saving profile: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved.")
		return nil
	},
}

var discardCmd = &cobra.Command{
	Use:   "discard",
	Short: "Drop the editor's unsaved changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		if err := apiClient.Post("/profile/discard", nil, nil); err != nil {
			return fmt.Errorf("discarding changes: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Changes discarded.")
		return nil
	},
}

func init() {
	assetsCmd.Flags().IntVar(&flagPage, "page", 0, "Page number, starting at 0")
	assetsCmd.Flags().IntVar(&flagSize, "size", 0, "Page size (default: server setting)")
	assetsCmd.AddCommand(assetsApplyCmd)
	rootCmd.AddCommand(assetsCmd, saveCmd, discardCmd)
}
