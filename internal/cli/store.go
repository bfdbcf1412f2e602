package cli

import (
	"fmt"
	"net/url"

	"github.com/persona/backend/internal/assets"
	"github.com/persona/backend/internal/cli/apiclient"
	"github.com/persona/backend/internal/cli/output"
	"github.com/spf13/cobra"
)

var flagStoreCategory string

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Browse the item store",
	Long: `List store items and buy them.

  persona store
  persona store --category frame
  persona store buy halo`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		params := url.Values{}
		if flagStoreCategory != "" {
			params.Set("category", flagStoreCategory)
		}
		var resp apiclient.Response[[]assets.StoreItem]
		if err := apiClient.Get("/store", params, &resp); err != nil {
			return fmt.Errorf("loading store: %w", err)
		}
		if flagJSON {
			output.JSON(cmd.OutOrStdout(), resp.Data)
			return nil
		}
		output.StoreTable(cmd.OutOrStdout(), resp.Data)
		return nil
	},
}

var storeBuyCmd = &cobra.Command{
	Use:   "buy <item-id>",
	Short: "Purchase a store item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		var resp apiclient.Response[assets.StoreItem]
		if err := apiClient.Post("/store/"+url.PathEscape(args[0])+"/purchase", nil, &resp); err != nil {
			return fmt.Errorf("purchasing %s: %w", args[0], err)
		}
		if flagJSON {
			output.JSON(cmd.OutOrStdout(), resp.Data)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Purchased %s (%s).\n", resp.Data.Name, resp.Data.Rarity)
		return nil
	},
}

func init() {
	storeCmd.Flags().StringVar(&flagStoreCategory, "category", "", "Only list items of this category")
	storeCmd.AddCommand(storeBuyCmd)
	rootCmd.AddCommand(storeCmd)
}
