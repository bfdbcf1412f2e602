package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/persona/backend/internal/assets"
	"github.com/persona/backend/internal/cli/apiclient"
	"github.com/persona/backend/internal/cli/output"
	"github.com/persona/backend/internal/editor"
	"github.com/spf13/cobra"
)

var (
	flagUploadCategory string
	flagUploadName     string
)

var uploadCmd = &cobra.Command{
	Use:   "upload <path>...",
	Short: "Upload files to your vault",
	Long: `Upload media to your vault so it can be used as a background,
avatar, audio track or cursor.

  persona upload bg.png
  persona upload song.mp3 --category audio --name "Night drive"
  persona upload a.png b.png`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

var uploadsCmd = &cobra.Command{
	Use:   "uploads",
	Short: "List vault uploads and quota",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		var resp apiclient.Response[struct {
			Items []assets.VaultItem `json:"items"`
			Stats editor.UploadStats `json:"stats"`
		}]
		if err := apiClient.Get("/uploads", nil, &resp); err != nil {
			return fmt.Errorf("listing uploads: %w", err)
		}
		if flagJSON {
			output.JSON(cmd.OutOrStdout(), resp.Data)
			return nil
		}
		w := cmd.OutOrStdout()
		if len(resp.Data.Items) > 0 {
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tTYPE\tUPLOADED")
			for _, item := range resp.Data.Items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", item.ID, item.Name, item.Type, output.RelativeTime(item.CreatedAt))
			}
			tw.Flush()
		}
		output.UploadStats(w, resp.Data.Stats)
		return nil
	},
}

var uploadsRmCmd = &cobra.Command{
	Use:   "rm <id>...",
	Short: "Delete vault uploads",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		var resp apiclient.Response[struct {
			Deleted int                `json:"deleted"`
			Stats   editor.UploadStats `json:"stats"`
		}]
		if err := apiClient.Post("/uploads/delete-batch", map[string][]string{"ids": args}, &resp); err != nil {
			return fmt.Errorf("deleting uploads: %w", err)
		}
		if flagJSON {
			output.JSON(cmd.OutOrStdout(), resp.Data)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d of %d.\n", resp.Data.Deleted, len(args))
		output.UploadStats(cmd.OutOrStdout(), resp.Data.Stats)
		return nil
	},
}

func init() {
	uploadCmd.Flags().StringVar(&flagUploadCategory, "category", "image", "Vault type: image, video, audio or cursor")
	uploadCmd.Flags().StringVar(&flagUploadName, "name", "", "Display name (default: file name)")
	uploadsCmd.AddCommand(uploadsRmCmd)
	rootCmd.AddCommand(uploadCmd, uploadsCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	if err := requireAuth(); err != nil {
		return err
	}
	if _, ok := assets.ParseVaultType(flagUploadCategory); !ok {
		return fmt.Errorf("unknown category %q", flagUploadCategory)
	}

	var results []apiclient.UploadResult
	for _, path := range args {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		if info.IsDir() {
			return fmt.Errorf("%s is a directory", path)
		}

		name := flagUploadName
		if name == "" || len(args) > 1 {
			name = filepath.Base(path)
		}
		var resp apiclient.Response[apiclient.UploadResult]
		err = apiClient.Upload("/uploads", "file", path, map[string]string{
			"category": flagUploadCategory,
			"name":     name,
		}, &resp)
		if err != nil {
			var apiErr *apiclient.APIError
			if errors.As(err, &apiErr) && apiErr.Code == "capacity" {
				return fmt.Errorf("upload limit reached after %d file(s): %s", len(results), apiErr.Message)
			}
			return fmt.Errorf("uploading %s: %w", path, err)
		}
		results = append(results, resp.Data)
		if !flagJSON {
			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s (%s) as %s\n", name, output.FormatSize(info.Size()), resp.Data.Item.ID)
		}
	}

	if flagJSON {
		output.JSON(cmd.OutOrStdout(), results)
		return nil
	}
	output.UploadStats(cmd.OutOrStdout(), results[len(results)-1].Stats)
	return nil
}
