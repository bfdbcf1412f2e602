package cli

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/persona/backend/internal/cli/apiclient"
	"github.com/persona/backend/internal/cli/output"
	"github.com/persona/backend/internal/render"
	"github.com/persona/backend/internal/theme"
	"github.com/spf13/cobra"
)

var (
	flagThemeFile  string
	flagConfirmAge bool
	flagEntered    bool
	flagNSFW       bool
	flagName       string
)

var renderCmd = &cobra.Command{
	Use:   "render [username]",
	Short: "Preview a profile page",
	Long: `Render a published page from the server, or a local theme file.

  persona render alice                       Page as a visitor first sees it
  persona render alice --entered             Enter the page and count the view
  persona render alice --confirm-age         Pass the NSFW check
  persona render --theme theme.json --name alice --entered`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagThemeFile != "" {
			return renderLocal(cmd)
		}
		if len(args) == 0 {
			return errors.New("a username or --theme is required")
		}
		return renderRemote(cmd, strings.ToLower(args[0]))
	},
}

func init() {
	renderCmd.Flags().StringVar(&flagThemeFile, "theme", "", "Render a local theme document instead of a published page")
	renderCmd.Flags().BoolVar(&flagConfirmAge, "confirm-age", false, "Confirm the visitor is old enough for NSFW pages")
	renderCmd.Flags().BoolVar(&flagEntered, "entered", false, "Pass the entrance screen")
	renderCmd.Flags().BoolVar(&flagNSFW, "nsfw", false, "Treat the local theme as NSFW")
	renderCmd.Flags().StringVar(&flagName, "name", "", "Display name used for a local render")
	rootCmd.AddCommand(renderCmd)
}

func renderRemote(cmd *cobra.Command, username string) error {
	params := url.Values{}
	if flagConfirmAge {
		params.Set("nsfwConfirmed", "true")
	}
	var page apiclient.Response[apiclient.PublicPage]
	if err := apiClient.Get("/public/"+url.PathEscape(username), params, &page); err != nil {
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) && apiErr.Code == "nsfw" {
			return errors.New("this page is marked NSFW, rerun with --confirm-age")
		}
		return fmt.Errorf("loading page: %w", err)
	}

	result := page.Data
	if flagEntered {
		var entered apiclient.Response[apiclient.PublicPage]
		if err := apiClient.Post("/public/"+url.PathEscape(username)+"/enter", map[string]string{"token": result.VisitToken}, &entered); err != nil {
			return fmt.Errorf("entering page: %w", err)
		}
		result.Scene = entered.Data.Scene
		result.Views = entered.Data.Views
	}

	if flagJSON {
		output.JSON(cmd.OutOrStdout(), result)
		return nil
	}
	output.SceneSummary(cmd.OutOrStdout(), result.Scene)
	fmt.Fprintf(cmd.OutOrStdout(), "Views: %d\n", result.Views)
	return nil
}

func renderLocal(cmd *cobra.Command) error {
	raw, err := os.ReadFile(flagThemeFile)
	if err != nil {
		return fmt.Errorf("reading %s: %w", flagThemeFile, err)
	}
	cfg := theme.Normalize(raw, nil)

	name := flagName
	if name == "" {
		name = "preview"
	}
	entities := render.Entities{DisplayName: name, Username: strings.ToLower(name)}

	viewer := render.NewViewer(cfg, entities, flagNSFW, nil, nil)
	if flagConfirmAge {
		viewer.ConfirmAge()
	}
	if flagEntered {
		viewer.Enter()
	}
	scene, err := viewer.Scene()
	if errors.Is(err, render.ErrAgeConfirmationRequired) {
		return errors.New("this theme is marked NSFW, rerun with --confirm-age")
	}

	if flagJSON {
		output.JSON(cmd.OutOrStdout(), scene)
		return nil
	}
	output.SceneSummary(cmd.OutOrStdout(), scene)
	return nil
}
