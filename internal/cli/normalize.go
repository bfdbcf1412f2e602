package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/persona/backend/internal/cli/output"
	"github.com/persona/backend/internal/theme"
	"github.com/spf13/cobra"
)

var flagFrame string

var normalizeCmd = &cobra.Command{
	Use:   "normalize [file]",
	Short: "Repair a stored theme document",
	Long: `Read a theme document and print the normalized configuration.
Unknown fields are dropped and invalid values fall back to defaults.

  persona normalize theme.json
  cat theme.json | persona normalize --frame halo`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readInput(cmd, args)
		if err != nil {
			return err
		}
		var frame *string
		if flagFrame != "" {
			frame = theme.StringPtr(flagFrame)
		}
		output.JSON(cmd.OutOrStdout(), theme.Normalize(raw, frame))
		return nil
	},
}

func init() {
	normalizeCmd.Flags().StringVar(&flagFrame, "frame", "", "Equipped frame slug stored next to the theme")
	rootCmd.AddCommand(normalizeCmd)
}

// readInput reads the named file, or stdin when no file or "-" is given.
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", args[0], err)
	}
	return data, nil
}
