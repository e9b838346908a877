package command

import (
	"fmt"
	"os"

	"civitai/harvester/internal/inspect"

	"github.com/spf13/cobra"
)

var typesCmd = &cobra.Command{
	Use:   "types <json_file>",
	Short: "Show JSON key and value types",
	Args:  cobra.ExactArgs(1),
	RunE:  showTypes,
}

func init() {
	typesCmd.Flags().IntP("max-depth", "d", inspect.DefaultMaxDepth, "Maximum depth to display")
	rootCmd.AddCommand(typesCmd)
}

func showTypes(cmd *cobra.Command, args []string) error {
	depth, err := cmd.Flags().GetInt("max-depth")
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer f.Close()

	return inspect.PrintTypes(cmd.OutOrStdout(), f, depth)
}
