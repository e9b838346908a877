package command

import (
	"civitai/harvester/internal/analysis"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Explore base model and resource frequencies interactively",
	Args:  cobra.NoArgs,
	RunE:  analyze,
}

func init() {
	analyzeCmd.Flags().String("json-path", "", "page file or directory to analyze (default: the selection file)")
	rootCmd.AddCommand(analyzeCmd)
}

func analyze(cmd *cobra.Command, _ []string) error {
	path, err := cmd.Flags().GetString("json-path")
	if err != nil {
		return err
	}
	if path == "" {
		path = cfg.Data.SelectedPath()
	}

	app, err := newContainer(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	items, err := app.Pages.LoadItems(path)
	if err != nil {
		return err
	}
	log.Infof("📊 Analyzing %d items from %s", len(items), path)

	explorer := analysis.NewExplorer(analysis.BuildTables(items), cfg.Histogram.Bins, histogramWidth(cfg.Histogram.Width))
	return explorer.Run(cmd.InOrStdin(), cmd.OutOrStdout())
}
