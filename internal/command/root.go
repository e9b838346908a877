// Package command implements the harvester CLI.
package command

import (
	"context"
	"fmt"
	"os"

	"civitai/harvester/internal/config"
	"civitai/harvester/internal/container"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// histogramLabelWidth is the room a histogram row needs besides its bar.
const histogramLabelWidth = 32

var (
	configPath string
	logLevel   string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "harvester",
	Short: "Crawl, analyze and curate Civitai image metadata",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		// Arguments are valid by now; later failures are not usage errors.
		cmd.SilenceUsage = true

		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded

		level := cfg.Log.Level
		if logLevel != "" {
			level = logLevel
		}
		parsed, err := log.ParseLevel(level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", level, err)
		}
		log.SetLevel(parsed)
		log.Debug("Configuration loaded successfully")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./config.yaml when present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

// Execute runs the CLI with ctx cancelled on interrupt.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func newContainer(ctx context.Context) (*container.Container, error) {
	app, err := container.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize container: %w", err)
	}
	return app, nil
}

// histogramWidth narrows the configured bar width to the terminal.
func histogramWidth(configured int) int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return configured
	}
	cols, _, err := term.GetSize(fd)
	if err != nil || cols <= histogramLabelWidth {
		return configured
	}
	return max(min(configured, cols-histogramLabelWidth), 1)
}
