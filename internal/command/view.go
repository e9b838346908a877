package command

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"civitai/harvester/internal/analysis"
	"civitai/harvester/internal/curator"
	"civitai/harvester/internal/domain"
	"civitai/harvester/internal/histogram"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	previewItems = 10
	curatorLog   = "curator.log"
	separator    = "---------"
)

var viewCmd = &cobra.Command{
	Use:   "view <datas>",
	Short: "Summarize harvested items and browse their images",
	Args:  cobra.ExactArgs(1),
	RunE:  view,
}

func init() {
	viewCmd.Flags().String("sort-col", string(curator.SortLikeScore), "Column to sort by: likeScore or createdAt")
	rootCmd.AddCommand(viewCmd)
}

func view(cmd *cobra.Command, args []string) error {
	sortCol, err := cmd.Flags().GetString("sort-col")
	if err != nil {
		return err
	}
	key, err := curator.ParseSortKey(sortCol)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	app, err := newContainer(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	items, err := app.Pages.LoadItems(args[0])
	if err != nil {
		return err
	}
	curator.Sort(items, key)

	out := cmd.OutOrStdout()
	if err := printSummary(out, items, key); err != nil {
		return err
	}

	fetcher, err := app.Images()
	if err != nil {
		return err
	}

	// The terminal belongs to the viewer while it runs.
	restore, err := logToFile(filepath.Join(cfg.Data.Dir, curatorLog))
	if err != nil {
		return err
	}
	defer restore()

	session := curator.NewSession(items, app.Selection)
	return curator.Run(ctx, session, fetcher, curator.Options{
		DisplayHeight: cfg.Viewer.DisplayHeight,
		PromptLength:  cfg.Viewer.PromptLength,
	})
}

func printSummary(w io.Writer, items []domain.Item, key curator.SortKey) error {
	summary := analysis.Summarize(items)

	fmt.Fprintf(w, "%d items sorted by %s\n", len(items), key)
	fmt.Fprintln(w, previewTable(items))
	fmt.Fprintln(w, separator)
	fmt.Fprintf(w, "[NSFW distribution]:\n%s\n%s\n", analysis.FormatCounter(summary.NSFWLevels.MostCommon()), separator)
	fmt.Fprintf(w, "[BaseModel distribution]:\n%s\n%s\n", analysis.FormatCounter(summary.BaseModels.MostCommon()), separator)
	fmt.Fprintf(w, "[Resources distribution]:\n%s\n%s\n", analysis.FormatCounter(summary.ResourceTypes.MostCommon()), separator)
	fmt.Fprintf(w, "[CivitaiResources distribution]:\n%s\n%s\n", analysis.FormatCounter(summary.CivitaiResources.MostCommon()), separator)

	fmt.Fprintln(w, "[LikeScore histogram]")
	if err := histogram.Render(w, histogram.Ints(summary.LikeScores), cfg.Histogram.Bins, histogramWidth(cfg.Histogram.Width)); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "[Image viewer]")
	return err
}

func previewTable(items []domain.Item) string {
	rows := make([][]string, 0, previewItems)
	for _, item := range items[:min(len(items), previewItems)] {
		created := "-"
		if t := item.Created(); !t.IsZero() {
			created = humanize.Time(t)
		}
		rows = append(rows, []string{
			strconv.FormatInt(item.ID, 10),
			humanize.Comma(item.LikeScore()),
			item.NSFWLevel.String(),
			item.BaseModel.String(),
			created,
		})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("id", "likeScore", "nsfwLevel", "baseModel", "createdAt").
		Rows(rows...).
		Render()
}

// logToFile sends log output to path until the returned func is called.
func logToFile(path string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	prev := log.StandardLogger().Out
	log.SetOutput(f)
	return func() {
		log.SetOutput(prev)
		f.Close()
	}, nil
}
