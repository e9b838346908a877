package command

import (
	"civitai/harvester/internal/domain"
	"civitai/harvester/internal/service"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Walk the image catalog and save every page as JSON",
	Args:  cobra.NoArgs,
	RunE:  crawl,
}

func init() {
	crawlCmd.Flags().IntP("limit", "l", 100, "Limit of images to fetch per page")
	crawlCmd.Flags().IntP("depth", "d", 5, "Maximum cursor depth to crawl")
	crawlCmd.Flags().BoolP("nsfw", "n", false, "Include NSFW images")
	crawlCmd.Flags().Bool("resume", false, "Continue from the last saved cursor")
	rootCmd.AddCommand(crawlCmd)
}

func crawl(cmd *cobra.Command, _ []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	depth, err := cmd.Flags().GetInt("depth")
	if err != nil {
		return err
	}
	nsfw, err := cmd.Flags().GetBool("nsfw")
	if err != nil {
		return err
	}
	resume, err := cmd.Flags().GetBool("resume")
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	app, err := newContainer(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	log.Infof("🚀 Starting crawl: limit=%d depth=%d nsfw=%t", limit, depth, nsfw)
	result, err := app.Walker.Walk(ctx, service.WalkOptions{
		Params: domain.PageParams{Limit: limit, NSFW: nsfw},
		Depth:  depth,
		Resume: resume,
	})
	if err != nil {
		return err
	}

	log.Infof("✅ Crawled %d pages (%d images, %d failed requests) into %s",
		result.Pages, result.Items, result.Failures, cfg.Data.Dir)
	return nil
}
