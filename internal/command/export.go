package command

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <datas>",
	Short: "Upsert harvested items into Postgres",
	Args:  cobra.ExactArgs(1),
	RunE:  export,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func export(cmd *cobra.Command, args []string) error {
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

	repo, err := app.Items(ctx)
	if err != nil {
		return err
	}
	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}

	n, err := repo.SaveItems(ctx, items)
	if err != nil {
		return err
	}
	log.Infof("📦 Exported %d items from %s", n, args[0])
	return nil
}
