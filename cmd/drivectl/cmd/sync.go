package cmd

import (
	"github.com/channeldrive/channeldrive/internal/app"
	"github.com/channeldrive/channeldrive/internal/model"
	"github.com/spf13/cobra"
)

func SyncCmd() *cobra.Command {
	var limit int

	syncCmd := &cobra.Command{
		Use:   "sync <telegram-id>",
		Short: "Sync one user's channel and print the stats as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			telegramID, err := model.ParseTelegramID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(a *app.App) error {
				stats, err := a.SyncService.Sync(cmd.Context(), telegramID, limit)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), stats)
			})
		},
	}
	syncCmd.Flags().IntVar(&limit, "limit", 0, "number of recent updates to read (default from SYNC_DEFAULT_LIMIT)")

	return syncCmd
}
