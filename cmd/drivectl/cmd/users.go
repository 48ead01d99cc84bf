package cmd

import (
	"fmt"

	"github.com/channeldrive/channeldrive/internal/app"
	"github.com/channeldrive/channeldrive/internal/model"
	"github.com/spf13/cobra"
)

func UsersCmd() *cobra.Command {
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "Account maintenance",
	}

	usersCmd.AddCommand(&cobra.Command{
		Use:   "reassign-bot <telegram-id>",
		Short: "Move a user to a currently active bot",
		Long: "Replaces the user's bot assignment with a random active bot. Use it when the\n" +
			"assigned bot was removed and requests fail with a missing bot credential.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			telegramID, err := model.ParseTelegramID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(a *app.App) error {
				bot, err := a.BotService.Reassign(cmd.Context(), telegramID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "user %s now uses @%s\n", telegramID, bot.Username)
				return nil
			})
		},
	})

	return usersCmd
}
