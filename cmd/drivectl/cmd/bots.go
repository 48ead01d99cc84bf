package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/channeldrive/channeldrive/internal/app"
	"github.com/spf13/cobra"
)

func BotsCmd() *cobra.Command {
	botsCmd := &cobra.Command{
		Use:   "bots",
		Short: "Manage the bot pool",
	}

	var token string
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Register a bot token after checking it with getMe",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				bot, err := a.BotService.Add(cmd.Context(), token)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added @%s (%s)\n", bot.Username, bot.ID)
				return nil
			})
		},
	}
	addCmd.Flags().StringVar(&token, "token", "", "bot token from @BotFather")
	_ = addCmd.MarkFlagRequired("token")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List registered bots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				bots, err := a.BotService.List(cmd.Context())
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tUSERNAME\tACTIVE\tCREATED")
				for _, b := range bots {
					fmt.Fprintf(tw, "%s\t@%s\t%t\t%s\n", b.ID, b.Username, b.IsActive, b.CreatedAt.Format("2006-01-02"))
				}
				return tw.Flush()
			})
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <bot-id>",
		Short: "Remove a bot; assigned users need users reassign-bot afterwards",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				if err := a.BotService.Remove(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "bot %s deleted\n", args[0])
				return nil
			})
		},
	}

	botsCmd.AddCommand(addCmd, listCmd, deleteCmd, setActiveCmd("activate", true), setActiveCmd("deactivate", false))
	return botsCmd
}

func setActiveCmd(use string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <bot-id>",
		Short: fmt.Sprintf("Mark a bot as %sd for new assignments", use),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				err := a.BotService.SetActive(cmd.Context(), args[0], active)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "bot %s %sd\n", args[0], use)
				return nil
			})
		},
	}
}
