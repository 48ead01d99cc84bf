package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/channeldrive/channeldrive/cmd/drivectl/cmd"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "drivectl",
		Short:        "Operator tools for the channel drive backend",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(cmd.MigrateCmd())
	rootCmd.AddCommand(cmd.BotsCmd())
	rootCmd.AddCommand(cmd.UsersCmd())
	rootCmd.AddCommand(cmd.SyncCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
