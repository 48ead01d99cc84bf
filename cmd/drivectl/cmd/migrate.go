package cmd

import (
	"fmt"

	"github.com/channeldrive/channeldrive/internal/db"
	"github.com/spf13/cobra"
)

func MigrateCmd() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, true)
		},
	})
	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, false)
		},
	})

	return migrateCmd
}

func runMigrate(cmd *cobra.Command, up bool) error {
	cfg, flush := loadConfig()
	defer flush()

	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close(database) }()

	ctx := cmd.Context()
	if up {
		err = db.RunMigrations(ctx, database.DB, cfg.DBDriver)
	} else {
		err = db.MigrateDown(ctx, database.DB, cfg.DBDriver)
	}
	if err != nil {
		return err
	}

	version, err := db.Version(ctx, database.DB, cfg.DBDriver)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
	return nil
}
