// Package cmd holds the drivectl subcommands.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/channeldrive/channeldrive/internal/app"
	"github.com/channeldrive/channeldrive/internal/config"
	"github.com/channeldrive/channeldrive/internal/logger"
)

// loadConfig reads the server configuration and logs to stderr, keeping
// stdout for command output.
func loadConfig() (*config.Config, func()) {
	cfg := config.Load()
	flush := logger.Init(logger.Options{
		Development: true,
		AppName:     cfg.AppName,
		Environment: cfg.AppEnv,
		SentryDSN:   cfg.SentryDSN,
		Output:      os.Stderr,
	})
	return cfg, flush
}

// withApp runs fn against a fully wired application.
func withApp(ctx context.Context, fn func(a *app.App) error) error {
	cfg, flush := loadConfig()
	defer flush()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	return fn(a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
