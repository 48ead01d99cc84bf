// Package worker runs background jobs next to the HTTP server.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/channeldrive/channeldrive/internal/model"
)

// UserLister returns the accounts with a registered channel.
type UserLister interface {
	WithChannel(ctx context.Context) ([]*model.User, error)
}

// Syncer runs one channel reconciliation.
type Syncer interface {
	Sync(ctx context.Context, telegramID model.TelegramID, limit int) (*model.SyncStats, error)
}

// SyncWorker periodically syncs every user's channel.
type SyncWorker struct {
	users    UserLister
	syncer   Syncer
	interval time.Duration
	limit    int
}

func NewSyncWorker(users UserLister, syncer Syncer, interval time.Duration, limit int) *SyncWorker {
	return &SyncWorker{
		users:    users,
		syncer:   syncer,
		interval: interval,
		limit:    limit,
	}
}

// Start runs until ctx is done.
func (w *SyncWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	slog.Info("sync worker started", "component", "sync_worker", "interval", w.interval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("sync worker stopped", "component", "sync_worker")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// Background runs Start in its own goroutine. The returned func blocks until
// the loop has returned, including a pass that was in progress when ctx ended.
func (w *SyncWorker) Background(ctx context.Context) (wait func()) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Start(ctx)
	}()
	return func() { <-done }
}

// RunOnce syncs each user in turn. A failing user does not stop the pass.
func (w *SyncWorker) RunOnce(ctx context.Context) {
	users, err := w.users.WithChannel(ctx)
	if err != nil {
		slog.Error("failed to list users for sync", "component", "sync_worker", "error", err)
		return
	}

	for _, user := range users {
		if ctx.Err() != nil {
			return
		}

		stats, err := w.syncer.Sync(ctx, user.TelegramID, w.limit)
		if err != nil {
			slog.Warn("scheduled sync failed",
				"component", "sync_worker",
				"user_id", user.ID,
				"error", err,
			)
			continue
		}

		if stats.Synced > 0 || stats.Errors > 0 {
			slog.Info("scheduled sync finished",
				"component", "sync_worker",
				"user_id", user.ID,
				"synced", stats.Synced,
				"skipped", stats.Skipped,
				"errors", stats.Errors,
			)
		}
	}
}
