// Package testutil provides database fixtures for package tests.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/channeldrive/channeldrive/internal/db"
	"github.com/channeldrive/channeldrive/internal/model"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// TestDB returns a migrated in-memory SQLite database private to t.
func TestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	conn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", name, uuid.NewString()[:8])

	database, err := db.Init("sqlite", conn)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	if err := db.RunMigrations(context.Background(), database.DB, "sqlite"); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	return database
}

// CreateUser inserts a user with the given Telegram id and optional channel.
func CreateUser(t *testing.T, database *sqlx.DB, telegramID, channelID string) *model.User {
	t.Helper()

	now := time.Now().UTC()
	user := &model.User{
		ID:         uuid.NewString(),
		TelegramID: model.TelegramID(telegramID),
		FirstName:  "Test",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if channelID != "" {
		user.ChannelID = &channelID
		user.ChannelSetupComplete = true
	}

	_, err := database.Exec(`INSERT INTO users (id, telegram_id, first_name, channel_id, channel_setup_complete, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID, user.TelegramID, user.FirstName, user.ChannelID, user.ChannelSetupComplete, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	return user
}

// CreateBot inserts a bot credential.
func CreateBot(t *testing.T, database *sqlx.DB, username string, active bool) *model.Bot {
	t.Helper()

	bot := &model.Bot{
		ID:        uuid.NewString(),
		Token:     "token-" + username,
		Username:  username,
		IsActive:  active,
		CreatedAt: time.Now().UTC(),
	}

	_, err := database.Exec(`INSERT INTO bots (id, token, username, is_active, created_at) VALUES ($1, $2, $3, $4, $5)`,
		bot.ID, bot.Token, bot.Username, bot.IsActive, bot.CreatedAt)
	if err != nil {
		t.Fatalf("create bot: %v", err)
	}

	return bot
}

// StorageUsed reads the user's storage counter straight from the table.
func StorageUsed(t *testing.T, database *sqlx.DB, userID string) int64 {
	t.Helper()

	var used int64
	if err := database.Get(&used, `SELECT storage_used FROM users WHERE id = $1`, userID); err != nil {
		t.Fatalf("read storage_used: %v", err)
	}
	return used
}

// CountFiles returns the number of file rows with the given Telegram file id.
func CountFiles(t *testing.T, database *sqlx.DB, telegramFileID string) int {
	t.Helper()

	var n int
	if err := database.Get(&n, `SELECT COUNT(*) FROM files WHERE telegram_file_id = $1`, telegramFileID); err != nil {
		t.Fatalf("count files: %v", err)
	}
	return n
}
