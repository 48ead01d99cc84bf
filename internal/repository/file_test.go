package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/channeldrive/channeldrive/internal/model"
	"github.com/channeldrive/channeldrive/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFile(userID, telegramFileID string, size int64) *model.File {
	now := time.Now().UTC()
	channel := "-1001234567890"
	msgID := int64(42)
	link := "https://t.me/c/1234567890/42"
	return &model.File{
		ID:                uuid.NewString(),
		UserID:            userID,
		OriginalName:      "report.pdf",
		Size:              size,
		MimeType:          "application/pdf",
		TelegramFileID:    telegramFileID,
		ChannelID:         &channel,
		TelegramMessageID: &msgID,
		TelegramLink:      &link,
		FolderPath:        "/",
		Source:            model.FileSourceSync,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func TestFileRepository_IngestCreatesAndCounts(t *testing.T) {
	database := testutil.TestDB(t)
	repo := NewFileRepository(database)
	ctx := context.Background()
	user := testutil.CreateUser(t, database, "1001", "-1001234567890")

	stored, created, err := repo.Ingest(ctx, newFile(user.ID, "file-a", 100))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "file-a", stored.TelegramFileID)
	assert.EqualValues(t, 100, testutil.StorageUsed(t, database, user.ID))

	loaded, err := repo.ByTelegramFileID(ctx, "file-a")
	require.NoError(t, err)
	assert.Equal(t, stored.ID, loaded.ID)
	assert.False(t, loaded.IsDeleted)
	require.NotNil(t, loaded.TelegramLink)
	assert.Equal(t, "https://t.me/c/1234567890/42", *loaded.TelegramLink)
}

func TestFileRepository_IngestDuplicateIsSkipped(t *testing.T) {
	database := testutil.TestDB(t)
	repo := NewFileRepository(database)
	ctx := context.Background()
	user := testutil.CreateUser(t, database, "1002", "-100555")

	first, created, err := repo.Ingest(ctx, newFile(user.ID, "dup", 250))
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := repo.Ingest(ctx, newFile(user.ID, "dup", 250))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID, "existing record is returned")

	assert.Equal(t, 1, testutil.CountFiles(t, database, "dup"))
	assert.EqualValues(t, 250, testutil.StorageUsed(t, database, user.ID))
}

func TestFileRepository_AccountingSumsOnlyNewRecords(t *testing.T) {
	database := testutil.TestDB(t)
	repo := NewFileRepository(database)
	ctx := context.Background()
	user := testutil.CreateUser(t, database, "1003", "-100777")

	for i, size := range []int64{100, 250, 0} {
		_, created, err := repo.Ingest(ctx, newFile(user.ID, "sized-"+string(rune('a'+i)), size))
		require.NoError(t, err)
		require.True(t, created)
	}
	// Replays of the same ids must not move the counter.
	for i, size := range []int64{100, 250, 0} {
		_, created, err := repo.Ingest(ctx, newFile(user.ID, "sized-"+string(rune('a'+i)), size))
		require.NoError(t, err)
		require.False(t, created)
	}

	assert.EqualValues(t, 350, testutil.StorageUsed(t, database, user.ID))
}

func TestFileRepository_ConcurrentIngestCountsOnce(t *testing.T) {
	database := testutil.TestDB(t)
	repo := NewFileRepository(database)
	ctx := context.Background()
	user := testutil.CreateUser(t, database, "1004", "-100888")

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		creates int
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, created, err := repo.Ingest(ctx, newFile(user.ID, "race", 64))
			assert.NoError(t, err)
			if created {
				mu.Lock()
				creates++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, creates)
	assert.Equal(t, 1, testutil.CountFiles(t, database, "race"))
	assert.EqualValues(t, 64, testutil.StorageUsed(t, database, user.ID))
}

func TestFileRepository_IngestUnknownUserRollsBack(t *testing.T) {
	database := testutil.TestDB(t)
	repo := NewFileRepository(database)

	_, _, err := repo.Ingest(context.Background(), newFile("missing-user", "orphan", 10))
	require.Error(t, err)
	assert.Equal(t, 0, testutil.CountFiles(t, database, "orphan"))
}

func TestFileRepository_UserFilesAndSoftDelete(t *testing.T) {
	database := testutil.TestDB(t)
	repo := NewFileRepository(database)
	ctx := context.Background()
	user := testutil.CreateUser(t, database, "1005", "-100999")
	other := testutil.CreateUser(t, database, "1006", "")

	older := newFile(user.ID, "older", 1)
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	newer := newFile(user.ID, "newer", 1)
	for _, f := range []*model.File{older, newer} {
		_, _, err := repo.Ingest(ctx, f)
		require.NoError(t, err)
	}

	files, err := repo.UserFiles(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "newer", files[0].TelegramFileID)

	require.ErrorIs(t, repo.SoftDelete(ctx, older.ID, other.ID), ErrFileNotFound, "only the owner can delete")
	require.NoError(t, repo.SoftDelete(ctx, older.ID, user.ID))
	require.ErrorIs(t, repo.SoftDelete(ctx, older.ID, user.ID), ErrFileNotFound, "already deleted")

	files, err = repo.UserFiles(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "newer", files[0].TelegramFileID)
	assert.EqualValues(t, 2, testutil.StorageUsed(t, database, user.ID), "delete does not reconcile usage")
}

func TestFileRepository_ByIDNotFound(t *testing.T) {
	database := testutil.TestDB(t)
	repo := NewFileRepository(database)

	_, err := repo.ByID(context.Background(), "nope")
	require.ErrorIs(t, err, ErrFileNotFound)
}
