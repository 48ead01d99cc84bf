package repository

import (
	"context"
	"testing"
	"time"

	"github.com/channeldrive/channeldrive/internal/model"
	"github.com/channeldrive/channeldrive/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_CreateAndLookup(t *testing.T) {
	database := testutil.TestDB(t)
	repo := NewUserRepository(database)
	ctx := context.Background()

	now := time.Now().UTC()
	user := &model.User{
		ID:         uuid.NewString(),
		TelegramID: "555",
		FirstName:  "Ada",
		Username:   "ada",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, repo.Create(ctx, user))

	byTG, err := repo.ByTelegramID(ctx, "555")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byTG.ID)
	assert.Equal(t, "Ada", byTG.FirstName)
	assert.False(t, byTG.HasChannel())
	assert.False(t, byTG.HasAssignedBot())

	dup := *user
	dup.ID = uuid.NewString()
	require.ErrorIs(t, repo.Create(ctx, &dup), ErrDuplicateUser)

	_, err = repo.ByTelegramID(ctx, "556")
	require.ErrorIs(t, err, ErrUserNotFound)
	_, err = repo.ByID(ctx, "missing")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepository_AssignBotIsWriteOnce(t *testing.T) {
	database := testutil.TestDB(t)
	repo := NewUserRepository(database)
	ctx := context.Background()
	user := testutil.CreateUser(t, database, "600", "")
	first := testutil.CreateBot(t, database, "first_bot", true)
	second := testutil.CreateBot(t, database, "second_bot", true)

	assigned, err := repo.AssignBot(ctx, user.ID, first)
	require.NoError(t, err)
	assert.True(t, assigned)

	assigned, err = repo.AssignBot(ctx, user.ID, second)
	require.NoError(t, err)
	assert.False(t, assigned)

	loaded, err := repo.ByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.AssignedBotID)
	assert.Equal(t, first.ID, *loaded.AssignedBotID)
	assert.Equal(t, "first_bot", *loaded.AssignedBotUsername)

	require.NoError(t, repo.ReplaceBot(ctx, user.ID, second))
	loaded, err = repo.ByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, *loaded.AssignedBotID)
}

func TestUserRepository_SetChannelAndWithChannel(t *testing.T) {
	database := testutil.TestDB(t)
	repo := NewUserRepository(database)
	ctx := context.Background()
	user := testutil.CreateUser(t, database, "700", "")
	testutil.CreateUser(t, database, "701", "")

	title := "My Drive"
	require.NoError(t, repo.SetChannel(ctx, user.ID, "-100321", &title))
	require.ErrorIs(t, repo.SetChannel(ctx, "missing", "-100321", nil), ErrUserNotFound)

	users, err := repo.WithChannel(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, user.ID, users[0].ID)
	assert.True(t, users[0].ChannelSetupComplete)
	assert.Equal(t, "My Drive", *users[0].ChannelTitle)
}

func TestIncrementStorage(t *testing.T) {
	database := testutil.TestDB(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, database, "800", "")

	require.NoError(t, incrementStorage(ctx, database, user.ID, 100))
	require.NoError(t, incrementStorage(ctx, database, user.ID, 250))
	require.NoError(t, incrementStorage(ctx, database, user.ID, 0))
	assert.EqualValues(t, 350, testutil.StorageUsed(t, database, user.ID))

	require.ErrorIs(t, incrementStorage(ctx, database, "missing", 1), ErrUserNotFound)
}

func TestUserRepository_UpdateProfileAndDelete(t *testing.T) {
	database := testutil.TestDB(t)
	repo := NewUserRepository(database)
	ctx := context.Background()
	user := testutil.CreateUser(t, database, "900", "")

	user.FirstName = "Grace"
	user.LastName = "Hopper"
	require.NoError(t, repo.UpdateProfile(ctx, user))

	loaded, err := repo.ByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Grace", loaded.FirstName)
	assert.Equal(t, "Hopper", loaded.LastName)

	require.NoError(t, repo.Delete(ctx, user.ID))
	require.ErrorIs(t, repo.Delete(ctx, user.ID), ErrUserNotFound)
	_, err = repo.ByID(ctx, user.ID)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepository_SoftDeleteAndRestore(t *testing.T) {
	database := testutil.TestDB(t)
	repo := NewUserRepository(database)
	files := NewFileRepository(database)
	ctx := context.Background()
	user := testutil.CreateUser(t, database, "901", "-100555")

	_, created, err := files.Ingest(ctx, &model.File{
		ID: "f1", UserID: user.ID, OriginalName: "a.txt", MimeType: "text/plain",
		TelegramFileID: "tg-1", Source: model.FileSourceSync, Size: 40,
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	require.True(t, created)

	require.NoError(t, repo.Delete(ctx, user.ID))

	_, err = repo.ByTelegramID(ctx, user.TelegramID)
	require.ErrorIs(t, err, ErrUserNotFound)
	assert.EqualValues(t, 0, testutil.StorageUsed(t, database, user.ID))
	stored, err := files.ByTelegramFileID(ctx, "tg-1")
	require.NoError(t, err)
	assert.True(t, stored.IsDeleted)

	// The telegram id stays taken until the account is restored.
	err = repo.Create(ctx, &model.User{ID: "other", TelegramID: user.TelegramID})
	require.ErrorIs(t, err, ErrDuplicateUser)

	restored, err := repo.Restore(ctx, user.TelegramID)
	require.NoError(t, err)
	assert.True(t, restored)

	loaded, err := repo.ByTelegramID(ctx, user.TelegramID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, loaded.ID)
	assert.False(t, loaded.HasChannel())
	assert.Nil(t, loaded.DeletedAt)

	restored, err = repo.Restore(ctx, user.TelegramID)
	require.NoError(t, err)
	assert.False(t, restored)
}
