package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/channeldrive/channeldrive/internal/model"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })
	return sqlx.NewDb(mockDB, "pgx"), mock
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.True(t, isUniqueViolation(errors.New("constraint failed: UNIQUE constraint failed: users.telegram_id (2067)")))
	assert.False(t, isUniqueViolation(errors.New("connection reset")))
	assert.False(t, isUniqueViolation(nil))
}

func TestUserRepository_CreateMapsPostgresUniqueViolation(t *testing.T) {
	database, mock := newMockDB(t)
	repo := NewUserRepository(database)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users`)).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_telegram_id_key"})

	err := repo.Create(context.Background(), &model.User{ID: "u1", TelegramID: "1"})
	require.ErrorIs(t, err, ErrDuplicateUser)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFileRepository_IngestConflictLoadsExisting(t *testing.T) {
	database, mock := newMockDB(t)
	repo := NewFileRepository(database)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(`(?s)INSERT INTO files .* ON CONFLICT \(telegram_file_id\) DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT \* FROM files WHERE telegram_file_id = \$1`).
		WithArgs("tg-file").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "original_name", "size", "mime_type", "telegram_file_id", "is_deleted", "created_at", "updated_at"}).
			AddRow("existing-id", "u1", "a.pdf", 10, "application/pdf", "tg-file", false, now, now))
	mock.ExpectCommit()

	stored, created, err := repo.Ingest(context.Background(), &model.File{ID: "new-id", UserID: "u1", TelegramFileID: "tg-file", Size: 10})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "existing-id", stored.ID)
	require.NoError(t, mock.ExpectationsWereMet(), "no storage increment on conflict")
}

func TestFileRepository_IngestIncrementsInsideTransaction(t *testing.T) {
	database, mock := newMockDB(t)
	repo := NewFileRepository(database)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO files`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE users SET storage_used = storage_used \+ \$1 WHERE id = \$2`).
		WithArgs(int64(2048), "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, created, err := repo.Ingest(context.Background(), &model.File{ID: "f1", UserID: "u1", TelegramFileID: "tg-new", Size: 2048})
	require.NoError(t, err)
	assert.True(t, created)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFileRepository_IngestRollsBackWhenAccountingFails(t *testing.T) {
	database, mock := newMockDB(t)
	repo := NewFileRepository(database)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO files`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE users SET storage_used`).WillReturnError(errors.New("connection lost"))
	mock.ExpectRollback()

	_, created, err := repo.Ingest(context.Background(), &model.File{ID: "f1", UserID: "u1", TelegramFileID: "tg-new", Size: 1})
	require.Error(t, err)
	assert.False(t, created)
	require.NoError(t, mock.ExpectationsWereMet())
}
