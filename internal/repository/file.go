package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/channeldrive/channeldrive/internal/db"
	"github.com/channeldrive/channeldrive/internal/model"
	"github.com/jmoiron/sqlx"
)

var (
	ErrFileNotFound = errors.New("file not found")
)

type FileRepository interface {
	Ingest(ctx context.Context, file *model.File) (*model.File, bool, error)
	ByID(ctx context.Context, id string) (*model.File, error)
	ByTelegramFileID(ctx context.Context, telegramFileID string) (*model.File, error)
	UserFiles(ctx context.Context, userID string) ([]*model.File, error)
	SoftDelete(ctx context.Context, id, userID string) error
}

type fileRepository struct {
	db *sqlx.DB
}

func NewFileRepository(db *sqlx.DB) FileRepository {
	return &fileRepository{db: db}
}

// Ingest inserts file unless a record with the same telegram_file_id exists.
// A new record adds its size to the owner's storage counter in the same
// transaction. For an existing record the stored row is returned with
// created == false and no accounting happens.
func (r *fileRepository) Ingest(ctx context.Context, file *model.File) (*model.File, bool, error) {
	var (
		stored  *model.File
		created bool
	)

	err := db.WithTx(ctx, r.db, nil, func(tx *sqlx.Tx) error {
		query := `INSERT INTO files (id, user_id, original_name, size, mime_type, telegram_file_id, telegram_unique_id,
		          thumbnail_file_id, channel_id, telegram_message_id, telegram_link, caption, folder_path, source,
		          is_deleted, message_date, created_at, updated_at)
		          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		          ON CONFLICT (telegram_file_id) DO NOTHING`

		result, err := tx.ExecContext(ctx, query,
			file.ID,
			file.UserID,
			file.OriginalName,
			file.Size,
			file.MimeType,
			file.TelegramFileID,
			file.TelegramUniqueID,
			file.ThumbnailFileID,
			file.ChannelID,
			file.TelegramMessageID,
			file.TelegramLink,
			file.Caption,
			file.FolderPath,
			file.Source,
			file.IsDeleted,
			file.MessageDate,
			file.CreatedAt,
			file.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert file: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		created = rows == 1

		if !created {
			existing := &model.File{}
			err := tx.GetContext(ctx, existing, `SELECT * FROM files WHERE telegram_file_id = $1`, file.TelegramFileID)
			if err != nil {
				return fmt.Errorf("failed to load existing file: %w", err)
			}
			stored = existing
			return nil
		}

		err = incrementStorage(ctx, tx, file.UserID, file.Size)
		if err != nil {
			return fmt.Errorf("failed to update storage usage: %w", err)
		}
		stored = file
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return stored, created, nil
}

func (r *fileRepository) ByID(ctx context.Context, id string) (*model.File, error) {
	file := &model.File{}
	query := `SELECT * FROM files WHERE id = $1`

	err := r.db.GetContext(ctx, file, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}

	return file, nil
}

func (r *fileRepository) ByTelegramFileID(ctx context.Context, telegramFileID string) (*model.File, error) {
	file := &model.File{}
	query := `SELECT * FROM files WHERE telegram_file_id = $1`

	err := r.db.GetContext(ctx, file, query, telegramFileID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}

	return file, nil
}

// UserFiles lists the user's files that are not soft-deleted, newest first.
func (r *fileRepository) UserFiles(ctx context.Context, userID string) ([]*model.File, error) {
	var files []*model.File
	query := `SELECT * FROM files WHERE user_id = $1 AND is_deleted = $2 ORDER BY created_at DESC, id`

	err := r.db.SelectContext(ctx, &files, query, userID, false)
	if err != nil {
		return nil, err
	}

	return files, nil
}

// SoftDelete flags the file as deleted. Storage usage is left as is.
func (r *fileRepository) SoftDelete(ctx context.Context, id, userID string) error {
	query := `UPDATE files SET is_deleted = $1, updated_at = $2 WHERE id = $3 AND user_id = $4 AND is_deleted = $5`

	result, err := r.db.ExecContext(ctx, query, true, time.Now().UTC(), id, userID, false)
	return expectOne(result, err, ErrFileNotFound)
}
