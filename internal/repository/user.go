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
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateUser = errors.New("telegram id already registered")
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	ByID(ctx context.Context, id string) (*model.User, error)
	ByTelegramID(ctx context.Context, telegramID model.TelegramID) (*model.User, error)
	WithChannel(ctx context.Context) ([]*model.User, error)
	UpdateProfile(ctx context.Context, user *model.User) error
	AssignBot(ctx context.Context, userID string, bot *model.Bot) (bool, error)
	ReplaceBot(ctx context.Context, userID string, bot *model.Bot) error
	SetChannel(ctx context.Context, userID, channelID string, title *string) error
	Delete(ctx context.Context, id string) error
	Restore(ctx context.Context, telegramID model.TelegramID) (bool, error)
}

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (id, telegram_id, first_name, last_name, username, photo_url, storage_used, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.TelegramID,
		user.FirstName,
		user.LastName,
		user.Username,
		user.PhotoURL,
		user.StorageUsed,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateUser
	}
	return err
}

func (r *userRepository) ByID(ctx context.Context, id string) (*model.User, error) {
	user := &model.User{}
	query := `SELECT * FROM users WHERE id = $1 AND deleted_at IS NULL`

	err := r.db.GetContext(ctx, user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (r *userRepository) ByTelegramID(ctx context.Context, telegramID model.TelegramID) (*model.User, error) {
	user := &model.User{}
	query := `SELECT * FROM users WHERE telegram_id = $1 AND deleted_at IS NULL`

	err := r.db.GetContext(ctx, user, query, telegramID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	return user, nil
}

// WithChannel returns every user that completed channel setup.
func (r *userRepository) WithChannel(ctx context.Context) ([]*model.User, error) {
	var users []*model.User
	query := `SELECT * FROM users WHERE channel_id IS NOT NULL AND channel_id <> '' AND deleted_at IS NULL ORDER BY created_at`

	err := r.db.SelectContext(ctx, &users, query)
	if err != nil {
		return nil, err
	}

	return users, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now().UTC()
	query := `UPDATE users SET first_name = $1, last_name = $2, username = $3, photo_url = $4, updated_at = $5 WHERE id = $6`

	result, err := r.db.ExecContext(ctx, query, user.FirstName, user.LastName, user.Username, user.PhotoURL, user.UpdatedAt, user.ID)
	return expectOne(result, err, ErrUserNotFound)
}

// AssignBot records bot as the user's assignment unless one is already set.
// It returns false when another assignment won, leaving the existing one untouched.
func (r *userRepository) AssignBot(ctx context.Context, userID string, bot *model.Bot) (bool, error) {
	query := `UPDATE users SET assigned_bot_id = $1, assigned_bot_username = $2, updated_at = $3
	          WHERE id = $4 AND (assigned_bot_id IS NULL OR assigned_bot_id = '')`

	result, err := r.db.ExecContext(ctx, query, bot.ID, bot.Username, time.Now().UTC(), userID)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows == 1, nil
}

// ReplaceBot overwrites the user's assignment unconditionally.
func (r *userRepository) ReplaceBot(ctx context.Context, userID string, bot *model.Bot) error {
	query := `UPDATE users SET assigned_bot_id = $1, assigned_bot_username = $2, updated_at = $3 WHERE id = $4`

	result, err := r.db.ExecContext(ctx, query, bot.ID, bot.Username, time.Now().UTC(), userID)
	return expectOne(result, err, ErrUserNotFound)
}

func (r *userRepository) SetChannel(ctx context.Context, userID, channelID string, title *string) error {
	query := `UPDATE users SET channel_id = $1, channel_title = $2, channel_setup_complete = $3, updated_at = $4 WHERE id = $5`

	result, err := r.db.ExecContext(ctx, query, channelID, title, true, time.Now().UTC(), userID)
	return expectOne(result, err, ErrUserNotFound)
}

// Delete closes the account. The row stays with deleted_at set, the channel
// registration and storage counter are cleared and every file record of the
// user is flagged deleted.
func (r *userRepository) Delete(ctx context.Context, id string) error {
	now := time.Now().UTC()

	return db.WithTx(ctx, r.db, nil, func(tx *sqlx.Tx) error {
		query := `UPDATE users SET deleted_at = $1, channel_id = NULL, channel_title = NULL, channel_setup_complete = $2,
		          storage_used = 0, updated_at = $3 WHERE id = $4 AND deleted_at IS NULL`

		result, err := tx.ExecContext(ctx, query, now, false, now, id)
		if err := expectOne(result, err, ErrUserNotFound); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `UPDATE files SET is_deleted = $1, updated_at = $2 WHERE user_id = $3 AND is_deleted = $4`,
			true, now, id, false)
		if err != nil {
			return fmt.Errorf("failed to delete user files: %w", err)
		}
		return nil
	})
}

// Restore reopens a closed account. It reports false when no closed account
// exists for telegramID.
func (r *userRepository) Restore(ctx context.Context, telegramID model.TelegramID) (bool, error) {
	query := `UPDATE users SET deleted_at = NULL, updated_at = $1 WHERE telegram_id = $2 AND deleted_at IS NOT NULL`

	result, err := r.db.ExecContext(ctx, query, time.Now().UTC(), telegramID)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows == 1, nil
}

// incrementStorage adds delta to the user's counter in a single statement, so
// concurrent ingestions never lose an update.
func incrementStorage(ctx context.Context, exec sqlx.ExecerContext, userID string, delta int64) error {
	query := `UPDATE users SET storage_used = storage_used + $1 WHERE id = $2`

	result, err := exec.ExecContext(ctx, query, delta, userID)
	return expectOne(result, err, ErrUserNotFound)
}

// expectOne maps a zero-row write to notFound.
func expectOne(result sql.Result, err error, notFound error) error {
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return notFound
	}

	return nil
}
