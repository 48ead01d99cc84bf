package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/channeldrive/channeldrive/internal/model"
	"github.com/jmoiron/sqlx"
)

var (
	ErrBotNotFound  = errors.New("bot not found")
	ErrDuplicateBot = errors.New("bot token already registered")
)

type BotRepository interface {
	Create(ctx context.Context, bot *model.Bot) error
	ByID(ctx context.Context, id string) (*model.Bot, error)
	Active(ctx context.Context) ([]*model.Bot, error)
	All(ctx context.Context) ([]*model.Bot, error)
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
}

type botRepository struct {
	db *sqlx.DB
}

func NewBotRepository(db *sqlx.DB) BotRepository {
	return &botRepository{db: db}
}

func (r *botRepository) Create(ctx context.Context, bot *model.Bot) error {
	query := `INSERT INTO bots (id, token, username, is_active, created_at) VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.ExecContext(ctx, query, bot.ID, bot.Token, bot.Username, bot.IsActive, bot.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateBot
	}
	return err
}

func (r *botRepository) ByID(ctx context.Context, id string) (*model.Bot, error) {
	bot := &model.Bot{}
	query := `SELECT * FROM bots WHERE id = $1`

	err := r.db.GetContext(ctx, bot, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBotNotFound
	}
	if err != nil {
		return nil, err
	}

	return bot, nil
}

// Active lists the bots eligible for new assignments.
func (r *botRepository) Active(ctx context.Context) ([]*model.Bot, error) {
	var bots []*model.Bot
	query := `SELECT * FROM bots WHERE is_active = $1 ORDER BY created_at, id`

	err := r.db.SelectContext(ctx, &bots, query, true)
	if err != nil {
		return nil, err
	}

	return bots, nil
}

func (r *botRepository) All(ctx context.Context) ([]*model.Bot, error) {
	var bots []*model.Bot
	query := `SELECT * FROM bots ORDER BY created_at, id`

	err := r.db.SelectContext(ctx, &bots, query)
	if err != nil {
		return nil, err
	}

	return bots, nil
}

func (r *botRepository) SetActive(ctx context.Context, id string, active bool) error {
	query := `UPDATE bots SET is_active = $1 WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, active, id)
	return expectOne(result, err, ErrBotNotFound)
}

func (r *botRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM bots WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	return expectOne(result, err, ErrBotNotFound)
}
