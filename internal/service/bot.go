package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/channeldrive/channeldrive/internal/model"
	"github.com/channeldrive/channeldrive/internal/repository"
	"github.com/channeldrive/channeldrive/internal/telegram"
	"github.com/google/uuid"
)

var (
	ErrNoActiveBots          = errors.New("no active bots available")
	ErrBotCredentialNotFound = errors.New("assigned bot credential not found")
	ErrInvalidBotToken       = errors.New("invalid bot token")
)

// BotService owns the bot pool and the user to bot assignment.
type BotService struct {
	botRepo  repository.BotRepository
	userRepo repository.UserRepository
	clients  telegram.Factory
	pick     func(n int) int
}

func NewBotService(botRepo repository.BotRepository, userRepo repository.UserRepository, clients telegram.Factory) *BotService {
	return &BotService{
		botRepo:  botRepo,
		userRepo: userRepo,
		clients:  clients,
		pick:     rand.IntN,
	}
}

// Resolve returns the bot assigned to user, assigning a random active bot on
// first use. Once assigned the bot never changes here; see Reassign.
// On a new assignment user is updated in place.
func (s *BotService) Resolve(ctx context.Context, user *model.User) (*model.Bot, error) {
	if user.HasAssignedBot() {
		return s.assigned(ctx, *user.AssignedBotID)
	}

	active, err := s.botRepo.Active(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active bots: %w", err)
	}
	if len(active) == 0 {
		return nil, ErrNoActiveBots
	}

	bot := active[s.pick(len(active))]
	assigned, err := s.userRepo.AssignBot(ctx, user.ID, bot)
	if err != nil {
		return nil, fmt.Errorf("failed to assign bot: %w", err)
	}

	if !assigned {
		// A concurrent call assigned first. Its choice wins.
		current, err := s.userRepo.ByID(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		if !current.HasAssignedBot() {
			return nil, fmt.Errorf("failed to assign bot to user %s", user.ID)
		}
		bot, err = s.assigned(ctx, *current.AssignedBotID)
		if err != nil {
			return nil, err
		}
	} else {
		slog.Info("bot assigned", "user_id", user.ID, "bot", bot.Username)
	}

	user.AssignedBotID = &bot.ID
	user.AssignedBotUsername = &bot.Username
	return bot, nil
}

func (s *BotService) assigned(ctx context.Context, botID string) (*model.Bot, error) {
	bot, err := s.botRepo.ByID(ctx, botID)
	if errors.Is(err, repository.ErrBotNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrBotCredentialNotFound, botID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load assigned bot: %w", err)
	}
	return bot, nil
}

// Reassign replaces the user's bot with a random active one. It is the
// remediation for an assignment whose credential was removed.
func (s *BotService) Reassign(ctx context.Context, telegramID model.TelegramID) (*model.Bot, error) {
	user, err := s.userRepo.ByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	active, err := s.botRepo.Active(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active bots: %w", err)
	}
	if len(active) == 0 {
		return nil, ErrNoActiveBots
	}

	bot := active[s.pick(len(active))]
	if err := s.userRepo.ReplaceBot(ctx, user.ID, bot); err != nil {
		return nil, fmt.Errorf("failed to reassign bot: %w", err)
	}

	slog.Info("bot reassigned", "user_id", user.ID, "bot", bot.Username)
	return bot, nil
}

// Client returns the Bot API client for bot.
func (s *BotService) Client(bot *model.Bot) telegram.API {
	return s.clients.Client(bot.Token)
}

// ActiveUsernames lists the handles users can add to their channel.
func (s *BotService) ActiveUsernames(ctx context.Context) ([]string, error) {
	bots, err := s.botRepo.Active(ctx)
	if err != nil {
		return nil, err
	}

	usernames := make([]string, 0, len(bots))
	for _, bot := range bots {
		usernames = append(usernames, bot.Username)
	}
	return usernames, nil
}

// Add registers a bot token after checking it with getMe.
func (s *BotService) Add(ctx context.Context, token string) (*model.Bot, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidBotToken
	}

	me, err := s.clients.Client(token).GetMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBotToken, err)
	}
	if !me.IsBot {
		return nil, fmt.Errorf("%w: token does not belong to a bot", ErrInvalidBotToken)
	}

	bot := &model.Bot{
		ID:        uuid.New().String(),
		Token:     token,
		Username:  me.Username,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.botRepo.Create(ctx, bot); err != nil {
		return nil, err
	}

	slog.Info("bot added", "bot_id", bot.ID, "bot", bot.Username)
	return bot, nil
}

func (s *BotService) List(ctx context.Context) ([]*model.Bot, error) {
	return s.botRepo.All(ctx)
}

func (s *BotService) SetActive(ctx context.Context, id string, active bool) error {
	return s.botRepo.SetActive(ctx, id, active)
}

// Remove drops a bot from the pool. Users still assigned to it fail with
// ErrBotCredentialNotFound until they are reassigned.
func (s *BotService) Remove(ctx context.Context, id string) error {
	if err := s.botRepo.Delete(ctx, id); err != nil {
		return err
	}
	slog.Info("bot removed", "bot_id", id)
	return nil
}
