package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/channeldrive/channeldrive/internal/media"
	"github.com/channeldrive/channeldrive/internal/model"
	"github.com/channeldrive/channeldrive/internal/repository"
	"github.com/channeldrive/channeldrive/internal/telegram"
	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"
)

// channelUpdateTypes are the update kinds a channel post can arrive in.
var channelUpdateTypes = []string{"channel_post", "edited_channel_post"}

var (
	ErrUserNotFound   = repository.ErrUserNotFound
	ErrTransientFetch = errors.New("failed to fetch channel updates")
)

// Pacer spaces out writes during a sync run.
type Pacer interface {
	Wait(ctx context.Context) error
}

// PacerFactory builds the pacer of a single sync run.
type PacerFactory func() Pacer

// Pacing returns a factory of independent pacers, one per run.
func Pacing(interval time.Duration) PacerFactory {
	return func() Pacer {
		return NewPacer(interval)
	}
}

// NewPacer lets one message through per interval. The initial token is spent,
// so the first Wait already blocks for a full interval. A zero interval
// disables pacing.
func NewPacer(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	l := rate.NewLimiter(rate.Every(interval), 1)
	l.Allow()
	return l
}

// BotResolver yields the bot whose feed and credentials serve a user.
type BotResolver interface {
	Resolve(ctx context.Context, user *model.User) (*model.Bot, error)
}

// Ingester records one parsed attachment.
type Ingester interface {
	Ingest(ctx context.Context, userID string, d *model.FileDescriptor, source string) (*model.File, bool, error)
}

type SyncOptions struct {
	DefaultLimit int
	MaxLimit     int
	PollTimeout  time.Duration
}

// SyncService pulls the most recent updates of a user's bot and records the
// files posted to the user's channel.
//
// There is no persisted cursor: each run re-reads the latest window and relies
// on deduplication by Telegram file id. Files older than the window are missed
// when the backlog exceeds one window.
type SyncService struct {
	userRepo repository.UserRepository
	bots     BotResolver
	clients  telegram.Factory
	files    Ingester
	pacing   PacerFactory
	opts     SyncOptions
}

func NewSyncService(
	userRepo repository.UserRepository,
	bots BotResolver,
	clients telegram.Factory,
	files Ingester,
	pacing PacerFactory,
	opts SyncOptions,
) *SyncService {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 50
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = 100
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 3 * time.Second
	}
	if pacing == nil {
		pacing = Pacing(0)
	}
	return &SyncService{
		userRepo: userRepo,
		bots:     bots,
		clients:  clients,
		files:    files,
		pacing:   pacing,
		opts:     opts,
	}
}

// Limit clamps a requested window size to the configured bounds.
func (s *SyncService) Limit(requested int) int {
	if requested <= 0 {
		requested = s.opts.DefaultLimit
	}
	return min(requested, s.opts.MaxLimit)
}

// Sync runs one reconciliation of the user's channel. A failure to resolve the
// user or bot or to fetch updates fails the run; a failure on a single message
// is counted in the stats and the run continues.
func (s *SyncService) Sync(ctx context.Context, telegramID model.TelegramID, limit int) (*model.SyncStats, error) {
	log := slog.With("run_id", ulid.Make().String(), "telegram_id", telegramID)

	user, err := s.userRepo.ByTelegramID(ctx, telegramID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransientFetch, err)
	}
	if !user.HasChannel() {
		return nil, ErrUserChannelNotConfigured
	}
	channelID := *user.ChannelID

	bot, err := s.bots.Resolve(ctx, user)
	if err != nil {
		return nil, err
	}

	limit = s.Limit(limit)
	log.Debug("sync fetching updates", "bot", bot.Username, "limit", limit)

	updates, err := s.clients.Client(bot.Token).GetUpdates(ctx, telegram.UpdatesRequest{
		Limit:          limit,
		Timeout:        s.opts.PollTimeout,
		AllowedUpdates: channelUpdateTypes,
	})
	if err != nil {
		log.Warn("sync fetch failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrTransientFetch, err)
	}

	messages := channelMessages(updates, channelID)
	stats := &model.SyncStats{
		ChannelID:     channelID,
		TotalMessages: len(messages),
	}

	pacer := s.pacing()
	for i, msg := range messages {
		if i > 0 {
			if err := pacer.Wait(ctx); err != nil {
				log.Warn("sync interrupted", "error", err, "processed", i)
				return stats, err
			}
		}

		created, err := s.processMessage(ctx, user.ID, msg)
		switch {
		case err != nil:
			stats.Errors++
			log.Warn("sync message failed", "message_id", msg.MessageID, "error", err)
		case created:
			stats.Synced++
		default:
			stats.Skipped++
		}
	}

	log.Info("sync finished",
		"channel_id", channelID,
		"total_messages", stats.TotalMessages,
		"synced", stats.Synced,
		"skipped", stats.Skipped,
		"errors", stats.Errors,
	)
	return stats, nil
}

// processMessage parses and ingests one message. A panic is reported as an
// error so one malformed message cannot end the run.
func (s *SyncService) processMessage(ctx context.Context, userID string, msg *telegram.Message) (created bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", media.ErrMessageParse, r)
		}
	}()

	d, err := media.ParseMessage(msg)
	if err != nil {
		return false, err
	}
	if d == nil {
		return false, nil
	}

	_, created, err = s.files.Ingest(ctx, userID, d, model.FileSourceSync)
	return created, err
}

// channelMessages keeps, in feed order, the messages posted to channelID that
// carry an attachment.
func channelMessages(updates []telegram.Update, channelID string) []*telegram.Message {
	var out []*telegram.Message
	for i := range updates {
		msg := updates[i].AnyMessage()
		if msg == nil || msg.Chat == nil {
			continue
		}
		if strconv.FormatInt(msg.Chat.ID, 10) != channelID {
			continue
		}
		if !media.HasAttachment(msg) {
			continue
		}
		out = append(out, msg)
	}
	return out
}
