package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/channeldrive/channeldrive/internal/model"
	"github.com/channeldrive/channeldrive/internal/repository"
	"github.com/channeldrive/channeldrive/internal/storage"
	"github.com/channeldrive/channeldrive/internal/validation"
	"github.com/oklog/ulid/v2"
)

var ErrInvalidChannelID = errors.New("invalid channel id")

type UserService struct {
	userRepo repository.UserRepository
	fileRepo repository.FileRepository
	bots     *BotService
	exports  storage.Storage // nil streams exports directly
	appName  string
}

func NewUserService(
	userRepo repository.UserRepository,
	fileRepo repository.FileRepository,
	bots *BotService,
	exports storage.Storage,
	appName string,
) *UserService {
	return &UserService{
		userRepo: userRepo,
		fileRepo: fileRepo,
		bots:     bots,
		exports:  exports,
		appName:  appName,
	}
}

func (s *UserService) ByID(ctx context.Context, id string) (*model.User, error) {
	return s.userRepo.ByID(ctx, id)
}

func (s *UserService) ByTelegramID(ctx context.Context, telegramID model.TelegramID) (*model.User, error) {
	return s.userRepo.ByTelegramID(ctx, telegramID)
}

// UpdateProfile changes the names shown in the drive. Nil leaves a field as is.
func (s *UserService) UpdateProfile(ctx context.Context, user *model.User, firstName, lastName *string) (*model.User, error) {
	if firstName != nil {
		if err := validation.ValidateName(*firstName); err != nil {
			return nil, err
		}
		user.FirstName = strings.TrimSpace(*firstName)
	}
	if lastName != nil {
		if err := validation.ValidateOptionalName(*lastName); err != nil {
			return nil, err
		}
		user.LastName = strings.TrimSpace(*lastName)
	}

	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}

// NormalizeChannelID turns user input into the chat id Telegram reports in
// updates. Channel ids are negative with a -100 prefix; a bare positive id as
// shown by some clients gets the prefix added.
func NormalizeChannelID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "@") && len(raw) > 1 {
		return raw, nil
	}

	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n == 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidChannelID, raw)
	}
	if n > 0 {
		return "-100" + strconv.FormatInt(n, 10), nil
	}
	return strconv.FormatInt(n, 10), nil
}

// RegisterChannel stores the user's storage channel. The channel title is read
// through the user's bot when it can see the channel; @usernames must resolve.
func (s *UserService) RegisterChannel(ctx context.Context, user *model.User, rawChannelID string) (*model.User, error) {
	channelID, err := NormalizeChannelID(rawChannelID)
	if err != nil {
		return nil, err
	}

	var title *string
	bot, err := s.bots.Resolve(ctx, user)
	if err != nil {
		return nil, err
	}

	chat, err := s.bots.Client(bot).GetChat(ctx, channelID)
	switch {
	case err == nil:
		if chat.Title != "" {
			title = &chat.Title
		}
		if strings.HasPrefix(channelID, "@") {
			channelID = strconv.FormatInt(chat.ID, 10)
		}
	case strings.HasPrefix(channelID, "@"):
		return nil, fmt.Errorf("%w: cannot resolve %s: %w", ErrInvalidChannelID, channelID, err)
	default:
		slog.Warn("channel title lookup failed", "user_id", user.ID, "channel_id", channelID, "error", err)
	}

	if err := s.userRepo.SetChannel(ctx, user.ID, channelID, title); err != nil {
		return nil, fmt.Errorf("failed to register channel: %w", err)
	}

	user.ChannelID = &channelID
	user.ChannelTitle = title
	user.ChannelSetupComplete = true

	slog.Info("channel registered", "user_id", user.ID, "channel_id", channelID)
	return user, nil
}

func (s *UserService) StorageInfo(ctx context.Context, telegramID model.TelegramID) (*model.StorageInfo, error) {
	user, err := s.userRepo.ByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	return model.NewStorageInfo(user), nil
}

// Export is an account export. URL is set when it was stored remotely,
// otherwise Data holds the JSON document.
type Export struct {
	Filename string
	URL      string
	Data     []byte
}

type exportDocument struct {
	App        string        `json:"app"`
	ExportedAt time.Time     `json:"exported_at"`
	User       *model.User   `json:"user"`
	Files      []*model.File `json:"files"`
}

func (s *UserService) Export(ctx context.Context, user *model.User) (*Export, error) {
	files, err := s.fileRepo.UserFiles(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	now := time.Now().UTC()
	data, err := json.MarshalIndent(exportDocument{
		App:        s.appName,
		ExportedAt: now,
		User:       user,
		Files:      files,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}

	export := &Export{Filename: fmt.Sprintf("drive-export-%s.json", now.Format("20060102-150405"))}
	if s.exports == nil {
		export.Data = data
		return export, nil
	}

	key := fmt.Sprintf("exports/%s/%s.json", user.ID, ulid.Make().String())
	if err := s.exports.Save(ctx, key, bytes.NewReader(data), "application/json"); err != nil {
		return nil, err
	}
	export.URL, err = s.exports.PresignedURL(ctx, key)
	if err != nil {
		if delErr := s.exports.Delete(ctx, key); delErr != nil {
			slog.Warn("export cleanup failed", "key", key, "error", delErr)
		}
		return nil, err
	}

	slog.Info("export stored", "user_id", user.ID, "key", key, "files", len(files))
	return export, nil
}

// Delete closes the account and flags its file records deleted. Files stay in
// the channel and a later login reopens the account.
func (s *UserService) Delete(ctx context.Context, user *model.User) error {
	if err := s.userRepo.Delete(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	slog.Info("user deleted", "user_id", user.ID)
	return nil
}
