package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/channeldrive/channeldrive/internal/media"
	"github.com/channeldrive/channeldrive/internal/model"
	"github.com/channeldrive/channeldrive/internal/repository"
	"github.com/channeldrive/channeldrive/internal/telegram"
	"github.com/channeldrive/channeldrive/internal/validation"
	"github.com/google/uuid"
)

var (
	ErrUserChannelNotConfigured = errors.New("user channel not configured")
	ErrNoThumbnail              = errors.New("file has no thumbnail")
	ErrFileTooBig               = telegram.ErrFileTooBig
)

// FileService records files stored in user channels and relays their bytes.
type FileService struct {
	fileRepo repository.FileRepository
	bots     *BotService
}

func NewFileService(fileRepo repository.FileRepository, bots *BotService) *FileService {
	return &FileService{
		fileRepo: fileRepo,
		bots:     bots,
	}
}

// Ingest stores the file described by d for userID unless its Telegram file id
// is already known. created reports whether a new record was written; only
// then has the user's storage counter grown.
func (s *FileService) Ingest(ctx context.Context, userID string, d *model.FileDescriptor, source string) (*model.File, bool, error) {
	now := time.Now().UTC()

	file := &model.File{
		ID:               uuid.New().String(),
		UserID:           userID,
		OriginalName:     d.Name,
		Size:             d.Size,
		MimeType:         d.MimeType,
		TelegramFileID:   d.FileID,
		TelegramUniqueID: d.UniqueID,
		ThumbnailFileID:  optional(d.ThumbnailFileID),
		ChannelID:        optional(d.ChannelID),
		Caption:          d.Caption,
		FolderPath:       "/",
		Source:           source,
		IsDeleted:        false,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if d.MessageID != 0 {
		messageID := d.MessageID
		file.TelegramMessageID = &messageID
	}
	file.TelegramLink = optional(media.TelegramLink(d.ChannelID, d.MessageID))
	if !d.ReceivedAt.IsZero() {
		receivedAt := d.ReceivedAt.UTC()
		file.MessageDate = &receivedAt
	}

	stored, created, err := s.fileRepo.Ingest(ctx, file)
	if err != nil {
		return nil, false, err
	}
	return stored, created, nil
}

// Upload sends r to the user's channel through their bot and records the
// resulting message.
func (s *FileService) Upload(ctx context.Context, user *model.User, name, mimeType string, size int64, r io.Reader) (*model.File, error) {
	if !user.HasChannel() {
		return nil, ErrUserChannelNotConfigured
	}

	bot, err := s.bots.Resolve(ctx, user)
	if err != nil {
		return nil, err
	}

	name = validation.SanitizeFileName(name)
	caption := uploadCaption(name, user, size, time.Now().UTC())

	msg, err := s.bots.Client(bot).SendDocument(ctx, *user.ChannelID, name, r, caption)
	if err != nil {
		return nil, fmt.Errorf("failed to send document: %w", err)
	}

	d, err := media.ParseMessage(msg)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("%w: sendDocument returned no attachment", media.ErrMessageParse)
	}

	// Telegram may rename or retype the document; keep what the user sent.
	d.Name = name
	if mimeType != "" {
		d.MimeType = mimeType
	}
	if size > 0 {
		d.Size = size
	}
	if d.ChannelID == "" {
		d.ChannelID = *user.ChannelID
	}

	file, created, err := s.Ingest(ctx, user.ID, d, model.FileSourceUpload)
	if err != nil {
		return nil, err
	}

	slog.Info("file uploaded",
		"user_id", user.ID,
		"file_id", file.ID,
		"size", file.Size,
		"created", created,
	)
	return file, nil
}

func uploadCaption(name string, user *model.User, size int64, at time.Time) string {
	return fmt.Sprintf("📁 %s\n👤 %s\n📊 Size: %.2f MB\n⏰ %s",
		name,
		user.DisplayName(),
		float64(size)/(1<<20),
		at.Format("2006-01-02T15:04:05.000Z07:00"),
	)
}

func (s *FileService) List(ctx context.Context, userID string) ([]*model.File, error) {
	return s.fileRepo.UserFiles(ctx, userID)
}

// Delete soft deletes the user's file. Storage usage is not reduced.
func (s *FileService) Delete(ctx context.Context, userID, fileID string) error {
	err := s.fileRepo.SoftDelete(ctx, fileID, userID)
	if err != nil {
		return err
	}
	slog.Info("file deleted", "user_id", userID, "file_id", fileID)
	return nil
}

// Owned returns the user's non-deleted file by record id.
func (s *FileService) Owned(ctx context.Context, userID, fileID string) (*model.File, error) {
	file, err := s.fileRepo.ByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.UserID != userID || file.IsDeleted {
		return nil, repository.ErrFileNotFound
	}
	return file, nil
}

// OwnedByTelegramID returns the user's non-deleted file by Telegram file id.
func (s *FileService) OwnedByTelegramID(ctx context.Context, userID, telegramFileID string) (*model.File, error) {
	file, err := s.fileRepo.ByTelegramFileID(ctx, telegramFileID)
	if err != nil {
		return nil, err
	}
	if file.UserID != userID || file.IsDeleted {
		return nil, repository.ErrFileNotFound
	}
	return file, nil
}

// Open streams the bytes of file from Telegram, forwarding rangeHeader.
func (s *FileService) Open(ctx context.Context, user *model.User, file *model.File, rangeHeader string) (*telegram.FileStream, error) {
	client, info, err := s.resolveFile(ctx, user, file.TelegramFileID)
	if err != nil {
		return nil, err
	}
	return client.OpenFile(ctx, info.FilePath, rangeHeader)
}

// DirectURL is the Bot API download URL of file. Files above the Bot API
// retrieval ceiling yield ErrFileTooBig.
func (s *FileService) DirectURL(ctx context.Context, user *model.User, file *model.File) (string, error) {
	client, info, err := s.resolveFile(ctx, user, file.TelegramFileID)
	if err != nil {
		return "", err
	}
	return client.FileURL(info.FilePath), nil
}

// ThumbnailURL returns a download URL for the file's preview image. Images
// without a separate thumbnail are their own preview.
func (s *FileService) ThumbnailURL(ctx context.Context, user *model.User, file *model.File) (string, error) {
	fileID := ""
	switch {
	case file.ThumbnailFileID != nil && *file.ThumbnailFileID != "":
		fileID = *file.ThumbnailFileID
	case file.IsImage():
		fileID = file.TelegramFileID
	default:
		return "", ErrNoThumbnail
	}

	client, info, err := s.resolveFile(ctx, user, fileID)
	if err != nil {
		return "", err
	}
	return client.FileURL(info.FilePath), nil
}

func (s *FileService) resolveFile(ctx context.Context, user *model.User, telegramFileID string) (telegram.API, *telegram.File, error) {
	bot, err := s.bots.Resolve(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	client := s.bots.Client(bot)
	info, err := client.GetFile(ctx, telegramFileID)
	if err != nil {
		return nil, nil, err
	}
	return client, info, nil
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
