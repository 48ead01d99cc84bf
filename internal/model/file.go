package model

import (
	"strings"
	"time"
)

const (
	FileSourceUpload = "upload"
	FileSourceSync   = "sync"
)

type File struct {
	ID                string     `db:"id" json:"id"`
	UserID            string     `db:"user_id" json:"user_id"`
	OriginalName      string     `db:"original_name" json:"original_name"`
	Size              int64      `db:"size" json:"size"`
	MimeType          string     `db:"mime_type" json:"mime_type"`
	TelegramFileID    string     `db:"telegram_file_id" json:"telegram_file_id"` // Dedup key, unique across all users
	TelegramUniqueID  string     `db:"telegram_unique_id" json:"telegram_unique_id"`
	ThumbnailFileID   *string    `db:"thumbnail_file_id" json:"thumbnail_file_id"`
	ChannelID         *string    `db:"channel_id" json:"channel_id"`
	TelegramMessageID *int64     `db:"telegram_message_id" json:"telegram_message_id"`
	TelegramLink      *string    `db:"telegram_link" json:"telegram_link"`
	Caption           string     `db:"caption" json:"caption"`
	FolderPath        string     `db:"folder_path" json:"folder_path"`
	Source            string     `db:"source" json:"source"` // "upload" or "sync"
	IsDeleted         bool       `db:"is_deleted" json:"is_deleted"`
	MessageDate       *time.Time `db:"message_date" json:"message_date"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

func (f *File) IsImage() bool {
	return strings.HasPrefix(f.MimeType, "image/")
}

// FileDescriptor is the normalized view of one attachment carried by a channel message.
type FileDescriptor struct {
	FileID          string
	UniqueID        string
	ThumbnailFileID string
	Name            string
	Size            int64
	MimeType        string
	MessageID       int64
	ChannelID       string
	Caption         string
	ReceivedAt      time.Time
}
