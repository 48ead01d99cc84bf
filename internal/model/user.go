package model

import (
	"time"
)

type User struct {
	ID                   string     `db:"id" json:"id"`
	TelegramID           TelegramID `db:"telegram_id" json:"telegram_id"`
	FirstName            string     `db:"first_name" json:"first_name"`
	LastName             string     `db:"last_name" json:"last_name"`
	Username             string     `db:"username" json:"username"`
	PhotoURL             string     `db:"photo_url" json:"photo_url"`
	AssignedBotID        *string    `db:"assigned_bot_id" json:"-"`
	AssignedBotUsername  *string    `db:"assigned_bot_username" json:"assigned_bot_username"`
	ChannelID            *string    `db:"channel_id" json:"private_channel_id"`
	ChannelTitle         *string    `db:"channel_title" json:"channel_title"`
	ChannelSetupComplete bool       `db:"channel_setup_complete" json:"channel_setup_complete"`
	StorageUsed          int64      `db:"storage_used" json:"storage_used"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt            *time.Time `db:"deleted_at" json:"-"`
}

// HasChannel reports whether the user registered a private storage channel.
func (u *User) HasChannel() bool {
	return u.ChannelID != nil && *u.ChannelID != ""
}

func (u *User) HasAssignedBot() bool {
	return u.AssignedBotID != nil && *u.AssignedBotID != ""
}

// DisplayName is the name shown in upload captions.
func (u *User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Username != "" {
		return u.Username
	}
	return "User"
}
