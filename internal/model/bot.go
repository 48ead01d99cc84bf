package model

import "time"

// Bot is a Telegram bot credential shared by the users assigned to it.
type Bot struct {
	ID        string    `db:"id" json:"id"`
	Token     string    `db:"token" json:"-"`
	Username  string    `db:"username" json:"username"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
