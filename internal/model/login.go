package model

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// TelegramLogin is the payload posted by the Telegram login widget.
type TelegramLogin struct {
	ID        TelegramID `json:"id"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Username  string     `json:"username"`
	PhotoURL  string     `json:"photo_url"`
	AuthDate  int64      `json:"auth_date"`
	Hash      string     `json:"hash"`
}

// DataCheckString is the newline-joined, key-sorted list of the signed
// fields, as Telegram builds it for the widget hash. Empty fields are omitted.
func (l *TelegramLogin) DataCheckString() string {
	fields := map[string]string{
		"id":         string(l.ID),
		"first_name": l.FirstName,
		"last_name":  l.LastName,
		"username":   l.Username,
		"photo_url":  l.PhotoURL,
	}
	if l.AuthDate != 0 {
		fields["auth_date"] = strconv.FormatInt(l.AuthDate, 10)
	}

	pairs := make([]string, 0, len(fields))
	for k, v := range fields {
		if v != "" {
			pairs = append(pairs, k+"="+v)
		}
	}
	sort.Strings(pairs)
	return strings.Join(pairs, "\n")
}

func (l *TelegramLogin) AuthTime() time.Time {
	return time.Unix(l.AuthDate, 0).UTC()
}
