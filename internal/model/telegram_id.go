package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidTelegramID = errors.New("invalid telegram id")

// TelegramID is the canonical decimal form of a Telegram user id.
// Every account lookup goes through this type, so ids arriving as JSON numbers,
// JSON strings or path segments resolve to the same stored value.
type TelegramID string

// ParseTelegramID normalizes s into a TelegramID.
func ParseTelegramID(s string) (TelegramID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrInvalidTelegramID
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidTelegramID, s)
	}
	return TelegramID(strconv.FormatInt(n, 10)), nil
}

func (id TelegramID) String() string {
	return string(id)
}

// UnmarshalJSON accepts both 12345 and "12345".
func (id *TelegramID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = s
	}

	parsed, err := ParseTelegramID(raw)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
