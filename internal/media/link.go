package media

import (
	"fmt"
	"strings"
)

// TelegramLink builds the public t.me link for a channel message. Supergroup
// and channel ids carry a -100 prefix that t.me/c links omit. It returns ""
// when either part is missing.
func TelegramLink(channelID string, messageID int64) string {
	if channelID == "" || messageID == 0 {
		return ""
	}
	return fmt.Sprintf("https://t.me/c/%s/%d", strings.TrimPrefix(channelID, "-100"), messageID)
}
