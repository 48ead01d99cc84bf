// Package media maps Telegram channel messages to file descriptors.
package media

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/channeldrive/channeldrive/internal/model"
	"github.com/channeldrive/channeldrive/internal/telegram"
)

// ErrMessageParse reports an attachment that cannot be turned into a descriptor.
var ErrMessageParse = errors.New("failed to parse message attachment")

const (
	defaultMimeType = "application/octet-stream"
	documentName    = "unknown_document"
)

// HasAttachment reports whether msg carries a media kind the drive stores.
func HasAttachment(msg *telegram.Message) bool {
	if msg == nil {
		return false
	}
	return msg.Document != nil ||
		len(msg.Photo) > 0 ||
		msg.Video != nil ||
		msg.Audio != nil ||
		msg.Voice != nil ||
		msg.VideoNote != nil ||
		msg.Sticker != nil ||
		msg.Animation != nil
}

// ParseMessage returns the descriptor for the attachment of msg, or nil when
// the message carries none. Kinds are checked in a fixed order so a message
// with several attachments always maps to the same file.
func ParseMessage(msg *telegram.Message) (*model.FileDescriptor, error) {
	if !HasAttachment(msg) {
		return nil, nil
	}

	d := &model.FileDescriptor{
		MessageID:  msg.MessageID,
		Caption:    msg.Caption,
		ReceivedAt: msg.Time(),
	}
	if msg.Chat != nil {
		d.ChannelID = strconv.FormatInt(msg.Chat.ID, 10)
	}
	id := msg.MessageID

	switch {
	case msg.Document != nil:
		doc := msg.Document
		d.FileID, d.UniqueID, d.Size = doc.FileID, doc.FileUniqueID, doc.FileSize
		d.Name = or(doc.FileName, documentName)
		d.MimeType = or(doc.MimeType, defaultMimeType)
		d.ThumbnailFileID = thumb(doc.Thumbnail)

	case len(msg.Photo) > 0:
		// Sizes are ascending, the last one is the original resolution.
		photo := msg.Photo[len(msg.Photo)-1]
		d.FileID, d.UniqueID, d.Size = photo.FileID, photo.FileUniqueID, photo.FileSize
		d.Name = fmt.Sprintf("photo_%d.jpg", id)
		d.MimeType = "image/jpeg"
		if len(msg.Photo) > 1 {
			d.ThumbnailFileID = msg.Photo[0].FileID
		}

	case msg.Video != nil:
		v := msg.Video
		d.FileID, d.UniqueID, d.Size = v.FileID, v.FileUniqueID, v.FileSize
		d.Name = or(v.FileName, fmt.Sprintf("video_%d.mp4", id))
		d.MimeType = or(v.MimeType, "video/mp4")
		d.ThumbnailFileID = thumb(v.Thumbnail)

	case msg.Audio != nil:
		a := msg.Audio
		d.FileID, d.UniqueID, d.Size = a.FileID, a.FileUniqueID, a.FileSize
		d.Name = a.FileName
		if d.Name == "" {
			if a.Title != "" {
				d.Name = a.Title + ".mp3"
			} else {
				d.Name = fmt.Sprintf("audio_%d.mp3", id)
			}
		}
		d.MimeType = or(a.MimeType, "audio/mpeg")
		d.ThumbnailFileID = thumb(a.Thumbnail)

	case msg.Voice != nil:
		v := msg.Voice
		d.FileID, d.UniqueID, d.Size = v.FileID, v.FileUniqueID, v.FileSize
		d.Name = fmt.Sprintf("voice_%d.ogg", id)
		d.MimeType = "audio/ogg"

	case msg.VideoNote != nil:
		v := msg.VideoNote
		d.FileID, d.UniqueID, d.Size = v.FileID, v.FileUniqueID, v.FileSize
		d.Name = fmt.Sprintf("video_note_%d.mp4", id)
		d.MimeType = "video/mp4"
		d.ThumbnailFileID = thumb(v.Thumbnail)

	case msg.Sticker != nil:
		s := msg.Sticker
		d.FileID, d.UniqueID, d.Size = s.FileID, s.FileUniqueID, s.FileSize
		if s.IsAnimated {
			d.Name = fmt.Sprintf("sticker_%d.tgs", id)
			d.MimeType = "application/x-tgsticker"
		} else {
			d.Name = fmt.Sprintf("sticker_%d.webp", id)
			d.MimeType = "image/webp"
		}
		d.ThumbnailFileID = thumb(s.Thumbnail)

	case msg.Animation != nil:
		a := msg.Animation
		d.FileID, d.UniqueID, d.Size = a.FileID, a.FileUniqueID, a.FileSize
		d.Name = or(a.FileName, fmt.Sprintf("animation_%d.gif", id))
		d.MimeType = or(a.MimeType, "image/gif")
		d.ThumbnailFileID = thumb(a.Thumbnail)
	}

	if d.FileID == "" {
		return nil, fmt.Errorf("%w: message %d has no file_id", ErrMessageParse, id)
	}
	if d.Size < 0 {
		return nil, fmt.Errorf("%w: message %d has negative size %d", ErrMessageParse, id, d.Size)
	}

	return d, nil
}

func or(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func thumb(p *telegram.PhotoSize) string {
	if p == nil {
		return ""
	}
	return p.FileID
}
