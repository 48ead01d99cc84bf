package media

import (
	"testing"
	"time"

	"github.com/channeldrive/channeldrive/internal/model"
	"github.com/channeldrive/channeldrive/internal/telegram"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func channelMessage(id int64) *telegram.Message {
	return &telegram.Message{
		MessageID: id,
		Date:      1700000000,
		Chat:      &telegram.Chat{ID: -1001234567890, Type: "channel"},
	}
}

func TestParseMessage(t *testing.T) {
	received := time.Unix(1700000000, 0).UTC()

	tests := []struct {
		name  string
		build func(m *telegram.Message)
		want  *model.FileDescriptor
	}{
		{
			name: "document with metadata",
			build: func(m *telegram.Message) {
				m.Caption = "quarterly"
				m.Document = &telegram.Document{
					FileID: "doc1", FileUniqueID: "udoc1", FileName: "report.pdf", MimeType: "application/pdf", FileSize: 2048,
					Thumbnail: &telegram.PhotoSize{FileID: "thumb1"},
				}
			},
			want: &model.FileDescriptor{
				FileID: "doc1", UniqueID: "udoc1", ThumbnailFileID: "thumb1", Name: "report.pdf", Size: 2048,
				MimeType: "application/pdf", Caption: "quarterly",
			},
		},
		{
			name:  "document fallbacks",
			build: func(m *telegram.Message) { m.Document = &telegram.Document{FileID: "doc2"} },
			want:  &model.FileDescriptor{FileID: "doc2", Name: "unknown_document", MimeType: "application/octet-stream"},
		},
		{
			name: "photo set picks last size",
			build: func(m *telegram.Message) {
				m.Photo = []telegram.PhotoSize{
					{FileID: "small", FileSize: 10},
					{FileID: "medium", FileSize: 100},
					{FileID: "large", FileUniqueID: "ularge", FileSize: 1000},
				}
			},
			want: &model.FileDescriptor{
				FileID: "large", UniqueID: "ularge", ThumbnailFileID: "small", Name: "photo_42.jpg", Size: 1000, MimeType: "image/jpeg",
			},
		},
		{
			name:  "single photo",
			build: func(m *telegram.Message) { m.Photo = []telegram.PhotoSize{{FileID: "only", FileSize: 5}} },
			want:  &model.FileDescriptor{FileID: "only", Name: "photo_42.jpg", Size: 5, MimeType: "image/jpeg"},
		},
		{
			name:  "video fallbacks",
			build: func(m *telegram.Message) { m.Video = &telegram.Video{FileID: "vid", FileSize: 300} },
			want:  &model.FileDescriptor{FileID: "vid", Name: "video_42.mp4", Size: 300, MimeType: "video/mp4"},
		},
		{
			name: "video with name",
			build: func(m *telegram.Message) {
				m.Video = &telegram.Video{FileID: "vid", FileName: "clip.mov", MimeType: "video/quicktime"}
			},
			want: &model.FileDescriptor{FileID: "vid", Name: "clip.mov", MimeType: "video/quicktime"},
		},
		{
			name:  "audio titled",
			build: func(m *telegram.Message) { m.Audio = &telegram.Audio{FileID: "aud", Title: "Song"} },
			want:  &model.FileDescriptor{FileID: "aud", Name: "Song.mp3", MimeType: "audio/mpeg"},
		},
		{
			name:  "audio untitled",
			build: func(m *telegram.Message) { m.Audio = &telegram.Audio{FileID: "aud"} },
			want:  &model.FileDescriptor{FileID: "aud", Name: "audio_42.mp3", MimeType: "audio/mpeg"},
		},
		{
			name: "audio file name wins over title",
			build: func(m *telegram.Message) {
				m.Audio = &telegram.Audio{FileID: "aud", FileName: "track.flac", Title: "Song", MimeType: "audio/flac"}
			},
			want: &model.FileDescriptor{FileID: "aud", Name: "track.flac", MimeType: "audio/flac"},
		},
		{
			name: "voice",
			build: func(m *telegram.Message) {
				m.Voice = &telegram.Voice{FileID: "voc", MimeType: "audio/opus", FileSize: 7}
			},
			want: &model.FileDescriptor{FileID: "voc", Name: "voice_42.ogg", Size: 7, MimeType: "audio/ogg"},
		},
		{
			name:  "video note",
			build: func(m *telegram.Message) { m.VideoNote = &telegram.VideoNote{FileID: "vn"} },
			want:  &model.FileDescriptor{FileID: "vn", Name: "video_note_42.mp4", MimeType: "video/mp4"},
		},
		{
			name:  "animated sticker",
			build: func(m *telegram.Message) { m.Sticker = &telegram.Sticker{FileID: "stk", IsAnimated: true} },
			want:  &model.FileDescriptor{FileID: "stk", Name: "sticker_42.tgs", MimeType: "application/x-tgsticker"},
		},
		{
			name:  "static sticker",
			build: func(m *telegram.Message) { m.Sticker = &telegram.Sticker{FileID: "stk"} },
			want:  &model.FileDescriptor{FileID: "stk", Name: "sticker_42.webp", MimeType: "image/webp"},
		},
		{
			name:  "animation fallbacks",
			build: func(m *telegram.Message) { m.Animation = &telegram.Animation{FileID: "gif"} },
			want:  &model.FileDescriptor{FileID: "gif", Name: "animation_42.gif", MimeType: "image/gif"},
		},
		{
			name: "document wins over photo",
			build: func(m *telegram.Message) {
				m.Document = &telegram.Document{FileID: "doc"}
				m.Photo = []telegram.PhotoSize{{FileID: "p"}}
			},
			want: &model.FileDescriptor{FileID: "doc", Name: "unknown_document", MimeType: "application/octet-stream"},
		},
		{
			name:  "text only",
			build: func(m *telegram.Message) { m.Text = "hello" },
			want:  nil,
		},
		{
			name:  "empty photo set",
			build: func(m *telegram.Message) { m.Photo = []telegram.PhotoSize{} },
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := channelMessage(42)
			tt.build(msg)

			got, err := ParseMessage(msg)
			require.NoError(t, err)

			if tt.want != nil {
				tt.want.MessageID = 42
				tt.want.ChannelID = "-1001234567890"
				tt.want.ReceivedAt = received
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseMessage() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseMessage_Errors(t *testing.T) {
	msg := channelMessage(9)
	msg.Document = &telegram.Document{FileName: "broken.bin"}

	got, err := ParseMessage(msg)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrMessageParse)

	msg = channelMessage(10)
	msg.Video = &telegram.Video{FileID: "v", FileSize: -1}
	_, err = ParseMessage(msg)
	assert.ErrorIs(t, err, ErrMessageParse)
}

func TestParseMessage_Nil(t *testing.T) {
	got, err := ParseMessage(nil)
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.False(t, HasAttachment(nil))
}

func TestParseMessage_NoChat(t *testing.T) {
	msg := &telegram.Message{MessageID: 3, Voice: &telegram.Voice{FileID: "v"}}

	got, err := ParseMessage(msg)
	require.NoError(t, err)
	assert.Empty(t, got.ChannelID)
	assert.True(t, got.ReceivedAt.IsZero())
}
