package testutil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/channeldrive/channeldrive/internal/telegram"
)

// FakeTelegram is an in-memory Bot API keyed by bot token.
type FakeTelegram struct {
	mu   sync.Mutex
	bots map[string]*FakeBot
}

func NewFakeTelegram() *FakeTelegram {
	return &FakeTelegram{bots: make(map[string]*FakeBot)}
}

// Bot returns the fake behind token, creating it on first use.
func (f *FakeTelegram) Bot(token string) *FakeBot {
	f.mu.Lock()
	defer f.mu.Unlock()

	bot, ok := f.bots[token]
	if !ok {
		bot = &FakeBot{
			token:    token,
			Files:    make(map[string]*telegram.File),
			Contents: make(map[string]string),
			Chats:    make(map[string]*telegram.Chat),
		}
		f.bots[token] = bot
	}
	return bot
}

func (f *FakeTelegram) Client(token string) telegram.API {
	return f.Bot(token)
}

// SentDocument is a document captured by SendDocument.
type SentDocument struct {
	ChatID   string
	Filename string
	Caption  string
	Content  string
}

type FakeBot struct {
	token string

	mu         sync.Mutex
	Me         *telegram.User
	Updates    []telegram.Update
	UpdatesErr error
	Files      map[string]*telegram.File // by file_id
	Contents   map[string]string         // by file_path
	Chats      map[string]*telegram.Chat // by chat_id
	Sent       []SentDocument

	UpdatesCalls       int
	LastUpdatesRequest telegram.UpdatesRequest
}

func (b *FakeBot) GetMe(ctx context.Context) (*telegram.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.Me == nil {
		return nil, &telegram.APIError{StatusCode: http.StatusUnauthorized, ErrorCode: 401, Description: "Unauthorized"}
	}
	me := *b.Me
	return &me, nil
}

func (b *FakeBot) GetChat(ctx context.Context, chatID string) (*telegram.Chat, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	chat, ok := b.Chats[chatID]
	if !ok {
		return nil, &telegram.APIError{StatusCode: http.StatusBadRequest, ErrorCode: 400, Description: "Bad Request: chat not found"}
	}
	c := *chat
	return &c, nil
}

func (b *FakeBot) GetUpdates(ctx context.Context, req telegram.UpdatesRequest) ([]telegram.Update, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.UpdatesCalls++
	b.LastUpdatesRequest = req
	if b.UpdatesErr != nil {
		return nil, b.UpdatesErr
	}

	updates := b.Updates
	if req.Limit > 0 && len(updates) > req.Limit {
		updates = updates[:req.Limit]
	}
	return append([]telegram.Update(nil), updates...), nil
}

func (b *FakeBot) GetFile(ctx context.Context, fileID string) (*telegram.File, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	file, ok := b.Files[fileID]
	if !ok {
		return nil, &telegram.APIError{StatusCode: http.StatusBadRequest, ErrorCode: 400, Description: "Bad Request: invalid file_id"}
	}
	if file.FilePath == "" {
		return nil, telegram.ErrFileTooBig
	}
	f := *file
	return &f, nil
}

func (b *FakeBot) FileURL(filePath string) string {
	return "https://files.test/bot" + b.token + "/" + filePath
}

// OpenFile serves Contents, honoring a single "bytes=a-b" range.
func (b *FakeBot) OpenFile(ctx context.Context, filePath, rangeHeader string) (*telegram.FileStream, error) {
	b.mu.Lock()
	content, ok := b.Contents[filePath]
	b.mu.Unlock()
	if !ok {
		return nil, &telegram.APIError{StatusCode: http.StatusNotFound, Body: "not found"}
	}

	stream := &telegram.FileStream{
		StatusCode:    http.StatusOK,
		ContentType:   "application/octet-stream",
		ContentLength: int64(len(content)),
		AcceptRanges:  "bytes",
	}

	var start, end int
	if _, err := fmt.Sscanf(rangeHeader, "bytes=%d-%d", &start, &end); err == nil && start <= end && end < len(content) {
		stream.StatusCode = http.StatusPartialContent
		stream.ContentRange = fmt.Sprintf("bytes %d-%d/%d", start, end, len(content))
		content = content[start : end+1]
		stream.ContentLength = int64(len(content))
	}

	stream.Body = io.NopCloser(strings.NewReader(content))
	return stream, nil
}

// SendDocument records the upload and answers like Telegram with a new
// channel message carrying the document.
func (b *FakeBot) SendDocument(ctx context.Context, chatID, filename string, r io.Reader, caption string) (*telegram.Message, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.Sent = append(b.Sent, SentDocument{ChatID: chatID, Filename: filename, Caption: caption, Content: string(content)})
	n := len(b.Sent)

	id, _ := strconv.ParseInt(chatID, 10, 64)
	fileID := fmt.Sprintf("sent-%s-%d", b.token, n)
	path := fmt.Sprintf("documents/file_%d", n)
	b.Files[fileID] = &telegram.File{FileID: fileID, FileSize: int64(len(content)), FilePath: path}
	b.Contents[path] = string(content)

	return &telegram.Message{
		MessageID: int64(100 + n),
		Chat:      &telegram.Chat{ID: id, Type: "channel"},
		Caption:   caption,
		Document: &telegram.Document{
			FileID:       fileID,
			FileUniqueID: "u" + fileID,
			FileName:     filename,
			MimeType:     "application/octet-stream",
			FileSize:     int64(len(content)),
		},
	}, nil
}

// SetUpdates replaces the feed returned by GetUpdates.
func (b *FakeBot) SetUpdates(updates ...telegram.Update) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Updates = updates
}

// AddFile makes fileID downloadable with the given content.
func (b *FakeBot) AddFile(fileID, filePath, content string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Files[fileID] = &telegram.File{FileID: fileID, FileSize: int64(len(content)), FilePath: filePath}
	if filePath != "" {
		b.Contents[filePath] = content
	}
}

// SentDocuments returns a copy of the captured uploads.
func (b *FakeBot) SentDocuments() []SentDocument {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]SentDocument(nil), b.Sent...)
}

// DocumentPost is a channel_post update carrying a document.
func DocumentPost(chatID, messageID int64, fileID string, size int64) telegram.Update {
	return telegram.Update{
		UpdateID: messageID,
		ChannelPost: &telegram.Message{
			MessageID: messageID,
			Date:      1700000000 + messageID,
			Chat:      &telegram.Chat{ID: chatID, Type: "channel"},
			Document: &telegram.Document{
				FileID:       fileID,
				FileUniqueID: "u" + fileID,
				FileName:     fileID + ".bin",
				FileSize:     size,
			},
		},
	}
}
