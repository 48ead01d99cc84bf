// Package telegram is a minimal Bot API client covering the methods the
// drive needs: polling updates, resolving and downloading files, uploading
// documents and looking up bots and chats.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrFileTooBig is returned by GetFile when Telegram refuses to serve the file
// through the Bot API download endpoint (files above 20MB).
var ErrFileTooBig = errors.New("file is too big to download via bot api")

// API is the set of Bot API calls used by the services.
type API interface {
	GetMe(ctx context.Context) (*User, error)
	GetChat(ctx context.Context, chatID string) (*Chat, error)
	GetUpdates(ctx context.Context, req UpdatesRequest) ([]Update, error)
	GetFile(ctx context.Context, fileID string) (*File, error)
	FileURL(filePath string) string
	OpenFile(ctx context.Context, filePath, rangeHeader string) (*FileStream, error)
	SendDocument(ctx context.Context, chatID, filename string, r io.Reader, caption string) (*Message, error)
}

// APIError is a non-OK Bot API response.
type APIError struct {
	StatusCode  int
	ErrorCode   int
	Description string
	Body        string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.Description != "" {
		return fmt.Sprintf("telegram api error %d: %s", e.ErrorCode, e.Description)
	}
	if e.Body != "" {
		return fmt.Sprintf("telegram http %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("telegram http %d", e.StatusCode)
}

type Client struct {
	http    *http.Client
	baseURL string
	token   string
}

func NewClient(httpClient *http.Client, baseURL, token string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}
}

func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var out response[User]
	if err := c.get(ctx, "getMe", nil, &out); err != nil {
		return nil, err
	}
	return &out.Result, nil
}

func (c *Client) GetChat(ctx context.Context, chatID string) (*Chat, error) {
	params := url.Values{"chat_id": {chatID}}

	var out response[Chat]
	if err := c.get(ctx, "getChat", params, &out); err != nil {
		return nil, err
	}
	return &out.Result, nil
}

// GetUpdates performs a single long-poll. The request context is extended by
// a few seconds beyond the poll timeout so the server can answer in time.
func (c *Client) GetUpdates(ctx context.Context, req UpdatesRequest) ([]Update, error) {
	params := url.Values{}
	params.Set("timeout", strconv.Itoa(int(req.Timeout/time.Second)))
	if req.Limit > 0 {
		params.Set("limit", strconv.Itoa(req.Limit))
	}
	if len(req.AllowedUpdates) > 0 {
		allowed, err := json.Marshal(req.AllowedUpdates)
		if err != nil {
			return nil, err
		}
		params.Set("allowed_updates", string(allowed))
	}

	ctx, cancel := context.WithTimeout(ctx, req.Timeout+5*time.Second)
	defer cancel()

	var out response[[]Update]
	if err := c.get(ctx, "getUpdates", params, &out); err != nil {
		return nil, err
	}
	return out.Result, nil
}

// GetFile resolves a file_id to a downloadable file path.
func (c *Client) GetFile(ctx context.Context, fileID string) (*File, error) {
	params := url.Values{"file_id": {fileID}}

	var out response[File]
	err := c.get(ctx, "getFile", params, &out)
	var apiErr *APIError
	if errors.As(err, &apiErr) && strings.Contains(strings.ToLower(apiErr.Description), "file is too big") {
		return nil, ErrFileTooBig
	}
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.Result.FilePath) == "" {
		return nil, ErrFileTooBig
	}
	return &out.Result, nil
}

// FileURL is the direct download URL for a path returned by GetFile. It embeds
// the bot token and must not be shown to other bots' users.
func (c *Client) FileURL(filePath string) string {
	return fmt.Sprintf("%s/file/bot%s/%s", c.baseURL, c.token, strings.TrimLeft(filePath, "/"))
}

// FileStream is an open download. The caller closes Body.
type FileStream struct {
	Body          io.ReadCloser
	StatusCode    int
	ContentType   string
	ContentLength int64
	ContentRange  string
	AcceptRanges  string
}

// OpenFile starts downloading filePath, forwarding rangeHeader when set.
func (c *Client) OpenFile(ctx context.Context, filePath, rangeHeader string) (*FileStream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.FileURL(filePath), nil)
	if err != nil {
		return nil, err
	}
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	return &FileStream{
		Body:          resp.Body,
		StatusCode:    resp.StatusCode,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
		ContentRange:  resp.Header.Get("Content-Range"),
		AcceptRanges:  resp.Header.Get("Accept-Ranges"),
	}, nil
}

// SendDocument uploads r as a document to chatID. The multipart body is
// streamed through a pipe so large uploads are never buffered in memory.
func (c *Client) SendDocument(ctx context.Context, chatID, filename string, r io.Reader, caption string) (*Message, error) {
	if strings.TrimSpace(filename) == "" {
		filename = "file"
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := writeDocumentForm(mw, chatID, filename, r, caption)
		if err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		_ = pw.Close()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("sendDocument"), pr)
	if err != nil {
		_ = pr.CloseWithError(err)
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out response[Message]
	if err := c.do(req, &out); err != nil {
		_ = pr.CloseWithError(err)
		return nil, err
	}
	return &out.Result, nil
}

func writeDocumentForm(mw *multipart.Writer, chatID, filename string, r io.Reader, caption string) error {
	if err := mw.WriteField("chat_id", chatID); err != nil {
		return err
	}
	if caption != "" {
		if err := mw.WriteField("caption", caption); err != nil {
			return err
		}
	}
	part, err := mw.CreateFormFile("document", filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return err
	}
	return mw.Close()
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
}

func (c *Client) get(ctx context.Context, method string, params url.Values, out any) error {
	u := c.methodURL(method)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

type okEnvelope struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var env okEnvelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
		if decodeErr == nil {
			apiErr.ErrorCode = env.ErrorCode
			apiErr.Description = env.Description
		}
		return apiErr
	}
	if decodeErr != nil {
		return fmt.Errorf("decode telegram response: %w", decodeErr)
	}
	if !env.OK {
		return &APIError{StatusCode: resp.StatusCode, ErrorCode: env.ErrorCode, Description: env.Description}
	}
	return json.Unmarshal(raw, out)
}
