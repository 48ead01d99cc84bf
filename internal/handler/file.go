package handler

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/channeldrive/channeldrive/internal/ctxkeys"
	"github.com/channeldrive/channeldrive/internal/model"
	"github.com/channeldrive/channeldrive/internal/service"
	"github.com/channeldrive/channeldrive/internal/validation"
)

type FileHandler struct {
	fileService   *service.FileService
	uploadMaxSize int64
}

func NewFileHandler(fileService *service.FileService, uploadMaxSize int64) *FileHandler {
	return &FileHandler{
		fileService:   fileService,
		uploadMaxSize: uploadMaxSize,
	}
}

// fileView is the listing shape the drive frontend renders.
type fileView struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Size           int64     `json:"size"`
	Type           string    `json:"type"`
	UploadedAt     time.Time `json:"uploadedAt"`
	TelegramFileID string    `json:"telegram_file_id"`
	ThumbnailURL   *string   `json:"thumbnailUrl"`
	PreviewURL     string    `json:"previewUrl"`
	TelegramLink   *string   `json:"telegram_link"`
}

func newFileView(f *model.File) fileView {
	escaped := url.PathEscape(f.TelegramFileID)
	v := fileView{
		ID:             f.ID,
		Name:           f.OriginalName,
		Size:           f.Size,
		Type:           f.MimeType,
		UploadedAt:     f.CreatedAt,
		TelegramFileID: f.TelegramFileID,
		PreviewURL:     "/api/telegram-file/" + escaped,
		TelegramLink:   f.TelegramLink,
	}
	if v.Type == "" {
		v.Type = "application/octet-stream"
	}
	if f.IsImage() || (f.ThumbnailFileID != nil && *f.ThumbnailFileID != "") {
		thumb := "/api/thumbnail/" + escaped
		v.ThumbnailURL = &thumb
	}
	return v
}

func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	files, err := h.fileService.List(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, r, err, "Failed to load files")
		return
	}

	views := make([]fileView, 0, len(files))
	for _, f := range files {
		views = append(views, newFileView(f))
	}
	writeJSON(w, http.StatusOK, views)
}

// Upload forwards a multipart "file" part to the user's channel.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	if !user.HasChannel() {
		writeServiceError(w, r, service.ErrUserChannelNotConfigured, "Upload failed")
		return
	}

	// Whole request cap, leaves room for the multipart envelope
	r.Body = http.MaxBytesReader(w, r.Body, h.uploadMaxSize+1<<20)
	err := r.ParseMultipartForm(32 << 20)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeServiceError(w, r, validation.ErrFileTooLarge, "Upload failed")
			return
		}
		writeError(w, http.StatusBadRequest, "Failed to parse form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeServiceError(w, r, validation.ErrNoFile, "Upload failed")
		return
	}
	defer func() {
		closeErr := file.Close()
		if closeErr != nil {
			slog.Error("failed to close file", "error", closeErr)
		}
	}()

	err = validation.ValidateUpload(header, h.uploadMaxSize)
	if err != nil {
		writeServiceError(w, r, err, "Upload failed")
		return
	}

	contentType, err := validation.DetectContentType(header)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read file")
		return
	}

	stored, err := h.fileService.Upload(r.Context(), user, header.Filename, contentType, header.Size, file)
	if err != nil {
		writeServiceError(w, r, err, "Upload failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"file":    newFileView(stored),
	})
}

func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	err := h.fileService.Delete(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "Failed to delete file")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Download streams the whole file as an attachment.
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	file, err := h.fileService.Owned(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "Download failed")
		return
	}

	h.relay(w, r, user, file, "", "attachment")
}

// TelegramFile redirects to the Bot API download URL.
func (h *FileHandler) TelegramFile(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	file, err := h.fileService.OwnedByTelegramID(r.Context(), user.ID, r.PathValue("telegramFileId"))
	if err != nil {
		writeServiceError(w, r, err, "Failed to get file")
		return
	}

	fileURL, err := h.fileService.DirectURL(r.Context(), user, file)
	if err != nil {
		writeServiceError(w, r, err, "Failed to get file")
		return
	}

	http.Redirect(w, r, fileURL, http.StatusFound)
}

// Stream proxies the file bytes, honoring Range so players can seek.
func (h *FileHandler) Stream(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	file, err := h.fileService.OwnedByTelegramID(r.Context(), user.ID, r.PathValue("telegramFileId"))
	if err != nil {
		writeServiceError(w, r, err, "Stream failed")
		return
	}

	h.relay(w, r, user, file, r.Header.Get("Range"), "inline")
}

func (h *FileHandler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	file, err := h.fileService.OwnedByTelegramID(r.Context(), user.ID, r.PathValue("telegramFileId"))
	if err != nil {
		writeServiceError(w, r, err, "Failed to get thumbnail")
		return
	}

	thumbURL, err := h.fileService.ThumbnailURL(r.Context(), user, file)
	if err != nil {
		writeServiceError(w, r, err, "Failed to get thumbnail")
		return
	}

	w.Header().Set("Cache-Control", "private, max-age=3600")
	http.Redirect(w, r, thumbURL, http.StatusFound)
}

func (h *FileHandler) relay(w http.ResponseWriter, r *http.Request, user *model.User, file *model.File, rangeHeader, disposition string) {
	stream, err := h.fileService.Open(r.Context(), user, file, rangeHeader)
	if err != nil {
		writeServiceError(w, r, err, "Failed to read file")
		return
	}
	defer func() { _ = stream.Body.Close() }()

	contentType := file.MimeType
	if contentType == "" {
		contentType = stream.ContentType
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	header := w.Header()
	header.Set("Content-Type", contentType)
	header.Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": file.OriginalName}))
	header.Set("Accept-Ranges", "bytes")
	if stream.ContentLength >= 0 {
		header.Set("Content-Length", strconv.FormatInt(stream.ContentLength, 10))
	}
	if stream.ContentRange != "" {
		header.Set("Content-Range", stream.ContentRange)
	}
	w.WriteHeader(stream.StatusCode)

	_, err = io.Copy(w, stream.Body)
	if err != nil {
		slog.Warn("file relay interrupted", "error", err, "file_id", file.ID)
	}
}
