package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/channeldrive/channeldrive/internal/media"
	"github.com/channeldrive/channeldrive/internal/model"
	"github.com/channeldrive/channeldrive/internal/repository"
	"github.com/channeldrive/channeldrive/internal/service"
	"github.com/channeldrive/channeldrive/internal/validation"
)

var errForbidden = errors.New("forbidden")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

// errorStatus maps a service error onto its status code and public message.
// fallback is used for errors callers cannot act on.
func errorStatus(err error, fallback string) (int, string) {
	switch {
	case errors.Is(err, service.ErrUserChannelNotConfigured):
		return http.StatusBadRequest, "Please set up your private channel first"
	case errors.Is(err, repository.ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, repository.ErrFileNotFound):
		return http.StatusNotFound, "File not found"
	case errors.Is(err, service.ErrNoThumbnail):
		return http.StatusNotFound, "Thumbnail not available"
	case errors.Is(err, errForbidden):
		return http.StatusForbidden, "Access denied"
	case errors.Is(err, service.ErrFileTooBig):
		return http.StatusRequestEntityTooLarge, "File is too big to be downloaded through the bot (20MB limit)"
	case errors.Is(err, validation.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, err.Error()
	case errors.Is(err, service.ErrNoActiveBots):
		return http.StatusInternalServerError, "No active bots available"
	case errors.Is(err, service.ErrBotCredentialNotFound):
		return http.StatusInternalServerError, "Assigned bot is not configured"
	case errors.Is(err, service.ErrTransientFetch):
		return http.StatusBadGateway, "Failed to fetch channel messages"
	case errors.Is(err, service.ErrInvalidLogin), errors.Is(err, service.ErrLoginExpired):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, service.ErrInvalidChannelID),
		errors.Is(err, model.ErrInvalidTelegramID),
		errors.Is(err, validation.ErrInvalidName),
		errors.Is(err, validation.ErrEmptyFile),
		errors.Is(err, validation.ErrNoFile),
		errors.Is(err, media.ErrMessageParse):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, fallback
	}
}

// writeServiceError reports err with its mapped status. Server-side failures
// are logged, client errors are not.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status, msg := errorStatus(err, fallback)
	if status >= http.StatusInternalServerError {
		slog.Error(fallback, "error", err, "path", r.URL.Path)
	}

	body := map[string]any{"error": msg}
	if errors.Is(err, service.ErrUserChannelNotConfigured) {
		body["setup_required"] = true
	}
	writeJSON(w, status, body)
}

func decodeJSON(r *http.Request, v any) error {
	defer func() { _ = r.Body.Close() }()
	return json.NewDecoder(r.Body).Decode(v)
}
