package handler

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/channeldrive/channeldrive/internal/ctxkeys"
	"github.com/channeldrive/channeldrive/internal/model"
	"github.com/channeldrive/channeldrive/internal/service"
)

type UserHandler struct {
	userService *service.UserService
	authService *service.AuthService
}

func NewUserHandler(userService *service.UserService, authService *service.AuthService) *UserHandler {
	return &UserHandler{
		userService: userService,
		authService: authService,
	}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ctxkeys.User(r.Context()))
}

type updateProfileRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req updateProfileRequest
	err := decodeJSON(r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.userService.UpdateProfile(r.Context(), user, req.FirstName, req.LastName)
	if err != nil {
		writeServiceError(w, r, err, "Failed to update profile")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": updated})
}

type registerChannelRequest struct {
	ChannelID string `json:"channel_id"`
}

func (h *UserHandler) RegisterChannel(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req registerChannelRequest
	err := decodeJSON(r, &req)
	if err != nil || req.ChannelID == "" {
		writeError(w, http.StatusBadRequest, "channel_id is required")
		return
	}

	updated, err := h.userService.RegisterChannel(r.Context(), user, req.ChannelID)
	if err != nil {
		writeServiceError(w, r, err, "Failed to register channel")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"message":       "Channel registered successfully",
		"channel_id":    updated.ChannelID,
		"channel_title": updated.ChannelTitle,
	})
}

func (h *UserHandler) StorageInfo(w http.ResponseWriter, r *http.Request) {
	telegramID, err := ownTelegramID(r)
	if err != nil {
		writeServiceError(w, r, err, "Failed to get storage info")
		return
	}

	info, err := h.userService.StorageInfo(r.Context(), telegramID)
	if err != nil {
		writeServiceError(w, r, err, "Failed to get storage info")
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// Export returns the account export, redirecting to the stored copy when an
// export bucket is configured.
func (h *UserHandler) Export(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	export, err := h.userService.Export(r.Context(), user)
	if err != nil {
		writeServiceError(w, r, err, "Failed to export data")
		return
	}

	if export.URL != "" {
		http.Redirect(w, r, export.URL, http.StatusFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": export.Filename}))
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(export.Data)
	if err != nil {
		slog.Warn("failed to write export", "error", err, "user_id", user.ID)
	}
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	err := h.userService.Delete(r.Context(), user)
	if err != nil {
		writeServiceError(w, r, err, "Failed to delete account")
		return
	}

	h.authService.ClearJWTCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// ownTelegramID parses the {telegramId} path value and checks it belongs to
// the caller.
func ownTelegramID(r *http.Request) (model.TelegramID, error) {
	telegramID, err := model.ParseTelegramID(r.PathValue("telegramId"))
	if err != nil {
		return "", err
	}
	if ctxkeys.User(r.Context()).TelegramID != telegramID {
		return "", errForbidden
	}
	return telegramID, nil
}

// readOptionalJSON decodes an optional body; an empty body leaves v as is.
func readOptionalJSON(r *http.Request, v any) error {
	err := decodeJSON(r, v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
