package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/channeldrive/channeldrive/internal/ctxkeys"
	"github.com/channeldrive/channeldrive/internal/service"
)

type SyncHandler struct {
	syncService *service.SyncService
}

func NewSyncHandler(syncService *service.SyncService) *SyncHandler {
	return &SyncHandler{
		syncService: syncService,
	}
}

type syncRequest struct {
	Limit int `json:"limit"`
}

// Sync reconciles the caller's channel with their file records.
func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	telegramID, err := ownTelegramID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req syncRequest
	err = readOptionalJSON(r, &req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "Invalid request body"})
		return
	}

	stats, err := h.syncService.Sync(r.Context(), telegramID, req.Limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Synced %d new files from channel", stats.Synced),
		"stats":   stats,
	})
}

func (h *SyncHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := errorStatus(err, "Failed to sync channel")
	if status >= http.StatusInternalServerError {
		slog.Error("channel sync failed", "error", err, "user_id", ctxkeys.User(r.Context()).ID)
	}

	body := map[string]any{"success": false, "error": msg}
	if errors.Is(err, service.ErrUserChannelNotConfigured) {
		body["setup_required"] = true
	}
	writeJSON(w, status, body)
}
