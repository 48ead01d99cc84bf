package handler

import (
	"net/http"

	"github.com/channeldrive/channeldrive/internal/service"
)

type BotHandler struct {
	botService *service.BotService
}

func NewBotHandler(botService *service.BotService) *BotHandler {
	return &BotHandler{
		botService: botService,
	}
}

// Usernames lists the handles users add as admins of their channel.
func (h *BotHandler) Usernames(w http.ResponseWriter, r *http.Request) {
	usernames, err := h.botService.ActiveUsernames(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "Failed to load bots")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"usernames": usernames})
}
