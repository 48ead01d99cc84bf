package handler

import (
	"log/slog"
	"net/http"

	"github.com/channeldrive/channeldrive/internal/model"
	"github.com/channeldrive/channeldrive/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// TelegramLogin accepts the login widget payload and starts a session.
func (h *AuthHandler) TelegramLogin(w http.ResponseWriter, r *http.Request) {
	var login model.TelegramLogin
	err := decodeJSON(r, &login)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid login payload")
		return
	}

	user, err := h.authService.Login(r.Context(), &login)
	if err != nil {
		slog.Warn("telegram login failed", "error", err, "telegram_id", login.ID)
		writeServiceError(w, r, err, "Login failed")
		return
	}

	token, err := h.authService.GenerateJWT(user)
	if err != nil {
		slog.Error("failed to generate JWT", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}
	h.authService.SetJWTCookie(w, token, h.authService.Expiry())

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    user,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authService.ClearJWTCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
