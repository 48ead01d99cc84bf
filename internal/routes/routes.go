package routes

import (
	"context"
	"net/http"

	"github.com/channeldrive/channeldrive/internal/app"
	"github.com/channeldrive/channeldrive/internal/handler"
	"github.com/channeldrive/channeldrive/internal/middleware"
)

// SetupRoutes builds the API handler. ctx bounds the rate limiter sweepers.
func SetupRoutes(ctx context.Context, app *app.App) http.Handler {
	// Handlers
	health := handler.NewHealthHandler(app.DB)
	auth := handler.NewAuthHandler(app.AuthService)
	bots := handler.NewBotHandler(app.BotService)
	files := handler.NewFileHandler(app.FileService, app.Cfg.UploadMaxSize)
	users := handler.NewUserHandler(app.UserService, app.AuthService)
	sync := handler.NewSyncHandler(app.SyncService)

	mux := http.NewServeMux()

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /api/test", health.Test)
	mux.HandleFunc("GET /api/bots/usernames", bots.Usernames)

	// Auth (rate limited)
	rateLimiter := middleware.RateLimitAuth(ctx)
	mux.HandleFunc("POST /api/auth/telegram", rateLimiter(auth.TelegramLogin))
	mux.HandleFunc("POST /api/logout", auth.Logout)

	// ============================================================================
	// PROTECTED ROUTES
	// ============================================================================

	// Files
	mux.HandleFunc("GET /api/files", middleware.RequireAuth(files.List))
	mux.HandleFunc("POST /api/upload", middleware.RequireAuth(files.Upload))
	mux.HandleFunc("DELETE /api/files/{id}", middleware.RequireAuth(files.Delete))
	mux.HandleFunc("GET /api/download/{id}", middleware.RequireAuth(files.Download))
	mux.HandleFunc("GET /api/telegram-file/{telegramFileId}", middleware.RequireAuth(files.TelegramFile))
	mux.HandleFunc("GET /api/stream/{telegramFileId}", middleware.RequireAuth(files.Stream))
	mux.HandleFunc("GET /api/thumbnail/{telegramFileId}", middleware.RequireAuth(files.Thumbnail))

	// User
	mux.HandleFunc("GET /api/user/me", middleware.RequireAuth(users.Me))
	mux.HandleFunc("POST /api/user/update-profile", middleware.RequireAuth(users.UpdateProfile))
	mux.HandleFunc("POST /api/user/register-channel", middleware.RequireAuth(users.RegisterChannel))
	mux.HandleFunc("GET /api/storage/info/{telegramId}", middleware.RequireAuth(users.StorageInfo))
	mux.HandleFunc("GET /api/user/export-data", middleware.RequireAuth(users.Export))
	mux.HandleFunc("POST /api/user/delete", middleware.RequireAuth(users.Delete))

	// Channel sync
	mux.HandleFunc("POST /api/user/sync-channel/{telegramId}", middleware.RequireAuth(sync.Sync))
	mux.HandleFunc("POST /sync/{telegramId}", middleware.RequireAuth(sync.Sync))

	// ============================================================================
	// FALLBACK
	// ============================================================================

	mux.HandleFunc("/{path...}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Not found"}` + "\n"))
	})

	// Global middleware - executed in order (top to bottom)
	handler := middleware.Chain(
		mux,
		middleware.Recover,
		middleware.RequestLogging,
		middleware.CORS(app.Cfg.CORSAllowedOrigins), // Before rate limiting so preflights are answered
		middleware.RateLimit(ctx, app.Cfg.RateLimitMax, app.Cfg.RateLimitWindow),
		middleware.Config(app.Cfg),
		middleware.AuthMiddleware(app.AuthService),
	)

	return handler
}
