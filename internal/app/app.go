package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/channeldrive/channeldrive/internal/config"
	"github.com/channeldrive/channeldrive/internal/db"
	"github.com/channeldrive/channeldrive/internal/repository"
	"github.com/channeldrive/channeldrive/internal/service"
	"github.com/channeldrive/channeldrive/internal/storage"
	"github.com/channeldrive/channeldrive/internal/telegram"
	"github.com/jmoiron/sqlx"
)

type App struct {
	Cfg          *config.Config
	DB           *sqlx.DB
	Users        repository.UserRepository
	Telegram     *telegram.ClientCache
	AuthService  *service.AuthService
	BotService   *service.BotService
	UserService  *service.UserService
	FileService  *service.FileService
	SyncService  *service.SyncService
	ExportsStore storage.Storage // nil when no bucket is configured
}

// Options overrides collaborators, mostly for tests.
type Options struct {
	Telegram telegram.Factory
	Exports  storage.Storage
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	return NewWithOptions(ctx, cfg, Options{})
}

func NewWithOptions(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Run database migrations
	err = db.RunMigrations(ctx, database.DB, cfg.DBDriver)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Repositories
	userRepository := repository.NewUserRepository(database)
	botRepository := repository.NewBotRepository(database)
	fileRepository := repository.NewFileRepository(database)

	// Telegram clients, one per bot token
	clientCache := telegram.NewClientCache(&http.Client{Timeout: cfg.TelegramHTTPTimeout}, cfg.TelegramAPIURL)
	var clients telegram.Factory = clientCache
	if opts.Telegram != nil {
		clients = opts.Telegram
	}

	// Export storage (optional)
	exports := opts.Exports
	if exports == nil && cfg.S3Enabled() {
		s3Storage, err := storage.New(ctx, cfg)
		if err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		exports = s3Storage
	}

	// Services
	botService := service.NewBotService(botRepository, userRepository, clients)
	fileService := service.NewFileService(fileRepository, botService)
	authService := service.NewAuthService(userRepository, botService, service.AuthOptions{
		JWTSecret:     cfg.JWTSecret,
		JWTExpiry:     cfg.JWTExpiry,
		IsProduction:  cfg.IsProduction(),
		LoginBotToken: cfg.TelegramLoginBotToken,
		LoginMaxAge:   cfg.TelegramLoginMaxAge,
	})
	userService := service.NewUserService(userRepository, fileRepository, botService, exports, cfg.AppName)
	syncService := service.NewSyncService(
		userRepository,
		botService,
		clients,
		fileService,
		service.Pacing(cfg.SyncPacing),
		service.SyncOptions{
			DefaultLimit: cfg.SyncDefaultLimit,
			MaxLimit:     cfg.SyncMaxLimit,
			PollTimeout:  cfg.SyncPollTimeout,
		},
	)

	return &App{
		Cfg:          cfg,
		DB:           database,
		Users:        userRepository,
		Telegram:     clientCache,
		AuthService:  authService,
		BotService:   botService,
		UserService:  userService,
		FileService:  fileService,
		SyncService:  syncService,
		ExportsStore: exports,
	}, nil
}

func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
