package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Application
	AppName string
	AppEnv  string
	AppURL  string
	Port    string

	// Database (optional driver switch via ENV, default: sqlite)
	DBDriver     string
	DBConnection string

	// Security
	JWTSecret string
	JWTExpiry time.Duration

	// Telegram
	TelegramAPIURL        string
	TelegramHTTPTimeout   time.Duration
	TelegramLoginBotToken string        // Verifies login widget payloads when set
	TelegramLoginMaxAge   time.Duration // Rejects login payloads older than this

	// HTTP
	CORSAllowedOrigins []string
	RateLimitMax       int
	RateLimitWindow    time.Duration
	UploadMaxSize      int64

	// Channel sync
	SyncDefaultLimit int
	SyncMaxLimit     int
	SyncPollTimeout  time.Duration
	SyncPacing       time.Duration
	SyncAutoEnabled  bool
	SyncAutoInterval time.Duration

	// Observability (optional)
	SentryDSN string

	// Export archive storage (S3-compatible, optional)
	S3Region        string
	S3Bucket        string
	S3AccessKey     string
	S3SecretKey     string
	S3Endpoint      string
	S3PresignExpiry time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	appURL := envRequired("APP_URL") // Required: frontend origin

	cfg := &Config{
		// Application
		AppName: envString("APP_NAME", "Channel Drive"),
		AppEnv:  envRequired("APP_ENV"), // Required: 'development' or 'production'
		AppURL:  appURL,
		Port:    envString("PORT", "5001"),

		// Database
		DBDriver:     envString("DB_DRIVER", "sqlite"),
		DBConnection: envString("DB_CONNECTION", "./data/drive.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"),

		// Security
		JWTSecret: envRequired("JWT_SECRET"),
		JWTExpiry: envDuration("JWT_EXPIRY", 168*time.Hour), // 7 days

		// Telegram
		TelegramAPIURL:        envString("TELEGRAM_API_URL", "https://api.telegram.org"),
		TelegramHTTPTimeout:   envDuration("TELEGRAM_HTTP_TIMEOUT", 60*time.Second),
		TelegramLoginBotToken: envString("TELEGRAM_LOGIN_BOT_TOKEN", ""),
		TelegramLoginMaxAge:   envDuration("TELEGRAM_LOGIN_MAX_AGE", 24*time.Hour),

		// HTTP
		CORSAllowedOrigins: envList("CORS_ALLOWED_ORIGINS", []string{appURL}),
		RateLimitMax:       envInt("RATE_LIMIT_MAX", 200),
		RateLimitWindow:    envDuration("RATE_LIMIT_WINDOW", 15*time.Minute),
		UploadMaxSize:      envInt64("UPLOAD_MAX_SIZE", 50<<20), // 50MB

		// Channel sync
		SyncDefaultLimit: envInt("SYNC_DEFAULT_LIMIT", 50),
		SyncMaxLimit:     envInt("SYNC_MAX_LIMIT", 100),
		SyncPollTimeout:  envDuration("SYNC_POLL_TIMEOUT", 3*time.Second),
		SyncPacing:       envDuration("SYNC_PACING", 200*time.Millisecond),
		SyncAutoEnabled:  envBool("SYNC_AUTO_ENABLED", false),
		SyncAutoInterval: envDuration("SYNC_AUTO_INTERVAL", 5*time.Minute),

		// Observability
		SentryDSN: envString("SENTRY_DSN", ""),

		// Storage (optional: exports are streamed directly when no bucket is set)
		S3Region:        envString("S3_REGION", "us-east-1"),
		S3Bucket:        envString("S3_BUCKET", ""),
		S3AccessKey:     envString("S3_ACCESS_KEY", ""),
		S3SecretKey:     envString("S3_SECRET_KEY", ""),
		S3Endpoint:      envString("S3_ENDPOINT", ""),
		S3PresignExpiry: envDuration("S3_PRESIGN_EXPIRY", 1*time.Hour),
	}

	// Production: validate required services
	if cfg.IsProduction() {
		validateProduction(cfg)
	}

	return cfg
}

// validateProduction ensures login payloads are verified in production deployments.
// Development accepts unsigned widget payloads for easier local testing.
func validateProduction(cfg *Config) {
	if cfg.TelegramLoginBotToken == "" {
		slog.Error("production deployment requires TELEGRAM_LOGIN_BOT_TOKEN",
			"hint", "set APP_ENV=development to accept unsigned login payloads locally")
		os.Exit(1)
	}
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("config invalid bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("config invalid int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return i
}

func envInt64(key string, def int64) int64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		slog.Warn("config invalid int64, using default", "key", key, "value", v, "default", def)
		return def
	}
	return i
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func envList(key string, def []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func envRequired(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	slog.Error("config required env var missing", "key", key)
	os.Exit(1)
	return ""
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// S3Enabled reports whether an export bucket is configured.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != ""
}

// Sanitized returns a copy of the config with only public/safe fields.
// Tokens, secrets and connection strings are excluded.
func (c *Config) Sanitized() *Config {
	return &Config{
		AppName: c.AppName,
		AppEnv:  c.AppEnv,
		AppURL:  c.AppURL,
		Port:    c.Port,

		DBDriver: c.DBDriver,

		TelegramAPIURL: c.TelegramAPIURL,

		CORSAllowedOrigins: c.CORSAllowedOrigins,
		RateLimitMax:       c.RateLimitMax,
		RateLimitWindow:    c.RateLimitWindow,
		UploadMaxSize:      c.UploadMaxSize,

		SyncDefaultLimit: c.SyncDefaultLimit,
		SyncMaxLimit:     c.SyncMaxLimit,
		SyncPollTimeout:  c.SyncPollTimeout,
		SyncPacing:       c.SyncPacing,
		SyncAutoEnabled:  c.SyncAutoEnabled,
		SyncAutoInterval: c.SyncAutoInterval,

		S3Bucket:   c.S3Bucket,
		S3Endpoint: c.S3Endpoint,
	}
}
