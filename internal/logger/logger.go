package logger

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	slogmulti "github.com/samber/slog-multi"
	slogsentry "github.com/samber/slog-sentry/v2"
)

// Log is the global logger instance
var Log *slog.Logger

// Options controls how Init builds the global logger.
type Options struct {
	Development bool
	AppName     string
	Environment string
	SentryDSN   string
	Output      io.Writer // defaults to os.Stdout
}

// Init initializes the global logger.
// Development: text format with debug level.
// Production: JSON format with info level.
// Errors are additionally sent to Sentry when a DSN is configured.
// The returned func flushes buffered Sentry events and must be called on shutdown.
func Init(opts Options) func() {
	Log = New(opts)
	slog.SetDefault(Log)

	if opts.SentryDSN == "" {
		return func() {}
	}
	return func() {
		sentry.Flush(2 * time.Second)
	}
}

// New builds a logger without touching the process-wide default.
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	var handlers []slog.Handler
	if opts.Development {
		handlers = append(handlers, slog.NewTextHandler(out, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	} else {
		handlers = append(handlers, slog.NewJSONHandler(out, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	// Optional Sentry handler (sends errors only)
	if opts.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              opts.SentryDSN,
			Environment:      opts.Environment,
			TracesSampleRate: 1.0,
		})
		if err == nil {
			handlers = append(handlers, slogsentry.Option{
				Level: slog.LevelError,
			}.NewSentryHandler())
		} else {
			slog.New(handlers[0]).Warn("sentry disabled", "error", err)
		}
	}

	var handler slog.Handler
	if len(handlers) > 1 {
		handler = slogmulti.Fanout(handlers...)
	} else {
		handler = handlers[0]
	}

	l := slog.New(handler)
	if opts.AppName != "" {
		l = l.With("app", opts.AppName)
	}
	return l
}
