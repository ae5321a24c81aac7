// Package logger configures this service's structured logging.
// Request-scoped code calls logger.WithCtx(ctx) and logs through the
// returned logger, which carries the request ID.
package logger

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	appCtx "github.com/kestrelauth/authn-engine/internal/pkg/context"
)

// Logger is the process-wide structured logger, configured by Init.
var Logger zerolog.Logger

// Init configures Logger from LOG_LEVEL (default "info") and
// LOG_FORMAT ("console" by default, anything else selects JSON).
func Init() {
	InitWithWriter(os.Stdout)
}

// InitWithWriter is Init with an explicit output writer, for tests and
// for wiring to something other than stdout.
func InitWithWriter(w io.Writer) {
	level, err := zerolog.ParseLevel(envOr("LOG_LEVEL", "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}

	var out io.Writer = w
	if envOr("LOG_FORMAT", "console") == "console" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}

	Logger = zerolog.New(out).Level(level).With().Timestamp().Logger()
	zlog.Logger = Logger
}

// WithCtx returns Logger with the request ID carried by ctx attached,
// if one was set.
func WithCtx(ctx context.Context) *zerolog.Logger {
	if id := appCtx.GetRequestID(ctx); id != "" {
		l := Logger.With().Str("request_id", id).Logger()
		return &l
	}
	return &Logger
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
