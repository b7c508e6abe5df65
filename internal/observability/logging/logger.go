package logging

import (
	"context"
	"log/slog"
	"os"

	"rfp-radar/internal/handler/http/requestid"
)

// envHandlerOptions reads LOG_LEVEL once for both logger variants.
// LOG_LEVEL=debug enables debug output; anything else means info.
func envHandlerOptions() *slog.HandlerOptions {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	return &slog.HandlerOptions{
		Level: logLevel,
		// warn 以上ではソース位置も出す
		AddSource: logLevel <= slog.LevelWarn,
	}
}

// NewLogger builds the JSON logger used by the API server and the scan
// worker.
func NewLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, envHandlerOptions()))
}

// NewTextLogger is the human-readable variant for local development and the
// one-shot CLI.
func NewTextLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, envHandlerOptions()))
}

// WithRequestID stamps the request ID from ctx onto the logger, if present.
func WithRequestID(ctx context.Context, logger *slog.Logger) *slog.Logger {
	reqID := requestid.FromContext(ctx)
	if reqID == "" {
		return logger
	}
	return logger.With("request_id", reqID)
}

// WithFields attaches a map of structured fields to the logger.
func WithFields(logger *slog.Logger, fields map[string]interface{}) *slog.Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return logger.With(args...)
}

// FromContext returns the logger stored in ctx, falling back to slog.Default.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerContextKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// WithLogger stores a logger in the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

type contextKey string

const loggerContextKey contextKey = "logger"
