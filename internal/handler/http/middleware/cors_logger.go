package middleware

import (
	"log/slog"
)

// SlogAdapter bridges the CORSLogger interface to log/slog, turning the
// field map into slog attributes.
type SlogAdapter struct {
	Logger *slog.Logger
}

func (a *SlogAdapter) Info(msg string, fields map[string]interface{}) {
	a.log(a.Logger.Info, msg, fields)
}

func (a *SlogAdapter) Warn(msg string, fields map[string]interface{}) {
	a.log(a.Logger.Warn, msg, fields)
}

func (a *SlogAdapter) Debug(msg string, fields map[string]interface{}) {
	a.log(a.Logger.Debug, msg, fields)
}

func (a *SlogAdapter) log(fn func(string, ...any), msg string, fields map[string]interface{}) {
	if fields == nil {
		fn(msg)
		return
	}

	args := make([]any, 0, len(fields))
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	fn(msg, args...)
}

// NoOpLogger discards everything. Tests use it to keep CORS noise out of the
// output.
type NoOpLogger struct{}

func (l *NoOpLogger) Info(msg string, fields map[string]interface{})  {}
func (l *NoOpLogger) Warn(msg string, fields map[string]interface{})  {}
func (l *NoOpLogger) Debug(msg string, fields map[string]interface{}) {}
