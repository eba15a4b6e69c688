package monitoring

import (
	"log/slog"
	"os"
	"time"
)

// Logger provides structured logging with domain helpers
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new JSON logger
func NewLogger() *Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{
					Key:   "timestamp",
					Value: slog.StringValue(a.Value.Time().Format(time.RFC3339)),
				}
			}
			return a
		},
	})

	return &Logger{
		Logger: slog.New(handler),
	}
}

// RequestLogger logs HTTP request details
func (l *Logger) RequestLogger(method, path, ip string, statusCode int, duration time.Duration) {
	l.Info("HTTP Request",
		"method", method,
		"path", path,
		"ip", ip,
		"status_code", statusCode,
		"duration_ms", duration.Milliseconds(),
	)
}

// EvaluationLogger logs scoring pipeline results
func (l *Logger) EvaluationLogger(submitter string, textLength int, overall float64, status string, duration time.Duration) {
	l.Info("Proposal Evaluated",
		"submitter", submitter,
		"text_length", textLength,
		"overall", overall,
		"status", status,
		"duration_ms", duration.Milliseconds(),
	)
}

// AuthLogger logs login and logout outcomes
func (l *Logger) AuthLogger(event, username string, success bool) {
	if success {
		l.Info("Auth Event", "event", event, "username", username)
		return
	}
	l.Warn("Auth Event Failed", "event", event, "username", username)
}

// APIErrorLogger logs API errors with context
func (l *Logger) APIErrorLogger(err error, method, path, ip string, statusCode int) {
	l.Error("API Error",
		"error", err.Error(),
		"method", method,
		"path", path,
		"ip", ip,
		"status_code", statusCode,
	)
}
