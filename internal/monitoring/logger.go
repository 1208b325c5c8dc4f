package monitoring

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger provides structured logging with domain helpers
type Logger struct {
	*slog.Logger
}

// NewLogger creates a JSON logger writing to stdout
func NewLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
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

	return &Logger{Logger: slog.New(handler)}
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

// AnalysisLogger logs one completed alignment analysis
func (l *Logger) AnalysisLogger(memberID string, session int, score float64, ideology string, duration time.Duration, cacheHit bool) {
	l.Info("Analysis Completed",
		"member_id", memberID,
		"session", session,
		"alignment_score", score,
		"ideology", ideology,
		"duration_ms", duration.Milliseconds(),
		"cache_hit", cacheHit,
	)
}

// SyncLogger logs the outcome of a data sync run
func (l *Logger) SyncLogger(session, members, bills, votes, failed int, duration time.Duration) {
	l.Info("Sync Completed",
		"session", session,
		"members", members,
		"bills", bills,
		"votes", votes,
		"failed", failed,
		"duration_ms", duration.Milliseconds(),
	)
}

// ExternalAPILogger logs upstream API calls
func (l *Logger) ExternalAPILogger(apiName, endpoint string, statusCode int, duration time.Duration, success bool) {
	level := slog.LevelInfo
	if !success {
		level = slog.LevelWarn
	}

	l.Log(context.Background(), level, "External API Call",
		"api_name", apiName,
		"endpoint", endpoint,
		"status_code", statusCode,
		"duration_ms", duration.Milliseconds(),
		"success", success,
	)
}

// SystemLogger logs system-level events
func (l *Logger) SystemLogger(event, details string) {
	l.Info("System Event",
		"event", event,
		"details", details,
		"uptime", time.Since(startTime).String(),
	)
}

var startTime = time.Now()
