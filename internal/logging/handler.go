// Package logging provides a custom slog handler that integrates with the
// event log. It forwards logs at WARN level and above to the database-backed
// event log for auditing.
package logging

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"github.com/olegiv/blog-go/internal/middleware"
	"github.com/olegiv/blog-go/internal/model"
	"github.com/olegiv/blog-go/internal/store"
)

// EventLogHandler is a slog.Handler that wraps another handler and also writes
// WARN and ERROR level logs to the event log database.
type EventLogHandler struct {
	inner   slog.Handler
	queries *store.Queries
	level   slog.Level // Minimum level to forward to the event log
}

// NewEventLogHandler creates a new EventLogHandler that wraps the given handler.
// Logs at WARN level and above will be written to both the wrapped handler and
// the event log.
func NewEventLogHandler(inner slog.Handler, db *sql.DB) *EventLogHandler {
	return &EventLogHandler{
		inner:   inner,
		queries: store.New(db),
		level:   slog.LevelWarn,
	}
}

// Enabled implements slog.Handler.
func (h *EventLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *EventLogHandler) Handle(ctx context.Context, r slog.Record) error {
	// Always forward to the inner handler first
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}

	if r.Level >= h.level {
		h.writeToEventLog(ctx, r)
	}

	return nil
}

// WithAttrs implements slog.Handler.
func (h *EventLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &EventLogHandler{
		inner:   h.inner.WithAttrs(attrs),
		queries: h.queries,
		level:   h.level,
	}
}

// WithGroup implements slog.Handler.
func (h *EventLogHandler) WithGroup(name string) slog.Handler {
	return &EventLogHandler{
		inner:   h.inner.WithGroup(name),
		queries: h.queries,
		level:   h.level,
	}
}

// writeToEventLog writes a log record to the event log database.
func (h *EventLogHandler) writeToEventLog(ctx context.Context, r slog.Record) {
	level := slogLevelToEventLevel(r.Level)
	category := extractCategory(r)
	metadata := extractMetadata(r, middleware.GetRequestPath(ctx))

	// Use a background context so the event is logged even if the request
	// context is cancelled.
	_, _ = h.queries.CreateEvent(context.Background(), store.CreateEventParams{
		Level:     level,
		Category:  category,
		Message:   r.Message,
		UserID:    sql.NullInt64{}, // No user context available from slog
		Metadata:  metadata,
		CreatedAt: r.Time,
	})
}

// slogLevelToEventLevel converts a slog.Level to an event log level.
func slogLevelToEventLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return model.EventLevelError
	case level >= slog.LevelWarn:
		return model.EventLevelWarning
	default:
		return model.EventLevelInfo
	}
}

// extractCategory attempts to extract a category from the log record attributes.
// It looks for a "category" attribute or infers one from common patterns.
func extractCategory(r slog.Record) string {
	var category string

	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "category" {
			category = a.Value.String()
			return false // Stop iteration
		}
		return true
	})

	if category != "" {
		return category
	}

	msg := strings.ToLower(r.Message)
	switch {
	case strings.Contains(msg, "auth") || strings.Contains(msg, "login") || strings.Contains(msg, "logout") || strings.Contains(msg, "register"):
		return model.EventCategoryAuth
	case strings.Contains(msg, "comment"):
		return model.EventCategoryComment
	case strings.Contains(msg, "post"):
		return model.EventCategoryPost
	case strings.Contains(msg, "user"):
		return model.EventCategoryUser
	default:
		return model.EventCategorySystem
	}
}

// extractMetadata collects the log attributes, plus the request path when
// one is in context, into a JSON string.
func extractMetadata(r slog.Record, path string) string {
	if r.NumAttrs() == 0 && path == "" {
		return "{}"
	}

	var sb strings.Builder
	sb.WriteString("{")
	first := true

	if path != "" {
		sb.WriteString(`"path":"`)
		sb.WriteString(escapeJSON(path))
		sb.WriteString(`"`)
		first = false
	}

	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "category" {
			return true // Skip category, already extracted
		}
		if !first {
			sb.WriteString(",")
		}
		first = false
		sb.WriteString(`"`)
		sb.WriteString(escapeJSON(a.Key))
		sb.WriteString(`":"`)
		sb.WriteString(escapeJSON(a.Value.String()))
		sb.WriteString(`"`)
		return true
	})

	sb.WriteString("}")
	return sb.String()
}

// escapeJSON escapes special characters in a string for JSON.
func escapeJSON(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
