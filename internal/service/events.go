// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service provides the event logging layer used for audit trails.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/olegiv/blog-go/internal/model"
	"github.com/olegiv/blog-go/internal/store"
)

// EventService provides event logging functionality.
type EventService struct {
	queries *store.Queries
}

// NewEventService creates a new EventService.
func NewEventService(db *sql.DB) *EventService {
	return &EventService{
		queries: store.New(db),
	}
}

// LogEvent creates a new event log entry.
func (s *EventService) LogEvent(ctx context.Context, level, category, message string, userID *int64, metadata map[string]any) error {
	var nullUserID sql.NullInt64
	if userID != nil {
		nullUserID = sql.NullInt64{Int64: *userID, Valid: true}
	}

	metadataJSON := "{}"
	if metadata != nil {
		jsonBytes, err := json.Marshal(metadata)
		if err == nil {
			metadataJSON = string(jsonBytes)
		}
	}

	_, err := s.queries.CreateEvent(ctx, store.CreateEventParams{
		Level:     level,
		Category:  category,
		Message:   message,
		UserID:    nullUserID,
		Metadata:  metadataJSON,
		CreatedAt: time.Now(),
	})
	if err != nil {
		slog.Error("failed to log event", "error", err, "category", category)
		return err
	}

	return nil
}

// LogAuthEvent logs an authentication-related event.
func (s *EventService) LogAuthEvent(ctx context.Context, level, message string, userID *int64, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryAuth, message, userID, metadata)
}

// LogPostEvent logs a post-related event.
func (s *EventService) LogPostEvent(ctx context.Context, level, message string, userID *int64, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryPost, message, userID, metadata)
}

// LogCommentEvent logs a comment-related event.
func (s *EventService) LogCommentEvent(ctx context.Context, level, message string, userID *int64, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryComment, message, userID, metadata)
}

// LogUserEvent logs a user-related event.
func (s *EventService) LogUserEvent(ctx context.Context, level, message string, userID *int64, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryUser, message, userID, metadata)
}
