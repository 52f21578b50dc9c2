// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package store provides database access for users, posts, comments,
// and the event log.
package store

import (
	"database/sql"
	"time"
)

// User roles. The first registered account becomes the admin; everyone
// else registers as a regular user.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User represents a registered account.
type User struct {
	ID           int64        `json:"id"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"` // Never expose in JSON
	Role         string       `json:"role"`
	Name         string       `json:"name"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	LastLoginAt  sql.NullTime `json:"last_login_at,omitempty"`
}

// IsAdmin returns true if the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Post represents a blog post.
type Post struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Subtitle  string    `json:"subtitle"`
	Date      string    `json:"date"` // Human-readable publish date, e.g. "April 05, 2024"
	Body      string    `json:"body"`
	ImgURL    string    `json:"img_url"`
	AuthorID  int64     `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Comment represents a reader comment on a post.
type Comment struct {
	ID        int64     `json:"id"`
	Body      string    `json:"body"`
	UserID    int64     `json:"user_id"`
	PostID    int64     `json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CommentWithAuthor is a comment joined with its author's display fields.
type CommentWithAuthor struct {
	Comment
	AuthorName  string `json:"author_name"`
	AuthorEmail string `json:"author_email"`
}

// Event represents an entry in the event log.
type Event struct {
	ID        int64         `json:"id"`
	Level     string        `json:"level"`
	Category  string        `json:"category"`
	Message   string        `json:"message"`
	UserID    sql.NullInt64 `json:"user_id,omitempty"`
	Metadata  string        `json:"metadata"`
	CreatedAt time.Time     `json:"created_at"`
}
