// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// DBTX is the interface shared by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds prepared query methods over a database connection or transaction.
type Queries struct {
	db DBTX
}

// New creates a Queries instance bound to the given connection.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries instance bound to the given transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// IsUniqueViolation reports whether err is a SQLite UNIQUE constraint failure.
// Duplicate emails and duplicate post titles surface through here and are
// translated into form-level validation errors by the handlers.
func IsUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// =============================================================================
// USERS
// =============================================================================

const createUser = `
INSERT INTO users (email, password_hash, role, name, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id, email, password_hash, role, name, created_at, updated_at, last_login_at
`

// CreateUserParams holds the fields for CreateUser.
type CreateUserParams struct {
	Email        string
	PasswordHash string
	Role         string
	Name         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateUser inserts a new user and returns the stored row.
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser,
		arg.Email, arg.PasswordHash, arg.Role, arg.Name, arg.CreatedAt, arg.UpdatedAt)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.Name,
		&u.CreatedAt, &u.UpdatedAt, &u.LastLoginAt)
	return u, err
}

const getUserByID = `
SELECT id, email, password_hash, role, name, created_at, updated_at, last_login_at
FROM users WHERE id = ?
`

// GetUserByID returns the user with the given id, or sql.ErrNoRows.
func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByID, id)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.Name,
		&u.CreatedAt, &u.UpdatedAt, &u.LastLoginAt)
	return u, err
}

const getUserByEmail = `
SELECT id, email, password_hash, role, name, created_at, updated_at, last_login_at
FROM users WHERE email = ?
`

// GetUserByEmail returns the user with the given email, or sql.ErrNoRows.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByEmail, email)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.Name,
		&u.CreatedAt, &u.UpdatedAt, &u.LastLoginAt)
	return u, err
}

const countUsers = `SELECT COUNT(*) FROM users`

// CountUsers returns the total number of registered users.
func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countUsers).Scan(&count)
	return count, err
}

const updateUserLastLogin = `UPDATE users SET last_login_at = ? WHERE id = ?`

// UpdateUserLastLoginParams holds the fields for UpdateUserLastLogin.
type UpdateUserLastLoginParams struct {
	LastLoginAt sql.NullTime
	ID          int64
}

// UpdateUserLastLogin records the user's most recent login time.
func (q *Queries) UpdateUserLastLogin(ctx context.Context, arg UpdateUserLastLoginParams) error {
	_, err := q.db.ExecContext(ctx, updateUserLastLogin, arg.LastLoginAt, arg.ID)
	return err
}

const updateUserPassword = `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`

// UpdateUserPasswordParams holds the fields for UpdateUserPassword.
type UpdateUserPasswordParams struct {
	PasswordHash string
	UpdatedAt    time.Time
	ID           int64
}

// UpdateUserPassword replaces the stored password hash.
func (q *Queries) UpdateUserPassword(ctx context.Context, arg UpdateUserPasswordParams) error {
	_, err := q.db.ExecContext(ctx, updateUserPassword, arg.PasswordHash, arg.UpdatedAt, arg.ID)
	return err
}

// =============================================================================
// POSTS
// =============================================================================

const createPost = `
INSERT INTO posts (title, subtitle, date, body, img_url, author_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id, title, subtitle, date, body, img_url, author_id, created_at, updated_at
`

// CreatePostParams holds the fields for CreatePost.
type CreatePostParams struct {
	Title     string
	Subtitle  string
	Date      string
	Body      string
	ImgURL    string
	AuthorID  int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreatePost inserts a new post and returns the stored row.
func (q *Queries) CreatePost(ctx context.Context, arg CreatePostParams) (Post, error) {
	row := q.db.QueryRowContext(ctx, createPost,
		arg.Title, arg.Subtitle, arg.Date, arg.Body, arg.ImgURL, arg.AuthorID,
		arg.CreatedAt, arg.UpdatedAt)
	var p Post
	err := row.Scan(&p.ID, &p.Title, &p.Subtitle, &p.Date, &p.Body, &p.ImgURL,
		&p.AuthorID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

const getPostByID = `
SELECT id, title, subtitle, date, body, img_url, author_id, created_at, updated_at
FROM posts WHERE id = ?
`

// GetPostByID returns the post with the given id, or sql.ErrNoRows.
func (q *Queries) GetPostByID(ctx context.Context, id int64) (Post, error) {
	row := q.db.QueryRowContext(ctx, getPostByID, id)
	var p Post
	err := row.Scan(&p.ID, &p.Title, &p.Subtitle, &p.Date, &p.Body, &p.ImgURL,
		&p.AuthorID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

const listPosts = `
SELECT id, title, subtitle, date, body, img_url, author_id, created_at, updated_at
FROM posts ORDER BY id
`

// ListPosts returns all posts in insertion order.
func (q *Queries) ListPosts(ctx context.Context) ([]Post, error) {
	rows, err := q.db.QueryContext(ctx, listPosts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.Title, &p.Subtitle, &p.Date, &p.Body, &p.ImgURL,
			&p.AuthorID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

const countPosts = `SELECT COUNT(*) FROM posts`

// CountPosts returns the total number of posts.
func (q *Queries) CountPosts(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countPosts).Scan(&count)
	return count, err
}

const postTitleExists = `SELECT COUNT(*) FROM posts WHERE title = ? AND id != ?`

// PostTitleExistsParams holds the fields for PostTitleExists.
type PostTitleExistsParams struct {
	Title string
	ID    int64 // Excluded from the check; pass 0 when creating
}

// PostTitleExists reports whether another post already uses the given title.
func (q *Queries) PostTitleExists(ctx context.Context, arg PostTitleExistsParams) (bool, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, postTitleExists, arg.Title, arg.ID).Scan(&count)
	return count > 0, err
}

const updatePost = `
UPDATE posts SET title = ?, subtitle = ?, body = ?, img_url = ?, updated_at = ?
WHERE id = ?
`

// UpdatePostParams holds the fields for UpdatePost. The author and the
// publish date are never touched by edits.
type UpdatePostParams struct {
	Title     string
	Subtitle  string
	Body      string
	ImgURL    string
	UpdatedAt time.Time
	ID        int64
}

// UpdatePost overwrites the editable fields of an existing post.
func (q *Queries) UpdatePost(ctx context.Context, arg UpdatePostParams) error {
	_, err := q.db.ExecContext(ctx, updatePost,
		arg.Title, arg.Subtitle, arg.Body, arg.ImgURL, arg.UpdatedAt, arg.ID)
	return err
}

const deletePost = `DELETE FROM posts WHERE id = ?`

// DeletePost removes a post. Its comments are removed by the FK cascade.
func (q *Queries) DeletePost(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deletePost, id)
	return err
}

// =============================================================================
// COMMENTS
// =============================================================================

const createComment = `
INSERT INTO comments (body, user_id, post_id, created_at)
VALUES (?, ?, ?, ?)
RETURNING id, body, user_id, post_id, created_at
`

// CreateCommentParams holds the fields for CreateComment.
type CreateCommentParams struct {
	Body      string
	UserID    int64
	PostID    int64
	CreatedAt time.Time
}

// CreateComment inserts a new comment and returns the stored row.
func (q *Queries) CreateComment(ctx context.Context, arg CreateCommentParams) (Comment, error) {
	row := q.db.QueryRowContext(ctx, createComment,
		arg.Body, arg.UserID, arg.PostID, arg.CreatedAt)
	var c Comment
	err := row.Scan(&c.ID, &c.Body, &c.UserID, &c.PostID, &c.CreatedAt)
	return c, err
}

const listCommentsByPost = `
SELECT c.id, c.body, c.user_id, c.post_id, c.created_at, u.name, u.email
FROM comments c
JOIN users u ON u.id = c.user_id
WHERE c.post_id = ?
ORDER BY c.id
`

// ListCommentsByPost returns a post's comments with author info, in insertion order.
func (q *Queries) ListCommentsByPost(ctx context.Context, postID int64) ([]CommentWithAuthor, error) {
	rows, err := q.db.QueryContext(ctx, listCommentsByPost, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []CommentWithAuthor
	for rows.Next() {
		var c CommentWithAuthor
		if err := rows.Scan(&c.ID, &c.Body, &c.UserID, &c.PostID, &c.CreatedAt,
			&c.AuthorName, &c.AuthorEmail); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

const countCommentsByPost = `SELECT COUNT(*) FROM comments WHERE post_id = ?`

// CountCommentsByPost returns the number of comments on a post.
func (q *Queries) CountCommentsByPost(ctx context.Context, postID int64) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countCommentsByPost, postID).Scan(&count)
	return count, err
}

// =============================================================================
// EVENTS
// =============================================================================

const createEvent = `
INSERT INTO events (level, category, message, user_id, metadata, created_at)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id, level, category, message, user_id, metadata, created_at
`

// CreateEventParams holds the fields for CreateEvent.
type CreateEventParams struct {
	Level     string
	Category  string
	Message   string
	UserID    sql.NullInt64
	Metadata  string
	CreatedAt time.Time
}

// CreateEvent inserts a new event log entry.
func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) (Event, error) {
	row := q.db.QueryRowContext(ctx, createEvent,
		arg.Level, arg.Category, arg.Message, arg.UserID, arg.Metadata, arg.CreatedAt)
	var e Event
	err := row.Scan(&e.ID, &e.Level, &e.Category, &e.Message, &e.UserID,
		&e.Metadata, &e.CreatedAt)
	return e, err
}
