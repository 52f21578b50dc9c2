package handler

import (
	"context"
	"database/sql"
	"io/fs"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	_ "modernc.org/sqlite"

	"github.com/olegiv/blog-go/internal/auth"
	"github.com/olegiv/blog-go/internal/middleware"
	"github.com/olegiv/blog-go/internal/render"
	"github.com/olegiv/blog-go/internal/store"
	"github.com/olegiv/blog-go/web"
)

// testDB creates an in-memory SQLite database with the required schema for testing.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// In-memory databases and pragmas are per-connection
	db.SetMaxOpenConns(1)

	schema := `
		PRAGMA foreign_keys = ON;

		CREATE TABLE users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'user',
			name TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_login_at DATETIME
		);
		CREATE INDEX idx_users_email ON users(email);

		CREATE TABLE posts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL UNIQUE,
			subtitle TEXT NOT NULL DEFAULT '',
			date TEXT NOT NULL,
			body TEXT NOT NULL,
			img_url TEXT NOT NULL DEFAULT '',
			author_id INTEGER NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (author_id) REFERENCES users(id)
		);
		CREATE INDEX idx_posts_author_id ON posts(author_id);

		CREATE TABLE comments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			body TEXT NOT NULL,
			user_id INTEGER NOT NULL,
			post_id INTEGER NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id),
			FOREIGN KEY (post_id) REFERENCES posts(id) ON DELETE CASCADE
		);
		CREATE INDEX idx_comments_post_id ON comments(post_id);
		CREATE INDEX idx_comments_user_id ON comments(user_id);

		CREATE TABLE sessions (
			token TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			expiry REAL NOT NULL
		);
		CREATE INDEX idx_sessions_expiry ON sessions(expiry);

		CREATE TABLE events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			level TEXT NOT NULL DEFAULT 'info',
			category TEXT NOT NULL DEFAULT 'system',
			message TEXT NOT NULL,
			user_id INTEGER,
			metadata TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE SET NULL
		);
		CREATE INDEX idx_events_created_at ON events(created_at DESC);
	`

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

// testSessionManager creates a session manager for testing.
func testSessionManager(t *testing.T) *scs.SessionManager {
	t.Helper()
	sm := scs.New()
	sm.Lifetime = 24 * time.Hour
	return sm
}

// testRenderer creates a renderer backed by the embedded templates.
func testRenderer(t *testing.T, sm *scs.SessionManager) *render.Renderer {
	t.Helper()

	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		t.Fatalf("failed to open templates: %v", err)
	}

	renderer, err := render.New(render.Config{
		TemplatesFS:    templatesFS,
		SessionManager: sm,
		IsDev:          true,
	})
	if err != nil {
		t.Fatalf("failed to create renderer: %v", err)
	}
	return renderer
}

// testUser describes a user to insert into the test database.
type testUser struct {
	ID           int64
	Email        string
	Name         string
	Role         string
	PasswordHash string
}

// testUserPassword is the plaintext behind the default test password hash.
const testUserPassword = "password123"

var (
	testPasswordHash     string
	testPasswordHashErr  error
	testPasswordHashOnce sync.Once
)

// defaultPasswordHash returns an argon2id hash of testUserPassword,
// computed once per test binary.
func defaultPasswordHash(t *testing.T) string {
	t.Helper()

	testPasswordHashOnce.Do(func() {
		testPasswordHash, testPasswordHashErr = auth.HashPassword(testUserPassword)
	})
	if testPasswordHashErr != nil {
		t.Fatalf("failed to hash test password: %v", testPasswordHashErr)
	}
	return testPasswordHash
}

// createTestUser creates a test user in the database.
func createTestUser(t *testing.T, db *sql.DB, user testUser) store.User {
	t.Helper()

	if user.PasswordHash == "" {
		user.PasswordHash = defaultPasswordHash(t)
	}
	if user.Role == "" {
		user.Role = store.RoleUser
	}

	now := time.Now()
	result, err := db.Exec(
		`INSERT INTO users (email, password_hash, role, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		user.Email, user.PasswordHash, user.Role, user.Name, now, now,
	)
	if err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	id, _ := result.LastInsertId()
	return store.User{
		ID:           id,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Role:         user.Role,
		Name:         user.Name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// createTestPost creates a test post in the database.
func createTestPost(t *testing.T, db *sql.DB, authorID int64, title string) store.Post {
	t.Helper()

	now := time.Now()
	date := now.Format(dateStampFormat)
	result, err := db.Exec(
		`INSERT INTO posts (title, subtitle, date, body, img_url, author_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		title, "A subtitle", date, "<p>Post body</p>", "https://example.com/img.jpg", authorID, now, now,
	)
	if err != nil {
		t.Fatalf("failed to create test post: %v", err)
	}

	id, _ := result.LastInsertId()
	return store.Post{
		ID:        id,
		Title:     title,
		Subtitle:  "A subtitle",
		Date:      date,
		Body:      "<p>Post body</p>",
		ImgURL:    "https://example.com/img.jpg",
		AuthorID:  authorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// requestWithURLParams adds chi URL parameters to a request.
func requestWithURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// requestWithSession wraps a request with session context.
func requestWithSession(sm *scs.SessionManager, r *http.Request) *http.Request {
	ctx, err := sm.Load(r.Context(), "")
	if err != nil {
		return r
	}
	return r.WithContext(ctx)
}

// requestWithUser puts a user into the request context the way the
// session middleware would.
func requestWithUser(r *http.Request, user store.User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), middleware.ContextKeyUser, user))
}

// assertStatus checks if the response status code matches the expected value.
func assertStatus(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status = %d; want %d", got, want)
	}
}
