package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/olegiv/blog-go/internal/store"
)

func postForm(title string) url.Values {
	return url.Values{
		"title":    {title},
		"subtitle": {"A subtitle"},
		"body":     {"<p>Hello world</p>"},
		"img_url":  {"https://example.com/cover.jpg"},
	}
}

func TestListEmpty(t *testing.T) {
	db := testDB(t)
	sm := testSessionManager(t)
	h := NewPostsHandler(db, testRenderer(t, sm), sm)

	req := httptest.NewRequest(http.MethodGet, RouteRoot, nil)
	req = requestWithSession(sm, req)
	rec := httptest.NewRecorder()

	h.List(rec, req)

	assertStatus(t, rec.Code, http.StatusOK)
}

func TestShowPost(t *testing.T) {
	db := testDB(t)
	sm := testSessionManager(t)
	h := NewPostsHandler(db, testRenderer(t, sm), sm)

	author := createTestUser(t, db, testUser{Email: "admin@example.com", Name: "Admin", Role: store.RoleAdmin})
	post := createTestPost(t, db, author.ID, "First Post")

	req := httptest.NewRequest(http.MethodGet, "/post/1", nil)
	req = requestWithURLParams(req, map[string]string{"id": "1"})
	req = requestWithSession(sm, req)
	rec := httptest.NewRecorder()

	h.Show(rec, req)

	assertStatus(t, rec.Code, http.StatusOK)
	if !strings.Contains(rec.Body.String(), post.Title) {
		t.Error("expected post title in response body")
	}
}

func TestShowMissingPostReturns404(t *testing.T) {
	db := testDB(t)
	sm := testSessionManager(t)
	h := NewPostsHandler(db, testRenderer(t, sm), sm)

	req := httptest.NewRequest(http.MethodGet, "/post/99", nil)
	req = requestWithURLParams(req, map[string]string{"id": "99"})
	req = requestWithSession(sm, req)
	rec := httptest.NewRecorder()

	h.Show(rec, req)

	assertStatus(t, rec.Code, http.StatusNotFound)
}

func TestShowMalformedIDReturns404(t *testing.T) {
	db := testDB(t)
	sm := testSessionManager(t)
	h := NewPostsHandler(db, testRenderer(t, sm), sm)

	req := httptest.NewRequest(http.MethodGet, "/post/abc", nil)
	req = requestWithURLParams(req, map[string]string{"id": "abc"})
	req = requestWithSession(sm, req)
	rec := httptest.NewRecorder()

	h.Show(rec, req)

	assertStatus(t, rec.Code, http.StatusNotFound)
}

func TestCreateCommentAnonymousRedirectsToLogin(t *testing.T) {
	db := testDB(t)
	sm := testSessionManager(t)
	h := NewPostsHandler(db, testRenderer(t, sm), sm)

	author := createTestUser(t, db, testUser{Email: "admin@example.com", Name: "Admin", Role: store.RoleAdmin})
	createTestPost(t, db, author.ID, "First Post")

	form := url.Values{"comment": {"<p>Nice post</p>"}}
	req := httptest.NewRequest(http.MethodPost, "/post/1", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req = requestWithURLParams(req, map[string]string{"id": "1"})
	req = requestWithSession(sm, req)
	rec := httptest.NewRecorder()

	h.CreateComment(rec, req)

	assertStatus(t, rec.Code, http.StatusSeeOther)
	if loc := rec.Header().Get("Location"); loc != RouteLogin {
		t.Errorf("Location = %q, want %q", loc, RouteLogin)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM comments`).Scan(&count); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != 0 {
		t.Errorf("comment count = %d, want 0", count)
	}
}

func TestCreateCommentAuthenticated(t *testing.T) {
	db := testDB(t)
	sm := testSessionManager(t)
	h := NewPostsHandler(db, testRenderer(t, sm), sm)

	author := createTestUser(t, db, testUser{Email: "admin@example.com", Name: "Admin", Role: store.RoleAdmin})
	commenter := createTestUser(t, db, testUser{Email: "bob@example.com", Name: "Bob"})
	post := createTestPost(t, db, author.ID, "First Post")

	form := url.Values{"comment": {"<p>Nice post</p><script>alert(1)</script>"}}
	req := httptest.NewRequest(http.MethodPost, "/post/1", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req = requestWithURLParams(req, map[string]string{"id": "1"})
	req = requestWithSession(sm, req)
	req = requestWithUser(req, commenter)
	rec := httptest.NewRecorder()

	h.CreateComment(rec, req)

	assertStatus(t, rec.Code, http.StatusSeeOther)
	if loc := rec.Header().Get("Location"); loc != "/post/1" {
		t.Errorf("Location = %q, want /post/1", loc)
	}

	var body string
	var userID int64
	if err := db.QueryRow(`SELECT body, user_id FROM comments WHERE post_id = ?`, post.ID).Scan(&body, &userID); err != nil {
		t.Fatalf("comment not created: %v", err)
	}
	if userID != commenter.ID {
		t.Errorf("comment user_id = %d, want %d", userID, commenter.ID)
	}
	if strings.Contains(body, "<script>") {
		t.Errorf("comment body not sanitized: %q", body)
	}
}

func TestCreatePost(t *testing.T) {
	db := testDB(t)
	sm := testSessionManager(t)
	h := NewPostsHandler(db, testRenderer(t, sm), sm)

	admin := createTestUser(t, db, testUser{Email: "admin@example.com", Name: "Admin", Role: store.RoleAdmin})

	req := httptest.NewRequest(http.MethodPost, RouteNewPost, strings.NewReader(postForm("Fresh Post").Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req = requestWithSession(sm, req)
	req = requestWithUser(req, admin)
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	assertStatus(t, rec.Code, http.StatusSeeOther)
	if loc := rec.Header().Get("Location"); loc != RouteRoot {
		t.Errorf("Location = %q, want %q", loc, RouteRoot)
	}

	var authorID int64
	var date string
	if err := db.QueryRow(`SELECT author_id, date FROM posts WHERE title = ?`, "Fresh Post").Scan(&authorID, &date); err != nil {
		t.Fatalf("post not created: %v", err)
	}
	if authorID != admin.ID {
		t.Errorf("post author_id = %d, want %d", authorID, admin.ID)
	}
	if date == "" {
		t.Error("post date stamp should be set on creation")
	}
}

func TestCreatePostDuplicateTitle(t *testing.T) {
	db := testDB(t)
	sm := testSessionManager(t)
	h := NewPostsHandler(db, testRenderer(t, sm), sm)

	admin := createTestUser(t, db, testUser{Email: "admin@example.com", Name: "Admin", Role: store.RoleAdmin})
	createTestPost(t, db, admin.ID, "Taken Title")

	req := httptest.NewRequest(http.MethodPost, RouteNewPost, strings.NewReader(postForm("Taken Title").Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req = requestWithSession(sm, req)
	req = requestWithUser(req, admin)
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	// Re-renders the form with a title error
	assertStatus(t, rec.Code, http.StatusOK)

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM posts WHERE title = ?`, "Taken Title").Scan(&count); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != 1 {
		t.Errorf("post count = %d, want 1", count)
	}
}

func TestUpdatePostPreservesAuthorAndDate(t *testing.T) {
	db := testDB(t)
	sm := testSessionManager(t)
	h := NewPostsHandler(db, testRenderer(t, sm), sm)

	admin := createTestUser(t, db, testUser{Email: "admin@example.com", Name: "Admin", Role: store.RoleAdmin})
	post := createTestPost(t, db, admin.ID, "Original Title")

	form := postForm("Updated Title")
	req := httptest.NewRequest(http.MethodPost, "/edit-post/1", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req = requestWithURLParams(req, map[string]string{"id": "1"})
	req = requestWithSession(sm, req)
	req = requestWithUser(req, admin)
	rec := httptest.NewRecorder()

	h.Update(rec, req)

	assertStatus(t, rec.Code, http.StatusSeeOther)
	if loc := rec.Header().Get("Location"); loc != "/post/1" {
		t.Errorf("Location = %q, want /post/1", loc)
	}

	var title, date string
	var authorID int64
	if err := db.QueryRow(`SELECT title, date, author_id FROM posts WHERE id = ?`, post.ID).Scan(&title, &date, &authorID); err != nil {
		t.Fatalf("post missing after update: %v", err)
	}
	if title != "Updated Title" {
		t.Errorf("title = %q, want %q", title, "Updated Title")
	}
	if date != post.Date {
		t.Errorf("date = %q, want original %q", date, post.Date)
	}
	if authorID != admin.ID {
		t.Errorf("author_id = %d, want %d", authorID, admin.ID)
	}
}

func TestUpdateMissingPostReturns404(t *testing.T) {
	db := testDB(t)
	sm := testSessionManager(t)
	h := NewPostsHandler(db, testRenderer(t, sm), sm)

	admin := createTestUser(t, db, testUser{Email: "admin@example.com", Name: "Admin", Role: store.RoleAdmin})

	req := httptest.NewRequest(http.MethodPost, "/edit-post/42", strings.NewReader(postForm("Whatever").Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req = requestWithURLParams(req, map[string]string{"id": "42"})
	req = requestWithSession(sm, req)
	req = requestWithUser(req, admin)
	rec := httptest.NewRecorder()

	h.Update(rec, req)

	assertStatus(t, rec.Code, http.StatusNotFound)
}

func TestDeletePostCascadesComments(t *testing.T) {
	db := testDB(t)
	sm := testSessionManager(t)
	h := NewPostsHandler(db, testRenderer(t, sm), sm)

	admin := createTestUser(t, db, testUser{Email: "admin@example.com", Name: "Admin", Role: store.RoleAdmin})
	commenter := createTestUser(t, db, testUser{Email: "bob@example.com", Name: "Bob"})
	post := createTestPost(t, db, admin.ID, "Doomed Post")

	if _, err := db.Exec(
		`INSERT INTO comments (body, user_id, post_id) VALUES (?, ?, ?)`,
		"<p>So long</p>", commenter.ID, post.ID,
	); err != nil {
		t.Fatalf("failed to create comment: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/delete/1", nil)
	req = requestWithURLParams(req, map[string]string{"id": "1"})
	req = requestWithSession(sm, req)
	req = requestWithUser(req, admin)
	rec := httptest.NewRecorder()

	h.Delete(rec, req)

	assertStatus(t, rec.Code, http.StatusSeeOther)
	if loc := rec.Header().Get("Location"); loc != RouteRoot {
		t.Errorf("Location = %q, want %q", loc, RouteRoot)
	}

	var posts, comments int
	if err := db.QueryRow(`SELECT COUNT(*) FROM posts`).Scan(&posts); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM comments`).Scan(&comments); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if posts != 0 {
		t.Errorf("post count = %d, want 0", posts)
	}
	if comments != 0 {
		t.Errorf("comment count = %d, want 0 (comments follow their post)", comments)
	}
}

func TestDeleteMissingPostReturns404(t *testing.T) {
	db := testDB(t)
	sm := testSessionManager(t)
	h := NewPostsHandler(db, testRenderer(t, sm), sm)

	admin := createTestUser(t, db, testUser{Email: "admin@example.com", Name: "Admin", Role: store.RoleAdmin})

	req := httptest.NewRequest(http.MethodGet, "/delete/42", nil)
	req = requestWithURLParams(req, map[string]string{"id": "42"})
	req = requestWithSession(sm, req)
	req = requestWithUser(req, admin)
	rec := httptest.NewRecorder()

	h.Delete(rec, req)

	assertStatus(t, rec.Code, http.StatusNotFound)
}
