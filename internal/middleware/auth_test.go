package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/olegiv/blog-go/internal/store"
)

func requestWithUser(user store.User) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/new-post", nil)
	ctx := context.WithValue(req.Context(), ContextKeyUser, user)
	return req.WithContext(ctx)
}

func TestRequireAdminAnonymous(t *testing.T) {
	called := false
	handler := RequireAdmin(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/new-post", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("Status = %d, want %d", rr.Code, http.StatusForbidden)
	}
	if called {
		t.Error("handler should not run for anonymous request")
	}
}

func TestRequireAdminNonAdmin(t *testing.T) {
	called := false
	handler := RequireAdmin(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, requestWithUser(store.User{ID: 2, Role: store.RoleUser}))

	if rr.Code != http.StatusForbidden {
		t.Errorf("Status = %d, want %d", rr.Code, http.StatusForbidden)
	}
	if called {
		t.Error("handler should not run for non-admin user")
	}
}

func TestRequireAdminAllowsAdmin(t *testing.T) {
	called := false
	handler := RequireAdmin(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, requestWithUser(store.User{ID: 1, Role: store.RoleAdmin}))

	if rr.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d", rr.Code, http.StatusOK)
	}
	if !called {
		t.Error("handler should run for admin user")
	}
}

func TestGetUser(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if GetUser(req) != nil {
		t.Error("GetUser should return nil without a user in context")
	}
	if GetUserID(req) != 0 {
		t.Error("GetUserID should return 0 without a user in context")
	}
	if GetUserIDPtr(req) != nil {
		t.Error("GetUserIDPtr should return nil without a user in context")
	}

	req = requestWithUser(store.User{ID: 42, Role: store.RoleUser})
	user := GetUser(req)
	if user == nil || user.ID != 42 {
		t.Errorf("GetUser = %+v, want user with ID 42", user)
	}
	if GetUserID(req) != 42 {
		t.Errorf("GetUserID = %d, want 42", GetUserID(req))
	}
}

func TestStripTrailingSlash(t *testing.T) {
	handler := StripTrailingSlash(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		path     string
		wantCode int
		wantLoc  string
	}{
		{"/", http.StatusOK, ""},
		{"/about", http.StatusOK, ""},
		{"/about/", http.StatusMovedPermanently, "/about"},
		{"/post/3/?page=2", http.StatusMovedPermanently, "/post/3?page=2"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantCode {
				t.Errorf("Status = %d, want %d", rr.Code, tt.wantCode)
			}
			if loc := rr.Header().Get("Location"); loc != tt.wantLoc {
				t.Errorf("Location = %q, want %q", loc, tt.wantLoc)
			}
		})
	}
}
