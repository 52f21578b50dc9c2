package session

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
)

// CookieName identifies the blog session cookie.
const CookieName = "blog_session"

// Lifetime is how long an idle session survives before it expires.
const Lifetime = 24 * time.Hour

// New creates a session manager backed by the sessions table.
func New(db *sql.DB, isDev bool) *scs.SessionManager {
	sm := scs.New()
	sm.Store = sqlite3store.New(db)

	sm.Lifetime = Lifetime
	sm.Cookie.Name = CookieName
	sm.Cookie.Path = "/"
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = !isDev // Secure cookies in production only

	return sm
}
