package middleware

import (
	"log/slog"
	"net/http"

	"filippo.io/csrf/gorilla"
)

// CSRFConfig holds configuration for CSRF protection.
// filippo.io/csrf/gorilla uses Fetch metadata headers instead of cookies, so
// cookie-related options (Secure, Domain, Path, MaxAge, SameSite) do not apply.
type CSRFConfig struct {
	// AuthKey is a 32-byte key used to authenticate the CSRF token.
	// This should be the same as the session secret for simplicity.
	AuthKey []byte

	// TrustedOrigins is a list of origins that are allowed to make
	// cross-origin requests.
	TrustedOrigins []string
}

// DefaultCSRFConfig returns a CSRFConfig with sensible defaults.
func DefaultCSRFConfig(authKey []byte, isDev bool) CSRFConfig {
	cfg := CSRFConfig{
		AuthKey: authKey,
	}

	// In development, trust localhost origins for easier testing.
	// The csrf library expects host-only values, not full URLs.
	if isDev {
		cfg.TrustedOrigins = []string{
			"localhost:8080",
			"127.0.0.1:8080",
		}
	}

	return cfg
}

// CSRF returns a middleware that protects state-changing requests against
// cross-site request forgery.
func CSRF(cfg CSRFConfig) func(http.Handler) http.Handler {
	opts := []csrf.Option{
		csrf.ErrorHandler(http.HandlerFunc(csrfErrorHandler)),
	}

	if len(cfg.TrustedOrigins) > 0 {
		opts = append(opts, csrf.TrustedOrigins(cfg.TrustedOrigins))
	}

	return csrf.Protect(cfg.AuthKey, opts...)
}

// csrfErrorHandler handles CSRF validation failures.
func csrfErrorHandler(w http.ResponseWriter, r *http.Request) {
	reason := csrf.FailureReason(r)
	reasonStr := "unknown"
	if reason != nil {
		reasonStr = reason.Error()
	}
	slog.Warn("CSRF validation failed",
		"reason", reasonStr,
		"method", r.Method,
		"path", r.URL.Path,
		"origin", r.Header.Get("Origin"),
		"sec_fetch_site", r.Header.Get("Sec-Fetch-Site"),
	)
	http.Error(w, "Forbidden - CSRF validation failed", http.StatusForbidden)
}
