// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// SecurityHeadersConfig holds configuration for security headers.
type SecurityHeadersConfig struct {
	// CSPDirectives is the Content-Security-Policy directive map.
	CSPDirectives map[string][]string
	// HSTSMaxAge is the max-age for Strict-Transport-Security in seconds.
	// Set to 0 to disable HSTS (e.g., in development).
	HSTSMaxAge int
	// HSTSIncludeSubdomains adds includeSubDomains to HSTS.
	HSTSIncludeSubdomains bool
	// FrameOptions sets X-Frame-Options (DENY, SAMEORIGIN).
	FrameOptions string
	// ReferrerPolicy sets the Referrer-Policy header.
	ReferrerPolicy string
}

// DefaultSecurityHeadersConfig returns a config suited to a server-rendered
// site that loads avatars and post images from external hosts.
func DefaultSecurityHeadersConfig(isDevelopment bool) SecurityHeadersConfig {
	cfg := SecurityHeadersConfig{
		CSPDirectives: map[string][]string{
			"default-src":     {"'self'"},
			"script-src":      {"'self'"},
			"style-src":       {"'self'", "'unsafe-inline'", "https://fonts.googleapis.com"},
			"font-src":        {"'self'", "https://fonts.gstatic.com"},
			"img-src":         {"'self'", "data:", "https:"},
			"connect-src":     {"'self'"},
			"frame-ancestors": {"'none'"},
			"base-uri":        {"'self'"},
			"form-action":     {"'self'"},
		},
		HSTSMaxAge:            31536000, // 1 year
		HSTSIncludeSubdomains: true,
		FrameOptions:          "DENY",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}

	if isDevelopment {
		// HSTS over plain HTTP would poison the browser cache
		cfg.HSTSMaxAge = 0
	}

	return cfg
}

// buildCSP constructs the Content-Security-Policy header value.
func buildCSP(directives map[string][]string) string {
	// Order directives for a stable header value
	order := []string{
		"default-src", "script-src", "style-src", "font-src", "img-src",
		"connect-src", "frame-ancestors", "base-uri", "form-action",
	}

	var parts []string
	for _, name := range order {
		if sources, ok := directives[name]; ok {
			parts = append(parts, name+" "+strings.Join(sources, " "))
		}
	}

	return strings.Join(parts, "; ")
}

// SecurityHeaders creates middleware that adds security headers to responses.
func SecurityHeaders(cfg SecurityHeadersConfig) func(http.Handler) http.Handler {
	csp := buildCSP(cfg.CSPDirectives)

	var hsts string
	if cfg.HSTSMaxAge > 0 {
		hsts = "max-age=" + strconv.Itoa(cfg.HSTSMaxAge)
		if cfg.HSTSIncludeSubdomains {
			hsts += "; includeSubDomains"
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Content-Security-Policy", csp)
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", cfg.FrameOptions)
			h.Set("Referrer-Policy", cfg.ReferrerPolicy)
			if hsts != "" {
				h.Set("Strict-Transport-Security", hsts)
			}
			next.ServeHTTP(w, r)
		})
	}
}
