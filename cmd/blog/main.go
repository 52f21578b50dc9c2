// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/olegiv/blog-go/internal/config"
	"github.com/olegiv/blog-go/internal/handler"
	"github.com/olegiv/blog-go/internal/logging"
	"github.com/olegiv/blog-go/internal/middleware"
	"github.com/olegiv/blog-go/internal/render"
	"github.com/olegiv/blog-go/internal/service"
	"github.com/olegiv/blog-go/internal/session"
	"github.com/olegiv/blog-go/internal/store"
	"github.com/olegiv/blog-go/internal/version"
	"github.com/olegiv/blog-go/web"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	// Parse CLI flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "blog - a small server-rendered blog\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  BLOG_SESSION_SECRET    Session encryption key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  BLOG_DB_PATH           SQLite database path (default: ./data/blog.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  BLOG_SERVER_HOST       Server host (default: localhost)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  BLOG_SERVER_PORT       Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  BLOG_ENV               Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  BLOG_LOG_LEVEL         Log level: debug|info|warn|error (default: info)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  BLOG_DO_SEED           Seed a default admin account on first run (default: false)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		_, _ = fmt.Printf("blog %s (commit: %s, built: %s)\n", appVersion, appGitCommit, appBuildTime)
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	versionInfo := version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}

	// Setup logger
	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Ensure data directory exists
	dbDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Upgrade logger to also write WARN and ERROR logs to the event log table
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	eventLogHandler := logging.NewEventLogHandler(textHandler, db)
	logger = slog.New(eventLogHandler)
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	ctx := context.Background()
	if err := store.Seed(ctx, db, cfg.DoSeed); err != nil {
		return fmt.Errorf("seeding database: %w", err)
	}

	// Initialize session manager
	sessionManager := session.New(db, cfg.IsDevelopment())
	slog.Info("session manager initialized")

	// Initialize template renderer
	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		return fmt.Errorf("getting templates fs: %w", err)
	}

	renderer, err := render.New(render.Config{
		TemplatesFS:    templatesFS,
		SessionManager: sessionManager,
		IsDev:          cfg.IsDevelopment(),
	})
	if err != nil {
		return fmt.Errorf("initializing renderer: %w", err)
	}
	slog.Info("template renderer initialized")

	eventService := service.NewEventService(db)

	// Create router
	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.StripTrailingSlash)

	securityConfig := middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())
	r.Use(middleware.SecurityHeaders(securityConfig))
	slog.Info("security headers middleware initialized", "hsts", !cfg.IsDevelopment())

	r.Use(middleware.RequestPath)
	r.Use(sessionManager.LoadAndSave)

	csrfConfig := middleware.DefaultCSRFConfig([]byte(cfg.SessionSecret), cfg.IsDevelopment())
	r.Use(middleware.CSRF(csrfConfig))
	slog.Info("CSRF protection initialized", "secure", !cfg.IsDevelopment())

	// Rehydrate the session user on every request
	r.Use(middleware.LoadUser(sessionManager, db))

	// Initialize handlers
	authHandler := handler.NewAuthHandler(db, renderer, sessionManager)
	postsHandler := handler.NewPostsHandler(db, renderer, sessionManager)
	staticHandler := handler.NewStaticHandler(renderer)

	// Public routes
	r.Get(handler.RouteRoot, postsHandler.List)
	r.Get(handler.RoutePost, postsHandler.Show)
	r.Post(handler.RoutePost, postsHandler.CreateComment)
	r.Get(handler.RouteAbout, staticHandler.About)
	r.Get(handler.RouteContact, staticHandler.Contact)

	// Auth routes
	r.Get(handler.RouteRegister, authHandler.RegisterForm)
	r.Post(handler.RouteRegister, authHandler.Register)
	r.Get(handler.RouteLogin, authHandler.LoginForm)
	r.Post(handler.RouteLogin, authHandler.Login)
	r.Get(handler.RouteLogout, authHandler.Logout)

	// Post management routes, admin only
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin(eventService))
		r.Get(handler.RouteNewPost, postsHandler.NewForm)
		r.Post(handler.RouteNewPost, postsHandler.Create)
		r.Get(handler.RouteEditPost, postsHandler.EditForm)
		r.Post(handler.RouteEditPost, postsHandler.Update)
		r.Get(handler.RouteDelete, postsHandler.Delete)
	})

	// Create server with appropriate timeouts
	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	// Start server in goroutine
	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", versionInfo.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
