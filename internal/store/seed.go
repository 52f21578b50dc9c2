package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/blog-go/internal/auth"
)

// Default admin credentials used when seeding is enabled.
const (
	DefaultAdminEmail    = "admin@example.com"
	DefaultAdminPassword = "changeme"
	DefaultAdminName     = "Administrator"
)

// Seed creates the default admin account when seeding is enabled and no
// users exist yet. Without seeding, the first registered account becomes
// the admin instead.
func Seed(ctx context.Context, db *sql.DB, doSeed bool) error {
	if !doSeed {
		return nil
	}

	// Check-then-create runs in one transaction so concurrent starts
	// cannot both seed.
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning seed transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	queries := New(db).WithTx(tx)

	count, err := queries.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("counting users: %w", err)
	}
	if count > 0 {
		slog.Info("users already exist, skipping seed")
		return nil
	}

	_, err = queries.GetUserByEmail(ctx, DefaultAdminEmail)
	if err == nil {
		slog.Info("admin user already exists, skipping seed")
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("checking for admin user: %w", err)
	}

	passwordHash, err := auth.HashPassword(DefaultAdminPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	now := time.Now()
	user, err := queries.CreateUser(ctx, CreateUserParams{
		Email:        DefaultAdminEmail,
		PasswordHash: passwordHash,
		Role:         RoleAdmin,
		Name:         DefaultAdminName,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return fmt.Errorf("creating admin user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing seed transaction: %w", err)
	}

	slog.Info("created default admin user",
		"id", user.ID,
		"email", user.Email,
		"password", DefaultAdminPassword,
	)

	return nil
}
