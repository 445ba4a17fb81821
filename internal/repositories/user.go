package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/desertthunder/modulearn/internal/models"
	"github.com/desertthunder/modulearn/internal/shared"
)

// UserRepository implements [models.CredentialStore] for the self-hosted auth provider.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new [UserRepository] with the given database connection
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a credential, generating an id when none is set.
// Emails are stored lower-cased and must be unique.
func (r *UserRepository) Create(ctx context.Context, c *models.Credential) error {
	if c.ID == "" {
		c.ID = shared.GenerateID()
	}
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	if c.Email == "" {
		return fmt.Errorf("%w: email is required", shared.ErrInvalidInput)
	}
	if c.Provider == "" {
		c.Provider = "email"
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO users (id, email, password_hash, full_name, provider, created_at) VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query, c.ID, c.Email, c.PasswordHash, c.FullName, c.Provider, c.CreatedAt)
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("%w: %s", shared.ErrUserExists, c.Email)
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// Get retrieves a credential by id.
func (r *UserRepository) Get(ctx context.Context, id string) (*models.Credential, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByEmail retrieves a credential by case-insensitive email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.Credential, error) {
	return r.findOne(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (r *UserRepository) findOne(ctx context.Context, where string, arg any) (*models.Credential, error) {
	query := `
		SELECT id, email, COALESCE(password_hash, ''), COALESCE(full_name, ''), provider, created_at
		FROM users
		WHERE ` + where

	var c models.Credential
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&c.ID, &c.Email, &c.PasswordHash, &c.FullName, &c.Provider, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user not found", shared.ErrInvalidCredentials)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &c, nil
}

// Revoke records a signed-out token until its natural expiry and prunes expired entries.
func (r *UserRepository) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM revoked_tokens WHERE expires_at < ?", time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to prune revoked tokens: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO revoked_tokens (token_id, expires_at) VALUES (?, ?)", tokenID, expiresAt.UTC()); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return tx.Commit()
}

// IsRevoked reports whether tokenID was signed out.
func (r *UserRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM revoked_tokens WHERE token_id = ?)", tokenID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check token: %w", err)
	}
	return exists, nil
}
