package models

import (
	"context"
	"time"
)

// ProfileStore reads and upserts learner profiles keyed by identity id.
type ProfileStore interface {
	// Get returns [shared.ErrProfileNotFound] when no row exists.
	Get(ctx context.Context, id string) (*UserProfile, error)
	// Upsert creates or merges the row; only non-nil fields of update are written.
	Upsert(ctx context.Context, id string, update ProfileUpdate) error
}

// Credential is a locally managed login.
type Credential struct {
	ID           string
	Email        string
	PasswordHash string
	FullName     string
	Provider     string
	CreatedAt    time.Time
}

// CredentialStore persists local logins and revoked session tokens.
type CredentialStore interface {
	Create(ctx context.Context, c *Credential) error
	FindByEmail(ctx context.Context, email string) (*Credential, error)
	Get(ctx context.Context, id string) (*Credential, error)
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
