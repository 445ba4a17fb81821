package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/desertthunder/modulearn/internal/models"
	"github.com/desertthunder/modulearn/internal/repositories"
	"github.com/desertthunder/modulearn/internal/shared"
)

func (r *Runner) saveSession(s *models.Session) error {
	data, err := shared.MarshalJSON(s, true)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.sessionPath), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	if err := os.WriteFile(r.sessionPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	r.logger.Debug("session saved", "path", r.sessionPath)
	return nil
}

// loadSession reads the stored session. A missing file means signed out.
func (r *Runner) loadSession() (*models.Session, error) {
	data, err := os.ReadFile(r.sessionPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: run `modulearn auth login` first", shared.ErrNotAuthenticated)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var s models.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: stored session is corrupt, sign in again", shared.ErrNotAuthenticated)
	}
	if s.AccessToken == "" {
		return nil, shared.ErrNotAuthenticated
	}
	if s.Expired(time.Now()) {
		return nil, shared.ErrTokenExpired
	}
	return &s, nil
}

func (r *Runner) clearSession() error {
	if err := os.Remove(r.sessionPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}

// caller verifies the stored session with the backend and returns a context that
// carries the access token for the hosted profile store.
func (r *Runner) caller(ctx context.Context) (context.Context, *models.Identity, error) {
	s, err := r.loadSession()
	if err != nil {
		return ctx, nil, err
	}
	id, err := r.auth.Identify(ctx, s.AccessToken)
	if err != nil {
		return ctx, nil, err
	}
	return repositories.WithAccessToken(ctx, s.AccessToken), id, nil
}
