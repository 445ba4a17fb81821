package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/desertthunder/modulearn/internal/models"
	"github.com/desertthunder/modulearn/internal/repositories"
	"github.com/desertthunder/modulearn/internal/services"
	"github.com/desertthunder/modulearn/internal/shared"
)

// backends holds the collaborators built from the config, plus whatever needs closing.
type backends struct {
	auth       services.AuthService
	profiles   models.ProfileStore
	completion services.CompletionService
	videos     services.VideoSearcher

	db   *sql.DB
	pool *pgxpool.Pool
}

// Close releases open database handles. Safe to call more than once.
func (b *backends) Close() {
	if b.db != nil {
		b.db.Close()
		b.db = nil
	}
	if b.pool != nil {
		b.pool.Close()
		b.pool = nil
	}
}

// openBackends wires the auth provider, profile store, completion provider and
// video search selected by config. Providers without credentials stay nil so
// commands can report them as not configured.
func openBackends(ctx context.Context, config *shared.Config, client *http.Client, logger *log.Logger) (*backends, error) {
	if client == nil {
		client = &http.Client{Timeout: config.Completion.Timeout()}
	}
	b := &backends{}

	switch config.Database.Driver {
	case shared.DriverSQLite:
		if err := b.openSQLite(config); err != nil {
			return nil, err
		}
		b.profiles = repositories.NewProfileRepository(b.db)
	case shared.DriverPostgres:
		pool, err := shared.NewPool(ctx, config.Database.URL, config.Database.MaxOpenConns)
		if err != nil {
			return nil, err
		}
		b.pool = pool
		if err := shared.RunPoolMigrations(ctx, pool); err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		b.profiles = repositories.NewPostgresProfileRepository(pool)
	default:
		b.profiles = repositories.NewRESTProfileRepository(config.Auth.URL, config.Auth.AnonKey, client)
	}

	switch config.Auth.Provider {
	case shared.ProviderLocal:
		if b.db == nil {
			if err := b.openSQLite(config); err != nil {
				b.Close()
				return nil, err
			}
		}
		local, err := services.NewLocalAuth(repositories.NewUserRepository(b.db), services.LocalAuthOptions{
			Secret:       config.Auth.JWTSecret,
			SessionTTL:   time.Duration(config.Auth.SessionHours) * time.Hour,
			ClientID:     config.Auth.Google.ClientID,
			ClientSecret: config.Auth.Google.ClientSecret,
			RedirectURL:  config.Auth.RedirectURL,
		})
		if err != nil {
			b.Close()
			return nil, err
		}
		b.auth = local
	default:
		b.auth = services.NewSupabaseAuth(config.Auth.URL, config.Auth.AnonKey, "google", client)
	}

	completion, err := openCompletion(ctx, config.Completion, client)
	switch {
	case errors.Is(err, shared.ErrNotConfigured):
		logger.Debug("completion provider not configured", "provider", config.Completion.Provider)
	case err != nil:
		b.Close()
		return nil, err
	default:
		b.completion = completion
	}

	videos, err := services.NewYouTubeSearch(ctx, services.YouTubeOptions{
		APIKey:     config.YouTube.APIKey,
		SafeSearch: config.YouTube.SafeSearch,
	})
	switch {
	case errors.Is(err, shared.ErrNotConfigured):
		logger.Debug("video search not configured")
	case err != nil:
		b.Close()
		return nil, err
	default:
		b.videos = videos
	}

	return b, nil
}

func (b *backends) openSQLite(config *shared.Config) error {
	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	b.db = db
	return nil
}

func openCompletion(ctx context.Context, c shared.CompletionConfig, client *http.Client) (services.CompletionService, error) {
	if c.APIKey == "" {
		return nil, shared.ErrNotConfigured
	}
	switch c.Provider {
	case shared.CompletionGemini:
		baseURL := c.BaseURL
		if strings.Contains(baseURL, "groq.com") {
			baseURL = ""
		}
		return services.NewGeminiService(ctx, services.GeminiOptions{
			APIKey:     c.APIKey,
			Model:      c.Model,
			BaseURL:    baseURL,
			HTTPClient: client,
		})
	case shared.CompletionGroq, "":
		return services.NewGroqService(c.APIKey, c.Model, c.BaseURL, client), nil
	default:
		return nil, fmt.Errorf("%w: unknown completion provider %q", shared.ErrInvalidConfig, c.Provider)
	}
}
