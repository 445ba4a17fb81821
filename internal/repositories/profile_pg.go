package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/desertthunder/modulearn/internal/models"
	"github.com/desertthunder/modulearn/internal/shared"
)

// PostgresProfileRepository implements [models.ProfileStore] on a pgx pool.
type PostgresProfileRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgresProfileRepository creates a [PostgresProfileRepository].
func NewPostgresProfileRepository(pool *pgxpool.Pool) *PostgresProfileRepository {
	return &PostgresProfileRepository{pool: pool, now: time.Now}
}

func (r *PostgresProfileRepository) Get(ctx context.Context, id string) (*models.UserProfile, error) {
	var (
		row       profileRow
		updatedAt *time.Time
	)

	err := r.pool.QueryRow(ctx, selectProfile+" WHERE id = $1", id).Scan(append(row.dest(), &updatedAt)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrProfileNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}
	return row.profile(updatedAt), nil
}

func (r *PostgresProfileRepository) Upsert(ctx context.Context, id string, update models.ProfileUpdate) error {
	if id == "" {
		return fmt.Errorf("%w: profile id is required", shared.ErrInvalidInput)
	}

	query, args := upsertQuery(id, profileColumns(update, r.now()), func(n int) string { return fmt.Sprintf("$%d", n) })
	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}
