package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/modulearn/internal/models"
	"github.com/desertthunder/modulearn/internal/shared"
)

// ProfileRepository implements [models.ProfileStore] on SQLite.
type ProfileRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewProfileRepository creates a new [ProfileRepository] with the given database connection
func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db, now: time.Now}
}

// Get retrieves a profile by identity id.
func (r *ProfileRepository) Get(ctx context.Context, id string) (*models.UserProfile, error) {
	var (
		row       profileRow
		updatedAt sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, selectProfile+" WHERE id = ?", id).Scan(append(row.dest(), &updatedAt)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrProfileNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}

	var ts *time.Time
	if updatedAt.Valid {
		ts = &updatedAt.Time
	}
	return row.profile(ts), nil
}

// Upsert inserts the row or merges the provided columns into the existing one.
func (r *ProfileRepository) Upsert(ctx context.Context, id string, update models.ProfileUpdate) error {
	if id == "" {
		return fmt.Errorf("%w: profile id is required", shared.ErrInvalidInput)
	}

	query, args := upsertQuery(id, profileColumns(update, r.now()), func(int) string { return "?" })
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

// upsertQuery builds INSERT ... ON CONFLICT(id) DO UPDATE over cols only.
// placeholder receives the 1-based argument position.
func upsertQuery(id string, cols []column, placeholder func(int) string) (string, []any) {
	names := []string{"id"}
	marks := []string{placeholder(1)}
	sets := make([]string, 0, len(cols))
	args := []any{id}

	for i, c := range cols {
		quoted := `"` + c.name + `"`
		names = append(names, quoted)
		marks = append(marks, placeholder(i+2))
		sets = append(sets, fmt.Sprintf("%s = excluded.%s", quoted, quoted))
		args = append(args, c.sqlValue())
	}

	query := fmt.Sprintf(
		"INSERT INTO profiles (%s) VALUES (%s) ON CONFLICT (id) DO UPDATE SET %s",
		strings.Join(names, ", "), strings.Join(marks, ", "), strings.Join(sets, ", "),
	)
	return query, args
}
