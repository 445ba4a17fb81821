package shared

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed sql/*.sql
var migrationFiles embed.FS

// Migration represents a database migration with up and down SQL.
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// migrator abstracts the bookkeeping differences between database/sql (sqlite) and pgx (postgres).
type migrator interface {
	ensureTable(ctx context.Context) error
	applied(ctx context.Context, version int) (bool, error)
	current(ctx context.Context) (version int, count int, err error)
	apply(ctx context.Context, m Migration) error
	revert(ctx context.Context, m Migration) error
}

// loadMigrations reads all migration files from the embedded filesystem and returns them sorted by version.
//
// File names follow "NNNN_name_up.sql" / "NNNN_name_down.sql".
func loadMigrations() ([]Migration, error) {
	entries, err := migrationFiles.ReadDir("sql")
	if err != nil {
		return nil, fmt.Errorf("failed to read migration directory: %w", err)
	}

	byVersion := make(map[int]*Migration)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}

		prefix, rest, ok := strings.Cut(name, "_")
		if !ok {
			continue
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			continue
		}

		content, err := migrationFiles.ReadFile(path.Join("sql", name))
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", name, err)
		}

		m := byVersion[version]
		if m == nil {
			m = &Migration{Version: version}
			byVersion[version] = m
		}

		switch {
		case strings.HasSuffix(rest, "_up.sql"):
			m.Name = strings.TrimSuffix(rest, "_up.sql")
			m.Up = string(content)
		case strings.HasSuffix(rest, "_down.sql"):
			m.Down = string(content)
		}
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.Up == "" || m.Down == "" {
			return nil, fmt.Errorf("incomplete migration for version %d", m.Version)
		}
		migrations = append(migrations, *m)
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// RunMigrations executes all pending migrations on a SQLite database.
// Applied versions are tracked in schema_migrations.
func RunMigrations(db *sql.DB) error {
	return runMigrations(context.Background(), sqliteMigrator{db})
}

// RollbackMigration rolls back the most recent migration on a SQLite database.
func RollbackMigration(db *sql.DB) error {
	return rollback(context.Background(), sqliteMigrator{db})
}

// RunPoolMigrations executes all pending migrations on a PostgreSQL pool.
func RunPoolMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	return runMigrations(ctx, pgMigrator{pool})
}

// RollbackPoolMigration rolls back the most recent migration on a PostgreSQL pool.
func RollbackPoolMigration(ctx context.Context, pool *pgxpool.Pool) error {
	return rollback(ctx, pgMigrator{pool})
}

func runMigrations(ctx context.Context, m migrator) error {
	migrations, err := loadMigrations()
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	if err := m.ensureTable(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, migration := range migrations {
		done, err := m.applied(ctx, migration.Version)
		if err != nil {
			return fmt.Errorf("failed to check migration status: %w", err)
		}
		if done {
			continue
		}
		if err := m.apply(ctx, migration); err != nil {
			return fmt.Errorf("failed to apply migration %d (%s): %w", migration.Version, migration.Name, err)
		}
	}
	return nil
}

func rollback(ctx context.Context, m migrator) error {
	migrations, err := loadMigrations()
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	if err := m.ensureTable(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	version, count, err := m.current(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("no migrations to rollback")
	}

	for _, migration := range migrations {
		if migration.Version == version {
			if err := m.revert(ctx, migration); err != nil {
				return fmt.Errorf("failed to rollback migration %d: %w", migration.Version, err)
			}
			return nil
		}
	}
	return fmt.Errorf("migration version %d not found", version)
}

// splitStatements breaks a migration body into executable statements with comments removed.
func splitStatements(body string) []string {
	var out []string
	for _, stmt := range strings.Split(body, ";") {
		var lines []string
		for _, line := range strings.Split(stmt, "\n") {
			if idx := strings.Index(line, "--"); idx >= 0 {
				line = line[:idx]
			}
			if line = strings.TrimSpace(line); line != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) > 0 {
			out = append(out, strings.Join(lines, "\n"))
		}
	}
	return out
}

const createMigrationsTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

type sqliteMigrator struct{ db *sql.DB }

func (s sqliteMigrator) ensureTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, createMigrationsTable)
	return err
}

func (s sqliteMigrator) applied(ctx context.Context, version int) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = ?)", version).Scan(&exists)
	return exists, err
}

func (s sqliteMigrator) current(ctx context.Context) (int, int, error) {
	var version, count int
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0), COUNT(*) FROM schema_migrations").Scan(&version, &count)
	return version, count, err
}

func (s sqliteMigrator) apply(ctx context.Context, m Migration) error {
	return s.inTx(ctx, m.Up, "INSERT INTO schema_migrations (version) VALUES (?)", m.Version)
}

func (s sqliteMigrator) revert(ctx context.Context, m Migration) error {
	return s.inTx(ctx, m.Down, "DELETE FROM schema_migrations WHERE version = ?", m.Version)
}

func (s sqliteMigrator) inTx(ctx context.Context, body, record string, version int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range splitStatements(body) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute statement: %w\nStatement: %s", err, stmt)
		}
	}
	if _, err := tx.ExecContext(ctx, record, version); err != nil {
		return err
	}
	return tx.Commit()
}

type pgMigrator struct{ pool *pgxpool.Pool }

func (p pgMigrator) ensureTable(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, createMigrationsTable)
	return err
}

func (p pgMigrator) applied(ctx context.Context, version int) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", version).Scan(&exists)
	return exists, err
}

func (p pgMigrator) current(ctx context.Context) (int, int, error) {
	var version, count int
	err := p.pool.QueryRow(ctx, "SELECT COALESCE(MAX(version), 0), COUNT(*) FROM schema_migrations").Scan(&version, &count)
	return version, count, err
}

func (p pgMigrator) apply(ctx context.Context, m Migration) error {
	return p.inTx(ctx, m.Up, "INSERT INTO schema_migrations (version) VALUES ($1)", m.Version)
}

func (p pgMigrator) revert(ctx context.Context, m Migration) error {
	return p.inTx(ctx, m.Down, "DELETE FROM schema_migrations WHERE version = $1", m.Version)
}

func (p pgMigrator) inTx(ctx context.Context, body, record string, version int) error {
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		for _, stmt := range splitStatements(body) {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("failed to execute statement: %w\nStatement: %s", err, stmt)
			}
		}
		_, err := tx.Exec(ctx, record, version)
		return err
	})
}
