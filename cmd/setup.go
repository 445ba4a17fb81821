package main

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/modulearn/internal/shared"
)

// SetupConfig writes config.toml from the embedded template, then applies any
// provider flags to it.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	if configPath == "" {
		configPath = r.configPath
	}

	overrides := map[string]string{}
	for _, name := range []string{"auth", "database", "completion"} {
		if cmd.IsSet(name) {
			overrides[name] = cmd.String(name)
		}
	}

	_, statErr := os.Stat(configPath)
	exists := statErr == nil
	if exists && len(overrides) == 0 {
		return fmt.Errorf("config file already exists at %s", configPath)
	}
	if !exists {
		if err := shared.CreateConfigFile(configPath); err != nil {
			return err
		}
		r.logger.Info("config file created", "path", configPath)
	}

	if len(overrides) > 0 {
		config, err := shared.LoadConfig(configPath)
		if err != nil {
			return err
		}
		if err := applyProviderFlags(config, overrides); err != nil {
			return err
		}
		if err := shared.SaveConfig(configPath, config); err != nil {
			return err
		}
		r.logger.Info("config updated", "path", configPath, "overrides", overrides)
	}

	r.writePlain("✓ Config written to %s\n", configPath)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set the auth provider and keys (or SUPABASE_URL / SUPABASE_ANON_KEY in .env)\n")
	r.writePlain("2. Add a completion key (GROQ_API_KEY or GEMINI_API_KEY)\n")
	r.writePlain("3. Run 'modulearn setup database' if you store profiles in sqlite or postgres\n")
	return nil
}

func applyProviderFlags(config *shared.Config, overrides map[string]string) error {
	check := func(flag, value string, allowed ...string) error {
		if !slices.Contains(allowed, value) {
			return fmt.Errorf("%w: --%s must be one of %v, got %q", shared.ErrInvalidArgument, flag, allowed, value)
		}
		return nil
	}

	if v, ok := overrides["auth"]; ok {
		if err := check("auth", v, shared.ProviderHosted, shared.ProviderLocal); err != nil {
			return err
		}
		config.Auth.Provider = v
	}
	if v, ok := overrides["database"]; ok {
		if err := check("database", v, shared.DriverHosted, shared.DriverSQLite, shared.DriverPostgres); err != nil {
			return err
		}
		config.Database.Driver = v
	}
	if v, ok := overrides["completion"]; ok {
		if err := check("completion", v, shared.CompletionGroq, shared.CompletionGemini); err != nil {
			return err
		}
		if v != config.Completion.Provider {
			// model and endpoint are provider specific
			config.Completion.Model = ""
			config.Completion.BaseURL = ""
		}
		config.Completion.Provider = v
	}
	return nil
}

// SetupDatabase initializes the database and runs (or rolls back) migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config := r.config
	if configPath != "" && configPath != r.configPath {
		loaded, err := shared.LoadConfig(configPath)
		if err != nil {
			return err
		}
		loaded.ApplyEnv(os.Getenv)
		config = loaded
	}
	rollback := cmd.Bool("rollback")

	driver := config.Database.Driver
	if driver != shared.DriverPostgres && config.Auth.Provider == shared.ProviderLocal {
		// local credentials always live in sqlite
		driver = shared.DriverSQLite
	}

	switch driver {
	case shared.DriverPostgres:
		r.logger.Info("connecting to postgres")
		pool, err := shared.NewPool(ctx, config.Database.URL, config.Database.MaxOpenConns)
		if err != nil {
			return err
		}
		defer pool.Close()

		if rollback {
			if err := shared.RollbackPoolMigration(ctx, pool); err != nil {
				return fmt.Errorf("failed to roll back migration: %w", err)
			}
			return r.writePlain("✓ Rolled back the latest migration\n")
		}
		if err := shared.RunPoolMigrations(ctx, pool); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		return r.writePlain("✓ Postgres schema is up to date\n")

	case shared.DriverSQLite:
		r.logger.Info("initializing database", "path", config.Database.Path)
		db, err := shared.NewDatabase(config.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to create database: %w", err)
		}
		defer db.Close()

		shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

		if rollback {
			if err := shared.RollbackMigration(db); err != nil {
				return fmt.Errorf("failed to roll back migration: %w", err)
			}
			return r.writePlain("✓ Rolled back the latest migration\n")
		}

		r.logger.Info("running database migrations")
		if err := shared.RunMigrations(db); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		r.logger.Infof("setup complete for database: %v", config.Database.Path)
		return r.writePlain("✓ Database ready at %s\n", config.Database.Path)

	default:
		return r.writePlain("Profiles are stored by the hosted backend; nothing to migrate.\n")
	}
}
