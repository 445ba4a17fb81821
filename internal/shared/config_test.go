package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./modulearn.db" {
			t.Errorf("expected database path ./modulearn.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Completion.Model != "llama-3.3-70b-versatile" {
			t.Errorf("expected groq model, got %s", config.Completion.Model)
		}

		if config.YouTube.MaxResults != 2 {
			t.Errorf("expected 2 video results, got %d", config.YouTube.MaxResults)
		}

		if config.BackendConfigured() {
			t.Error("placeholder auth url should not count as configured")
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[auth]
provider = "local"
jwt_secret = "s3cret"

[database]
driver = "sqlite"
path = "/custom/path.db"

[completion]
provider = "gemini"
model = "gemini-2.5-flash"
timeout_seconds = 5

[server]
host = "0.0.0.0"
port = 8080
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}
		if config.Server.Addr() != "0.0.0.0:8080" {
			t.Errorf("expected addr 0.0.0.0:8080, got %s", config.Server.Addr())
		}
		if config.Completion.Timeout() != 5*time.Second {
			t.Errorf("expected 5s timeout, got %v", config.Completion.Timeout())
		}
		if !config.BackendConfigured() {
			t.Error("local provider with a secret should be configured")
		}
		if config.YouTube.MaxResults != 2 {
			t.Errorf("unset keys should keep defaults, got max_results=%d", config.YouTube.MaxResults)
		}
	})

	t.Run("SaveConfig round trip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		config := DefaultConfig()
		config.Auth.Provider = ProviderLocal
		config.Database.Driver = DriverSQLite
		config.Server.Port = 4000

		if err := SaveConfig(path, config); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		loaded, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("failed to reload: %v", err)
		}
		if loaded.Auth.Provider != ProviderLocal || loaded.Database.Driver != DriverSQLite || loaded.Server.Port != 4000 {
			t.Errorf("unexpected config %+v", loaded)
		}
	})

	t.Run("SaveConfig nil", func(t *testing.T) {
		if err := SaveConfig(filepath.Join(t.TempDir(), "c.toml"), nil); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("LoadConfig missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		env := map[string]string{
			"SUPABASE_URL":      "https://abc.supabase.co",
			"SUPABASE_ANON_KEY": "anon",
			"GROQ_API_KEY":      "gsk_test",
			"YOUTUBE_API_KEY":   " yt ",
		}
		config := DefaultConfig()
		config.ApplyEnv(func(k string) string { return env[k] })

		if config.Auth.URL != "https://abc.supabase.co" {
			t.Errorf("expected env url, got %s", config.Auth.URL)
		}
		if config.Completion.APIKey != "gsk_test" {
			t.Errorf("expected groq key from env, got %s", config.Completion.APIKey)
		}
		if config.YouTube.APIKey != "yt" {
			t.Errorf("expected trimmed youtube key, got %q", config.YouTube.APIKey)
		}
		if config.Auth.JWTSecret != "change-me" {
			t.Errorf("unset env should keep file value, got %s", config.Auth.JWTSecret)
		}
		if !config.BackendConfigured() {
			t.Error("expected backend configured after env override")
		}
	})
}
