package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Auth and database providers.
const (
	ProviderHosted = "hosted"
	ProviderLocal  = "local"

	DriverHosted   = "hosted"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	CompletionGroq   = "groq"
	CompletionGemini = "gemini"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Auth       AuthConfig       `toml:"auth"`
	Database   DatabaseConfig   `toml:"database"`
	Completion CompletionConfig `toml:"completion"`
	YouTube    YouTubeConfig    `toml:"youtube"`
	Server     ServerConfig     `toml:"server"`
}

// AuthConfig contains the authentication backend settings.
type AuthConfig struct {
	Provider     string       `toml:"provider"`
	URL          string       `toml:"url"`
	AnonKey      string       `toml:"anon_key"`
	RedirectURL  string       `toml:"redirect_url"`
	JWTSecret    string       `toml:"jwt_secret"`
	SessionHours int          `toml:"session_hours"`
	Google       GoogleConfig `toml:"google"`
}

// GoogleConfig contains Google OAuth client credentials for the local provider.
type GoogleConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Driver       string `toml:"driver"`
	Path         string `toml:"path"`
	URL          string `toml:"url"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// CompletionConfig selects and configures the LLM completion provider.
type CompletionConfig struct {
	Provider       string `toml:"provider"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Timeout returns the configured request timeout, defaulting to one minute.
func (c CompletionConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// YouTubeConfig contains YouTube Data API settings.
type YouTubeConfig struct {
	APIKey     string `toml:"api_key"`
	MaxResults int    `toml:"max_results"`
	SafeSearch string `toml:"safe_search"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host              string `toml:"host"`
	Port              int    `toml:"port"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
	Burst             int    `toml:"burst"`
}

// Addr returns host:port for [net/http.Server].
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %w", ErrMissingConfig, err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %w", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes config to path as TOML. Comments from the template are not preserved.
func SaveConfig(path string, config *Config) error {
	if config == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ApplyEnv overrides secrets and endpoints from the environment.
// Empty variables leave the file value untouched.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	set(&c.Auth.URL, "SUPABASE_URL")
	set(&c.Auth.AnonKey, "SUPABASE_ANON_KEY")
	set(&c.Auth.JWTSecret, "MODULEARN_JWT_SECRET")
	set(&c.Auth.Google.ClientID, "GOOGLE_CLIENT_ID")
	set(&c.Auth.Google.ClientSecret, "GOOGLE_CLIENT_SECRET")
	set(&c.Database.URL, "DATABASE_URL")
	set(&c.YouTube.APIKey, "YOUTUBE_API_KEY")

	switch c.Completion.Provider {
	case CompletionGemini:
		set(&c.Completion.APIKey, "GEMINI_API_KEY")
	default:
		set(&c.Completion.APIKey, "GROQ_API_KEY")
	}
}

// IsConfigured reports whether the hosted backend URL looks like a real project
// rather than the placeholder shipped in the example config.
func IsConfigured(url string) bool {
	url = strings.TrimSpace(url)
	if url == "" {
		return false
	}
	return !strings.Contains(url, "your-project-ref") && !strings.Contains(url, "placeholder")
}

// BackendConfigured reports whether the auth backend can be used at all.
func (c *Config) BackendConfigured() bool {
	if c.Auth.Provider == ProviderLocal {
		return c.Auth.JWTSecret != ""
	}
	return IsConfigured(c.Auth.URL) && c.Auth.AnonKey != ""
}
