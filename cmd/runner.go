package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/modulearn/internal/auth"
	"github.com/desertthunder/modulearn/internal/curriculum"
	"github.com/desertthunder/modulearn/internal/models"
	"github.com/desertthunder/modulearn/internal/services"
	"github.com/desertthunder/modulearn/internal/shared"
	"github.com/desertthunder/modulearn/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config      *shared.Config
	configPath  string
	sessionPath string
	auth        *auth.Service
	videos      services.VideoSearcher
	httpClient  *http.Client
	logger      *log.Logger
	output      io.Writer
	engine      *tasks.PathEngine
	openBrowser func(ctx context.Context, url string) error
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	// SessionPath is where `auth login` stores the session (default: ~/.modulearn/session.json).
	SessionPath string
	Auth        services.AuthService
	Profiles    models.ProfileStore
	// Completion and Videos may be nil when no key is configured.
	Completion services.CompletionService
	Videos     services.VideoSearcher
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	// OpenBrowser launches the sign-in page; defaults to [shared.OpenBrowser].
	OpenBrowser func(ctx context.Context, url string) error
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.ConfigPath == "" {
		opts.ConfigPath = "config.toml"
	}
	if opts.SessionPath == "" {
		opts.SessionPath = defaultSessionPath()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}

	svc := auth.NewService(opts.Auth, opts.Profiles, opts.Config.BackendConfigured(), opts.Logger)
	generator := curriculum.NewGenerator(opts.Completion, opts.Logger)
	engine := tasks.NewPathEngine(svc, generator, opts.Videos, opts.Logger)

	return &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		sessionPath: opts.SessionPath,
		auth:        svc,
		videos:      opts.Videos,
		httpClient:  opts.HTTPClient,
		logger:      opts.Logger,
		output:      opts.Output,
		engine:      engine,
		openBrowser: opts.OpenBrowser,
	}
}

func defaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".modulearn", "session.json")
	}
	return filepath.Join(home, ".modulearn", "session.json")
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, authCommand, profileCommand, onboardCommand, pathCommand, videosCommand, learnCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger swaps the logger, e.g. to a file while a TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

// printProgress drains progress until it is closed, echoing each update.
func (r *Runner) printProgress(progress <-chan tasks.ProgressUpdate, done chan<- struct{}) {
	for update := range progress {
		r.logger.Debug("progress", "phase", update.Phase, "step", update.Step, "total", update.Total)
		r.writePlain("→ [%s %d/%d] %s\n", update.Phase, update.Step, update.Total, update.Message)
	}
	close(done)
}
