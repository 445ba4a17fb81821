package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/modulearn/internal/auth"
	"github.com/desertthunder/modulearn/internal/curriculum"
	"github.com/desertthunder/modulearn/internal/models"
	"github.com/desertthunder/modulearn/internal/services"
	"github.com/desertthunder/modulearn/internal/shared"
	tu "github.com/desertthunder/modulearn/internal/testing"
)

const generated = `{"title": "Intro to Rust", "description": "Basics", "modules": [
  {"title": "Ownership", "description": "Moves", "estimatedMinutes": 45, "subtopics": ["Moves", "Borrows"]},
  {"title": "Traits", "description": "Behaviour", "estimatedMinutes": 30, "subtopics": ["Impl blocks"]}
]}`

const savedCurriculum = `{"title": "Intro to Rust", "description": "Basics", "educationLevel": "college", "modules": [
  {"id": "module_1", "title": "Ownership", "description": "Moves", "estimatedMinutes": 45, "subtopics": ["Moves", "Borrows"]},
  {"id": "module_2", "title": "Traits", "description": "Behaviour", "estimatedMinutes": 30, "subtopics": ["Impl blocks"]}
]}`

var testSession = &models.Session{
	AccessToken: "access",
	User:        models.Identity{ID: "u1", Email: "ada@example.com"},
}

func onboardedProfile() models.UserProfile {
	return models.UserProfile{
		ID:             "u1",
		FullName:       "Ada",
		Email:          "ada@example.com",
		Languages:      []string{"German"},
		EducationLevel: models.LevelCollege,
		Field:          "Science",
		Course:         "Physics",
		Onboarded:      true,
	}
}

type harness struct {
	runner     *Runner
	output     *bytes.Buffer
	auth       *tu.MockAuth
	profiles   *tu.MemoryProfiles
	completion *tu.MockCompletion
	dir        string
}

func newHarness(t *testing.T, seed ...models.UserProfile) *harness {
	t.Helper()
	dir := t.TempDir()

	config := shared.DefaultConfig()
	config.Auth.URL = "https://test-project.supabase.co"
	config.Auth.AnonKey = "anon"

	h := &harness{
		output:     &bytes.Buffer{},
		auth:       &tu.MockAuth{Session: testSession},
		profiles:   tu.NewMemoryProfiles(seed...),
		completion: &tu.MockCompletion{},
		dir:        dir,
	}
	h.runner = NewRunner(RunnerOpts{
		Config:      config,
		SessionPath: filepath.Join(dir, "session.json"),
		Auth:        h.auth,
		Profiles:    h.profiles,
		Completion:  h.completion,
		Logger:      shared.NewLogger(&bytes.Buffer{}),
		Output:      h.output,
	})
	return h
}

func (h *harness) run(args ...string) error {
	app := &cli.Command{Name: "modulearn", Commands: h.runner.register()}
	return app.Run(context.Background(), append([]string{"modulearn"}, args...))
}

func (h *harness) signIn(t *testing.T) {
	t.Helper()
	if err := h.runner.saveSession(testSession); err != nil {
		t.Fatalf("failed to save session: %v", err)
	}
}

func (h *harness) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(h.dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func readSaved(t *testing.T, path string) models.GeneratedCurriculum {
	t.Helper()
	var c models.GeneratedCurriculum
	if err := json.Unmarshal([]byte(tu.MustReadFile(t, path)), &c); err != nil {
		t.Fatalf("saved curriculum is not JSON: %v", err)
	}
	return c
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			videos := &tu.MockVideos{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Videos:     videos,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.videos != videos {
				t.Error("expected videos to be set")
			}
			if runner.auth == nil || runner.engine == nil {
				t.Error("expected auth service and engine to be built")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})
			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.auth.Configured() {
				t.Error("the template config should not count as configured")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil httpClient uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{HTTPClient: nil})
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})

		t.Run("default paths", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.configPath != "config.toml" {
				t.Errorf("expected config.toml, got %s", runner.configPath)
			}
			if !strings.HasSuffix(runner.sessionPath, filepath.Join(".modulearn", "session.json")) {
				t.Errorf("unexpected session path %s", runner.sessionPath)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if expected := `{"key":"value"}` + "\n"; output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("writePlainln pads with newlines", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			runner.writePlainln("done")
			if output.String() != "\ndone\n" {
				t.Errorf("got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		names := map[string]bool{}
		for i, cmd := range runner.register() {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}

		for _, want := range []string{"setup", "serve", "auth", "profile", "onboard", "path", "videos", "learn"} {
			if !names[want] {
				t.Errorf("expected %q to be registered", want)
			}
		}
	})
}

func TestSession(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		h := newHarness(t)
		h.signIn(t)

		got, err := h.runner.loadSession()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.AccessToken != "access" || got.User.ID != "u1" {
			t.Errorf("unexpected session %+v", got)
		}

		info, err := os.Stat(h.runner.sessionPath)
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm() != 0600 {
			t.Errorf("session file should be private, got %v", info.Mode().Perm())
		}
	})

	t.Run("missing file means signed out", func(t *testing.T) {
		h := newHarness(t)
		if _, err := h.runner.loadSession(); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		h := newHarness(t)
		expired := *testSession
		expired.ExpiresAt = time.Now().Add(-time.Hour)
		if err := h.runner.saveSession(&expired); err != nil {
			t.Fatal(err)
		}
		if _, err := h.runner.loadSession(); !errors.Is(err, shared.ErrTokenExpired) {
			t.Errorf("expected ErrTokenExpired, got %v", err)
		}
	})

	t.Run("clear is idempotent", func(t *testing.T) {
		h := newHarness(t)
		h.signIn(t)
		if err := h.runner.clearSession(); err != nil {
			t.Fatal(err)
		}
		if err := h.runner.clearSession(); err != nil {
			t.Errorf("second clear should succeed, got %v", err)
		}
	})
}

func TestAuthCommands(t *testing.T) {
	t.Run("password login", func(t *testing.T) {
		h := newHarness(t, onboardedProfile())

		if err := h.run("auth", "login", "--email", "ada@example.com", "--password", "secret1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := h.output.String()
		if !strings.Contains(out, "Signed in as ada@example.com") || !strings.Contains(out, "path generate") {
			t.Errorf("unexpected output %q", out)
		}
		if _, err := h.runner.loadSession(); err != nil {
			t.Errorf("session should be stored: %v", err)
		}
	})

	t.Run("new users are sent to onboarding", func(t *testing.T) {
		h := newHarness(t)

		if err := h.run("auth", "login", "--email", "ada@example.com", "--password", "secret1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(h.output.String(), "modulearn onboard") {
			t.Errorf("expected onboarding hint, got %q", h.output.String())
		}
	})

	t.Run("browser login", func(t *testing.T) {
		h := newHarness(t, onboardedProfile())

		l, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatal(err)
		}
		port := l.Addr().(*net.TCPAddr).Port
		l.Close()
		h.runner.config.Server.Host = "127.0.0.1"
		h.runner.config.Server.Port = port

		h.runner.openBrowser = func(ctx context.Context, authURL string) error {
			u, err := url.Parse(authURL)
			if err != nil {
				return err
			}
			callback := u.Query().Get("redirect_to") + "?code=abc"
			go func() {
				for range 40 {
					resp, err := http.Get(callback)
					if err == nil {
						resp.Body.Close()
						return
					}
					time.Sleep(50 * time.Millisecond)
				}
			}()
			return nil
		}

		if err := h.run("auth", "login"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := h.auth.Exchanged(); len(got) != 1 || got[0] != "abc" {
			t.Errorf("unexpected exchanges %v", got)
		}
		if _, err := h.runner.loadSession(); err != nil {
			t.Errorf("session should be stored: %v", err)
		}
	})

	t.Run("browser login needs a configured backend", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{
			SessionPath: filepath.Join(t.TempDir(), "session.json"),
			Output:      &bytes.Buffer{},
		})
		app := &cli.Command{Name: "modulearn", Commands: runner.register()}

		err := app.Run(context.Background(), []string{"modulearn", "auth", "login"})
		if !errors.Is(err, shared.ErrNotConfigured) {
			t.Errorf("expected ErrNotConfigured, got %v", err)
		}
	})

	t.Run("signup password mismatch", func(t *testing.T) {
		h := newHarness(t)

		err := h.run("auth", "signup", "--email", "ada@example.com", "--password", "secret1", "--confirm", "secret2")
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			t.Errorf("expected ErrPasswordMismatch, got %v", err)
		}
	})

	t.Run("signup stores the session", func(t *testing.T) {
		h := newHarness(t)

		if err := h.run("auth", "signup", "--name", "Ada Lovelace", "--email", "ada@example.com", "--password", "secret1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := h.profiles.Row("new-user"); !ok {
			t.Error("expected a profile row for the new user")
		}
		if _, err := h.runner.loadSession(); err != nil {
			t.Errorf("session should be stored: %v", err)
		}
	})

	t.Run("signup awaiting confirmation", func(t *testing.T) {
		h := newHarness(t)
		h.auth.SignUpRes = &services.SignUpResult{User: models.Identity{ID: "new-user", Email: "ada@example.com"}}

		if err := h.run("auth", "signup", "--email", "ada@example.com", "--password", "secret1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(h.output.String(), auth.MsgCheckEmail) {
			t.Errorf("expected confirmation notice, got %q", h.output.String())
		}
		if _, err := h.runner.loadSession(); err == nil {
			t.Error("no session should be stored before confirmation")
		}
	})

	t.Run("logout", func(t *testing.T) {
		h := newHarness(t)
		h.signIn(t)

		if err := h.run("auth", "logout"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := h.auth.SignedOut(); len(got) != 1 || got[0] != "access" {
			t.Errorf("unexpected sign-outs %v", got)
		}
		if _, err := os.Stat(h.runner.sessionPath); !errors.Is(err, os.ErrNotExist) {
			t.Error("session file should be removed")
		}
	})

	t.Run("status", func(t *testing.T) {
		h := newHarness(t, onboardedProfile())
		h.signIn(t)

		if err := h.run("auth", "status", "--json"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var st struct {
			Authenticated bool         `json:"authenticated"`
			Email         string       `json:"email"`
			Route         models.Route `json:"route"`
		}
		if err := json.Unmarshal(h.output.Bytes(), &st); err != nil {
			t.Fatalf("status is not JSON: %v", err)
		}
		if !st.Authenticated || st.Email != "ada@example.com" || st.Route != models.RouteDashboard {
			t.Errorf("unexpected status %+v", st)
		}
	})

	t.Run("status signed out", func(t *testing.T) {
		h := newHarness(t)

		if err := h.run("auth", "status"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(h.output.String(), "Not signed in") {
			t.Errorf("unexpected output %q", h.output.String())
		}
	})
}

func TestProfileCommands(t *testing.T) {
	t.Run("show requires a session", func(t *testing.T) {
		h := newHarness(t, onboardedProfile())
		if err := h.run("profile", "show"); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("show", func(t *testing.T) {
		h := newHarness(t, onboardedProfile())
		h.signIn(t)

		if err := h.run("profile", "show", "--json"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var p models.UserProfile
		if err := json.Unmarshal(h.output.Bytes(), &p); err != nil {
			t.Fatalf("profile is not JSON: %v", err)
		}
		if p.FullName != "Ada" || p.Course != "Physics" {
			t.Errorf("unexpected profile %+v", p)
		}
	})

	t.Run("set keeps unspecified fields", func(t *testing.T) {
		seed := onboardedProfile()
		seed.Gender = "female"
		h := newHarness(t, seed)
		h.signIn(t)

		if err := h.run("profile", "set", "--age", "36"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		row, _ := h.profiles.Row("u1")
		if row.Age != "36" || row.Gender != "female" || row.FullName != "Ada" {
			t.Errorf("unexpected row %+v", row)
		}
	})
}

func TestPathCommands(t *testing.T) {
	t.Run("generate without a session needs a level", func(t *testing.T) {
		h := newHarness(t)
		h.completion.Responses = []string{generated}

		if err := h.run("path", "generate", "Intro to Rust"); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
		if h.completion.Calls() != 0 {
			t.Error("the completion service should not be called")
		}
	})

	t.Run("generate with a level override", func(t *testing.T) {
		h := newHarness(t)
		h.completion.Responses = []string{generated}
		out := filepath.Join(h.dir, "rust.json")

		if err := h.run("path", "generate", "--level", "school", "--output", out, "Intro to Rust"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		c := readSaved(t, out)
		if c.EducationLevel != models.LevelSchool || len(c.Modules) != 2 || c.Modules[1].ID != "module_2" {
			t.Errorf("unexpected curriculum %+v", c)
		}
		if !strings.Contains(h.output.String(), "Ownership [module_1]") {
			t.Errorf("expected a summary, got %q", h.output.String())
		}
	})

	t.Run("generate uses the profile level", func(t *testing.T) {
		h := newHarness(t, onboardedProfile())
		h.signIn(t)
		h.completion.Responses = []string{generated}

		if err := h.run("path", "generate", "--json", "Intro to Rust"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var c models.GeneratedCurriculum
		if err := json.Unmarshal(h.output.Bytes()[bytes.IndexByte(h.output.Bytes(), '{'):], &c); err != nil {
			t.Fatalf("output is not JSON: %v", err)
		}
		if c.EducationLevel != models.LevelCollege {
			t.Errorf("expected college, got %q", c.EducationLevel)
		}
	})

	t.Run("short topic", func(t *testing.T) {
		h := newHarness(t)
		if err := h.run("path", "generate", "--level", "school", "Go"); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("bad level", func(t *testing.T) {
		h := newHarness(t)
		if err := h.run("path", "generate", "--level", "phd", "Intro to Rust"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("edit", func(t *testing.T) {
		h := newHarness(t)
		in := h.writeFile(t, "path.json", savedCurriculum)

		ops := `[{"op":"add"},{"op":"move","id":"module_3","to":0},{"op":"remove","id":"module_1"}]`
		if err := h.run("path", "edit", "--input", in, "--ops", ops); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		c := readSaved(t, in)
		if len(c.Modules) != 2 || c.Modules[0].ID != "module_3" || c.Modules[1].ID != "module_2" {
			t.Errorf("unexpected modules %+v", c.Modules)
		}
		if !strings.Contains(h.output.String(), "Total: 1.0 hours") {
			t.Errorf("expected total hours, got %q", h.output.String())
		}
	})

	t.Run("edit rejects unknown ops", func(t *testing.T) {
		h := newHarness(t)
		in := h.writeFile(t, "path.json", savedCurriculum)

		if err := h.run("path", "edit", "--input", in, "--ops", `[{"op":"explode"}]`); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("refine keeps the id", func(t *testing.T) {
		h := newHarness(t, onboardedProfile())
		h.signIn(t)
		h.completion.Responses = []string{`{"title": "Traits in depth", "description": "More", "estimatedMinutes": 60, "subtopics": ["Generics", "Dyn"]}`}
		in := h.writeFile(t, "path.json", savedCurriculum)
		out := filepath.Join(h.dir, "refined.json")

		if err := h.run("path", "refine", "--input", in, "--module", "module_2", "--output", out); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		c := readSaved(t, out)
		if c.Modules[1].ID != "module_2" || c.Modules[1].Title != "Traits in depth" {
			t.Errorf("unexpected module %+v", c.Modules[1])
		}
	})

	t.Run("refine unknown module", func(t *testing.T) {
		h := newHarness(t, onboardedProfile())
		h.signIn(t)
		in := h.writeFile(t, "path.json", savedCurriculum)

		if err := h.run("path", "refine", "--input", in, "--module", "module_9"); !errors.Is(err, shared.ErrModuleNotFound) {
			t.Errorf("expected ErrModuleNotFound, got %v", err)
		}
	})

	t.Run("explain", func(t *testing.T) {
		h := newHarness(t, onboardedProfile())
		h.signIn(t)
		h.completion.Responses = []string{"  Moves transfer ownership.  "}
		in := h.writeFile(t, "path.json", savedCurriculum)

		if err := h.run("path", "explain", "--input", in, "--module", "module_1", "--subtopic", "Moves"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(h.output.String(), "Moves transfer ownership.") {
			t.Errorf("unexpected output %q", h.output.String())
		}
	})

	t.Run("explain failure", func(t *testing.T) {
		h := newHarness(t, onboardedProfile())
		h.signIn(t)
		h.completion.Err = shared.ErrServiceUnavailable
		in := h.writeFile(t, "path.json", savedCurriculum)

		err := h.run("path", "explain", "--input", in, "--module", "module_1", "--subtopic", "Moves")
		if !errors.Is(err, shared.ErrServiceUnavailable) || !strings.Contains(err.Error(), curriculum.ExplanationFailed) {
			t.Errorf("unexpected error %v", err)
		}
	})

	t.Run("export", func(t *testing.T) {
		h := newHarness(t)
		in := h.writeFile(t, "path.json", savedCurriculum)
		outDir := filepath.Join(h.dir, "export")

		if err := h.run("path", "export", "--input", in, "--format", "csv", "--output", outDir); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		entries, err := os.ReadDir(outDir)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) < 2 {
			t.Errorf("expected export files and a manifest, got %d entries", len(entries))
		}
		if !strings.Contains(h.output.String(), "Manifest:") {
			t.Errorf("unexpected output %q", h.output.String())
		}
	})

	t.Run("export empty curriculum", func(t *testing.T) {
		h := newHarness(t)
		in := h.writeFile(t, "empty.json", `{"title": "x", "modules": []}`)

		if err := h.run("path", "export", "--input", in); !errors.Is(err, shared.ErrEmptyCurriculum) {
			t.Errorf("expected ErrEmptyCurriculum, got %v", err)
		}
	})
}

func TestVideosCommand(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		h := newHarness(t)
		in := h.writeFile(t, "path.json", savedCurriculum)

		if err := h.run("videos", "--input", in, "--module", "module_1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(h.output.String(), curriculum.NoticeVideosNotConfigured) {
			t.Errorf("expected notice, got %q", h.output.String())
		}
	})

	t.Run("search", func(t *testing.T) {
		h := newHarness(t)
		videos := &tu.MockVideos{Videos: []models.Video{{ID: "v1", Title: "Ownership explained", ChannelTitle: "Rustacean", URL: models.WatchURL("v1")}}}
		h.runner.videos = videos
		in := h.writeFile(t, "path.json", savedCurriculum)

		if err := h.run("videos", "--input", in, "--module", "module_1", "--language", "de"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(h.output.String(), "https://www.youtube.com/watch?v=v1") {
			t.Errorf("unexpected output %q", h.output.String())
		}
		if q := videos.Queries(); len(q) != 1 || q[0].Language != "de" {
			t.Errorf("unexpected queries %+v", q)
		}
	})

	t.Run("unknown module", func(t *testing.T) {
		h := newHarness(t)
		in := h.writeFile(t, "path.json", savedCurriculum)

		if err := h.run("videos", "--input", in, "--module", "module_7"); !errors.Is(err, shared.ErrModuleNotFound) {
			t.Errorf("expected ErrModuleNotFound, got %v", err)
		}
	})
}

func TestSetupConfig(t *testing.T) {
	t.Run("creates and applies provider flags", func(t *testing.T) {
		h := newHarness(t)
		path := filepath.Join(h.dir, "config.toml")

		if err := h.run("setup", "config", "--config", path, "--auth", "local", "--database", "sqlite", "--completion", "gemini"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		config, err := shared.LoadConfig(path)
		if err != nil {
			t.Fatal(err)
		}
		if config.Auth.Provider != shared.ProviderLocal || config.Database.Driver != shared.DriverSQLite {
			t.Errorf("unexpected providers %+v %+v", config.Auth, config.Database)
		}
		if config.Completion.Provider != shared.CompletionGemini || config.Completion.Model != "" {
			t.Errorf("switching providers should clear the model, got %+v", config.Completion)
		}
	})

	t.Run("refuses to overwrite without flags", func(t *testing.T) {
		h := newHarness(t)
		path := h.writeFile(t, "config.toml", "")

		if err := h.run("setup", "config", "--config", path); err == nil {
			t.Error("expected an error for an existing file")
		}
	})

	t.Run("rejects unknown providers", func(t *testing.T) {
		h := newHarness(t)
		path := filepath.Join(h.dir, "config.toml")

		if err := h.run("setup", "config", "--config", path, "--database", "mongo"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want models.EducationLevel
		ok   bool
	}{
		{"", models.LevelUnset, true},
		{"school", models.LevelSchool, true},
		{"college", models.LevelCollege, true},
		{"professional", models.LevelProfessional, true},
		{"phd", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLevel(tt.in)
			if (err == nil) != tt.ok || got != tt.want {
				t.Errorf("parseLevel(%q) = %q, %v", tt.in, got, err)
			}
		})
	}
}

func TestOpenBackends(t *testing.T) {
	logger := shared.NewLogger(&bytes.Buffer{})

	t.Run("sqlite with local auth", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Auth.Provider = shared.ProviderLocal
		config.Database.Driver = shared.DriverSQLite
		config.Database.Path = filepath.Join(t.TempDir(), "modulearn.db")

		b, err := openBackends(context.Background(), config, nil, logger)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer b.Close()

		if b.auth == nil || b.auth.Name() != "local" {
			t.Errorf("expected local auth, got %v", b.auth)
		}
		if b.profiles == nil {
			t.Error("expected a profile store")
		}
		if b.completion != nil || b.videos != nil {
			t.Error("providers without keys should stay nil")
		}
	})

	t.Run("hosted", func(t *testing.T) {
		b, err := openBackends(context.Background(), shared.DefaultConfig(), nil, logger)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer b.Close()

		if b.db != nil || b.pool != nil {
			t.Error("hosted storage should not open a database")
		}
	})

	t.Run("completion providers", func(t *testing.T) {
		if _, err := openCompletion(context.Background(), shared.CompletionConfig{Provider: shared.CompletionGroq}, nil); !errors.Is(err, shared.ErrNotConfigured) {
			t.Errorf("expected ErrNotConfigured, got %v", err)
		}

		svc, err := openCompletion(context.Background(), shared.CompletionConfig{Provider: shared.CompletionGroq, APIKey: "k"}, http.DefaultClient)
		if err != nil || svc.Name() != "groq" {
			t.Errorf("expected groq, got %v %v", svc, err)
		}

		if _, err := openCompletion(context.Background(), shared.CompletionConfig{Provider: "mystery", APIKey: "k"}, nil); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}
