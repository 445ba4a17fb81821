// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/modulearn/internal/models"
	"github.com/desertthunder/modulearn/internal/services"
	"github.com/desertthunder/modulearn/internal/shared"
)

// MockCompletion is a test double for [services.CompletionService].
//
// Responses are returned in order; the last one repeats. When Gate is set, Complete
// blocks until it is closed (or the context ends) so tests can hold a call in flight.
type MockCompletion struct {
	Responses []string
	Err       error
	Gate      chan struct{}
	Started   chan struct{}

	mu      sync.Mutex
	prompts []services.Prompt
}

func (m *MockCompletion) Name() string { return "mock" }

func (m *MockCompletion) Complete(ctx context.Context, p services.Prompt) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, p)
	n := len(m.prompts)
	m.mu.Unlock()

	if m.Started != nil {
		select {
		case m.Started <- struct{}{}:
		default:
		}
	}
	if m.Gate != nil {
		select {
		case <-m.Gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) == 0 {
		return "", shared.ErrMissingContent
	}
	if n > len(m.Responses) {
		n = len(m.Responses)
	}
	return m.Responses[n-1], nil
}

// Prompts returns a copy of every prompt received.
func (m *MockCompletion) Prompts() []services.Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]services.Prompt(nil), m.prompts...)
}

// Calls returns the number of Complete calls.
func (m *MockCompletion) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// MockVideos is a test double for [services.VideoSearcher].
type MockVideos struct {
	Videos []models.Video
	Err    error

	mu      sync.Mutex
	queries []services.VideoQuery
}

func (m *MockVideos) Search(ctx context.Context, q services.VideoQuery) ([]models.Video, error) {
	m.mu.Lock()
	m.queries = append(m.queries, q)
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return append([]models.Video(nil), m.Videos...), nil
}

// Queries returns every query received.
func (m *MockVideos) Queries() []services.VideoQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]services.VideoQuery(nil), m.queries...)
}

// MockAuth is a test double for [services.AuthService].
type MockAuth struct {
	Session     *models.Session
	ExchangeErr error
	SignUpRes   *services.SignUpResult
	SignUpErr   error
	SignInErr   error
	Identity    *models.Identity
	UserErr     error

	mu        sync.Mutex
	exchanged []string
	signedOut []string
}

func (m *MockAuth) Name() string { return "mock" }

func (m *MockAuth) AuthURL(redirectTo string) (string, string, error) {
	return "https://auth.example.com/authorize?redirect_to=" + redirectTo, "verifier", nil
}

func (m *MockAuth) ExchangeCode(ctx context.Context, code, verifier string) (*models.Session, error) {
	m.mu.Lock()
	m.exchanged = append(m.exchanged, code)
	m.mu.Unlock()
	if m.ExchangeErr != nil {
		return nil, m.ExchangeErr
	}
	return m.Session, nil
}

func (m *MockAuth) SignUp(ctx context.Context, creds services.Credentials) (*services.SignUpResult, error) {
	if m.SignUpErr != nil {
		return nil, m.SignUpErr
	}
	if m.SignUpRes != nil {
		return m.SignUpRes, nil
	}
	return &services.SignUpResult{User: models.Identity{ID: "new-user", Email: creds.Email}, Session: m.Session}, nil
}

func (m *MockAuth) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	if m.SignInErr != nil {
		return nil, m.SignInErr
	}
	if m.Session == nil {
		return nil, shared.ErrInvalidCredentials
	}
	return m.Session, nil
}

func (m *MockAuth) User(ctx context.Context, accessToken string) (*models.Identity, error) {
	if m.UserErr != nil {
		return nil, m.UserErr
	}
	if m.Identity != nil {
		return m.Identity, nil
	}
	if m.Session != nil && accessToken == m.Session.AccessToken {
		id := m.Session.User
		return &id, nil
	}
	return nil, shared.ErrNotAuthenticated
}

func (m *MockAuth) SignOut(ctx context.Context, accessToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signedOut = append(m.signedOut, accessToken)
	return nil
}

// Exchanged returns every code passed to ExchangeCode.
func (m *MockAuth) Exchanged() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.exchanged...)
}

// SignedOut returns every token passed to SignOut.
func (m *MockAuth) SignedOut() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.signedOut...)
}

// MemoryProfiles is an in-memory [models.ProfileStore] with error injection.
type MemoryProfiles struct {
	GetErr    error
	UpsertErr error

	mu      sync.Mutex
	rows    map[string]models.UserProfile
	upserts []models.ProfileUpdate
}

// NewMemoryProfiles seeds a store with profiles.
func NewMemoryProfiles(seed ...models.UserProfile) *MemoryProfiles {
	m := &MemoryProfiles{rows: map[string]models.UserProfile{}}
	for _, p := range seed {
		m.rows[p.ID] = p
	}
	return m
}

func (m *MemoryProfiles) Get(ctx context.Context, id string) (*models.UserProfile, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return nil, shared.ErrProfileNotFound
	}
	p.Normalize()
	return &p, nil
}

func (m *MemoryProfiles) Upsert(ctx context.Context, id string, update models.ProfileUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts = append(m.upserts, update)
	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	if m.rows == nil {
		m.rows = map[string]models.UserProfile{}
	}
	p := m.rows[id]
	p.ID = id
	p.Apply(update)
	m.rows[id] = p
	return nil
}

// Upserts returns every update received, including failed ones.
func (m *MemoryProfiles) Upserts() []models.ProfileUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ProfileUpdate(nil), m.upserts...)
}

// Row returns the stored profile without normalization.
func (m *MemoryProfiles) Row(id string) (models.UserProfile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	return p, ok
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
