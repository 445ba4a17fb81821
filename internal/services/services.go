// package services defines the collaborators modulearn talks to over the network:
// the auth backend, the LLM completion endpoint, and video search.
package services

import (
	"context"

	"github.com/desertthunder/modulearn/internal/models"
)

// AuthService is the authentication backend.
type AuthService interface {
	// Name returns the provider name (e.g. "supabase", "local").
	Name() string

	// AuthURL starts a third-party sign-in that returns to redirectTo with a ?code= parameter.
	// The returned verifier must be presented again to [AuthService.ExchangeCode].
	AuthURL(redirectTo string) (authURL, verifier string, err error)

	// ExchangeCode trades an authorization code for a session.
	// A nil session with a nil error means the backend accepted the code but issued no session.
	ExchangeCode(ctx context.Context, code, verifier string) (*models.Session, error)

	// SignUp registers an email/password account. Session is nil when the backend
	// requires email confirmation first.
	SignUp(ctx context.Context, creds Credentials) (*SignUpResult, error)

	// SignIn authenticates an email/password account.
	SignIn(ctx context.Context, email, password string) (*models.Session, error)

	// User resolves the identity behind an access token.
	User(ctx context.Context, accessToken string) (*models.Identity, error)

	// SignOut invalidates the access token.
	SignOut(ctx context.Context, accessToken string) error
}

// Credentials is an email/password signup.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"fullName" validate:"max=200"`
}

// SignUpResult carries the new identity and, when confirmation is not required, a session.
type SignUpResult struct {
	User    models.Identity
	Session *models.Session
}

// Prompt is a single-turn completion request.
type Prompt struct {
	Content     string
	Temperature float32
	TopP        float32
	MaxTokens   int
}

// CompletionService is a hosted LLM completion endpoint.
type CompletionService interface {
	Name() string
	// Complete returns the raw text of the first choice.
	// An empty completion is reported as [shared.ErrMissingContent].
	Complete(ctx context.Context, p Prompt) (string, error)
}

// VideoQuery is a video search request.
type VideoQuery struct {
	Query      string
	MaxResults int
	Language   string
}

// VideoSearcher finds videos for a module.
type VideoSearcher interface {
	Search(ctx context.Context, q VideoQuery) ([]models.Video, error)
}
