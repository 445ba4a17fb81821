package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/desertthunder/modulearn/internal/models"
	"github.com/desertthunder/modulearn/internal/shared"
)

// SupabaseAuth implements [AuthService] against a hosted GoTrue server.
type SupabaseAuth struct {
	baseURL    string
	anonKey    string
	provider   string
	httpClient *http.Client
}

// NewSupabaseAuth creates a client for {baseURL}/auth/v1. Provider defaults to "google".
func NewSupabaseAuth(baseURL, anonKey, provider string, client *http.Client) *SupabaseAuth {
	if client == nil {
		client = http.DefaultClient
	}
	if provider == "" {
		provider = "google"
	}
	return &SupabaseAuth{
		baseURL:    strings.TrimRight(baseURL, "/"),
		anonKey:    anonKey,
		provider:   provider,
		httpClient: client,
	}
}

func (s *SupabaseAuth) Name() string { return "supabase" }

// gotrueUser is the user object embedded in GoTrue responses.
type gotrueUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

func (u gotrueUser) identity() models.Identity {
	return models.Identity{ID: u.ID, Email: u.Email, Metadata: u.UserMetadata}
}

// gotrueSession is the token grant response. Signup without auto-confirm returns the
// user object at the top level instead, which is why the user fields are inlined too.
type gotrueSession struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int64       `json:"expires_in"`
	ExpiresAt    int64       `json:"expires_at"`
	User         *gotrueUser `json:"user"`
	gotrueUser
}

// token converts the grant into an [oauth2.Token] so expiry handling matches other providers.
func (g gotrueSession) token() *oauth2.Token {
	tok := &oauth2.Token{AccessToken: g.AccessToken, RefreshToken: g.RefreshToken, TokenType: g.TokenType}
	switch {
	case g.ExpiresAt > 0:
		tok.Expiry = time.Unix(g.ExpiresAt, 0)
	case g.ExpiresIn > 0:
		tok.Expiry = time.Now().Add(time.Duration(g.ExpiresIn) * time.Second)
	}
	return tok
}

func (g gotrueSession) session() *models.Session {
	if g.AccessToken == "" {
		return nil
	}
	tok := g.token()
	sess := &models.Session{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken, ExpiresAt: tok.Expiry}
	if g.User != nil {
		sess.User = g.User.identity()
	} else {
		sess.User = g.gotrueUser.identity()
	}
	return sess
}

// gotrueError covers the several error shapes GoTrue uses.
type gotrueError struct {
	Message          string `json:"msg"`
	Message2         string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorCode        string `json:"error_code"`
}

func (e gotrueError) text() string {
	for _, s := range []string{e.Message, e.Message2, e.ErrorDescription, e.Error} {
		if s != "" {
			return s
		}
	}
	return "unknown error"
}

// AuthURL builds the PKCE authorize URL for the configured provider.
func (s *SupabaseAuth) AuthURL(redirectTo string) (string, string, error) {
	if !shared.IsConfigured(s.baseURL) {
		return "", "", shared.ErrNotConfigured
	}

	verifier := oauth2.GenerateVerifier()
	q := url.Values{}
	q.Set("provider", s.provider)
	q.Set("redirect_to", redirectTo)
	q.Set("code_challenge", oauth2.S256ChallengeFromVerifier(verifier))
	q.Set("code_challenge_method", "s256")

	return s.baseURL + "/auth/v1/authorize?" + q.Encode(), verifier, nil
}

func (s *SupabaseAuth) ExchangeCode(ctx context.Context, code, verifier string) (*models.Session, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code is empty", shared.ErrInvalidInput)
	}

	body := map[string]string{"auth_code": code, "code_verifier": verifier}
	var resp gotrueSession
	if err := s.doRequest(ctx, http.MethodPost, "/auth/v1/token?grant_type=pkce", "", body, &resp); err != nil {
		return nil, fmt.Errorf("%w: code exchange: %w", shared.ErrAuthFailed, err)
	}
	return resp.session(), nil
}

func (s *SupabaseAuth) SignUp(ctx context.Context, creds Credentials) (*SignUpResult, error) {
	body := map[string]any{
		"email":    creds.Email,
		"password": creds.Password,
		"data":     map[string]string{"full_name": creds.FullName},
	}

	var resp gotrueSession
	if err := s.doRequest(ctx, http.MethodPost, "/auth/v1/signup", "", body, &resp); err != nil {
		return nil, err
	}

	result := &SignUpResult{Session: resp.session()}
	if resp.User != nil {
		result.User = resp.User.identity()
	} else {
		result.User = resp.gotrueUser.identity()
	}
	return result, nil
}

func (s *SupabaseAuth) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	body := map[string]string{"email": email, "password": password}

	var resp gotrueSession
	if err := s.doRequest(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "", body, &resp); err != nil {
		return nil, err
	}
	sess := resp.session()
	if sess == nil {
		return nil, fmt.Errorf("%w: no session returned", shared.ErrAuthFailed)
	}
	return sess, nil
}

func (s *SupabaseAuth) User(ctx context.Context, accessToken string) (*models.Identity, error) {
	if accessToken == "" {
		return nil, shared.ErrNotAuthenticated
	}

	var u gotrueUser
	if err := s.doRequest(ctx, http.MethodGet, "/auth/v1/user", accessToken, nil, &u); err != nil {
		return nil, err
	}
	id := u.identity()
	return &id, nil
}

func (s *SupabaseAuth) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	return s.doRequest(ctx, http.MethodPost, "/auth/v1/logout", accessToken, nil, nil)
}

// doRequest performs a GoTrue call. Status codes are folded into the shared error taxonomy.
func (s *SupabaseAuth) doRequest(ctx context.Context, method, endpoint, bearer string, body, result any) error {
	if !shared.IsConfigured(s.baseURL) {
		return shared.ErrNotConfigured
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if bearer == "" {
		bearer = s.anonKey
	}
	req.Header.Set("apikey", s.anonKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w", shared.ErrTimeout, err)
		}
		return fmt.Errorf("%w: %w", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr gotrueError
		json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&apiErr)
		return classifyAuthError(resp.StatusCode, apiErr)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: %w", shared.ErrMalformedResponse, err)
		}
	}
	return nil
}

func classifyAuthError(status int, apiErr gotrueError) error {
	msg := apiErr.text()
	lower := strings.ToLower(msg)

	switch {
	case status == http.StatusTooManyRequests || strings.Contains(lower, "rate limit") || apiErr.ErrorCode == "over_email_send_rate_limit":
		return fmt.Errorf("%w: %s", shared.ErrRateLimited, msg)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %s", shared.ErrNotAuthenticated, msg)
	case status == http.StatusBadRequest && strings.Contains(lower, "invalid login credentials"):
		return fmt.Errorf("%w: %s", shared.ErrInvalidCredentials, msg)
	case strings.Contains(lower, "already registered"):
		return fmt.Errorf("%w: %s", shared.ErrUserExists, msg)
	case status >= 500:
		return fmt.Errorf("%w: status %d: %s", shared.ErrServiceUnavailable, status, msg)
	default:
		return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, status, msg)
	}
}
