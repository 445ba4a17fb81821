package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/desertthunder/modulearn/internal/models"
	"github.com/desertthunder/modulearn/internal/shared"
)

const (
	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
	localIssuer       = "modulearn"
)

// LocalAuthOptions configures [LocalAuth].
type LocalAuthOptions struct {
	Secret       string
	SessionTTL   time.Duration
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// Endpoint and UserInfoURL default to Google's.
	Endpoint    oauth2.Endpoint
	UserInfoURL string
	BcryptCost  int
}

// LocalAuth implements [AuthService] without a hosted backend: Google sign-in through
// [oauth2], bcrypt password logins and HS256 session tokens.
type LocalAuth struct {
	store       models.CredentialStore
	oauth       *oauth2.Config
	userInfoURL string
	secret      []byte
	ttl         time.Duration
	cost        int
	validate    *validator.Validate
	now         func() time.Time
}

// sessionClaims are the claims carried by a local access token.
type sessionClaims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// NewLocalAuth creates a [LocalAuth] over the given credential store.
func NewLocalAuth(store models.CredentialStore, opts LocalAuthOptions) (*LocalAuth, error) {
	if opts.Secret == "" {
		return nil, fmt.Errorf("%w: jwt secret is required", shared.ErrInvalidConfig)
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}
	if opts.Endpoint.AuthURL == "" {
		opts.Endpoint = endpoints.Google
	}
	if opts.UserInfoURL == "" {
		opts.UserInfoURL = googleUserInfoURL
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}

	return &LocalAuth{
		store: store,
		oauth: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			RedirectURL:  opts.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     opts.Endpoint,
		},
		userInfoURL: opts.UserInfoURL,
		secret:      []byte(opts.Secret),
		ttl:         opts.SessionTTL,
		cost:        opts.BcryptCost,
		validate:    validator.New(),
		now:         time.Now,
	}, nil
}

func (a *LocalAuth) Name() string { return "local" }

// AuthURL returns the Google consent URL. The redirect always uses the configured
// redirect URL so the later exchange matches it; redirectTo only fills it when unset.
func (a *LocalAuth) AuthURL(redirectTo string) (string, string, error) {
	if a.oauth.ClientID == "" {
		return "", "", fmt.Errorf("%w: google client id is not set", shared.ErrNotConfigured)
	}
	if a.oauth.RedirectURL == "" {
		a.oauth.RedirectURL = redirectTo
	}

	verifier := oauth2.GenerateVerifier()
	authURL := a.oauth.AuthCodeURL(shared.GenerateState(), oauth2.AccessTypeOnline, oauth2.S256ChallengeOption(verifier))
	return authURL, verifier, nil
}

// googleUser is the OpenID Connect userinfo response.
type googleUser struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
}

func (a *LocalAuth) ExchangeCode(ctx context.Context, code, verifier string) (*models.Session, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code is empty", shared.ErrInvalidInput)
	}

	var opts []oauth2.AuthCodeOption
	if verifier != "" {
		opts = append(opts, oauth2.VerifierOption(verifier))
	}
	token, err := a.oauth.Exchange(ctx, code, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: token exchange failed: %w", shared.ErrAuthFailed, err)
	}
	if !token.Valid() {
		return nil, nil
	}

	info, err := a.userInfo(ctx, token)
	if err != nil {
		return nil, err
	}

	cred, err := a.store.FindByEmail(ctx, info.Email)
	if errors.Is(err, shared.ErrInvalidCredentials) {
		cred = &models.Credential{Email: info.Email, FullName: info.Name, Provider: "google"}
		err = a.store.Create(ctx, cred)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}

	return a.issue(cred, map[string]any{"full_name": info.Name})
}

func (a *LocalAuth) userInfo(ctx context.Context, token *oauth2.Token) (*googleUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := a.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: userinfo: %w", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: userinfo status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	var info googleUser
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("%w: userinfo: %w", shared.ErrMalformedResponse, err)
	}
	if info.Email == "" {
		return nil, fmt.Errorf("%w: userinfo has no email", shared.ErrAuthFailed)
	}
	return &info, nil
}

// SignUp always returns a session; local accounts need no email confirmation.
func (a *LocalAuth) SignUp(ctx context.Context, creds Credentials) (*SignUpResult, error) {
	if err := a.validate.Struct(creds); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), a.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	cred := &models.Credential{Email: creds.Email, PasswordHash: string(hash), FullName: strings.TrimSpace(creds.FullName)}
	if err := a.store.Create(ctx, cred); err != nil {
		return nil, err
	}

	sess, err := a.issue(cred, nil)
	if err != nil {
		return nil, err
	}
	return &SignUpResult{User: sess.User, Session: sess}, nil
}

func (a *LocalAuth) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	cred, err := a.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if cred.PasswordHash == "" {
		return nil, fmt.Errorf("%w: account uses %s sign-in", shared.ErrInvalidCredentials, cred.Provider)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("%w: password mismatch", shared.ErrInvalidCredentials)
	}
	return a.issue(cred, nil)
}

func (a *LocalAuth) User(ctx context.Context, accessToken string) (*models.Identity, error) {
	claims, err := a.parse(accessToken)
	if err != nil {
		return nil, err
	}

	revoked, err := a.store.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, fmt.Errorf("%w: session signed out", shared.ErrNotAuthenticated)
	}

	cred, err := a.store.Get(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrNotAuthenticated, err)
	}
	return &models.Identity{ID: cred.ID, Email: cred.Email, Metadata: metadataFor(cred, nil)}, nil
}

func (a *LocalAuth) SignOut(ctx context.Context, accessToken string) error {
	claims, err := a.parse(accessToken)
	if err != nil {
		return err
	}
	return a.store.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

func (a *LocalAuth) issue(cred *models.Credential, extra map[string]any) (*models.Session, error) {
	now := a.now()
	expiresAt := now.Add(a.ttl)

	claims := &sessionClaims{
		Email: cred.Email,
		Name:  cred.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        shared.GenerateID(),
			Subject:   cred.ID,
			Issuer:    localIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &models.Session{
		AccessToken: signed,
		ExpiresAt:   expiresAt,
		User:        models.Identity{ID: cred.ID, Email: cred.Email, Metadata: metadataFor(cred, extra)},
	}, nil
}

func (a *LocalAuth) parse(accessToken string) (*sessionClaims, error) {
	if accessToken == "" {
		return nil, shared.ErrNotAuthenticated
	}

	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(accessToken, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithIssuer(localIssuer), jwt.WithTimeFunc(a.now))
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, fmt.Errorf("%w: %w", shared.ErrTokenExpired, shared.ErrNotAuthenticated)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrNotAuthenticated, err)
	}
	return claims, nil
}

func metadataFor(cred *models.Credential, extra map[string]any) map[string]any {
	meta := map[string]any{}
	if cred.FullName != "" {
		meta["full_name"] = cred.FullName
	}
	for k, v := range extra {
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		meta[k] = v
	}
	return meta
}
