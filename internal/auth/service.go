package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"

	"github.com/desertthunder/modulearn/internal/models"
	"github.com/desertthunder/modulearn/internal/repositories"
	"github.com/desertthunder/modulearn/internal/services"
	"github.com/desertthunder/modulearn/internal/shared"
)

const minPasswordLength = 6

// Messages shown after signup.
const MsgCheckEmail = "Account created successfully! Please check your email to verify your account."

var (
	ErrPasswordMismatch = fmt.Errorf("%w: Passwords do not match", shared.ErrInvalidInput)
	ErrPasswordTooShort = fmt.Errorf("%w: Password must be at least %d characters long", shared.ErrInvalidInput, minPasswordLength)
)

// SignUpRequest is the signup form.
type SignUpRequest struct {
	FullName        string `json:"fullName" validate:"max=200"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// LoginRequest is the password login form.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SettingsRequest is the settings view's editable subset of the profile.
type SettingsRequest struct {
	FullName string `json:"fullName" validate:"max=200"`
	Gender   string `json:"gender"`
	Age      string `json:"age"`
}

// Outcome is where a finished auth flow sends the user.
//
// Session is nil when the backend requires email confirmation; Message then
// carries the notice to show.
type Outcome struct {
	Session *models.Session `json:"session,omitempty"`
	Route   models.Route    `json:"route,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Service sequences the auth backend and the profile store.
type Service struct {
	auth       services.AuthService
	profiles   models.ProfileStore
	configured bool
	validate   *validator.Validate
	logger     *log.Logger
}

// NewService creates a [Service]. When configured is false every flow that needs
// the backend fails with [shared.ErrNotConfigured] before any network call.
func NewService(auth services.AuthService, profiles models.ProfileStore, configured bool, logger *log.Logger) *Service {
	return &Service{
		auth:       auth,
		profiles:   profiles,
		configured: configured && auth != nil && profiles != nil,
		validate:   validator.New(),
		logger:     shared.NewComponentLogger(logger, "auth"),
	}
}

// Configured reports whether the auth backend is usable.
func (s *Service) Configured() bool { return s.configured }

// Backend returns the underlying auth service.
func (s *Service) Backend() services.AuthService { return s.auth }

// RouteFor picks the first screen for a signed-in user.
func RouteFor(p *models.UserProfile) models.Route {
	if p != nil && p.Onboarded {
		return models.RouteDashboard
	}
	return models.RouteOnboarding
}

// Identify resolves an access token to the signed-in user.
func (s *Service) Identify(ctx context.Context, accessToken string) (*models.Identity, error) {
	if !s.configured {
		return nil, shared.ErrNotConfigured
	}
	if accessToken == "" {
		return nil, shared.ErrNotAuthenticated
	}
	return s.auth.User(ctx, accessToken)
}

// SaveProfile upserts the caller's own profile.
//
// Email falls back to the identity's email, and full name to the OAuth metadata
// name, when the update leaves them unset.
func (s *Service) SaveProfile(ctx context.Context, caller *models.Identity, update models.ProfileUpdate) error {
	if !s.configured {
		s.logger.Error("database not configured")
		return shared.ErrNotConfigured
	}
	if caller == nil || caller.ID == "" {
		s.logger.Warn("save profile: no authenticated user found")
		return shared.ErrNotAuthenticated
	}

	if update.Email == nil && caller.Email != "" {
		update.Email = models.Ptr(caller.Email)
	}
	if update.FullName == nil || *update.FullName == "" {
		if name := caller.MetadataName(); name != "" {
			update.FullName = models.Ptr(name)
		}
	}
	return s.profiles.Upsert(ctx, caller.ID, update)
}

// SaveProfileFor upserts the profile of an explicit user id, used right after
// signup before the new session is established. No identity fallbacks apply.
func (s *Service) SaveProfileFor(ctx context.Context, id string, update models.ProfileUpdate) error {
	if !s.configured {
		s.logger.Error("database not configured")
		return shared.ErrNotConfigured
	}
	if id == "" {
		return fmt.Errorf("%w: user id is required", shared.ErrInvalidInput)
	}
	return s.profiles.Upsert(ctx, id, update)
}

// GetProfile reads the caller's profile.
func (s *Service) GetProfile(ctx context.Context, caller *models.Identity) (*models.UserProfile, error) {
	if !s.configured {
		return nil, shared.ErrNotConfigured
	}
	if caller == nil || caller.ID == "" {
		return nil, shared.ErrNotAuthenticated
	}
	return s.profiles.Get(ctx, caller.ID)
}

// SignUp validates the form locally, creates the account and, when the backend
// returns a session straight away, creates the profile row.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (*Outcome, error) {
	if req.Password != req.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}
	if len(req.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}
	req.Email = strings.TrimSpace(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
	}
	if !s.configured {
		return nil, shared.ErrNotConfigured
	}

	result, err := s.auth.SignUp(ctx, services.Credentials{Email: req.Email, Password: req.Password, FullName: req.FullName})
	if err != nil {
		s.logger.Error("signup failed", "email", req.Email, "err", err)
		return nil, err
	}

	if result.Session == nil {
		return &Outcome{Message: MsgCheckEmail}, nil
	}

	ctx = repositories.WithAccessToken(ctx, result.Session.AccessToken)
	update := models.ProfileUpdate{
		FullName:  models.Ptr(req.FullName),
		Email:     models.Ptr(req.Email),
		Onboarded: models.Ptr(false),
	}
	if err := s.SaveProfileFor(ctx, result.User.ID, update); err != nil {
		s.logger.Error("profile creation failed", "user", result.User.ID, "err", err)
	}
	return &Outcome{Session: result.Session, Route: models.RouteOnboarding}, nil
}

// SignIn logs in with a password and routes by onboarding state.
func (s *Service) SignIn(ctx context.Context, req LoginRequest) (*Outcome, error) {
	if !s.configured {
		return nil, shared.ErrNotConfigured
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
	}

	sess, err := s.auth.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	ctx = repositories.WithAccessToken(ctx, sess.AccessToken)
	profile, err := s.GetProfile(ctx, &sess.User)
	if err != nil && !errors.Is(err, shared.ErrProfileNotFound) {
		s.logger.Warn("profile load failed after login", "user", sess.User.ID, "err", err)
	}
	return &Outcome{Session: sess, Route: RouteFor(profile)}, nil
}

// SignOut ends the session. An unconfigured backend has nothing to sign out of.
func (s *Service) SignOut(ctx context.Context, accessToken string) error {
	if !s.configured || accessToken == "" {
		return nil
	}
	return s.auth.SignOut(ctx, accessToken)
}

// UpdateSettings saves name, gender and age, then reloads the profile.
func (s *Service) UpdateSettings(ctx context.Context, caller *models.Identity, req SettingsRequest) (*models.UserProfile, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
	}

	update := models.ProfileUpdate{
		FullName: models.Ptr(strings.TrimSpace(req.FullName)),
		Gender:   models.Ptr(req.Gender),
		Age:      models.Ptr(req.Age),
	}
	if err := s.SaveProfile(ctx, caller, update); err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, caller)
}
