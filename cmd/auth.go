package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/modulearn/internal/auth"
	"github.com/desertthunder/modulearn/internal/models"
	"github.com/desertthunder/modulearn/internal/server"
	"github.com/desertthunder/modulearn/internal/shared"
)

const loginTimeout = 2 * time.Minute

// AuthLogin signs in with email and password, or through the browser when no email is given.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	email := cmd.String("email")
	if email == "" {
		return r.browserLogin(ctx)
	}

	password := cmd.String("password")
	if password == "" {
		password = os.Getenv("MODULEARN_PASSWORD")
	}

	outcome, err := r.auth.SignIn(ctx, auth.LoginRequest{Email: email, Password: password})
	if err != nil {
		return err
	}
	if err := r.saveSession(outcome.Session); err != nil {
		return err
	}

	r.logger.Info("signed in", "user", outcome.Session.User.ID)
	r.writePlain("✓ Signed in as %s\n", outcome.Session.User.Email)
	return r.writeNextStep(outcome.Route)
}

// browserLogin runs the third-party sign-in against a temporary local callback server.
func (r *Runner) browserLogin(ctx context.Context) error {
	if !r.auth.Configured() {
		return shared.ErrNotConfigured
	}

	addr := r.config.Server.Addr()
	callbackURL := fmt.Sprintf("http://%s/callback", addr)
	authURL, verifier, err := r.auth.Backend().AuthURL(callbackURL)
	if err != nil {
		return err
	}

	handler := server.NewCallbackHandler(r.auth, verifier)
	router := server.NewBasicRouter()
	router.Use(server.Recover(r.logger))
	router.Handler(handler)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting sign-in callback server at %v", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser to sign in...\n")
	if err := r.openBrowser(ctx, authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for sign-in (2 minute timeout)...\n")

	timeout := time.NewTimer(loginTimeout)
	defer timeout.Stop()

	var result server.LoginResult
	var waitErr error

	select {
	case result = <-handler.Result():
	case err := <-serverErrors:
		waitErr = fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		waitErr = fmt.Errorf("%w: sign-in timed out after 2 minutes", shared.ErrTimeout)
	case <-ctx.Done():
		waitErr = ctx.Err()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if waitErr != nil {
		return waitErr
	}
	if result.Error() != nil {
		return fmt.Errorf("sign-in failed: %w", result.Error())
	}
	if result.Session == nil {
		return fmt.Errorf("%w: no session received", shared.ErrAuthFailed)
	}

	if err := r.saveSession(result.Session); err != nil {
		return err
	}
	r.writePlain("✓ Signed in as %s\n", result.Session.User.Email)
	return r.writeNextStep(result.Route)
}

// AuthSignUp creates an account and stores the session when the backend issues one.
func (r *Runner) AuthSignUp(ctx context.Context, cmd *cli.Command) error {
	password := cmd.String("password")
	confirm := cmd.String("confirm")
	if confirm == "" {
		confirm = password
	}

	outcome, err := r.auth.SignUp(ctx, auth.SignUpRequest{
		FullName:        cmd.String("name"),
		Email:           cmd.String("email"),
		Password:        password,
		ConfirmPassword: confirm,
	})
	if err != nil {
		return err
	}

	if outcome.Session == nil {
		return r.writePlain("✓ %s\n", outcome.Message)
	}
	if err := r.saveSession(outcome.Session); err != nil {
		return err
	}
	r.writePlain("✓ Account created for %s\n", outcome.Session.User.Email)
	return r.writeNextStep(outcome.Route)
}

// AuthLogout signs out with the backend and forgets the stored session.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	s, err := r.loadSession()
	if err == nil {
		if err := r.auth.SignOut(ctx, s.AccessToken); err != nil {
			r.logger.Warn("backend sign-out failed", "error", err)
		}
	}
	if err := r.clearSession(); err != nil {
		return err
	}
	return r.writePlain("✓ Signed out\n")
}

// AuthStatus reports the backend, the stored session and where the user would land.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	type status struct {
		Provider      string       `json:"provider"`
		Configured    bool         `json:"configured"`
		Authenticated bool         `json:"authenticated"`
		Email         string       `json:"email,omitempty"`
		Route         models.Route `json:"route,omitempty"`
		Error         string       `json:"error,omitempty"`
	}

	st := status{Provider: r.config.Auth.Provider, Configured: r.auth.Configured()}
	if st.Configured {
		ctx, id, err := r.caller(ctx)
		if err != nil {
			st.Error = shared.UserMessage(err)
		} else {
			st.Authenticated = true
			st.Email = id.Email
			profile, err := r.auth.GetProfile(ctx, id)
			if err != nil && !errors.Is(err, shared.ErrProfileNotFound) {
				st.Error = shared.UserMessage(err)
			}
			st.Route = auth.RouteFor(profile)
		}
	} else {
		st.Error = shared.MsgNotConfigured
	}

	if cmd.Bool("json") {
		return r.writeJSON(st, true)
	}

	r.writePlainHeader("Authentication")
	r.writePlain("Provider: %s\n", st.Provider)
	if !st.Configured {
		return r.writePlain("✗ %s\n", st.Error)
	}
	if !st.Authenticated {
		return r.writePlain("✗ Not signed in (%s)\n", st.Error)
	}
	r.writePlain("✓ Signed in as %s\n", st.Email)
	return r.writeNextStep(st.Route)
}

func (r *Runner) writeNextStep(route models.Route) error {
	switch route {
	case models.RouteOnboarding:
		return r.writePlain("Next: run `modulearn onboard` to set up your profile\n")
	case models.RouteDashboard:
		return r.writePlain("Next: run `modulearn path generate \"<topic>\"` to create a learning path\n")
	}
	return nil
}
