package auth

import (
	"context"
	"errors"
	"net/url"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/modulearn/internal/models"
	"github.com/desertthunder/modulearn/internal/repositories"
	"github.com/desertthunder/modulearn/internal/shared"
)

// Navigator performs the route change a bootstrap run decides on.
type Navigator interface {
	Navigate(route models.Route)
}

// NavigatorFunc adapts a function to [Navigator].
type NavigatorFunc func(models.Route)

func (f NavigatorFunc) Navigate(route models.Route) { f(route) }

// Bootstrap completes the return leg of a third-party sign-in for one page load.
//
// The authorization code is captured and stripped from the URL when the
// Bootstrap is created, so nothing that runs later can observe it twice.
// [Bootstrap.Start] runs the exchange at most once and closes [Bootstrap.Ready]
// when routing is decided.
type Bootstrap struct {
	// code is zeroed by the run that takes it.
	code     string
	hasCode  bool
	stripped string
	started  atomic.Bool
	ready    chan struct{}

	// Written before ready is closed.
	route   models.Route
	session *models.Session
}

// NewBootstrap captures the "code" query parameter of pageURL.
//
// Without a code the bootstrap is already complete and the URL is returned unchanged.
func NewBootstrap(pageURL string) *Bootstrap {
	b := &Bootstrap{stripped: pageURL, ready: make(chan struct{})}

	u, err := url.Parse(pageURL)
	if err != nil {
		close(b.ready)
		return b
	}

	q := u.Query()
	code := q.Get("code")
	if code == "" {
		close(b.ready)
		return b
	}

	q.Del("code")
	u.RawQuery = q.Encode()
	b.code = code
	b.hasCode = true
	b.stripped = u.String()
	return b
}

// HasCode reports whether a code was captured.
func (b *Bootstrap) HasCode() bool { return b.hasCode }

// URL is the page URL without the code parameter.
func (b *Bootstrap) URL() string { return b.stripped }

// Ready is closed once the bootstrap has finished, or immediately when there was no code.
func (b *Bootstrap) Ready() <-chan struct{} { return b.ready }

// Route is the route chosen by the run. It is empty until Ready is closed, and
// stays empty when there was no code.
func (b *Bootstrap) Route() models.Route {
	select {
	case <-b.ready:
		return b.route
	default:
		return ""
	}
}

// Session is the session established by the exchange, if any. Valid after Ready is closed.
func (b *Bootstrap) Session() *models.Session {
	select {
	case <-b.ready:
		return b.session
	default:
		return nil
	}
}

// Start exchanges the captured code and routes the user. Only the first call
// does any work; later calls return immediately, and callers that need the
// outcome wait on [Bootstrap.Ready]. No error escapes: failures route to login.
func (b *Bootstrap) Start(ctx context.Context, svc *Service, verifier string, nav Navigator) {
	if !b.hasCode || !b.started.CompareAndSwap(false, true) {
		return
	}
	code := b.code
	b.code = ""

	logger := log.Default()
	if svc != nil {
		logger = svc.logger
	}

	defer close(b.ready)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("oauth callback error", "panic", r)
			b.route = models.RouteLogin
			b.session = nil
		}
		if nav != nil {
			nav.Navigate(b.route)
		}
	}()

	b.route, b.session = b.run(ctx, svc, code, verifier, logger)
}

func (b *Bootstrap) run(ctx context.Context, svc *Service, code, verifier string, logger *log.Logger) (models.Route, *models.Session) {
	logger.Info("oauth callback detected, exchanging code")

	if svc == nil || !svc.Configured() {
		logger.Error("code exchange skipped", "err", shared.ErrNotConfigured)
		return models.RouteLogin, nil
	}

	sess, err := svc.auth.ExchangeCode(ctx, code, verifier)
	if err != nil {
		logger.Error("code exchange failed", "err", err)
		return models.RouteLogin, nil
	}
	if sess == nil {
		logger.Error("no session returned")
		return models.RouteLogin, nil
	}

	ctx = repositories.WithAccessToken(ctx, sess.AccessToken)
	user := &sess.User

	profile, err := svc.GetProfile(ctx, user)
	switch {
	case errors.Is(err, shared.ErrProfileNotFound):
		logger.Info("no profile found, creating initial profile", "user", user.ID)
		if err := svc.SaveProfile(ctx, user, models.ProfileUpdate{Onboarded: models.Ptr(false)}); err != nil {
			logger.Warn("initial profile save failed", "user", user.ID, "err", err)
		}
		return models.RouteOnboarding, sess
	case err != nil:
		// the row may still exist, so nothing is written
		logger.Warn("profile read failed", "user", user.ID, "err", err)
		return models.RouteOnboarding, sess
	case profile.Onboarded:
		logger.Info("user onboarded", "user", user.ID, "route", models.RouteDashboard)
		return models.RouteDashboard, sess
	default:
		if profile.FullName == "" {
			if err := svc.SaveProfile(ctx, user, models.ProfileUpdate{Onboarded: models.Ptr(false)}); err != nil {
				logger.Warn("full name save failed", "user", user.ID, "err", err)
			}
		}
		logger.Info("user not onboarded", "user", user.ID, "route", models.RouteOnboarding)
		return models.RouteOnboarding, sess
	}
}
