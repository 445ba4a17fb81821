// package server contains the router, middleware & handlers for the modulearn web service
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/modulearn/internal/auth"
	"github.com/desertthunder/modulearn/internal/services"
	"github.com/desertthunder/modulearn/internal/shared"
	"github.com/desertthunder/modulearn/internal/tasks"
	"github.com/desertthunder/modulearn/internal/web"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
// Common middleware includes logging, authentication, CORS, rate limiting, etc.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers that own their route patterns.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
// Implementations register handlers, apply middleware, and configure the HTTP server.
type Router interface {
	Use(middleware ...Middleware)                                          // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler, route ...Middleware) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                                               // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request)                      // ServeHTTP implements http.Handler for the entire router
}

// Options wires the server's collaborators.
type Options struct {
	Auth   *auth.Service
	Engine *tasks.PathEngine
	// Videos may be nil when no search key is configured.
	Videos    services.VideoSearcher
	MaxVideos int
	// RedirectURL overrides the OAuth return address; defaults to the request origin.
	RedirectURL       string
	RequestsPerMinute int
	Burst             int
	// Static serves the app shell; defaults to the embedded web assets.
	Static http.Handler
	Logger *log.Logger
}

// Server is the modulearn HTTP service.
type Server struct {
	router *BasicRouter
	logger *log.Logger
}

// New registers every route.
//
//	GET  /                          session bootstrap (?code=) or app shell
//	GET  /auth/status               configured flag
//	GET  /auth/oauth                start third-party sign-in
//	POST /auth/signup|login|logout
//	GET  /api/profile               session
//	POST /api/onboarding            session
//	PUT  /api/profile               session + onboarded
//	POST /api/paths[/refine|/explain|/videos|/structure]  session + onboarded
func New(opts Options) *Server {
	logger := shared.NewComponentLogger(opts.Logger, "server")
	static := opts.Static
	if static == nil {
		static = web.Handler()
	}

	r := NewBasicRouter()
	r.Use(Logging(logger), Recover(logger))

	limit := NewRateLimiter(opts.RequestsPerMinute, opts.Burst).Middleware()
	session := Session(opts.Auth)
	onboarded := RequireOnboarded(opts.Auth)

	r.Handler(NewAppHandler(opts.Auth, static, logger))
	r.Handle(http.MethodGet, "/", static)

	ah := NewAuthHandler(opts.Auth, opts.RedirectURL, logger)
	r.Handle(http.MethodGet, "/auth/status", http.HandlerFunc(ah.Status))
	r.Handle(http.MethodGet, "/auth/oauth", http.HandlerFunc(ah.OAuth), limit)
	r.Handle(http.MethodPost, "/auth/signup", http.HandlerFunc(ah.SignUp), limit)
	r.Handle(http.MethodPost, "/auth/login", http.HandlerFunc(ah.Login), limit)
	r.Handle(http.MethodPost, "/auth/logout", http.HandlerFunc(ah.Logout))

	api := NewAPIHandler(opts.Auth, opts.Engine, opts.Videos, opts.MaxVideos, logger)
	r.Handle(http.MethodGet, "/api/profile", http.HandlerFunc(api.GetProfile), limit, session)
	r.Handle(http.MethodPost, "/api/onboarding", http.HandlerFunc(api.Onboard), limit, session)
	r.Handle(http.MethodPut, "/api/profile", http.HandlerFunc(api.UpdateSettings), limit, session, onboarded)
	r.Handle(http.MethodPost, "/api/paths", http.HandlerFunc(api.CreatePath), limit, session, onboarded)
	r.Handle(http.MethodPost, "/api/paths/refine", http.HandlerFunc(api.Refine), limit, session, onboarded)
	r.Handle(http.MethodPost, "/api/paths/explain", http.HandlerFunc(api.Explain), limit, session, onboarded)
	r.Handle(http.MethodPost, "/api/paths/videos", http.HandlerFunc(api.Videos), limit, session, onboarded)
	r.Handle(http.MethodPost, "/api/paths/structure", http.HandlerFunc(api.Structure), limit, session, onboarded)

	return &Server{router: r, logger: logger}
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
