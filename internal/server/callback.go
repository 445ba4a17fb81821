package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/modulearn/internal/auth"
	"github.com/desertthunder/modulearn/internal/models"
)

// VerifierCookie holds the PKCE verifier between /auth/oauth and the callback.
const VerifierCookie = "modulearn_verifier"

// codeTTL is how long a seen authorization code stays in the replay ledger.
const codeTTL = 10 * time.Minute

// AppHandler serves "/".
//
// A request carrying ?code= is the return leg of a third-party sign-in: the code is exchanged
// once, a session cookie is set and the browser is sent with 303 to the stripped URL plus the
// chosen route fragment. Any other request gets the static shell.
type AppHandler struct {
	svc    *auth.Service
	static http.Handler
	logger *log.Logger
	now    func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time
}

// NewAppHandler creates an [AppHandler].
func NewAppHandler(svc *auth.Service, static http.Handler, logger *log.Logger) *AppHandler {
	return &AppHandler{
		svc:    svc,
		static: static,
		logger: logger,
		now:    time.Now,
		seen:   make(map[string]time.Time),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *AppHandler) Routes() []string {
	return []string{"GET /{$}"}
}

// remember records code and reports whether it was new. Expired entries are pruned on the way.
func (h *AppHandler) remember(code string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	for c, at := range h.seen {
		if now.Sub(at) > codeTTL {
			delete(h.seen, c)
		}
	}
	if _, ok := h.seen[code]; ok {
		return false
	}
	h.seen[code] = now
	return true
}

func (h *AppHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b := auth.NewBootstrap(r.URL.RequestURI())
	if !b.HasCode() {
		h.static.ServeHTTP(w, r)
		return
	}

	secure := r.TLS != nil
	clearCookie(w, VerifierCookie, secure)

	if !h.remember(r.URL.Query().Get("code")) {
		h.logger.Warn("authorization code replayed", "remote", clientAddr(r))
		http.Redirect(w, r, b.URL()+models.RouteLogin.Fragment(), http.StatusSeeOther)
		return
	}

	var verifier string
	if c, err := r.Cookie(VerifierCookie); err == nil {
		verifier = c.Value
	}

	var route models.Route
	b.Start(r.Context(), h.svc, verifier, auth.NavigatorFunc(func(to models.Route) { route = to }))
	<-b.Ready()

	if sess := b.Session(); sess != nil {
		setSessionCookie(w, sess, secure)
	}
	http.Redirect(w, r, b.URL()+route.Fragment(), http.StatusSeeOther)
}

func setSessionCookie(w http.ResponseWriter, sess *models.Session, secure bool) {
	c := &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.AccessToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	if !sess.ExpiresAt.IsZero() {
		c.Expires = sess.ExpiresAt
	}
	http.SetCookie(w, c)
}

func clearCookie(w http.ResponseWriter, name string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
