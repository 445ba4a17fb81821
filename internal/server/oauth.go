package server

import (
	"fmt"
	"html/template"
	"net/http"
	"sync"

	"github.com/desertthunder/modulearn/internal/auth"
	"github.com/desertthunder/modulearn/internal/models"
	"github.com/desertthunder/modulearn/internal/shared"
)

// LoginResult contains the result of a CLI sign-in callback.
type LoginResult struct {
	Route   models.Route
	Session *models.Session
	err     error
}

func (o *LoginResult) Error() error {
	return o.err
}

// CallbackHandler completes a third-party sign-in started from the CLI.
// Implements the Handler interface for registration with a Router.
type CallbackHandler struct {
	svc         *auth.Service
	verifier    string
	resultChan  chan LoginResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewCallbackHandler creates a callback handler for one sign-in. verifier is the PKCE
// verifier returned alongside the authorization URL.
func NewCallbackHandler(svc *auth.Service, verifier string) *CallbackHandler {
	return &CallbackHandler{
		svc:        svc,
		verifier:   verifier,
		resultChan: make(chan LoginResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *CallbackHandler) Routes() []string {
	return []string{"GET /callback"}
}

var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: {{.Color}}; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{.Title}}</h1>
        <p>{{.Message}}</p>
    </div>
</body>
</html>
`))

type callbackView struct {
	Title   string
	Color   template.CSS
	Message string
}

func renderCallback(w http.ResponseWriter, status int, v callbackView) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = callbackPage.Execute(w, v)
}

// ServeHTTP handles the callback request.
//
// The authorization code is exchanged through a [auth.Bootstrap] and the outcome is sent through the result channel.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Only handle callback once
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	b := auth.NewBootstrap(r.URL.RequestURI())
	if !b.HasCode() {
		errParam := r.URL.Query().Get("error")
		errDesc := r.URL.Query().Get("error_description")
		h.Send(LoginResult{Route: models.RouteLogin, err: fmt.Errorf("%w: %s - %s", shared.ErrAuthFailed, errParam, errDesc)})
		renderCallback(w, http.StatusBadRequest, callbackView{"Sign-in failed", "#b91c1c", "No authorization code was returned. Please try again from the terminal."})
		return
	}

	var route models.Route
	b.Start(r.Context(), h.svc, h.verifier, auth.NavigatorFunc(func(to models.Route) { route = to }))
	<-b.Ready()

	sess := b.Session()
	if sess == nil {
		h.Send(LoginResult{Route: route, err: fmt.Errorf("%w: code exchange failed", shared.ErrAuthFailed)})
		renderCallback(w, http.StatusBadGateway, callbackView{"Sign-in failed", "#b91c1c", "The sign-in could not be completed. Check the terminal for details."})
		return
	}

	h.Send(LoginResult{Route: route, Session: sess})
	renderCallback(w, http.StatusOK, callbackView{"✓ Signed in", "#4f46e5", "You can close this window and return to the terminal."})
}

// Send sends the login result through the channel (only once).
func (h *CallbackHandler) Send(result LoginResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel for receiving sign-in completion.
//
// Channel will receive exactly one result and then be closed.
func (h *CallbackHandler) Result() <-chan LoginResult {
	return h.resultChan
}
