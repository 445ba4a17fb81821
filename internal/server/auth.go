package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/modulearn/internal/auth"
	"github.com/desertthunder/modulearn/internal/models"
	"github.com/desertthunder/modulearn/internal/shared"
)

// verifierTTL bounds how long a started third-party sign-in can take.
const verifierTTL = 10 * time.Minute

// StatusResponse tells the shell whether to show the not-configured banner.
type StatusResponse struct {
	Configured bool   `json:"configured"`
	Provider   string `json:"provider,omitempty"`
	Message    string `json:"message,omitempty"`
}

// AuthHandler serves the /auth endpoints.
type AuthHandler struct {
	svc         *auth.Service
	redirectURL string
	logger      *log.Logger
}

// NewAuthHandler creates an [AuthHandler]. redirectURL is where the provider sends the user back;
// when empty the request's own origin is used.
func NewAuthHandler(svc *auth.Service, redirectURL string, logger *log.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, redirectURL: redirectURL, logger: logger}
}

// origin is the scheme and host the request arrived on, with a trailing slash.
func origin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host + "/"
}

// Status handles GET /auth/status.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{Configured: h.svc.Configured()}
	if resp.Configured {
		resp.Provider = h.svc.Backend().Name()
	} else {
		resp.Message = shared.MsgNotConfigured
	}
	writeJSON(w, http.StatusOK, resp)
}

// OAuth handles GET /auth/oauth: it stores a PKCE verifier in a cookie and redirects to the provider.
func (h *AuthHandler) OAuth(w http.ResponseWriter, r *http.Request) {
	if !h.svc.Configured() {
		writeError(w, shared.ErrNotConfigured)
		return
	}

	redirectTo := h.redirectURL
	if redirectTo == "" {
		redirectTo = origin(r)
	}

	authURL, verifier, err := h.svc.Backend().AuthURL(redirectTo)
	if err != nil {
		h.logger.Error("failed to start oauth", "err", err)
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     VerifierCookie,
		Value:    verifier,
		Path:     "/",
		MaxAge:   int(verifierTTL.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, authURL, http.StatusFound)
}

// SignUp handles POST /auth/signup.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req auth.SignUpRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	out, err := h.svc.SignUp(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	if out.Session != nil {
		setSessionCookie(w, out.Session, r.TLS != nil)
	}
	writeJSON(w, http.StatusCreated, out)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	out, err := h.svc.SignIn(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	setSessionCookie(w, out.Session, r.TLS != nil)
	writeJSON(w, http.StatusOK, out)
}

// Logout handles POST /auth/logout. The cookie is cleared even when the backend call fails.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	clearCookie(w, SessionCookie, r.TLS != nil)
	if err := h.svc.SignOut(r.Context(), bearerToken(r)); err != nil {
		h.logger.Warn("sign out failed", "err", err)
	}
	writeJSON(w, http.StatusOK, auth.Outcome{Route: models.RouteHome})
}
