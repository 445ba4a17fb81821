package models

import (
	"strings"
	"time"
)

// Route is a client-side destination in the hash-routed app.
type Route string

const (
	RouteHome       Route = "/"
	RouteLogin      Route = "/login"
	RouteOnboarding Route = "/onboarding"
	RouteDashboard  Route = "/app"
)

// Fragment returns the route as a URL fragment, e.g. "#/app".
func (r Route) Fragment() string {
	return "#" + string(r)
}

// Identity is the authenticated user as reported by the auth backend.
type Identity struct {
	ID       string         `json:"id"`
	Email    string         `json:"email"`
	Metadata map[string]any `json:"user_metadata,omitempty"`
}

// MetadataName returns the first non-empty of full_name, name, display_name.
func (i Identity) MetadataName() string {
	for _, key := range []string{"full_name", "name", "display_name"} {
		if v, ok := i.Metadata[key].(string); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Session is an authenticated session.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         Identity  `json:"user"`
}

// Expired reports whether the session has passed its expiry. A zero expiry never expires.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
