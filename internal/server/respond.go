package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/desertthunder/modulearn/internal/models"
	"github.com/desertthunder/modulearn/internal/shared"
)

// maxBodyBytes bounds JSON request bodies; a curriculum payload is well under it.
const maxBodyBytes = 1 << 20

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string       `json:"error"`
	Kind  string       `json:"kind"`
	Route models.Route `json:"route,omitempty"`
}

type errorMapping struct {
	target error
	status int
	kind   string
	route  models.Route
}

// Checked in order; the first match wins.
var errorMappings = []errorMapping{
	{shared.ErrNotConfigured, http.StatusServiceUnavailable, "not_configured", ""},
	{shared.ErrRateLimited, http.StatusTooManyRequests, "rate_limited", ""},
	{shared.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials", ""},
	{shared.ErrNotAuthenticated, http.StatusUnauthorized, "not_authenticated", models.RouteLogin},
	{shared.ErrTokenExpired, http.StatusUnauthorized, "not_authenticated", models.RouteLogin},
	{shared.ErrIncompleteProfile, http.StatusForbidden, "incomplete_profile", models.RouteOnboarding},
	{shared.ErrProfileNotFound, http.StatusNotFound, "profile_not_found", models.RouteOnboarding},
	{shared.ErrRequestInFlight, http.StatusConflict, "in_flight", ""},
	{shared.ErrUserExists, http.StatusConflict, "user_exists", ""},
	{shared.ErrInvalidInput, http.StatusBadRequest, "invalid_input", ""},
	{shared.ErrInvalidArgument, http.StatusBadRequest, "invalid_input", ""},
	{shared.ErrMissingArgument, http.StatusBadRequest, "invalid_input", ""},
	{shared.ErrEmptyCurriculum, http.StatusBadRequest, "empty_curriculum", ""},
	{shared.ErrModuleNotFound, http.StatusNotFound, "module_not_found", ""},
	{shared.ErrMissingContent, http.StatusBadGateway, "missing_content", ""},
	{shared.ErrMalformedResponse, http.StatusBadGateway, "malformed_response", ""},
	{shared.ErrTimeout, http.StatusGatewayTimeout, "timeout", ""},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout", ""},
	{context.Canceled, http.StatusRequestTimeout, "canceled", ""},
	{shared.ErrAuthFailed, http.StatusBadGateway, "upstream", ""},
	{shared.ErrAPIRequest, http.StatusBadGateway, "upstream", ""},
	{shared.ErrServiceUnavailable, http.StatusBadGateway, "upstream", ""},
}

// classify maps err to a status code and error body.
func classify(err error) (int, ErrorBody) {
	body := ErrorBody{Error: shared.UserMessage(err), Kind: "internal"}
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			body.Kind = m.kind
			body.Route = m.route
			return m.status, body
		}
	}
	body.Error = "Something went wrong. Please try again."
	return http.StatusInternalServerError, body
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := shared.MarshalJSON(v, false)
	if err != nil {
		http.Error(w, `{"error":"failed to encode response","kind":"internal"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, err error) {
	status, body := classify(err)
	writeJSON(w, status, body)
}

// decodeJSON reads a single JSON object from the request body, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body: %w", shared.ErrInvalidInput, err)
	}
	return nil
}
