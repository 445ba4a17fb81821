package shared

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")
	ErrNotConfigured = fmt.Errorf("backend not configured")

	// Authentication errors
	ErrAuthFailed         = fmt.Errorf("authentication failed")
	ErrNotAuthenticated   = fmt.Errorf("not authenticated")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrTokenExpired       = fmt.Errorf("access token expired")
	ErrRateLimited        = fmt.Errorf("too many attempts")
	ErrTimeout            = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrMissingContent     = fmt.Errorf("no content received")
	ErrMalformedResponse  = fmt.Errorf("failed to parse response")
	ErrRequestInFlight    = fmt.Errorf("request already in progress")

	// Storage errors
	ErrProfileNotFound = fmt.Errorf("profile not found")
	ErrUserExists      = fmt.Errorf("user already exists")

	// Input validation errors
	ErrInvalidInput      = fmt.Errorf("invalid input")
	ErrMissingArgument   = fmt.Errorf("missing required argument")
	ErrInvalidArgument   = fmt.Errorf("invalid argument")
	ErrEmptyCurriculum   = fmt.Errorf("curriculum has no modules")
	ErrModuleNotFound    = fmt.Errorf("module not found")
	ErrIncompleteProfile = fmt.Errorf("profile onboarding incomplete")
)

// User-facing messages for errors shown verbatim in banners and CLI output.
const (
	MsgNotConfigured = "Database not fully configured. Please check your auth settings."
	MsgRateLimited   = "Too many attempts. Please wait a moment before trying again."
	MsgInvalidLogin  = "Invalid login credentials"
)

// UserMessage returns the text a user should see for err.
//
// Validation errors carry their message after the sentinel prefix, which is dropped.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRateLimited):
		return MsgRateLimited
	case errors.Is(err, ErrNotConfigured) && err.Error() == ErrNotConfigured.Error():
		return MsgNotConfigured
	case errors.Is(err, ErrInvalidCredentials):
		return MsgInvalidLogin
	}

	msg := err.Error()
	for _, prefix := range []error{ErrInvalidInput, ErrInvalidArgument, ErrNotConfigured, ErrProfileNotFound} {
		msg = strings.TrimPrefix(msg, prefix.Error()+": ")
	}
	return msg
}
