// package shared defines shared helpers
package shared

import (
	"crypto/rand"
	"encoding/base64"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// NewLogger creates a new [log.Logger] instance with the specified [io.Writer], with timestamps and caller reporting enabled.
//
// The writer defaults to [os.Stderr]
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := log.Options{ReportTimestamp: true, ReportCaller: true}
	return log.NewWithOptions(w, opts)
}

// NewComponentLogger returns a child of l tagged with the component prefix.
// A nil parent yields a discarding logger so collaborators never need nil checks.
func NewComponentLogger(l *log.Logger, component string) *log.Logger {
	if l == nil {
		return log.New(io.Discard)
	}
	return l.WithPrefix(component)
}

// SetLogLevel sets the [log.Level] for the given [log.Logger].
func SetLogLevel(l *log.Logger, ll log.Level) {
	l.SetLevel(ll)
}

// GenerateID generates a new v4 [uuid.UUID] as a string
func GenerateID() string {
	return uuid.New().String()
}

// GenerateState returns a URL-safe random token used as the OAuth state parameter.
func GenerateState() string {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return GenerateID()
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// NewFileLogger creates a logger that appends to path, creating parent directories.
// Used while a TUI owns the terminal.
func NewFileLogger(path string) (*log.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return NewLogger(f), nil
}
