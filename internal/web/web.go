// Package web serves the static shell of the hash-routed browser app.
//
// The shell is a single page: every client route lives in the URL fragment
// (#/login, #/onboarding, #/app), so the server only ever serves "/" and the JSON API.
// On load it asks /auth/status whether the backend is configured and shows the
// banner text when it is not.
package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var static embed.FS

// Assets returns the embedded static files rooted at the static directory.
func Assets() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// Handler serves index.html for "/" and the remaining assets by name.
func Handler() http.Handler {
	return http.FileServerFS(Assets())
}
