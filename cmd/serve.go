package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/modulearn/internal/server"
)

// Serve runs the web app and JSON API until the context is cancelled.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Server
	if host := cmd.String("host"); host != "" {
		cfg.Host = host
	}
	if port := cmd.Int("port"); port > 0 {
		cfg.Port = int(port)
	}

	if !r.auth.Configured() {
		r.logger.Warn("auth backend not configured; sign-in endpoints will report it")
	}
	if r.videos == nil {
		r.logger.Warn("no YouTube API key; video recommendations are disabled")
	}

	srv := server.New(server.Options{
		Auth:              r.auth,
		Engine:            r.engine,
		Videos:            r.videos,
		MaxVideos:         r.config.YouTube.MaxResults,
		RedirectURL:       r.config.Auth.RedirectURL,
		RequestsPerMinute: cfg.RequestsPerMinute,
		Burst:             cfg.Burst,
		Logger:            r.logger,
	})

	r.writePlain("→ Serving on http://%s\n", cfg.Addr())
	if err := srv.ListenAndServe(ctx, cfg.Addr()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
