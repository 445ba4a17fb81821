// submodule cmd contains command definitions
package main

import (
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/modulearn/internal/formatter"
)

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Output raw JSON",
	}
}

func inputFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "input",
		Aliases: []string{"i"},
		Usage:   "Curriculum JSON file written by path generate --output",
	}
}

func levelFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "level",
		Usage: "Education level override: school, college or professional (default: from your profile)",
	}
}

func prefetchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "workers",
			Usage: "Concurrent video searches (max 10)",
			Value: 3,
		},
		&cli.FloatFlag{
			Name:  "rate",
			Usage: "Video searches per second",
			Value: 2,
		},
		&cli.StringFlag{
			Name:  "language",
			Usage: "Relevance language code for video search (default: from your profile or en)",
		},
	}
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write config.toml from the built-in template",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
					},
					&cli.StringFlag{Name: "auth", Usage: "Auth provider: hosted or local"},
					&cli.StringFlag{Name: "database", Usage: "Profile store: hosted, sqlite or postgres"},
					&cli.StringFlag{Name: "completion", Usage: "Completion provider: groq or gemini"},
				},
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
					},
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the latest migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// serveCommand runs the web app.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the web app and JSON API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (default: server.host)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port (default: server.port)",
			},
		},
		Action: r.Serve,
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage authentication",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in with email and password, or in the browser when --email is omitted",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Usage: "Account email"},
					&cli.StringFlag{Name: "password", Usage: "Account password (or MODULEARN_PASSWORD)"},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "signup",
				Usage: "Create an account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "Full name"},
					&cli.StringFlag{Name: "email", Usage: "Account email", Required: true},
					&cli.StringFlag{Name: "password", Usage: "Password (at least 6 characters)", Required: true},
					&cli.StringFlag{Name: "confirm", Usage: "Repeat the password (default: same as --password)"},
				},
				Action: r.AuthSignUp,
			},
			{
				Name:   "logout",
				Usage:  "Sign out and forget the stored session",
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Show the auth backend and the signed-in user",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.AuthStatus,
			},
		},
	}
}

// profileCommand reads and edits the learner profile.
func profileCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "profile",
		Usage: "Show or edit your profile",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print your profile",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.ProfileShow,
			},
			{
				Name:  "set",
				Usage: "Update name, gender or age",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "Full name"},
					&cli.StringFlag{Name: "gender", Usage: "male, female, other or prefer_not_to_say"},
					&cli.StringFlag{Name: "age", Usage: "Age in years"},
				},
				Action: r.ProfileSet,
			},
		},
	}
}

// onboardCommand runs the onboarding wizard.
func onboardCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "onboard",
		Usage:  "Set up your learner profile interactively",
		Action: r.Onboard,
	}
}

// pathCommand handles learning path operations.
func pathCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "path",
		Aliases: []string{"p"},
		Usage:   "Generate, edit and export learning paths",
		Commands: []*cli.Command{
			{
				Name:  "generate",
				Usage: "Generate a learning path for a topic",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "topic"},
				},
				Flags: append([]cli.Flag{
					levelFlag(),
					jsonFlag(),
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Save the curriculum JSON to this file",
					},
					&cli.BoolFlag{
						Name:  "prefetch",
						Usage: "Search recommended videos for every module",
					},
				}, prefetchFlags()...),
				Action: r.PathGenerate,
			},
			{
				Name:  "refine",
				Usage: "Regenerate a module with more detail",
				Flags: []cli.Flag{
					inputFlag(),
					jsonFlag(),
					&cli.StringFlag{Name: "module", Aliases: []string{"m"}, Usage: "Module id, e.g. module_2"},
					&cli.BoolFlag{Name: "all", Usage: "Refine every module"},
					&cli.IntFlag{Name: "workers", Usage: "Concurrent refinements with --all", Value: 3},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write here instead of overwriting --input"},
				},
				Action: r.PathRefine,
			},
			{
				Name:  "edit",
				Usage: "Add, remove, move or update modules",
				Flags: []cli.Flag{
					inputFlag(),
					jsonFlag(),
					&cli.StringFlag{
						Name:     "ops",
						Usage:    `JSON edit operations, e.g. '[{"op":"move","id":"module_3","to":0}]'`,
						Required: true,
					},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write here instead of overwriting --input"},
				},
				Action: r.PathEdit,
			},
			{
				Name:  "explain",
				Usage: "Explain one subtopic of a module",
				Flags: []cli.Flag{
					inputFlag(),
					jsonFlag(),
					&cli.StringFlag{Name: "module", Aliases: []string{"m"}, Usage: "Module id"},
					&cli.StringFlag{Name: "subtopic", Aliases: []string{"s"}, Usage: "Subtopic to explain"},
				},
				Action: r.PathExplain,
			},
			{
				Name:  "export",
				Usage: "Export a curriculum with a manifest",
				Flags: append([]cli.Flag{
					inputFlag(),
					jsonFlag(),
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: json, csv, markdown or txt",
						Value:   formatter.FormatMarkdown,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory (default: {slug}_export_{epoch})",
					},
					&cli.BoolFlag{
						Name:  "prefetch",
						Usage: "Include recommended videos in Markdown exports",
					},
				}, prefetchFlags()...),
				Action: r.PathExport,
			},
		},
	}
}

// videosCommand lists recommended videos.
func videosCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "videos",
		Usage: "List recommended videos for a module",
		Flags: append([]cli.Flag{
			inputFlag(),
			jsonFlag(),
			&cli.StringFlag{Name: "module", Aliases: []string{"m"}, Usage: "Module id"},
			&cli.BoolFlag{Name: "all", Usage: "Search every module concurrently"},
		}, prefetchFlags()...),
		Action: r.Videos,
	}
}

// learnCommand returns the interactive learning view.
func learnCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "learn",
		Aliases: []string{"tui", "ui"},
		Usage:   "Study a learning path interactively",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "topic"},
		},
		Flags: append([]cli.Flag{
			inputFlag(),
			levelFlag(),
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Save the curriculum JSON when the session ends",
			},
		}, prefetchFlags()...),
		Action: r.Learn,
	}
}
