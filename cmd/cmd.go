// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag(path string) cli.Flag {
	if path == "" {
		path = "config.toml"
	}
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   path,
	}
}

func serverFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "server",
		Aliases: []string{"s"},
		Usage:   "reeltrack site URL (default: server.site_url)",
	}
}

// serveCommand runs the web server
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the web server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default: server.host:server.port)",
			},
			&cli.BoolFlag{
				Name:  "no-warm",
				Usage: "Disable the background sitemap warmer",
			},
		},
		Action: r.Serve,
	}
}

// setupCommand handles setup operations for the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Flags:  []cli.Flag{configFlag(r.configPath)},
				Action: r.SetupDatabase,
			},
			{
				Name:   "status",
				Usage:  "List migrations and whether they are applied",
				Flags:  []cli.Flag{configFlag(r.configPath)},
				Action: r.SetupStatus,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Flags:  []cli.Flag{configFlag(r.configPath)},
				Action: r.SetupRollback,
			},
		},
	}
}

// sitemapCommand generates crawler documents
func sitemapCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sitemap",
		Usage: "Generate sitemaps and robots.txt",
		Commands: []*cli.Command{
			{
				Name:  "build",
				Usage: "Build sitemap feeds from the backend",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "category",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "dir",
						Aliases: []string{"d"},
						Usage:   "Write sitemap.xml, sitemaps/*.xml and robots.txt into this directory",
					},
				},
				Action: r.SitemapBuild,
			},
			{
				Name:   "robots",
				Usage:  "Print robots.txt",
				Action: r.SitemapRobots,
			},
		},
	}
}

// apiCommand handles direct backend API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct calls to the upstream backend",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET to the backend, prints raw JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output compact JSON",
					},
					&cli.BoolFlag{
						Name:  "auth",
						Usage: "Send the saved session token",
					},
				},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "Direct POST with JSON body",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "JSON body to send",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "auth",
						Usage: "Send the saved session token",
					},
				},
				Action: r.APIPost,
			},
			{
				Name:   "health",
				Usage:  "Check that the backend is reachable",
				Action: r.APIHealth,
			},
		},
	}
}

func loginCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in and save the session token",
		Flags: []cli.Flag{
			serverFlag(),
			&cli.StringFlag{
				Name:     "email",
				Aliases:  []string{"e"},
				Usage:    "Account email",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "password",
				Aliases: []string{"p"},
				Usage:   "Account password",
				Sources: cli.EnvVars("REELTRACK_PASSWORD"),
			},
		},
		Action: r.Login,
	}
}

func logoutCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "Revoke the session and forget the saved token",
		Flags:  []cli.Flag{serverFlag()},
		Action: r.Logout,
	}
}

func whoamiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "whoami",
		Usage:  "Show the signed-in account",
		Flags:  []cli.Flag{serverFlag()},
		Action: r.Whoami,
	}
}

// watchlistCommand handles watchlist operations
func watchlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "watchlist",
		Usage: "Watchlist operations",
		Commands: []*cli.Command{
			{
				Name:  "export",
				Usage: "Export the watchlist as csv, md or txt",
				Flags: []cli.Flag{
					serverFlag(),
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format (csv, md, txt)",
						Value:   "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (default: watchlist.<format>)",
					},
				},
				Action: r.WatchlistExport,
			},
		},
	}
}

// browseCommand returns the top-level TUI command.
func browseCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "browse",
		Aliases: []string{"tui", "ui"},
		Usage:   "Browse titles, reviews and your watchlist in the terminal",
		Flags: []cli.Flag{
			serverFlag(),
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the TUI runs",
				Value: "./tmp/reeltrack-tui.log",
			},
		},
		Action: r.Browse,
	}
}
