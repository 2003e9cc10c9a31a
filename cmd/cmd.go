// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles setup operations for the local database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Create config.toml if missing, initialize the database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   defaultConfigPath,
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent database migration",
				Action: r.SetupRollback,
			},
		},
	}
}

// requestsCommand handles song request queue operations
func requestsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "requests",
		Aliases: []string{"req", "r"},
		Usage:   "Submit, list and manage song requests",
		Commands: []*cli.Command{
			{
				Name:  "submit",
				Usage: "Submit a new song request",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "title",
						Aliases:  []string{"t"},
						Usage:    "Song title",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "artist",
						Aliases: []string{"a"},
						Usage:   "Artist",
					},
					&cli.StringFlag{
						Name:  "link",
						Usage: "Link to the track (Spotify, YouTube, ...)",
					},
					&cli.StringFlag{
						Name:  "requester",
						Usage: "Name of the person requesting",
					},
					&cli.StringFlag{
						Name:    "message",
						Aliases: []string{"m"},
						Usage:   "Special message for the DJ",
					},
					&cli.IntFlag{
						Name:  "priority",
						Usage: "Explicit priority (default: end of the pending queue)",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.RequestsSubmit,
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List requests in queue order",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "status",
						Aliases: []string{"s"},
						Usage:   "Only show requests with this status (pending, playing, completed, rejected)",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON output",
						Value: true,
					},
				},
				Action: r.RequestsList,
			},
			{
				Name:  "status",
				Usage: "Set the status of a request",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
					&cli.StringArg{Name: "status"},
				},
				Action: r.RequestsSetStatus,
			},
			{
				Name:  "play",
				Usage: "Start playing a pending request",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.statusShortcut("playing"),
			},
			{
				Name:  "reject",
				Usage: "Reject a pending request",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.statusShortcut("rejected"),
			},
			{
				Name:  "complete",
				Usage: "Mark the playing request as completed",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.statusShortcut("completed"),
			},
			{
				Name:    "move",
				Aliases: []string{"mv"},
				Usage:   "Move a pending request up or down the queue",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
					&cli.StringArg{Name: "direction"},
				},
				Action: r.RequestsMove,
			},
			{
				Name:    "delete",
				Aliases: []string{"rm"},
				Usage:   "Permanently delete a request from the store",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.RequestsDelete,
			},
			{
				Name:  "export",
				Usage: "Export the queue to a file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format (csv, markdown, txt, json)",
						Value:   "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path, or directory with --split",
					},
					&cli.BoolFlag{
						Name:  "split",
						Usage: "Write one file per status plus a manifest",
					},
					&cli.StringSliceFlag{
						Name:  "also",
						Usage: "Additional formats to write with --split",
					},
				},
				Action: r.RequestsExport,
			},
		},
	}
}

// serveCommand starts the HTTP server
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the request form, DJ dashboard, JSON API, health probes and metrics",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (overrides server.host)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port (overrides server.port)",
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the dashboard in a browser once listening",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand returns the top-level TUI command for the DJ dashboard.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"dashboard", "ui"},
		Usage:   "Launch the terminal DJ dashboard",
		Action:  r.TUI,
	}
}
