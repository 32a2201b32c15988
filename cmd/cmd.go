// submodule cmd contains command definitions
package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/synoplay/internal/formatter"
	"github.com/desertthunder/synoplay/internal/shared"
)

// newApp builds the root command. Root flags apply to every subcommand.
func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "synoplay",
		Usage:   "Browse and play a Synology Audio Station library",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars("SYNOPLAY_CONFIG"),
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Keep the session in memory only",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging",
			},
		},
		Commands: r.register(),
		After: func(ctx context.Context, cmd *cli.Command) error {
			return r.Close()
		},
	}
}

func pagingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "offset",
			Usage: "Index of the first item",
		},
		&cli.IntFlag{
			Name:    "limit",
			Aliases: []string{"n"},
			Usage:   "Items per page (default: nas.page_size)",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
		},
	}
}

// loginCommand authenticates and caches the session
func loginCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Log in to Audio Station and cache the session",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Usage:   "NAS address, e.g. http://diskstation:5000 (default: nas.url)",
				Sources: cli.EnvVars(shared.EnvNASURL),
			},
			&cli.StringFlag{
				Name:    "username",
				Aliases: []string{"u"},
				Usage:   "Account name (default: nas.username)",
				Sources: cli.EnvVars(shared.EnvUsername),
			},
			&cli.StringFlag{
				Name:    "password",
				Aliases: []string{"p"},
				Usage:   "Password (default: nas.password)",
				Sources: cli.EnvVars(shared.EnvPassword),
			},
		},
		Action: r.action(r.Login),
	}
}

// logoutCommand ends the session
func logoutCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "End the session and clear the cached session id",
		Action: r.action(r.Logout),
	}
}

// statusCommand reports the cached session
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the current endpoint and session",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "check",
				Usage: "Verify the session with a one-song request",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.action(r.Status),
	}
}

// songsCommand lists one page of songs
func songsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "songs",
		Usage: "List songs",
		Flags: append(pagingFlags(), &cli.BoolFlag{
			Name:  "csv",
			Usage: "Output CSV",
		}),
		Action: r.action(r.Songs),
	}
}

// albumsCommand lists one page of albums
func albumsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "albums",
		Usage:  "List albums",
		Flags:  pagingFlags(),
		Action: r.action(r.Albums),
	}
}

// albumCommand shows or exports one album
func albumCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "album",
		Usage: "Show the tracklist of an album",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "name"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "artist",
				Aliases: []string{"a"},
				Usage:   "Album artist",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Write a tracklist file: csv, markdown, text or json",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Directory for --format output",
				Value:   ".",
			},
			&cli.BoolFlag{
				Name:  "cover",
				Usage: "Save cover art with markdown output",
				Value: true,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.action(r.Album),
	}
}

// streamCommand prints a stream URL
func streamCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "stream",
		Usage: "Print the stream URL of a song",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id"},
		},
		Action: r.action(r.Stream),
	}
}

// coverCommand prints or downloads album artwork
func coverCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cover",
		Usage: "Print the cover URL of an album",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "name"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "artist",
				Aliases: []string{"a"},
				Usage:   "Album artist",
			},
			&cli.StringFlag{
				Name:    "save",
				Aliases: []string{"o"},
				Usage:   "Download the image to this path",
			},
		},
		Action: r.action(r.Cover),
	}
}

// playCommand plays a song with the configured player
func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "Play a song with the configured external player",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id"},
		},
		Action: r.action(r.Play),
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive terminal UI",
		Action:  r.action(r.TUI),
	}
}

// serveCommand runs the web front end
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the web front end",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (default: server.host)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port (default: server.port)",
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the front end in the default browser",
			},
		},
		Action: r.action(r.Serve),
	}
}

// dumpCommand snapshots the session and first pages
func dumpCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "dump",
		Usage: "Dump the session and the first page of songs and albums as JSON",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Items per endpoint (default: nas.page_size)",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
			&cli.StringFlag{
				Name:  "save",
				Usage: "Also write the dump to this file",
			},
		},
		Action: r.action(r.Dump),
	}
}

// exportCommand writes tracklists for every album
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export the tracklist of every album",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "csv, markdown, text or json",
				Value:   formatter.FormatMarkdown,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output directory (default: synoplay_export_{epoch})",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent file writers (max 10)",
				Value: 4,
			},
			&cli.FloatFlag{
				Name:  "rate",
				Usage: "NAS requests per second",
				Value: 5,
			},
			&cli.IntFlag{
				Name:  "max-albums",
				Usage: "Stop after this many albums (0 exports all)",
			},
			&cli.BoolFlag{
				Name:  "covers",
				Usage: "Download cover art for markdown exports",
				Value: true,
			},
		},
		Action: r.action(r.Export),
	}
}

// apiCommand handles raw web API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Raw Synology web API calls",
		Commands: []*cli.Command{
			{
				Name:      "call",
				Usage:     "Call a web API method with the current session and print its data",
				ArgsUsage: "<cgi path> <api> <method>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "cgi"},
					&cli.StringArg{Name: "api"},
					&cli.StringArg{Name: "method"},
				},
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "version",
						Usage: "API version",
						Value: 1,
					},
					&cli.StringSliceFlag{
						Name:    "param",
						Aliases: []string{"P"},
						Usage:   "Extra query parameter as key=value (repeatable)",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.action(r.APICall),
			},
		},
	}
}

// cacheCommand manages the session cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Manage the session cache",
		Commands: []*cli.Command{
			{
				Name:   "clear",
				Usage:  "Remove the cached endpoint and session id",
				Action: r.action(r.CacheClear),
			},
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
				Name:   "config",
				Usage:  "Write a config file from the built-in template",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize the session cache database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}
