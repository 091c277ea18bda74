// submodule cmd contains command definitions
package main

import (
	"context"

	"github.com/desertthunder/tidalbridge/internal/formatter"
	"github.com/urfave/cli/v3"
)

// rootCommand assembles the application. Global flags must precede the command name.
func rootCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tidalbridge",
		Usage:   "Fetch TIDAL playlists, similar artists and track radio as JSON",
		Version: "0.2.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars("TIDALBRIDGE_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "session-file",
				Usage:   "Path to the session file (overrides session.path)",
				Sources: cli.EnvVars("TIDALBRIDGE_SESSION_FILE"),
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Track list format: json, csv, markdown or txt",
				Value: formatter.FormatJSON,
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Before:         r.Before,
		Action:         r.Dispatch,
		Commands:       r.register(),
		Writer:         r.errOutput,
		ErrWriter:      r.errOutput,
		ExitErrHandler: func(ctx context.Context, cmd *cli.Command, err error) {},
	}
}

func checkAuthCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "check_auth",
		Usage:  "Report whether a valid session exists",
		Action: r.CheckAuth,
	}
}

func loginStartCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "login_start",
		Usage:  "Begin a device login and print the code to show the user",
		Action: r.LoginStart,
	}
}

func loginPollCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:            "login_poll",
		Usage:           "Poll a device code once, saving the session when approved",
		ArgsUsage:       "<device_code>",
		SkipFlagParsing: true,
		Action:          r.LoginPoll,
	}
}

func fetchPlaylistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:            "fetch_playlist",
		Usage:           "Print the tracks of a playlist",
		ArgsUsage:       "<playlist_id>",
		SkipFlagParsing: true,
		Action:          r.FetchPlaylist,
	}
}

func similarArtistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:            "similar_artists",
		Usage:           "Print the top tracks of artists similar to each name",
		ArgsUsage:       "<name> ...",
		SkipFlagParsing: true,
		Action:          r.SimilarArtists,
	}
}

func trackRadioCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:            "track_radio",
		Usage:           "Print the combined radio of one or more tracks",
		ArgsUsage:       "<track_id> ...",
		SkipFlagParsing: true,
		Action:          r.TrackRadio,
	}
}

func loginCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Log in interactively, waiting until the device code is approved",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-tui",
				Usage: "Print the code to stderr and poll without the login screen",
			},
		},
		Action: r.Login,
	}
}

func logoutCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "Delete the stored session",
		Action: r.Logout,
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Write a config file from the built-in template",
		Action: r.Setup,
	}
}
