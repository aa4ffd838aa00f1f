package main

import (
	"fmt"
	"os"

	dbcmd "github.com/dtnitsch/audiofetch/internal/db"
	"github.com/dtnitsch/audiofetch/internal/fetch"
	"github.com/dtnitsch/audiofetch/models"
	"github.com/dtnitsch/audiofetch/pkg/help"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	// Missing .env files are fine; real environment variables win.
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

func newApp() *cli.App {
	// Flags live on the commands only, so a flag given before the command
	// name is rejected instead of being shadowed by the command's default.
	return &cli.App{
		Name:           "audiofetch",
		Usage:          "Download the sound effects an app needs into its assets directory",
		DefaultCommand: "fetch",
		Commands: []*cli.Command{
			{
				Name:   "fetch",
				Usage:  "Download every missing asset in the manifest",
				Flags:  append(globalFlags(), fetchFlags()...),
				Action: fetch.FetchAction,
			},
			{
				Name:   "list",
				Usage:  "Show manifest assets and whether they are on disk",
				Flags:  globalFlags(),
				Action: fetch.ListAction,
			},
			{
				Name:      "history",
				Usage:     "List recent runs, or show one run's results and attempts",
				ArgsUsage: "[run-id|uuid]",
				Flags: append(globalFlags(), &cli.IntFlag{
					Name:    "limit",
					Value:   20,
					Usage:   "Number of runs to list",
					EnvVars: []string{"AUDIOFETCH_HISTORY_LIMIT"},
				}),
				Action: dbcmd.HistoryAction,
			},
			{
				Name:  "quickstart",
				Usage: "Print a YAML cheat sheet of common commands",
				Action: func(c *cli.Context) error {
					_, err := fmt.Fprint(c.App.Writer, help.ColdstartYAML)
					return err
				},
			},
		},
	}
}

// globalFlags are accepted by every command.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "manifest",
			Aliases: []string{"m"},
			Usage:   "YAML asset manifest (default: built-in sound set)",
			EnvVars: []string{"AUDIOFETCH_MANIFEST"},
		},
		&cli.StringFlag{
			Name:    "dir",
			Aliases: []string{"d"},
			Value:   models.DefaultAudioDir,
			Usage:   "Directory the audio files are saved to",
			EnvVars: []string{"AUDIOFETCH_DIR"},
		},
		&cli.StringFlag{
			Name:    "only",
			Usage:   "Comma-separated asset names to restrict the run to",
			EnvVars: []string{"AUDIOFETCH_ONLY"},
		},
		&cli.StringFlag{
			Name:    "state-dir",
			Value:   fetch.DefaultStateDir,
			Usage:   "Directory for history, cache and failure files",
			EnvVars: []string{"AUDIOFETCH_STATE_DIR"},
		},
		&cli.StringFlag{
			Name:    "db",
			Usage:   "History database path (default: <state-dir>/audiofetch.db)",
			EnvVars: []string{"AUDIOFETCH_DB"},
		},
		&cli.BoolFlag{
			Name:    "quiet",
			Aliases: []string{"q"},
			Usage:   "Only log errors and suppress progress lines",
			EnvVars: []string{"AUDIOFETCH_QUIET"},
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Log at debug level",
			EnvVars: []string{"AUDIOFETCH_VERBOSE"},
		},
	}
}

func fetchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:    "timeout",
			Value:   models.DefaultTimeout,
			Usage:   "Per-request timeout",
			EnvVars: []string{"AUDIOFETCH_TIMEOUT"},
		},
		&cli.IntFlag{
			Name:    "workers",
			Aliases: []string{"w"},
			Value:   1,
			Usage:   "Parallel downloads (1 = sequential, in manifest order)",
			EnvVars: []string{"AUDIOFETCH_WORKERS"},
		},
		&cli.BoolFlag{
			Name:    "force",
			Aliases: []string{"f"},
			Usage:   "Download even when the file already exists",
			EnvVars: []string{"AUDIOFETCH_FORCE"},
		},
		&cli.BoolFlag{
			Name:    "no-verify",
			Usage:   "Accept payloads that do not look like audio",
			EnvVars: []string{"AUDIOFETCH_NO_VERIFY"},
		},
		&cli.BoolFlag{
			Name:    "no-history",
			Usage:   "Do not read or write the history database",
			EnvVars: []string{"AUDIOFETCH_NO_HISTORY"},
		},
		&cli.StringFlag{
			Name:    "format",
			Value:   "text",
			Usage:   "Output format: text, json or yaml",
			EnvVars: []string{"AUDIOFETCH_FORMAT"},
		},
	}
}
