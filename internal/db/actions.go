package db

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	dbpkg "github.com/dtnitsch/audiofetch/pkg/db"
	"github.com/dtnitsch/audiofetch/pkg/progress"
	"github.com/urfave/cli/v2"
)

// HistoryAction lists recent runs, or shows one run when an ID or UUID is
// given.
func HistoryAction(c *cli.Context) error {
	database, err := openHistory(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), 2)
	}
	defer database.Close()

	if c.NArg() == 0 {
		return PrintRuns(c.App.Writer, database, c.Int("limit"))
	}

	run, err := ResolveRun(c.Args().First(), database)
	if errors.Is(err, dbpkg.ErrRunNotFound) {
		return cli.Exit(fmt.Sprintf("Error: run %s not found", c.Args().First()), 1)
	}
	if err != nil {
		return err
	}
	return PrintRun(c.App.Writer, database, run)
}

func openHistory(c *cli.Context) (*dbpkg.DB, error) {
	path := c.String("db")
	if path == "" {
		path = dbpkg.DefaultPath(c.String("state-dir"))
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("no history at %s. Run 'audiofetch fetch' first", path)
	}
	database, err := dbpkg.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return database, nil
}

// PrintRuns writes a table of the most recent runs.
func PrintRuns(w io.Writer, database *dbpkg.DB, limit int) error {
	runs, err := database.ListRuns(limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found")
		return nil
	}

	fmt.Fprintf(w, "%-6s %-20s %-7s %-11s %-8s %-7s %-30s\n",
		"ID", "Created", "Assets", "Downloaded", "Skipped", "Failed", "Directory")
	fmt.Fprintln(w, strings.Repeat("-", 96))

	for _, r := range runs {
		fmt.Fprintf(w, "%-6d %-20s %-7d %-11d %-8d %-7d %-30s\n",
			r.RunID,
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			r.AssetCount,
			r.DownloadedCount,
			r.SkippedCount,
			r.FailedCount,
			r.Dir,
		)
	}

	fmt.Fprintf(w, "\nTotal: %d runs\n", len(runs))
	fmt.Fprintf(w, "\nTip: Use 'audiofetch history <id>' to see details\n")
	return nil
}

// PrintRun writes the per-asset results and every attempt of one run.
func PrintRun(w io.Writer, database *dbpkg.DB, run *dbpkg.Run) error {
	results, err := database.GetRunResults(run.RunID)
	if err != nil {
		return fmt.Errorf("failed to get run results: %w", err)
	}
	attempts, err := database.GetRunAttempts(run.RunID)
	if err != nil {
		return fmt.Errorf("failed to get run attempts: %w", err)
	}

	fmt.Fprintf(w, "Run %d (%s)\n", run.RunID, run.UUID)
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "Created:     %s\n", run.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Directory:   %s\n", run.Dir)
	fmt.Fprintf(w, "Assets:      %d total (%d downloaded, %d skipped, %d failed)\n",
		run.AssetCount, run.DownloadedCount, run.SkippedCount, run.FailedCount)

	if len(results) > 0 {
		fmt.Fprintf(w, "\nResults (%d):\n", len(results))
		fmt.Fprintln(w, strings.Repeat("-", 60))
		for i, r := range results {
			fmt.Fprintf(w, "%2d. [%s] %s\n", i+1, r.Status, r.AssetName)
			if r.URL != "" {
				fmt.Fprintf(w, "    URL: %s | Size: %s\n", r.URL, progress.Bytes(r.SizeBytes))
			}
		}
	}

	if len(attempts) > 0 {
		fmt.Fprintf(w, "\nAttempts (%d):\n", len(attempts))
		fmt.Fprintln(w, strings.Repeat("-", 60))
		for i, a := range attempts {
			mark := "✓"
			if !a.Success {
				mark = "✗"
			}
			fmt.Fprintf(w, "%2d. %s %s %s\n", i+1, mark, a.AssetName, a.URL)
			if a.Success {
				fmt.Fprintf(w, "    Status: %d | Size: %s | %dms\n", a.StatusCode, progress.Bytes(a.Bytes), a.DurationMS)
			} else {
				fmt.Fprintf(w, "    Error: [%s] %s\n", a.ErrorType, a.ErrorMessage)
			}
		}
	}
	return nil
}
