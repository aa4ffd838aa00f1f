package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dtnitsch/audiofetch/internal/common"
	"github.com/dtnitsch/audiofetch/models"
	"github.com/dtnitsch/audiofetch/pkg/caching"
	"github.com/dtnitsch/audiofetch/pkg/db"
	"github.com/dtnitsch/audiofetch/pkg/fetcher"
	"github.com/dtnitsch/audiofetch/pkg/progress"
	"github.com/dtnitsch/audiofetch/pkg/storage"
	"github.com/urfave/cli/v2"
)

// DefaultStateDir holds the history database, the resolution cache and the
// failed-assets file.
const DefaultStateDir = ".audiofetch"

// ResolveCacheTTL is how long a landing-page resolution is trusted.
const ResolveCacheTTL = 7 * 24 * time.Hour

// NewLogger builds the JSON logger shared by all commands. It writes to the
// app's error writer, stderr unless a caller swaps it.
func NewLogger(c *cli.Context) *slog.Logger {
	logLevel := slog.LevelInfo
	if c.Bool("verbose") {
		logLevel = slog.LevelDebug
	}
	if c.Bool("quiet") {
		logLevel = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: logLevel}))
}

// LoadManifest returns the manifest named by --manifest, or the built-in
// one, cleaned, validated and narrowed by --only and --dir.
func LoadManifest(c *cli.Context, logger *slog.Logger) (*models.Manifest, error) {
	var (
		manifest *models.Manifest
		err      error
	)
	if path := c.String("manifest"); path != "" {
		manifest, err = models.LoadManifest(path)
		if err != nil {
			return nil, err
		}
	} else {
		manifest = models.DefaultManifest()
	}

	if n := common.SanitizeManifest(manifest); n > 0 {
		logger.Info("Cleaned manifest URLs", "count", n)
	}
	if err := manifest.Validate(); err != nil {
		return nil, err
	}

	manifest, err = manifest.Select(common.SplitList(c.String("only")))
	if err != nil {
		return nil, err
	}
	if c.IsSet("dir") {
		manifest.Dir = c.String("dir")
	}
	return manifest, nil
}

func configFromFlags(c *cli.Context, manifest *models.Manifest) *models.FetchConfig {
	return &models.FetchConfig{
		Dir:         manifest.Dir,
		Timeout:     c.Duration("timeout"),
		WorkerCount: c.Int("workers"),
		Force:       c.Bool("force"),
		Verify:      !c.Bool("no-verify"),
		UseHistory:  !c.Bool("no-history"),
	}
}

// historyPath returns the database path, honoring --db.
func historyPath(c *cli.Context) string {
	if p := c.String("db"); p != "" {
		return p
	}
	return db.DefaultPath(c.String("state-dir"))
}

// FetchAction downloads every missing asset of the manifest.
func FetchAction(c *cli.Context) error {
	logger := NewLogger(c)

	format := strings.ToLower(c.String("format"))
	switch format {
	case "text", "json", "yaml":
	default:
		return cli.Exit(fmt.Sprintf("Error: unknown --format %q (use text, json or yaml)", format), 2)
	}

	manifest, err := LoadManifest(c, logger)
	if err != nil {
		logger.Error("failed to load manifest", "error", err)
		return cli.Exit(fmt.Sprintf("Error: %v", err), 2)
	}
	cfg := configFromFlags(c, manifest)

	store, err := storage.New(cfg.Dir)
	if err != nil {
		logger.Error("failed to initialize storage", "error", err)
		return cli.Exit(fmt.Sprintf("Error: %v", err), 2)
	}

	stateDir := c.String("state-dir")
	cachePath := filepath.Join(stateDir, caching.DefaultFileName)
	cache, err := caching.NewCache(cachePath, ResolveCacheTTL)
	if err != nil {
		// A corrupt cache only costs extra page fetches.
		logger.Warn("Failed to load resolution cache, starting empty", "error", err)
		_ = os.Remove(cachePath)
		if cache, err = caching.NewCache(cachePath, ResolveCacheTTL); err != nil {
			cache = nil
		}
	}

	var history *db.DB
	if cfg.UseHistory {
		history, err = db.Open(historyPath(c))
		if err != nil {
			logger.Error("failed to open database", "error", err)
			return cli.Exit(fmt.Sprintf("Error: %v (use --no-history to run without it)", err), 2)
		}
		defer history.Close()
	}

	// Human-readable lines go to stdout unless stdout carries the report.
	out := c.App.Writer
	if format != "text" {
		out = c.App.ErrWriter
	}
	if c.Bool("quiet") {
		out = io.Discard
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, runErr := Run(ctx, logger, cfg, manifest, Deps{
		Fetcher:      fetcher.New(fetcher.WithTimeout(cfg.Timeout)),
		Storage:      store,
		Cache:        cache,
		History:      history,
		Out:          out,
		ShowProgress: cfg.WorkerCount <= 1 && out != io.Discard,
	})
	if report == nil {
		logger.Error("fetch failed", "error", runErr)
		return cli.Exit(fmt.Sprintf("Error: %v", runErr), 2)
	}
	if errors.Is(runErr, context.Canceled) {
		logger.Warn("Run interrupted", "run_id", report.RunID)
	}

	if err := WriteFailedAssets(report, stateDir); err != nil {
		logger.Warn("Failed to write failed assets file", "error", err)
	}

	if format == "text" {
		PrintSummary(out, report)
	} else if err := WriteReport(c.App.Writer, report, format); err != nil {
		logger.Error("failed to write report", "error", err)
		return cli.Exit("", 2)
	}

	if code := report.ExitCode(); code != 0 {
		return cli.Exit("", code)
	}
	return nil
}

// ListAction shows every manifest asset and whether it is on disk.
func ListAction(c *cli.Context) error {
	logger := NewLogger(c)

	manifest, err := LoadManifest(c, logger)
	if err != nil {
		logger.Error("failed to load manifest", "error", err)
		return cli.Exit(fmt.Sprintf("Error: %v", err), 2)
	}

	PrintAssetList(c.App.Writer, manifest, storage.At(manifest.Dir))
	return nil
}

// PrintAssetList writes one line per asset with its presence and size.
func PrintAssetList(w io.Writer, manifest *models.Manifest, store *storage.Storage) {
	fmt.Fprintf(w, "Directory: %s\n\n", store.Dir())

	present := 0
	for _, asset := range manifest.Assets {
		stats, err := store.GetFileStats(asset.Name)
		if err != nil {
			fmt.Fprintf(w, "  ✗ %-28s missing   (%d URLs)\n", asset.Name, len(asset.Candidates()))
			continue
		}
		present++
		fmt.Fprintf(w, "  ✓ %-28s %-9s %s\n", asset.Name, progress.Bytes(stats.SizeBytes), stats.ModTime.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(w, "\n%d/%d present\n", present, len(manifest.Assets))
}
