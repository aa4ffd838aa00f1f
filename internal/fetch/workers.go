package fetch

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/dtnitsch/audiofetch/models"
	"github.com/dtnitsch/audiofetch/pkg/audio"
	"github.com/dtnitsch/audiofetch/pkg/caching"
	"github.com/dtnitsch/audiofetch/pkg/db"
	"github.com/dtnitsch/audiofetch/pkg/fetcher"
	"github.com/dtnitsch/audiofetch/pkg/progress"
	"github.com/dtnitsch/audiofetch/pkg/resolver"
	"github.com/dtnitsch/audiofetch/pkg/storage"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// maxPageBytes caps how much of an HTML landing page is read.
const maxPageBytes = 2 << 20

// Deps are the collaborators a run needs. Cache and History may be nil.
type Deps struct {
	Fetcher      *fetcher.Fetcher
	Storage      *storage.Storage
	Cache        *caching.Cache
	History      *db.DB
	Out          io.Writer
	ShowProgress bool
}

type downloader struct {
	logger *slog.Logger
	cfg    *models.FetchConfig
	deps   Deps
	runID  int64

	outMu sync.Mutex
}

// Run downloads every asset in the manifest that is not already on disk,
// trying each asset's URLs in order. A failing URL or asset never stops
// the run; only context cancellation does.
func Run(ctx context.Context, logger *slog.Logger, cfg *models.FetchConfig, manifest *models.Manifest, deps Deps) (*Report, error) {
	if deps.Fetcher == nil || deps.Storage == nil {
		return nil, errors.New("fetch: fetcher and storage are required")
	}
	if deps.Out == nil {
		deps.Out = io.Discard
	}

	d := &downloader{logger: logger, cfg: cfg, deps: deps}
	report := &Report{
		RunID:     uuid.NewString(),
		Dir:       deps.Storage.Dir(),
		StartedAt: time.Now(),
		Results:   make([]AssetResult, len(manifest.Assets)),
	}

	if deps.History != nil {
		runID, err := deps.History.CreateRun(report.RunID, report.Dir, len(manifest.Assets))
		if err != nil {
			logger.Warn("Failed to create run in history", "error", err)
		} else {
			d.runID = runID
		}
	}

	workers := cfg.WorkerCount
	if workers < 1 {
		workers = 1
	}
	logger.Info("Starting fetch", "run_id", report.RunID, "assets", len(manifest.Assets), "dir", report.Dir, "workers", workers, "force", cfg.Force)

	if workers == 1 {
		for i, asset := range manifest.Assets {
			report.Results[i] = d.processAsset(ctx, asset)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for i, asset := range manifest.Assets {
			g.Go(func() error {
				report.Results[i] = d.processAsset(gctx, asset)
				return nil
			})
		}
		_ = g.Wait()
	}

	report.tally()
	report.ElapsedSeconds = time.Since(report.StartedAt).Seconds()
	d.persist(report)

	if deps.Cache != nil {
		if err := deps.Cache.Save(); err != nil {
			logger.Warn("Failed to save resolution cache", "error", err)
		}
	}

	logger.Info("Fetch finished", "run_id", report.RunID, "status", report.Status, "available", report.Available, "total", report.Total)
	return report, ctx.Err()
}

func (d *downloader) printf(format string, args ...any) {
	d.outMu.Lock()
	defer d.outMu.Unlock()
	fmt.Fprintf(d.deps.Out, format, args...)
}

func (d *downloader) processAsset(ctx context.Context, asset models.Asset) AssetResult {
	st := d.deps.Storage
	result := AssetResult{Name: asset.Name, Path: st.Path(asset.Name)}

	if !d.cfg.Force && st.HasFile(asset.Name) {
		result.Status = StatusSkipped
		if stats, err := st.GetFileStats(asset.Name); err == nil {
			result.SizeBytes = stats.SizeBytes
			result.Size = progress.Bytes(stats.SizeBytes)
		}
		d.printf("⏭ File already exists: %s (%s)\n", asset.Name, progress.KB(result.SizeBytes))
		d.logger.Info("Asset already present, skipping", "asset", asset.Name, "size_bytes", result.SizeBytes)
		return result
	}

	assetID := d.assetID(asset.Name)
	for _, candidate := range d.orderCandidates(asset) {
		if ctx.Err() != nil {
			break
		}

		attempt := d.tryURL(ctx, asset.Name, candidate)
		result.Attempts = append(result.Attempts, attempt)
		d.recordAttempt(assetID, attempt)

		if attempt.OK() {
			result.Status = StatusDownloaded
			result.URL = candidate
			result.SizeBytes = attempt.Bytes
			result.Size = progress.Bytes(attempt.Bytes)
			result.ContentHash = attempt.hash
			return result
		}
		result.ErrorType = attempt.ErrorType
	}

	result.Status = StatusFailed
	if ctx.Err() != nil {
		result.ErrorType = fetcher.ErrorTypeCanceled
		d.logger.Warn("Run canceled before asset completed", "asset", asset.Name)
		return result
	}
	d.printf("  ⚠ All URLs failed, download manually: %s\n", asset.Name)
	d.logger.Error("All URLs failed", "asset", asset.Name, "attempts", len(result.Attempts))
	return result
}

// orderCandidates moves the URL that last produced this asset to the
// front, when history is enabled and that URL is still listed.
func (d *downloader) orderCandidates(asset models.Asset) []string {
	candidates := asset.Candidates()
	if d.deps.History == nil || !d.cfg.UseHistory {
		return candidates
	}

	last, err := d.deps.History.GetLastSuccessfulURL(asset.Name)
	if err != nil {
		d.logger.Warn("Failed to read history", "asset", asset.Name, "error", err)
		return candidates
	}
	for i, c := range candidates {
		if c == last && i > 0 {
			ordered := make([]string, 0, len(candidates))
			ordered = append(ordered, c)
			ordered = append(ordered, candidates[:i]...)
			ordered = append(ordered, candidates[i+1:]...)
			d.logger.Debug("Preferring last successful URL", "asset", asset.Name, "url", c)
			return ordered
		}
	}
	return candidates
}

// tryURL fetches one candidate into storage and reports how it went.
func (d *downloader) tryURL(ctx context.Context, name, rawURL string) Attempt {
	d.printf("Downloading: %s...\n", name)
	d.logger.Info("Fetching", "asset", name, "url", rawURL)

	start := time.Now()
	attempt := d.download(ctx, name, rawURL)
	attempt.Duration = time.Since(start)

	if attempt.err != nil {
		attempt.Error = attempt.err.Error()
		var httpErr *fetcher.HTTPError
		switch {
		case errors.As(attempt.err, &httpErr) && httpErr.Forbidden():
			d.printf("✗ 403 Forbidden: %s (may require a browser download)\n", name)
		case errors.As(attempt.err, &httpErr):
			d.printf("✗ HTTP error %d: %s\n", httpErr.StatusCode, name)
		default:
			d.printf("✗ Download failed: %s - %v\n", name, attempt.err)
		}
		d.logger.Warn("Attempt failed", "asset", name, "url", rawURL, "error_type", attempt.ErrorType, "error", attempt.err)
		return attempt
	}

	d.printf("✓ Downloaded: %s (%s)\n", name, progress.KB(attempt.Bytes))
	d.logger.Info("Downloaded", "asset", name, "url", rawURL, "bytes", attempt.Bytes, "mime", attempt.MIME)
	return attempt
}

func (d *downloader) fail(a Attempt, errorType string, err error) Attempt {
	a.err = err
	a.ErrorType = errorType
	if a.StatusCode == 0 {
		a.StatusCode = fetcher.StatusCode(err)
	}
	return a
}

func (d *downloader) download(ctx context.Context, name, rawURL string) Attempt {
	attempt := Attempt{URL: rawURL}

	resp, resolved, err := d.open(ctx, rawURL)
	if err != nil {
		var resolveErr *resolveError
		if errors.As(err, &resolveErr) {
			return d.fail(attempt, fetcher.ErrorTypeResolve, err)
		}
		return d.fail(attempt, fetcher.ErrorType(err), err)
	}
	defer resp.Body.Close()
	attempt.StatusCode = resp.StatusCode
	if resolved != rawURL {
		attempt.ResolvedURL = resolved
	}

	body := &trackingReader{r: resp.Body}
	var payload io.Reader = body
	if d.cfg.Verify {
		mime, rest, err := audio.Verify(body)
		if err != nil {
			if body.err != nil {
				return d.fail(attempt, fetcher.ErrorType(body.err), body.err)
			}
			d.forgetResolution(rawURL, resolved)
			return d.fail(attempt, fetcher.ErrorTypeNotAudio, err)
		}
		attempt.MIME = mime
		payload = rest
	}

	hasher := sha256.New()
	reporter := progress.NewReporter(d.deps.Out, resp.ContentLength, d.deps.ShowProgress)
	n, err := d.deps.Storage.SaveStream(name, io.TeeReader(payload, io.MultiWriter(reporter, hasher)))
	reporter.Done()
	attempt.Bytes = n
	if err != nil {
		if body.err != nil {
			return d.fail(attempt, fetcher.ErrorType(body.err), err)
		}
		return d.fail(attempt, fetcher.ErrorTypeWrite, err)
	}

	attempt.hash = fmt.Sprintf("%x", hasher.Sum(nil))
	return attempt
}

type resolveError struct{ err error }

func (e *resolveError) Error() string { return "resolve audio link: " + e.err.Error() }
func (e *resolveError) Unwrap() error { return e.err }

// open returns a response carrying the audio payload for rawURL. HTML
// landing pages are resolved once to the audio file they reference; the
// mapping is remembered in the cache.
func (d *downloader) open(ctx context.Context, rawURL string) (*fetcher.Response, string, error) {
	f := d.deps.Fetcher

	var (
		stale    string
		staleErr error
	)
	if cached, ok := d.cachedResolution(rawURL); ok {
		resp, err := f.Get(ctx, cached)
		if err == nil {
			return resp, cached, nil
		}
		// An interrupted run says nothing about the cached target.
		if ctx.Err() != nil {
			return nil, "", err
		}
		d.logger.Info("Cached resolution failed, refetching page", "url", rawURL, "target", cached, "error", err)
		d.deps.Cache.Delete(rawURL)
		stale, staleErr = cached, err
	}

	resp, err := f.Get(ctx, rawURL)
	if err != nil {
		return nil, "", err
	}
	if !resolver.IsHTML(resp.ContentType) {
		return resp, rawURL, nil
	}

	target, err := resolver.Resolve(resp.FinalURL, io.LimitReader(resp.Body, maxPageBytes))
	_ = resp.Body.Close()
	if err != nil {
		return nil, "", &resolveError{err: err}
	}
	d.logger.Info("Resolved landing page", "url", rawURL, "target", target)
	if target == stale {
		// Same target as the one that just failed; do not hit it twice.
		return nil, "", staleErr
	}

	resp, err = f.Get(ctx, target)
	if err != nil {
		return nil, "", err
	}
	if d.deps.Cache != nil {
		d.deps.Cache.Set(rawURL, target)
	}
	return resp, target, nil
}

func (d *downloader) cachedResolution(rawURL string) (string, bool) {
	if d.deps.Cache == nil {
		return "", false
	}
	return d.deps.Cache.Get(rawURL)
}

func (d *downloader) forgetResolution(rawURL, resolved string) {
	if d.deps.Cache != nil && resolved != rawURL {
		d.deps.Cache.Delete(rawURL)
	}
}

// trackingReader remembers the first read error so network failures can be
// told apart from disk failures after io.Copy.
type trackingReader struct {
	r   io.Reader
	err error
}

func (t *trackingReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF && t.err == nil {
		t.err = err
	}
	return n, err
}

func (d *downloader) assetID(name string) int64 {
	if d.deps.History == nil || d.runID == 0 {
		return 0
	}
	id, err := d.deps.History.InsertAsset(name)
	if err != nil {
		d.logger.Warn("Failed to insert asset to DB", "asset", name, "error", err)
		return 0
	}
	return id
}

func (d *downloader) recordAttempt(assetID int64, a Attempt) {
	if d.deps.History == nil || d.runID == 0 || assetID == 0 {
		return
	}
	urlID, err := d.deps.History.InsertURL(a.URL)
	if err != nil {
		d.logger.Warn("Failed to insert URL to DB", "url", a.URL, "error", err)
		return
	}
	if err := d.deps.History.RecordAttempt(d.runID, assetID, urlID, db.Attempt{
		StatusCode:   a.StatusCode,
		ErrorType:    a.ErrorType,
		ErrorMessage: a.Error,
		Bytes:        a.Bytes,
		Duration:     a.Duration,
		Success:      a.OK(),
	}); err != nil {
		d.logger.Warn("Failed to record attempt to DB", "url", a.URL, "error", err)
	}
}

// persist writes per-asset results and run counters, in manifest order.
func (d *downloader) persist(report *Report) {
	h := d.deps.History
	if h == nil || d.runID == 0 {
		return
	}

	for _, r := range report.Results {
		assetID, err := h.InsertAsset(r.Name)
		if err != nil {
			d.logger.Warn("Failed to insert asset to DB", "asset", r.Name, "error", err)
			continue
		}
		var urlID int64
		if r.URL != "" {
			if urlID, err = h.GetURLID(r.URL); err != nil {
				d.logger.Warn("Failed to get URL ID for run result", "url", r.URL, "error", err)
			}
		}
		if err := h.InsertRunResult(d.runID, assetID, r.Status, urlID, r.SizeBytes, r.ContentHash); err != nil {
			d.logger.Warn("Failed to insert run result", "asset", r.Name, "error", err)
		}
	}

	if err := h.UpdateRunStats(d.runID, report.Downloaded, report.Skipped, len(report.Failed)); err != nil {
		d.logger.Warn("Failed to update run stats in DB", "error", err)
	}
}
