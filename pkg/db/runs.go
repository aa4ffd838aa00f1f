package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrRunNotFound is returned when a run ID or UUID matches nothing.
var ErrRunNotFound = errors.New("run not found")

// Run is one fetch invocation.
type Run struct {
	RunID           int64
	UUID            string
	CreatedAt       time.Time
	Dir             string
	AssetCount      int
	DownloadedCount int
	SkippedCount    int
	FailedCount     int
}

// RunResult is the final outcome for one asset in a run.
type RunResult struct {
	AssetName   string
	Status      string
	URL         string
	SizeBytes   int64
	ContentHash string
}

// CreateRun inserts a new run and returns its run_id.
func (db *DB) CreateRun(runUUID, dir string, assetCount int) (int64, error) {
	result, err := db.Exec(`
		INSERT INTO runs (run_uuid, dir, asset_count)
		VALUES (?, ?, ?)
	`, runUUID, dir, assetCount)
	if err != nil {
		return 0, fmt.Errorf("failed to create run: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run ID: %w", err)
	}
	return runID, nil
}

// InsertRunResult records the outcome for one asset. urlID is 0 when no
// URL produced the file (skipped or failed assets).
func (db *DB) InsertRunResult(runID, assetID int64, status string, urlID int64, sizeBytes int64, contentHash string) error {
	_, err := db.Exec(`
		INSERT INTO run_results (run_id, asset_id, status, url_id, size_bytes, content_hash)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, asset_id) DO UPDATE SET
			status = excluded.status,
			url_id = excluded.url_id,
			size_bytes = excluded.size_bytes,
			content_hash = excluded.content_hash
	`, runID, assetID, status, NewNullInt64(urlID), sizeBytes, NewNullString(contentHash))
	if err != nil {
		return fmt.Errorf("failed to insert run result: %w", err)
	}
	return nil
}

// UpdateRunStats stores the final counters for a run.
func (db *DB) UpdateRunStats(runID int64, downloaded, skipped, failed int) error {
	_, err := db.Exec(`
		UPDATE runs
		SET downloaded_count = ?, skipped_count = ?, failed_count = ?
		WHERE run_id = ?
	`, downloaded, skipped, failed, runID)
	if err != nil {
		return fmt.Errorf("failed to update run stats: %w", err)
	}
	return nil
}

const runColumns = `run_id, run_uuid, created_at, dir, asset_count, downloaded_count, skipped_count, failed_count`

func scanRun(row interface{ Scan(...any) error }) (*Run, error) {
	var r Run
	if err := row.Scan(&r.RunID, &r.UUID, &r.CreatedAt, &r.Dir, &r.AssetCount,
		&r.DownloadedCount, &r.SkippedCount, &r.FailedCount); err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRun returns a run by numeric ID.
func (db *DB) GetRun(runID int64) (*Run, error) {
	r, err := scanRun(db.QueryRow("SELECT "+runColumns+" FROM runs WHERE run_id = ?", runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return r, nil
}

// GetRunByUUID returns a run by UUID.
func (db *DB) GetRunByUUID(runUUID string) (*Run, error) {
	r, err := scanRun(db.QueryRow("SELECT "+runColumns+" FROM runs WHERE run_uuid = ?", runUUID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runUUID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return r, nil
}

// ListRuns returns the most recent runs first.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY run_id DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// GetRunResults returns per-asset outcomes for a run in insertion order.
func (db *DB) GetRunResults(runID int64) ([]RunResult, error) {
	rows, err := db.Query(`
		SELECT s.name, r.status, u.original_url, r.size_bytes, r.content_hash
		FROM run_results r
		JOIN assets s ON s.asset_id = r.asset_id
		LEFT JOIN urls u ON u.url_id = r.url_id
		WHERE r.run_id = ?
		ORDER BY r.result_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run results: %w", err)
	}
	defer rows.Close()

	var results []RunResult
	for rows.Next() {
		var (
			r    RunResult
			u    sql.NullString
			size sql.NullInt64
			hash sql.NullString
		)
		if err := rows.Scan(&r.AssetName, &r.Status, &u, &size, &hash); err != nil {
			return nil, fmt.Errorf("failed to scan run result: %w", err)
		}
		r.URL = u.String
		r.SizeBytes = size.Int64
		r.ContentHash = hash.String
		results = append(results, r)
	}
	return results, rows.Err()
}
