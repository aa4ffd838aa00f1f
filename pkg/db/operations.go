package db

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Attempt is one download try as recorded in the attempts table.
type Attempt struct {
	StatusCode   int
	ErrorType    string
	ErrorMessage string
	Bytes        int64
	Duration     time.Duration
	Success      bool
}

// AttemptRecord is an attempt read back with its asset and URL.
type AttemptRecord struct {
	AttemptID    int64
	AssetName    string
	URL          string
	AccessedAt   time.Time
	StatusCode   int
	ErrorType    string
	ErrorMessage string
	Bytes        int64
	DurationMS   int64
	Success      bool
}

// InsertAsset returns the asset_id for name, inserting it if needed.
func (db *DB) InsertAsset(name string) (int64, error) {
	var existingID int64
	err := db.QueryRow("SELECT asset_id FROM assets WHERE name = ?", name).Scan(&existingID)
	if err == nil {
		return existingID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to check existing asset: %w", err)
	}

	result, err := db.Exec("INSERT INTO assets (name) VALUES (?)", name)
	if err != nil {
		return 0, fmt.Errorf("failed to insert asset: %w", err)
	}
	assetID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get asset ID: %w", err)
	}
	return assetID, nil
}

// InsertURL parses and inserts a URL, returning the url_id.
// If the URL already exists, returns the existing url_id.
func (db *DB) InsertURL(rawURL string) (int64, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return 0, fmt.Errorf("failed to parse URL: %w", err)
	}

	var existingID int64
	err = db.QueryRow("SELECT url_id FROM urls WHERE original_url = ?", rawURL).Scan(&existingID)
	if err == nil {
		return existingID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to check existing URL: %w", err)
	}

	result, err := db.Exec(`
		INSERT INTO urls (original_url, scheme, domain, path)
		VALUES (?, ?, ?, ?)
	`, rawURL, parsed.Scheme, parsed.Host, parsed.Path)
	if err != nil {
		return 0, fmt.Errorf("failed to insert URL: %w", err)
	}

	urlID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get URL ID: %w", err)
	}
	return urlID, nil
}

// GetURLID returns the url_id for an original URL.
func (db *DB) GetURLID(originalURL string) (int64, error) {
	var urlID int64
	err := db.QueryRow("SELECT url_id FROM urls WHERE original_url = ?", originalURL).Scan(&urlID)
	if err != nil {
		return 0, fmt.Errorf("failed to get URL ID: %w", err)
	}
	return urlID, nil
}

// RecordAttempt stores one download attempt.
func (db *DB) RecordAttempt(runID, assetID, urlID int64, a Attempt) error {
	_, err := db.Exec(`
		INSERT INTO attempts (run_id, asset_id, url_id, status_code, error_type, error_message, bytes, duration_ms, success)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, assetID, urlID, a.StatusCode, a.ErrorType, a.ErrorMessage, a.Bytes, a.Duration.Milliseconds(), a.Success)
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	return nil
}

// GetRunAttempts returns every attempt made during a run, oldest first.
func (db *DB) GetRunAttempts(runID int64) ([]AttemptRecord, error) {
	rows, err := db.Query(`
		SELECT a.attempt_id, s.name, u.original_url, a.accessed_at, a.status_code,
		       a.error_type, a.error_message, a.bytes, a.duration_ms, a.success
		FROM attempts a
		JOIN assets s ON s.asset_id = a.asset_id
		JOIN urls u ON u.url_id = a.url_id
		WHERE a.run_id = ?
		ORDER BY a.attempt_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run attempts: %w", err)
	}
	defer rows.Close()

	var records []AttemptRecord
	for rows.Next() {
		var r AttemptRecord
		if err := rows.Scan(&r.AttemptID, &r.AssetName, &r.URL, &r.AccessedAt, &r.StatusCode,
			&r.ErrorType, &r.ErrorMessage, &r.Bytes, &r.DurationMS, &r.Success); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// GetLastSuccessfulURL returns the URL that most recently produced the
// asset, or "" if none ever did.
func (db *DB) GetLastSuccessfulURL(assetName string) (string, error) {
	var rawURL string
	err := db.QueryRow(`
		SELECT u.original_url
		FROM attempts a
		JOIN assets s ON s.asset_id = a.asset_id
		JOIN urls u ON u.url_id = a.url_id
		WHERE s.name = ? AND a.success = 1
		ORDER BY a.attempt_id DESC
		LIMIT 1
	`, assetName).Scan(&rawURL)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get last successful URL: %w", err)
	}
	return rawURL, nil
}

// NewNullString converts empty strings to NULL.
func NewNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// NewNullInt64 converts zero IDs to NULL.
func NewNullInt64(v int64) sql.NullInt64 {
	if v == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: v, Valid: true}
}
