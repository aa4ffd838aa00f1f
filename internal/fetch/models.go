package fetch

import (
	"time"
)

// Asset outcomes.
const (
	StatusDownloaded = "downloaded"
	StatusSkipped    = "skipped"
	StatusFailed     = "failed"
)

// Attempt is one try at fetching an asset from one URL.
type Attempt struct {
	URL         string        `json:"url" yaml:"url"`
	ResolvedURL string        `json:"resolved_url,omitempty" yaml:"resolved_url,omitempty"`
	StatusCode  int           `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	MIME        string        `json:"mime,omitempty" yaml:"mime,omitempty"`
	Bytes       int64         `json:"bytes,omitempty" yaml:"bytes,omitempty"`
	Duration    time.Duration `json:"duration_ns" yaml:"duration"`
	ErrorType   string        `json:"error_type,omitempty" yaml:"error_type,omitempty"`
	Error       string        `json:"error,omitempty" yaml:"error,omitempty"`

	err  error
	hash string
}

// OK reports whether the attempt produced the file.
func (a Attempt) OK() bool {
	return a.err == nil && a.ErrorType == ""
}

// AssetResult holds the outcome for one manifest asset.
type AssetResult struct {
	Name        string    `json:"name" yaml:"name"`
	Status      string    `json:"status" yaml:"status"`
	Path        string    `json:"path" yaml:"path"`
	URL         string    `json:"url,omitempty" yaml:"url,omitempty"`
	SizeBytes   int64     `json:"size_bytes,omitempty" yaml:"size_bytes,omitempty"`
	Size        string    `json:"size,omitempty" yaml:"size,omitempty"`
	ContentHash string    `json:"content_hash,omitempty" yaml:"content_hash,omitempty"`
	ErrorType   string    `json:"error_type,omitempty" yaml:"error_type,omitempty"`
	Attempts    []Attempt `json:"attempts,omitempty" yaml:"attempts,omitempty"`
}

// Available reports whether the asset is on disk after the run.
func (r AssetResult) Available() bool {
	return r.Status == StatusDownloaded || r.Status == StatusSkipped
}

// Report is the structured output for the entire run.
type Report struct {
	RunID          string        `json:"run_id" yaml:"run_id"`
	Status         string        `json:"status" yaml:"status"`
	Dir            string        `json:"dir" yaml:"dir"`
	Total          int           `json:"total" yaml:"total"`
	Available      int           `json:"available" yaml:"available"`
	Downloaded     int           `json:"downloaded" yaml:"downloaded"`
	Skipped        int           `json:"skipped" yaml:"skipped"`
	Failed         []string      `json:"failed,omitempty" yaml:"failed,omitempty"`
	Results        []AssetResult `json:"results" yaml:"results"`
	StartedAt      time.Time     `json:"started_at" yaml:"started_at"`
	ElapsedSeconds float64       `json:"elapsed_seconds" yaml:"elapsed_seconds"`
}

// Run-level statuses.
const (
	RunStatusSuccess        = "success"
	RunStatusPartialFailure = "partial_failure"
	RunStatusFailure        = "failure"
)

// tally fills the counters and status from Results.
func (r *Report) tally() {
	r.Total = len(r.Results)
	r.Available, r.Downloaded, r.Skipped = 0, 0, 0
	r.Failed = nil
	for _, res := range r.Results {
		switch res.Status {
		case StatusDownloaded:
			r.Downloaded++
		case StatusSkipped:
			r.Skipped++
		default:
			r.Failed = append(r.Failed, res.Name)
		}
	}
	r.Available = r.Downloaded + r.Skipped

	switch {
	case len(r.Failed) == 0:
		r.Status = RunStatusSuccess
	case r.Available == 0:
		r.Status = RunStatusFailure
	default:
		r.Status = RunStatusPartialFailure
	}
}

// ExitCode maps a report to the process exit code: 0 when every asset is
// available, 2 when none is, 1 otherwise.
func (r *Report) ExitCode() int {
	switch r.Status {
	case RunStatusSuccess:
		return 0
	case RunStatusFailure:
		return 2
	default:
		return 1
	}
}

// FailedAsset is one entry of the failed-assets file written after a run.
type FailedAsset struct {
	Name       string   `yaml:"name"`
	URLs       []string `yaml:"urls"`
	StatusCode int      `yaml:"status_code"` // 0 for network errors
	ErrorType  string   `yaml:"error_type"`
	Error      string   `yaml:"error"`
}

// FailedAssets wraps the list for YAML output.
type FailedAssets struct {
	RunID  string        `yaml:"run_id"`
	Failed []FailedAsset `yaml:"failed_assets"`
}
