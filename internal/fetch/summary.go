package fetch

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FailedAssetsFile is written into the state directory when a run leaves
// assets missing.
const FailedAssetsFile = "failed-assets.yaml"

// PrintSummary writes the end-of-run text summary.
func PrintSummary(w io.Writer, r *Report) {
	fmt.Fprintf(w, "\nDownload complete!\n")
	fmt.Fprintf(w, "Succeeded: %d/%d\n", r.Available, r.Total)
	if len(r.Failed) == 0 {
		return
	}
	fmt.Fprintf(w, "Failed: %s\n", strings.Join(r.Failed, ", "))
	fmt.Fprintf(w, "\nHint: failed audio files must be downloaded manually\n")
	fmt.Fprintf(w, "See %s for alternatives\n", filepath.Join(r.Dir, "README.md"))
}

// WriteReport marshals the report in the requested format (json or yaml).
func WriteReport(w io.Writer, r *Report, format string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(format) {
	case "yaml", "yml":
		data, err = yaml.Marshal(r)
	case "json":
		data, err = json.MarshalIndent(r, "", "  ")
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// collectFailedAssets builds the failed-assets list, keeping the last
// attempt's error for each asset.
func collectFailedAssets(r *Report) []FailedAsset {
	var failed []FailedAsset
	for _, res := range r.Results {
		if res.Available() {
			continue
		}
		fa := FailedAsset{Name: res.Name, ErrorType: res.ErrorType}
		for _, a := range res.Attempts {
			fa.URLs = append(fa.URLs, a.URL)
		}
		if n := len(res.Attempts); n > 0 {
			last := res.Attempts[n-1]
			fa.StatusCode = last.StatusCode
			fa.Error = last.Error
		}
		failed = append(failed, fa)
	}
	return failed
}

// WriteFailedAssets writes failed-assets.yaml into dir, or removes a stale
// one when the run had no failures.
func WriteFailedAssets(r *Report, dir string) error {
	outputPath := filepath.Join(dir, FailedAssetsFile)

	failed := collectFailedAssets(r)
	if len(failed) == 0 {
		if err := os.Remove(outputPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove stale failed assets file: %w", err)
		}
		return nil
	}

	yamlBytes, err := yaml.Marshal(&FailedAssets{RunID: r.RunID, Failed: failed})
	if err != nil {
		return fmt.Errorf("failed to marshal failed assets to YAML: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := os.WriteFile(outputPath, yamlBytes, 0644); err != nil {
		return fmt.Errorf("failed to write failed assets file: %w", err)
	}
	return nil
}
