// Package progress prints download progress on a single terminal line.
package progress

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
)

// minRedraw throttles redraws on fast connections.
const minRedraw = 100 * time.Millisecond

// Reporter counts bytes written through it and redraws a percentage line.
// It is an io.Writer so it can sit on one side of an io.TeeReader.
type Reporter struct {
	out     io.Writer
	total   int64
	written int64
	enabled bool
	drawn   bool
	last    time.Time
	now     func() time.Time
}

// NewReporter returns a Reporter for a transfer of total bytes. A total of
// zero or less means the size is unknown and no percentage is shown.
func NewReporter(out io.Writer, total int64, enabled bool) *Reporter {
	return &Reporter{out: out, total: total, enabled: enabled, now: time.Now}
}

func (r *Reporter) Write(p []byte) (int, error) {
	r.written += int64(len(p))
	if !r.enabled || r.total <= 0 {
		return len(p), nil
	}
	now := r.now()
	if r.written < r.total && now.Sub(r.last) < minRedraw {
		return len(p), nil
	}
	r.last = now
	r.drawn = true
	fmt.Fprintf(r.out, "\r  Progress: %.1f%%", Percent(r.written, r.total))
	return len(p), nil
}

// Done ends the progress line if one was drawn.
func (r *Reporter) Done() {
	if r.drawn {
		fmt.Fprintln(r.out)
		r.drawn = false
	}
}

// Percent returns written/total as a percentage, capped at 100.
func Percent(written, total int64) float64 {
	if total <= 0 {
		return 0
	}
	p := float64(written) / float64(total) * 100
	if p > 100 {
		p = 100
	}
	return p
}

// KB formats a size the way the summary lines print it, e.g. "12.34 KB".
func KB(size int64) string {
	return fmt.Sprintf("%.2f KB", float64(size)/1024)
}

// Bytes formats a size for tables and reports, e.g. "1.2 MB".
func Bytes(size int64) string {
	if size < 0 {
		size = 0
	}
	return humanize.Bytes(uint64(size))
}
