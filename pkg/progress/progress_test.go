package progress

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReporter_KnownSize(t *testing.T) {
	var out bytes.Buffer
	r := NewReporter(&out, 200, true)

	n, err := io.Copy(io.Discard, io.TeeReader(strings.NewReader(strings.Repeat("x", 200)), r))
	require.NoError(t, err)
	assert.EqualValues(t, 200, n)
	r.Done()

	assert.EqualValues(t, 200, r.written)
	assert.Contains(t, out.String(), "\r  Progress: 100.0%")
	assert.True(t, strings.HasSuffix(out.String(), "\n"))
}

func TestReporter_Throttles(t *testing.T) {
	var out bytes.Buffer
	r := NewReporter(&out, 1000, true)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	_, _ = r.Write(make([]byte, 100))
	_, _ = r.Write(make([]byte, 100))
	assert.Equal(t, 1, strings.Count(out.String(), "Progress"))

	now = now.Add(time.Second)
	_, _ = r.Write(make([]byte, 100))
	assert.Equal(t, 2, strings.Count(out.String(), "Progress"))
	assert.Contains(t, out.String(), "30.0%")
}

func TestReporter_UnknownSizeOrDisabled(t *testing.T) {
	var out bytes.Buffer

	r := NewReporter(&out, 0, true)
	_, _ = r.Write([]byte("abc"))
	r.Done()
	assert.Empty(t, out.String())
	assert.EqualValues(t, 3, r.written)

	r = NewReporter(&out, 3, false)
	_, _ = r.Write([]byte("abc"))
	r.Done()
	assert.Empty(t, out.String())
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0.0, Percent(10, 0))
	assert.Equal(t, 50.0, Percent(5, 10))
	assert.Equal(t, 100.0, Percent(20, 10))
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "1.00 KB", KB(1024))
	assert.Equal(t, "0.50 KB", KB(512))
	assert.Equal(t, "1.5 kB", Bytes(1500))
	assert.Equal(t, "0 B", Bytes(-1))
}
