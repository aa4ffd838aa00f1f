package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "assets", "audio")

	s, err := New(dir)
	require.NoError(t, err)
	assert.DirExists(t, dir)
	assert.Equal(t, dir, s.Dir())
}

func TestAt_DoesNotCreateDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "assets", "audio")

	s := At(dir)
	assert.Equal(t, dir, s.Dir())
	assert.False(t, s.HasFile("bell.mp3"))
	_, err := s.GetFileStats("bell.mp3")
	assert.Error(t, err)
	assert.NoDirExists(t, dir)
}

func TestSaveStream(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	assert.False(t, s.HasFile("a.mp3"))

	n, err := s.SaveStream("a.mp3", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)
	assert.True(t, s.HasFile("a.mp3"))

	stats, err := s.GetFileStats("a.mp3")
	require.NoError(t, err)
	assert.EqualValues(t, 5, stats.SizeBytes)

	data, err := os.ReadFile(s.Path("a.mp3"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

type failingReader struct{ n int }

func (r *failingReader) Read(p []byte) (int, error) {
	if r.n > 0 {
		r.n = 0
		return copy(p, "partial"), nil
	}
	return 0, errors.New("connection reset")
}

func TestSaveStream_FailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	_, err = s.SaveStream("a.mp3", &failingReader{n: 1})
	require.Error(t, err)
	assert.False(t, s.HasFile("a.mp3"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp file should be cleaned up")
}

func TestSaveStream_Overwrites(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = s.SaveStream("a.mp3", strings.NewReader("old contents"))
	require.NoError(t, err)
	_, err = s.SaveStream("a.mp3", strings.NewReader("new"))
	require.NoError(t, err)

	f, err := os.Open(s.Path("a.mp3"))
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestHasFile_IgnoresDirectories(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, os.Mkdir(filepath.Join(dir, "a.mp3"), 0755))
	assert.False(t, s.HasFile("a.mp3"))
}
