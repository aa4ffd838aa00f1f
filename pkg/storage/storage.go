package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Storage keeps asset files in a single directory.
type Storage struct {
	dir string
}

// FileStats holds metadata about a file without reading its contents.
type FileStats struct {
	SizeBytes int64
	ModTime   time.Time
}

// New returns a Storage rooted at dir, creating it if needed.
func New(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return &Storage{dir: dir}, nil
}

// At returns a Storage for an existing (or absent) dir without creating it,
// for read-only use.
func At(dir string) *Storage {
	return &Storage{dir: dir}
}

// Dir returns the storage root.
func (s *Storage) Dir() string {
	return s.dir
}

// Path returns where name is (or would be) stored.
func (s *Storage) Path(name string) string {
	return filepath.Join(s.dir, name)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// HasFile reports whether a regular file called name is present.
func (s *Storage) HasFile(name string) bool {
	return fileExists(s.Path(name))
}

// GetFileStats returns metadata about a stored file using os.Stat.
func (s *Storage) GetFileStats(name string) (*FileStats, error) {
	info, err := os.Stat(s.Path(name))
	if err != nil {
		return nil, fmt.Errorf("error getting file stats: %w", err)
	}

	return &FileStats{
		SizeBytes: info.Size(),
		ModTime:   info.ModTime(),
	}, nil
}

// SaveStream copies r into name. Data goes to a hidden temp file first and
// is renamed into place only after a complete copy, so an interrupted
// download never looks like a finished one.
func (s *Storage) SaveStream(name string, r io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(s.dir, "."+name+".part-*")
	if err != nil {
		return 0, fmt.Errorf("error creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	n, err := io.Copy(tmp, r)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return n, fmt.Errorf("error writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return n, fmt.Errorf("error closing %s: %w", name, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		_ = os.Remove(tmpPath)
		return n, fmt.Errorf("error setting permissions on %s: %w", name, err)
	}
	if err := os.Rename(tmpPath, s.Path(name)); err != nil {
		_ = os.Remove(tmpPath)
		return n, fmt.Errorf("error saving file: %w", err)
	}
	return n, nil
}
