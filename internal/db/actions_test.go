package db

import (
	"bytes"
	"errors"
	"testing"
	"time"

	dbpkg "github.com/dtnitsch/audiofetch/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUUID = "5f0c7c2e-8a53-4f0e-b0b1-2d7f3c9a6e41"

func seedHistory(t *testing.T) (*dbpkg.DB, int64) {
	t.Helper()

	database, err := dbpkg.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	runID, err := database.CreateRun(testUUID, "assets/audio", 2)
	require.NoError(t, err)

	bell, err := database.InsertAsset("bell.mp3")
	require.NoError(t, err)
	chime, err := database.InsertAsset("chime.mp3")
	require.NoError(t, err)

	primary, err := database.InsertURL("https://cdn.example.com/bell.mp3")
	require.NoError(t, err)
	backup, err := database.InsertURL("https://mirror.example.com/bell.mp3")
	require.NoError(t, err)
	chimeURL, err := database.InsertURL("https://cdn.example.com/chime.mp3")
	require.NoError(t, err)

	require.NoError(t, database.RecordAttempt(runID, bell, primary, dbpkg.Attempt{
		StatusCode: 403, ErrorType: "http_403", ErrorMessage: "HTTP 403", Duration: 12 * time.Millisecond,
	}))
	require.NoError(t, database.RecordAttempt(runID, bell, backup, dbpkg.Attempt{
		StatusCode: 200, Bytes: 2048, Duration: 40 * time.Millisecond, Success: true,
	}))
	require.NoError(t, database.RecordAttempt(runID, chime, chimeURL, dbpkg.Attempt{
		ErrorType: "timeout", ErrorMessage: "context deadline exceeded",
	}))

	require.NoError(t, database.InsertRunResult(runID, bell, "downloaded", backup, 2048, "abc123"))
	require.NoError(t, database.InsertRunResult(runID, chime, "failed", 0, 0, ""))
	require.NoError(t, database.UpdateRunStats(runID, 1, 0, 1))

	return database, runID
}

func TestResolveRun(t *testing.T) {
	database, runID := seedHistory(t)

	byID, err := ResolveRun("1", database)
	require.NoError(t, err)
	assert.Equal(t, runID, byID.RunID)

	byUUID, err := ResolveRun(testUUID, database)
	require.NoError(t, err)
	assert.Equal(t, runID, byUUID.RunID)

	_, err = ResolveRun("99", database)
	assert.True(t, errors.Is(err, dbpkg.ErrRunNotFound))

	_, err = ResolveRun("latest-ish", database)
	assert.True(t, errors.Is(err, dbpkg.ErrRunNotFound))
}

func TestPrintRuns(t *testing.T) {
	database, _ := seedHistory(t)

	var buf bytes.Buffer
	require.NoError(t, PrintRuns(&buf, database, 10))

	out := buf.String()
	assert.Contains(t, out, "assets/audio")
	assert.Contains(t, out, "Total: 1 runs")
}

func TestPrintRuns_Empty(t *testing.T) {
	database, err := dbpkg.OpenMemory()
	require.NoError(t, err)
	defer database.Close()

	var buf bytes.Buffer
	require.NoError(t, PrintRuns(&buf, database, 10))
	assert.Equal(t, "No runs found\n", buf.String())
}

func TestPrintRun(t *testing.T) {
	database, runID := seedHistory(t)
	run, err := database.GetRun(runID)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, PrintRun(&buf, database, run))

	out := buf.String()
	assert.Contains(t, out, testUUID)
	assert.Contains(t, out, "2 total (1 downloaded, 0 skipped, 1 failed)")
	assert.Contains(t, out, "[downloaded] bell.mp3")
	assert.Contains(t, out, "[failed] chime.mp3")
	assert.Contains(t, out, "URL: https://mirror.example.com/bell.mp3 | Size: 2.0 kB")
	assert.Contains(t, out, "Error: [http_403] HTTP 403")
	assert.Contains(t, out, "Attempts (3):")
}
