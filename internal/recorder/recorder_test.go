package recorder

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JamesFincher/vllm-server-config/pkg/models"
)

func testRecorder(t *testing.T, now time.Time) (*Recorder, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "data")
	r := New(dir, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r.now = func() time.Time { return now }
	return r, dir
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.NoError(t, scanner.Err())
	return lines
}

func TestAppendCreatesDayPartitionedFile(t *testing.T) {
	day := time.Date(2026, 8, 29, 10, 0, 0, 0, time.Local)
	r, dir := testRecorder(t, day)

	r.Append(models.CompositeRecord{CycleID: "c1", Timestamp: day})
	r.Append(models.CompositeRecord{CycleID: "c2", Timestamp: day})

	lines := readLines(t, filepath.Join(dir, "metrics-2026-08-29.jsonl"))
	require.Len(t, lines, 2)

	var rec models.CompositeRecord
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "c1", rec.CycleID)
}

func TestAppendSplitsAcrossDays(t *testing.T) {
	day1 := time.Date(2026, 8, 29, 23, 59, 0, 0, time.Local)
	r, dir := testRecorder(t, day1)

	r.Append(models.CompositeRecord{CycleID: "before-midnight"})
	r.now = func() time.Time { return day1.Add(2 * time.Minute) }
	r.Append(models.CompositeRecord{CycleID: "after-midnight"})

	assert.Len(t, readLines(t, filepath.Join(dir, "metrics-2026-08-29.jsonl")), 1)
	assert.Len(t, readLines(t, filepath.Join(dir, "metrics-2026-08-30.jsonl")), 1)
}

func TestAppendPersistsFullyFailedCycle(t *testing.T) {
	day := time.Date(2026, 8, 29, 10, 0, 0, 0, time.Local)
	r, dir := testRecorder(t, day)

	// A cycle where every collector failed is still a data point.
	r.Append(models.CompositeRecord{
		CycleID:   "all-failed",
		API:       models.APISnapshot{Failed: true, Error: "connection refused"},
		GPU:       models.GPUSnapshot{Failed: true, Error: "nvml error"},
		Resources: models.ResourceSnapshot{Failed: true, Error: "proc unreadable"},
		Processes: models.ProcessSnapshot{Failed: true, Error: "proc unreadable"},
	})

	lines := readLines(t, filepath.Join(dir, "metrics-2026-08-29.jsonl"))
	require.Len(t, lines, 1)

	var rec models.CompositeRecord
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.True(t, rec.API.Failed)
	assert.True(t, rec.GPU.Failed)
}

func TestAppendWriteFailureDoesNotPanic(t *testing.T) {
	// Point the recorder at a path that cannot be a directory.
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	r := New(filepath.Join(file, "data"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	r.Append(models.CompositeRecord{CycleID: "lost"})
}
