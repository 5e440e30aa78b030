package sqlite

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JamesFincher/vllm-server-config/internal/config"
	"github.com/JamesFincher/vllm-server-config/pkg/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "monitor.db")},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func entry(identity string, status models.AlertHistoryStatus, at time.Time) models.AlertHistoryEntry {
	return models.AlertHistoryEntry{
		Identity:  identity,
		Title:     "GPU Temperature High",
		Message:   "GPU 0 temperature: 91°C",
		Source:    "gpu0.temperature",
		Severity:  models.AlertSeverityWarning,
		Status:    status,
		CreatedAt: at,
	}
}

func TestInsertAndListAlertHistory(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

	require.NoError(t, db.InsertAlertHistory(ctx, entry("a", models.AlertHistoryDispatched, base)))
	require.NoError(t, db.InsertAlertHistory(ctx, entry("a", models.AlertHistorySuppressed, base.Add(time.Minute))))

	entries, err := db.ListRecentAlertHistory(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first.
	assert.Equal(t, models.AlertHistorySuppressed, entries[0].Status)
	assert.Equal(t, models.AlertHistoryDispatched, entries[1].Status)
	assert.Equal(t, "GPU Temperature High", entries[0].Title)
	assert.Equal(t, models.AlertSeverityWarning, entries[0].Severity)
}

func TestPruneAlertHistory(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		require.NoError(t, db.InsertAlertHistory(ctx, entry("a", models.AlertHistoryDispatched, base.Add(time.Duration(i)*time.Minute))))
	}
	require.NoError(t, db.PruneAlertHistory(ctx, 4))

	entries, err := db.ListRecentAlertHistory(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}

func TestPruneWithNonPositiveLimitIsNoop(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	require.NoError(t, db.InsertAlertHistory(ctx, entry("a", models.AlertHistoryDispatched, time.Now())))
	require.NoError(t, db.PruneAlertHistory(ctx, 0))

	entries, err := db.ListRecentAlertHistory(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
