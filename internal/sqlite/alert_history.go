package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/JamesFincher/vllm-server-config/pkg/models"
)

const (
	insertAlertHistoryQuery = `INSERT INTO alert_history (
    identity,
    title,
    message,
    source,
    severity,
    status,
    created_at
) VALUES (?, ?, ?, ?, ?, ?, ?)`

	listRecentAlertHistoryQuery = `SELECT
    id,
    identity,
    title,
    message,
    source,
    severity,
    status,
    created_at
FROM alert_history
ORDER BY created_at DESC, id DESC
LIMIT ?`

	pruneAlertHistoryQuery = `DELETE FROM alert_history
WHERE id NOT IN (
    SELECT id FROM alert_history ORDER BY created_at DESC, id DESC LIMIT ?
)`
)

// InsertAlertHistory appends one audit row for a suppression decision.
func (d *DB) InsertAlertHistory(ctx context.Context, entry models.AlertHistoryEntry) error {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := d.db.ExecContext(ctx, insertAlertHistoryQuery,
		entry.Identity,
		entry.Title,
		entry.Message,
		entry.Source,
		string(entry.Severity),
		string(entry.Status),
		createdAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("error inserting alert history: %w", err)
	}
	return nil
}

// ListRecentAlertHistory returns the newest audit rows, newest first.
func (d *DB) ListRecentAlertHistory(ctx context.Context, limit int) ([]models.AlertHistoryEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := d.db.QueryContext(ctx, listRecentAlertHistoryQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing alert history: %w", err)
	}
	defer rows.Close()

	var entries []models.AlertHistoryEntry
	for rows.Next() {
		var entry models.AlertHistoryEntry
		var severity, status string
		if err := rows.Scan(
			&entry.ID,
			&entry.Identity,
			&entry.Title,
			&entry.Message,
			&entry.Source,
			&severity,
			&status,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning alert history row: %w", err)
		}
		entry.Severity = models.AlertSeverity(severity)
		entry.Status = models.AlertHistoryStatus(status)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// PruneAlertHistory keeps only the newest limit rows.
func (d *DB) PruneAlertHistory(ctx context.Context, limit int) error {
	if limit <= 0 {
		return nil
	}
	if _, err := d.db.ExecContext(ctx, pruneAlertHistoryQuery, limit); err != nil {
		return fmt.Errorf("error pruning alert history: %w", err)
	}
	return nil
}
