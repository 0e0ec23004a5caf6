package db

import (
	"context"
	"database/sql"

	"github.com/tasksync/tasksync/internal/models"
)

// DeadLetterContents returns every quarantined item, newest-first, for
// operator diagnostics (§4.3, §6 status surface).
func (db *DB) DeadLetterContents(ctx context.Context) ([]*models.DeadLetterItem, error) {
	var items []*models.DeadLetterItem
	s := NewStore(db)
	err := s.all(ctx, func(rows *sql.Rows) error {
		var item models.DeadLetterItem
		if err := rows.Scan(&item.ID, &item.TaskID, &item.Operation, &item.Data, &item.CreatedAt,
			&item.RetryCount, &item.FailedAt, &item.FinalErrorMessage); err != nil {
			return err
		}
		items = append(items, &item)
		return nil
	}, `SELECT id, task_id, operation, data, created_at, retry_count, failed_at, final_error_message
		FROM dead_letter_queue ORDER BY failed_at DESC`)
	return items, err
}

// LastSyncedAt returns the most recent successful acknowledgement across
// all tasks, or nil if none has ever synced.
func (db *DB) LastSyncedAt(ctx context.Context) (*string, error) {
	var lastSyncedAt sql.NullString
	s := NewStore(db)
	err := s.get(ctx, func(row *sql.Row) error {
		return row.Scan(&lastSyncedAt)
	}, `SELECT MAX(last_synced_at) FROM tasks WHERE last_synced_at IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	if !lastSyncedAt.Valid {
		return nil, nil
	}
	return &lastSyncedAt.String, nil
}
