package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/tasksync/tasksync/internal/models"
)

// DrainQueueChronological returns every queue item ordered first by
// task_id, then by created_at ascending (§4.2). The sync engine groups
// this result by task before batching.
func (db *DB) DrainQueueChronological(ctx context.Context) ([]*models.SyncQueueItem, error) {
	var items []*models.SyncQueueItem
	s := NewStore(db)
	err := s.all(ctx, func(rows *sql.Rows) error {
		item, err := scanQueueItem(rows)
		if err != nil {
			return err
		}
		items = append(items, item)
		return nil
	}, `SELECT id, task_id, operation, data, created_at, retry_count, error_message
		FROM sync_queue ORDER BY task_id ASC, created_at ASC`)
	return items, err
}

// BumpRetry increments a queue item's retry counter and records the
// observed failure message (§4.6, recoverable branch).
func (db *DB) BumpRetry(ctx context.Context, itemID int64, newCount int, errMsg string) error {
	return db.withWriteLock(func() error {
		return db.withTx(ctx, func(s *Store) error {
			_, err := s.run(ctx, `UPDATE sync_queue SET retry_count = ?, error_message = ? WHERE id = ?`,
				newCount, errMsg, itemID)
			return err
		})
	})
}

// RemoveQueueItem deletes a settled item (success, resolved conflict, or
// one already moved to the dead-letter store).
func (db *DB) RemoveQueueItem(ctx context.Context, itemID int64) error {
	return db.withWriteLock(func() error {
		return db.withTx(ctx, func(s *Store) error {
			_, err := s.run(ctx, `DELETE FROM sync_queue WHERE id = ?`, itemID)
			return err
		})
	})
}

// RemoveQueueItemsForTask deletes every remaining queue item for a task,
// used after a success or resolved conflict settles the whole task
// (I6: synced implies no queue item remains).
func (db *DB) RemoveQueueItemsForTask(ctx context.Context, taskID string) error {
	return db.withWriteLock(func() error {
		return db.withTx(ctx, func(s *Store) error {
			_, err := s.run(ctx, `DELETE FROM sync_queue WHERE task_id = ?`, taskID)
			return err
		})
	})
}

// CountPending returns the number of outstanding queue items, exposed on
// the status surface (§6).
func (db *DB) CountPending(ctx context.Context) (int, error) {
	var count int
	s := NewStore(db)
	err := s.get(ctx, func(row *sql.Row) error {
		return row.Scan(&count)
	}, `SELECT COUNT(*) FROM sync_queue`)
	return count, err
}

// deadLetterAndRemove atomically moves a queue item to the dead-letter
// store and removes it from the queue (I5). Used by the failure handler
// once retries are exhausted.
func (db *DB) deadLetterAndRemove(ctx context.Context, item *models.SyncQueueItem, finalErr string) error {
	return db.withWriteLock(func() error {
		return db.withTx(ctx, func(s *Store) error {
			_, err := s.run(ctx, `
				INSERT INTO dead_letter_queue (id, task_id, operation, data, created_at, retry_count, failed_at, final_error_message)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`, item.ID, item.TaskID, item.Operation, item.Data, item.CreatedAt, item.RetryCount, time.Now().UTC(), finalErr)
			if err != nil {
				return err
			}
			_, err = s.run(ctx, `DELETE FROM sync_queue WHERE id = ?`, item.ID)
			return err
		})
	})
}

// DeadLetterAndRemove is the exported form used by the sync engine.
func (db *DB) DeadLetterAndRemove(ctx context.Context, item *models.SyncQueueItem, finalErr string) error {
	return db.deadLetterAndRemove(ctx, item, finalErr)
}

func scanQueueItem(rows *sql.Rows) (*models.SyncQueueItem, error) {
	var item models.SyncQueueItem
	if err := rows.Scan(&item.ID, &item.TaskID, &item.Operation, &item.Data, &item.CreatedAt, &item.RetryCount, &item.ErrorMessage); err != nil {
		return nil, err
	}
	return &item, nil
}
