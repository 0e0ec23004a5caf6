package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tasksync/tasksync/internal/models"
)

// CreateTask allocates a fresh task and appends a create intent in the
// same transaction (I2). sync_status starts pending, is_deleted false.
func (db *DB) CreateTask(ctx context.Context, title, description string) (*models.Task, error) {
	if title == "" {
		return nil, fmt.Errorf("title must not be empty")
	}

	var task *models.Task
	err := db.withWriteLock(func() error {
		return db.withTx(ctx, func(s *Store) error {
			const maxRetries = 3
			now := time.Now().UTC()
			for attempt := 0; attempt < maxRetries; attempt++ {
				id, err := GenerateTaskID()
				if err != nil {
					return err
				}
				t := &models.Task{
					ID:          id,
					Title:       title,
					Description: description,
					Completed:   false,
					IsDeleted:   false,
					SyncStatus:  models.SyncStatusPending,
					CreatedAt:   now,
					UpdatedAt:   now,
				}

				_, err = s.run(ctx, `
					INSERT INTO tasks (id, title, description, completed, is_deleted, sync_status, created_at, updated_at)
					VALUES (?, ?, ?, ?, ?, ?, ?, ?)
				`, t.ID, t.Title, t.Description, t.Completed, t.IsDeleted, t.SyncStatus, t.CreatedAt, t.UpdatedAt)

				if err != nil {
					if isUniqueViolation(err) {
						continue // ID collision, retry with a fresh one
					}
					return err
				}

				if err := enqueueIntent(ctx, s, t, models.OpCreate); err != nil {
					return err
				}
				task = t
				return nil
			}
			return fmt.Errorf("failed to generate unique task ID after %d attempts", maxRetries)
		})
	})
	return task, err
}

// UpdateTask overwrites the mutable fields named in patch, refreshes
// updated_at, resets sync_status to pending, and appends an update
// intent atomically. Returns (nil, nil) if the task is missing or
// soft-deleted — "absent" per §4.1, not an error.
func (db *DB) UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (*models.Task, error) {
	var task *models.Task
	err := db.withWriteLock(func() error {
		return db.withTx(ctx, func(s *Store) error {
			existing, err := getTaskTx(ctx, s, id, false)
			if err != nil {
				return err
			}
			if existing == nil {
				return nil
			}

			if patch.Title != nil {
				existing.Title = *patch.Title
			}
			if patch.Description != nil {
				existing.Description = *patch.Description
			}
			if patch.Completed != nil {
				existing.Completed = *patch.Completed
			}
			existing.UpdatedAt = time.Now().UTC()
			existing.SyncStatus = models.SyncStatusPending

			_, err = s.run(ctx, `
				UPDATE tasks SET title = ?, description = ?, completed = ?, sync_status = ?, updated_at = ?
				WHERE id = ?
			`, existing.Title, existing.Description, existing.Completed, existing.SyncStatus, existing.UpdatedAt, existing.ID)
			if err != nil {
				return err
			}

			if err := enqueueIntent(ctx, s, existing, models.OpUpdate); err != nil {
				return err
			}
			task = existing
			return nil
		})
	})
	return task, err
}

// DeleteTask soft-deletes the task and appends a delete intent carrying
// the final snapshot. Returns false if the task is missing or already
// deleted.
func (db *DB) DeleteTask(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := db.withWriteLock(func() error {
		return db.withTx(ctx, func(s *Store) error {
			existing, err := getTaskTx(ctx, s, id, false)
			if err != nil {
				return err
			}
			if existing == nil {
				return nil
			}

			existing.IsDeleted = true
			existing.UpdatedAt = time.Now().UTC()
			existing.SyncStatus = models.SyncStatusPending

			_, err = s.run(ctx, `
				UPDATE tasks SET is_deleted = ?, sync_status = ?, updated_at = ?
				WHERE id = ?
			`, existing.IsDeleted, existing.SyncStatus, existing.UpdatedAt, existing.ID)
			if err != nil {
				return err
			}

			if err := enqueueIntent(ctx, s, existing, models.OpDelete); err != nil {
				return err
			}
			deleted = true
			return nil
		})
	})
	return deleted, err
}

// GetTask returns a live (non-deleted) task by id, or nil if absent.
func (db *DB) GetTask(ctx context.Context, id string) (*models.Task, error) {
	return getTaskTx(ctx, NewStore(db), id, false)
}

// GetTaskIncludingDeleted returns a task by id whether or not it has been
// soft-deleted, or nil if no row with that id exists at all. Conflict
// resolution (§4.5) operates on the whole entity regardless of which
// operation the pending queue item carries, so a delete-op conflict must
// still be able to see the soft-deleted row GetTask hides.
func (db *DB) GetTaskIncludingDeleted(ctx context.Context, id string) (*models.Task, error) {
	return getTaskTx(ctx, NewStore(db), id, true)
}

// ListAllTasks returns every live task, oldest first.
func (db *DB) ListAllTasks(ctx context.Context) ([]*models.Task, error) {
	var tasks []*models.Task
	s := NewStore(db)
	err := s.all(ctx, func(rows *sql.Rows) error {
		t, err := scanTask(rows)
		if err != nil {
			return err
		}
		tasks = append(tasks, t)
		return nil
	}, `SELECT id, title, description, completed, is_deleted, sync_status, server_id, last_synced_at, created_at, updated_at
		FROM tasks WHERE is_deleted = 0 ORDER BY created_at ASC`)
	return tasks, err
}

// ListTasksNeedingSync returns every row with sync_status in
// {pending, error}, soft-deleted rows included, ordered by updated_at
// ascending (§4.1).
func (db *DB) ListTasksNeedingSync(ctx context.Context) ([]*models.Task, error) {
	var tasks []*models.Task
	s := NewStore(db)
	err := s.all(ctx, func(rows *sql.Rows) error {
		t, err := scanTask(rows)
		if err != nil {
			return err
		}
		tasks = append(tasks, t)
		return nil
	}, `SELECT id, title, description, completed, is_deleted, sync_status, server_id, last_synced_at, created_at, updated_at
		FROM tasks WHERE sync_status IN ('pending', 'error') ORDER BY updated_at ASC`)
	return tasks, err
}

// ApplyServerSnapshot overwrites the local row with a server-resolved
// snapshot (conflict resolution or a plain success ack), marking the
// task synced. It does not touch the sync queue; callers remove the
// settled queue item separately.
func (db *DB) ApplyServerSnapshot(ctx context.Context, taskID string, snapshot *models.Task, serverID string) error {
	return db.withWriteLock(func() error {
		return db.withTx(ctx, func(s *Store) error {
			now := time.Now().UTC()
			if serverID == "" {
				serverID = snapshot.ServerID
			}
			_, err := s.run(ctx, `
				UPDATE tasks SET title = ?, description = ?, completed = ?, is_deleted = ?,
					sync_status = ?, server_id = ?, last_synced_at = ?, updated_at = ?
				WHERE id = ?
			`, snapshot.Title, snapshot.Description, snapshot.Completed, snapshot.IsDeleted,
				models.SyncStatusSynced, nullableString(serverID), now, snapshot.UpdatedAt, taskID)
			return err
		})
	})
}

// MarkTaskSynced records a plain (non-conflict) success ack for a task
// without overwriting its content.
func (db *DB) MarkTaskSynced(ctx context.Context, taskID, serverID string) error {
	return db.withWriteLock(func() error {
		return db.withTx(ctx, func(s *Store) error {
			now := time.Now().UTC()
			_, err := s.run(ctx, `
				UPDATE tasks SET sync_status = ?, server_id = COALESCE(NULLIF(?, ''), server_id), last_synced_at = ?
				WHERE id = ?
			`, models.SyncStatusSynced, serverID, now, taskID)
			return err
		})
	})
}

// MarkTaskErrored records a recoverable per-item failure (§4.6).
func (db *DB) MarkTaskErrored(ctx context.Context, taskID string) error {
	return db.withWriteLock(func() error {
		return db.withTx(ctx, func(s *Store) error {
			_, err := s.run(ctx, `UPDATE tasks SET sync_status = ? WHERE id = ?`, models.SyncStatusError, taskID)
			return err
		})
	})
}

// MarkTaskFailed records a terminal, dead-lettered failure (§4.6).
func (db *DB) MarkTaskFailed(ctx context.Context, taskID string) error {
	return db.withWriteLock(func() error {
		return db.withTx(ctx, func(s *Store) error {
			_, err := s.run(ctx, `UPDATE tasks SET sync_status = ? WHERE id = ?`, models.SyncStatusFailed, taskID)
			return err
		})
	})
}

// MarkTasksInProgress flags every task participating in a batch before
// transmit (§4.4 step 5).
func (db *DB) MarkTasksInProgress(ctx context.Context, taskIDs []string) error {
	if len(taskIDs) == 0 {
		return nil
	}
	return db.withWriteLock(func() error {
		return db.withTx(ctx, func(s *Store) error {
			for _, id := range taskIDs {
				if _, err := s.run(ctx, `UPDATE tasks SET sync_status = ? WHERE id = ?`, models.SyncStatusInProgress, id); err != nil {
					return err
				}
			}
			return nil
		})
	})
}

// getTaskTx fetches a task by id inside an existing Store (transaction or
// top-level connection). includeDeleted controls visibility of
// soft-deleted rows.
func getTaskTx(ctx context.Context, s *Store, id string, includeDeleted bool) (*models.Task, error) {
	query := `SELECT id, title, description, completed, is_deleted, sync_status, server_id, last_synced_at, created_at, updated_at
		FROM tasks WHERE id = ?`
	if !includeDeleted {
		query += ` AND is_deleted = 0`
	}

	var task *models.Task
	err := s.get(ctx, func(row *sql.Row) error {
		t, err := scanTaskRow(row)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return err
		}
		task = t
		return nil
	}, query, id)
	return task, err
}

// scanner abstracts over *sql.Row and *sql.Rows, both of which expose Scan.
type scanner interface {
	Scan(dest ...any) error
}

func scanTaskRow(row *sql.Row) (*models.Task, error) {
	return scanTaskFrom(row)
}

func scanTask(rows *sql.Rows) (*models.Task, error) {
	return scanTaskFrom(rows)
}

func scanTaskFrom(sc scanner) (*models.Task, error) {
	var t models.Task
	var serverID sql.NullString
	var lastSyncedAt sql.NullTime

	err := sc.Scan(&t.ID, &t.Title, &t.Description, &t.Completed, &t.IsDeleted, &t.SyncStatus,
		&serverID, &lastSyncedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if serverID.Valid {
		t.ServerID = serverID.String
	} else {
		t.ServerID = models.UnassignedServerID
	}
	if lastSyncedAt.Valid {
		ts := lastSyncedAt.Time
		t.LastSyncedAt = &ts
	}
	return &t, nil
}

// enqueueIntent appends a sync-queue row carrying a full snapshot of t,
// satisfying I2 within the caller's transaction.
func enqueueIntent(ctx context.Context, s *Store, t *models.Task, op models.Operation) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return err
	}
	_, err = s.run(ctx, `
		INSERT INTO sync_queue (task_id, operation, data, created_at, retry_count, error_message)
		VALUES (?, ?, ?, ?, 0, '')
	`, t.ID, op, string(payload), time.Now().UTC())
	return err
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint")
}
