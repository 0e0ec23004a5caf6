// Package models defines the core domain types shared across the task
// repository, sync queue, dead-letter store, and sync engine.
package models

import (
	"fmt"
	"time"
)

// SyncStatus tracks where a task stands in the upload pipeline.
type SyncStatus string

const (
	SyncStatusPending    SyncStatus = "pending"
	SyncStatusInProgress SyncStatus = "in-progress"
	SyncStatusSynced     SyncStatus = "synced"
	SyncStatusError      SyncStatus = "error"
	SyncStatusFailed     SyncStatus = "failed"
)

// Operation is the kind of mutation a sync-queue item represents.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// UnassignedServerID is the projection value for a task that has never
// been acknowledged by the server.
const UnassignedServerID = "unassigned"

// Task is an owned user entity, the unit the sync engine reconciles
// between the local replica and the server.
type Task struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	Completed     bool       `json:"completed"`
	IsDeleted     bool       `json:"is_deleted"`
	SyncStatus    SyncStatus `json:"sync_status"`
	ServerID      string     `json:"server_id,omitempty"`
	LastSyncedAt  *time.Time `json:"last_synced_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TaskPatch carries the mutable fields of an update. A nil field is left
// unchanged; id, created_at, and sync bookkeeping are never patchable
// through this type.
type TaskPatch struct {
	Title       *string
	Description *string
	Completed   *bool
}

// Validate checks creation-time invariants that hold regardless of storage.
func (t *Task) Validate() error {
	if t.Title == "" {
		return fmt.Errorf("title must not be empty")
	}
	return nil
}

// SyncQueueItem is a durable record that a task mutation is pending
// upload. Rows are appended by the task repository in the same
// transaction as the mutation that produced them (see I2).
type SyncQueueItem struct {
	ID           int64     `json:"id"`
	TaskID       string    `json:"task_id"`
	Operation    Operation `json:"operation"`
	Data         string    `json:"data"`
	CreatedAt    time.Time `json:"created_at"`
	RetryCount   int       `json:"retry_count"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// DeadLetterItem is the terminal home for an intent whose retries were
// exhausted. It carries the original intent verbatim plus failure
// metadata.
type DeadLetterItem struct {
	ID                int64     `json:"id"`
	TaskID            string    `json:"task_id"`
	Operation         Operation `json:"operation"`
	Data              string    `json:"data"`
	CreatedAt         time.Time `json:"created_at"`
	RetryCount        int       `json:"retry_count"`
	FailedAt          time.Time `json:"failed_at"`
	FinalErrorMessage string    `json:"final_error_message,omitempty"`
}
