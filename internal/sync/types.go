package sync

import (
	"time"

	"github.com/tasksync/tasksync/internal/models"
)

// SyncIntent is the wire form of a queue item submitted to the server.
type SyncIntent struct {
	ID         int64     `json:"id"`
	TaskID     string    `json:"task_id"`
	Operation  string    `json:"operation"`
	Data       string    `json:"data"`
	CreatedAt  time.Time `json:"created_at"`
	RetryCount int       `json:"retry_count"`
}

// BatchRequest is the body of POST /sync/batch.
type BatchRequest struct {
	Items           []SyncIntent `json:"items"`
	ClientTimestamp time.Time    `json:"client_timestamp"`
	Checksum        string       `json:"checksum"`
}

// ProcessedItem is one element of a BatchResponse, matched back to its
// SyncIntent by ClientID.
type ProcessedItem struct {
	ClientID     int64        `json:"client_id"`
	ServerID     string       `json:"server_id,omitempty"`
	Status       string       `json:"status"` // success | conflict | error
	ResolvedData *models.Task `json:"resolved_data,omitempty"`
	Error        string       `json:"error,omitempty"`
}

const (
	StatusSuccess  = "success"
	StatusConflict = "conflict"
	StatusError    = "error"
)

// BatchResponse is the body returned by POST /sync/batch.
type BatchResponse struct {
	ProcessedItems   []ProcessedItem `json:"processed_items"`
	ServerTimestamp  time.Time       `json:"server_timestamp"`
	ChecksumVerified bool            `json:"checksum_verified"`
}

// Result aggregates the outcome of one sync cycle (§4.4).
type Result struct {
	Success     bool          `json:"success"`
	SyncedItems int           `json:"synced_items"`
	FailedItems int           `json:"failed_items"`
	Errors      []CycleError  `json:"errors"`
}

// CycleError records a single failure surfaced on the Result, including
// the synthetic connectivity record emitted when the probe fails.
type CycleError struct {
	TaskID  string `json:"task_id"`
	Message string `json:"message"`
}
