package sync

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tasksync/tasksync/internal/models"
)

// Store is the subset of the persistence layer the engine needs. It is
// satisfied by *db.DB; defining it here keeps the engine testable against
// a fake without importing the database driver.
type Store interface {
	DrainQueueChronological(ctx context.Context) ([]*models.SyncQueueItem, error)
	MarkTasksInProgress(ctx context.Context, taskIDs []string) error
	GetTask(ctx context.Context, id string) (*models.Task, error)
	GetTaskIncludingDeleted(ctx context.Context, id string) (*models.Task, error)
	MarkTaskSynced(ctx context.Context, taskID, serverID string) error
	ApplyServerSnapshot(ctx context.Context, taskID string, snapshot *models.Task, serverID string) error
	RemoveQueueItemsForTask(ctx context.Context, taskID string) error
	BumpRetry(ctx context.Context, itemID int64, newCount int, errMsg string) error
	MarkTaskErrored(ctx context.Context, taskID string) error
	MarkTaskFailed(ctx context.Context, taskID string) error
	DeadLetterAndRemove(ctx context.Context, item *models.SyncQueueItem, finalErr string) error
}

// Transport is the subset of the remote client the engine needs (C6).
type Transport interface {
	CheckConnectivity(ctx context.Context) bool
	PostBatch(ctx context.Context, req *BatchRequest) (*BatchResponse, error)
}

// Engine orchestrates sync cycles (C5). Cycles are serialized with a
// process-level mutex: the source does not debounce overlapping calls to
// run_cycle, and running two concurrently would race on the in-progress
// marker (§9, open question).
type Engine struct {
	store     Store
	transport Transport
	batchSize int
	maxRetries int

	mu sync.Mutex
}

// NewEngine wires a Store and Transport with the configured batch size and
// retry bound.
func NewEngine(store Store, transport Transport, batchSize, maxRetries int) *Engine {
	if batchSize < 1 {
		batchSize = 10
	}
	if maxRetries < 1 {
		maxRetries = 3
	}
	return &Engine{store: store, transport: transport, batchSize: batchSize, maxRetries: maxRetries}
}

// RunCycle executes one end-to-end sync cycle: probe, drain, group,
// batch, transmit, settle (§4.4).
func (e *Engine) RunCycle(ctx context.Context) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	result := &Result{Success: true}

	if !e.transport.CheckConnectivity(ctx) {
		result.Success = false
		result.Errors = append(result.Errors, CycleError{TaskID: "connection", Message: "server unreachable"})
		return result, nil
	}

	items, err := e.store.DrainQueueChronological(ctx)
	if err != nil {
		result.Success = false
		result.Errors = append(result.Errors, CycleError{TaskID: "sync_service", Message: err.Error()})
		return result, fmt.Errorf("drain sync queue: %w", err)
	}

	for _, batch := range batchGroups(items, e.batchSize) {
		e.runBatch(ctx, batch, result)
	}

	result.Success = len(result.Errors) == 0
	return result, nil
}

// batchGroups partitions items (already chronologically sorted by
// task_id, created_at) into batches of at most size, walking task groups
// in iteration order and never splitting a group's internal order across
// a batch boundary split (§4.4 step 4). A single group larger than size
// still spills across multiple batches — the per-group order within each
// is preserved since items are appended in their drained order.
func batchGroups(items []*models.SyncQueueItem, size int) [][]*models.SyncQueueItem {
	if len(items) == 0 {
		return nil
	}

	var batches [][]*models.SyncQueueItem
	var current []*models.SyncQueueItem

	for _, item := range items {
		if len(current) == size {
			batches = append(batches, current)
			current = nil
		}
		current = append(current, item)
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}

// runBatch marks participating tasks in-progress, transmits, and settles
// each item's outcome. A transport failure runs every item in the batch
// through the failure handler rather than aborting the cycle (§4.4 step 7).
func (e *Engine) runBatch(ctx context.Context, batch []*models.SyncQueueItem, result *Result) {
	taskIDs := make([]string, 0, len(batch))
	seen := make(map[string]bool, len(batch))
	for _, item := range batch {
		if !seen[item.TaskID] {
			seen[item.TaskID] = true
			taskIDs = append(taskIDs, item.TaskID)
		}
	}
	if err := e.store.MarkTasksInProgress(ctx, taskIDs); err != nil {
		slog.Warn("mark in-progress failed", "err", err)
	}

	req := buildBatchRequest(batch)
	resp, err := e.transport.PostBatch(ctx, req)
	if err != nil {
		slog.Warn("batch transmit failed", "err", err, "items", len(batch))
		for _, item := range batch {
			e.handleFailure(ctx, item, err.Error(), result)
		}
		return
	}

	byClientID := make(map[int64]*models.SyncQueueItem, len(batch))
	for _, item := range batch {
		byClientID[item.ID] = item
	}

	for _, processed := range resp.ProcessedItems {
		item, ok := byClientID[processed.ClientID]
		if !ok {
			continue
		}

		switch processed.Status {
		case StatusSuccess:
			if err := e.store.MarkTaskSynced(ctx, item.TaskID, processed.ServerID); err != nil {
				result.Errors = append(result.Errors, CycleError{TaskID: item.TaskID, Message: err.Error()})
				continue
			}
			if err := e.store.RemoveQueueItemsForTask(ctx, item.TaskID); err != nil {
				result.Errors = append(result.Errors, CycleError{TaskID: item.TaskID, Message: err.Error()})
				continue
			}
			result.SyncedItems++

		case StatusConflict:
			// A conflict on a delete-op item races DeleteTask's own soft
			// delete: by the time the server replies, GetTask (which
			// filters is_deleted) can no longer see the row. Resolution is
			// at the whole-entity level regardless of operation type
			// (§4.5), so conflicts are resolved against the soft-deleted
			// row too.
			local, err := e.store.GetTaskIncludingDeleted(ctx, item.TaskID)
			if err != nil || local == nil || processed.ResolvedData == nil {
				e.handleFailure(ctx, item, "conflict with no resolvable snapshot", result)
				continue
			}
			winner := Resolve(local, processed.ResolvedData)
			if err := e.store.ApplyServerSnapshot(ctx, item.TaskID, winner, processed.ServerID); err != nil {
				result.Errors = append(result.Errors, CycleError{TaskID: item.TaskID, Message: err.Error()})
				continue
			}
			if err := e.store.RemoveQueueItemsForTask(ctx, item.TaskID); err != nil {
				result.Errors = append(result.Errors, CycleError{TaskID: item.TaskID, Message: err.Error()})
				continue
			}
			result.SyncedItems++

		case StatusError:
			e.handleFailure(ctx, item, processed.Error, result)
		}
	}
}

// handleFailure implements the failure handler (§4.6): bump-and-retry
// below MAX_RETRIES, otherwise an atomic dead-letter move.
func (e *Engine) handleFailure(ctx context.Context, item *models.SyncQueueItem, errMsg string, result *Result) {
	newCount := item.RetryCount + 1
	if newCount < e.maxRetries {
		if err := e.store.BumpRetry(ctx, item.ID, newCount, errMsg); err != nil {
			result.Errors = append(result.Errors, CycleError{TaskID: item.TaskID, Message: err.Error()})
			return
		}
		if err := e.store.MarkTaskErrored(ctx, item.TaskID); err != nil {
			result.Errors = append(result.Errors, CycleError{TaskID: item.TaskID, Message: err.Error()})
			return
		}
	} else {
		item.RetryCount = newCount
		if err := e.store.DeadLetterAndRemove(ctx, item, errMsg); err != nil {
			result.Errors = append(result.Errors, CycleError{TaskID: item.TaskID, Message: err.Error()})
			return
		}
		if err := e.store.MarkTaskFailed(ctx, item.TaskID); err != nil {
			result.Errors = append(result.Errors, CycleError{TaskID: item.TaskID, Message: err.Error()})
			return
		}
	}
	result.FailedItems++
	result.Errors = append(result.Errors, CycleError{TaskID: item.TaskID, Message: errMsg})
}

// Resolve is the pure last-writer-wins conflict resolver (§4.5, P6): a
// function of the two updated_at values alone. Equal timestamps favor the
// server snapshot, the documented tie-break.
func Resolve(local, server *models.Task) *models.Task {
	if local.UpdatedAt.After(server.UpdatedAt) {
		return local
	}
	return server
}

// buildBatchRequest assembles the wire request for a batch and stamps it
// with the checksum defined in §6.
func buildBatchRequest(batch []*models.SyncQueueItem) *BatchRequest {
	items := make([]SyncIntent, 0, len(batch))
	for _, item := range batch {
		items = append(items, SyncIntent{
			ID:         item.ID,
			TaskID:     item.TaskID,
			Operation:  string(item.Operation),
			Data:       item.Data,
			CreatedAt:  item.CreatedAt,
			RetryCount: item.RetryCount,
		})
	}
	return &BatchRequest{
		Items:           items,
		ClientTimestamp: time.Now().UTC(),
		Checksum:        Checksum(items),
	}
}

// Checksum computes the hex MD5 over "<id>-<operation>-<task_id>" joined
// by "|" in submission order (§6). It is a transport-integrity hint, not
// a security primitive.
func Checksum(items []SyncIntent) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%s-%s-%s", strconv.FormatInt(item.ID, 10), item.Operation, item.TaskID))
	}
	sum := md5.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
