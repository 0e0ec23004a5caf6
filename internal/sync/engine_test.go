package sync

import (
	"context"
	"testing"
	"time"

	"github.com/tasksync/tasksync/internal/models"
)

// fakeStore is an in-memory Store double for exercising the engine
// without a real database.
type fakeStore struct {
	tasks        map[string]*models.Task
	queue        []*models.SyncQueueItem
	deadLetter   []*models.DeadLetterItem
	inProgress   []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{tasks: make(map[string]*models.Task)}
}

func (f *fakeStore) DrainQueueChronological(ctx context.Context) ([]*models.SyncQueueItem, error) {
	out := make([]*models.SyncQueueItem, len(f.queue))
	copy(out, f.queue)
	return out, nil
}

func (f *fakeStore) MarkTasksInProgress(ctx context.Context, taskIDs []string) error {
	f.inProgress = append(f.inProgress, taskIDs...)
	for _, id := range taskIDs {
		if t, ok := f.tasks[id]; ok {
			t.SyncStatus = models.SyncStatusInProgress
		}
	}
	return nil
}

func (f *fakeStore) GetTask(ctx context.Context, id string) (*models.Task, error) {
	return f.tasks[id], nil
}

func (f *fakeStore) GetTaskIncludingDeleted(ctx context.Context, id string) (*models.Task, error) {
	return f.tasks[id], nil
}

func (f *fakeStore) MarkTaskSynced(ctx context.Context, taskID, serverID string) error {
	t, ok := f.tasks[taskID]
	if !ok {
		return nil
	}
	t.SyncStatus = models.SyncStatusSynced
	if serverID != "" {
		t.ServerID = serverID
	}
	now := time.Now().UTC()
	t.LastSyncedAt = &now
	return nil
}

func (f *fakeStore) ApplyServerSnapshot(ctx context.Context, taskID string, snapshot *models.Task, serverID string) error {
	cp := *snapshot
	cp.SyncStatus = models.SyncStatusSynced
	if serverID != "" {
		cp.ServerID = serverID
	}
	f.tasks[taskID] = &cp
	return nil
}

func (f *fakeStore) RemoveQueueItemsForTask(ctx context.Context, taskID string) error {
	var remaining []*models.SyncQueueItem
	for _, item := range f.queue {
		if item.TaskID != taskID {
			remaining = append(remaining, item)
		}
	}
	f.queue = remaining
	return nil
}

func (f *fakeStore) BumpRetry(ctx context.Context, itemID int64, newCount int, errMsg string) error {
	for _, item := range f.queue {
		if item.ID == itemID {
			item.RetryCount = newCount
			item.ErrorMessage = errMsg
		}
	}
	return nil
}

func (f *fakeStore) MarkTaskErrored(ctx context.Context, taskID string) error {
	if t, ok := f.tasks[taskID]; ok {
		t.SyncStatus = models.SyncStatusError
	}
	return nil
}

func (f *fakeStore) MarkTaskFailed(ctx context.Context, taskID string) error {
	if t, ok := f.tasks[taskID]; ok {
		t.SyncStatus = models.SyncStatusFailed
	}
	return nil
}

func (f *fakeStore) DeadLetterAndRemove(ctx context.Context, item *models.SyncQueueItem, finalErr string) error {
	f.deadLetter = append(f.deadLetter, &models.DeadLetterItem{
		ID: item.ID, TaskID: item.TaskID, Operation: item.Operation, Data: item.Data,
		CreatedAt: item.CreatedAt, RetryCount: item.RetryCount, FinalErrorMessage: finalErr,
	})
	var remaining []*models.SyncQueueItem
	for _, q := range f.queue {
		if q.ID != item.ID {
			remaining = append(remaining, q)
		}
	}
	f.queue = remaining
	return nil
}

// fakeTransport is a scriptable Transport double.
type fakeTransport struct {
	connected bool
	respond   func(req *BatchRequest) (*BatchResponse, error)
	batches   [][]SyncIntent
}

func (f *fakeTransport) CheckConnectivity(ctx context.Context) bool { return f.connected }

func (f *fakeTransport) PostBatch(ctx context.Context, req *BatchRequest) (*BatchResponse, error) {
	f.batches = append(f.batches, req.Items)
	return f.respond(req)
}

func addTask(store *fakeStore, id string, updatedAt time.Time) *models.Task {
	t := &models.Task{ID: id, Title: "t", SyncStatus: models.SyncStatusPending, CreatedAt: updatedAt, UpdatedAt: updatedAt}
	store.tasks[id] = t
	return t
}

func enqueue(store *fakeStore, id int64, taskID string, op models.Operation, createdAt time.Time) {
	store.queue = append(store.queue, &models.SyncQueueItem{ID: id, TaskID: taskID, Operation: op, Data: "{}", CreatedAt: createdAt})
}

func TestRunCycle_CreateThenSyncOnline(t *testing.T) {
	store := newFakeStore()
	addTask(store, "t1", time.Now())
	enqueue(store, 1, "t1", models.OpCreate, time.Now())

	transport := &fakeTransport{
		connected: true,
		respond: func(req *BatchRequest) (*BatchResponse, error) {
			return &BatchResponse{ProcessedItems: []ProcessedItem{
				{ClientID: 1, ServerID: "s1", Status: StatusSuccess},
			}}, nil
		},
	}

	engine := NewEngine(store, transport, 10, 3)
	result, err := engine.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if !result.Success || result.SyncedItems != 1 || result.FailedItems != 0 {
		t.Fatalf("result = %+v, want success with 1 synced", result)
	}
	if store.tasks["t1"].SyncStatus != models.SyncStatusSynced {
		t.Errorf("task status = %s, want synced", store.tasks["t1"].SyncStatus)
	}
	if store.tasks["t1"].ServerID != "s1" {
		t.Errorf("server_id = %s, want s1", store.tasks["t1"].ServerID)
	}
	if len(store.queue) != 0 {
		t.Errorf("queue should be empty after sync, has %d items", len(store.queue))
	}
}

func TestRunCycle_OfflineCycle(t *testing.T) {
	store := newFakeStore()
	addTask(store, "t1", time.Now())
	enqueue(store, 1, "t1", models.OpCreate, time.Now())

	transport := &fakeTransport{connected: false}
	engine := NewEngine(store, transport, 10, 3)

	result, err := engine.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if result.Success || result.SyncedItems != 0 || result.FailedItems != 0 {
		t.Fatalf("result = %+v, want unsuccessful with no progress", result)
	}
	if len(result.Errors) != 1 || result.Errors[0].TaskID != "connection" {
		t.Fatalf("errors = %+v, want a single connection error", result.Errors)
	}
	if store.tasks["t1"].SyncStatus != models.SyncStatusPending {
		t.Errorf("task status changed to %s, should remain pending", store.tasks["t1"].SyncStatus)
	}
	if len(store.queue) != 1 {
		t.Errorf("queue should be untouched, has %d items", len(store.queue))
	}
}

func TestRunCycle_ConflictLocalNewer(t *testing.T) {
	store := newFakeStore()
	t2 := time.Now()
	t1 := t2.Add(-time.Hour)
	local := addTask(store, "t1", t2)
	local.Title = "local title"
	enqueue(store, 1, "t1", models.OpUpdate, time.Now())

	serverSnapshot := &models.Task{ID: "t1", Title: "server title", UpdatedAt: t1}

	transport := &fakeTransport{
		connected: true,
		respond: func(req *BatchRequest) (*BatchResponse, error) {
			return &BatchResponse{ProcessedItems: []ProcessedItem{
				{ClientID: 1, Status: StatusConflict, ResolvedData: serverSnapshot},
			}}, nil
		},
	}

	engine := NewEngine(store, transport, 10, 3)
	result, err := engine.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if !result.Success || result.SyncedItems != 1 {
		t.Fatalf("result = %+v, want 1 synced", result)
	}
	if store.tasks["t1"].Title != "local title" {
		t.Errorf("local-newer conflict should keep local snapshot, got title %q", store.tasks["t1"].Title)
	}
	if store.tasks["t1"].SyncStatus != models.SyncStatusSynced {
		t.Errorf("task status = %s, want synced", store.tasks["t1"].SyncStatus)
	}
}

func TestRunCycle_ConflictEqualTimestamps(t *testing.T) {
	store := newFakeStore()
	same := time.Now()
	local := addTask(store, "t1", same)
	local.Title = "local title"
	enqueue(store, 1, "t1", models.OpUpdate, time.Now())

	serverSnapshot := &models.Task{ID: "t1", Title: "server title", UpdatedAt: same}

	transport := &fakeTransport{
		connected: true,
		respond: func(req *BatchRequest) (*BatchResponse, error) {
			return &BatchResponse{ProcessedItems: []ProcessedItem{
				{ClientID: 1, Status: StatusConflict, ResolvedData: serverSnapshot},
			}}, nil
		},
	}

	engine := NewEngine(store, transport, 10, 3)
	if _, err := engine.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if store.tasks["t1"].Title != "server title" {
		t.Errorf("equal-timestamp conflict should favor server, got title %q", store.tasks["t1"].Title)
	}
}

func TestRunCycle_RetryExhaustion(t *testing.T) {
	store := newFakeStore()
	addTask(store, "t1", time.Now())
	enqueue(store, 1, "t1", models.OpUpdate, time.Now())

	transport := &fakeTransport{
		connected: true,
		respond: func(req *BatchRequest) (*BatchResponse, error) {
			return &BatchResponse{ProcessedItems: []ProcessedItem{
				{ClientID: 1, Status: StatusError, Error: "server exploded"},
			}}, nil
		},
	}

	engine := NewEngine(store, transport, 10, 3)
	for i := 0; i < 3; i++ {
		if _, err := engine.RunCycle(context.Background()); err != nil {
			t.Fatalf("RunCycle %d: %v", i, err)
		}
	}

	if store.tasks["t1"].SyncStatus != models.SyncStatusFailed {
		t.Errorf("task status = %s, want failed after exhausting retries", store.tasks["t1"].SyncStatus)
	}
	if len(store.queue) != 0 {
		t.Errorf("queue should be empty after dead-lettering, has %d items", len(store.queue))
	}
	if len(store.deadLetter) != 1 || store.deadLetter[0].FinalErrorMessage != "server exploded" {
		t.Fatalf("dead letter = %+v, want one item with the last error", store.deadLetter)
	}
}

func TestRunCycle_ChronologicalBatching(t *testing.T) {
	store := newFakeStore()
	base := time.Now()
	addTask(store, "t1", base)
	enqueue(store, 1, "t1", models.OpCreate, base)
	enqueue(store, 2, "t1", models.OpUpdate, base.Add(time.Second))
	enqueue(store, 3, "t1", models.OpDelete, base.Add(2*time.Second))

	transport := &fakeTransport{
		connected: true,
		respond: func(req *BatchRequest) (*BatchResponse, error) {
			items := make([]ProcessedItem, len(req.Items))
			for i, it := range req.Items {
				items[i] = ProcessedItem{ClientID: it.ID, Status: StatusSuccess}
			}
			return &BatchResponse{ProcessedItems: items}, nil
		},
	}

	engine := NewEngine(store, transport, 2, 3)
	if _, err := engine.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	if len(transport.batches) != 2 {
		t.Fatalf("batches sent = %d, want 2", len(transport.batches))
	}
	if len(transport.batches[0]) != 2 || transport.batches[0][0].ID != 1 || transport.batches[0][1].ID != 2 {
		t.Errorf("first batch = %+v, want [create(1), update(2)]", transport.batches[0])
	}
	if len(transport.batches[1]) != 1 || transport.batches[1][0].ID != 3 {
		t.Errorf("second batch = %+v, want [delete(3)]", transport.batches[1])
	}
}

func TestBatchGroups_BatchSizeOne(t *testing.T) {
	items := []*models.SyncQueueItem{
		{ID: 1, TaskID: "a"}, {ID: 2, TaskID: "a"}, {ID: 3, TaskID: "b"},
	}
	batches := batchGroups(items, 1)
	if len(batches) != 3 {
		t.Fatalf("batches = %d, want 3", len(batches))
	}
	for i, b := range batches {
		if len(b) != 1 {
			t.Errorf("batch %d has %d items, want 1", i, len(b))
		}
	}
}

func TestResolve(t *testing.T) {
	t1 := time.Now()
	t2 := t1.Add(time.Hour)

	local := &models.Task{ID: "x", UpdatedAt: t2}
	server := &models.Task{ID: "x", UpdatedAt: t1}
	if got := Resolve(local, server); got != local {
		t.Error("local strictly newer should win")
	}

	local = &models.Task{ID: "x", UpdatedAt: t1}
	server = &models.Task{ID: "x", UpdatedAt: t2}
	if got := Resolve(local, server); got != server {
		t.Error("server strictly newer should win")
	}

	local = &models.Task{ID: "x", UpdatedAt: t1}
	server = &models.Task{ID: "x", UpdatedAt: t1}
	if got := Resolve(local, server); got != server {
		t.Error("equal timestamps should favor server")
	}
}

func TestChecksum_Deterministic(t *testing.T) {
	items := []SyncIntent{
		{ID: 1, TaskID: "t1", Operation: "create"},
		{ID: 2, TaskID: "t1", Operation: "update"},
	}
	a := Checksum(items)
	b := Checksum(items)
	if a != b {
		t.Errorf("checksum not deterministic: %s != %s", a, b)
	}

	reordered := []SyncIntent{items[1], items[0]}
	if Checksum(reordered) == a {
		t.Error("checksum should depend on submission order")
	}
}
