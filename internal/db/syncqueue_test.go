package db

import (
	"context"
	"testing"

	"github.com/tasksync/tasksync/internal/models"
)

func TestDrainQueueChronological_OrdersByTaskThenCreatedAt(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	a, err := db.CreateTask(ctx, "a", "")
	if err != nil {
		t.Fatalf("CreateTask a: %v", err)
	}
	b, err := db.CreateTask(ctx, "b", "")
	if err != nil {
		t.Fatalf("CreateTask b: %v", err)
	}
	title := "a updated"
	if _, err := db.UpdateTask(ctx, a.ID, models.TaskPatch{Title: &title}); err != nil {
		t.Fatalf("UpdateTask a: %v", err)
	}

	items, err := db.DrainQueueChronological(ctx)
	if err != nil {
		t.Fatalf("DrainQueueChronological: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("items = %d, want 3", len(items))
	}

	// Per-group order (I4): the two items for task a must appear in the
	// order they were created, never interleaved out of order.
	var aSeen int
	for _, item := range items {
		if item.TaskID == a.ID {
			aSeen++
			if aSeen == 2 && item.Operation != "update" {
				t.Errorf("second item for task a should be the update, got %s", item.Operation)
			}
		}
	}
	if aSeen != 2 {
		t.Fatalf("expected 2 items for task a, got %d", aSeen)
	}

	_ = b
}

func TestCountPending(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if n, err := db.CountPending(ctx); err != nil || n != 0 {
		t.Fatalf("CountPending on empty queue = %d, err %v", n, err)
	}

	task, err := db.CreateTask(ctx, "x", "")
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	n, err := db.CountPending(ctx)
	if err != nil {
		t.Fatalf("CountPending: %v", err)
	}
	if n != 1 {
		t.Errorf("CountPending = %d, want 1", n)
	}

	if err := db.RemoveQueueItemsForTask(ctx, task.ID); err != nil {
		t.Fatalf("RemoveQueueItemsForTask: %v", err)
	}
	if n, err := db.CountPending(ctx); err != nil || n != 0 {
		t.Fatalf("CountPending after removal = %d, err %v", n, err)
	}
}

func TestBumpRetry(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.CreateTask(ctx, "retry me", ""); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	items, err := db.DrainQueueChronological(ctx)
	if err != nil || len(items) != 1 {
		t.Fatalf("DrainQueueChronological: %v, items=%v", err, items)
	}

	if err := db.BumpRetry(ctx, items[0].ID, 1, "boom"); err != nil {
		t.Fatalf("BumpRetry: %v", err)
	}

	after, err := db.DrainQueueChronological(ctx)
	if err != nil {
		t.Fatalf("DrainQueueChronological: %v", err)
	}
	if after[0].RetryCount != 1 || after[0].ErrorMessage != "boom" {
		t.Errorf("item after bump = %+v, want retry_count=1 error_message=boom", after[0])
	}
}

func TestDeadLetterAndRemove(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.CreateTask(ctx, "doomed", ""); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	items, err := db.DrainQueueChronological(ctx)
	if err != nil || len(items) != 1 {
		t.Fatalf("DrainQueueChronological: %v, items=%v", err, items)
	}

	if err := db.DeadLetterAndRemove(ctx, items[0], "gave up"); err != nil {
		t.Fatalf("DeadLetterAndRemove: %v", err)
	}

	remaining, err := db.DrainQueueChronological(ctx)
	if err != nil {
		t.Fatalf("DrainQueueChronological: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("queue should be empty after dead-lettering, has %d items (I5)", len(remaining))
	}

	contents, err := db.DeadLetterContents(ctx)
	if err != nil {
		t.Fatalf("DeadLetterContents: %v", err)
	}
	if len(contents) != 1 || contents[0].FinalErrorMessage != "gave up" {
		t.Fatalf("dead letter contents = %+v, want one item with final_error_message=gave up", contents)
	}
}
