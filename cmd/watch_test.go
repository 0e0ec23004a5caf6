package cmd

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/tasksync/tasksync/internal/db"
	"github.com/tasksync/tasksync/internal/mockserver"
	"github.com/tasksync/tasksync/internal/sync"
	"github.com/tasksync/tasksync/internal/syncclient"
)

func TestRunAndReport_ReportsSyncedItems(t *testing.T) {
	dir := setupTestProject(t)

	srv := mockserver.New(mockserver.Config{ListenAddr: "127.0.0.1:18793"})
	if err := srv.Start(); err != nil {
		t.Fatalf("failed to start mock server: %v", err)
	}
	defer srv.Shutdown(context.Background())
	time.Sleep(50 * time.Millisecond)

	database, err := db.Open(dir)
	if err != nil {
		t.Fatalf("db.Open failed: %v", err)
	}
	defer database.Close()
	if _, err := database.CreateTask(context.Background(), "watched", ""); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	transport := syncclient.New("http://127.0.0.1:18793")
	engine := sync.NewEngine(database, transport, 10, 3)

	out := captureStdout(t, func() { runAndReport(context.Background(), engine) })
	if !strings.Contains(out, "synced 1, failed 0") {
		t.Errorf("output = %q, want synced 1, failed 0", out)
	}
}

func TestRunAndReport_SilentWhenNothingPending(t *testing.T) {
	dir := setupTestProject(t)

	srv := mockserver.New(mockserver.Config{ListenAddr: "127.0.0.1:18794"})
	if err := srv.Start(); err != nil {
		t.Fatalf("failed to start mock server: %v", err)
	}
	defer srv.Shutdown(context.Background())
	time.Sleep(50 * time.Millisecond)

	database, err := db.Open(dir)
	if err != nil {
		t.Fatalf("db.Open failed: %v", err)
	}
	defer database.Close()

	transport := syncclient.New("http://127.0.0.1:18794")
	engine := sync.NewEngine(database, transport, 10, 3)

	out := captureStdout(t, func() { runAndReport(context.Background(), engine) })
	if out != "" {
		t.Errorf("output = %q, want no output when there is nothing to sync", out)
	}
}

func TestWatchCmd_FlagDefault(t *testing.T) {
	flag := watchCmd.Flags().Lookup("interval")
	if flag == nil {
		t.Fatal("expected --interval flag to be registered")
	}
	if flag.DefValue != "30" {
		t.Errorf("interval default = %q, want 30", flag.DefValue)
	}
}
