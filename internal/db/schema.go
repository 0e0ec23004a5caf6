package db

// SchemaVersion is the current database schema version.
const SchemaVersion = 2

const schema = `
-- Tasks table. sync_status tracks where this row stands in the upload
-- pipeline; server_id is unset until the first successful sync ack.
CREATE TABLE IF NOT EXISTS tasks (
    id              TEXT PRIMARY KEY,
    title           TEXT NOT NULL,
    description     TEXT DEFAULT '',
    completed       INTEGER NOT NULL DEFAULT 0,
    is_deleted      INTEGER NOT NULL DEFAULT 0,
    sync_status     TEXT NOT NULL DEFAULT 'pending',
    server_id       TEXT,
    last_synced_at  DATETIME,
    created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_tasks_sync_status ON tasks(sync_status);
CREATE INDEX IF NOT EXISTS idx_tasks_is_deleted ON tasks(is_deleted);

-- Sync queue: an append-only write-ahead log of pending intents. A row is
-- inserted in the same transaction as the task mutation that produced it
-- (see enqueueIntent in tasks.go), and removed once the engine settles the outcome.
CREATE TABLE IF NOT EXISTS sync_queue (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    task_id       TEXT NOT NULL,
    operation     TEXT NOT NULL,
    data          TEXT NOT NULL,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    retry_count   INTEGER NOT NULL DEFAULT 0,
    error_message TEXT DEFAULT '',
    FOREIGN KEY (task_id) REFERENCES tasks(id)
);

CREATE INDEX IF NOT EXISTS idx_sync_queue_task_created ON sync_queue(task_id, created_at);

-- Dead-letter quarantine: terminal home for intents that exhausted their
-- retries. Carries the original intent verbatim plus failure metadata.
CREATE TABLE IF NOT EXISTS dead_letter_queue (
    id                  INTEGER PRIMARY KEY,
    task_id             TEXT NOT NULL,
    operation           TEXT NOT NULL,
    data                TEXT NOT NULL,
    created_at          DATETIME NOT NULL,
    retry_count         INTEGER NOT NULL,
    failed_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    final_error_message TEXT DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_dead_letter_failed_at ON dead_letter_queue(failed_at);
`

// Migration describes a single, ordered schema change.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// Migrations lists schema changes applied after the base schema, in order.
var Migrations = []Migration{
	{
		Version:     2,
		Description: "Reset dangling in-progress tasks to pending on startup",
		// In-progress is advisory: the engine sets it before transmit and
		// never clears it if the process dies mid-cycle. A fresh open
		// should not find tasks stuck believing a batch is in flight.
		SQL: `UPDATE tasks SET sync_status = 'pending' WHERE sync_status = 'in-progress';`,
	},
}
