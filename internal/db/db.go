// Package db provides the SQLite persistence layer for the sync engine:
// connection setup, schema/migrations, and multi-process write locking.
// The C1 store-adapter contract (run/get/all over a transaction) lives in
// store.go; task, queue, and dead-letter CRUD live in their own files.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const dbFile = ".tasksync/tasks.db"

// DB wraps the database connection.
type DB struct {
	conn    *sql.DB
	baseDir string
}

// openConn opens a SQLite connection with safe defaults for multi-process access.
func openConn(dbPath string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Pin to a single connection — SQLite only supports one writer, and
	// this prevents the pool from opening extra connections that could
	// corrupt the WAL/SHM files under concurrent multi-process access.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	conn.Exec("PRAGMA synchronous=NORMAL")
	conn.Exec("PRAGMA foreign_keys=ON")

	return conn, nil
}

// Open opens the database and runs any pending migrations.
func Open(baseDir string) (*DB, error) {
	dbPath := filepath.Join(baseDir, dbFile)

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: run 'tasksync init' first")
	}

	conn, err := openConn(dbPath)
	if err != nil {
		return nil, err
	}

	db := &DB{conn: conn, baseDir: baseDir}

	if _, err := db.RunMigrations(); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	// In-progress is advisory only: reset anything a crashed process left
	// mid-transmit back to pending so the next cycle picks it back up.
	if err := db.resetDanglingInProgress(); err != nil {
		return nil, fmt.Errorf("reset dangling in-progress tasks: %w", err)
	}

	return db, nil
}

// Initialize creates the database and runs migrations.
func Initialize(baseDir string) (*DB, error) {
	dbPath := filepath.Join(baseDir, dbFile)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	conn, err := openConn(dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(schema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}

	db := &DB{conn: conn, baseDir: baseDir}

	if _, err := db.RunMigrations(); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

// resetDanglingInProgress reverts tasks stuck in "in-progress" (DESIGN NOTES
// §9: the status is advisory and never cleared on crash) back to "pending".
func (db *DB) resetDanglingInProgress() error {
	_, err := db.conn.Exec(`UPDATE tasks SET sync_status = 'pending' WHERE sync_status = 'in-progress'`)
	return err
}

// Close closes the database connection.
// It performs a TRUNCATE checkpoint first to flush the WAL back into the
// main DB file and remove the -wal/-shm files, so a later opener never sees
// stale shared-memory state.
func (db *DB) Close() error {
	db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return db.conn.Close()
}

// BaseDir returns the base directory for the database.
func (db *DB) BaseDir() string {
	return db.baseDir
}

// Conn exposes the underlying *sql.DB for callers (e.g. the sync engine)
// that need to open their own transactions.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// withWriteLock executes fn while holding an exclusive, process-spanning
// write lock. A sync cycle and a local CRUD mutation must never interleave
// their commits, since both touch the sync_queue table (§5: "the store
// adapter ... must serialize writes to the same row").
func (db *DB) withWriteLock(fn func() error) error {
	locker := newWriteLocker(db.baseDir)
	if err := locker.acquire(defaultTimeout); err != nil {
		return err
	}
	defer locker.release()
	return fn()
}

// WithWriteLock is the exported form of withWriteLock, for callers outside
// db that need the same cross-process mutual exclusion around a
// transaction.
func (db *DB) WithWriteLock(fn func() error) error {
	return db.withWriteLock(fn)
}

// InitDir ensures the base directory and .tasksync subdirectory exist.
func InitDir(baseDir string) error {
	return os.MkdirAll(filepath.Join(baseDir, ".tasksync"), 0755)
}
