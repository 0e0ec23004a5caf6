package db

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

const (
	lockFileName   = "write.lock"
	defaultTimeout = 500 * time.Millisecond
	initialBackoff = 5 * time.Millisecond
	maxBackoff     = 50 * time.Millisecond
)

// lockEpoch counts lock acquisitions by this process, so a contending
// process's timeout diagnostic can tell a long-held lock (low epoch, old
// timestamp — likely a stuck holder) from one that is simply cycling fast
// (epoch climbing, timestamp fresh).
var lockEpoch uint64

// writeLocker serializes access to one .tasksync project directory across
// processes: a CRUD command (create/update/delete) and a background sync
// cycle both touch the sync_queue table and must never interleave their
// commits (§5). It wraps an OS advisory file lock that the kernel releases
// automatically if the holding process dies, crash included.
type writeLocker struct {
	lockPath string
	lockFile *os.File
}

// newWriteLocker returns a locker scoped to baseDir's .tasksync directory.
func newWriteLocker(baseDir string) *writeLocker {
	return &writeLocker{
		lockPath: filepath.Join(baseDir, ".tasksync", lockFileName),
	}
}

// acquire blocks, retrying with capped exponential backoff, until it holds
// the lock or timeout elapses.
func (l *writeLocker) acquire(timeout time.Duration) error {
	f, err := os.OpenFile(l.lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	l.lockFile = f

	deadline := time.Now().Add(timeout)
	backoff := initialBackoff

	for {
		if err := l.tryLock(); err == nil {
			l.writeHolder()
			return nil
		}

		if time.Now().After(deadline) {
			holder := l.readHolder()
			l.lockFile.Close()
			l.lockFile = nil
			return fmt.Errorf("timed out after %v waiting for the tasksync write lock\n  held by: %s\n  another tasksync process (a CLI command or a watch cycle) is writing to %s", timeout, holder, filepath.Dir(l.lockPath))
		}

		time.Sleep(backoff)
		if backoff < maxBackoff {
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}
}

// release clears the holder record and drops the lock.
func (l *writeLocker) release() error {
	if l.lockFile == nil {
		return nil
	}

	l.lockFile.Truncate(0)
	l.unlock()
	l.lockFile.Close()
	l.lockFile = nil

	return nil
}

// holderInfo is the diagnostic record written into the lock file while it
// is held, so a process that times out waiting for it can report who has
// it and whether that process still looks alive.
type holderInfo struct {
	pid   int
	epoch uint64
	at    time.Time
}

func (h holderInfo) encode() string {
	return fmt.Sprintf("pid:%d\nepoch:%d\nat:%s\n", h.pid, h.epoch, h.at.Format(time.RFC3339))
}

func decodeHolderInfo(raw string) (holderInfo, bool) {
	var h holderInfo
	var havePID bool
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		switch key {
		case "pid":
			if n, err := strconv.Atoi(val); err == nil {
				h.pid = n
				havePID = true
			}
		case "epoch":
			if n, err := strconv.ParseUint(val, 10, 64); err == nil {
				h.epoch = n
			}
		case "at":
			if t, err := time.Parse(time.RFC3339, val); err == nil {
				h.at = t
			}
		}
	}
	return h, havePID
}

// writeHolder records this process as the current lock holder.
func (l *writeLocker) writeHolder() {
	if l.lockFile == nil {
		return
	}
	h := holderInfo{pid: os.Getpid(), epoch: atomic.AddUint64(&lockEpoch, 1), at: time.Now().UTC()}
	l.lockFile.Truncate(0)
	l.lockFile.Seek(0, 0)
	l.lockFile.WriteString(h.encode())
	l.lockFile.Sync()
}

// readHolder renders the current holder record for a timeout diagnostic,
// flagging a holder PID that is no longer running (a lock file left behind
// by a process that crashed before it could release).
func (l *writeLocker) readHolder() string {
	data, err := os.ReadFile(l.lockPath)
	if err != nil {
		return "unknown"
	}

	h, ok := decodeHolderInfo(string(data))
	if !ok {
		return "unknown"
	}

	status := ""
	if !isProcessAlive(h.pid) {
		status = " (STALE - that process is no longer running)"
	}
	return fmt.Sprintf("pid %d, held since %s, generation %d%s", h.pid, h.at.Format(time.RFC3339), h.epoch, status)
}

// tryLock and unlock are implemented in platform-specific files:
// - lock_unix.go for Unix systems (flock)
// - lock_windows.go for Windows (LockFileEx)
