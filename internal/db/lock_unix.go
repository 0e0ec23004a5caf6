//go:build unix

package db

import (
	"os"
	"syscall"
)

// tryLock makes a single non-blocking attempt at the exclusive flock
// acquire loops over in writeLocker.acquire. It returns immediately so a
// contending `tasksync create`/`update`/`delete` and a resident `tasksync
// watch` cycle both back off and retry rather than blocking the kernel
// call itself.
func (l *writeLocker) tryLock() error {
	return syscall.Flock(int(l.lockFile.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
}

func (l *writeLocker) unlock() {
	if l.lockFile != nil {
		syscall.Flock(int(l.lockFile.Fd()), syscall.LOCK_UN)
	}
}

// isProcessAlive reports whether pid still refers to a running process.
// FindProcess always succeeds on Unix, so the liveness check is the
// zero-signal send: it fails with ESRCH once the process is gone, which is
// how a timed-out waiter tells a merely slow holder from one that crashed
// mid-write and left the lock file behind.
func isProcessAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
