//go:build windows

package db

import (
	"golang.org/x/sys/windows"
)

// tryLock makes a single non-blocking attempt at the exclusive
// LockFileEx acquire loops over in writeLocker.acquire, locking the first
// byte of the file as the mutual-exclusion token between a `tasksync`
// write command and a resident `tasksync watch` cycle.
func (l *writeLocker) tryLock() error {
	ol := new(windows.Overlapped)
	return windows.LockFileEx(
		windows.Handle(l.lockFile.Fd()),
		windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY,
		0, // reserved
		1, // lock one byte
		0, // high bits of length
		ol,
	)
}

func (l *writeLocker) unlock() {
	if l.lockFile == nil {
		return
	}
	ol := new(windows.Overlapped)
	windows.UnlockFileEx(
		windows.Handle(l.lockFile.Fd()),
		0, // reserved
		1, // unlock one byte
		0, // high bits of length
		ol,
	)
}

// isProcessAlive reports whether pid still refers to a running process, by
// opening it with the minimum query rights and checking its exit code —
// how a timed-out waiter tells a merely slow holder from one that crashed
// mid-write and left the lock file behind.
func isProcessAlive(pid int) bool {
	handle, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return false
	}
	defer windows.CloseHandle(handle)

	var exitCode uint32
	if err := windows.GetExitCodeProcess(handle, &exitCode); err != nil {
		return false
	}

	const stillActive = 259
	return exitCode == stillActive
}
