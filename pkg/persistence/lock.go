package persistence

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"
)

// ErrAlreadyLocked is returned when Lock or TryLock is called on a FileLock
// this process instance already holds.
var ErrAlreadyLocked = errors.New("persistence: lock already held by this instance")

// lockSuffix names the companion file flock() advises on. It never holds
// data of its own — just a filesystem handle kin processes can contend for.
const lockSuffix = ".lock"

// FileLock advises an OS-level exclusive lock on a companion ".lock" file
// next to a store path, so two processes (or, via TryLock, two goroutines
// racing to claim a table) don't interleave writes to it. The lock state
// itself (held or not) is guarded by a mutex since callers may probe it
// from more than one goroutine even though only one should ever succeed.
type FileLock struct {
	mu     sync.Mutex
	handle *os.File
	path   string
	held   bool
}

// NewFileLock opens (creating if needed) the lock file that guards dataPath,
// without acquiring it.
func NewFileLock(dataPath string) (*FileLock, error) {
	path := dataPath + lockSuffix
	log := logrus.WithFields(logrus.Fields{"component": "filelock", "dataPath": dataPath, "lockPath": path})
	log.Debug("opening lock file")

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	handle, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	return &FileLock{handle: handle, path: path}, nil
}

// Path returns the lock file's own path (dataPath + ".lock").
func (fl *FileLock) Path() string { return fl.path }

// Lock blocks until this instance holds an exclusive advisory lock.
func (fl *FileLock) Lock() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.held {
		return ErrAlreadyLocked
	}
	if err := syscall.Flock(int(fl.handle.Fd()), syscall.LOCK_EX); err != nil {
		return fmt.Errorf("flock LOCK_EX on %s: %w", fl.path, err)
	}
	fl.held = true
	return nil
}

// TryLock attempts to acquire the lock without blocking. It returns
// (false, nil) when another holder has it, distinct from an actual error.
func (fl *FileLock) TryLock() (bool, error) {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.held {
		return false, ErrAlreadyLocked
	}
	if err := syscall.Flock(int(fl.handle.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		if errors.Is(err, syscall.EWOULDBLOCK) {
			return false, nil
		}
		return false, fmt.Errorf("flock LOCK_EX|LOCK_NB on %s: %w", fl.path, err)
	}
	fl.held = true
	return true, nil
}

// Unlock releases the lock if held; calling it when not held is a no-op.
func (fl *FileLock) Unlock() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if !fl.held {
		return nil
	}
	if err := syscall.Flock(int(fl.handle.Fd()), syscall.LOCK_UN); err != nil {
		return fmt.Errorf("flock LOCK_UN on %s: %w", fl.path, err)
	}
	fl.held = false
	return nil
}

// Close unlocks (if held) and closes the underlying file handle. Safe to
// call more than once.
func (fl *FileLock) Close() error {
	if err := fl.Unlock(); err != nil {
		return err
	}
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.handle == nil {
		return nil
	}
	err := fl.handle.Close()
	fl.handle = nil
	if err != nil {
		return fmt.Errorf("closing lock file %s: %w", fl.path, err)
	}
	return nil
}
