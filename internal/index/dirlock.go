package index

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// DirLock is an exclusive flock(2) lock guarding an index directory
// against a second writer process. The kernel releases it if the process dies.
type DirLock struct {
	path string
	file *os.File
}

// NewDirLock creates a lock backed by the file at path.
func NewDirLock(path string) *DirLock {
	return &DirLock{path: path}
}

// TryLock attempts to acquire the lock without blocking.
// It reports false, with a nil error, when another holder owns the lock.
func (l *DirLock) TryLock() (bool, error) {
	if l.file != nil {
		return true, nil
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return false, fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = file.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			return false, nil
		}
		return false, fmt.Errorf("flock failed: %w", err)
	}

	l.file = file
	return true, nil
}

// Unlock releases the lock. Unlocking an unheld lock is a no-op.
func (l *DirLock) Unlock() error {
	if l.file == nil {
		return nil
	}

	err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil

	if err != nil {
		return fmt.Errorf("flock unlock failed: %w", err)
	}
	if closeErr != nil {
		return fmt.Errorf("close failed: %w", closeErr)
	}
	return nil
}

// IsLocked reports whether this instance holds the lock.
func (l *DirLock) IsLocked() bool {
	return l.file != nil
}

// Path returns the lock file path.
func (l *DirLock) Path() string {
	return l.path
}
