// Package lock guards a local store against concurrent writers in other
// processes with an advisory lock file.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrHeld is returned when another process holds the lock.
var ErrHeld = errors.New("store is locked by another process")

// File is an acquired lock file. The lock is released by Release or when the
// process exits.
type File struct {
	path string
	file *os.File
}

// Acquire takes the exclusive lock at path without blocking and records the
// current PID in the file.
func Acquire(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file %s: %w", path, err)
	}

	if err := lockFile(f); err != nil {
		f.Close()

		if errors.Is(err, ErrHeld) {
			if pid := holderPID(path); pid > 0 {
				return nil, fmt.Errorf("%w (pid %d, %s)", ErrHeld, pid, path)
			}
			return nil, fmt.Errorf("%w (%s)", ErrHeld, path)
		}
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}

	// The PID is informational only
	if err := f.Truncate(0); err == nil {
		_, _ = f.WriteAt([]byte(strconv.Itoa(os.Getpid())), 0)
	}

	return &File{path: path, file: f}, nil
}

// Release unlocks and closes the lock file. Calling it more than once is a no-op.
func (l *File) Release() error {
	if l == nil || l.file == nil {
		return nil
	}

	err := unlockFile(l.file)
	if closeErr := l.file.Close(); err == nil {
		err = closeErr
	}
	l.file = nil

	if err != nil {
		return fmt.Errorf("failed to release %s: %w", l.path, err)
	}
	return nil
}

// Path returns the lock file location.
func (l *File) Path() string {
	return l.path
}

func holderPID(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}
