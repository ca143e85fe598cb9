package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	cerrors "github.com/Aman-CERP/corpusrag/internal/errors"
)

// BuildLock is a cross-process exclusive lock held while an index is being
// rebuilt. The lock file is "<index>.lock".
type BuildLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewBuildLock returns the lock guarding the index at indexPath.
func NewBuildLock(indexPath string) *BuildLock {
	lockPath := indexPath + ".lock"
	return &BuildLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// Path returns the lock file path.
func (l *BuildLock) Path() string { return l.path }

// TryLock acquires the lock without blocking. When another build holds it,
// an ERR_204 error is returned.
func (l *BuildLock) TryLock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return cerrors.New(cerrors.ErrCodePermissionDenied, "cannot create lock directory", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire build lock: %w", err)
	}
	if !acquired {
		return cerrors.New(cerrors.ErrCodeIndexLocked,
			fmt.Sprintf("another build is writing this index (lock %s)", l.path), nil).
			WithSuggestion("Wait for the running 'corpusrag index' to finish")
	}

	l.locked = true
	return nil
}

// Unlock releases the lock. Calling it on an unlocked BuildLock is a no-op.
func (l *BuildLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("release build lock: %w", err)
	}
	return nil
}
