package runlock

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gofrs/flock"

	"hiksync/internal/logging"
)

// Lock is a single-run guard over one lock file path.
type Lock struct {
	path   string
	logger *slog.Logger
	lock   *flock.Flock

	// onLocked runs between TryLock and the inode check.
	onLocked func()
}

const acquireAttempts = 2

// New prepares a lock for path without touching the filesystem.
func New(path string, logger *slog.Logger) *Lock {
	return &Lock{path: path, logger: logging.NewComponentLogger(logger, "runlock")}
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}

// Acquire attempts the exclusive lock without blocking. It returns false with
// a nil error when another process holds the lock, and false with an error
// when the lock file cannot be opened or locked. Either way the caller must
// not proceed.
func (l *Lock) Acquire() (bool, error) {
	if l.lock != nil && l.lock.Locked() {
		return true, nil
	}
	if dir := filepath.Dir(l.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("create lock directory: %w", err)
		}
	}

	for attempt := 0; attempt < acquireAttempts; attempt++ {
		fl := flock.New(l.path, flock.SetFlag(os.O_CREATE|os.O_RDWR), flock.SetPermissions(0o644))
		ok, err := fl.TryLock()
		if err != nil {
			_ = fl.Close()
			return false, fmt.Errorf("acquire lock %s: %w", l.path, err)
		}
		if !ok {
			_ = fl.Close()
			return false, nil
		}
		if l.onLocked != nil {
			l.onLocked()
		}

		// A releasing holder unlinks the file; a lock taken on the old inode
		// guards nothing.
		if !holdsPath(fl, l.path) {
			_ = fl.Close()
			l.logger.Debug("lock file replaced while locking; retrying", logging.String("path", l.path))
			continue
		}

		if err := writePID(l.path); err != nil {
			l.logger.Debug("could not record pid in lock file", logging.String("path", l.path), logging.Error(err))
		}
		l.lock = fl
		return true, nil
	}
	return false, nil
}

func holdsPath(fl *flock.Flock, path string) bool {
	held, err := fl.Stat()
	if err != nil {
		return false
	}
	current, err := os.Stat(path)
	if err != nil {
		return false
	}
	return os.SameFile(held, current)
}

// Release unlocks, closes the handle and removes the lock file. Removal
// failures are logged, never returned: a stale file without a held lock does
// not block the next Acquire.
func (l *Lock) Release() {
	if l.lock == nil {
		return
	}
	if err := l.lock.Unlock(); err != nil {
		logging.WarnWithContext(l.logger, "failed to release run lock", "run_lock_release_failed",
			logging.String("path", l.path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the lock is released when this process exits"),
			logging.String(logging.FieldImpact, "next run may report already running until exit"),
		)
	}
	l.lock = nil
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		l.logger.Info("lock file left on disk",
			logging.String("path", l.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "run_lock_remove_failed"),
		)
	}
}

func writePID(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	if err := f.Truncate(0); err != nil {
		_ = f.Close()
		return err
	}
	if _, err := f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
