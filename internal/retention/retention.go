// Package retention prunes synced output older than a configured age. It is
// independent of sync statistics: a file's modification time alone decides.
package retention

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"hiksync/internal/cameras"
	"hiksync/internal/logging"
	"hiksync/internal/segments"
)

// Result summarizes one sweep.
type Result struct {
	Deleted    int
	FreedBytes int64
	// Errors counts files or cameras that could not be processed.
	Errors int
}

// Sweeper deletes old files from camera destination trees.
type Sweeper struct {
	logger *slog.Logger
	now    func() time.Time
}

// Option customizes a Sweeper.
type Option func(*Sweeper)

// WithClock overrides the time source used to compute the cutoff.
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Sweeper.
func New(logger *slog.Logger, opts ...Option) *Sweeper {
	s := &Sweeper{logger: logging.NewComponentLogger(logger, "retention"), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sweep removes regular files in every camera's video and images directories
// whose modification time is strictly before now minus days. A days value of
// zero or less disables the sweep.
func (s *Sweeper) Sweep(list []cameras.Camera, days int) Result {
	var result Result
	if days <= 0 {
		s.logger.Info("retention policy disabled (retention_days <= 0)", logging.String(logging.FieldEventType, "retention_disabled"))
		return result
	}
	cutoff := s.now().Add(-time.Duration(days) * 24 * time.Hour)

	for _, cam := range list {
		camResult, err := s.sweepCamera(cam, cutoff)
		result.Deleted += camResult.Deleted
		result.FreedBytes += camResult.FreedBytes
		result.Errors += camResult.Errors
		if err != nil {
			result.Errors++
			logging.ErrorWithContext(s.logger, "retention sweep failed for camera", "retention_camera_failed",
				logging.String(logging.FieldCamera, cam.Tag),
				logging.String("path", cam.DestinationPath),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check that the output volume is mounted and readable"),
			)
		}
	}

	s.logger.Info("retention sweep complete",
		logging.String(logging.FieldEventType, "retention_complete"),
		logging.Int("days", days),
		logging.Int("deleted", result.Deleted),
		logging.String("freed", humanize.Bytes(uint64(result.FreedBytes))),
		logging.Int("errors", result.Errors),
	)
	return result
}

func (s *Sweeper) sweepCamera(cam cameras.Camera, cutoff time.Time) (result Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sweep panicked: %v", r)
		}
	}()
	if _, err := os.Stat(cam.DestinationPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return result, nil
		}
		return result, err
	}

	for _, kind := range segments.Kinds {
		dir := filepath.Join(cam.DestinationPath, kind.Dir())
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return result, fmt.Errorf("read %s: %w", dir, err)
		}
		for _, entry := range entries {
			if !entry.Type().IsRegular() {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			info, err := entry.Info()
			if err != nil {
				result.Errors++
				s.fileWarning(cam, path, err)
				continue
			}
			if !info.ModTime().Before(cutoff) {
				continue
			}
			if err := os.Remove(path); err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					continue
				}
				result.Errors++
				s.fileWarning(cam, path, err)
				continue
			}
			result.Deleted++
			result.FreedBytes += info.Size()
			s.logger.Info("deleted old file",
				logging.String(logging.FieldEventType, "retention_deleted"),
				logging.String(logging.FieldCamera, cam.Tag),
				logging.String(logging.FieldFilename, entry.Name()),
				logging.String("size", humanize.Bytes(uint64(info.Size()))),
			)
		}
	}
	return result, nil
}

func (s *Sweeper) fileWarning(cam cameras.Camera, path string, err error) {
	logging.WarnWithContext(s.logger, "could not delete old file", "retention_file_failed",
		logging.String(logging.FieldCamera, cam.Tag),
		logging.String("path", path),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check output directory permissions"),
		logging.String(logging.FieldImpact, "file kept until the next sweep"),
	)
}
