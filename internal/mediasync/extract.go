package mediasync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"hiksync/internal/cameras"
	"hiksync/internal/fileutil"
	"hiksync/internal/logging"
	"hiksync/internal/naming"
	"hiksync/internal/segments"
	"hiksync/internal/staging"
)

// materialize produces name inside destDir and returns the committed file
// name, which differs from name only when an unrelated non-empty file
// appeared there during the pass.
func (e *Engine) materialize(ctx context.Context, cam cameras.Camera, kind segments.Kind, index int, seg segments.Segment, destDir, name string, fast bool, logger *slog.Logger) (committed string, err error) {
	partial := filepath.Join(destDir, staging.PartialName(name))
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("segment handling panicked: %v", r)
		}
		if err != nil {
			_ = os.Remove(partial)
		}
	}()

	produced := false
	if fast {
		if ferr := e.fastCopy(cam, seg, partial); ferr != nil {
			logger.Debug("fast path unavailable; falling back to extractor", logging.Error(ferr))
			_ = os.Remove(partial)
		} else {
			produced = true
		}
	}
	if !produced {
		if err := e.extractToPartial(ctx, cam, kind, index, name, partial); err != nil {
			return "", err
		}
	}

	if !fileutil.NonEmpty(partial) {
		return "", ErrEmptyOutput
	}
	return e.commit(destDir, name, partial, logger)
}

func (e *Engine) fastCopy(cam cameras.Camera, seg segments.Segment, partial string) error {
	offset, length, ok := seg.ByteRange()
	if !ok {
		return errors.New("segment has no byte range")
	}
	src := seg.FilePath
	if !filepath.IsAbs(src) {
		src = filepath.Join(cam.SourcePath, src)
	}
	return fileutil.CopyRange(src, offset, length, partial, e.chunkSize)
}

func (e *Engine) extractToPartial(ctx context.Context, cam cameras.Camera, kind segments.Kind, index int, name, partial string) error {
	cacheName := staging.CacheName(name)
	out, err := e.bounded(ctx, func(opCtx context.Context) (string, error) {
		return e.source.Extract(opCtx, cam.SourcePath, kind, index, e.opts.CacheDir, cacheName)
	})
	if err != nil {
		return err
	}
	if out == "" {
		out = filepath.Join(e.opts.CacheDir, cacheName)
	}
	if !fileutil.NonEmpty(out) {
		_ = os.Remove(out)
		return ErrEmptyOutput
	}
	if err := fileutil.MoveFile(out, partial); err != nil {
		_ = os.Remove(out)
		return fmt.Errorf("stage output: %w", err)
	}
	return nil
}

// bounded runs fn in its own goroutine so a stuck extractor can be abandoned
// after the configured timeout. Parent cancellation is detached: an
// interrupted pass lets the segment in flight finish.
func (e *Engine) bounded(ctx context.Context, fn func(context.Context) (string, error)) (string, error) {
	opCtx := context.WithoutCancel(ctx)
	var cancel context.CancelFunc
	if e.opts.ExtractionTimeout > 0 {
		opCtx, cancel = context.WithTimeout(opCtx, e.opts.ExtractionTimeout)
	} else {
		opCtx, cancel = context.WithCancel(opCtx)
	}
	defer cancel()

	type result struct {
		path string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("extractor panicked: %v", r)}
			}
		}()
		path, err := fn(opCtx)
		done <- result{path: path, err: err}
	}()

	if e.beforeWait != nil {
		e.beforeWait()
	}

	finish := func(res result) (string, error) {
		if res.err != nil && errors.Is(opCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s: %v", ErrTimedOut, e.opts.ExtractionTimeout, res.err)
		}
		return res.path, res.err
	}

	select {
	case res := <-done:
		return finish(res)
	case <-opCtx.Done():
		// An extraction that finished as the deadline fired still counts.
		select {
		case res := <-done:
			return finish(res)
		default:
		}
		return "", fmt.Errorf("%w after %s", ErrTimedOut, e.opts.ExtractionTimeout)
	}
}

// commit renames partial into place. A zero-byte file under the canonical
// name is replaced; a non-empty one is never overwritten.
func (e *Engine) commit(destDir, name, partial string, logger *slog.Logger) (string, error) {
	final := name
	target := filepath.Join(destDir, final)
	if info, err := os.Lstat(target); err == nil {
		if info.Mode().IsRegular() && info.Size() == 0 {
			if err := os.Remove(target); err != nil {
				return "", fmt.Errorf("replace empty file: %w", err)
			}
		} else {
			final = naming.ResolveCollision(destDir, name, logger)
			logging.WarnWithContext(logger, "destination name already taken; writing suffixed copy", "filename_collision",
				logging.String("committed", final),
				logging.String(logging.FieldImpact, "existing file kept untouched"),
			)
			target = filepath.Join(destDir, final)
		}
	}
	if err := os.Rename(partial, target); err != nil {
		return "", fmt.Errorf("commit output: %w", err)
	}
	return final, nil
}
