package mediasync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hiksync/internal/cameras"
	"hiksync/internal/fileutil"
	"hiksync/internal/logging"
	"hiksync/internal/naming"
	"hiksync/internal/segments"
	"hiksync/internal/staging"
)

var (
	// ErrEmptyOutput marks an extraction that reported success without
	// producing a non-empty file.
	ErrEmptyOutput = errors.New("extraction produced no output")
	// ErrTimedOut marks an extraction abandoned after the configured bound.
	ErrTimedOut = errors.New("extraction timed out")
)

// Options are the sync knobs taken from configuration.
type Options struct {
	CacheDir   string
	SyncImages bool
	// VideoWindow and ImageWindow restrict sync to recent segments; zero
	// means every listed segment.
	VideoWindow time.Duration
	ImageWindow time.Duration
	// ExtractionTimeout bounds one adapter extraction; zero means unbounded.
	ExtractionTimeout time.Duration
	UseFastExtraction bool
	// Location renders canonical timestamps and interprets naive ones.
	// Defaults to time.Local.
	Location *time.Location
}

// Option customizes an Engine beyond configuration, primarily for tests.
type Option func(*Engine)

// WithClock overrides the time source used for recency windows.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithSameDevice overrides the filesystem co-location check.
func WithSameDevice(fn func(a, b string) (bool, error)) Option {
	return func(e *Engine) {
		if fn != nil {
			e.sameDevice = fn
		}
	}
}

// WithChunkSize overrides the fast-path copy buffer size.
func WithChunkSize(size int) Option {
	return func(e *Engine) {
		if size > 0 {
			e.chunkSize = size
		}
	}
}

// Engine syncs cameras one at a time. It is not safe for concurrent use.
type Engine struct {
	source     segments.Source
	opts       Options
	logger     *slog.Logger
	now        func() time.Time
	sameDevice func(a, b string) (bool, error)
	chunkSize  int

	// beforeWait runs once the extraction goroutine is started.
	beforeWait func()
}

// New constructs an Engine over source.
func New(source segments.Source, opts Options, logger *slog.Logger, options ...Option) *Engine {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	e := &Engine{
		source:     source,
		opts:       opts,
		logger:     logging.NewComponentLogger(logger, "mediasync"),
		now:        time.Now,
		sameDevice: fileutil.SameDevice,
		chunkSize:  fileutil.DefaultChunkSize,
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

// CleanCache removes extractor scratch files abandoned by earlier passes.
func (e *Engine) CleanCache() {
	staging.CleanCache(e.opts.CacheDir, 0, e.logger)
}

// SyncCamera materializes missing segments for cam and returns per-kind
// tallies. It never fails as a whole: problems are logged and counted.
// When ctx is cancelled the segment in flight finishes and the rest are
// left for the next pass.
func (e *Engine) SyncCamera(ctx context.Context, cam cameras.Camera) CameraStats {
	logger := logging.WithContext(ctx, e.logger).With(logging.String(logging.FieldCamera, cam.Tag))
	var stats CameraStats

	if _, err := os.Stat(cam.SourcePath); err != nil {
		logging.WarnWithContext(logger, "camera source directory unavailable; skipping camera", "camera_source_missing",
			logging.String("source", cam.SourcePath),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the NAS mount and camera directory name"),
			logging.String(logging.FieldImpact, "no segments synced for this camera"),
		)
		return stats
	}

	stats.Videos = e.syncKind(ctx, cam, segments.Video, logger)
	switch {
	case ctx.Err() != nil:
		logger.Info("sync interrupted; image sync deferred", logging.String(logging.FieldEventType, "sync_interrupted"))
	case e.opts.SyncImages:
		stats.Images = e.syncKind(ctx, cam, segments.Image, logger)
	default:
		logger.Info("skipping image sync (disabled)", logging.String(logging.FieldEventType, "image_sync_disabled"))
	}

	logger.Info("camera synced",
		logging.String(logging.FieldEventType, "camera_synced"),
		logging.Int("videos_new", stats.Videos.New),
		logging.Int("videos_failed", stats.Videos.Failed),
		logging.Int("images_new", stats.Images.New),
		logging.Int("images_failed", stats.Images.Failed),
	)
	return stats
}

func (e *Engine) syncKind(ctx context.Context, cam cameras.Camera, kind segments.Kind, logger *slog.Logger) KindStats {
	logger = logger.With(logging.String(logging.FieldKind, kind.String()))
	var stats KindStats

	destDir := filepath.Join(cam.DestinationPath, kind.Dir())
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		logging.ErrorWithContext(logger, "cannot create destination directory", "destination_unavailable",
			logging.String("path", destDir),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check output_dir permissions and free space"),
		)
		return stats
	}
	staging.CleanPartials(destDir, logger)

	list, err := e.list(ctx, cam, kind)
	if err != nil {
		logging.WarnWithContext(logger, "segment listing failed; treating as empty", "segment_list_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the extractor binary and the camera storage"),
			logging.String(logging.FieldImpact, "no "+kind.String()+" segments synced for this camera"),
		)
		return stats
	}
	stats.Total = len(list)

	present, err := existingNames(destDir)
	if err != nil {
		logging.WarnWithContext(logger, "cannot list destination; skipping kind", "destination_list_failed",
			logging.String("path", destDir),
			logging.Error(err),
			logging.String(logging.FieldImpact, "existing files could not be checked, nothing extracted"),
		)
		return stats
	}

	var cutoff time.Time
	if window := e.window(kind); window > 0 {
		cutoff = e.now().Add(-window)
	}
	fast := e.fastEligible(cam, kind, destDir, logger)

	for index, seg := range list {
		if ctx.Err() != nil {
			logger.Info("sync interrupted; remaining segments deferred",
				logging.String(logging.FieldEventType, "sync_interrupted"),
				logging.Int("remaining", len(list)-index),
			)
			break
		}
		segLogger := logger.With(logging.Int(logging.FieldSegmentIndex, index))

		start, err := seg.Start(e.opts.Location)
		if err != nil {
			stats.MissingTimestamp++
			segLogger.Info("could not parse segment time; skipping",
				logging.String(logging.FieldEventType, "segment_time_invalid"),
				logging.String("start_time", seg.StartText),
				logging.Error(err),
			)
			continue
		}
		if !cutoff.IsZero() && start.Before(cutoff) {
			stats.SkippedOld++
			continue
		}

		name := naming.Canonical(start, cam.Tag, kind.Ext())
		if _, ok := present[name]; ok {
			stats.Existing++
			continue
		}

		segLogger = segLogger.With(logging.String(logging.FieldFilename, name))
		committed, err := e.materialize(ctx, cam, kind, index, seg, destDir, name, fast, segLogger)
		if err != nil {
			stats.Failed++
			event := "segment_failed"
			if errors.Is(err, ErrTimedOut) {
				stats.TimedOut++
				event = "segment_timed_out"
			}
			logging.WarnWithContext(segLogger, "segment extraction failed", event,
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check extractor output for this segment"),
				logging.String(logging.FieldImpact, "segment retried on the next pass"),
			)
			continue
		}
		present[name] = struct{}{}
		present[committed] = struct{}{}
		stats.New++
		segLogger.Debug("segment extracted", logging.String("committed", committed))
	}

	logger.Info("kind synced",
		logging.String(logging.FieldEventType, "kind_synced"),
		logging.Int("total", stats.Total),
		logging.Int("new", stats.New),
		logging.Int("existing", stats.Existing),
		logging.Int("failed", stats.Failed),
		logging.Int("timed_out", stats.TimedOut),
		logging.Int("skipped_old", stats.SkippedOld),
		logging.Int("missing_timestamp", stats.MissingTimestamp),
	)
	return stats
}

func (e *Engine) window(kind segments.Kind) time.Duration {
	if kind == segments.Image {
		return e.opts.ImageWindow
	}
	return e.opts.VideoWindow
}

func (e *Engine) fastEligible(cam cameras.Camera, kind segments.Kind, destDir string, logger *slog.Logger) bool {
	if kind != segments.Video || !e.opts.UseFastExtraction {
		return false
	}
	same, err := e.sameDevice(cam.SourcePath, destDir)
	if err != nil {
		logger.Debug("same-device check failed; using extractor only", logging.Error(err))
		return false
	}
	return same
}

// list calls the adapter and converts a panic into an error.
func (e *Engine) list(ctx context.Context, cam cameras.Camera, kind segments.Kind) (list []segments.Segment, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("segment listing panicked: %v", r)
		}
	}()
	return e.source.ListSegments(ctx, cam.SourcePath, kind)
}

// existingNames returns the non-empty regular files already in dir.
func existingNames(dir string) (map[string]struct{}, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	present := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || strings.HasPrefix(name, ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.Size() == 0 {
			continue
		}
		present[name] = struct{}{}
	}
	return present, nil
}
