package syncrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"hiksync/internal/cameras"
	"hiksync/internal/logging"
	"hiksync/internal/mediasync"
	"hiksync/internal/retention"
	"hiksync/internal/segments"
)

// Locker guards a run against concurrent runners.
type Locker interface {
	Acquire() (bool, error)
	Release()
}

// CameraSyncer syncs one camera's media.
type CameraSyncer interface {
	SyncCamera(ctx context.Context, cam cameras.Camera) mediasync.CameraStats
	CleanCache()
}

// Sweeper prunes old output.
type Sweeper interface {
	Sweep(list []cameras.Camera, days int) retention.Result
}

// Reporter receives the result of every run that held the lock.
type Reporter interface {
	Report(Result) error
}

// CameraResolver supplies the camera list for one run.
type CameraResolver func() ([]cameras.Camera, error)

// Deps bundles the collaborators of an Orchestrator.
type Deps struct {
	Lock          Locker
	Syncer        CameraSyncer
	Sweeper       Sweeper
	Cameras       CameraResolver
	RetentionDays int
	Reporters     []Reporter
	Logger        *slog.Logger
	Now           func() time.Time
}

// Orchestrator runs sync passes.
type Orchestrator struct {
	deps   Deps
	logger *slog.Logger
	now    func() time.Time
}

// New constructs an Orchestrator. Lock, Syncer, Sweeper and Cameras are required.
func New(deps Deps) (*Orchestrator, error) {
	switch {
	case deps.Lock == nil:
		return nil, errors.New("syncrun: lock is required")
	case deps.Syncer == nil:
		return nil, errors.New("syncrun: syncer is required")
	case deps.Sweeper == nil:
		return nil, errors.New("syncrun: sweeper is required")
	case deps.Cameras == nil:
		return nil, errors.New("syncrun: camera resolver is required")
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		deps:   deps,
		logger: logging.NewComponentLogger(deps.Logger, "run"),
		now:    now,
	}, nil
}

// Run executes one pass. A cancelled ctx lets the current segment finish,
// skips the remaining cameras and the retention sweep and yields
// StatusInterrupted.
func (o *Orchestrator) Run(ctx context.Context) Result {
	runID, ok := logging.RunIDFromContext(ctx)
	if !ok {
		runID = uuid.NewString()
		ctx = logging.WithRunID(ctx, runID)
	}
	logger := logging.WithContext(ctx, o.logger)
	result := Result{RunID: runID, Started: o.now()}

	acquired, err := o.deps.Lock.Acquire()
	if err != nil {
		// An unopenable lock file refuses the run the same way contention does.
		result.Status = StatusAlreadyRunning
		result.Err = fmt.Errorf("acquire run lock: %w", err)
		result.Finished = o.now()
		logging.WarnWithContext(logger, "could not acquire run lock, exiting", "lock_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check lock_file path permissions"),
			logging.String(logging.FieldImpact, "this pass was skipped"),
		)
		return result
	}
	if !acquired {
		result.Status = StatusAlreadyRunning
		result.Finished = o.now()
		logger.Info("another sync instance is already running, exiting",
			logging.String(logging.FieldEventType, "already_running"),
		)
		return result
	}
	defer o.deps.Lock.Release()

	logger.Info("sync run started", logging.String(logging.FieldEventType, "run_started"))
	o.execute(ctx, &result, logger)
	result.Finished = o.now()
	o.logSummary(result, logger)
	o.report(result, logger)
	return result
}

func (o *Orchestrator) execute(ctx context.Context, result *Result, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			result.Status = StatusFailed
			result.Err = fmt.Errorf("run panicked: %v", r)
			logging.ErrorWithContext(logger, "unexpected failure during sync run", "run_panic",
				logging.Any("panic", r),
			)
		}
	}()

	list, err := o.deps.Cameras()
	if err != nil {
		result.Status = StatusFailed
		result.Err = fmt.Errorf("resolve cameras: %w", err)
		logging.ErrorWithContext(logger, "failed to resolve cameras", "cameras_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check input_dir and the camera configuration"),
		)
		return
	}
	if len(list) == 0 {
		result.Status = StatusCompleted
		logging.WarnWithContext(logger, "no cameras found", "no_cameras",
			logging.String(logging.FieldErrorHint, "check that input_dir contains one directory per camera"),
			logging.String(logging.FieldImpact, "nothing synced"),
		)
		return
	}
	logger.Info("cameras resolved", logging.Int("count", len(list)))

	if err := prepareDestinations(list); err != nil {
		result.Status = StatusFailed
		result.Err = err
		logging.ErrorWithContext(logger, "failed to create destination directories", "destination_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check output_dir permissions and free space"),
		)
		return
	}

	o.deps.Syncer.CleanCache()

	for _, cam := range list {
		if ctx.Err() != nil {
			result.Status = StatusInterrupted
			logger.Info("sync interrupted, skipping remaining cameras",
				logging.String(logging.FieldEventType, "run_interrupted"),
				logging.String(logging.FieldCamera, cam.Tag),
			)
			return
		}
		result.Cameras = append(result.Cameras, o.syncCamera(ctx, cam, logger))
	}
	if ctx.Err() != nil {
		result.Status = StatusInterrupted
		logger.Info("sync interrupted, skipping retention sweep",
			logging.String(logging.FieldEventType, "run_interrupted"),
		)
		return
	}

	result.Retention = o.deps.Sweeper.Sweep(list, o.deps.RetentionDays)
	result.Status = StatusCompleted
}

func (o *Orchestrator) syncCamera(ctx context.Context, cam cameras.Camera, logger *slog.Logger) (res CameraResult) {
	res.Camera = cam
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("camera sync panicked: %v", r)
			logging.ErrorWithContext(logger, "camera sync failed", "camera_failed",
				logging.String(logging.FieldCamera, cam.Tag),
				logging.Any("panic", r),
				logging.String(logging.FieldImpact, "camera skipped for this run"),
			)
		}
	}()
	res.Stats = o.deps.Syncer.SyncCamera(logging.WithCamera(ctx, cam.Tag), cam)
	return res
}

func prepareDestinations(list []cameras.Camera) error {
	for _, cam := range list {
		for _, kind := range segments.Kinds {
			dir := filepath.Join(cam.DestinationPath, kind.Dir())
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create %s: %w", dir, err)
			}
		}
	}
	return nil
}

func (o *Orchestrator) report(result Result, logger *slog.Logger) {
	for _, reporter := range o.deps.Reporters {
		if reporter == nil {
			continue
		}
		if err := reporter.Report(result); err != nil {
			logging.WarnWithContext(logger, "failed to report run result", "report_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "run metrics not updated"),
			)
		}
	}
}

func (o *Orchestrator) logSummary(result Result, logger *slog.Logger) {
	for _, cam := range result.Cameras {
		attrs := []logging.Attr{
			logging.String(logging.FieldEventType, "camera_summary"),
			logging.String(logging.FieldCamera, cam.Camera.Tag),
			logging.Int("videos_new", cam.Stats.Videos.New),
			logging.Int("videos_existing", cam.Stats.Videos.Existing),
			logging.Int("videos_failed", cam.Stats.Videos.Failed),
			logging.Int("images_new", cam.Stats.Images.New),
			logging.Int("images_existing", cam.Stats.Images.Existing),
			logging.Int("images_failed", cam.Stats.Images.Failed),
		}
		if cam.Err != nil {
			attrs = append(attrs, logging.Error(cam.Err))
		}
		logger.Info("camera summary", logging.Args(attrs...)...)
	}

	totals := result.Totals()
	combined := totals.Combined()
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "run_summary"),
		logging.String("status", string(result.Status)),
		logging.Int("cameras", len(result.Cameras)),
		logging.Int("segments", combined.Total),
		logging.Int("new_videos", totals.Videos.New),
		logging.Int("new_images", totals.Images.New),
		logging.Int("existing", combined.Existing),
		logging.Int("failed", combined.Failed),
		logging.Int("timed_out", combined.TimedOut),
		logging.Int("retention_deleted", result.Retention.Deleted),
		logging.String("retention_freed", humanize.Bytes(uint64(result.Retention.FreedBytes))),
		logging.Duration("duration", result.Duration()),
	}
	if pct, ok := result.Efficiency(); ok {
		attrs = append(attrs, logging.String("efficiency", fmt.Sprintf("%.1f%%", pct)))
	}
	if result.Err != nil {
		attrs = append(attrs, logging.Error(result.Err))
	}
	if result.Status == StatusCompleted {
		logger.Info("sync run summary", logging.Args(attrs...)...)
		return
	}
	logger.Warn("sync run summary", logging.Args(attrs...)...)
}
