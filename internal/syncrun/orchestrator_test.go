package syncrun_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"hiksync/internal/cameras"
	"hiksync/internal/logging"
	"hiksync/internal/mediasync"
	"hiksync/internal/retention"
	"hiksync/internal/runlock"
	"hiksync/internal/syncrun"
	"hiksync/internal/testsupport"
)

type fakeLock struct {
	acquired bool
	err      error
	attempts int
	releases int
}

func (l *fakeLock) Acquire() (bool, error) {
	l.attempts++
	if l.err != nil {
		return false, l.err
	}
	return l.acquired, nil
}

func (l *fakeLock) Release() { l.releases++ }

type fakeSyncer struct {
	stats      mediasync.CameraStats
	panicOn    string
	cancelOn   string
	cancel     context.CancelFunc
	synced     []string
	cacheClean int
}

func (s *fakeSyncer) SyncCamera(_ context.Context, cam cameras.Camera) mediasync.CameraStats {
	s.synced = append(s.synced, cam.Tag)
	if cam.Tag == s.panicOn {
		panic("decoder exploded")
	}
	if cam.Tag == s.cancelOn && s.cancel != nil {
		s.cancel()
	}
	return s.stats
}

func (s *fakeSyncer) CleanCache() { s.cacheClean++ }

type fakeSweeper struct {
	calls  int
	days   int
	result retention.Result
}

func (s *fakeSweeper) Sweep(_ []cameras.Camera, days int) retention.Result {
	s.calls++
	s.days = days
	return s.result
}

type fakeReporter struct {
	results []syncrun.Result
	err     error
}

func (r *fakeReporter) Report(result syncrun.Result) error {
	r.results = append(r.results, result)
	return r.err
}

func testCameras(t *testing.T, tags ...string) []cameras.Camera {
	t.Helper()
	base := t.TempDir()
	var list []cameras.Camera
	for _, tag := range tags {
		list = append(list, cameras.Camera{
			Name:            tag,
			SourcePath:      filepath.Join(base, "input", tag),
			DestinationPath: filepath.Join(base, "output", tag),
			Tag:             tag,
		})
	}
	return list
}

func newOrchestrator(t *testing.T, deps syncrun.Deps) *syncrun.Orchestrator {
	t.Helper()
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	orch, err := syncrun.New(deps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return orch
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := syncrun.New(syncrun.Deps{}); err == nil {
		t.Fatal("expected error for missing collaborators")
	}
}

func TestRunCompletes(t *testing.T) {
	list := testCameras(t, "garden", "driveway")
	lock := &fakeLock{acquired: true}
	stats := mediasync.CameraStats{
		Videos: mediasync.KindStats{Total: 4, Existing: 3, New: 1},
		Images: mediasync.KindStats{Total: 4, Existing: 1, New: 2, Failed: 1},
	}
	syncer := &fakeSyncer{stats: stats}
	sweeper := &fakeSweeper{result: retention.Result{Deleted: 2, FreedBytes: 2048}}
	reporter := &fakeReporter{}

	result := newOrchestrator(t, syncrun.Deps{
		Lock:          lock,
		Syncer:        syncer,
		Sweeper:       sweeper,
		Cameras:       func() ([]cameras.Camera, error) { return list, nil },
		RetentionDays: 30,
		Reporters:     []syncrun.Reporter{reporter},
	}).Run(context.Background())

	if result.Status != syncrun.StatusCompleted || result.Status.ExitCode() != 0 {
		t.Fatalf("unexpected status %s (err=%v)", result.Status, result.Err)
	}
	if lock.releases != 1 {
		t.Fatalf("expected lock released once, got %d", lock.releases)
	}
	if len(syncer.synced) != 2 || syncer.cacheClean != 1 {
		t.Fatalf("unexpected sync calls %v, cache cleans %d", syncer.synced, syncer.cacheClean)
	}
	if sweeper.calls != 1 || sweeper.days != 30 {
		t.Fatalf("unexpected sweep calls=%d days=%d", sweeper.calls, sweeper.days)
	}
	if result.Retention.Deleted != 2 {
		t.Fatalf("retention result not carried: %+v", result.Retention)
	}
	for _, cam := range list {
		for _, sub := range []string{"video", "images"} {
			if info, err := os.Stat(filepath.Join(cam.DestinationPath, sub)); err != nil || !info.IsDir() {
				t.Fatalf("expected %s/%s created: %v", cam.Tag, sub, err)
			}
		}
	}
	totals := result.Totals()
	if totals.Videos.New != 2 || totals.Images.Failed != 2 {
		t.Fatalf("unexpected totals %+v", totals)
	}
	pct, ok := result.Efficiency()
	if !ok || pct != 50 {
		t.Fatalf("expected 50%% efficiency, got %v (ok=%v)", pct, ok)
	}
	if len(reporter.results) != 1 || reporter.results[0].RunID != result.RunID || result.RunID == "" {
		t.Fatalf("reporter did not receive the run result: %+v", reporter.results)
	}
}

func TestRunUsesRunIDFromContext(t *testing.T) {
	ctx := logging.WithRunID(context.Background(), "run-42")
	result := newOrchestrator(t, syncrun.Deps{
		Lock:    &fakeLock{acquired: true},
		Syncer:  &fakeSyncer{},
		Sweeper: &fakeSweeper{},
		Cameras: func() ([]cameras.Camera, error) { return nil, nil },
	}).Run(ctx)
	if result.RunID != "run-42" {
		t.Fatalf("expected run id from context, got %q", result.RunID)
	}
}

func TestRunAlreadyRunning(t *testing.T) {
	lock := &fakeLock{acquired: false}
	syncer := &fakeSyncer{}
	reporter := &fakeReporter{}
	result := newOrchestrator(t, syncrun.Deps{
		Lock:      lock,
		Syncer:    syncer,
		Sweeper:   &fakeSweeper{},
		Cameras:   func() ([]cameras.Camera, error) { t.Fatal("cameras resolved without the lock"); return nil, nil },
		Reporters: []syncrun.Reporter{reporter},
	}).Run(context.Background())

	if result.Status != syncrun.StatusAlreadyRunning || result.Status.ExitCode() != 1 {
		t.Fatalf("unexpected status %s", result.Status)
	}
	if lock.releases != 0 {
		t.Fatal("a lock that was never acquired must not be released")
	}
	if len(syncer.synced) != 0 || len(reporter.results) != 0 {
		t.Fatal("contention must not sync or report")
	}
}

func TestRunLockError(t *testing.T) {
	result := newOrchestrator(t, syncrun.Deps{
		Lock:    &fakeLock{err: errors.New("permission denied")},
		Syncer:  &fakeSyncer{},
		Sweeper: &fakeSweeper{},
		Cameras: func() ([]cameras.Camera, error) { return nil, nil },
	}).Run(context.Background())
	if result.Status != syncrun.StatusAlreadyRunning || result.Err == nil {
		t.Fatalf("expected already_running status with error, got %s %v", result.Status, result.Err)
	}
	if result.Status.ExitCode() != 1 {
		t.Fatalf("exit code = %d, want 1", result.Status.ExitCode())
	}
}

func TestRunNoCameras(t *testing.T) {
	lock := &fakeLock{acquired: true}
	sweeper := &fakeSweeper{}
	result := newOrchestrator(t, syncrun.Deps{
		Lock:    lock,
		Syncer:  &fakeSyncer{},
		Sweeper: sweeper,
		Cameras: func() ([]cameras.Camera, error) { return nil, nil },
	}).Run(context.Background())
	if result.Status != syncrun.StatusCompleted {
		t.Fatalf("zero cameras must complete, got %s", result.Status)
	}
	if _, ok := result.Efficiency(); ok {
		t.Fatal("efficiency must be omitted without segments")
	}
	if lock.releases != 1 || sweeper.calls != 0 {
		t.Fatalf("releases=%d sweeps=%d", lock.releases, sweeper.calls)
	}
}

func TestRunCameraResolutionFailure(t *testing.T) {
	lock := &fakeLock{acquired: true}
	result := newOrchestrator(t, syncrun.Deps{
		Lock:    lock,
		Syncer:  &fakeSyncer{},
		Sweeper: &fakeSweeper{},
		Cameras: func() ([]cameras.Camera, error) { return nil, errors.New("input dir missing") },
	}).Run(context.Background())
	if result.Status != syncrun.StatusFailed || lock.releases != 1 {
		t.Fatalf("status=%s releases=%d", result.Status, lock.releases)
	}
}

func TestRunDestinationFailureIsFatal(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	lock := &fakeLock{acquired: true}
	syncer := &fakeSyncer{}
	result := newOrchestrator(t, syncrun.Deps{
		Lock:    lock,
		Syncer:  syncer,
		Sweeper: &fakeSweeper{},
		Cameras: func() ([]cameras.Camera, error) {
			return []cameras.Camera{{Name: "cam", Tag: "cam", DestinationPath: filepath.Join(blocker, "cam")}}, nil
		},
	}).Run(context.Background())
	if result.Status != syncrun.StatusFailed || result.Status.ExitCode() != 1 {
		t.Fatalf("expected failed, got %s", result.Status)
	}
	if len(syncer.synced) != 0 {
		t.Fatal("no camera may sync after a directory failure")
	}
	if lock.releases != 1 {
		t.Fatal("lock must be released after a fatal error")
	}
}

func TestRunIsolatesCameraPanic(t *testing.T) {
	list := testCameras(t, "a", "b", "c")
	lock := &fakeLock{acquired: true}
	syncer := &fakeSyncer{panicOn: "b", stats: mediasync.CameraStats{Videos: mediasync.KindStats{Total: 1, New: 1}}}
	sweeper := &fakeSweeper{}
	result := newOrchestrator(t, syncrun.Deps{
		Lock:    lock,
		Syncer:  syncer,
		Sweeper: sweeper,
		Cameras: func() ([]cameras.Camera, error) { return list, nil },
	}).Run(context.Background())

	if result.Status != syncrun.StatusCompleted {
		t.Fatalf("a camera panic must not fail the run, got %s", result.Status)
	}
	if len(result.Cameras) != 3 || result.Cameras[1].Err == nil {
		t.Fatalf("expected camera b to carry an error: %+v", result.Cameras)
	}
	if result.Totals().Videos.New != 2 {
		t.Fatalf("expected cameras a and c to count, got %+v", result.Totals())
	}
	if sweeper.calls != 1 {
		t.Fatal("retention must still run")
	}
}

func TestRunInterruptSkipsRemainingWork(t *testing.T) {
	list := testCameras(t, "a", "b", "c")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	lock := &fakeLock{acquired: true}
	syncer := &fakeSyncer{cancelOn: "a", cancel: cancel}
	sweeper := &fakeSweeper{}
	reporter := &fakeReporter{}
	result := newOrchestrator(t, syncrun.Deps{
		Lock:      lock,
		Syncer:    syncer,
		Sweeper:   sweeper,
		Cameras:   func() ([]cameras.Camera, error) { return list, nil },
		Reporters: []syncrun.Reporter{reporter},
	}).Run(ctx)

	if result.Status != syncrun.StatusInterrupted || result.Status.ExitCode() != 1 {
		t.Fatalf("expected interrupted, got %s", result.Status)
	}
	if len(syncer.synced) != 1 {
		t.Fatalf("expected only the first camera synced, got %v", syncer.synced)
	}
	if sweeper.calls != 0 {
		t.Fatal("retention must be skipped after an interrupt")
	}
	if lock.releases != 1 || len(reporter.results) != 1 {
		t.Fatalf("releases=%d reports=%d", lock.releases, len(reporter.results))
	}
}

func TestRunReporterFailureIsNotFatal(t *testing.T) {
	result := newOrchestrator(t, syncrun.Deps{
		Lock:      &fakeLock{acquired: true},
		Syncer:    &fakeSyncer{},
		Sweeper:   &fakeSweeper{},
		Cameras:   func() ([]cameras.Camera, error) { return testCameras(t, "a"), nil },
		Reporters: []syncrun.Reporter{&fakeReporter{err: errors.New("disk full")}},
	}).Run(context.Background())
	if result.Status != syncrun.StatusCompleted {
		t.Fatalf("reporter failure must not change status, got %s", result.Status)
	}
}

func TestDuration(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := syncrun.Result{Started: start, Finished: start.Add(90 * time.Second)}
	if r.Duration() != 90*time.Second {
		t.Fatalf("unexpected duration %s", r.Duration())
	}
	if (syncrun.Result{Started: start}).Duration() != 0 {
		t.Fatal("unfinished run must report zero duration")
	}
}

func TestRunEndToEndWithRealComponents(t *testing.T) {
	list := testCameras(t, "test1")
	if err := os.MkdirAll(list[0].SourcePath, 0o755); err != nil {
		t.Fatal(err)
	}
	lockPath := filepath.Join(t.TempDir(), "run.lock")
	lock := runlock.New(lockPath, logging.NewNop())
	src := testsupport.NewFakeSource("2024-01-01 10:00:00", "2024-01-01 10:01:00", "2024-01-01 10:02:00")
	engine := mediasync.New(src, mediasync.Options{
		CacheDir:   t.TempDir(),
		SyncImages: true,
		Location:   time.UTC,
	}, logging.NewNop())

	deps := syncrun.Deps{
		Lock:          lock,
		Syncer:        engine,
		Sweeper:       retention.New(logging.NewNop()),
		Cameras:       func() ([]cameras.Camera, error) { return list, nil },
		RetentionDays: 0,
	}
	first := newOrchestrator(t, deps).Run(context.Background())
	if first.Status != syncrun.StatusCompleted {
		t.Fatalf("first run: %s %v", first.Status, first.Err)
	}
	if got := first.Totals(); got.Videos.New != 3 || got.Images.New != 3 {
		t.Fatalf("first run totals %+v", got)
	}
	if _, err := os.Stat(lockPath); !os.IsNotExist(err) {
		t.Fatalf("lock file must be removed after the run: %v", err)
	}

	second := newOrchestrator(t, deps).Run(context.Background())
	if got := second.Totals(); got.Videos.Existing != 3 || got.Images.Existing != 3 || got.Combined().New != 0 {
		t.Fatalf("second run must be idempotent: %+v", got)
	}
	if pct, ok := second.Efficiency(); !ok || pct != 100 {
		t.Fatalf("expected 100%% efficiency, got %v", pct)
	}
}

func TestRunHeldLockYieldsAlreadyRunning(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "run.lock")
	holder := runlock.New(lockPath, logging.NewNop())
	ok, err := holder.Acquire()
	if err != nil || !ok {
		t.Fatalf("holder acquire: %v %v", ok, err)
	}
	defer holder.Release()

	result := newOrchestrator(t, syncrun.Deps{
		Lock:    runlock.New(lockPath, logging.NewNop()),
		Syncer:  &fakeSyncer{},
		Sweeper: &fakeSweeper{},
		Cameras: func() ([]cameras.Camera, error) { return testCameras(t, "a"), nil },
	}).Run(context.Background())
	if result.Status != syncrun.StatusAlreadyRunning {
		t.Fatalf("expected already running, got %s", result.Status)
	}
}
