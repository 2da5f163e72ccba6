package syncrun

import (
	"time"

	"hiksync/internal/cameras"
	"hiksync/internal/mediasync"
	"hiksync/internal/retention"
)

// Status is the terminal state of a run.
type Status string

const (
	StatusCompleted      Status = "completed"
	StatusAlreadyRunning Status = "already_running"
	StatusInterrupted    Status = "interrupted"
	StatusFailed         Status = "failed"
)

// Statuses lists every terminal state.
var Statuses = []Status{StatusCompleted, StatusAlreadyRunning, StatusInterrupted, StatusFailed}

// ExitCode maps the status to a process exit code.
func (s Status) ExitCode() int {
	if s == StatusCompleted {
		return 0
	}
	return 1
}

// CameraResult is the outcome for one camera.
type CameraResult struct {
	Camera cameras.Camera
	Stats  mediasync.CameraStats
	// Err is set when the camera's sync aborted unexpectedly.
	Err error
}

// Result describes a finished run.
type Result struct {
	RunID     string
	Status    Status
	Err       error
	Started   time.Time
	Finished  time.Time
	Cameras   []CameraResult
	Retention retention.Result
}

// Duration is the wall time of the run.
func (r Result) Duration() time.Duration {
	if r.Finished.Before(r.Started) {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

// Totals sums statistics across cameras.
func (r Result) Totals() mediasync.CameraStats {
	var totals mediasync.CameraStats
	for _, cam := range r.Cameras {
		totals.Add(cam.Stats)
	}
	return totals
}

// Efficiency is the share of listed segments already present at the
// destination, as a percentage. ok is false when no segments were listed.
func (r Result) Efficiency() (pct float64, ok bool) {
	combined := r.Totals().Combined()
	if combined.Total == 0 {
		return 0, false
	}
	return float64(combined.Existing) / float64(combined.Total) * 100, true
}
