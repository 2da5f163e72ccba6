package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"hiksync/internal/mediasync"
	"hiksync/internal/segments"
	"hiksync/internal/syncrun"
)

// runCollectors holds one run's gauges on a private registry so every
// report replaces the previous file contents entirely.
type runCollectors struct {
	registry       *prometheus.Registry
	segments       *prometheus.GaugeVec
	deletedFiles   prometheus.Gauge
	freedBytes     prometheus.Gauge
	lastRunTime    prometheus.Gauge
	lastRunSeconds prometheus.Gauge
	lastRunStatus  *prometheus.GaugeVec
}

func newRunCollectors() *runCollectors {
	c := &runCollectors{
		registry: prometheus.NewRegistry(),
		segments: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hiksync_segments",
				Help: "Segments seen in the last run by camera, media kind and outcome",
			},
			[]string{"camera", "kind", "outcome"},
		),
		deletedFiles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hiksync_retention_deleted_files",
			Help: "Files deleted by the retention sweep in the last run",
		}),
		freedBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hiksync_retention_freed_bytes",
			Help: "Bytes freed by the retention sweep in the last run",
		}),
		lastRunTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hiksync_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
		lastRunSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hiksync_last_run_duration_seconds",
			Help: "Wall time of the last run in seconds",
		}),
		lastRunStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hiksync_last_run_status",
				Help: "Terminal status of the last run (1 = current status)",
			},
			[]string{"status"},
		),
	}
	c.registry.MustRegister(c.segments, c.deletedFiles, c.freedBytes, c.lastRunTime, c.lastRunSeconds, c.lastRunStatus)
	return c
}

func (c *runCollectors) observe(result syncrun.Result) {
	for _, cam := range result.Cameras {
		c.observeKind(cam.Camera.Tag, segments.Video, cam.Stats.Videos)
		c.observeKind(cam.Camera.Tag, segments.Image, cam.Stats.Images)
	}
	c.deletedFiles.Set(float64(result.Retention.Deleted))
	c.freedBytes.Set(float64(result.Retention.FreedBytes))
	if !result.Finished.IsZero() {
		c.lastRunTime.Set(float64(result.Finished.Unix()))
	}
	c.lastRunSeconds.Set(result.Duration().Seconds())
	for _, status := range syncrun.Statuses {
		value := 0.0
		if status == result.Status {
			value = 1
		}
		c.lastRunStatus.WithLabelValues(string(status)).Set(value)
	}
}

func (c *runCollectors) observeKind(camera string, kind segments.Kind, stats mediasync.KindStats) {
	outcomes := map[string]int{
		"total":             stats.Total,
		"existing":          stats.Existing,
		"new":               stats.New,
		"failed":            stats.Failed,
		"timed_out":         stats.TimedOut,
		"skipped_old":       stats.SkippedOld,
		"missing_timestamp": stats.MissingTimestamp,
	}
	for outcome, value := range outcomes {
		c.segments.WithLabelValues(camera, string(kind), outcome).Set(float64(value))
	}
}

// TextfileReporter writes run metrics to Path after every run.
type TextfileReporter struct {
	Path string
}

// NewTextfileReporter returns nil when path is empty so callers can skip
// registration without a separate check.
func NewTextfileReporter(path string) *TextfileReporter {
	if path == "" {
		return nil
	}
	return &TextfileReporter{Path: path}
}

// Report implements syncrun.Reporter.
func (r *TextfileReporter) Report(result syncrun.Result) error {
	if r == nil || r.Path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(r.Path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	c := newRunCollectors()
	c.observe(result)
	if err := prometheus.WriteToTextfile(r.Path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
