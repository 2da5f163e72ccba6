// Package metrics publishes the outcome of each sync run as a Prometheus
// node-exporter textfile.
//
// Gauges:
//   - hiksync_segments{camera,kind,outcome}: per-camera segment tallies
//   - hiksync_retention_deleted_files, hiksync_retention_freed_bytes
//   - hiksync_last_run_timestamp_seconds, hiksync_last_run_duration_seconds
//   - hiksync_last_run_status{status}: 1 for the run's status, 0 otherwise
package metrics
