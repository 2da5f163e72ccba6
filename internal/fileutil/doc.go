// Package fileutil holds the low-level file operations the sync engine
// builds on: verified copies, cross-filesystem moves, byte-range copies for
// the fast extraction path, and same-device detection.
package fileutil
