// Package runlock guards a sync pass with an exclusive, non-blocking advisory
// lock on a well-known file. The lock is tied to the open handle, so a
// crashed holder releases it automatically; the pid written into the file is
// informational only.
package runlock
