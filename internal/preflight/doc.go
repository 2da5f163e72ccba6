// Package preflight provides readiness checks for the filesystem paths and
// external binaries a sync run depends on.
//
// The CLI "hiksync check" command runs RunAll and reports each Result. A
// sync run never calls these checks itself: missing directories surface as
// per-run failures instead.
package preflight
