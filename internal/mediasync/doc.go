// Package mediasync materializes NAS segments for one camera into its
// destination tree.
//
// Existing output is detected by canonical filename, not segment index, so
// repeated passes are idempotent. Every output is staged under a hidden
// partial name in the destination directory, verified non-empty, and only
// then renamed into place; a crash never leaves a truncated file under a
// canonical name. Per-segment failures are counted and logged without
// aborting the camera.
package mediasync
