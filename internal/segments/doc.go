// Package segments describes recorded NAS segments and the adapter boundary
// used to enumerate and extract them.
//
// The proprietary storage decoder is an opaque capability behind the Source
// interface. Client implements Source by driving an external extractor
// binary; tests substitute their own Source. Segment indices are positions
// in one listing and are never stable across runs.
package segments
