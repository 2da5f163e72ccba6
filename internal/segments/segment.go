package segments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind is the media kind of a segment.
type Kind string

const (
	Video Kind = "video"
	Image Kind = "image"
)

// Kinds lists every media kind in sync order.
var Kinds = []Kind{Video, Image}

// Dir returns the destination subdirectory for the kind.
func (k Kind) Dir() string {
	if k == Image {
		return "images"
	}
	return "video"
}

// Ext returns the output file extension for the kind.
func (k Kind) Ext() string {
	if k == Image {
		return "jpg"
	}
	return "mp4"
}

func (k Kind) String() string { return string(k) }

// ParseKind accepts "video" and "image"/"images".
func ParseKind(value string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "video", "videos":
		return Video, nil
	case "image", "images":
		return Image, nil
	default:
		return "", fmt.Errorf("unknown segment kind %q", value)
	}
}

var (
	// ErrMissingStartTime marks a segment without any start time.
	ErrMissingStartTime = errors.New("segment has no start time")
	// ErrUnparsableStartTime marks a start time in an unsupported format.
	ErrUnparsableStartTime = errors.New("segment start time not parseable")
)

// StartLayout is the fixed textual start time format reported by the NAS.
const StartLayout = "2006-01-02 15:04:05"

// Segment is one recorded interval as listed by a Source.
type Segment struct {
	// Native is set when the adapter reported an already-decoded timestamp.
	Native *time.Time
	// StartText is the raw textual start time when no native value exists.
	StartText string
	EndText   string
	// StartOffset and EndOffset locate the segment inside FilePath when
	// HasOffsets is set.
	StartOffset int64
	EndOffset   int64
	HasOffsets  bool
	FilePath    string
	Duration    time.Duration
}

// Start resolves the segment start time. Naive timestamps are interpreted in
// loc; the result is always expressed in loc.
func (s Segment) Start(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	if s.Native != nil && !s.Native.IsZero() {
		return s.Native.In(loc), nil
	}
	return ParseStart(s.StartText, loc)
}

// ByteRange returns the offset and length of the raw segment data, when known.
func (s Segment) ByteRange() (offset, length int64, ok bool) {
	if !s.HasOffsets || strings.TrimSpace(s.FilePath) == "" || s.EndOffset <= s.StartOffset || s.StartOffset < 0 {
		return 0, 0, false
	}
	return s.StartOffset, s.EndOffset - s.StartOffset, true
}

// ParseStart accepts "YYYY-MM-DD HH:MM:SS" or ISO-8601 with an optional
// trailing Z or numeric offset.
func ParseStart(text string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, ErrMissingStartTime
	}
	if ts, err := time.ParseInLocation(StartLayout, text, loc); err == nil {
		return ts, nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, text); err == nil {
		return ts.In(loc), nil
	}
	if ts, err := time.ParseInLocation("2006-01-02T15:04:05.999999999", text, loc); err == nil {
		return ts, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparsableStartTime, text)
}

// Source enumerates and extracts segments for one camera directory.
type Source interface {
	ListSegments(ctx context.Context, sourcePath string, kind Kind) ([]Segment, error)
	// Extract writes segment index into cacheDir under outputName and returns
	// the produced file path. An empty path means cacheDir/outputName.
	Extract(ctx context.Context, sourcePath string, kind Kind, index int, cacheDir, outputName string) (string, error)
}
