package testsupport

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"hiksync/internal/segments"
)

// ExtractBehavior decides what FakeSource does for one extraction.
type ExtractBehavior int

const (
	// ExtractOK writes a non-empty file.
	ExtractOK ExtractBehavior = iota
	// ExtractEmpty reports success without writing anything.
	ExtractEmpty
	// ExtractZeroBytes reports success after writing an empty file.
	ExtractZeroBytes
	// ExtractError returns an error.
	ExtractError
	// ExtractHang blocks until the extraction context is done.
	ExtractHang
	// ExtractPanic panics.
	ExtractPanic
)

// ExtractCall records one Extract invocation.
type ExtractCall struct {
	SourcePath string
	Kind       segments.Kind
	Index      int
	CacheDir   string
	OutputName string
}

// FakeSource is an in-memory segments.Source.
type FakeSource struct {
	mu        sync.Mutex
	Segments  map[segments.Kind][]segments.Segment
	ListErr   map[segments.Kind]error
	Behaviors map[segments.Kind]map[int]ExtractBehavior
	Calls     []ExtractCall
	Lists     int
	// OnExtract runs before each extraction, e.g. to cancel a context.
	OnExtract func(ExtractCall)
}

// NewFakeSource returns a source listing the same start times for both kinds.
func NewFakeSource(starts ...string) *FakeSource {
	src := &FakeSource{
		Segments:  map[segments.Kind][]segments.Segment{},
		ListErr:   map[segments.Kind]error{},
		Behaviors: map[segments.Kind]map[int]ExtractBehavior{},
	}
	for _, kind := range segments.Kinds {
		for _, start := range starts {
			src.Segments[kind] = append(src.Segments[kind], segments.Segment{StartText: start})
		}
	}
	return src
}

// SetBehavior configures the outcome for one kind and index.
func (f *FakeSource) SetBehavior(kind segments.Kind, index int, behavior ExtractBehavior) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Behaviors[kind] == nil {
		f.Behaviors[kind] = map[int]ExtractBehavior{}
	}
	f.Behaviors[kind][index] = behavior
}

// CallCount returns the number of Extract calls so far.
func (f *FakeSource) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

func (f *FakeSource) ListSegments(_ context.Context, _ string, kind segments.Kind) ([]segments.Segment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Lists++
	if err := f.ListErr[kind]; err != nil {
		return nil, err
	}
	return append([]segments.Segment(nil), f.Segments[kind]...), nil
}

func (f *FakeSource) Extract(ctx context.Context, sourcePath string, kind segments.Kind, index int, cacheDir, outputName string) (string, error) {
	call := ExtractCall{SourcePath: sourcePath, Kind: kind, Index: index, CacheDir: cacheDir, OutputName: outputName}
	f.mu.Lock()
	f.Calls = append(f.Calls, call)
	behavior := f.Behaviors[kind][index]
	hook := f.OnExtract
	f.mu.Unlock()

	if hook != nil {
		hook(call)
	}

	out := filepath.Join(cacheDir, outputName)
	switch behavior {
	case ExtractEmpty:
		return out, nil
	case ExtractZeroBytes:
		if err := os.WriteFile(out, nil, 0o644); err != nil {
			return "", err
		}
		return out, nil
	case ExtractError:
		return "", errors.New("decoder failed")
	case ExtractHang:
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(30 * time.Second):
			return "", errors.New("hang not interrupted")
		}
	case ExtractPanic:
		panic("decoder crashed")
	}
	if err := os.WriteFile(out, []byte(fmt.Sprintf("%s segment %d of %s", kind, index, sourcePath)), 0o644); err != nil {
		return "", err
	}
	return out, nil
}
