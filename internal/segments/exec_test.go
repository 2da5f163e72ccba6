package segments_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"hiksync/internal/segments"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hikextract")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestCommandExecutorListing(t *testing.T) {
	bin := writeScript(t, `echo "progress on stderr" 1>&2
echo '[{"start_time":"2024-01-01 10:00:00"}]'
`)
	client, err := segments.New(bin)
	if err != nil {
		t.Fatal(err)
	}
	segs, err := client.ListSegments(context.Background(), t.TempDir(), segments.Video)
	if err != nil {
		t.Fatalf("ListSegments: %v", err)
	}
	if len(segs) != 1 || segs[0].StartText != "2024-01-01 10:00:00" {
		t.Fatalf("unexpected segments %+v", segs)
	}
}

func TestCommandExecutorIncludesStderrOnFailure(t *testing.T) {
	bin := writeScript(t, `echo "decoder: index out of range" 1>&2
exit 3
`)
	client, _ := segments.New(bin)
	_, err := client.Extract(context.Background(), t.TempDir(), segments.Video, 9, t.TempDir(), "x.mp4")
	if err == nil || !strings.Contains(err.Error(), "index out of range") {
		t.Fatalf("expected stderr tail in error, got %v", err)
	}
}

func TestCommandExecutorHonoursContext(t *testing.T) {
	bin := writeScript(t, "exec sleep 5\n")
	client, _ := segments.New(bin)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.Extract(ctx, t.TempDir(), segments.Video, 0, t.TempDir(), "x.mp4")
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if time.Since(start) > 3*time.Second {
		t.Fatalf("extract did not stop promptly: %s", time.Since(start))
	}
}

func TestCommandExecutorKillsWrapperChildren(t *testing.T) {
	// no exec: the shell stays the parent and sleep inherits its pipes
	bin := writeScript(t, "sleep 5\necho done\n")
	client, _ := segments.New(bin)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.Extract(ctx, t.TempDir(), segments.Video, 0, t.TempDir(), "x.mp4")
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("executor waited %s for orphaned children", elapsed)
	}
}
