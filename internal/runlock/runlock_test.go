package runlock_test

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"hiksync/internal/logging"
	"hiksync/internal/runlock"
)

func TestLockExclusion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.lock")

	first := runlock.New(path, logging.NewNop())
	ok, err := first.Acquire()
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}

	second := runlock.New(path, logging.NewNop())
	ok, err = second.Acquire()
	if err != nil {
		t.Fatalf("contended acquire should not error: %v", err)
	}
	if ok {
		t.Fatal("second acquire must fail while first holds the lock")
	}

	first.Release()

	third := runlock.New(path, logging.NewNop())
	ok, err = third.Acquire()
	if err != nil || !ok {
		t.Fatalf("third acquire after release: ok=%v err=%v", ok, err)
	}
	third.Release()
}

func TestAcquireWritesPIDAndReleaseRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sync.lock")
	lock := runlock.New(path, logging.NewNop())

	ok, err := lock.Acquire()
	if err != nil || !ok {
		t.Fatalf("acquire: ok=%v err=%v", ok, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read lock file: %v", err)
	}
	if got := strings.TrimSpace(string(data)); got != strconv.Itoa(os.Getpid()) {
		t.Fatalf("lock file contains %q, want pid %d", got, os.Getpid())
	}

	lock.Release()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected lock file removed, stat err=%v", err)
	}
	lock.Release()
}

func TestStaleLockFileDoesNotBlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.lock")
	if err := os.WriteFile(path, []byte("99999\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	lock := runlock.New(path, logging.NewNop())
	ok, err := lock.Acquire()
	if err != nil || !ok {
		t.Fatalf("stale file should not block: ok=%v err=%v", ok, err)
	}
	lock.Release()
}

func TestAcquireUnopenablePathErrors(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	lock := runlock.New(filepath.Join(blocker, "sync.lock"), logging.NewNop())
	ok, err := lock.Acquire()
	if ok || err == nil {
		t.Fatalf("expected failure under a regular file, ok=%v err=%v", ok, err)
	}
}
