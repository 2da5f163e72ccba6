package preflight

import (
	"os"
	"path/filepath"
	"testing"

	"hiksync/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckDirectoryReadable(t *testing.T) {
	if r := CheckDirectoryReadable("in", t.TempDir()); !r.Passed {
		t.Fatalf("expected pass: %s", r.Detail)
	}
	if r := CheckDirectoryReadable("in", ""); r.Passed {
		t.Fatal("expected failure for unconfigured path")
	}
}

func TestCheckDirectoryCreatable_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b")
	result := CheckDirectoryCreatable("out", path)
	if !result.Passed {
		t.Fatalf("expected creatable path to pass: %s", result.Detail)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("check must not create the directory")
	}
}

func TestCheckDirectoryCreatable_UnderFile(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if r := CheckDirectoryCreatable("out", filepath.Join(f, "sub")); r.Passed {
		t.Fatal("expected failure beneath a regular file")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	base := t.TempDir()
	bin := filepath.Join(base, "hikextract")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.Paths.InputDir = t.TempDir()
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.CacheDir = filepath.Join(base, "cache")
	cfg.Paths.LockFile = filepath.Join(base, "run.lock")
	cfg.Paths.LogDir = ""
	cfg.Metrics.TextfilePath = ""
	cfg.Extractor.Binary = bin

	results := RunAll(&cfg)
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
	if !AllPassed(results) {
		t.Fatal("expected all checks to pass")
	}
}

func TestRunAll_MissingExtractor(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.InputDir = t.TempDir()
	cfg.Extractor.Binary = "clearly-not-present-extractor"

	results := RunAll(&cfg)
	if results[0].Name != "Extractor" || results[0].Passed {
		t.Fatalf("expected extractor failure first, got %+v", results[0])
	}
	if AllPassed(results) {
		t.Fatal("AllPassed must be false")
	}
}
