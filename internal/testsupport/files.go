package testsupport

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// WriteAgedFile writes size bytes to path and backdates both its access and
// modification times to mtime. A size <= 0 writes an empty file.
func WriteAgedFile(t testing.TB, path string, size int, mtime time.Time) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	data := make([]byte, max(size, 0))
	for i := range data {
		data[i] = 0x42
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}
