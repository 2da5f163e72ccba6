package staging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"hiksync/internal/logging"
)

const (
	partialMarker = ".part-"
	cachePrefix   = "hiksync-"
)

// PartialName returns a unique hidden name used while final is being written.
func PartialName(final string) string {
	return "." + final + partialMarker + uuid.NewString()
}

// IsPartial reports whether name was produced by PartialName.
func IsPartial(name string) bool {
	return strings.HasPrefix(name, ".") && strings.Contains(name, partialMarker)
}

// CacheName returns a unique scratch name for the extractor that keeps the
// final extension.
func CacheName(final string) string {
	return cachePrefix + uuid.NewString() + "-" + final
}

// CleanResult contains the outcome of a cleanup pass.
type CleanResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanPartials removes leftover partial outputs in dir.
func CleanPartials(dir string, logger *slog.Logger) CleanResult {
	return clean(dir, 0, IsPartial, "partial", logger)
}

// CleanCache removes extractor scratch files in cacheDir older than maxAge.
// A zero maxAge removes every scratch file.
func CleanCache(cacheDir string, maxAge time.Duration, logger *slog.Logger) CleanResult {
	return clean(cacheDir, maxAge, func(name string) bool {
		return strings.HasPrefix(name, cachePrefix)
	}, "cache", logger)
}

func clean(dir string, maxAge time.Duration, match func(string) bool, label string, logger *slog.Logger) CleanResult {
	result := CleanResult{}

	dir = strings.TrimSpace(dir)
	if dir == "" {
		return result
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: dir, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if entry.IsDir() || !match(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if maxAge > 0 {
			info, err := entry.Info()
			if err != nil {
				result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
				continue
			}
			if !info.ModTime().Before(cutoff) {
				continue
			}
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			logging.WarnWithContext(logger, "failed to remove stale "+label+" file", "staging_cleanup_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check directory permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, path)
	}

	if len(result.Removed) > 0 && logger != nil {
		logger.Info("removed stale "+label+" files",
			logging.String("path", dir),
			logging.Int("count", len(result.Removed)),
			logging.String(logging.FieldEventType, "staging_cleanup"),
		)
	}
	return result
}
