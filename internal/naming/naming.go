package naming

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"hiksync/internal/logging"
)

// TimestampLayout is the timestamp portion of every canonical filename.
const TimestampLayout = "2006-01-02_15-04-05"

// MaxCollisionAttempts bounds ResolveCollision.
const MaxCollisionAttempts = 1000

// Canonical returns "<timestamp>-<tag>.<ext>". The timestamp is rendered in
// the location carried by ts.
func Canonical(ts time.Time, tag, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	return ts.Format(TimestampLayout) + "-" + tag + "." + ext
}

// ResolveCollision returns name when dir/name does not exist, otherwise the
// first "<stem>_<n><ext>" (n starting at 1) that is free. After
// MaxCollisionAttempts the last attempted name is returned with a warning.
func ResolveCollision(dir, name string, logger *slog.Logger) string {
	if !exists(filepath.Join(dir, name)) {
		return name
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	candidate := name
	for counter := 1; counter <= MaxCollisionAttempts; counter++ {
		candidate = stem + "_" + strconv.Itoa(counter) + ext
		if !exists(filepath.Join(dir, candidate)) {
			return candidate
		}
	}
	logging.WarnWithContext(logger, "collision counter exhausted; reusing last candidate", "filename_collision_exhausted",
		logging.String(logging.FieldFilename, name),
		logging.String("candidate", candidate),
		logging.Int("attempts", MaxCollisionAttempts),
		logging.String(logging.FieldErrorHint, "inspect the destination directory for runaway duplicates"),
		logging.String(logging.FieldImpact, "an existing file may be replaced"),
	)
	return candidate
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}
