package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variable names honoured by Load.
const (
	EnvInputDir            = "INPUT_DIR"
	EnvOutputDir           = "OUTPUT_DIR"
	EnvCacheDir            = "CACHE_DIR"
	EnvLockFile            = "LOCK_FILE"
	EnvLogDir              = "LOG_DIR"
	EnvCameraTranslation   = "CAMERA_TRANSLATION"
	EnvRetentionDays       = "RETENTION_DAYS"
	EnvRunMode             = "RUN_MODE"
	EnvSyncInterval        = "SYNC_INTERVAL_MINUTES"
	EnvVideoSyncDays       = "VIDEO_SYNC_DAYS"
	EnvImageSyncDays       = "IMAGE_SYNC_DAYS"
	EnvSyncImages          = "SYNC_IMAGES"
	EnvExtractionTimeout   = "EXTRACTION_TIMEOUT_SECONDS"
	EnvUseFastExtraction   = "USE_FAST_EXTRACTION"
	EnvExtractorBinary     = "EXTRACTOR_BINARY"
	EnvLogLevel            = "LOG_LEVEL"
	EnvLogFormat           = "LOG_FORMAT"
	EnvMetricsTextfilePath = "METRICS_TEXTFILE"
)

// LookupFunc resolves an environment variable.
type LookupFunc func(key string) (string, bool)

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. When required is false a
// missing file is ignored.
func LoadEnvFile(path string, required bool) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// ParseBool interprets common truthy and falsy spellings. Unrecognized or
// empty values yield fallback.
func ParseBool(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return fallback
	}
}

func (c *Config) applyEnv(lookup LookupFunc) error {
	if lookup == nil {
		return nil
	}
	str := func(key string, dst *string) {
		if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
			*dst = strings.TrimSpace(value)
		}
	}
	boolean := func(key string, dst *bool) {
		if value, ok := lookup(key); ok {
			*dst = ParseBool(value, *dst)
		}
	}
	integer := func(key string, dst *int) error {
		value, ok := lookup(key)
		if !ok || strings.TrimSpace(value) == "" {
			return nil
		}
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%s: invalid integer %q", key, value)
		}
		*dst = parsed
		return nil
	}

	str(EnvInputDir, &c.Paths.InputDir)
	str(EnvOutputDir, &c.Paths.OutputDir)
	str(EnvCacheDir, &c.Paths.CacheDir)
	str(EnvLockFile, &c.Paths.LockFile)
	str(EnvLogDir, &c.Paths.LogDir)
	str(EnvCameraTranslation, &c.Cameras.Translation)
	str(EnvRunMode, &c.Schedule.Mode)
	str(EnvExtractorBinary, &c.Extractor.Binary)
	str(EnvLogLevel, &c.Logging.Level)
	str(EnvLogFormat, &c.Logging.Format)
	str(EnvMetricsTextfilePath, &c.Metrics.TextfilePath)
	boolean(EnvSyncImages, &c.Sync.SyncImages)
	boolean(EnvUseFastExtraction, &c.Sync.UseFastExtraction)

	for key, dst := range map[string]*int{
		EnvRetentionDays:     &c.Retention.Days,
		EnvSyncInterval:      &c.Schedule.IntervalMinutes,
		EnvVideoSyncDays:     &c.Sync.VideoSyncDays,
		EnvImageSyncDays:     &c.Sync.ImageSyncDays,
		EnvExtractionTimeout: &c.Sync.ExtractionTimeoutSeconds,
	} {
		if err := integer(key, dst); err != nil {
			return err
		}
	}
	return nil
}
