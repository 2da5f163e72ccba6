package config

const (
	defaultInputDir          = "/input"
	defaultOutputDir         = "/output"
	defaultCacheDir          = "/tmp/hikvision_cache"
	defaultLockFile          = "/tmp/sync_hikvision_cameras.lock"
	defaultRetentionDays     = 90
	defaultVideoSyncDays     = 7
	defaultImageSyncDays     = 7
	defaultExtractionTimeout = 60
	defaultIntervalMinutes   = 10
	defaultExtractorBinary   = "hikextract"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultLogRetentionDays  = 30

	// MinIntervalMinutes and MaxIntervalMinutes bound the scheduled interval.
	MinIntervalMinutes = 1
	MaxIntervalMinutes = 1440
)

// Run modes.
const (
	ModeOnce      = "once"
	ModeScheduled = "scheduled"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			InputDir:  defaultInputDir,
			OutputDir: defaultOutputDir,
			CacheDir:  defaultCacheDir,
			LockFile:  defaultLockFile,
		},
		Sync: Sync{
			VideoSyncDays:            defaultVideoSyncDays,
			ImageSyncDays:            defaultImageSyncDays,
			SyncImages:               true,
			ExtractionTimeoutSeconds: defaultExtractionTimeout,
			UseFastExtraction:        true,
		},
		Retention: Retention{
			Days: defaultRetentionDays,
		},
		Schedule: Schedule{
			Mode:            ModeScheduled,
			IntervalMinutes: defaultIntervalMinutes,
		},
		Extractor: Extractor{
			Binary: defaultExtractorBinary,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
