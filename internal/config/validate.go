package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateCameras(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateSchedule(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if c.Extractor.Binary == "" {
		return errors.New("extractor.binary must be set")
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.InputDir == "" && len(c.Cameras.Static) == 0 {
		return errors.New("paths.input_dir must be set when no static cameras are configured")
	}
	if c.Paths.OutputDir == "" {
		return errors.New("paths.output_dir must be set")
	}
	if c.Paths.CacheDir == "" {
		return errors.New("paths.cache_dir must be set")
	}
	if c.Paths.LockFile == "" {
		return errors.New("paths.lock_file must be set")
	}
	return nil
}

func (c *Config) validateCameras() error {
	for i, cam := range c.Cameras.Static {
		if cam.Source == "" {
			return fmt.Errorf("cameras.static[%d].source must be set", i)
		}
		if cam.Name == "" && cam.Tag == "" {
			return fmt.Errorf("cameras.static[%d] needs a name or tag", i)
		}
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.VideoSyncDays < 0 {
		return errors.New("sync.video_sync_days must be >= 0")
	}
	if c.Sync.ImageSyncDays < 0 {
		return errors.New("sync.image_sync_days must be >= 0")
	}
	if c.Sync.ExtractionTimeoutSeconds < 0 {
		return errors.New("sync.extraction_timeout_seconds must be >= 0")
	}
	if c.Retention.Days < 0 {
		return errors.New("retention.days must be >= 0")
	}
	return nil
}

func (c *Config) validateSchedule() error {
	switch c.Schedule.Mode {
	case ModeOnce, ModeScheduled:
	default:
		return fmt.Errorf("schedule.mode: unsupported value %q (want %q or %q)", c.Schedule.Mode, ModeOnce, ModeScheduled)
	}
	if c.Schedule.IntervalMinutes < MinIntervalMinutes || c.Schedule.IntervalMinutes > MaxIntervalMinutes {
		return fmt.Errorf("schedule.interval_minutes must be between %d and %d", MinIntervalMinutes, MaxIntervalMinutes)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	return nil
}
