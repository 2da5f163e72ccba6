package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeCameras(); err != nil {
		return err
	}
	c.Schedule.Mode = strings.ToLower(strings.TrimSpace(c.Schedule.Mode))
	if c.Schedule.Mode == "" {
		c.Schedule.Mode = ModeScheduled
	}
	c.Extractor.Binary = strings.TrimSpace(c.Extractor.Binary)
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		name  string
		value *string
	}{
		{"paths.input_dir", &c.Paths.InputDir},
		{"paths.output_dir", &c.Paths.OutputDir},
		{"paths.cache_dir", &c.Paths.CacheDir},
		{"paths.lock_file", &c.Paths.LockFile},
		{"paths.log_dir", &c.Paths.LogDir},
		{"metrics.textfile_path", &c.Metrics.TextfilePath},
	}
	for _, field := range fields {
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeCameras() error {
	c.Cameras.Translation = strings.TrimSpace(c.Cameras.Translation)
	for i := range c.Cameras.Static {
		cam := &c.Cameras.Static[i]
		cam.Name = strings.TrimSpace(cam.Name)
		cam.Tag = strings.TrimSpace(cam.Tag)
		var err error
		if cam.Source, err = expandPath(strings.TrimSpace(cam.Source)); err != nil {
			return fmt.Errorf("cameras.static[%d].source: %w", i, err)
		}
		if cam.Destination, err = expandPath(strings.TrimSpace(cam.Destination)); err != nil {
			return fmt.Errorf("cameras.static[%d].destination: %w", i, err)
		}
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
