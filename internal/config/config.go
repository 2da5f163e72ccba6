package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and lock file configuration.
type Paths struct {
	InputDir  string `toml:"input_dir"`
	OutputDir string `toml:"output_dir"`
	CacheDir  string `toml:"cache_dir"`
	LockFile  string `toml:"lock_file"`
	LogDir    string `toml:"log_dir"`
}

// StaticCamera pins a camera explicitly instead of discovering it from the
// input directory.
type StaticCamera struct {
	Name        string `toml:"name"`
	Source      string `toml:"source"`
	Destination string `toml:"destination"`
	Tag         string `toml:"tag"`
}

// Cameras contains camera discovery settings.
type Cameras struct {
	// Translation maps NAS directory names to output tags, formatted as
	// comma-separated name:tag pairs.
	Translation string         `toml:"translation"`
	Static      []StaticCamera `toml:"static"`
}

// Sync contains per-segment extraction settings.
type Sync struct {
	VideoSyncDays            int  `toml:"video_sync_days"`
	ImageSyncDays            int  `toml:"image_sync_days"`
	SyncImages               bool `toml:"sync_images"`
	ExtractionTimeoutSeconds int  `toml:"extraction_timeout_seconds"`
	UseFastExtraction        bool `toml:"use_fast_extraction"`
}

// Retention contains output pruning settings.
type Retention struct {
	Days int `toml:"days"`
}

// Schedule controls whether hiksync runs one pass or loops.
type Schedule struct {
	Mode            string `toml:"mode"`
	IntervalMinutes int    `toml:"interval_minutes"`
}

// Extractor describes the external segment decoder binary.
type Extractor struct {
	Binary string   `toml:"binary"`
	Args   []string `toml:"args"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Metrics contains the optional node-exporter textfile target.
type Metrics struct {
	TextfilePath string `toml:"textfile_path"`
}

// Config encapsulates all configuration values for hiksync.
type Config struct {
	Paths     Paths     `toml:"paths"`
	Cameras   Cameras   `toml:"cameras"`
	Sync      Sync      `toml:"sync"`
	Retention Retention `toml:"retention"`
	Schedule  Schedule  `toml:"schedule"`
	Extractor Extractor `toml:"extractor"`
	Logging   Logging   `toml:"logging"`
	Metrics   Metrics   `toml:"metrics"`
}

// Override mutates a decoded configuration before normalization. CLI flags
// are applied this way so they take precedence over file and environment.
type Override func(*Config)

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/hiksync/config.toml")
}

// Load locates, parses, and validates a configuration file. Environment
// variables are layered over the file, then overrides are applied in order.
// The returned config has all path fields expanded and normalized.
func Load(path string, overrides ...Override) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, "", false, err
	}

	for _, override := range overrides {
		if override != nil {
			override(&cfg)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("hiksync.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output and cache roots. The input root is
// never created; it belongs to the NAS mount.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.CacheDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.LogDir) != "" {
		if err := os.MkdirAll(c.Paths.LogDir, 0o755); err != nil {
			return fmt.Errorf("create log directory %q: %w", c.Paths.LogDir, err)
		}
	}
	return nil
}

// ExtractorBinary returns the segment extractor executable name.
func (c *Config) ExtractorBinary() string {
	return c.Extractor.Binary
}

// ExtractionTimeout returns the per-segment bound; zero means unbounded.
func (c *Config) ExtractionTimeout() time.Duration {
	return time.Duration(c.Sync.ExtractionTimeoutSeconds) * time.Second
}

// VideoWindow returns the video recency window; zero means unbounded.
func (c *Config) VideoWindow() time.Duration {
	return days(c.Sync.VideoSyncDays)
}

// ImageWindow returns the image recency window; zero means unbounded.
func (c *Config) ImageWindow() time.Duration {
	return days(c.Sync.ImageSyncDays)
}

// Interval returns the delay between scheduled passes.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Schedule.IntervalMinutes) * time.Minute
}

// Scheduled reports whether hiksync should loop instead of running once.
func (c *Config) Scheduled() bool {
	return c.Schedule.Mode == ModeScheduled
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
