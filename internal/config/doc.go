// Package config loads, normalizes, and validates hiksync configuration data.
//
// Settings are layered: repository defaults, an optional TOML file, an
// optional dotenv file, process environment variables, and finally CLI
// overrides applied by the caller. Paths are tilde-expanded and made
// absolute. The environment variable names match the container deployment
// (INPUT_DIR, OUTPUT_DIR, CAMERA_TRANSLATION, RETENTION_DAYS, ...), so existing
// compose files keep working.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
