package preflight

import (
	"path/filepath"

	"hiksync/internal/config"
	"hiksync/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all preflight checks for the given config.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckExtractor(cfg))
	results = append(results, CheckDirectoryReadable("Input directory", cfg.Paths.InputDir))
	results = append(results, CheckDirectoryCreatable("Output directory", cfg.Paths.OutputDir))
	results = append(results, CheckDirectoryCreatable("Cache directory", cfg.Paths.CacheDir))
	results = append(results, CheckDirectoryCreatable("Lock directory", filepath.Dir(cfg.Paths.LockFile)))
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryCreatable("Log directory", cfg.Paths.LogDir))
	}
	if cfg.Metrics.TextfilePath != "" {
		results = append(results, CheckDirectoryCreatable("Metrics directory", filepath.Dir(cfg.Metrics.TextfilePath)))
	}
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

// CheckExtractor verifies that the configured extractor binary resolves.
func CheckExtractor(cfg *config.Config) Result {
	const name = "Extractor"
	status := deps.CheckBinaries([]deps.Requirement{{
		Name:        name,
		Command:     cfg.ExtractorBinary(),
		Description: "Required to list and extract camera segments",
	}})[0]
	if !status.Available {
		return Result{Name: name, Detail: status.Detail}
	}
	return Result{Name: name, Passed: true, Detail: status.Path}
}
