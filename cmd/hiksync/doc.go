// Package main hosts the hiksync CLI entrypoint and command graph.
//
// The Cobra-based command tree wires configuration, logging and the sync
// components together: "run" performs one pass or keeps syncing on a
// schedule, "discover" lists the cameras a run would process, "check"
// verifies paths and the extractor binary, and "config" scaffolds and
// validates configuration files.
//
// Keep this package lean: behavior belongs in the internal packages, and the
// commands here only translate flags and render results.
package main
