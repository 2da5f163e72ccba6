// Package naming maps segment start times to the canonical output file
// names that serve as the durable identity of a synced segment, and guards
// commits against overwriting an unrelated file that already holds a name.
package naming
