// Package poller runs acquisition cycles on a schedule.
//
// The Poller:
//   - Runs a cycle immediately on start, then every interval
//   - Bounds each cycle with a timeout
//   - Hands each result to a handler (the snapshot writer)
//   - Keeps the last completed result for the HTTP API
//
// RunOnce is also the entry point for on-demand cycles, so scheduled and requested
// cycles share one code path. A tick that finds a cycle running is skipped.
package poller
