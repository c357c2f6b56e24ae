// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Acquisition cycles by outcome and duration
//   - Per-contract fetches by outcome and failure kind
//   - Index fetches by outcome
//   - Rows written and rows skipped as duplicates, per table
//   - Gateway connection state
package metrics
