// Package database provides the TimescaleDB connection pool and table bootstrap.
//
// Snapshot tables:
//   - vix_futures: one row per (ts, contract_month)
//   - vix_index: one row per ts
//
// Both tables carry unique keys so repeated writes of the same reading are ignored.
package database
