// Package writer persists acquisition results.
//
// Tables:
//   - vix_futures, unique on (ts, contract_month)
//   - vix_index, unique on ts
//
// Writes are insert-or-ignore: a row whose key already exists is counted as a
// conflict and left untouched. Prices are stored as NUMERIC from decimal values.
package writer
