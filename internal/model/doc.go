// Package model defines shared data types used across the VIX data gatherer.
//
// Types mirror the vix_futures and vix_index tables created by the database package.
//
// Conventions:
//   - Prices: shopspring decimal.Decimal, never float64
//   - Timestamps: time.Time in UTC, truncated to the second for storage keys
//   - Contract months: "YYYYMM" strings
//   - Optional integer fields: *int64, nil when the source did not supply them
package model
