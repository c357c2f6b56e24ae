package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------
// Contract Identity
// -----------------------------------------------------------------------------

// ContractID identifies one futures contract for one expiry month.
type ContractID struct {
	Symbol string // Display symbol (e.g., "VX202611")
	Month  string // Expiry month, "YYYYMM"
}

// String returns the display symbol.
func (c ContractID) String() string {
	return c.Symbol
}

// -----------------------------------------------------------------------------
// Gateway Quotes
// -----------------------------------------------------------------------------

// RawQuote is a gateway-sourced market-data snapshot before normalization.
// Fields the gateway never populated are left invalid/nil.
type RawQuote struct {
	Last         decimal.NullDecimal // Last trade price (may be absent or zero)
	Close        decimal.NullDecimal // Prior session close
	Bid          decimal.NullDecimal
	Ask          decimal.NullDecimal
	Volume       *int64
	OpenInterest *int64
}

// HasPrice reports whether the quote carries a usable last or close price.
func (q RawQuote) HasPrice() bool {
	return positive(q.Last) || positive(q.Close)
}

func positive(d decimal.NullDecimal) bool {
	return d.Valid && d.Decimal.IsPositive()
}

// -----------------------------------------------------------------------------
// Persisted Snapshots
// -----------------------------------------------------------------------------

// FuturesSnapshot is one normalized reading for one contract month.
// (Timestamp, ContractMonth) is unique in storage.
type FuturesSnapshot struct {
	Timestamp     time.Time           `json:"timestamp"`
	Contract      string              `json:"contract"`       // Display symbol (e.g., "VX202611")
	ContractMonth string              `json:"contract_month"` // "YYYYMM"
	Price         decimal.Decimal     `json:"price"`          // Last if > 0, else close
	Bid           decimal.NullDecimal `json:"bid"`            // Not persisted
	Ask           decimal.NullDecimal `json:"ask"`            // Not persisted
	OpenInterest  *int64              `json:"open_interest"`
	Volume        *int64              `json:"volume"`
}

// IndexSnapshot is one spot index reading. Timestamp is unique in storage.
type IndexSnapshot struct {
	Timestamp time.Time       `json:"timestamp"`
	Value     decimal.Decimal `json:"value"`
}

// -----------------------------------------------------------------------------
// Cycle Results
// -----------------------------------------------------------------------------

// FailureKind classifies a per-contract failure.
type FailureKind string

const (
	FailureSession    FailureKind = "session"    // Self-heal reconnect failed mid-cycle
	FailureResolution FailureKind = "resolution" // Contract could not be qualified
	FailureRequest    FailureKind = "request"    // Gateway rejected the market-data request
	FailureTimeout    FailureKind = "timeout"    // No usable price within the wait
	FailureNormalize  FailureKind = "normalize"  // Quote arrived without last or close
)

// ContractFailure describes why one contract produced no record.
type ContractFailure struct {
	Contract      string      `json:"contract"`
	ContractMonth string      `json:"contract_month"`
	Kind          FailureKind `json:"kind"`
	Reason        string      `json:"reason"`
}

// AcquisitionResult is the output of one acquisition cycle.
type AcquisitionResult struct {
	CycleID    uuid.UUID `json:"cycle_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Attempted counts contracts the fetcher was invoked for (0 when the gateway was unreachable).
	Attempted int               `json:"attempted"`
	Futures   []FuturesSnapshot `json:"futures"`
	Failures  []ContractFailure `json:"failures"`

	// Index is nil when the provider failed or returned no data; IndexError says why.
	Index      *IndexSnapshot `json:"index"`
	IndexError string         `json:"index_error,omitempty"`
}

// Partial reports whether any contract failed or the index reading is missing.
func (r *AcquisitionResult) Partial() bool {
	return len(r.Failures) > 0 || r.Index == nil
}
