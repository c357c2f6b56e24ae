package writer

import (
	"time"

	"github.com/shopspring/decimal"
)

// Table names.
const (
	TableFutures = "vix_futures"
	TableIndex   = "vix_index"
)

// futuresRow represents a row to be inserted into the vix_futures table.
type futuresRow struct {
	Ts            time.Time
	ContractMonth string // YYYYMM
	Price         decimal.Decimal
	OpenInterest  *int64 // NULL when the gateway sent none
	Volume        *int64
}

// indexRow represents a row for the vix_index table.
type indexRow struct {
	Ts    time.Time
	Value decimal.Decimal
}

// WriteResult counts the outcome of one Write.
type WriteResult struct {
	FuturesInserted  int
	FuturesConflicts int
	IndexInserted    int
	IndexConflicts   int
}

// WriterMetrics holds cumulative metrics for a writer.
type WriterMetrics struct {
	Inserts   int64
	Conflicts int64
	Errors    int64
	Writes    int64
}
