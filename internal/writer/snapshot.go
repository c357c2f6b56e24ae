package writer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rickgao/vix-data/internal/metrics"
	"github.com/rickgao/vix-data/internal/model"
)

const insertFutures = `
	INSERT INTO vix_futures (ts, contract_month, price, open_interest, volume)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (ts, contract_month) DO NOTHING
`

const insertIndex = `
	INSERT INTO vix_index (ts, value)
	VALUES ($1, $2)
	ON CONFLICT (ts) DO NOTHING
`

// Batcher sends a batch of queries. *pgxpool.Pool satisfies it.
type Batcher interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// SnapshotWriter writes acquisition results to the futures and index tables.
type SnapshotWriter struct {
	db      Batcher
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu    sync.Mutex
	stats WriterMetrics
}

// NewSnapshotWriter creates a new SnapshotWriter.
func NewSnapshotWriter(db Batcher, logger *slog.Logger, m *metrics.Metrics) *SnapshotWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotWriter{
		db:      db,
		logger:  logger.With("component", "snapshot_writer"),
		metrics: m,
	}
}

// Stats returns current metrics.
func (w *SnapshotWriter) Stats() WriterMetrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Write stores the futures records and index record of a result in one batch.
// Rows whose key already exists are skipped and counted as conflicts.
func (w *SnapshotWriter) Write(ctx context.Context, result *model.AcquisitionResult) (WriteResult, error) {
	if result == nil {
		return WriteResult{}, nil
	}

	futures := make([]futuresRow, 0, len(result.Futures))
	for _, s := range result.Futures {
		futures = append(futures, transformFutures(s))
	}
	var index []indexRow
	if result.Index != nil {
		index = append(index, transformIndex(*result.Index))
	}
	if len(futures) == 0 && len(index) == 0 {
		return WriteResult{}, nil
	}

	start := time.Now()

	res, err := w.batchInsert(ctx, futures, index)
	if err != nil {
		w.mu.Lock()
		w.stats.Errors++
		w.mu.Unlock()
		w.logger.Error("batch insert failed",
			"error", err,
			"futures", len(futures),
			"index", len(index),
		)
		return WriteResult{}, fmt.Errorf("write snapshots: %w", err)
	}

	inserted := res.FuturesInserted + res.IndexInserted
	conflicts := res.FuturesConflicts + res.IndexConflicts

	w.mu.Lock()
	w.stats.Inserts += int64(inserted)
	w.stats.Conflicts += int64(conflicts)
	w.stats.Writes++
	w.mu.Unlock()

	w.metrics.RowsStored(TableFutures, res.FuturesInserted, res.FuturesConflicts)
	if len(index) > 0 {
		w.metrics.RowsStored(TableIndex, res.IndexInserted, res.IndexConflicts)
	}

	w.logger.Debug("wrote snapshots",
		"cycle_id", result.CycleID,
		"inserted", inserted,
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
	return res, nil
}

func transformFutures(s model.FuturesSnapshot) futuresRow {
	return futuresRow{
		Ts:            s.Timestamp.UTC(),
		ContractMonth: s.ContractMonth,
		Price:         s.Price,
		OpenInterest:  s.OpenInterest,
		Volume:        s.Volume,
	}
}

func transformIndex(s model.IndexSnapshot) indexRow {
	return indexRow{Ts: s.Timestamp.UTC(), Value: s.Value}
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *SnapshotWriter) batchInsert(ctx context.Context, futures []futuresRow, index []indexRow) (res WriteResult, err error) {
	batch := &pgx.Batch{}
	for _, r := range futures {
		batch.Queue(insertFutures, r.Ts, r.ContractMonth, r.Price, r.OpenInterest, r.Volume)
	}
	for _, r := range index {
		batch.Queue(insertIndex, r.Ts, r.Value)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range futures {
		ct, err := results.Exec()
		if err != nil {
			return WriteResult{}, err
		}
		if ct.RowsAffected() == 0 {
			res.FuturesConflicts++
		} else {
			res.FuturesInserted++
		}
	}
	for range index {
		ct, err := results.Exec()
		if err != nil {
			return WriteResult{}, err
		}
		if ct.RowsAffected() == 0 {
			res.IndexConflicts++
		} else {
			res.IndexInserted++
		}
	}

	return res, nil
}
