package writer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"github.com/rickgao/vix-data/internal/metrics"
	"github.com/rickgao/vix-data/internal/model"
)

// fakeDB emulates the unique constraints of both tables.
type fakeDB struct {
	keys    map[string]bool
	queries []*pgx.QueuedQuery
	failAt  int // 1-based Exec index that fails, 0 for none
}

func newFakeDB() *fakeDB {
	return &fakeDB{keys: make(map[string]bool)}
}

func (db *fakeDB) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	db.queries = append(db.queries, b.QueuedQueries...)
	return &fakeResults{db: db, queries: b.QueuedQueries}
}

type fakeResults struct {
	db      *fakeDB
	queries []*pgx.QueuedQuery
	pos     int
}

func (r *fakeResults) Exec() (pgconn.CommandTag, error) {
	if r.pos >= len(r.queries) {
		return pgconn.CommandTag{}, errors.New("no more results")
	}
	q := r.queries[r.pos]
	r.pos++
	if r.db.failAt == r.pos {
		return pgconn.CommandTag{}, errors.New("connection reset")
	}

	var key string
	switch {
	case strings.Contains(q.SQL, "vix_futures"):
		key = fmt.Sprintf("futures|%v|%v", q.Arguments[0], q.Arguments[1])
	case strings.Contains(q.SQL, "vix_index"):
		key = fmt.Sprintf("index|%v", q.Arguments[0])
	}
	if r.db.keys[key] {
		return pgconn.NewCommandTag("INSERT 0 0"), nil
	}
	r.db.keys[key] = true
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (r *fakeResults) Query() (pgx.Rows, error) { return nil, errors.New("not implemented") }
func (r *fakeResults) QueryRow() pgx.Row        { return nil }
func (r *fakeResults) Close() error             { return nil }

func i64(v int64) *int64 { return &v }

func testResult(ts time.Time) *model.AcquisitionResult {
	return &model.AcquisitionResult{
		Futures: []model.FuturesSnapshot{
			{Timestamp: ts, Contract: "VX202611", ContractMonth: "202611", Price: decimal.RequireFromString("19.85"), Volume: i64(41230), OpenInterest: i64(120554)},
			{Timestamp: ts, Contract: "VX202612", ContractMonth: "202612", Price: decimal.RequireFromString("20.4")},
		},
		Index: &model.IndexSnapshot{Timestamp: ts.Add(-time.Hour), Value: decimal.RequireFromString("17.21")},
	}
}

func TestSnapshotWriter_Write(t *testing.T) {
	db := newFakeDB()
	m := metrics.New(prometheus.NewRegistry())
	w := NewSnapshotWriter(db, nil, m)

	ts := time.Date(2026, 10, 18, 14, 30, 15, 0, time.UTC)
	res, err := w.Write(context.Background(), testResult(ts))
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	want := WriteResult{FuturesInserted: 2, IndexInserted: 1}
	if res != want {
		t.Errorf("Write() = %+v, want %+v", res, want)
	}

	if len(db.queries) != 3 {
		t.Fatalf("queued %d queries, want 3", len(db.queries))
	}
	first := db.queries[0]
	if !strings.Contains(first.SQL, "ON CONFLICT (ts, contract_month) DO NOTHING") {
		t.Errorf("futures insert must ignore conflicts: %s", first.SQL)
	}
	if got := first.Arguments[1]; got != "202611" {
		t.Errorf("contract_month arg = %v, want 202611", got)
	}
	if vol, ok := first.Arguments[4].(*int64); !ok || vol == nil || *vol != 41230 {
		t.Errorf("volume arg = %v, want 41230", first.Arguments[4])
	}
	if oi, ok := db.queries[1].Arguments[3].(*int64); !ok || oi != nil {
		t.Errorf("absent open_interest should be a nil *int64, got %v", db.queries[1].Arguments[3])
	}
	if !strings.Contains(db.queries[2].SQL, "ON CONFLICT (ts) DO NOTHING") {
		t.Errorf("index insert must ignore conflicts: %s", db.queries[2].SQL)
	}

	if got := testutil.ToFloat64(m.RowsWritten.WithLabelValues(TableFutures)); got != 2 {
		t.Errorf("futures rows written = %v, want 2", got)
	}
}

func TestSnapshotWriter_DuplicateKeysStoredOnce(t *testing.T) {
	db := newFakeDB()
	w := NewSnapshotWriter(db, nil, nil)
	ts := time.Date(2026, 10, 18, 14, 30, 15, 0, time.UTC)

	if _, err := w.Write(context.Background(), testResult(ts)); err != nil {
		t.Fatalf("first Write() error = %v", err)
	}
	res, err := w.Write(context.Background(), testResult(ts))
	if err != nil {
		t.Fatalf("second Write() error = %v", err)
	}

	want := WriteResult{FuturesConflicts: 2, IndexConflicts: 1}
	if res != want {
		t.Errorf("second Write() = %+v, want %+v", res, want)
	}
	if len(db.keys) != 3 {
		t.Errorf("stored %d rows, want 3", len(db.keys))
	}

	stats := w.Stats()
	if stats.Inserts != 3 || stats.Conflicts != 3 || stats.Writes != 2 {
		t.Errorf("Stats() = %+v, want 3 inserts, 3 conflicts, 2 writes", stats)
	}
}

func TestSnapshotWriter_DuplicateMonthInOneResult(t *testing.T) {
	db := newFakeDB()
	w := NewSnapshotWriter(db, nil, nil)
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// Horizon stepping can yield the same month twice in a cycle.
	result := &model.AcquisitionResult{
		Futures: []model.FuturesSnapshot{
			{Timestamp: ts, ContractMonth: "202601", Price: decimal.NewFromInt(18)},
			{Timestamp: ts, ContractMonth: "202601", Price: decimal.NewFromInt(18)},
		},
	}
	res, err := w.Write(context.Background(), result)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if res.FuturesInserted != 1 || res.FuturesConflicts != 1 {
		t.Errorf("Write() = %+v, want 1 inserted and 1 conflict", res)
	}
}

func TestSnapshotWriter_NothingToWrite(t *testing.T) {
	db := newFakeDB()
	w := NewSnapshotWriter(db, nil, nil)

	if _, err := w.Write(context.Background(), nil); err != nil {
		t.Errorf("Write(nil) error = %v", err)
	}
	if _, err := w.Write(context.Background(), &model.AcquisitionResult{}); err != nil {
		t.Errorf("Write(empty) error = %v", err)
	}
	if len(db.queries) != 0 {
		t.Errorf("queued %d queries, want 0", len(db.queries))
	}
}

func TestSnapshotWriter_ExecError(t *testing.T) {
	db := newFakeDB()
	db.failAt = 2
	w := NewSnapshotWriter(db, nil, nil)

	_, err := w.Write(context.Background(), testResult(time.Now()))
	if err == nil {
		t.Fatal("Write() expected error")
	}
	if w.Stats().Errors != 1 {
		t.Errorf("Errors = %d, want 1", w.Stats().Errors)
	}
}
