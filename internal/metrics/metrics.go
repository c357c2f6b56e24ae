package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "vix"

// Cycle outcomes.
const (
	OutcomeOK      = "ok"
	OutcomePartial = "partial"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// Metrics holds the gatherer's collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	CyclesTotal      *prometheus.CounterVec
	CycleDuration    prometheus.Histogram
	ContractFetches  *prometheus.CounterVec
	IndexFetches     *prometheus.CounterVec
	RowsWritten      *prometheus.CounterVec
	RowsConflicted   *prometheus.CounterVec
	GatewayConnected prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Acquisition cycles by outcome",
		}, []string{"outcome"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Acquisition cycle duration in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		}),
		ContractFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contract_fetches_total",
			Help:      "Per-contract quote fetches by outcome and failure kind",
		}, []string{"outcome", "kind"}),
		IndexFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_fetches_total",
			Help:      "Spot index fetches by outcome",
		}, []string{"outcome"}),
		RowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_written_total",
			Help:      "Rows inserted by table",
		}, []string{"table"}),
		RowsConflicted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_conflicted_total",
			Help:      "Rows skipped as duplicates by table",
		}, []string{"table"}),
		GatewayConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gateway_connected",
			Help:      "1 when the gateway session is connected",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.CyclesTotal,
			m.CycleDuration,
			m.ContractFetches,
			m.IndexFetches,
			m.RowsWritten,
			m.RowsConflicted,
			m.GatewayConnected,
		)
	}
	return m
}

// CycleFinished records one cycle.
func (m *Metrics) CycleFinished(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.CyclesTotal.WithLabelValues(outcome).Inc()
	if outcome != OutcomeSkipped {
		m.CycleDuration.Observe(d.Seconds())
	}
}

// ContractFetched records one contract fetch. kind is empty on success.
func (m *Metrics) ContractFetched(kind string) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if kind != "" {
		outcome = OutcomeFailed
	}
	m.ContractFetches.WithLabelValues(outcome, kind).Inc()
}

// IndexFetched records one index fetch.
func (m *Metrics) IndexFetched(ok bool) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if !ok {
		outcome = OutcomeFailed
	}
	m.IndexFetches.WithLabelValues(outcome).Inc()
}

// RowsStored records inserted and duplicate rows for a table.
func (m *Metrics) RowsStored(table string, inserted, conflicts int) {
	if m == nil {
		return
	}
	m.RowsWritten.WithLabelValues(table).Add(float64(inserted))
	m.RowsConflicted.WithLabelValues(table).Add(float64(conflicts))
}

// SetGatewayConnected sets the gateway connection gauge.
func (m *Metrics) SetGatewayConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.GatewayConnected.Set(1)
	} else {
		m.GatewayConnected.Set(0)
	}
}
