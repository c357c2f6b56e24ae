package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.CycleFinished(OutcomeOK, time.Second)
	m.ContractFetched("")
	m.IndexFetched(true)
	m.RowsStored("vix_futures", 1, 0)
	m.SetGatewayConnected(true)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	want := map[string]bool{
		"vix_cycles_total":           false,
		"vix_cycle_duration_seconds": false,
		"vix_contract_fetches_total": false,
		"vix_index_fetches_total":    false,
		"vix_rows_written_total":     false,
		"vix_rows_conflicted_total":  false,
		"vix_gateway_connected":      false,
	}
	for _, mf := range mfs {
		if _, ok := want[mf.GetName()]; ok {
			want[mf.GetName()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("%s metric not found", name)
		}
	}
}

func TestCycleFinished(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.CycleFinished(OutcomeOK, 2*time.Second)
	m.CycleFinished(OutcomePartial, 3*time.Second)
	m.CycleFinished(OutcomePartial, time.Second)
	m.CycleFinished(OutcomeSkipped, 0)

	if got := testutil.ToFloat64(m.CyclesTotal.WithLabelValues(OutcomePartial)); got != 2 {
		t.Errorf("partial cycles = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.CyclesTotal.WithLabelValues(OutcomeSkipped)); got != 1 {
		t.Errorf("skipped cycles = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.CycleDuration); got != 1 {
		t.Errorf("duration series = %d, want 1", got)
	}
}

func TestContractFetched(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ContractFetched("")
	m.ContractFetched("")
	m.ContractFetched("timeout")

	if got := testutil.ToFloat64(m.ContractFetches.WithLabelValues(OutcomeOK, "")); got != 2 {
		t.Errorf("ok fetches = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ContractFetches.WithLabelValues(OutcomeFailed, "timeout")); got != 1 {
		t.Errorf("timeout fetches = %v, want 1", got)
	}
}

func TestRowsStoredAndGauge(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RowsStored("vix_futures", 8, 1)
	m.RowsStored("vix_futures", 0, 9)
	m.SetGatewayConnected(true)
	m.SetGatewayConnected(false)

	if got := testutil.ToFloat64(m.RowsWritten.WithLabelValues("vix_futures")); got != 8 {
		t.Errorf("rows written = %v, want 8", got)
	}
	if got := testutil.ToFloat64(m.RowsConflicted.WithLabelValues("vix_futures")); got != 10 {
		t.Errorf("rows conflicted = %v, want 10", got)
	}
	if got := testutil.ToFloat64(m.GatewayConnected); got != 0 {
		t.Errorf("gateway connected = %v, want 0", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.CycleFinished(OutcomeOK, time.Second)
	m.ContractFetched("timeout")
	m.IndexFetched(false)
	m.RowsStored("vix_index", 1, 0)
	m.SetGatewayConnected(true)
}
