package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func delta(t *testing.T, collector prometheus.Collector, observe func()) float64 {
	t.Helper()

	before := testutil.ToFloat64(collector)
	observe()
	after := testutil.ToFloat64(collector)
	return after - before
}

func TestLedgerRecords(t *testing.T) {
	m := NewLedger("")
	start := time.Now().Add(-100 * time.Millisecond)

	if inc := delta(t, ledgerRequestsTotal.WithLabelValues("call", "unknown", "success"), func() {
		m.Observe("call", nil, start)
	}); inc != 1 {
		t.Fatalf("expected ledger call counter increment, got %v", inc)
	}

	if inc := delta(t, ledgerRequestsTotal.WithLabelValues("filter_logs", "unknown", "error"), func() {
		m.Observe("filter_logs", errors.New("timeout"), start)
	}); inc != 1 {
		t.Fatalf("expected ledger error counter increment, got %v", inc)
	}
}

func TestReconcileRecords(t *testing.T) {
	m := NewReconcile("registry")

	if inc := delta(t, reconcileSkippedTotal.WithLabelValues("registry", SkipDuplicate), func() {
		m.Skip(SkipDuplicate)
	}); inc != 1 {
		t.Fatalf("expected skip counter increment, got %v", inc)
	}

	m.Observe(nil, time.Now())
	m.Observe(errors.New("schema"), time.Now())
}
