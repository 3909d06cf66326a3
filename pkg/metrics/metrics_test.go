package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveCycle("main", time.Millisecond)
	m.RecordRelocation("draw")
	m.RecordRelocationError()
	m.RecordDispatchPush()
	m.RecordDispatchFired(1, 2)
	m.RecordSyncCall("ok")
}

func TestRegistersOnCustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(WithRegistry(reg), WithNamespace("test"))

	m.ObserveCycle("main", 2*time.Millisecond)
	m.ObserveCycle("main", 3*time.Millisecond)
	m.RecordRelocation("draw")
	m.RecordDispatchFired(2, 1)

	if got := testutil.ToFloat64(m.cyclesTotal.WithLabelValues("main")); got != 2 {
		t.Errorf("runner_cycles_total{runner=main} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.relocationsTotal.WithLabelValues("draw")); got != 1 {
		t.Errorf("relocations_total{kind=draw} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.dispatchFired); got != 2 {
		t.Errorf("dispatch_fired_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.dispatchDropped); got != 1 {
		t.Errorf("dispatch_dropped_total = %v, want 1", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	if len(families) == 0 {
		t.Error("no metric families registered")
	}
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(WithRegistry(reg))

	defer func() {
		if recover() == nil {
			t.Error("second New() on the same registry did not panic")
		}
	}()
	New(WithRegistry(reg))
}
