package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, "api")

	m.Reservation("reserved")
	m.Reservation("reserved")
	m.Reservation("insufficient")
	m.Released(3)
	m.OrderOp("create", nil)
	m.OrderOp("create", errors.New("boom"))
	m.Request("/orders", 201, 12*time.Millisecond)

	if got := testutil.ToFloat64(m.Reservations.WithLabelValues("reserved")); got != 2 {
		t.Errorf("expected 2 reserved, got %v", got)
	}
	if got := testutil.ToFloat64(m.Reservations.WithLabelValues("insufficient")); got != 1 {
		t.Errorf("expected 1 insufficient, got %v", got)
	}
	if got := testutil.ToFloat64(m.Releases); got != 3 {
		t.Errorf("expected 3 released, got %v", got)
	}
	if got := testutil.ToFloat64(m.OrderOps.WithLabelValues("create", "error")); got != 1 {
		t.Errorf("expected 1 failed create, got %v", got)
	}
	if got := testutil.ToFloat64(m.Requests.WithLabelValues("/orders", "201")); got != 1 {
		t.Errorf("expected 1 request, got %v", got)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.Reservation("reserved")
	m.Released(1)
	m.OrderOp("cancel", nil)
	m.Request("/", 200, time.Millisecond)
}
