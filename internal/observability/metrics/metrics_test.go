package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSchedulingMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSchedulingMetrics(reg)

	m.ObserveBooking("default", "booked")
	m.ObserveBooking("default", "booked")
	m.ObserveBooking("override", "conflict")
	m.ObserveAvailabilityLatency("default", 0.02)

	if got := testutil.ToFloat64(m.bookingTotal.WithLabelValues("default", "booked")); got != 2 {
		t.Fatalf("booked count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.bookingTotal.WithLabelValues("override", "conflict")); got != 1 {
		t.Fatalf("conflict count = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(m.availabilityLatency, "mediflow_scheduling_availability_latency_seconds"); n != 1 {
		t.Fatalf("latency series = %d, want 1", n)
	}
}

func TestPrescriptionMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrescriptionMetrics(reg)

	m.ObserveTransition("READY_FOR_PICKUP")
	m.ObserveExpiredSwept(3)
	m.ObserveExpiredSwept(0)

	if got := testutil.ToFloat64(m.transitionTotal.WithLabelValues("READY_FOR_PICKUP")); got != 1 {
		t.Fatalf("transition count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.expiredSwept); got != 3 {
		t.Fatalf("swept count = %v, want 3", got)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var s *SchedulingMetrics
	var p *PrescriptionMetrics

	// Must not panic when metrics are disabled.
	s.ObserveBooking("default", "booked")
	s.ObserveAvailabilityLatency("default", 0.1)
	p.ObserveTransition("PURCHASED")
	p.ObserveExpiredSwept(1)
}
