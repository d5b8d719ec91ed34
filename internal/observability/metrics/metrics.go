package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters/histograms for availability and booking.
type SchedulingMetrics struct {
	bookingTotal        *prometheus.CounterVec
	availabilityLatency *prometheus.HistogramVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		bookingTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediflow",
			Subsystem: "scheduling",
			Name:      "booking_total",
			Help:      "Total booking attempts by mode and outcome",
		}, []string{"mode", "outcome"}),
		availabilityLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mediflow",
			Subsystem: "scheduling",
			Name:      "availability_latency_seconds",
			Help:      "Latency of availability resolution",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingTotal, m.availabilityLatency)
	return m
}

func (m *SchedulingMetrics) ObserveBooking(mode, outcome string) {
	if m == nil {
		return
	}
	m.bookingTotal.WithLabelValues(mode, outcome).Inc()
}

func (m *SchedulingMetrics) ObserveAvailabilityLatency(mode string, seconds float64) {
	if m == nil {
		return
	}
	m.availabilityLatency.WithLabelValues(mode).Observe(seconds)
}

// PrescriptionMetrics exposes counters for prescription lifecycle transitions.
type PrescriptionMetrics struct {
	transitionTotal *prometheus.CounterVec
	expiredSwept    prometheus.Counter
}

func NewPrescriptionMetrics(reg prometheus.Registerer) *PrescriptionMetrics {
	m := &PrescriptionMetrics{
		transitionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediflow",
			Subsystem: "prescriptions",
			Name:      "transition_total",
			Help:      "Total prescription lifecycle transitions by target status",
		}, []string{"to_status"}),
		expiredSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mediflow",
			Subsystem: "prescriptions",
			Name:      "expired_swept_total",
			Help:      "Total prescriptions moved to EXPIRED by the lazy sweep",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.transitionTotal, m.expiredSwept)
	return m
}

func (m *PrescriptionMetrics) ObserveTransition(toStatus string) {
	if m == nil {
		return
	}
	m.transitionTotal.WithLabelValues(toStatus).Inc()
}

func (m *PrescriptionMetrics) ObserveExpiredSwept(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.expiredSwept.Add(float64(count))
}
