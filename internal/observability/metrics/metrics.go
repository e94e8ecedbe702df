package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters/histograms for the scheduling flows.
type SchedulingMetrics struct {
	requestsTotal       *prometheus.CounterVec
	requestLatency      *prometheus.HistogramVec
	bookingsTotal       *prometheus.CounterVec
	slotsComputed       prometheus.Histogram
	vendorRequestsTotal *prometheus.CounterVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ridgeline",
			Subsystem: "scheduling",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by route and status",
		}, []string{"route", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ridgeline",
			Subsystem: "scheduling",
			Name:      "http_request_latency_seconds",
			Help:      "Latency of HTTP request handling",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ridgeline",
			Subsystem: "scheduling",
			Name:      "bookings_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
		slotsComputed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ridgeline",
			Subsystem: "scheduling",
			Name:      "availability_slots",
			Help:      "Slots returned per availability request",
			Buckets:   []float64{0, 1, 2, 4, 8, 12, 16, 24},
		}),
		vendorRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ridgeline",
			Subsystem: "scheduling",
			Name:      "vendor_requests_total",
			Help:      "Upstream vendor calls by target and status",
		}, []string{"target", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requestsTotal, m.requestLatency, m.bookingsTotal, m.slotsComputed, m.vendorRequestsTotal)
	return m
}

func (m *SchedulingMetrics) ObserveRequest(route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(route, status).Inc()
	m.requestLatency.WithLabelValues(route).Observe(seconds)
}

func (m *SchedulingMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *SchedulingMetrics) ObserveSlotCount(count int) {
	if m == nil {
		return
	}
	m.slotsComputed.Observe(float64(count))
}

func (m *SchedulingMetrics) ObserveVendorRequest(target, status string) {
	if m == nil {
		return
	}
	m.vendorRequestsTotal.WithLabelValues(target, status).Inc()
}
