// Package metrics provides Prometheus metrics for the embedded-form
// controller.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "embedform"

// Collector holds the controller metrics. A nil *Collector records nothing.
type Collector struct {
	FragmentLoads    *prometheus.CounterVec
	Submissions      *prometheus.CounterVec
	OverlayOpens     *prometheus.CounterVec
	ListingRefreshes *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
}

// New creates a collector registered with the default registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		FragmentLoads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fragment_loads_total",
				Help:      "Total number of fragment loads by target",
			},
			[]string{"target", "result"},
		),
		Submissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "submissions_total",
				Help:      "Total number of form submissions by container and outcome",
			},
			[]string{"container", "outcome"},
		),
		OverlayOpens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "overlay_opens_total",
				Help:      "Total number of overlay trigger activations",
			},
			[]string{"mode"},
		),
		ListingRefreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "listing_refreshes_total",
				Help:      "Total number of listing refreshes",
			},
			[]string{"result"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Fragment request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"op"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "inflight_requests",
				Help:      "Number of fragment requests currently outstanding",
			},
		),
	}
}

// LoadFinished records a completed fragment load.
func (c *Collector) LoadFinished(target, result string) {
	if c == nil {
		return
	}
	c.FragmentLoads.WithLabelValues(target, result).Inc()
}

// SubmissionFinished records a completed submission.
func (c *Collector) SubmissionFinished(container, outcome string) {
	if c == nil {
		return
	}
	c.Submissions.WithLabelValues(container, outcome).Inc()
}

// OverlayOpened records an overlay trigger; mode is "overlay" or "navigate".
func (c *Collector) OverlayOpened(mode string) {
	if c == nil {
		return
	}
	c.OverlayOpens.WithLabelValues(mode).Inc()
}

// ListingRefreshed records a listing refresh.
func (c *Collector) ListingRefreshed(result string) {
	if c == nil {
		return
	}
	c.ListingRefreshes.WithLabelValues(result).Inc()
}

// StartRequest marks a request in flight and returns a func that records its
// duration under op.
func (c *Collector) StartRequest(op string) func() {
	if c == nil {
		return func() {}
	}
	c.RequestsInFlight.Inc()
	started := time.Now()
	return func() {
		c.RequestsInFlight.Dec()
		c.RequestDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
	}
}
