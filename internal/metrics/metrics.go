// Package metrics exposes Prometheus collectors for fetches, place resolutions
// and the published marker set.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	fetchTotal   *prometheus.CounterVec
	fetchDur     prometheus.Histogram
	resolveTotal *prometheus.CounterVec
	staleTotal   prometheus.Counter
	markers      prometheus.Gauge
	generation   prometheus.Gauge
	lastFetchTS  prometheus.Gauge
	intentsTotal *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg uses a
// fresh private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{gatherer: reg}
	m.fetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "venuescout",
		Name:      "fetch_total",
		Help:      "Event record fetches by outcome",
	}, []string{"outcome"})
	m.fetchDur = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "venuescout",
		Name:      "fetch_duration_seconds",
		Help:      "Time spent fetching event records",
		Buckets:   prometheus.DefBuckets,
	})
	m.resolveTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "venuescout",
		Name:      "place_resolutions_total",
		Help:      "Place lookups applied to the marker set by outcome",
	}, []string{"outcome"})
	m.staleTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "venuescout",
		Name:      "stale_results_total",
		Help:      "Results discarded because a newer fetch or generation superseded them",
	})
	m.markers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "venuescout",
		Name:      "markers",
		Help:      "Markers currently published",
	})
	m.generation = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "venuescout",
		Name:      "reconcile_generation",
		Help:      "Current reconciliation generation",
	})
	m.lastFetchTS = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "venuescout",
		Name:      "last_successful_fetch_timestamp_seconds",
		Help:      "Unix timestamp of the last applied successful fetch",
	})
	m.intentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "venuescout",
		Name:      "intents_total",
		Help:      "User intents handled by kind",
	}, []string{"kind"})

	reg.MustRegister(
		m.fetchTotal, m.fetchDur, m.resolveTotal, m.staleTotal,
		m.markers, m.generation, m.lastFetchTS, m.intentsTotal,
	)
	return m
}

// Handler serves the registered collectors in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveFetch records one completed fetch.
func (m *Metrics) ObserveFetch(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.fetchTotal.WithLabelValues(outcome).Inc()
	m.fetchDur.Observe(d.Seconds())
	if outcome == "success" {
		m.lastFetchTS.SetToCurrentTime()
	}
}

// ObserveResolution records the outcome of applying one place result.
func (m *Metrics) ObserveResolution(outcome string) {
	if m == nil {
		return
	}
	m.resolveTotal.WithLabelValues(outcome).Inc()
}

// IncStale counts a discarded fetch completion or place result.
func (m *Metrics) IncStale() {
	if m == nil {
		return
	}
	m.staleTotal.Inc()
}

// SetMarkers records the size of the published marker set.
func (m *Metrics) SetMarkers(n int) {
	if m == nil {
		return
	}
	m.markers.Set(float64(n))
}

// SetGeneration records the current reconciliation generation.
func (m *Metrics) SetGeneration(gen uint64) {
	if m == nil {
		return
	}
	m.generation.Set(float64(gen))
}

// IncIntent counts one handled user intent.
func (m *Metrics) IncIntent(kind string) {
	if m == nil {
		return
	}
	m.intentsTotal.WithLabelValues(kind).Inc()
}
