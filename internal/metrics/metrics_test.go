package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestMetricsExposition(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveFetch("success", 120*time.Millisecond)
	m.ObserveFetch("network", 10*time.Millisecond)
	m.ObserveResolution("applied")
	m.ObserveResolution("applied")
	m.ObserveResolution("dropped")
	m.IncStale()
	m.SetMarkers(3)
	m.SetGeneration(7)
	m.IncIntent("refresh")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	out := string(body)

	wants := []string{
		`venuescout_fetch_total{outcome="success"} 1`,
		`venuescout_fetch_total{outcome="network"} 1`,
		`venuescout_place_resolutions_total{outcome="applied"} 2`,
		`venuescout_place_resolutions_total{outcome="dropped"} 1`,
		`venuescout_stale_results_total 1`,
		`venuescout_markers 3`,
		`venuescout_reconcile_generation 7`,
		`venuescout_intents_total{kind="refresh"} 1`,
		`venuescout_fetch_duration_seconds_count 2`,
	}
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Errorf("Expected exposition to contain %q", want)
		}
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveFetch("success", time.Second)
	m.ObserveResolution("applied")
	m.IncStale()
	m.SetMarkers(1)
	m.SetGeneration(1)
	m.IncIntent("refresh")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Errorf("Expected 200 from nil metrics handler, got %d", rec.Code)
	}
}

func TestNewWithNilRegistry(t *testing.T) {
	a := New(nil)
	b := New(nil)
	a.SetMarkers(1)
	b.SetMarkers(2)
}
