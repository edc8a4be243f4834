package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/prerender-tools/cachectl/pkg/models"
)

// Metrics counts calls made against the cache store. All methods are safe
// on a nil receiver so callers can run without metrics.
type Metrics struct {
	registry *prometheus.Registry

	submissions    *prometheus.CounterVec
	deletes        *prometheus.CounterVec
	snapshots      *prometheus.CounterVec
	snapshotURLs   prometheus.Gauge
	callDuration   *prometheus.HistogramVec
	sitemapSkipped prometheus.Counter
}

// New registers the cachectl collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		submissions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cachectl_recache_requests_total",
				Help: "Recache requests sent to the store.",
			},
			[]string{"variant", "outcome"},
		),
		deletes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cachectl_delete_requests_total",
				Help: "Delete requests sent to the store.",
			},
			[]string{"outcome"},
		),
		snapshots: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cachectl_snapshot_fetches_total",
				Help: "Cache listing fetches.",
			},
			[]string{"outcome"},
		),
		snapshotURLs: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "cachectl_snapshot_urls",
				Help: "Distinct URLs in the last fetched listing.",
			},
		),
		callDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cachectl_store_call_duration_seconds",
				Help:    "Duration of calls made to the store.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"op"},
		),
		sitemapSkipped: f.NewCounter(
			prometheus.CounterOpts{
				Name: "cachectl_sitemap_skipped_urls_total",
				Help: "Sitemap URLs skipped because they were already cached.",
			},
		),
	}
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// ObserveSubmission records one recache request.
func (m *Metrics) ObserveSubmission(v models.Variant, ok bool, d time.Duration) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(string(v), outcome(ok)).Inc()
	m.callDuration.WithLabelValues(string(models.OpRecache)).Observe(d.Seconds())
}

// ObserveDelete records one delete request.
func (m *Metrics) ObserveDelete(ok bool, d time.Duration) {
	if m == nil {
		return
	}
	m.deletes.WithLabelValues(outcome(ok)).Inc()
	m.callDuration.WithLabelValues(string(models.OpDelete)).Observe(d.Seconds())
}

// ObserveSnapshot records one listing fetch. urls is ignored on failure.
func (m *Metrics) ObserveSnapshot(ok bool, urls int, d time.Duration) {
	if m == nil {
		return
	}
	m.snapshots.WithLabelValues(outcome(ok)).Inc()
	m.callDuration.WithLabelValues("list").Observe(d.Seconds())
	if ok {
		m.snapshotURLs.Set(float64(urls))
	}
}

// ObserveSitemapSkipped records URLs dropped by sitemap deduplication.
func (m *Metrics) ObserveSitemapSkipped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sitemapSkipped.Add(float64(n))
}

// Registry exposes the underlying registry, e.g. for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// WriteTextfile writes the current values in the node_exporter textfile
// collector format. An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
