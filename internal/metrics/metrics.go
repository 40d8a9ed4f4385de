// Package metrics exposes Prometheus collectors for the cleaning pipeline.
//
// Each Recorder owns its registry so tests and concurrent servers never
// collide on global registration. A nil *Recorder is valid and records
// nothing.
//
//	rec := metrics.New()
//	rec.ObserveRun(time.Since(start))
//	rec.AddRows(metrics.StageCleaned, res.Cleaned.Len())
//	http.Handle("/metrics", rec.Handler())
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Row stages reported by AddRows.
const (
	StageIngested        = "ingested"
	StageCleaned         = "cleaned"
	StageRemovedMissing  = "removed_missing"
	StageRemovedOutliers = "removed_outliers"
)

// Cache lookup results reported by CacheRequest.
const (
	CacheHit  = "hit"
	CacheMiss = "miss"
)

// Recorder groups the collectors of one process.
type Recorder struct {
	registry   *prometheus.Registry
	runs       prometheus.Counter
	rows       *prometheus.CounterVec
	cache      *prometheus.CounterVec
	duration   prometheus.Histogram
	loadErrors *prometheus.CounterVec
}

// New creates a Recorder with a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Recorder{
		registry: reg,
		runs: f.NewCounter(prometheus.CounterOpts{
			Name: "edaloom_pipeline_runs_total",
			Help: "Total number of completed pipeline runs",
		}),
		rows: f.NewCounterVec(prometheus.CounterOpts{
			Name: "edaloom_rows_total",
			Help: "Rows seen per pipeline stage",
		}, []string{"stage"}),
		cache: f.NewCounterVec(prometheus.CounterOpts{
			Name: "edaloom_cache_requests_total",
			Help: "Memo cache lookups by cache and result",
		}, []string{"cache", "result"}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "edaloom_pipeline_duration_seconds",
			Help:    "Wall time of a full load, clean and analyze run",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		}),
		loadErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "edaloom_load_errors_total",
			Help: "Dataset load failures by input format",
		}, []string{"format"}),
	}
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveRun counts a completed run and records its duration.
func (r *Recorder) ObserveRun(d time.Duration) {
	if r == nil {
		return
	}
	r.runs.Inc()
	r.duration.Observe(d.Seconds())
}

// AddRows adds n rows to the given stage.
func (r *Recorder) AddRows(stage string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.rows.WithLabelValues(stage).Add(float64(n))
}

// CacheRequest records one lookup against the named cache.
func (r *Recorder) CacheRequest(cache string, hit bool) {
	if r == nil {
		return
	}
	result := CacheMiss
	if hit {
		result = CacheHit
	}
	r.cache.WithLabelValues(cache, result).Inc()
}

// LoadError counts a failed load for format.
func (r *Recorder) LoadError(format string) {
	if r == nil {
		return
	}
	r.loadErrors.WithLabelValues(format).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
