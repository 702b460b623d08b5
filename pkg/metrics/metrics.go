// Package metrics exposes Prometheus collectors for searches, the fallback
// index and live suggestion sessions.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/panchamjain/suvidha/pkg/remote"
	"github.com/panchamjain/suvidha/pkg/search"
)

const namespace = "suvidha"

// Metrics owns a private registry. It implements search.Observer.
type Metrics struct {
	registry *prometheus.Registry

	searches       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	results        prometheus.Histogram
	remoteErrors   *prometheus.CounterVec
	indexEntries   prometheus.Gauge
	refreshes      *prometheus.CounterVec
	lastRefresh    prometheus.Gauge
	activeSessions prometheus.Gauge
}

// New creates the collectors and registers them, plus the Go runtime and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Searches served, by result source.",
		}, []string{"source"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Time to answer a search, by result source.",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),
		results: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results",
			Help:      "Number of results returned per search.",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32},
		}),
		remoteErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_errors_total",
			Help:      "Remote search failures, by kind.",
		}, []string{"kind"}),
		indexEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_entries",
			Help:      "Entries in the local fallback index.",
		}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_refreshes_total",
			Help:      "Catalog refresh attempts, by result.",
		}, []string{"result"}),
		lastRefresh: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_last_refresh_timestamp_seconds",
			Help:      "Unix time of the last successful catalog refresh.",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "suggest_sessions",
			Help:      "Open live suggestion sessions.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.searches, m.duration, m.results, m.remoteErrors,
		m.indexEntries, m.refreshes, m.lastRefresh, m.activeSessions,
	)
	return m
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveSearch records a completed search.
func (m *Metrics) ObserveSearch(o search.Outcome, elapsed time.Duration) {
	source := string(o.Source)
	m.searches.WithLabelValues(source).Inc()
	m.duration.WithLabelValues(source).Observe(elapsed.Seconds())
	m.results.Observe(float64(o.Count))
	if o.Err != nil {
		m.remoteErrors.WithLabelValues(ErrorKind(o.Err)).Inc()
	}
}

// SetIndexEntries publishes the size of the fallback index.
func (m *Metrics) SetIndexEntries(n int) {
	m.indexEntries.Set(float64(n))
}

// ObserveRefresh records a catalog refresh attempt.
func (m *Metrics) ObserveRefresh(at time.Time, err error) {
	if err != nil {
		m.refreshes.WithLabelValues("error").Inc()
		return
	}
	m.refreshes.WithLabelValues("ok").Inc()
	m.lastRefresh.Set(float64(at.Unix()))
}

// SessionOpened and SessionClosed track live suggestion connections.
func (m *Metrics) SessionOpened() { m.activeSessions.Inc() }

func (m *Metrics) SessionClosed() { m.activeSessions.Dec() }

// ErrorKind classifies a remote search failure for labeling.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, remote.ErrStatus):
		return "status"
	case errors.Is(err, remote.ErrDecode):
		return "decode"
	case errors.Is(err, remote.ErrUnrecognizedShape):
		return "shape"
	case errors.Is(err, remote.ErrTransport):
		return "transport"
	default:
		return "other"
	}
}
