package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Refresh outcomes
const (
	RefreshApplied = "applied"
	RefreshStale   = "stale"
	RefreshFailed  = "failed"
)

// Collector holds the Prometheus metrics of the graph engine. Each collector
// owns its registry so tests can create as many as they like.
//
// All methods are nil-safe: a nil *Collector records nothing.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	Refreshes      *prometheus.CounterVec
	Edits          *prometheus.CounterVec
	LayoutDuration *prometheus.HistogramVec
	LayoutNodes    prometheus.Histogram
	ActiveViews    prometheus.Gauge
}

// NewCollector creates a collector with metrics under namespace
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		Refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "graph_refreshes_total",
				Help:      "Graph refreshes by outcome (applied, stale, failed)",
			},
			[]string{"outcome"},
		),
		Edits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "graph_edits_total",
				Help:      "Entity and relation edits by kind, operation and status",
			},
			[]string{"kind", "operation", "status"},
		),
		LayoutDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "layout_duration_seconds",
				Help:      "Time spent computing a layout strategy",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
			},
			[]string{"mode"},
		),
		LayoutNodes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "layout_nodes",
				Help:      "Number of nodes per layout computation",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 7),
			},
		),
		ActiveViews: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_views",
				Help:      "Number of open graph view sessions",
			},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.Refreshes,
		c.Edits,
		c.LayoutDuration,
		c.LayoutNodes,
		c.ActiveViews,
	)

	return c
}

// ObserveRefresh counts one refresh outcome
func (c *Collector) ObserveRefresh(outcome string) {
	if c == nil {
		return
	}
	c.Refreshes.WithLabelValues(outcome).Inc()
}

// ObserveEdit counts one edit attempt
func (c *Collector) ObserveEdit(kind, operation string, err error) {
	if c == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.Edits.WithLabelValues(kind, operation, status).Inc()
}

// ObserveLayout records one layout computation
func (c *Collector) ObserveLayout(mode string, nodes int, took time.Duration) {
	if c == nil {
		return
	}
	c.LayoutDuration.WithLabelValues(mode).Observe(took.Seconds())
	c.LayoutNodes.Observe(float64(nodes))
}

// ObserveHTTP records one served request
func (c *Collector) ObserveHTTP(method, route, status string, took time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, status).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(took.Seconds())
}

// SetActiveViews reports the current number of view sessions
func (c *Collector) SetActiveViews(n int) {
	if c == nil {
		return
	}
	c.ActiveViews.Set(float64(n))
}

// GetRegistry returns the Prometheus registry for this collector
func (c *Collector) GetRegistry() *prometheus.Registry {
	return c.registry
}

// Handler exposes the registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
