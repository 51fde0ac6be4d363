// Package metrics exposes import and query outcomes to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/orderimport/internal/core"
)

// Registry owns a private Prometheus registry and implements core.Metrics.
type Registry struct {
	reg *prometheus.Registry

	Imports         *prometheus.CounterVec
	ImportDuration  *prometheus.HistogramVec
	LineItems       prometheus.Counter
	Queries         *prometheus.CounterVec
	QueryDuration   prometheus.Histogram
	HTTPRequests    *prometheus.CounterVec
	HTTPDurationSec *prometheus.HistogramVec
}

// NewRegistry creates and registers all collectors.
func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	imports := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orderimport_imports_total",
		Help: "Import attempts by outcome.",
	}, []string{"outcome"})
	importDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orderimport_import_duration_seconds",
		Help:    "Import duration by outcome.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	lineItems := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orderimport_line_items_imported_total",
		Help: "Line items committed by successful imports.",
	})
	queries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orderimport_queries_total",
		Help: "Order queries by outcome.",
	}, []string{"outcome"})
	queryDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "orderimport_query_duration_seconds",
		Help:    "Order query duration.",
		Buckets: prometheus.DefBuckets,
	})
	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orderimport_http_requests_total",
		Help: "HTTP requests by route pattern and status code.",
	}, []string{"route", "status"})
	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orderimport_http_request_duration_seconds",
		Help:    "HTTP request duration by route pattern.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	r.MustRegister(imports, importDuration, lineItems, queries, queryDuration, httpRequests, httpDuration)

	return &Registry{
		reg:             r,
		Imports:         imports,
		ImportDuration:  importDuration,
		LineItems:       lineItems,
		Queries:         queries,
		QueryDuration:   queryDuration,
		HTTPRequests:    httpRequests,
		HTTPDurationSec: httpDuration,
	}
}

// ImportFinished records one import attempt.
func (r *Registry) ImportFinished(outcome string, lineItems int, d time.Duration) {
	r.Imports.WithLabelValues(outcome).Inc()
	r.ImportDuration.WithLabelValues(outcome).Observe(d.Seconds())
	if outcome == core.OutcomeImported {
		r.LineItems.Add(float64(lineItems))
	}
}

// QueryFinished records one order query.
func (r *Registry) QueryFinished(outcome string, d time.Duration) {
	r.Queries.WithLabelValues(outcome).Inc()
	r.QueryDuration.Observe(d.Seconds())
}

// RequestFinished records one HTTP request.
func (r *Registry) RequestFinished(route string, status int, d time.Duration) {
	r.HTTPRequests.WithLabelValues(route, statusLabel(status)).Inc()
	r.HTTPDurationSec.WithLabelValues(route).Observe(d.Seconds())
}

// TrackActiveImports exposes the value of fn as a gauge sampled at scrape time.
func (r *Registry) TrackActiveImports(fn func() int) {
	r.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "orderimport_active_imports",
		Help: "Imports currently holding a slot.",
	}, func() float64 { return float64(fn()) }))
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
