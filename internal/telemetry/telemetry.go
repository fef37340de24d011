// Package telemetry exposes Prometheus counters and histograms for the
// cache, the metric computations, the upstream ledger and the HTTP server.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ynabmetrics"

type Recorder struct {
	registry *prometheus.Registry

	cacheEvents      *prometheus.CounterVec
	computeDuration  *prometheus.HistogramVec
	computeFailures  *prometheus.CounterVec
	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	invalidations    *prometheus.CounterVec
}

// New creates a recorder backed by its own registry, with the Go runtime
// and process collectors attached.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		cacheEvents: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_events_total",
				Help:      "Cache lookups by metric and outcome (hit, miss, compute_failed)",
			},
			[]string{"metric", "event"},
		),
		computeDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "metric_compute_duration_seconds",
				Help:      "Time spent recomputing a metric, ledger reads included",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"metric"},
		),
		computeFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "metric_compute_failures_total",
				Help:      "Failed metric computations by error kind",
			},
			[]string{"metric", "kind"},
		),
		upstreamRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_requests_total",
				Help:      "Requests sent to the ledger provider by endpoint and status code",
			},
			[]string{"endpoint", "code"},
		),
		upstreamDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_request_duration_seconds",
				Help:      "Ledger provider round trip time",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"endpoint"},
		),
		httpRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests served by route and status code",
			},
			[]string{"method", "route", "code"},
		),
		httpDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by route",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		invalidations: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_invalidations_total",
				Help:      "Cache clears by source (http, amqp)",
			},
			[]string{"source"},
		),
	}
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the exposition format for the recorder's registry.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Recorder) Hit(key string)  { r.cacheEvents.WithLabelValues(key, "hit").Inc() }
func (r *Recorder) Miss(key string) { r.cacheEvents.WithLabelValues(key, "miss").Inc() }
func (r *Recorder) ComputeFailed(key string) {
	r.cacheEvents.WithLabelValues(key, "compute_failed").Inc()
}

// KindFunc maps an error to a low-cardinality label.
type KindFunc func(error) string

// ComputeRecorder records metric computations, labelling failures with kind.
type ComputeRecorder struct {
	r    *Recorder
	kind KindFunc
}

// Compute returns a ComputeRecorder backed by r.
func (r *Recorder) Compute(kind KindFunc) *ComputeRecorder {
	return &ComputeRecorder{r: r, kind: kind}
}

func (o *ComputeRecorder) ObserveCompute(metric string, elapsed time.Duration, err error) {
	o.r.computeDuration.WithLabelValues(metric).Observe(elapsed.Seconds())
	if err != nil {
		o.r.computeFailures.WithLabelValues(metric, o.kind(err)).Inc()
	}
}

// ObserveUpstream records one ledger provider round trip. Status 0 means
// the request never got a response.
func (r *Recorder) ObserveUpstream(endpoint string, status int, elapsed time.Duration) {
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	r.upstreamRequests.WithLabelValues(endpoint, code).Inc()
	r.upstreamDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// ObserveHTTP records one served request.
func (r *Recorder) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// CacheInvalidated counts a cache clear triggered from source.
func (r *Recorder) CacheInvalidated(source string) {
	r.invalidations.WithLabelValues(source).Inc()
}
