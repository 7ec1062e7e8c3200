// Package metrics exports oracle activity as Prometheus metrics on a
// registry owned by the collector.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danielpatrickdp/hexagram-oracle/internal/casting"
	"github.com/danielpatrickdp/hexagram-oracle/internal/engine"
	"github.com/danielpatrickdp/hexagram-oracle/internal/faults"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "oracle"

// #region collector
// Collector holds the oracle's Prometheus metrics. It implements
// engine.Observer so it can be handed straight to the engine.
type Collector struct {
	registry *prometheus.Registry

	Readings       *prometheus.CounterVec
	Lines          *prometheus.CounterVec
	MovingReadings prometheus.Counter
	CastFailures   *prometheus.CounterVec
	Fallbacks      prometheus.Counter

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

var _ engine.Observer = (*Collector)(nil)

// New creates a collector with its own registry. Every call returns an
// independent set of metrics, so tests can build as many as they like.
func New(namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	c := &Collector{
		registry: prometheus.NewRegistry(),
		Readings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "readings_total",
				Help:      "Readings cast, by casting method.",
			},
			[]string{"method"},
		),
		Lines: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lines_total",
				Help:      "Lines cast, by line value (6, 7, 8, 9).",
			},
			[]string{"value"},
		),
		MovingReadings: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "moving_readings_total",
				Help:      "Readings with at least one moving line.",
			},
		),
		CastFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cast_failures_total",
				Help:      "Failed casts, by casting method and error class.",
			},
			[]string{"method", "class"},
		),
		Fallbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "source_fallbacks_total",
				Help:      "Readings whose requested source fell back to the canonical one.",
			},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests served.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	c.registry.MustRegister(
		c.Readings,
		c.Lines,
		c.MovingReadings,
		c.CastFailures,
		c.Fallbacks,
		c.HTTPRequests,
		c.HTTPDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// #endregion collector

// #region observer
// ObserveReading counts a successful reading and its six lines.
func (c *Collector) ObserveReading(r *engine.Reading) {
	c.Readings.WithLabelValues(string(r.Method)).Inc()
	for _, v := range r.Primary.Lines {
		c.Lines.WithLabelValues(strconv.Itoa(int(v))).Inc()
	}
	if r.Primary.Lines.HasMoving() {
		c.MovingReadings.Inc()
	}
	if r.FellBack() {
		c.Fallbacks.Inc()
	}
}

// ObserveFailure counts a failed cast under the error's class.
func (c *Collector) ObserveFailure(method casting.Method, err error) {
	c.CastFailures.WithLabelValues(methodLabel(method), faults.Class(err)).Inc()
}

// methodLabel keeps caller-supplied method names out of label values.
func methodLabel(m casting.Method) string {
	for _, known := range casting.Methods {
		if m == known {
			return string(m)
		}
	}
	return "unknown"
}

// ObserveHTTP records one served request.
func (c *Collector) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// #endregion observer
