// Package metrics exposes schema build and HTTP statistics to Prometheus.
package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hanpama/plugraph/internal/eventbus"
	"github.com/hanpama/plugraph/internal/events"
)

const namespace = "plugraph"

// Metrics holds the collectors of one process.
type Metrics struct {
	// Builds counts finished schema builds by result.
	Builds *prometheus.CounterVec
	// BuildDuration measures schema builds.
	BuildDuration prometheus.Histogram
	// SchemaTypes is the type count of the last successful build.
	SchemaTypes prometheus.Gauge
	// HookFailures counts failed plugin hooks by plugin and hook.
	HookFailures *prometheus.CounterVec
	// HTTPRequests counts served requests by path and status code.
	HTTPRequests *prometheus.CounterVec
	// HTTPDuration measures served requests by path.
	HTTPDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Builds: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "schema",
			Name:      "builds_total",
			Help:      "Total number of schema builds",
		}, []string{"result"}),
		BuildDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "schema",
			Name:      "build_duration_seconds",
			Help:      "Duration of schema builds in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		SchemaTypes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "schema",
			Name:      "types",
			Help:      "Number of types in the last built schema",
		}),
		HookFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "plugin",
			Name:      "hook_failures_total",
			Help:      "Total number of failed plugin hooks",
		}, []string{"plugin", "hook"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"path", "code"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path"}),
	}
}

// Subscribe records the events published on bus. The returned function
// removes the subscriptions.
func (m *Metrics) Subscribe(bus *eventbus.Bus) (unsubscribe func()) {
	unsubs := []func(){
		eventbus.Subscribe(bus, func(_ context.Context, e events.BuildFinish) {
			result := "success"
			if e.Err != nil {
				result = "failure"
			} else {
				m.SchemaTypes.Set(float64(e.Types))
			}
			m.Builds.WithLabelValues(result).Inc()
			m.BuildDuration.Observe(e.Duration.Seconds())
		}),
		eventbus.Subscribe(bus, func(_ context.Context, e events.PluginHookFailed) {
			m.HookFailures.WithLabelValues(e.Plugin, e.Hook).Inc()
		}),
		eventbus.Subscribe(bus, func(_ context.Context, e events.HTTPFinish) {
			path := e.Request.URL.Path
			m.HTTPRequests.WithLabelValues(path, strconv.Itoa(e.Status)).Inc()
			m.HTTPDuration.WithLabelValues(path).Observe(e.Duration.Seconds())
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
