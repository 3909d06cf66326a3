// Package metrics exposes Prometheus instrumentation for the runtime:
// runner cycle counts and durations, server relocations, dispatch registry
// traffic, and cross-thread call outcomes.
//
// All record methods are nil-safe so instrumentation stays optional: a nil
// *Metrics records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures metric registration.
type Config struct {
	// Namespace is the metrics namespace (default: "strand").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for cycle duration in seconds.
	// Default: prometheus.DefBuckets.
	Buckets []float64

	// Registry is the Prometheus registerer to use.
	// Default: prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// Option configures metric registration.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the cycle duration histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registerer.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "strand",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the runtime's Prometheus collectors.
type Metrics struct {
	cyclesTotal      *prometheus.CounterVec
	cycleDuration    *prometheus.HistogramVec
	relocationsTotal *prometheus.CounterVec
	relocationErrors prometheus.Counter
	dispatchPushed   prometheus.Counter
	dispatchFired    prometheus.Counter
	dispatchDropped  prometheus.Counter
	syncCallsTotal   *prometheus.CounterVec
}

// New registers the runtime collectors and returns the recording surface.
func New(opts ...Option) *Metrics {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	factory := promauto.With(cfg.Registry)

	return &Metrics{
		cyclesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "runner_cycles_total",
			Help:        "Runner cycles executed, by runner.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"runner"}),
		cycleDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Name:        "runner_cycle_duration_seconds",
			Help:        "Paced runner cycle duration (work plus frequency sleep), by runner.",
			Buckets:     cfg.Buckets,
			ConstLabels: cfg.ConstLabels,
		}, []string{"runner"}),
		relocationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "relocations_total",
			Help:        "Completed server relocations, by server kind.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"kind"}),
		relocationErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "relocation_errors_total",
			Help:        "Failed server relocations.",
			ConstLabels: cfg.ConstLabels,
		}),
		dispatchPushed: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "dispatch_pushed_total",
			Help:        "Callbacks registered in the dispatch list.",
			ConstLabels: cfg.ConstLabels,
		}),
		dispatchFired: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "dispatch_fired_total",
			Help:        "Dispatch callbacks fired.",
			ConstLabels: cfg.ConstLabels,
		}),
		dispatchDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "dispatch_dropped_total",
			Help:        "Dispatch fires that found no live entry (cancelled or already fired).",
			ConstLabels: cfg.ConstLabels,
		}),
		syncCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Name:        "sync_calls_total",
			Help:        "Cross-thread synchronous calls, by result.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"result"}),
	}
}

// ObserveCycle records one paced cycle for the named runner.
func (m *Metrics) ObserveCycle(runner string, d time.Duration) {
	if m == nil {
		return
	}
	m.cyclesTotal.WithLabelValues(runner).Inc()
	m.cycleDuration.WithLabelValues(runner).Observe(d.Seconds())
}

// RecordRelocation records a completed relocation of the given kind.
func (m *Metrics) RecordRelocation(kind string) {
	if m == nil {
		return
	}
	m.relocationsTotal.WithLabelValues(kind).Inc()
}

// RecordRelocationError records a failed relocation.
func (m *Metrics) RecordRelocationError() {
	if m == nil {
		return
	}
	m.relocationErrors.Inc()
}

// RecordDispatchPush records a registered callback.
func (m *Metrics) RecordDispatchPush() {
	if m == nil {
		return
	}
	m.dispatchPushed.Inc()
}

// RecordDispatchFired records fired and dropped counts from one trigger.
func (m *Metrics) RecordDispatchFired(fired, dropped int) {
	if m == nil {
		return
	}
	m.dispatchFired.Add(float64(fired))
	m.dispatchDropped.Add(float64(dropped))
}

// RecordSyncCall records a cross-thread call outcome ("ok", "timeout",
// "type_mismatch", "error").
func (m *Metrics) RecordSyncCall(result string) {
	if m == nil {
		return
	}
	m.syncCallsTotal.WithLabelValues(result).Inc()
}
