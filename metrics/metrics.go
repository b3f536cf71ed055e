// Package metrics exposes ingest measurements to Prometheus.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/poiesic/ifcingest/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ifcingest"

// Result label values of the ingest counter.
const (
	ResultOK                = "ok"
	ResultUnsupportedSchema = "unsupported_schema"
	ResultIO                = "io"
	ResultError             = "error"
)

// Metrics records pipeline measurements in its own registry.
type Metrics struct {
	registry *prometheus.Registry
	ingests  *prometheus.CounterVec
	copied   *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

// New creates the ingest collectors and registers them, together with the
// Go runtime and process collectors, in a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ingests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ingests_total",
				Help:      "Total number of finished ingests",
			},
			[]string{"variant", "result"},
		),
		copied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "entities_copied_total",
				Help:      "Total number of entities written to normalized copies",
			},
			[]string{"variant"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ingest_duration_seconds",
				Help:      "Duration of ingests",
				Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
			},
			[]string{"variant"},
		),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ingests_in_flight",
			Help:      "Number of ingests currently running",
		}),
	}

	m.registry.MustRegister(
		m.ingests,
		m.copied,
		m.duration,
		m.inFlight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// IngestStarted marks an ingest as running.
func (m *Metrics) IngestStarted() {
	m.inFlight.Inc()
}

// IngestFinished records the outcome of an ingest.
func (m *Metrics) IngestFinished(variant core.SchemaVariant, copied int, elapsed time.Duration, err error) {
	m.inFlight.Dec()
	v := variant.String()
	m.ingests.WithLabelValues(v, resultOf(err)).Inc()
	m.duration.WithLabelValues(v).Observe(elapsed.Seconds())
	if err == nil {
		m.copied.WithLabelValues(v).Add(float64(copied))
	}
}

// WatchStore exports the number of registered models reported by size.
func (m *Metrics) WatchStore(size func() int) error {
	return m.registry.Register(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_models",
			Help:      "Number of models registered in the model store",
		},
		func() float64 { return float64(size()) },
	))
}

// Registry returns the registry the collectors are registered in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, core.ErrUnsupportedSchema):
		return ResultUnsupportedSchema
	case errors.Is(err, core.ErrIO):
		return ResultIO
	default:
		return ResultError
	}
}
