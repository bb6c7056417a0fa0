// Package observability holds the stage's Prometheus metrics and
// OpenTelemetry tracing setup.
package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Load and export outcomes used as label values.
const (
	ResultOK        = "ok"
	ResultCancelled = "cancelled"
	ResultFailed    = "failed"
)

// Collector bundles the stage metrics. A nil *Collector is valid and
// records nothing.
type Collector struct {
	gatherer prometheus.Gatherer

	Loads           *prometheus.CounterVec
	LoadDuration    prometheus.Histogram
	Exports         *prometheus.CounterVec
	VariantSwitches prometheus.Counter
	Renders         prometheus.Counter
	BoundingRadius  prometheus.Gauge
}

// NewCollector registers the stage metrics against reg, defaulting to the
// global registry when nil. Registering twice returns the existing metrics.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	loads, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "modelstage_loads_total",
		Help: "Model loads, labeled by result (ok, cancelled, failed).",
	}, []string{"result"}), "modelstage_loads_total")
	if err != nil {
		return nil, err
	}
	duration, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "modelstage_load_duration_seconds",
		Help:    "Time to fetch, decode and correlate a model.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}), "modelstage_load_duration_seconds")
	if err != nil {
		return nil, err
	}
	exports, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "modelstage_exports_total",
		Help: "Scene exports, labeled by format (gltf, glb) and result.",
	}, []string{"format", "result"}), "modelstage_exports_total")
	if err != nil {
		return nil, err
	}
	switches, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "modelstage_variant_switches_total",
		Help: "Applied material variant switches.",
	}), "modelstage_variant_switches_total")
	if err != nil {
		return nil, err
	}
	renders, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "modelstage_renders_total",
		Help: "Frames reported as rendered.",
	}), "modelstage_renders_total")
	if err != nil {
		return nil, err
	}
	radius, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "modelstage_bounding_radius",
		Help: "Bounding radius of the current model.",
	}), "modelstage_bounding_radius")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:        gatherer,
		Loads:           loads,
		LoadDuration:    duration,
		Exports:         exports,
		VariantSwitches: switches,
		Renders:         renders,
		BoundingRadius:  radius,
	}, nil
}

// ObserveLoad records one finished load.
func (c *Collector) ObserveLoad(result string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.Loads.WithLabelValues(result).Inc()
	if result == ResultOK {
		c.LoadDuration.Observe(elapsed.Seconds())
	}
}

// ObserveExport records one finished export.
func (c *Collector) ObserveExport(binary bool, result string) {
	if c == nil {
		return
	}
	format := "gltf"
	if binary {
		format = "glb"
	}
	c.Exports.WithLabelValues(format, result).Inc()
}

// IncVariantSwitch records an applied variant switch.
func (c *Collector) IncVariantSwitch() {
	if c == nil {
		return
	}
	c.VariantSwitches.Inc()
}

// IncRender records a rendered frame.
func (c *Collector) IncRender() {
	if c == nil {
		return
	}
	c.Renders.Inc()
}

// SetBoundingRadius publishes the current model's bounding radius.
func (c *Collector) SetBoundingRadius(r float64) {
	if c == nil {
		return
	}
	c.BoundingRadius.Set(r)
}

// Handler exposes a /metrics handler for the collector's registry.
func (c *Collector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T, name string) (T, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		var zero T
		return zero, err
	}
	return c, nil
}
