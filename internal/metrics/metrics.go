package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder receives pipeline counters. Implementations must tolerate being
// called from any stage.
type Recorder interface {
	// Request counts one outbound HTTP exchange on surface ("tracker", "llm").
	Request(surface, outcome string)
	// Retry counts one backoff sleep on surface for the given error class.
	Retry(surface, class string)
	// Unit counts one processed unit of work (issue, criterion, row) for stage.
	Unit(stage, outcome string)
}

// Nop discards every observation.
type Nop struct{}

func (Nop) Request(string, string) {}
func (Nop) Retry(string, string)   {}
func (Nop) Unit(string, string)    {}

// Registry keeps the counters in a private prometheus registry so they can be
// dumped to a node-exporter textfile at the end of a run.
type Registry struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	retries  *prometheus.CounterVec
	units    *prometheus.CounterVec
}

// NewRegistry creates the acr counters.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "acr",
			Name:      "requests_total",
			Help:      "Outbound HTTP requests by surface and outcome.",
		}, []string{"surface", "outcome"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "acr",
			Name:      "retries_total",
			Help:      "Backoff sleeps by surface and error class.",
		}, []string{"surface", "class"}),
		units: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "acr",
			Name:      "units_total",
			Help:      "Processed units of work by stage and outcome.",
		}, []string{"stage", "outcome"}),
	}
	r.registry.MustRegister(r.requests, r.retries, r.units)
	return r
}

func (r *Registry) Request(surface, outcome string) {
	r.requests.WithLabelValues(surface, outcome).Inc()
}

func (r *Registry) Retry(surface, class string) {
	r.retries.WithLabelValues(surface, class).Inc()
}

func (r *Registry) Unit(stage, outcome string) {
	r.units.WithLabelValues(stage, outcome).Inc()
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile writes the counters in the Prometheus text format. An empty
// path is a no-op.
func (r *Registry) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
