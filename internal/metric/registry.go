// Package metric wraps a Prometheus registry with duplicate-registration
// protection, shared by the row queue and the async database writer.
package metric

import (
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/5342/C5SIGMA/internal/xerrors"
)

// Registry manages the registration and lifecycle of metrics for a single run.
type Registry struct {
	prometheusRegistry *prometheus.Registry
	Core               *Metrics
	registered         map[string]prometheus.Collector
	mu                 sync.RWMutex
}

// NewRegistry creates a new metrics registry with the core pipeline metrics
// already registered, plus Go runtime and process collectors.
func NewRegistry() *Registry {
	promReg := prometheus.NewRegistry()

	r := &Registry{
		prometheusRegistry: promReg,
		registered:         make(map[string]prometheus.Collector),
	}

	r.Core = NewMetrics()
	r.registerCore()

	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// PrometheusRegistry returns the underlying Prometheus registry, e.g. for
// exposing it on an HTTP handler.
func (r *Registry) PrometheusRegistry() *prometheus.Registry {
	return r.prometheusRegistry
}

// RegisterCounter registers a counter metric under a component name.
func (r *Registry) RegisterCounter(component, name string, c prometheus.Counter) error {
	return r.register(component, name, c)
}

// RegisterGauge registers a gauge metric under a component name.
func (r *Registry) RegisterGauge(component, name string, g prometheus.Gauge) error {
	return r.register(component, name, g)
}

// RegisterHistogram registers a histogram metric under a component name.
func (r *Registry) RegisterHistogram(component, name string, h prometheus.Histogram) error {
	return r.register(component, name, h)
}

// RegisterCounterVec registers a counter vector metric under a component name.
func (r *Registry) RegisterCounterVec(component, name string, cv *prometheus.CounterVec) error {
	return r.register(component, name, cv)
}

// RegisterGaugeVec registers a gauge vector metric under a component name.
func (r *Registry) RegisterGaugeVec(component, name string, gv *prometheus.GaugeVec) error {
	return r.register(component, name, gv)
}

// Unregister removes a previously registered metric, returning false if it
// was not registered.
func (r *Registry) Unregister(component, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := fmt.Sprintf("%s.%s", component, name)
	c, ok := r.registered[key]
	if !ok {
		return false
	}
	if r.prometheusRegistry.Unregister(c) {
		delete(r.registered, key)
		return true
	}
	return false
}

func (r *Registry) register(component, name string, c prometheus.Collector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := fmt.Sprintf("%s.%s", component, name)
	if _, exists := r.registered[key]; exists {
		return xerrors.WrapInvalid(
			fmt.Errorf("metric %s already registered for %s", name, component),
			"metric", "register", "duplicate metric registration")
	}

	if err := r.prometheusRegistry.Register(c); err != nil {
		var alreadyRegErr prometheus.AlreadyRegisteredError
		if stderrors.As(err, &alreadyRegErr) {
			return xerrors.WrapInvalid(err, "metric", "register",
				fmt.Sprintf("prometheus conflict for metric %s", name))
		}
		return xerrors.WrapFatal(err, "metric", "register", "failed to register with prometheus")
	}

	r.registered[key] = c
	return nil
}

func (r *Registry) registerCore() {
	r.prometheusRegistry.MustRegister(
		r.Core.RowsWritten,
		r.Core.RowsDropped,
		r.Core.QueueDepth,
		r.Core.DDLOperations,
		r.Core.InsertDuration,
		r.Core.DissectorStatus,
		r.Core.ErrorsTotal,
	)
}
