// Package metrics implements the metrics sink over a Prometheus registry.
package metrics

import (
	"log"
	"net/http"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusSink implements ports.MetricsSink backed by lazily registered
// gauge and counter vectors. Metrics with the same name must keep the same
// label set; a mismatch is logged and dropped, never surfaced to the
// validation path.
type PrometheusSink struct {
	namespace string
	registry  *prometheus.Registry

	mu       sync.Mutex
	gauges   map[string]*prometheus.GaugeVec
	counters map[string]*prometheus.CounterVec
}

// NewPrometheusSink creates a sink with its own registry
func NewPrometheusSink(namespace string) *PrometheusSink {
	return &PrometheusSink{
		namespace: namespace,
		registry:  prometheus.NewRegistry(),
		gauges:    map[string]*prometheus.GaugeVec{},
		counters:  map[string]*prometheus.CounterVec{},
	}
}

// Handler exposes the registry for scraping
func (s *PrometheusSink) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

func labelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Gauge sets a gauge value, creating the vector on first use
func (s *PrometheusSink) Gauge(name string, value float64, labels map[string]string) {
	s.mu.Lock()
	vec, ok := s.gauges[name]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: s.namespace,
			Name:      name,
		}, labelNames(labels))
		if err := s.registry.Register(vec); err != nil {
			s.mu.Unlock()
			log.Printf("[Metrics] register gauge %s: %v", name, err)
			return
		}
		s.gauges[name] = vec
	}
	s.mu.Unlock()

	gauge, err := vec.GetMetricWith(prometheus.Labels(labels))
	if err != nil {
		log.Printf("[Metrics] gauge %s label mismatch: %v", name, err)
		return
	}
	gauge.Set(value)
}

// Counter adds to a counter, creating the vector on first use
func (s *PrometheusSink) Counter(name string, delta float64, labels map[string]string) {
	s.mu.Lock()
	vec, ok := s.counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: s.namespace,
			Name:      name,
		}, labelNames(labels))
		if err := s.registry.Register(vec); err != nil {
			s.mu.Unlock()
			log.Printf("[Metrics] register counter %s: %v", name, err)
			return
		}
		s.counters[name] = vec
	}
	s.mu.Unlock()

	counter, err := vec.GetMetricWith(prometheus.Labels(labels))
	if err != nil {
		log.Printf("[Metrics] counter %s label mismatch: %v", name, err)
		return
	}
	counter.Add(delta)
}

// Close is a no-op; the registry has nothing to release
func (s *PrometheusSink) Close() error {
	return nil
}
