package ports

// MetricsSink accepts named metrics with label maps. The engines call it
// fire-and-forget: implementations must never return errors into the
// validation path.
type MetricsSink interface {
	Gauge(name string, value float64, labels map[string]string)
	Counter(name string, delta float64, labels map[string]string)
	Close() error
}
