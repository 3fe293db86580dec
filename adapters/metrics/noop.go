package metrics

// NoopSink discards all metrics, for deployments with reporting disabled
type NoopSink struct{}

// NewNoopSink creates a sink that drops everything
func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (NoopSink) Gauge(string, float64, map[string]string)   {}
func (NoopSink) Counter(string, float64, map[string]string) {}
func (NoopSink) Close() error                               { return nil }
