package run

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"goquality/domain/core"
)

// Mode is the strategy for where and how validation executes
type Mode string

const (
	ModeInMemory    Mode = "in_memory"
	ModeWarehouse   Mode = "warehouse"
	ModeSampling    Mode = "sampling"
	ModeDistributed Mode = "distributed"
)

// ParseMode parses a string into an execution Mode
func ParseMode(s string) (Mode, error) {
	mode := Mode(strings.ToLower(strings.TrimSpace(s)))
	switch mode {
	case ModeInMemory, ModeWarehouse, ModeSampling, ModeDistributed:
		return mode, nil
	}
	return "", fmt.Errorf("%w: %q", core.ErrUnsupportedMode, s)
}

// Context is the mutable state of one validation run. It is owned by a
// single execution-engine invocation; validators update stats through it.
// Rule-type groups may execute concurrently, so all mutation is guarded.
type Context struct {
	Mode Mode

	mu       sync.Mutex
	stats    map[string]interface{}
	metadata map[string]interface{}

	startTime time.Time
	endTime   time.Time
	complete  bool
}

// NewContext creates a run context for the given mode
func NewContext(mode Mode) *Context {
	return &Context{
		Mode:     mode,
		stats:    map[string]interface{}{},
		metadata: map[string]interface{}{},
	}
}

// Start marks the beginning of the run
func (c *Context) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startTime = time.Now()
}

// Complete marks the end of the run
func (c *Context) Complete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endTime = time.Now()
	c.complete = true
}

// IsComplete reports whether the run has finished
func (c *Context) IsComplete() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.complete
}

// Duration returns elapsed time; for a running context, time since start
func (c *Context) Duration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.startTime.IsZero() {
		return 0
	}
	if c.complete {
		return c.endTime.Sub(c.startTime)
	}
	return time.Since(c.startTime)
}

// UpdateStat sets a named stat
func (c *Context) UpdateStat(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats[key] = value
}

// IncrementStat adds delta to an integer counter, creating it at zero
func (c *Context) IncrementStat(key string, delta int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	current, _ := c.stats[key].(int64)
	c.stats[key] = current + delta
}

// Stat returns a named stat value
func (c *Context) Stat(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.stats[key]
	return v, ok
}

// Stats returns a copy of all stats
func (c *Context) Stats() map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]interface{}, len(c.stats))
	for k, v := range c.stats {
		out[k] = v
	}
	return out
}

// SetMetadata attaches free-form run metadata
func (c *Context) SetMetadata(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metadata[key] = value
}

// Metadata returns a copy of the run metadata
func (c *Context) Metadata() map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]interface{}, len(c.metadata))
	for k, v := range c.metadata {
		out[k] = v
	}
	return out
}

// Config carries per-run execution settings. Zero values defer to the
// engine defaults.
type Config struct {
	// Mode forces a strategy instead of letting the engine choose
	Mode Mode

	// Warehouse coordinates, required for warehouse pushdown
	DatasetID string
	TableID   string

	// SizeThreshold is the row count above which remote datasets are
	// pushed down rather than validated in memory
	SizeThreshold int64

	// SampleFraction is the fraction drawn in sampling mode
	SampleFraction float64

	// SampleSeed makes sampling reproducible; equal seeds draw equal
	// samples, including the zero seed
	SampleSeed int64

	// QueryTimeout bounds individual warehouse queries
	QueryTimeout time.Duration
}

// Execution defaults; callers override through Config.
const (
	DefaultSizeThreshold  int64   = 1_000_000
	DefaultSampleFraction float64 = 0.10
)

// Merge returns c with zero-valued fields filled from other
func (c Config) Merge(other Config) Config {
	merged := c
	if merged.Mode == "" {
		merged.Mode = other.Mode
	}
	if merged.DatasetID == "" {
		merged.DatasetID = other.DatasetID
	}
	if merged.TableID == "" {
		merged.TableID = other.TableID
	}
	if merged.SizeThreshold == 0 {
		merged.SizeThreshold = other.SizeThreshold
	}
	if merged.SampleFraction == 0 {
		merged.SampleFraction = other.SampleFraction
	}
	if merged.SampleSeed == 0 {
		merged.SampleSeed = other.SampleSeed
	}
	if merged.QueryTimeout == 0 {
		merged.QueryTimeout = other.QueryTimeout
	}
	return merged
}
