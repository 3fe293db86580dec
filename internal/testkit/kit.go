// Package testkit provides in-memory fakes and dataset builders shared by
// tests across the module.
package testkit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"goquality/domain/dataset"
	"goquality/domain/result"
	"goquality/domain/rule"
	"goquality/domain/run"
)

// FakeWarehouseAdapter backs warehouse-mode tests with in-memory tables.
// Keys are "dataset.table". Canned query results are matched by exact
// query string; unmatched queries return an error.
type FakeWarehouseAdapter struct {
	mu      sync.Mutex
	tables  map[string]*dataset.Table
	schemas map[string]map[string]string
	queries map[string]*dataset.Table
	// QueryLog records every query RunQuery received, in order
	QueryLog []string
	// FailNext makes the next call return this error, then clears it
	FailNext error
	Closed   bool
}

// NewFakeWarehouseAdapter creates an empty fake warehouse
func NewFakeWarehouseAdapter() *FakeWarehouseAdapter {
	return &FakeWarehouseAdapter{
		tables:  map[string]*dataset.Table{},
		schemas: map[string]map[string]string{},
		queries: map[string]*dataset.Table{},
	}
}

func key(datasetID, tableID string) string {
	return datasetID + "." + tableID
}

// AddTable registers a table with its schema
func (f *FakeWarehouseAdapter) AddTable(datasetID, tableID string, table *dataset.Table, schema map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[key(datasetID, tableID)] = table
	f.schemas[key(datasetID, tableID)] = schema
}

// StubQuery registers a canned result for an exact query string
func (f *FakeWarehouseAdapter) StubQuery(query string, res *dataset.Table) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries[query] = res
}

func (f *FakeWarehouseAdapter) takeFailure() error {
	err := f.FailNext
	f.FailNext = nil
	return err
}

// TableExists reports whether the table was registered
func (f *FakeWarehouseAdapter) TableExists(_ context.Context, datasetID, tableID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return false, err
	}
	_, ok := f.tables[key(datasetID, tableID)]
	return ok, nil
}

// TableSchema returns the registered schema
func (f *FakeWarehouseAdapter) TableSchema(_ context.Context, datasetID, tableID string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return nil, err
	}
	schema, ok := f.schemas[key(datasetID, tableID)]
	if !ok {
		return nil, fmt.Errorf("fake warehouse: no table %s.%s", datasetID, tableID)
	}
	return schema, nil
}

// RowCount returns the registered table's row count
func (f *FakeWarehouseAdapter) RowCount(_ context.Context, datasetID, tableID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return 0, err
	}
	table, ok := f.tables[key(datasetID, tableID)]
	if !ok {
		return 0, fmt.Errorf("fake warehouse: no table %s.%s", datasetID, tableID)
	}
	return int64(table.RowCount()), nil
}

// RunQuery returns the canned result for the query
func (f *FakeWarehouseAdapter) RunQuery(_ context.Context, query string, _ []interface{}, _ time.Duration) (*dataset.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.QueryLog = append(f.QueryLog, query)
	if err := f.takeFailure(); err != nil {
		return nil, err
	}
	res, ok := f.queries[query]
	if !ok {
		return nil, fmt.Errorf("fake warehouse: no stub for query %q", query)
	}
	return res, nil
}

// Close marks the adapter closed
func (f *FakeWarehouseAdapter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// CaptureMetricsSink records every metric it receives for assertions
type CaptureMetricsSink struct {
	mu       sync.Mutex
	Gauges   map[string]float64
	Counters map[string]float64
	Closed   bool
}

// NewCaptureMetricsSink creates an empty capturing sink
func NewCaptureMetricsSink() *CaptureMetricsSink {
	return &CaptureMetricsSink{
		Gauges:   map[string]float64{},
		Counters: map[string]float64{},
	}
}

// Gauge records the latest value per metric name
func (c *CaptureMetricsSink) Gauge(name string, value float64, _ map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Gauges[name] = value
}

// Counter accumulates deltas per metric name
func (c *CaptureMetricsSink) Counter(name string, delta float64, _ map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Counters[name] += delta
}

// Close marks the sink closed
func (c *CaptureMetricsSink) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Closed = true
	return nil
}

// GaugeValue returns a recorded gauge and whether it was seen
func (c *CaptureMetricsSink) GaugeValue(name string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.Gauges[name]
	return v, ok
}

// StubValidator returns fixed outcomes per rule: pass everything unless
// the rule's name is listed in FailNames. Err, when set, fails the whole
// group call.
type StubValidator struct {
	RuleType  rule.Type
	FailNames map[string]bool
	Err       error
	mu        sync.Mutex
	Calls     int
	Closed    bool
}

// Type returns the stubbed rule type
func (s *StubValidator) Type() rule.Type {
	return s.RuleType
}

// Validate emits one outcome per enabled rule
func (s *StubValidator) Validate(_ context.Context, _ dataset.Dataset, rules []*rule.Rule, _ *run.Context) ([]result.ValidationResult, error) {
	s.mu.Lock()
	s.Calls++
	s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	outcomes := make([]result.ValidationResult, 0, len(rules))
	for _, r := range rules {
		outcome := result.New(r)
		outcome.Resolve(!s.FailNames[r.Name])
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// ValidateRule evaluates one rule with the same stubbed behavior
func (s *StubValidator) ValidateRule(ctx context.Context, ds dataset.Dataset, r *rule.Rule) (result.ValidationResult, error) {
	outcomes, err := s.Validate(ctx, ds, []*rule.Rule{r}, nil)
	if err != nil {
		return result.ValidationResult{}, err
	}
	return outcomes[0], nil
}

// Close marks the validator closed
func (s *StubValidator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	return nil
}

// MustRule builds a rule from raw fields, panicking on invalid input.
// Test helper only.
func MustRule(raw map[string]interface{}) *rule.Rule {
	r, err := rule.New(raw)
	if err != nil {
		panic(fmt.Sprintf("testkit: bad rule: %v", err))
	}
	return r
}

// OrdersTable builds a small orders table used across tests
func OrdersTable() *dataset.Table {
	t := dataset.NewTable("orders", []string{"order_id", "customer_id", "amount", "status", "created_at"})
	rows := []map[string]interface{}{
		{"order_id": "o-1", "customer_id": "c-1", "amount": 120.50, "status": "shipped", "created_at": "2026-08-01T10:00:00Z"},
		{"order_id": "o-2", "customer_id": "c-2", "amount": 75.00, "status": "pending", "created_at": "2026-08-02T11:30:00Z"},
		{"order_id": "o-3", "customer_id": "c-1", "amount": 230.10, "status": "shipped", "created_at": "2026-08-03T09:15:00Z"},
		{"order_id": "o-4", "customer_id": "c-3", "amount": nil, "status": "cancelled", "created_at": "2026-08-04T16:45:00Z"},
		{"order_id": "o-5", "customer_id": "c-2", "amount": 42.99, "status": "shipped", "created_at": "2026-08-05T08:05:00Z"},
	}
	for _, row := range rows {
		t.AppendRow(row)
	}
	return t
}

// NumericTable builds a single-column numeric table of the given values
func NumericTable(name, column string, values []float64) *dataset.Table {
	t := dataset.NewTable(name, []string{column})
	for _, v := range values {
		t.AppendRow(map[string]interface{}{column: v})
	}
	return t
}
