package execution

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"goquality/domain/core"
	"goquality/domain/dataset"
	"goquality/domain/result"
	"goquality/domain/rule"
	"goquality/domain/run"
	"goquality/ports"
)

// AdapterFactory opens a warehouse connection on first use
type AdapterFactory func() (ports.WarehouseAdapter, error)

// Engine picks an execution mode per run and dispatches rule groups to the
// validator for each rule type. Validators and the warehouse adapter are
// created lazily and cached for the engine's lifetime.
type Engine struct {
	mu             sync.Mutex
	factories      map[rule.Type]ports.ValidatorFactory
	validators     map[rule.Type]ports.Validator
	adapterFactory AdapterFactory
	adapter        ports.WarehouseAdapter
	adapterOpened  bool
	metrics        ports.MetricsSink
	defaults       run.Config
	closed         bool
}

// NewEngine creates an engine with the given validator factories. The
// adapter factory may be nil when no warehouse is configured; warehouse
// and size-estimation paths then degrade to in-memory behavior. The
// metrics sink may be nil.
func NewEngine(factories map[rule.Type]ports.ValidatorFactory, adapterFactory AdapterFactory, metrics ports.MetricsSink, defaults run.Config) *Engine {
	if defaults.SizeThreshold <= 0 {
		defaults.SizeThreshold = run.DefaultSizeThreshold
	}
	if defaults.SampleFraction <= 0 || defaults.SampleFraction > 1 {
		defaults.SampleFraction = run.DefaultSampleFraction
	}
	return &Engine{
		factories:      factories,
		validators:     make(map[rule.Type]ports.Validator),
		adapterFactory: adapterFactory,
		metrics:        metrics,
		defaults:       defaults,
	}
}

// DetermineMode picks the execution mode for a dataset. An explicit mode
// in cfg wins. Remote references always push down regardless of size:
// their rows never enter process memory, so in-memory execution cannot
// serve them. In-memory tables at or above the size threshold push down
// too when an adapter is configured.
func (e *Engine) DetermineMode(ctx context.Context, ds dataset.Dataset, cfg run.Config) run.Mode {
	cfg = cfg.Merge(e.defaults)
	if cfg.Mode != "" {
		return cfg.Mode
	}
	if _, ok := ds.(*dataset.WarehouseRef); ok {
		return run.ModeWarehouse
	}
	if table, ok := ds.(*dataset.Table); ok {
		if int64(table.RowCount()) >= cfg.SizeThreshold && e.adapterFactory != nil {
			return run.ModeWarehouse
		}
	}
	return run.ModeInMemory
}

// Execute runs the rules against the dataset and returns the outcomes plus
// the run context carrying stats and metadata. Disabled rules and rules of
// a type no validator handles are skipped with a context note, never
// silently dropped from accounting.
func (e *Engine) Execute(ctx context.Context, ds dataset.Dataset, rules []*rule.Rule, cfg run.Config) ([]result.ValidationResult, *run.Context, error) {
	cfg = cfg.Merge(e.defaults)
	mode := e.DetermineMode(ctx, ds, cfg)

	execCtx := run.NewContext(mode)
	execCtx.Start()
	execCtx.UpdateStat("total_rules", int64(len(rules)))

	groups, skipped := e.groupRulesByType(rules, execCtx)
	execCtx.UpdateStat("skipped_rules", int64(skipped))

	var (
		results []result.ValidationResult
		err     error
	)
	switch mode {
	case run.ModeInMemory:
		results, err = e.executeInMemory(ctx, ds, groups, execCtx)
	case run.ModeWarehouse:
		results, err = e.executeWithWarehouse(ctx, ds, groups, cfg, execCtx)
	case run.ModeSampling:
		results, err = e.executeWithSampling(ctx, ds, groups, cfg, execCtx)
	case run.ModeDistributed:
		err = fmt.Errorf("%w: distributed execution is not implemented", core.ErrUnsupportedMode)
	default:
		err = fmt.Errorf("%w: %q", core.ErrUnsupportedMode, mode)
	}

	execCtx.Complete()
	if err != nil {
		return nil, execCtx, err
	}

	execCtx.UpdateStat("executed_rules", int64(len(results)))
	e.reportMetrics(mode, results, execCtx)
	return results, execCtx, nil
}

// groupRulesByType buckets enabled rules by type, dropping rules whose
// type has no registered validator. Each drop is logged and noted in the
// run context metadata.
func (e *Engine) groupRulesByType(rules []*rule.Rule, execCtx *run.Context) (map[rule.Type][]*rule.Rule, int) {
	groups := make(map[rule.Type][]*rule.Rule)
	skipped := 0
	var skippedNames []string
	for _, r := range rules {
		if r == nil || !r.Enabled {
			continue
		}
		if _, ok := e.factories[r.Type]; !ok {
			log.Printf("[ExecutionEngine] no validator for rule type %q, skipping rule %s", r.Type, r.Name)
			skippedNames = append(skippedNames, r.Name)
			skipped++
			continue
		}
		groups[r.Type] = append(groups[r.Type], r)
	}
	if len(skippedNames) > 0 {
		execCtx.SetMetadata("skipped_rule_names", skippedNames)
	}
	return groups, skipped
}

// executeInMemory dispatches rule groups concurrently, one goroutine per
// rule type. A group-level failure does not abort the run: the group's
// rules become failed outcomes and the other groups still report.
func (e *Engine) executeInMemory(ctx context.Context, ds dataset.Dataset, groups map[rule.Type][]*rule.Rule, execCtx *run.Context) ([]result.ValidationResult, error) {
	table, ok := ds.(*dataset.Table)
	if !ok {
		return nil, fmt.Errorf("%w: in-memory execution needs row data, got %T", core.ErrDatasetShape, ds)
	}
	return e.runGroups(ctx, table, groups, execCtx)
}

// executeWithWarehouse verifies the target table exists, then dispatches
// groups against the warehouse reference. A missing table is fatal for the
// whole run: every rule would fail for the same reason.
func (e *Engine) executeWithWarehouse(ctx context.Context, ds dataset.Dataset, groups map[rule.Type][]*rule.Rule, cfg run.Config, execCtx *run.Context) ([]result.ValidationResult, error) {
	ref, ok := ds.(*dataset.WarehouseRef)
	if !ok {
		if cfg.DatasetID == "" || cfg.TableID == "" {
			return nil, fmt.Errorf("%w: warehouse execution needs dataset and table identifiers", core.ErrDatasetShape)
		}
		ref = &dataset.WarehouseRef{DatasetID: cfg.DatasetID, TableID: cfg.TableID}
	}

	adapter, err := e.warehouseAdapter()
	if err != nil {
		return nil, err
	}
	exists, err := adapter.TableExists(ctx, ref.DatasetID, ref.TableID)
	if err != nil {
		return nil, fmt.Errorf("check table %s.%s: %w", ref.DatasetID, ref.TableID, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: table %s.%s", core.ErrTableNotFound, ref.DatasetID, ref.TableID)
	}

	return e.runGroups(ctx, ref, groups, execCtx)
}

// executeWithSampling draws a deterministic sample of the table and runs
// the rules in memory against it. The context records the sample size and
// a note that outcomes are estimates.
func (e *Engine) executeWithSampling(ctx context.Context, ds dataset.Dataset, groups map[rule.Type][]*rule.Rule, cfg run.Config, execCtx *run.Context) ([]result.ValidationResult, error) {
	table, ok := ds.(*dataset.Table)
	if !ok {
		return nil, fmt.Errorf("%w: sampling execution needs row data, got %T", core.ErrDatasetShape, ds)
	}

	sample := table.Sample(cfg.SampleFraction, cfg.SampleSeed)
	execCtx.UpdateStat("source_size", int64(table.RowCount()))
	execCtx.UpdateStat("sample_size", int64(sample.RowCount()))
	execCtx.SetMetadata("sampling_note", fmt.Sprintf("results estimated from a %.0f%% sample", cfg.SampleFraction*100))

	return e.runGroups(ctx, sample, groups, execCtx)
}

// runGroups fans rule groups out over an errgroup and aggregates outcomes
// in deterministic rule-type order. Group errors are converted to failed
// outcomes for that group's rules.
func (e *Engine) runGroups(ctx context.Context, ds dataset.Dataset, groups map[rule.Type][]*rule.Rule, execCtx *run.Context) ([]result.ValidationResult, error) {
	types := make([]rule.Type, 0, len(groups))
	for t := range groups {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	grouped := make([][]result.ValidationResult, len(types))
	g, gctx := errgroup.WithContext(ctx)
	for i, ruleType := range types {
		i, ruleType := i, ruleType
		groupRules := groups[ruleType]
		g.Go(func() error {
			validator, err := e.validatorFor(ruleType)
			if err != nil {
				grouped[i] = failGroup(groupRules, err)
				return nil
			}
			outcomes, err := validator.Validate(gctx, ds, groupRules, execCtx)
			if err != nil {
				log.Printf("[ExecutionEngine] %s group failed: %v", ruleType, err)
				grouped[i] = failGroup(groupRules, err)
				return nil
			}
			grouped[i] = outcomes
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var results []result.ValidationResult
	for _, outcomes := range grouped {
		results = append(results, outcomes...)
	}
	for _, r := range results {
		if r.Success {
			execCtx.IncrementStat("passed_rules", 1)
		} else {
			execCtx.IncrementStat("failed_rules", 1)
		}
	}
	return results, nil
}

func failGroup(rules []*rule.Rule, err error) []result.ValidationResult {
	outcomes := make([]result.ValidationResult, 0, len(rules))
	for _, r := range rules {
		outcomes = append(outcomes, result.Failed(r, err))
	}
	return outcomes
}

// validatorFor returns the cached validator for a rule type, constructing
// it on first use. Validators that need the warehouse receive the shared
// adapter.
func (e *Engine) validatorFor(ruleType rule.Type) (ports.Validator, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, core.ErrAdapterClosed
	}
	if v, ok := e.validators[ruleType]; ok {
		return v, nil
	}
	factory, ok := e.factories[ruleType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrValidatorNotFound, ruleType)
	}

	adapter := e.adapter
	if adapter == nil && e.adapterFactory != nil && !e.adapterOpened {
		a, err := e.adapterFactory()
		if err != nil {
			// keep going without the warehouse; in-memory rules still work
			log.Printf("[ExecutionEngine] warehouse adapter unavailable: %v", err)
			e.adapterOpened = true
		} else {
			e.adapter = a
			e.adapterOpened = true
			adapter = a
		}
	}

	v, err := factory(adapter)
	if err != nil {
		return nil, fmt.Errorf("create %s validator: %w", ruleType, err)
	}
	e.validators[ruleType] = v
	return v, nil
}

// warehouseAdapter returns the shared adapter, opening it on first use
func (e *Engine) warehouseAdapter() (ports.WarehouseAdapter, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, core.ErrAdapterClosed
	}
	if e.adapter != nil {
		return e.adapter, nil
	}
	if e.adapterFactory == nil {
		return nil, fmt.Errorf("%w: no warehouse adapter configured", core.ErrUnsupportedMode)
	}
	a, err := e.adapterFactory()
	if err != nil {
		return nil, fmt.Errorf("open warehouse adapter: %w", err)
	}
	e.adapter = a
	e.adapterOpened = true
	return a, nil
}

// reportMetrics publishes per-run gauges and counters. With no outcomes
// the success rate reports 1.0: an empty run has nothing failing.
func (e *Engine) reportMetrics(mode run.Mode, results []result.ValidationResult, execCtx *run.Context) {
	if e.metrics == nil {
		return
	}

	labels := map[string]string{"mode": string(mode)}
	passed := 0
	for _, r := range results {
		if r.Success {
			passed++
		}
	}
	successRate := 1.0
	if len(results) > 0 {
		successRate = float64(passed) / float64(len(results))
	}

	e.metrics.Counter("validation_runs_total", 1, labels)
	e.metrics.Gauge("validation_rules_executed", float64(len(results)), labels)
	e.metrics.Gauge("validation_success_rate", successRate, labels)
	e.metrics.Gauge("validation_duration_seconds", execCtx.Duration().Seconds(), labels)
}

// Close releases cached validators and the warehouse adapter. Safe to call
// more than once.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	var firstErr error
	for ruleType, v := range e.validators {
		if err := v.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close %s validator: %w", ruleType, err)
		}
	}
	e.validators = make(map[rule.Type]ports.Validator)
	if e.adapter != nil {
		if err := e.adapter.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close warehouse adapter: %w", err)
		}
		e.adapter = nil
	}
	return firstErr
}
