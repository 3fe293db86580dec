// Package engine wires rules, execution, and scoring into the validation
// facade the API and CLI call.
package engine

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"goquality/domain/core"
	"goquality/domain/dataset"
	"goquality/domain/result"
	"goquality/domain/rule"
	"goquality/domain/run"
	"goquality/internal/execution"
	"goquality/internal/scoring"
	"goquality/ports"
)

// ValidationEngine is the orchestrator: it owns the rule registry, the
// execution engine, and the quality scorer, and turns a dataset plus rules
// into a scored summary.
type ValidationEngine struct {
	mu     sync.RWMutex
	rules  map[core.RuleID]*rule.Rule
	closed bool

	executor *execution.Engine
	scorer   *scoring.Scorer
	loader   ports.RuleLoader
	metrics  ports.MetricsSink
	defaults run.Config
}

// Options configures a ValidationEngine
type Options struct {
	// Factories supplies the validator per rule type; required
	Factories map[rule.Type]ports.ValidatorFactory

	// AdapterFactory opens the warehouse connection on demand; optional
	AdapterFactory execution.AdapterFactory

	// Loader reads rule config files; optional, LoadRulesFromConfig
	// fails without one
	Loader ports.RuleLoader

	// Metrics receives run gauges and counters; optional
	Metrics ports.MetricsSink

	// Defaults seeds per-run execution settings
	Defaults run.Config
}

// New creates a validation engine
func New(opts Options) *ValidationEngine {
	return &ValidationEngine{
		rules:    map[core.RuleID]*rule.Rule{},
		executor: execution.NewEngine(opts.Factories, opts.AdapterFactory, opts.Metrics, opts.Defaults),
		scorer:   scoring.NewScorer(),
		loader:   opts.Loader,
		metrics:  opts.Metrics,
		defaults: opts.Defaults,
	}
}

// RegisterRule builds a rule from its raw definition and adds it to the
// registry. An existing rule with the same id is replaced.
func (e *ValidationEngine) RegisterRule(raw map[string]interface{}) (*rule.Rule, error) {
	r, err := rule.New(raw)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, core.ErrAdapterClosed
	}
	e.rules[r.ID] = r
	log.Printf("[ValidationEngine] registered rule %s (%s/%s)", r.Name, r.Type, r.Dimension)
	return r.Clone(), nil
}

// GetRule returns a copy of a registered rule
func (e *ValidationEngine) GetRule(id core.RuleID) (*rule.Rule, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	r, ok := e.rules[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrRuleNotFound, id)
	}
	return r.Clone(), nil
}

// ListRules returns copies of all registered rules, ordered by name for
// stable output
func (e *ValidationEngine) ListRules() []*rule.Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*rule.Rule, 0, len(e.rules))
	for _, r := range e.rules {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// UpdateRule applies a partial update to a registered rule and returns the
// updated copy
func (e *ValidationEngine) UpdateRule(id core.RuleID, fields map[string]interface{}) (*rule.Rule, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.rules[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrRuleNotFound, id)
	}
	if err := r.Update(fields); err != nil {
		return nil, err
	}
	return r.Clone(), nil
}

// RemoveRule deletes a rule from the registry
func (e *ValidationEngine) RemoveRule(id core.RuleID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.rules[id]; !ok {
		return fmt.Errorf("%w: %s", core.ErrRuleNotFound, id)
	}
	delete(e.rules, id)
	return nil
}

// LoadRulesFromConfig reads rule definitions through the loader and
// registers the valid ones. Definitions that fail validation become
// warnings alongside the loader's own; a partial load is not an error.
func (e *ValidationEngine) LoadRulesFromConfig(path string) (int, []string, error) {
	if e.loader == nil {
		return 0, nil, fmt.Errorf("no rule loader configured")
	}
	raw, warnings, err := e.loader.LoadRules(path)
	if err != nil {
		return 0, warnings, err
	}

	loaded := 0
	for i, def := range raw {
		if _, err := e.RegisterRule(def); err != nil {
			warnings = append(warnings, fmt.Sprintf("rule %d rejected: %v", i, err))
			continue
		}
		loaded++
	}
	log.Printf("[ValidationEngine] loaded %d/%d rules from %s", loaded, len(raw), path)
	return loaded, warnings, nil
}

// Validate runs rules against a dataset and produces a scored summary.
// When rules is nil, the registered rule set is used. The caller's slice
// is never mutated.
func (e *ValidationEngine) Validate(ctx context.Context, ds dataset.Dataset, rules []*rule.Rule, cfg run.Config) (*result.ValidationSummary, []result.ValidationResult, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, nil, core.ErrAdapterClosed
	}
	if rules == nil {
		rules = make([]*rule.Rule, 0, len(e.rules))
		for _, r := range e.rules {
			rules = append(rules, r)
		}
		sort.Slice(rules, func(i, j int) bool { return rules[i].Name < rules[j].Name })
	}
	threshold := e.scorer.Threshold()
	cfg = cfg.Merge(e.defaults)
	e.mu.RUnlock()

	start := time.Now()
	results, execCtx, err := e.executor.Execute(ctx, ds, rules, cfg)
	if err != nil {
		return nil, nil, err
	}

	summary := result.NewSummary(results, time.Since(start).Seconds())
	score := e.scorer.CalculateScore(results)
	summary.SetQualityScore(score, threshold)

	log.Printf("[ValidationEngine] run %s: %d/%d passed, score %.3f (%s), mode %s",
		summary.ValidationID, summary.PassedRules, summary.TotalRules,
		score.OverallScore, score.Model, execCtx.Mode)
	return summary, results, nil
}

// ValidateRule evaluates a single registered rule against a dataset, the
// ad hoc path that skips scoring and summary
func (e *ValidationEngine) ValidateRule(ctx context.Context, ds dataset.Dataset, id core.RuleID, cfg run.Config) (result.ValidationResult, error) {
	r, err := e.GetRule(id)
	if err != nil {
		return result.ValidationResult{}, err
	}
	results, _, err := e.executor.Execute(ctx, ds, []*rule.Rule{r}, cfg)
	if err != nil {
		return result.ValidationResult{}, err
	}
	if len(results) == 0 {
		return result.ValidationResult{}, fmt.Errorf("%w: %q", core.ErrValidatorNotFound, r.Type)
	}
	return results[0], nil
}

// SetQualityThreshold adjusts the pass/fail threshold for future runs
func (e *ValidationEngine) SetQualityThreshold(threshold float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scorer.SetThreshold(threshold)
}

// SetScoringModel adjusts the scoring model for future runs
func (e *ValidationEngine) SetScoringModel(model scoring.Model) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scorer.SetModel(model)
}

// SetDimensionWeights adjusts the weighted-model weights for future runs
func (e *ValidationEngine) SetDimensionWeights(weights map[rule.Dimension]float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scorer.SetDimensionWeights(weights)
}

// SetExecutionMode forces an execution mode for future runs; an empty mode
// restores automatic selection
func (e *ValidationEngine) SetExecutionMode(mode run.Mode) error {
	if mode != "" {
		if _, err := run.ParseMode(string(mode)); err != nil {
			return err
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.defaults.Mode = mode
	return nil
}

// QualityThreshold returns the current pass/fail threshold
func (e *ValidationEngine) QualityThreshold() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.scorer.Threshold()
}

// Close shuts down the execution engine and metrics sink. Safe to call
// more than once.
func (e *ValidationEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	err := e.executor.Close()
	if e.metrics != nil {
		if cerr := e.metrics.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
