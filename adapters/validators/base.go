// Package validators implements the rule-type capability providers. Each
// provider dispatches on the rule's subtype parameter to a check handler
// and emits one outcome per rule. A handler error never aborts a batch:
// the rule gets a failed outcome and the rest of the batch proceeds.
package validators

import (
	"context"
	"fmt"
	"log"
	"time"

	"goquality/domain/core"
	"goquality/domain/dataset"
	"goquality/domain/result"
	"goquality/domain/rule"
	"goquality/domain/run"
	"goquality/ports"
)

// Outcome is what a single check handler reports back
type Outcome struct {
	Passed  bool
	Warning bool
	Details map[string]interface{}
}

func passed(details map[string]interface{}) (Outcome, error) {
	return Outcome{Passed: true, Details: details}, nil
}

func failed(details map[string]interface{}) (Outcome, error) {
	return Outcome{Passed: false, Details: details}, nil
}

func warned(details map[string]interface{}) (Outcome, error) {
	return Outcome{Passed: true, Warning: true, Details: details}, nil
}

// TableCheck evaluates one rule against in-memory rows
type TableCheck func(ctx context.Context, table *dataset.Table, r *rule.Rule) (Outcome, error)

// WarehouseCheck evaluates one rule by pushing the check down to the
// warehouse through the adapter
type WarehouseCheck func(ctx context.Context, adapter ports.WarehouseAdapter, ref *dataset.WarehouseRef, r *rule.Rule) (Outcome, error)

// base carries the dispatch machinery shared by every validator: subtype
// handler tables for both execution paths plus the optional warehouse
// adapter handle.
type base struct {
	ruleType rule.Type
	adapter  ports.WarehouseAdapter

	// TableChecks and WarehouseChecks map subtypes to their handlers.
	// The custom validator mutates them to register extensions.
	TableChecks     map[string]TableCheck
	WarehouseChecks map[string]WarehouseCheck
}

// Type returns the rule type this validator handles
func (b *base) Type() rule.Type {
	return b.ruleType
}

// Close releases nothing by default; the engine owns the shared adapter
func (b *base) Close() error {
	return nil
}

// Validate evaluates each rule independently. Handler errors become failed
// outcomes so one broken rule cannot sink the batch.
func (b *base) Validate(ctx context.Context, ds dataset.Dataset, rules []*rule.Rule, execCtx *run.Context) ([]result.ValidationResult, error) {
	outcomes := make([]result.ValidationResult, 0, len(rules))
	for _, r := range rules {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		outcome, err := b.ValidateRule(ctx, ds, r)
		if err != nil {
			log.Printf("[%sValidator] rule %q failed to evaluate: %v", b.ruleType, r.Name, err)
			outcome = result.Failed(r, err)
		}
		outcomes = append(outcomes, outcome)
		if execCtx != nil {
			execCtx.IncrementStat(fmt.Sprintf("%s_rules_evaluated", b.ruleType), 1)
		}
	}
	return outcomes, nil
}

// ValidateRule evaluates one rule, routing by dataset kind. The returned
// error accompanies a failed result rather than replacing it.
func (b *base) ValidateRule(ctx context.Context, ds dataset.Dataset, r *rule.Rule) (result.ValidationResult, error) {
	start := time.Now()
	outcome, err := b.dispatch(ctx, ds, r)
	if err != nil {
		vr := result.Failed(r, err)
		vr.SetExecutionTime(time.Since(start))
		return vr, err
	}

	vr := result.New(r)
	switch {
	case outcome.Warning:
		vr.SetStatus(result.StatusWarning, true)
	default:
		vr.Resolve(outcome.Passed)
	}
	vr.SetDetails(outcome.Details)
	vr.SetExecutionTime(time.Since(start))
	return vr, nil
}

func (b *base) dispatch(ctx context.Context, ds dataset.Dataset, r *rule.Rule) (Outcome, error) {
	subtype := r.Subtype()
	switch d := ds.(type) {
	case *dataset.Table:
		handler, ok := b.TableChecks[subtype]
		if !ok {
			return Outcome{}, core.NewUnsupportedSubtypeError(subtype, r.Name)
		}
		return handler(ctx, d, r)
	case *dataset.WarehouseRef:
		handler, ok := b.WarehouseChecks[subtype]
		if !ok {
			return Outcome{}, fmt.Errorf("%w: %q has no warehouse pushdown", core.ErrUnsupportedSubtype, subtype)
		}
		if b.adapter == nil {
			return Outcome{}, fmt.Errorf("%w: no warehouse adapter configured", core.ErrUnsupportedMode)
		}
		return handler(ctx, b.adapter, d, r)
	default:
		return Outcome{}, core.NewDatasetShapeError("table or warehouse reference", ds)
	}
}

// requireColumn resolves the rule's target column against the table
func requireColumn(table *dataset.Table, r *rule.Rule) (string, error) {
	col := r.ColumnName()
	if col == "" {
		return "", fmt.Errorf("%w: rule %q needs a column_name parameter", core.ErrInvalidRule, r.Name)
	}
	if !table.HasColumn(col) {
		return "", fmt.Errorf("%w: column %q", core.ErrColumnNotFound, col)
	}
	return col, nil
}

// scalarInt reads a single integer cell out of an aggregate query result
func scalarInt(table *dataset.Table, column string) (int64, error) {
	if table == nil || table.RowCount() == 0 {
		return 0, fmt.Errorf("aggregate query returned no rows")
	}
	values, nonNumeric := table.NumericColumn(column)
	if nonNumeric > 0 {
		return 0, fmt.Errorf("aggregate column %q is not numeric", column)
	}
	return int64(values[0]), nil
}
