package validators

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"time"

	"github.com/spf13/cast"

	"goquality/adapters/warehouse"
	"goquality/domain/core"
	"goquality/domain/dataset"
	"goquality/domain/rule"
	"goquality/ports"
)

// ContentValidator checks cell-level data quality: null rates, value
// ranges, formats, allowed values, and freshness.
type ContentValidator struct {
	base
}

// NewContentValidator creates the content capability provider
func NewContentValidator(adapter ports.WarehouseAdapter) (*ContentValidator, error) {
	v := &ContentValidator{}
	v.ruleType = rule.TypeContent
	v.adapter = adapter
	v.TableChecks = map[string]TableCheck{
		"not_null":      v.checkNotNull,
		"value_range":   v.checkValueRange,
		"pattern_match": v.checkPatternMatch,
		"categorical":   v.checkCategorical,
		"length_range":  v.checkLengthRange,
		"freshness":     v.checkFreshness,
	}
	v.WarehouseChecks = map[string]WarehouseCheck{
		"not_null":      v.checkNotNullRemote,
		"value_range":   v.checkValueRangeRemote,
		"pattern_match": v.checkPatternMatchRemote,
		"categorical":   v.checkCategoricalRemote,
		"freshness":     v.checkFreshnessRemote,
	}
	return v, nil
}

// violationOutcome applies the shared tolerance semantics: a rule may allow
// a fraction of bad cells via max_violation_rate (default 0, strict).
func violationOutcome(r *rule.Rule, total, violations int, details map[string]interface{}) (Outcome, error) {
	rate := 0.0
	if total > 0 {
		rate = float64(violations) / float64(total)
	}
	maxRate := r.FloatParam("max_violation_rate", 0)
	details["total_count"] = total
	details["violation_count"] = violations
	details["violation_rate"] = rate
	details["max_violation_rate"] = maxRate

	if violations == 0 || rate <= maxRate {
		if violations > 0 {
			// tolerated violations surface as a warning, not a failure
			return warned(details)
		}
		return passed(details)
	}
	return failed(details)
}

func (v *ContentValidator) checkNotNull(_ context.Context, table *dataset.Table, r *rule.Rule) (Outcome, error) {
	col, err := requireColumn(table, r)
	if err != nil {
		return Outcome{}, err
	}
	nulls := 0
	for _, cell := range table.Column(col) {
		if cell == nil {
			nulls++
		}
	}
	return violationOutcome(r, table.RowCount(), nulls, map[string]interface{}{"column": col})
}

func (v *ContentValidator) checkValueRange(_ context.Context, table *dataset.Table, r *rule.Rule) (Outcome, error) {
	col, err := requireColumn(table, r)
	if err != nil {
		return Outcome{}, err
	}
	min := r.FloatParam("min_value", math.Inf(-1))
	max := r.FloatParam("max_value", math.Inf(1))
	if min > max {
		return Outcome{}, fmt.Errorf("%w: min_value %v exceeds max_value %v", core.ErrInvalidRule, min, max)
	}

	values, _ := table.NumericColumn(col)
	violations := 0
	checked := 0
	for _, f := range values {
		if math.IsNaN(f) {
			continue // null and non-numeric cells are other checks' concern
		}
		checked++
		if f < min || f > max {
			violations++
		}
	}
	details := map[string]interface{}{"column": col, "min_value": min, "max_value": max}
	return violationOutcome(r, checked, violations, details)
}

func (v *ContentValidator) checkPatternMatch(_ context.Context, table *dataset.Table, r *rule.Rule) (Outcome, error) {
	col, err := requireColumn(table, r)
	if err != nil {
		return Outcome{}, err
	}
	pattern := r.StringParam("pattern")
	if pattern == "" {
		return Outcome{}, fmt.Errorf("%w: rule %q needs a pattern parameter", core.ErrInvalidRule, r.Name)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: bad pattern %q: %v", core.ErrInvalidRule, pattern, err)
	}

	violations := 0
	checked := 0
	for _, cell := range table.Column(col) {
		if cell == nil {
			continue
		}
		checked++
		if !re.MatchString(cast.ToString(cell)) {
			violations++
		}
	}
	details := map[string]interface{}{"column": col, "pattern": pattern}
	return violationOutcome(r, checked, violations, details)
}

func (v *ContentValidator) checkCategorical(_ context.Context, table *dataset.Table, r *rule.Rule) (Outcome, error) {
	col, err := requireColumn(table, r)
	if err != nil {
		return Outcome{}, err
	}
	allowed := r.StringSliceParam("allowed_values")
	if len(allowed) == 0 {
		return Outcome{}, fmt.Errorf("%w: rule %q needs an allowed_values parameter", core.ErrInvalidRule, r.Name)
	}
	allowedSet := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		allowedSet[a] = true
	}

	violations := 0
	checked := 0
	invalid := map[string]int{}
	for _, cell := range table.Column(col) {
		if cell == nil {
			continue
		}
		checked++
		s := cast.ToString(cell)
		if !allowedSet[s] {
			violations++
			invalid[s]++
		}
	}
	details := map[string]interface{}{"column": col, "allowed_values": allowed, "invalid_values": invalid}
	return violationOutcome(r, checked, violations, details)
}

func (v *ContentValidator) checkLengthRange(_ context.Context, table *dataset.Table, r *rule.Rule) (Outcome, error) {
	col, err := requireColumn(table, r)
	if err != nil {
		return Outcome{}, err
	}
	minLen := r.IntParam("min_length", 0)
	maxLen := r.IntParam("max_length", math.MaxInt32)
	if minLen > maxLen {
		return Outcome{}, fmt.Errorf("%w: min_length %d exceeds max_length %d", core.ErrInvalidRule, minLen, maxLen)
	}

	violations := 0
	checked := 0
	for _, cell := range table.Column(col) {
		if cell == nil {
			continue
		}
		checked++
		n := len([]rune(cast.ToString(cell)))
		if n < minLen || n > maxLen {
			violations++
		}
	}
	details := map[string]interface{}{"column": col, "min_length": minLen, "max_length": maxLen}
	return violationOutcome(r, checked, violations, details)
}

// parseCellTime accepts the timestamp shapes row data actually carries
func parseCellTime(cell interface{}) (time.Time, bool) {
	switch t := cell.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

func (v *ContentValidator) checkFreshness(_ context.Context, table *dataset.Table, r *rule.Rule) (Outcome, error) {
	col, err := requireColumn(table, r)
	if err != nil {
		return Outcome{}, err
	}
	maxAgeHours := r.FloatParam("max_age_hours", 24)

	var latest time.Time
	parsed := 0
	for _, cell := range table.Column(col) {
		if cell == nil {
			continue
		}
		t, ok := parseCellTime(cell)
		if !ok {
			continue
		}
		parsed++
		if t.After(latest) {
			latest = t
		}
	}
	if parsed == 0 {
		return Outcome{}, fmt.Errorf("%w: no parseable timestamps in column %q", core.ErrInsufficientData, col)
	}

	age := time.Since(latest)
	details := map[string]interface{}{
		"column":        col,
		"latest":        latest.Format(time.RFC3339),
		"age_hours":     age.Hours(),
		"max_age_hours": maxAgeHours,
	}
	if age.Hours() <= maxAgeHours {
		return passed(details)
	}
	return failed(details)
}

// countsFromQuery runs an aggregate query shaped as total_count plus
// violation-style count and returns both
func countsFromQuery(ctx context.Context, adapter ports.WarehouseAdapter, ref *dataset.WarehouseRef, q warehouse.Query, countColumn string) (int64, int64, error) {
	res, err := adapter.RunQuery(ctx, q.SQL, q.Args, 0)
	if err != nil {
		return 0, 0, err
	}
	total, err := scalarInt(res, "total_count")
	if err != nil {
		return 0, 0, err
	}
	count, err := scalarInt(res, countColumn)
	if err != nil {
		return 0, 0, err
	}
	return total, count, nil
}

func (v *ContentValidator) checkNotNullRemote(ctx context.Context, adapter ports.WarehouseAdapter, ref *dataset.WarehouseRef, r *rule.Rule) (Outcome, error) {
	col := r.ColumnName()
	if col == "" {
		return Outcome{}, fmt.Errorf("%w: rule %q needs a column_name parameter", core.ErrInvalidRule, r.Name)
	}
	q := warehouse.NullCountQuery(ref.DatasetID, ref.TableID, col)
	total, nonNull, err := countsFromQuery(ctx, adapter, ref, q, "non_null_count")
	if err != nil {
		return Outcome{}, err
	}
	details := map[string]interface{}{"column": col}
	return violationOutcome(r, int(total), int(total-nonNull), details)
}

func (v *ContentValidator) checkValueRangeRemote(ctx context.Context, adapter ports.WarehouseAdapter, ref *dataset.WarehouseRef, r *rule.Rule) (Outcome, error) {
	col := r.ColumnName()
	if col == "" {
		return Outcome{}, fmt.Errorf("%w: rule %q needs a column_name parameter", core.ErrInvalidRule, r.Name)
	}
	min := r.FloatParam("min_value", math.Inf(-1))
	max := r.FloatParam("max_value", math.Inf(1))
	q := warehouse.RangeViolationQuery(ref.DatasetID, ref.TableID, col, min, max)
	total, violations, err := countsFromQuery(ctx, adapter, ref, q, "violation_count")
	if err != nil {
		return Outcome{}, err
	}
	details := map[string]interface{}{"column": col, "min_value": min, "max_value": max}
	return violationOutcome(r, int(total), int(violations), details)
}

func (v *ContentValidator) checkPatternMatchRemote(ctx context.Context, adapter ports.WarehouseAdapter, ref *dataset.WarehouseRef, r *rule.Rule) (Outcome, error) {
	col := r.ColumnName()
	pattern := r.StringParam("pattern")
	if col == "" || pattern == "" {
		return Outcome{}, fmt.Errorf("%w: rule %q needs column_name and pattern parameters", core.ErrInvalidRule, r.Name)
	}
	q := warehouse.PatternViolationQuery(ref.DatasetID, ref.TableID, col, pattern)
	total, violations, err := countsFromQuery(ctx, adapter, ref, q, "violation_count")
	if err != nil {
		return Outcome{}, err
	}
	details := map[string]interface{}{"column": col, "pattern": pattern}
	return violationOutcome(r, int(total), int(violations), details)
}

func (v *ContentValidator) checkCategoricalRemote(ctx context.Context, adapter ports.WarehouseAdapter, ref *dataset.WarehouseRef, r *rule.Rule) (Outcome, error) {
	col := r.ColumnName()
	allowed := r.StringSliceParam("allowed_values")
	if col == "" || len(allowed) == 0 {
		return Outcome{}, fmt.Errorf("%w: rule %q needs column_name and allowed_values parameters", core.ErrInvalidRule, r.Name)
	}
	q := warehouse.CategoricalViolationQuery(ref.DatasetID, ref.TableID, col, allowed)
	total, violations, err := countsFromQuery(ctx, adapter, ref, q, "violation_count")
	if err != nil {
		return Outcome{}, err
	}
	details := map[string]interface{}{"column": col, "allowed_values": allowed}
	return violationOutcome(r, int(total), int(violations), details)
}

func (v *ContentValidator) checkFreshnessRemote(ctx context.Context, adapter ports.WarehouseAdapter, ref *dataset.WarehouseRef, r *rule.Rule) (Outcome, error) {
	col := r.ColumnName()
	if col == "" {
		return Outcome{}, fmt.Errorf("%w: rule %q needs a column_name parameter", core.ErrInvalidRule, r.Name)
	}
	maxAgeHours := r.FloatParam("max_age_hours", 24)

	q := warehouse.FreshnessQuery(ref.DatasetID, ref.TableID, col)
	res, err := adapter.RunQuery(ctx, q.SQL, q.Args, 0)
	if err != nil {
		return Outcome{}, err
	}
	if res.RowCount() == 0 {
		return Outcome{}, fmt.Errorf("%w: table %s.%s is empty", core.ErrInsufficientData, ref.DatasetID, ref.TableID)
	}
	latest, ok := parseCellTime(res.Rows[0]["latest"])
	if !ok {
		return Outcome{}, fmt.Errorf("%w: column %q has no parseable timestamps", core.ErrInsufficientData, col)
	}

	age := time.Since(latest)
	details := map[string]interface{}{
		"column":        col,
		"latest":        latest.Format(time.RFC3339),
		"age_hours":     age.Hours(),
		"max_age_hours": maxAgeHours,
	}
	if age.Hours() <= maxAgeHours {
		return passed(details)
	}
	return failed(details)
}
