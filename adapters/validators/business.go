package validators

import (
	"context"
	"fmt"

	"github.com/spf13/cast"

	"goquality/domain/core"
	"goquality/domain/dataset"
	"goquality/domain/rule"
	"goquality/ports"
)

// BusinessRuleValidator checks domain conditions over individual rows:
// single-column predicates and cross-field comparisons. Conditions are
// declarative parameters, not an expression language.
type BusinessRuleValidator struct {
	base
}

// NewBusinessRuleValidator creates the business-rule capability provider
func NewBusinessRuleValidator(adapter ports.WarehouseAdapter) (*BusinessRuleValidator, error) {
	v := &BusinessRuleValidator{}
	v.ruleType = rule.TypeBusinessRule
	v.adapter = adapter
	v.TableChecks = map[string]TableCheck{
		"row_condition": v.checkRowCondition,
		"cross_field":   v.checkCrossField,
	}
	v.WarehouseChecks = map[string]WarehouseCheck{}
	return v, nil
}

// compare evaluates "cell op expected" for the supported operators.
// Ordering operators coerce both sides to float64; equality compares
// string renderings so mixed numeric types still match.
func compare(cell interface{}, op string, expected interface{}) (bool, error) {
	switch op {
	case "is_null":
		return cell == nil, nil
	case "not_null":
		return cell != nil, nil
	}
	if cell == nil {
		return false, nil
	}

	switch op {
	case "eq":
		return cast.ToString(cell) == cast.ToString(expected), nil
	case "ne":
		return cast.ToString(cell) != cast.ToString(expected), nil
	case "gt", "gte", "lt", "lte":
		a, err := cast.ToFloat64E(cell)
		if err != nil {
			return false, nil // non-numeric cell fails ordering checks
		}
		b, err := cast.ToFloat64E(expected)
		if err != nil {
			return false, fmt.Errorf("%w: comparison value %v is not numeric", core.ErrInvalidRule, expected)
		}
		switch op {
		case "gt":
			return a > b, nil
		case "gte":
			return a >= b, nil
		case "lt":
			return a < b, nil
		default:
			return a <= b, nil
		}
	case "in", "not_in":
		values := cast.ToStringSlice(expected)
		found := false
		s := cast.ToString(cell)
		for _, v := range values {
			if v == s {
				found = true
				break
			}
		}
		if op == "in" {
			return found, nil
		}
		return !found, nil
	default:
		return false, fmt.Errorf("%w: unknown operator %q", core.ErrInvalidRule, op)
	}
}

func (v *BusinessRuleValidator) checkRowCondition(_ context.Context, table *dataset.Table, r *rule.Rule) (Outcome, error) {
	col, err := requireColumn(table, r)
	if err != nil {
		return Outcome{}, err
	}
	op := r.StringParam("operator")
	if op == "" {
		return Outcome{}, fmt.Errorf("%w: rule %q needs an operator parameter", core.ErrInvalidRule, r.Name)
	}
	expected := r.Parameters["value"]

	violations := 0
	for _, row := range table.Rows {
		ok, err := compare(row[col], op, expected)
		if err != nil {
			return Outcome{}, err
		}
		if !ok {
			violations++
		}
	}

	details := map[string]interface{}{"column": col, "operator": op, "value": expected}
	return violationOutcome(r, table.RowCount(), violations, details)
}

func (v *BusinessRuleValidator) checkCrossField(_ context.Context, table *dataset.Table, r *rule.Rule) (Outcome, error) {
	colA := r.ColumnName()
	colB := r.StringParam("other_column")
	op := r.StringParam("operator")
	if colA == "" || colB == "" || op == "" {
		return Outcome{}, fmt.Errorf("%w: rule %q needs column_name, other_column and operator parameters", core.ErrInvalidRule, r.Name)
	}
	for _, c := range []string{colA, colB} {
		if !table.HasColumn(c) {
			return Outcome{}, fmt.Errorf("%w: column %q", core.ErrColumnNotFound, c)
		}
	}

	violations := 0
	checked := 0
	for _, row := range table.Rows {
		a, b := row[colA], row[colB]
		if a == nil || b == nil {
			continue
		}
		checked++
		ok, err := compare(a, op, b)
		if err != nil {
			return Outcome{}, err
		}
		if !ok {
			violations++
		}
	}

	details := map[string]interface{}{"column": colA, "other_column": colB, "operator": op}
	return violationOutcome(r, checked, violations, details)
}
