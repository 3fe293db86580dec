package validators

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"goquality/domain/core"
	"goquality/domain/dataset"
	"goquality/domain/rule"
	"goquality/ports"
)

// SchemaValidator checks structural expectations: column presence, column
// types, and whole-schema conformance.
type SchemaValidator struct {
	base
}

// NewSchemaValidator creates the schema capability provider
func NewSchemaValidator(adapter ports.WarehouseAdapter) (*SchemaValidator, error) {
	v := &SchemaValidator{}
	v.ruleType = rule.TypeSchema
	v.adapter = adapter
	v.TableChecks = map[string]TableCheck{
		"column_exists": v.checkColumnExists,
		"column_type":   v.checkColumnType,
		"schema_match":  v.checkSchemaMatch,
	}
	v.WarehouseChecks = map[string]WarehouseCheck{
		"column_exists": v.checkColumnExistsRemote,
		"column_type":   v.checkColumnTypeRemote,
		"schema_match":  v.checkSchemaMatchRemote,
	}
	return v, nil
}

func (v *SchemaValidator) checkColumnExists(_ context.Context, table *dataset.Table, r *rule.Rule) (Outcome, error) {
	col := r.ColumnName()
	if col == "" {
		return Outcome{}, fmt.Errorf("%w: rule %q needs a column_name parameter", core.ErrInvalidRule, r.Name)
	}
	details := map[string]interface{}{
		"column":  col,
		"columns": table.Columns,
	}
	if table.HasColumn(col) {
		return passed(details)
	}
	return failed(details)
}

// cellKind buckets a Go value into a coarse type name comparable with the
// expected_type parameter
func cellKind(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "integer"
	case float32, float64:
		return "float"
	case string:
		return "string"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// typeMatches compares an observed coarse kind against the expected type.
// Integers satisfy a float expectation; "numeric" accepts both.
func typeMatches(kind, expected string) bool {
	expected = strings.ToLower(strings.TrimSpace(expected))
	switch expected {
	case "numeric", "number":
		return kind == "integer" || kind == "float"
	case "float", "double":
		return kind == "integer" || kind == "float"
	default:
		return kind == expected
	}
}

func (v *SchemaValidator) checkColumnType(_ context.Context, table *dataset.Table, r *rule.Rule) (Outcome, error) {
	col, err := requireColumn(table, r)
	if err != nil {
		return Outcome{}, err
	}
	expected := r.StringParam("expected_type")
	if expected == "" {
		return Outcome{}, fmt.Errorf("%w: rule %q needs an expected_type parameter", core.ErrInvalidRule, r.Name)
	}

	mismatches := 0
	observed := map[string]int{}
	checked := 0
	for _, cell := range table.Column(col) {
		if cell == nil {
			continue // nulls are the completeness checks' concern
		}
		checked++
		kind := cellKind(cell)
		observed[kind]++
		if !typeMatches(kind, expected) {
			mismatches++
		}
	}

	details := map[string]interface{}{
		"column":         col,
		"expected_type":  expected,
		"checked_cells":  checked,
		"mismatch_count": mismatches,
		"observed_types": observed,
	}
	if mismatches == 0 {
		return passed(details)
	}
	return failed(details)
}

func (v *SchemaValidator) checkSchemaMatch(_ context.Context, table *dataset.Table, r *rule.Rule) (Outcome, error) {
	expected := r.StringSliceParam("expected_columns")
	if len(expected) == 0 {
		return Outcome{}, fmt.Errorf("%w: rule %q needs an expected_columns parameter", core.ErrInvalidRule, r.Name)
	}
	strict := cast.ToBool(r.Parameters["strict"])

	var missing, unexpected []string
	have := map[string]bool{}
	for _, c := range table.Columns {
		have[c] = true
	}
	want := map[string]bool{}
	for _, c := range expected {
		want[c] = true
		if !have[c] {
			missing = append(missing, c)
		}
	}
	if strict {
		for _, c := range table.Columns {
			if !want[c] {
				unexpected = append(unexpected, c)
			}
		}
	}

	details := map[string]interface{}{
		"expected_columns":   expected,
		"missing_columns":    missing,
		"unexpected_columns": unexpected,
	}
	if len(missing) == 0 && len(unexpected) == 0 {
		return passed(details)
	}
	return failed(details)
}

func (v *SchemaValidator) checkColumnExistsRemote(ctx context.Context, adapter ports.WarehouseAdapter, ref *dataset.WarehouseRef, r *rule.Rule) (Outcome, error) {
	col := r.ColumnName()
	if col == "" {
		return Outcome{}, fmt.Errorf("%w: rule %q needs a column_name parameter", core.ErrInvalidRule, r.Name)
	}
	schema, err := adapter.TableSchema(ctx, ref.DatasetID, ref.TableID)
	if err != nil {
		return Outcome{}, err
	}
	_, ok := schema[col]
	details := map[string]interface{}{"column": col, "table": ref.TableID}
	if ok {
		return passed(details)
	}
	return failed(details)
}

func (v *SchemaValidator) checkColumnTypeRemote(ctx context.Context, adapter ports.WarehouseAdapter, ref *dataset.WarehouseRef, r *rule.Rule) (Outcome, error) {
	col := r.ColumnName()
	expected := r.StringParam("expected_type")
	if col == "" || expected == "" {
		return Outcome{}, fmt.Errorf("%w: rule %q needs column_name and expected_type parameters", core.ErrInvalidRule, r.Name)
	}
	schema, err := adapter.TableSchema(ctx, ref.DatasetID, ref.TableID)
	if err != nil {
		return Outcome{}, err
	}
	actual, ok := schema[col]
	if !ok {
		return Outcome{}, fmt.Errorf("%w: column %q", core.ErrColumnNotFound, col)
	}

	details := map[string]interface{}{
		"column":        col,
		"expected_type": expected,
		"actual_type":   actual,
	}
	if strings.EqualFold(actual, expected) || strings.Contains(strings.ToLower(actual), strings.ToLower(expected)) {
		return passed(details)
	}
	return failed(details)
}

func (v *SchemaValidator) checkSchemaMatchRemote(ctx context.Context, adapter ports.WarehouseAdapter, ref *dataset.WarehouseRef, r *rule.Rule) (Outcome, error) {
	expected := r.StringSliceParam("expected_columns")
	if len(expected) == 0 {
		return Outcome{}, fmt.Errorf("%w: rule %q needs an expected_columns parameter", core.ErrInvalidRule, r.Name)
	}
	schema, err := adapter.TableSchema(ctx, ref.DatasetID, ref.TableID)
	if err != nil {
		return Outcome{}, err
	}

	var missing []string
	for _, c := range expected {
		if _, ok := schema[c]; !ok {
			missing = append(missing, c)
		}
	}
	details := map[string]interface{}{
		"expected_columns": expected,
		"missing_columns":  missing,
	}
	if len(missing) == 0 {
		return passed(details)
	}
	return failed(details)
}
