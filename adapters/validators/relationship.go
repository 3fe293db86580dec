package validators

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"goquality/adapters/warehouse"
	"goquality/domain/core"
	"goquality/domain/dataset"
	"goquality/domain/rule"
	"goquality/ports"
)

// RelationshipValidator checks cross-row and cross-table properties:
// uniqueness, referential integrity, and cardinality bounds.
type RelationshipValidator struct {
	base

	// lookupTables resolves reference tables for in-memory referential
	// checks, keyed by table name
	lookupTables map[string]*dataset.Table
}

// NewRelationshipValidator creates the relationship capability provider
func NewRelationshipValidator(adapter ports.WarehouseAdapter) (*RelationshipValidator, error) {
	v := &RelationshipValidator{lookupTables: map[string]*dataset.Table{}}
	v.ruleType = rule.TypeRelationship
	v.adapter = adapter
	v.TableChecks = map[string]TableCheck{
		"uniqueness":            v.checkUniqueness,
		"referential_integrity": v.checkReferentialIntegrity,
		"cardinality":           v.checkCardinality,
	}
	v.WarehouseChecks = map[string]WarehouseCheck{
		"uniqueness":            v.checkUniquenessRemote,
		"referential_integrity": v.checkReferentialIntegrityRemote,
		"cardinality":           v.checkCardinalityRemote,
	}
	return v, nil
}

// RegisterLookupTable makes a reference table available for in-memory
// referential integrity checks
func (v *RelationshipValidator) RegisterLookupTable(table *dataset.Table) {
	v.lookupTables[table.Name] = table
}

// ruleColumns resolves the column set a relationship rule targets: the
// columns parameter when present, otherwise the single column_name
func ruleColumns(r *rule.Rule) []string {
	if cols := r.StringSliceParam("columns"); len(cols) > 0 {
		return cols
	}
	if col := r.ColumnName(); col != "" {
		return []string{col}
	}
	return nil
}

func compositeKey(row map[string]interface{}, columns []string) string {
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = cast.ToString(row[c])
	}
	return strings.Join(parts, "\x1f")
}

func (v *RelationshipValidator) checkUniqueness(_ context.Context, table *dataset.Table, r *rule.Rule) (Outcome, error) {
	columns := ruleColumns(r)
	if len(columns) == 0 {
		return Outcome{}, fmt.Errorf("%w: rule %q needs a columns or column_name parameter", core.ErrInvalidRule, r.Name)
	}
	for _, c := range columns {
		if !table.HasColumn(c) {
			return Outcome{}, fmt.Errorf("%w: column %q", core.ErrColumnNotFound, c)
		}
	}

	seen := map[string]int{}
	for _, row := range table.Rows {
		seen[compositeKey(row, columns)]++
	}
	duplicates := 0
	for _, n := range seen {
		if n > 1 {
			duplicates += n
		}
	}

	details := map[string]interface{}{"columns": columns, "distinct_count": len(seen)}
	return violationOutcome(r, table.RowCount(), duplicates, details)
}

func (v *RelationshipValidator) checkReferentialIntegrity(_ context.Context, table *dataset.Table, r *rule.Rule) (Outcome, error) {
	col, err := requireColumn(table, r)
	if err != nil {
		return Outcome{}, err
	}
	refTableName := r.StringParam("reference_table")
	refColumn := r.StringParam("reference_column")
	if refTableName == "" || refColumn == "" {
		return Outcome{}, fmt.Errorf("%w: rule %q needs reference_table and reference_column parameters", core.ErrInvalidRule, r.Name)
	}
	refTable, ok := v.lookupTables[refTableName]
	if !ok {
		return Outcome{}, fmt.Errorf("%w: reference table %q not registered", core.ErrTableNotFound, refTableName)
	}
	if !refTable.HasColumn(refColumn) {
		return Outcome{}, fmt.Errorf("%w: column %q in reference table %q", core.ErrColumnNotFound, refColumn, refTableName)
	}

	parentKeys := map[string]bool{}
	for _, cell := range refTable.Column(refColumn) {
		if cell != nil {
			parentKeys[cast.ToString(cell)] = true
		}
	}

	orphans := 0
	checked := 0
	for _, cell := range table.Column(col) {
		if cell == nil {
			continue
		}
		checked++
		if !parentKeys[cast.ToString(cell)] {
			orphans++
		}
	}

	details := map[string]interface{}{
		"column":           col,
		"reference_table":  refTableName,
		"reference_column": refColumn,
	}
	return violationOutcome(r, checked, orphans, details)
}

func (v *RelationshipValidator) checkCardinality(_ context.Context, table *dataset.Table, r *rule.Rule) (Outcome, error) {
	col, err := requireColumn(table, r)
	if err != nil {
		return Outcome{}, err
	}
	minDistinct := r.IntParam("min_distinct", 0)
	maxDistinct := r.IntParam("max_distinct", -1)

	distinct := map[string]bool{}
	for _, cell := range table.Column(col) {
		if cell != nil {
			distinct[cast.ToString(cell)] = true
		}
	}
	n := len(distinct)

	details := map[string]interface{}{
		"column":         col,
		"distinct_count": n,
		"min_distinct":   minDistinct,
		"max_distinct":   maxDistinct,
	}
	if n < minDistinct {
		return failed(details)
	}
	if maxDistinct >= 0 && n > maxDistinct {
		return failed(details)
	}
	return passed(details)
}

func (v *RelationshipValidator) checkUniquenessRemote(ctx context.Context, adapter ports.WarehouseAdapter, ref *dataset.WarehouseRef, r *rule.Rule) (Outcome, error) {
	columns := ruleColumns(r)
	if len(columns) == 0 {
		return Outcome{}, fmt.Errorf("%w: rule %q needs a columns or column_name parameter", core.ErrInvalidRule, r.Name)
	}

	q := warehouse.DuplicateCountQuery(ref.DatasetID, ref.TableID, columns)
	res, err := adapter.RunQuery(ctx, q.SQL, q.Args, 0)
	if err != nil {
		return Outcome{}, err
	}
	duplicates, err := scalarInt(res, "duplicate_count")
	if err != nil {
		return Outcome{}, err
	}
	total, err := adapter.RowCount(ctx, ref.DatasetID, ref.TableID)
	if err != nil {
		return Outcome{}, err
	}

	details := map[string]interface{}{"columns": columns}
	return violationOutcome(r, int(total), int(duplicates), details)
}

func (v *RelationshipValidator) checkReferentialIntegrityRemote(ctx context.Context, adapter ports.WarehouseAdapter, ref *dataset.WarehouseRef, r *rule.Rule) (Outcome, error) {
	col := r.ColumnName()
	refTable := r.StringParam("reference_table")
	refColumn := r.StringParam("reference_column")
	if col == "" || refTable == "" || refColumn == "" {
		return Outcome{}, fmt.Errorf("%w: rule %q needs column_name, reference_table and reference_column parameters", core.ErrInvalidRule, r.Name)
	}

	q := warehouse.OrphanCountQuery(ref.DatasetID, ref.TableID, col, refTable, refColumn)
	res, err := adapter.RunQuery(ctx, q.SQL, q.Args, 0)
	if err != nil {
		return Outcome{}, err
	}
	orphans, err := scalarInt(res, "orphan_count")
	if err != nil {
		return Outcome{}, err
	}
	total, err := adapter.RowCount(ctx, ref.DatasetID, ref.TableID)
	if err != nil {
		return Outcome{}, err
	}

	details := map[string]interface{}{
		"column":           col,
		"reference_table":  refTable,
		"reference_column": refColumn,
	}
	return violationOutcome(r, int(total), int(orphans), details)
}

func (v *RelationshipValidator) checkCardinalityRemote(ctx context.Context, adapter ports.WarehouseAdapter, ref *dataset.WarehouseRef, r *rule.Rule) (Outcome, error) {
	col := r.ColumnName()
	if col == "" {
		return Outcome{}, fmt.Errorf("%w: rule %q needs a column_name parameter", core.ErrInvalidRule, r.Name)
	}
	minDistinct := r.IntParam("min_distinct", 0)
	maxDistinct := r.IntParam("max_distinct", -1)

	q := warehouse.DistinctCountQuery(ref.DatasetID, ref.TableID, col)
	res, err := adapter.RunQuery(ctx, q.SQL, q.Args, 0)
	if err != nil {
		return Outcome{}, err
	}
	n, err := scalarInt(res, "distinct_count")
	if err != nil {
		return Outcome{}, err
	}

	details := map[string]interface{}{
		"column":         col,
		"distinct_count": n,
		"min_distinct":   minDistinct,
		"max_distinct":   maxDistinct,
	}
	if n < int64(minDistinct) {
		return failed(details)
	}
	if maxDistinct >= 0 && n > int64(maxDistinct) {
		return failed(details)
	}
	return passed(details)
}
