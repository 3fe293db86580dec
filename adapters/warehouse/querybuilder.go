package warehouse

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// Query is a parameterized statement ready for WarehouseAdapter.RunQuery
type Query struct {
	SQL  string
	Args []interface{}
}

// QualifiedTable renders a schema-qualified, identifier-quoted table name
func QualifiedTable(datasetID, tableID string) string {
	return pq.QuoteIdentifier(datasetID) + "." + pq.QuoteIdentifier(tableID)
}

func column(name string) string {
	return pq.QuoteIdentifier(name)
}

// NullCountQuery counts total and non-null cells for a column. The result
// columns are total_count and non_null_count.
func NullCountQuery(datasetID, tableID, columnName string) Query {
	return Query{
		SQL: fmt.Sprintf(
			"SELECT COUNT(*) AS total_count, COUNT(%s) AS non_null_count FROM %s",
			column(columnName), QualifiedTable(datasetID, tableID),
		),
	}
}

// RangeViolationQuery counts values outside [min,max]. Result columns are
// total_count and violation_count. Nulls do not count as violations.
func RangeViolationQuery(datasetID, tableID, columnName string, min, max float64) Query {
	col := column(columnName)
	return Query{
		SQL: fmt.Sprintf(
			"SELECT COUNT(*) AS total_count, COUNT(*) FILTER (WHERE %s < $1 OR %s > $2) AS violation_count FROM %s",
			col, col, QualifiedTable(datasetID, tableID),
		),
		Args: []interface{}{min, max},
	}
}

// PatternViolationQuery counts non-null values not matching a POSIX regex.
// Result columns are total_count and violation_count.
func PatternViolationQuery(datasetID, tableID, columnName, pattern string) Query {
	col := column(columnName)
	return Query{
		SQL: fmt.Sprintf(
			"SELECT COUNT(*) AS total_count, COUNT(*) FILTER (WHERE %s IS NOT NULL AND %s::text !~ $1) AS violation_count FROM %s",
			col, col, QualifiedTable(datasetID, tableID),
		),
		Args: []interface{}{pattern},
	}
}

// CategoricalViolationQuery counts non-null values outside the allowed set.
// Result columns are total_count and violation_count.
func CategoricalViolationQuery(datasetID, tableID, columnName string, allowed []string) Query {
	col := column(columnName)
	placeholders := make([]string, len(allowed))
	args := make([]interface{}, len(allowed))
	for i, v := range allowed {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = v
	}
	return Query{
		SQL: fmt.Sprintf(
			"SELECT COUNT(*) AS total_count, COUNT(*) FILTER (WHERE %s IS NOT NULL AND %s::text NOT IN (%s)) AS violation_count FROM %s",
			col, col, strings.Join(placeholders, ", "), QualifiedTable(datasetID, tableID),
		),
		Args: args,
	}
}

// DuplicateCountQuery counts rows carrying a duplicated value combination
// over the given columns. Result column is duplicate_count.
func DuplicateCountQuery(datasetID, tableID string, columns []string) Query {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = column(c)
	}
	cols := strings.Join(quoted, ", ")
	return Query{
		SQL: fmt.Sprintf(
			"SELECT COALESCE(SUM(dup_rows), 0) AS duplicate_count FROM (SELECT COUNT(*) AS dup_rows FROM %s GROUP BY %s HAVING COUNT(*) > 1) d",
			QualifiedTable(datasetID, tableID), cols,
		),
	}
}

// DistinctCountQuery counts distinct non-null values in a column. Result
// columns are total_count and distinct_count.
func DistinctCountQuery(datasetID, tableID, columnName string) Query {
	col := column(columnName)
	return Query{
		SQL: fmt.Sprintf(
			"SELECT COUNT(%s) AS total_count, COUNT(DISTINCT %s) AS distinct_count FROM %s",
			col, col, QualifiedTable(datasetID, tableID),
		),
	}
}

// OrphanCountQuery counts child values with no match in the parent table.
// Result column is orphan_count. Null child values are not orphans.
func OrphanCountQuery(datasetID, tableID, columnName, refTable, refColumn string) Query {
	col := column(columnName)
	return Query{
		SQL: fmt.Sprintf(
			"SELECT COUNT(*) AS orphan_count FROM %s c WHERE c.%s IS NOT NULL AND NOT EXISTS (SELECT 1 FROM %s p WHERE p.%s = c.%s)",
			QualifiedTable(datasetID, tableID), col,
			QualifiedTable(datasetID, refTable), column(refColumn), col,
		),
	}
}

// FreshnessQuery returns the most recent value of a timestamp column.
// Result column is latest.
func FreshnessQuery(datasetID, tableID, columnName string) Query {
	return Query{
		SQL: fmt.Sprintf(
			"SELECT MAX(%s) AS latest FROM %s",
			column(columnName), QualifiedTable(datasetID, tableID),
		),
	}
}
