package dataset

import (
	"math"
	"math/rand"

	"github.com/spf13/cast"

	"goquality/domain/core"
)

// Kind discriminates dataset representations
type Kind string

const (
	KindTable     Kind = "table"
	KindWarehouse Kind = "warehouse"
)

// Dataset is anything the validation engines can run rules against
type Dataset interface {
	Kind() Kind
}

// Table is an in-memory tabular dataset: named columns over row maps.
// Rows are keyed by column name so sparse rows (missing cells) are
// representable; a missing key reads as nil.
type Table struct {
	Name    string                   `json:"name,omitempty"`
	Columns []string                 `json:"columns"`
	Rows    []map[string]interface{} `json:"rows"`
}

// NewTable creates an empty table with the given column set
func NewTable(name string, columns []string) *Table {
	return &Table{
		Name:    name,
		Columns: columns,
		Rows:    []map[string]interface{}{},
	}
}

// Kind identifies this as an in-memory table
func (t *Table) Kind() Kind {
	return KindTable
}

// AppendRow adds a row. Cells for unknown columns are kept; validators
// only ever read declared columns.
func (t *Table) AppendRow(row map[string]interface{}) {
	t.Rows = append(t.Rows, row)
}

// RowCount returns the number of rows
func (t *Table) RowCount() int {
	return len(t.Rows)
}

// HasColumn reports whether the column is declared
func (t *Table) HasColumn(name string) bool {
	for _, col := range t.Columns {
		if col == name {
			return true
		}
	}
	return false
}

// Column returns all cell values for a column, nil for missing cells
func (t *Table) Column(name string) []interface{} {
	values := make([]interface{}, len(t.Rows))
	for i, row := range t.Rows {
		values[i] = row[name]
	}
	return values
}

// NumericColumn converts a column to float64 values, reporting how many
// cells could not be interpreted as numbers (nil cells included).
// Non-numeric cells become NaN so positional alignment is preserved.
func (t *Table) NumericColumn(name string) ([]float64, int) {
	values := make([]float64, len(t.Rows))
	nonNumeric := 0
	for i, row := range t.Rows {
		cell, ok := row[name]
		if !ok || cell == nil {
			values[i] = math.NaN()
			nonNumeric++
			continue
		}
		f, err := cast.ToFloat64E(cell)
		if err != nil {
			values[i] = math.NaN()
			nonNumeric++
			continue
		}
		values[i] = f
	}
	return values, nonNumeric
}

// Sample draws a deterministic fractional sample without replacement.
// Fractions outside (0,1] return a copy of the full table; at least one
// row is kept for non-empty tables.
func (t *Table) Sample(fraction float64, seed int64) *Table {
	sampled := NewTable(t.Name, t.Columns)
	if len(t.Rows) == 0 {
		return sampled
	}
	if fraction <= 0 || fraction >= 1 {
		sampled.Rows = append(sampled.Rows, t.Rows...)
		return sampled
	}

	n := int(float64(len(t.Rows)) * fraction)
	if n < 1 {
		n = 1
	}

	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(len(t.Rows))[:n]
	for _, idx := range perm {
		sampled.Rows = append(sampled.Rows, t.Rows[idx])
	}
	return sampled
}

// WarehouseRef points at a remote warehouse table. The data never enters
// process memory; validators push checks down through the warehouse adapter.
type WarehouseRef struct {
	DatasetID     string `json:"dataset_id"`
	TableID       string `json:"table_id"`
	EstimatedRows int64  `json:"estimated_rows,omitempty"`
}

// Kind identifies this as a remote warehouse table
func (w *WarehouseRef) Kind() Kind {
	return KindWarehouse
}

// ID returns the dataset identifier as a typed ID
func (w *WarehouseRef) ID() core.DatasetID {
	return core.DatasetID(w.DatasetID)
}
