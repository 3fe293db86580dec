package ports

import (
	"context"
	"time"

	"goquality/domain/dataset"
)

// WarehouseAdapter is the contract the engines need from a warehouse
// client. Query generation per rule subtype lives behind this boundary;
// the core never builds dialect-specific SQL itself.
type WarehouseAdapter interface {
	// TableExists reports whether the table is present
	TableExists(ctx context.Context, datasetID, tableID string) (bool, error)

	// TableSchema returns column name -> type for the table
	TableSchema(ctx context.Context, datasetID, tableID string) (map[string]string, error)

	// RowCount returns the table's row count, used for mode selection
	RowCount(ctx context.Context, datasetID, tableID string) (int64, error)

	// RunQuery executes a query and returns the result as a table.
	// A zero timeout means the adapter's default applies.
	RunQuery(ctx context.Context, query string, args []interface{}, timeout time.Duration) (*dataset.Table, error)

	// Close releases the underlying connection pool
	Close() error
}
