// Package warehouse implements the warehouse adapter contract against
// PostgreSQL. Dataset identifiers map to schemas, table identifiers to
// tables within them.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"goquality/domain/core"
	"goquality/domain/dataset"
)

// DefaultQueryTimeout bounds warehouse queries when the caller passes zero
const DefaultQueryTimeout = 30 * time.Second

// PostgresAdapter implements ports.WarehouseAdapter over a sqlx pool
type PostgresAdapter struct {
	db      *sqlx.DB
	timeout time.Duration

	mu     sync.Mutex
	closed bool
}

// NewPostgresAdapter wraps an existing connection pool
func NewPostgresAdapter(db *sqlx.DB, timeout time.Duration) *PostgresAdapter {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return &PostgresAdapter{db: db, timeout: timeout}
}

// Connect opens a pool from a connection URL and wraps it
func Connect(url string, timeout time.Duration) (*PostgresAdapter, error) {
	db, err := sqlx.Connect("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("connect to warehouse: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	return NewPostgresAdapter(db, timeout), nil
}

func (a *PostgresAdapter) guard() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return core.ErrAdapterClosed
	}
	return nil
}

// TableExists checks the information schema for the table
func (a *PostgresAdapter) TableExists(ctx context.Context, datasetID, tableID string) (bool, error) {
	if err := a.guard(); err != nil {
		return false, err
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var exists bool
	query := `SELECT EXISTS (
		SELECT 1 FROM information_schema.tables
		WHERE table_schema = $1 AND table_name = $2
	)`
	if err := a.db.GetContext(ctx, &exists, query, datasetID, tableID); err != nil {
		return false, fmt.Errorf("check table %s.%s: %w", datasetID, tableID, err)
	}
	return exists, nil
}

// TableSchema returns column name to data type for the table
func (a *PostgresAdapter) TableSchema(ctx context.Context, datasetID, tableID string) (map[string]string, error) {
	if err := a.guard(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	query := `SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`
	rows, err := a.db.QueryxContext(ctx, query, datasetID, tableID)
	if err != nil {
		return nil, fmt.Errorf("read schema for %s.%s: %w", datasetID, tableID, err)
	}
	defer rows.Close()

	schema := map[string]string{}
	for rows.Next() {
		var name, dataType string
		if err := rows.Scan(&name, &dataType); err != nil {
			return nil, fmt.Errorf("scan schema row: %w", err)
		}
		schema[name] = dataType
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schema rows: %w", err)
	}
	if len(schema) == 0 {
		return nil, fmt.Errorf("%w: table %s.%s", core.ErrTableNotFound, datasetID, tableID)
	}
	return schema, nil
}

// RowCount returns the table's exact row count
func (a *PostgresAdapter) RowCount(ctx context.Context, datasetID, tableID string) (int64, error) {
	if err := a.guard(); err != nil {
		return 0, err
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var count int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", QualifiedTable(datasetID, tableID))
	if err := a.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("count rows in %s.%s: %w", datasetID, tableID, err)
	}
	return count, nil
}

// RunQuery executes an arbitrary query and materializes the result set as
// an in-memory table
func (a *PostgresAdapter) RunQuery(ctx context.Context, query string, args []interface{}, timeout time.Duration) (*dataset.Table, error) {
	if err := a.guard(); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = a.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	rows, err := a.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("run warehouse query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read result columns: %w", err)
	}

	table := dataset.NewTable("", columns)
	for rows.Next() {
		row := map[string]interface{}{}
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}
		for k, v := range row {
			// lib/pq returns []byte for text columns through MapScan
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
			if v == nil {
				row[k] = nil
			}
		}
		table.AppendRow(row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate result rows: %w", err)
	}
	return table, nil
}

// Ping verifies the connection is alive
func (a *PostgresAdapter) Ping(ctx context.Context) error {
	if err := a.guard(); err != nil {
		return err
	}
	return a.db.PingContext(ctx)
}

// Close shuts down the connection pool. Safe to call more than once.
func (a *PostgresAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	if err := a.db.Close(); err != nil && err != sql.ErrConnDone {
		return fmt.Errorf("close warehouse pool: %w", err)
	}
	return nil
}
