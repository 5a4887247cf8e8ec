// Package sqldb executes statements against the fixed dataset file through
// database/sql, opening a fresh read-only connection per call.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"
	_ "github.com/mattn/go-sqlite3"

	"github.com/bookwise/bookwise/internal/dataset"
	"github.com/bookwise/bookwise/internal/observability"
	"github.com/bookwise/bookwise/internal/sqlguard"
)

type openFunc func(driver, dsn string) (*sql.DB, error)

type Executor struct {
	driver string
	path   string
	open   openFunc
}

func NewExecutor(driver, path string) *Executor {
	return &Executor{driver: driver, path: path, open: sql.Open}
}

func (e *Executor) Execute(ctx context.Context, request dataset.Request) (dataset.Result, error) {
	if !sqlguard.IsSafe(request.SQL) {
		observability.IncrementQueryRejected()
		return dataset.Result{}, dataset.ErrUnsafeStatement
	}

	start := time.Now()
	db, err := e.connect()
	if err != nil {
		return dataset.Result{}, err
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx, request.SQL)
	if err != nil {
		return dataset.Result{}, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return dataset.Result{}, fmt.Errorf("query columns: %w", err)
	}
	if columns == nil {
		columns = []string{}
	}

	// The whole result set is materialized before the cap is applied.
	// MaxRows bounds what the caller sees, not what the engine scans.
	fetched := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return dataset.Result{}, fmt.Errorf("scan row: %w", err)
		}
		fetched = append(fetched, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return dataset.Result{}, fmt.Errorf("iterate rows: %w", err)
	}

	maxRows := request.MaxRows
	if maxRows < 0 {
		maxRows = 0
	}
	truncated := len(fetched) > maxRows
	if truncated {
		fetched = fetched[:maxRows]
	}

	elapsed := time.Since(start)
	observability.ObserveQuery(len(fetched), elapsed)

	return dataset.Result{
		Columns:   columns,
		Rows:      fetched,
		RowCount:  len(fetched),
		Truncated: truncated,
		Duration:  elapsed,
	}, nil
}

func (e *Executor) connect() (*sql.DB, error) {
	db, err := e.open(e.driver, readOnlyDSN(e.driver, e.path))
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	return db, nil
}

func readOnlyDSN(driver, path string) string {
	switch driver {
	case "duckdb":
		return path + "?access_mode=read_only"
	default:
		return "file:" + path + "?mode=ro"
	}
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}
