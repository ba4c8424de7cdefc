// Package executor runs guarded queries against the dataset and materialises the rows.
package executor

import (
	"context"
	"database/sql"
	"time"

	"github.com/kyleking/askdb/internal/errors"
	"github.com/kyleking/askdb/internal/guard"
)

// DefaultTimeout bounds a single query when none is configured
const DefaultTimeout = 30 * time.Second

// Column describes one result column
type Column struct {
	Name         string `json:"name"`
	DatabaseType string `json:"database_type,omitempty"`
}

// Result is a fully materialised result set. Values are string, int64,
// float64, bool, time.Time or nil.
type Result struct {
	Columns  []Column      `json:"columns"`
	Rows     [][]any       `json:"rows"`
	Duration time.Duration `json:"duration"`
}

// ColumnNames returns column names in result order
func (r *Result) ColumnNames() []string {
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}

	return names
}

// Len returns the number of rows
func (r *Result) Len() int {
	return len(r.Rows)
}

// Row returns row i keyed by column name
func (r *Result) Row(i int) map[string]any {
	row := make(map[string]any, len(r.Columns))
	for j, c := range r.Columns {
		row[c.Name] = r.Rows[i][j]
	}

	return row
}

// Executor runs guarded queries on a dedicated connection per call
type Executor struct {
	db      *sql.DB
	timeout time.Duration
}

// Option configures an Executor
type Option func(*Executor)

// WithTimeout bounds each query; zero disables the bound
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		e.timeout = d
	}
}

// New creates an executor over db
func New(db *sql.DB, opts ...Option) *Executor {
	e := &Executor{db: db, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Execute runs q and returns every row. Driver failures are returned
// verbatim inside an execution error and never retried.
func (e *Executor) Execute(ctx context.Context, q guard.Query) (*Result, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()

	conn, err := e.db.Conn(ctx)
	if err != nil {
		return nil, errors.NewExecutionError(err)
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, q.String())
	if err != nil {
		return nil, errors.NewExecutionError(err)
	}
	defer rows.Close()

	columns, err := describe(rows)
	if err != nil {
		return nil, errors.NewExecutionError(err)
	}

	result := &Result{Columns: columns, Rows: [][]any{}}

	for rows.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))

		for i := range values {
			dest[i] = &values[i]
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, errors.NewExecutionError(err)
		}

		for i, v := range values {
			values[i] = normalize(v)
		}

		result.Rows = append(result.Rows, values)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.NewExecutionError(err)
	}

	result.Duration = time.Since(start)

	return result, nil
}

func describe(rows *sql.Rows) ([]Column, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	columns := make([]Column, len(names))
	for i, name := range names {
		columns[i] = Column{Name: name}
	}

	// Declared types are best effort; expressions have none
	if types, err := rows.ColumnTypes(); err == nil && len(types) == len(columns) {
		for i, ct := range types {
			columns[i].DatabaseType = ct.DatabaseTypeName()
		}
	}

	return columns, nil
}

func normalize(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case float32:
		return float64(val)
	default:
		return val
	}
}
