// Package schema reads the table layout of the SQLite dataset.
package schema

import (
	"context"
	"database/sql"
	"strings"

	"github.com/kyleking/askdb/internal/errors"
	"github.com/kyleking/askdb/internal/types"
)

// Querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

const tablesQuery = "SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name"

// Introspect returns every user table with its columns in declaration order.
// Tables carrying SQLite's reserved sqlite_ prefix are skipped.
func Introspect(ctx context.Context, q Querier) (types.Schema, error) {
	names, err := tableNames(ctx, q)
	if err != nil {
		return types.Schema{}, err
	}

	s := types.Schema{Tables: make([]types.Table, 0, len(names))}

	for _, name := range names {
		cols, err := columns(ctx, q, name)
		if err != nil {
			return types.Schema{}, err
		}

		s.Tables = append(s.Tables, types.Table{Name: name, Columns: cols})
	}

	return s, nil
}

func tableNames(ctx context.Context, q Querier) ([]string, error) {
	rows, err := q.QueryContext(ctx, tablesQuery)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to list tables")
	}
	defer rows.Close()

	var names []string

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to scan table name")
		}

		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to list tables")
	}

	return names, nil
}

func columns(ctx context.Context, q Querier, table string) ([]types.Column, error) {
	rows, err := q.QueryContext(ctx, "PRAGMA table_info("+quoteIdent(table)+")")
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeDatabase, "failed to read columns of %s", table)
	}
	defer rows.Close()

	var cols []types.Column

	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)

		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, errors.Wrapf(err, errors.ErrTypeDatabase, "failed to scan column of %s", table)
		}

		cols = append(cols, types.Column{Name: name, Type: colType})
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeDatabase, "failed to read columns of %s", table)
	}

	return cols, nil
}

// quoteIdent quotes name as an SQLite identifier
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
