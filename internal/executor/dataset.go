package executor

import (
	"context"
	"database/sql"
	"os"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/kyleking/askdb/internal/errors"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite
const DriverName = "sqlite"

// DSN builds a connection string that opens path with writes refused
func DSN(path string) string {
	if path == ":memory:" {
		return path
	}

	return "file:" + path + "?_pragma=query_only(1)"
}

// OpenDataset opens the SQLite dataset read-only and verifies the connection
func OpenDataset(ctx context.Context, path string) (*sql.DB, error) {
	if path != ":memory:" {
		if _, err := os.Stat(path); err != nil {
			return nil, errors.Wrapf(err, errors.ErrTypeNotFound, "dataset not found at %s", path).
				WithSuggestion("Set --db or ASKDB_DB_PATH to an existing SQLite file")
		}
	}

	db, err := sql.Open(DriverName, DSN(path))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to open dataset")
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to connect to dataset")
	}

	return db, nil
}
