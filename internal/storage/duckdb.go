package storage

import (
	"context"
	"database/sql"
	stderrors "errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb" // DuckDB driver

	"github.com/kyleking/askdb/internal/errors"
)

// DuckDBRepository implements the Repository interface using DuckDB
type DuckDBRepository struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// NewDuckDBRepository opens (creating if needed) the history database at dbPath
func NewDuckDBRepository(dbPath string) (*DuckDBRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeFileSystem, "failed to create history directory")
	}

	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to open history database")
	}

	// DuckDB takes a file lock per process; a small pool is plenty
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to ping history database")
	}

	return &DuckDBRepository{db: db, path: dbPath, now: time.Now}, nil
}

// Initialize brings the schema up to the latest migration
func (r *DuckDBRepository) Initialize(ctx context.Context) error {
	return NewMigrationManager(r.db).MigrateUp(ctx)
}

// Record stores entry, assigning an ID and timestamp when missing
func (r *DuckDBRepository) Record(ctx context.Context, entry Entry) (Entry, error) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now()
	}

	entry.CreatedAt = entry.CreatedAt.UTC()

	switch entry.Status {
	case StatusOK, StatusRejected, StatusFailed:
	default:
		return Entry{}, errors.Newf(errors.ErrTypeValidation, "invalid history status %q", entry.Status)
	}

	insertSQL := `
	INSERT INTO history (
		id, question, sql_text, source, status, error_message, row_count, duration_ms, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, insertSQL,
		entry.ID,
		entry.Question,
		entry.SQL,
		entry.Source,
		string(entry.Status),
		entry.Error,
		entry.RowCount,
		entry.DurationMS,
		entry.CreatedAt,
	)
	if err != nil {
		return Entry{}, errors.Wrap(err, errors.ErrTypeDatabase, "failed to record history entry")
	}

	return entry, nil
}

const selectEntry = `
	SELECT id, question, sql_text, source, status, error_message, row_count, duration_ms, created_at
	FROM history`

// Get returns the entry with id
func (r *DuckDBRepository) Get(ctx context.Context, id string) (*Entry, error) {
	row := r.db.QueryRowContext(ctx, selectEntry+" WHERE id = ?", id)

	entry, err := scanEntry(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.Newf(errors.ErrTypeNotFound, "history entry %s not found", id)
	}

	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to get history entry")
	}

	return entry, nil
}

// List returns entries newest first
func (r *DuckDBRepository) List(ctx context.Context, limit, offset int) ([]Entry, error) {
	if limit <= 0 {
		return nil, errors.New(errors.ErrTypeValidation, "limit must be positive")
	}

	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.QueryContext(ctx,
		selectEntry+" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to query history")
	}
	defer rows.Close()

	entries := []Entry{}

	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to scan history entry")
		}

		entries = append(entries, *entry)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to read history")
	}

	return entries, nil
}

// Stats counts entries by status and source
func (r *DuckDBRepository) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		ByStatus: make(map[Status]int),
		BySource: make(map[string]int),
	}

	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM history").Scan(&stats.TotalEntries); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to count history")
	}

	var lastAsked *time.Time
	if err := r.db.QueryRowContext(ctx, "SELECT MAX(created_at) FROM history").Scan(&lastAsked); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to get last question time")
	}

	if lastAsked != nil {
		stats.LastAskedAt = *lastAsked
	}

	if info, err := os.Stat(r.path); err == nil {
		stats.DatabaseSizeMB = float64(info.Size()) / (1024 * 1024)
	}

	if err := r.countBy(ctx, "status", func(key string, n int) { stats.ByStatus[Status(key)] = n }); err != nil {
		return nil, err
	}

	if err := r.countBy(ctx, "source", func(key string, n int) { stats.BySource[key] = n }); err != nil {
		return nil, err
	}

	return stats, nil
}

func (r *DuckDBRepository) countBy(ctx context.Context, column string, add func(key string, n int)) error {
	rows, err := r.db.QueryContext(ctx, "SELECT "+column+", COUNT(*) FROM history GROUP BY "+column)
	if err != nil {
		return errors.Wrapf(err, errors.ErrTypeDatabase, "failed to count history by %s", column)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key string
			n   int
		)

		if err := rows.Scan(&key, &n); err != nil {
			return errors.Wrapf(err, errors.ErrTypeDatabase, "failed to scan %s count", column)
		}

		add(key, n)
	}

	return rows.Err()
}

// Clear removes every entry and reports how many were deleted
func (r *DuckDBRepository) Clear(ctx context.Context) (int, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM history")
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrTypeDatabase, "failed to clear history")
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrTypeDatabase, "failed to count cleared history")
	}

	return int(n), nil
}

// Close closes the database connection
func (r *DuckDBRepository) Close() error {
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*Entry, error) {
	var (
		entry  Entry
		status string
	)

	err := s.Scan(
		&entry.ID, &entry.Question, &entry.SQL, &entry.Source, &status,
		&entry.Error, &entry.RowCount, &entry.DurationMS, &entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.Status = Status(status)

	return &entry, nil
}

var _ Repository = (*DuckDBRepository)(nil)
