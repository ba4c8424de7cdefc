// Package storage persists the transcript of asked questions in DuckDB.
package storage

import (
	"context"
	"time"
)

// Status is the outcome recorded for a question
type Status string

const (
	StatusOK       Status = "ok"
	StatusRejected Status = "rejected"
	StatusFailed   Status = "failed"
)

// Repository defines the interface for history operations
type Repository interface {
	Initialize(ctx context.Context) error
	Record(ctx context.Context, entry Entry) (Entry, error)
	Get(ctx context.Context, id string) (*Entry, error)
	List(ctx context.Context, limit, offset int) ([]Entry, error)
	Stats(ctx context.Context) (*Stats, error)
	Clear(ctx context.Context) (int, error)
	Close() error
}

// Entry is one asked question and what became of it
type Entry struct {
	ID         string    `json:"id"`
	Question   string    `json:"question"`
	SQL        string    `json:"sql"`
	Source     string    `json:"source"`
	Status     Status    `json:"status"`
	Error      string    `json:"error,omitempty"`
	RowCount   int       `json:"row_count"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Stats summarises the stored history
type Stats struct {
	TotalEntries   int            `json:"total_entries"`
	ByStatus       map[Status]int `json:"by_status"`
	BySource       map[string]int `json:"by_source"`
	LastAskedAt    time.Time      `json:"last_asked_at"`
	DatabaseSizeMB float64        `json:"database_size_mb"`
}
