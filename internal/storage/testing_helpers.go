package storage

import (
	"context"
	"path/filepath"
	"testing"
)

// NewTestDB creates an initialized history database in a temp dir, closed at test cleanup
func NewTestDB(t *testing.T) *DuckDBRepository {
	t.Helper()

	repo, err := NewDuckDBRepository(filepath.Join(t.TempDir(), "history.duckdb"))
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}

	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("failed to close test repository: %v", err)
		}
	})

	if err := repo.Initialize(context.Background()); err != nil {
		t.Fatalf("failed to initialize test repository: %v", err)
	}

	return repo
}
