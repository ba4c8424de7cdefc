package storage

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/kyleking/askdb/internal/errors"
	"github.com/kyleking/askdb/internal/logging"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	Up          string
	Down        string
}

// MigrationStatus represents the status of a migration
type MigrationStatus struct {
	Version     int       `json:"version"`
	Description string    `json:"description"`
	Applied     bool      `json:"applied"`
	AppliedAt   time.Time `json:"applied_at,omitempty"`
}

// MigrationManager handles database schema migrations
type MigrationManager struct {
	db *sql.DB
}

// NewMigrationManager creates a new migration manager
func NewMigrationManager(db *sql.DB) *MigrationManager {
	return &MigrationManager{db: db}
}

// GetMigrations returns all available migrations in order
func (m *MigrationManager) GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create history table",
			Up: `
				CREATE TABLE IF NOT EXISTS history (
					id VARCHAR PRIMARY KEY,
					question TEXT NOT NULL,
					sql_text TEXT NOT NULL,
					source VARCHAR NOT NULL,
					status VARCHAR NOT NULL,
					error_message TEXT NOT NULL DEFAULT '',
					row_count INTEGER NOT NULL DEFAULT 0,
					duration_ms BIGINT NOT NULL DEFAULT 0,
					created_at TIMESTAMP NOT NULL
				);
			`,
			Down: `DROP TABLE IF EXISTS history;`,
		},
		{
			Version:     2,
			Description: "Index history by time and status",
			Up: `
				CREATE INDEX IF NOT EXISTS idx_history_created_at ON history(created_at);
				CREATE INDEX IF NOT EXISTS idx_history_status ON history(status);
			`,
			Down: `
				DROP INDEX IF EXISTS idx_history_status;
				DROP INDEX IF EXISTS idx_history_created_at;
			`,
		},
	}
}

// LatestVersion returns the highest known migration version
func (m *MigrationManager) LatestVersion() int {
	latest := 0
	for _, migration := range m.GetMigrations() {
		if migration.Version > latest {
			latest = migration.Version
		}
	}

	return latest
}

// InitializeMigrationTable creates the migration tracking table
func (m *MigrationManager) InitializeMigrationTable(ctx context.Context) error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		description VARCHAR NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`

	if _, err := m.db.ExecContext(ctx, createTableSQL); err != nil {
		return errors.Wrap(err, errors.ErrTypeDatabase, "failed to create migration table")
	}

	return nil
}

// GetAppliedMigrations returns a list of applied migration versions
func (m *MigrationManager) GetAppliedMigrations(ctx context.Context) ([]int, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to query applied migrations")
	}
	defer rows.Close()

	var versions []int

	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to scan migration version")
		}

		versions = append(versions, version)
	}

	return versions, rows.Err()
}

// CurrentVersion returns the highest applied migration version, 0 when none
func (m *MigrationManager) CurrentVersion(ctx context.Context) (int, error) {
	versions, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return 0, err
	}

	if len(versions) == 0 {
		return 0, nil
	}

	return versions[len(versions)-1], nil
}

// IsMigrationApplied checks if a specific migration version has been applied
func (m *MigrationManager) IsMigrationApplied(ctx context.Context, version int) (bool, error) {
	var count int

	err := m.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE version = ?", version).Scan(&count)
	if err != nil {
		return false, errors.Wrap(err, errors.ErrTypeDatabase, "failed to check migration status")
	}

	return count > 0, nil
}

// ApplyMigration applies a single migration
func (m *MigrationManager) ApplyMigration(ctx context.Context, migration Migration) error {
	applied, err := m.IsMigrationApplied(ctx, migration.Version)
	if err != nil {
		return err
	}

	if applied {
		return errors.Newf(errors.ErrTypeValidation, "migration %d already applied", migration.Version)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeDatabase, "failed to begin transaction")
	}

	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, migration.Up); err != nil {
		return errors.Wrapf(err, errors.ErrTypeDatabase, "failed to execute migration %d", migration.Version)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, description) VALUES (?, ?)",
		migration.Version, migration.Description)
	if err != nil {
		return errors.Wrapf(err, errors.ErrTypeDatabase, "failed to record migration %d", migration.Version)
	}

	return tx.Commit()
}

// RollbackMigration rolls back a single migration
func (m *MigrationManager) RollbackMigration(ctx context.Context, migration Migration) error {
	applied, err := m.IsMigrationApplied(ctx, migration.Version)
	if err != nil {
		return err
	}

	if !applied {
		return errors.Newf(errors.ErrTypeValidation, "migration %d not applied", migration.Version)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeDatabase, "failed to begin transaction")
	}

	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, migration.Down); err != nil {
		return errors.Wrapf(err, errors.ErrTypeDatabase, "failed to rollback migration %d", migration.Version)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = ?", migration.Version); err != nil {
		return errors.Wrapf(err, errors.ErrTypeDatabase, "failed to remove migration record %d", migration.Version)
	}

	return tx.Commit()
}

// MigrateUp applies all pending migrations
func (m *MigrationManager) MigrateUp(ctx context.Context) error {
	if err := m.InitializeMigrationTable(ctx); err != nil {
		return err
	}

	appliedVersions, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	appliedMap := make(map[int]bool)
	for _, version := range appliedVersions {
		appliedMap[version] = true
	}

	migrations := m.GetMigrations()
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	for _, migration := range migrations {
		if appliedMap[migration.Version] {
			continue
		}

		logging.WithFields(map[string]any{
			"version":     migration.Version,
			"description": migration.Description,
		}).Debug("Applying history migration")

		if err := m.ApplyMigration(ctx, migration); err != nil {
			return err
		}
	}

	return nil
}

// MigrateDown rolls back migrations newer than targetVersion
func (m *MigrationManager) MigrateDown(ctx context.Context, targetVersion int) error {
	appliedVersions, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	migrationMap := make(map[int]Migration)
	for _, migration := range m.GetMigrations() {
		migrationMap[migration.Version] = migration
	}

	sort.Sort(sort.Reverse(sort.IntSlice(appliedVersions)))

	for _, version := range appliedVersions {
		if version <= targetVersion {
			break
		}

		migration, exists := migrationMap[version]
		if !exists {
			return errors.Newf(errors.ErrTypeNotFound, "migration %d not found", version)
		}

		logging.WithField("version", version).Debug("Rolling back history migration")

		if err := m.RollbackMigration(ctx, migration); err != nil {
			return err
		}
	}

	return nil
}

// GetMigrationStatus returns the status of every known migration
func (m *MigrationManager) GetMigrationStatus(ctx context.Context) (map[int]MigrationStatus, error) {
	if err := m.InitializeMigrationTable(ctx); err != nil {
		return nil, err
	}

	rows, err := m.db.QueryContext(ctx, "SELECT version, applied_at FROM schema_migrations")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to query applied migrations")
	}
	defer rows.Close()

	appliedAt := make(map[int]time.Time)

	for rows.Next() {
		var (
			version int
			at      time.Time
		)

		if err := rows.Scan(&version, &at); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to scan migration status")
		}

		appliedAt[version] = at
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to read migration status")
	}

	status := make(map[int]MigrationStatus)

	for _, migration := range m.GetMigrations() {
		at, applied := appliedAt[migration.Version]
		status[migration.Version] = MigrationStatus{
			Version:     migration.Version,
			Description: migration.Description,
			Applied:     applied,
			AppliedAt:   at,
		}
	}

	return status, nil
}
