package migration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"
)

type migrationManager struct {
	scanner      FileScanner
	executor     Executor
	migrationDir string
	logger       *slog.Logger
}

// NewMigrationManager creates a MigrationManager. A nil logger discards output.
func NewMigrationManager(scanner FileScanner, executor Executor, migrationDir string, logger *slog.Logger) MigrationManager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &migrationManager{
		scanner:      scanner,
		executor:     executor,
		migrationDir: migrationDir,
		logger:       logger.With("component", "migration"),
	}
}

// RunMigrations executes all pending migrations in sequential order
func (m *migrationManager) RunMigrations(ctx context.Context) error {
	started := time.Now()

	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		m.logger.Error("failed to initialize schema_migrations table", "error", err)
		return fmt.Errorf("failed to initialize version table: %w", err)
	}

	pending, err := m.GetPendingMigrations(ctx)
	if err != nil {
		m.logger.Error("failed to determine pending migrations", "dir", m.migrationDir, "error", err)
		return fmt.Errorf("failed to get pending migrations: %w", err)
	}
	if len(pending) == 0 {
		m.logger.Debug("schema up to date", "dir", m.migrationDir)
		return nil
	}

	for i, migration := range pending {
		m.logger.Info("applying migration",
			"version", migration.Version,
			"description", migration.Description,
			"position", i+1,
			"total", len(pending),
		)
		if err := m.executor.ExecuteMigration(ctx, migration); err != nil {
			m.logger.Error("migration failed", "version", migration.Version, "file", migration.FilePath, "error", err)
			return NewMigrationError(migration.Version, migration.FilePath, "execute migration",
				fmt.Errorf("%w: %v", ErrMigrationFailed, err))
		}
	}

	m.logger.Info("migrations applied", "count", len(pending), "duration", time.Since(started))
	return nil
}

// GetAppliedVersions returns list of migration versions that have been applied
func (m *migrationManager) GetAppliedVersions(ctx context.Context) ([]string, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize version table: %w", err)
	}
	applied, err := m.executor.GetAppliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied versions: %w", err)
	}
	versions := make([]string, len(applied))
	for i, migration := range applied {
		versions[i] = migration.Version
	}
	return versions, nil
}

// GetPendingMigrations returns the migrations that still need to be applied,
// ordered by version.
func (m *migrationManager) GetPendingMigrations(ctx context.Context) ([]Migration, error) {
	available, err := m.scanner.ScanMigrations(m.migrationDir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan migrations: %w", err)
	}
	appliedVersions, err := m.GetAppliedVersions(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateSequence(available, appliedVersions); err != nil {
		return nil, fmt.Errorf("migration sequence validation failed: %w", err)
	}

	applied := make(map[int]bool, len(appliedVersions))
	for _, version := range appliedVersions {
		n, _ := strconv.Atoi(version)
		applied[n] = true
	}

	var pending []Migration
	for _, migration := range available {
		n, _ := strconv.Atoi(migration.Version)
		if !applied[n] {
			pending = append(pending, migration)
		}
	}
	return pending, nil
}

// GetMigrationStatus returns status information about migrations
func (m *migrationManager) GetMigrationStatus(ctx context.Context) (*MigrationStatus, error) {
	pending, err := m.GetPendingMigrations(ctx)
	if err != nil {
		return nil, err
	}
	applied, err := m.executor.GetAppliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	status := &MigrationStatus{
		PendingCount:      len(pending),
		AppliedMigrations: applied,
		PendingMigrations: pending,
	}
	if len(applied) > 0 {
		status.CurrentVersion = applied[len(applied)-1].Version
	}
	return status, nil
}

// validateSequence ensures the available versions are contiguous and that
// every applied version still has a file.
func validateSequence(available []Migration, appliedVersions []string) error {
	present := make(map[int]bool, len(available))
	for i, migration := range available {
		n, err := strconv.Atoi(migration.Version)
		if err != nil {
			return NewMigrationError(migration.Version, migration.FilePath, "validate sequence",
				fmt.Errorf("%w: version %q is not numeric", ErrInvalidVersion, migration.Version))
		}
		if i > 0 {
			prev, _ := strconv.Atoi(available[i-1].Version)
			if n != prev+1 {
				return fmt.Errorf("%w: missing migration version %03d in sequence", ErrVersionConflict, prev+1)
			}
		}
		present[n] = true
	}

	for _, version := range appliedVersions {
		n, err := strconv.Atoi(version)
		if err != nil {
			return NewDatabaseError(version, "", "validate sequence",
				fmt.Errorf("%w: applied version %q is not numeric", ErrVersionTableCorrupt, version))
		}
		if !present[n] {
			return fmt.Errorf("%w: applied migration %03d not found in available migrations", ErrVersionConflict, n)
		}
	}
	return nil
}
