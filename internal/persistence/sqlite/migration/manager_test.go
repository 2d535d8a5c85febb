package migration

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"
)

type mockExecutor struct {
	applied    []AppliedMigration
	executed   []string
	initErr    error
	executeErr error
}

func (m *mockExecutor) ExecuteMigration(_ context.Context, migration Migration) error {
	if m.executeErr != nil {
		return m.executeErr
	}
	m.executed = append(m.executed, migration.Version)
	m.applied = append(m.applied, AppliedMigration{Version: migration.Version, Checksum: migration.Checksum})
	return nil
}

func (m *mockExecutor) InitializeVersionTable(context.Context) error {
	return m.initErr
}

func (m *mockExecutor) IsVersionApplied(_ context.Context, version string) (bool, error) {
	for _, applied := range m.applied {
		if applied.Version == version {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockExecutor) GetAppliedVersions(context.Context) ([]AppliedMigration, error) {
	return m.applied, nil
}

func testMigrations() fstest.MapFS {
	return mapFS(map[string]string{
		"001_create_bookings.sql": "CREATE TABLE bookings (id INTEGER PRIMARY KEY);",
		"002_add_index.sql":       "CREATE INDEX idx ON bookings(id);",
		"003_add_column.sql":      "ALTER TABLE bookings ADD COLUMN purpose TEXT;",
	})
}

func TestMigrationManager_RunMigrations_AppliesInOrder(t *testing.T) {
	executor := &mockExecutor{}
	manager := NewMigrationManager(NewFileScanner(testMigrations()), executor, "migrations", nil)

	if err := manager.RunMigrations(context.Background()); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	want := []string{"001", "002", "003"}
	if len(executor.executed) != len(want) {
		t.Fatalf("expected %v executed, got %v", want, executor.executed)
	}
	for i := range want {
		if executor.executed[i] != want[i] {
			t.Fatalf("expected %v executed, got %v", want, executor.executed)
		}
	}
}

func TestMigrationManager_RunMigrations_SkipsApplied(t *testing.T) {
	executor := &mockExecutor{applied: []AppliedMigration{{Version: "001"}, {Version: "002"}}}
	manager := NewMigrationManager(NewFileScanner(testMigrations()), executor, "migrations", nil)

	if err := manager.RunMigrations(context.Background()); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	if len(executor.executed) != 1 || executor.executed[0] != "003" {
		t.Fatalf("expected only 003 executed, got %v", executor.executed)
	}

	executor.executed = nil
	if err := manager.RunMigrations(context.Background()); err != nil {
		t.Fatalf("second RunMigrations: %v", err)
	}
	if len(executor.executed) != 0 {
		t.Fatalf("expected no migrations on second run, got %v", executor.executed)
	}
}

func TestMigrationManager_RunMigrations_InitializationError(t *testing.T) {
	executor := &mockExecutor{initErr: errors.New("disk full")}
	manager := NewMigrationManager(NewFileScanner(testMigrations()), executor, "migrations", nil)

	if err := manager.RunMigrations(context.Background()); err == nil {
		t.Fatalf("expected initialization error")
	}
}

func TestMigrationManager_RunMigrations_ExecutionError(t *testing.T) {
	executor := &mockExecutor{executeErr: errors.New("syntax error")}
	manager := NewMigrationManager(NewFileScanner(testMigrations()), executor, "migrations", nil)

	err := manager.RunMigrations(context.Background())
	if !errors.Is(err, ErrMigrationFailed) {
		t.Fatalf("expected ErrMigrationFailed, got %v", err)
	}
	var migErr *MigrationError
	if !errors.As(err, &migErr) || migErr.Version != "001" {
		t.Fatalf("expected MigrationError for version 001, got %v", err)
	}
}

func TestMigrationManager_GetPendingMigrations_Gap(t *testing.T) {
	fsys := mapFS(map[string]string{
		"001_create_bookings.sql": "CREATE TABLE bookings (id INTEGER PRIMARY KEY);",
		"003_add_column.sql":      "ALTER TABLE bookings ADD COLUMN purpose TEXT;",
	})
	manager := NewMigrationManager(NewFileScanner(fsys), &mockExecutor{}, "migrations", nil)

	if _, err := manager.GetPendingMigrations(context.Background()); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
}

func TestMigrationManager_GetPendingMigrations_AppliedFileMissing(t *testing.T) {
	executor := &mockExecutor{applied: []AppliedMigration{{Version: "004"}}}
	manager := NewMigrationManager(NewFileScanner(testMigrations()), executor, "migrations", nil)

	if _, err := manager.GetPendingMigrations(context.Background()); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
}

func TestMigrationManager_GetPendingMigrations_CorruptVersionTable(t *testing.T) {
	executor := &mockExecutor{applied: []AppliedMigration{{Version: "abc"}}}
	manager := NewMigrationManager(NewFileScanner(testMigrations()), executor, "migrations", nil)

	if _, err := manager.GetPendingMigrations(context.Background()); !errors.Is(err, ErrVersionTableCorrupt) {
		t.Fatalf("expected ErrVersionTableCorrupt, got %v", err)
	}
}

func TestMigrationManager_GetMigrationStatus(t *testing.T) {
	executor := &mockExecutor{applied: []AppliedMigration{{Version: "001"}}}
	manager := NewMigrationManager(NewFileScanner(testMigrations()), executor, "migrations", nil)

	status, err := manager.GetMigrationStatus(context.Background())
	if err != nil {
		t.Fatalf("GetMigrationStatus: %v", err)
	}
	if status.CurrentVersion != "001" || status.PendingCount != 2 {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestMigrationManager_RealDatabase(t *testing.T) {
	db := setupTestDB(t)
	manager := NewMigrationManager(NewFileScanner(testMigrations()), NewSQLiteExecutor(db), "migrations", nil)
	ctx := context.Background()

	if err := manager.RunMigrations(ctx); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	if err := manager.RunMigrations(ctx); err != nil {
		t.Fatalf("second RunMigrations: %v", err)
	}

	versions, err := manager.GetAppliedVersions(ctx)
	if err != nil {
		t.Fatalf("GetAppliedVersions: %v", err)
	}
	if len(versions) != 3 || versions[2] != "003" {
		t.Fatalf("unexpected applied versions %v", versions)
	}
	if !tableExists(t, db, "bookings") {
		t.Fatalf("bookings table missing")
	}
}
