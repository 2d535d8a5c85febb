// Package migration applies versioned SQL migrations to SQLite databases.
//
// Migrations are read from an fs.FS (an embedded directory in production, a
// temporary directory or fstest.MapFS in tests) and must be named
// {version}_{description}.sql, e.g. "001_create_bookings.sql". Each file is
// executed inside its own transaction together with the row that records it in
// the schema_migrations table, so a file is either fully applied and recorded
// or not applied at all.
//
// Example usage:
//
//	scanner := NewFileScanner(migrationsFS)
//	manager := NewMigrationManager(scanner, NewSQLiteExecutor(db), "migrations", logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return err
//	}
package migration
