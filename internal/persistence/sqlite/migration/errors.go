package migration

import (
	"errors"
	"fmt"
)

var (
	ErrMigrationFailed      = errors.New("migration: execution failed")
	ErrInvalidMigrationFile = errors.New("migration: invalid migration file")
	// ErrVersionConflict means the applied history and the files on disk disagree.
	ErrVersionConflict = errors.New("migration: version conflict")
	ErrInvalidVersion  = errors.New("migration: invalid version")
	// ErrDuplicateVersion means two files share one numeric version.
	ErrDuplicateVersion    = errors.New("migration: duplicate version")
	ErrVersionTableCorrupt = errors.New("migration: schema_migrations is corrupt")
)

// MigrationError ties a failure to one migration file.
type MigrationError struct {
	Version   string
	FilePath  string
	Operation string
	Err       error
}

func (e *MigrationError) Error() string {
	target := e.FilePath
	if e.Version != "" {
		target = fmt.Sprintf("%s (%s)", e.Version, e.FilePath)
	}
	return fmt.Sprintf("migration %s: %s: %v", target, e.Operation, e.Err)
}

func (e *MigrationError) Unwrap() error { return e.Err }

func NewMigrationError(version, filePath, operation string, err error) *MigrationError {
	return &MigrationError{Version: version, FilePath: filePath, Operation: operation, Err: err}
}

// FileSystemError reports a failure reading the migration source.
type FileSystemError struct {
	Path      string
	Operation string
	Err       error
}

func (e *FileSystemError) Error() string {
	return fmt.Sprintf("migration source %s: %s: %v", e.Path, e.Operation, e.Err)
}

func (e *FileSystemError) Unwrap() error { return e.Err }

func NewFileSystemError(path, operation string, err error) *FileSystemError {
	return &FileSystemError{Path: path, Operation: operation, Err: err}
}

// DatabaseError reports a failed statement. Query is kept for debugging and
// left out of Error so schema text does not end up in logs.
type DatabaseError struct {
	Version   string
	Query     string
	Operation string
	Err       error
}

func (e *DatabaseError) Error() string {
	if e.Version == "" {
		return fmt.Sprintf("migration database: %s: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("migration database %s: %s: %v", e.Version, e.Operation, e.Err)
}

func (e *DatabaseError) Unwrap() error { return e.Err }

func NewDatabaseError(version, query, operation string, err error) *DatabaseError {
	return &DatabaseError{Version: version, Query: query, Operation: operation, Err: err}
}
