package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// SQLiteConfig holds SQLite-specific database configuration
type SQLiteConfig struct {
	// Path is the database file path, or MemoryPath
	Path string

	// BusyTimeout sets how long to wait for database locks
	BusyTimeout time.Duration

	// EnableForeignKeys enables foreign key constraint checking
	EnableForeignKeys bool

	// JournalMode sets the SQLite journal mode (WAL, DELETE, TRUNCATE, etc.)
	JournalMode string

	// Synchronous sets the synchronous mode (FULL, NORMAL, OFF)
	Synchronous string

	// CacheSize sets the page cache size in KB (negative for pages)
	CacheSize int

	// TxLock selects the BEGIN flavour used by database/sql transactions
	// (deferred, immediate, exclusive).
	TxLock string

	// MaxOpenConns sets the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns sets the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime sets the maximum lifetime of connections
	ConnMaxLifetime time.Duration
}

// DefaultSQLiteConfig returns the production configuration for the given path.
func DefaultSQLiteConfig(path string) SQLiteConfig {
	return SQLiteConfig{
		Path:              path,
		BusyTimeout:       5 * time.Second,
		EnableForeignKeys: true,
		JournalMode:       "WAL",
		Synchronous:       "NORMAL",
		CacheSize:         -2000,
		TxLock:            "immediate",
		MaxOpenConns:      8,
		MaxIdleConns:      4,
		ConnMaxLifetime:   time.Hour,
	}
}

// TempFileTestSQLiteConfig returns a configuration suited to tests that use a
// throwaway database file.
func TempFileTestSQLiteConfig(path string) SQLiteConfig {
	cfg := DefaultSQLiteConfig(path)
	cfg.Synchronous = "OFF"
	cfg.ConnMaxLifetime = 0
	return cfg
}

// Validate checks the configuration for unsupported values.
func (c SQLiteConfig) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Path) == "" {
		problems = append(problems, "path must not be empty")
	}
	if c.BusyTimeout < 0 {
		problems = append(problems, "busy timeout must not be negative")
	}
	if !oneOf(c.JournalMode, "", "DELETE", "TRUNCATE", "PERSIST", "MEMORY", "WAL", "OFF") {
		problems = append(problems, fmt.Sprintf("unsupported journal mode %q", c.JournalMode))
	}
	if !oneOf(c.Synchronous, "", "OFF", "NORMAL", "FULL", "EXTRA") {
		problems = append(problems, fmt.Sprintf("unsupported synchronous mode %q", c.Synchronous))
	}
	if !oneOf(c.TxLock, "", "deferred", "immediate", "exclusive") {
		problems = append(problems, fmt.Sprintf("unsupported transaction lock %q", c.TxLock))
	}
	if c.MaxOpenConns < 0 || c.MaxIdleConns < 0 {
		problems = append(problems, "connection pool sizes must not be negative")
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// DSN builds a modernc.org/sqlite connection string. PRAGMAs are carried as
// _pragma parameters so that every pooled connection is configured.
func (c SQLiteConfig) DSN() string {
	params := url.Values{}
	if c.BusyTimeout > 0 {
		params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", c.BusyTimeout.Milliseconds()))
	}
	if c.EnableForeignKeys {
		params.Add("_pragma", "foreign_keys(1)")
	}
	if c.JournalMode != "" && c.Path != MemoryPath {
		params.Add("_pragma", fmt.Sprintf("journal_mode(%s)", c.JournalMode))
	}
	if c.Synchronous != "" {
		params.Add("_pragma", fmt.Sprintf("synchronous(%s)", c.Synchronous))
	}
	if c.CacheSize != 0 {
		params.Add("_pragma", fmt.Sprintf("cache_size(%d)", c.CacheSize))
	}
	if c.TxLock != "" {
		params.Set("_txlock", c.TxLock)
	}

	path := c.Path
	if path != MemoryPath {
		path = "file:" + path
	}
	if len(params) == 0 {
		return path
	}
	return path + "?" + params.Encode()
}

func oneOf(value string, allowed ...string) bool {
	for _, candidate := range allowed {
		if strings.EqualFold(value, candidate) {
			return true
		}
	}
	return false
}

// ConnectionManager manages SQLite database connections with proper configuration
type ConnectionManager interface {
	// GetConnection returns a configured, pinged SQLite database handle
	GetConnection(ctx context.Context) (*sql.DB, error)

	// CreateDatabaseFile ensures the directory holding the database file exists
	CreateDatabaseFile() error
}

type sqliteConnectionManager struct {
	config SQLiteConfig
}

// NewConnectionManager creates a new SQLite connection manager
func NewConnectionManager(config SQLiteConfig) ConnectionManager {
	return &sqliteConnectionManager{config: config}
}

func (cm *sqliteConnectionManager) GetConnection(ctx context.Context) (*sql.DB, error) {
	if err := cm.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid SQLite configuration: %w", err)
	}
	if err := cm.CreateDatabaseFile(); err != nil {
		return nil, fmt.Errorf("failed to create database file: %w", err)
	}

	db, err := sql.Open("sqlite", cm.config.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	maxOpen := cm.config.MaxOpenConns
	if cm.config.Path == MemoryPath {
		// each connection to :memory: is a separate database
		maxOpen = 1
	}
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if cm.config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cm.config.MaxIdleConns)
	}
	if cm.config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cm.config.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}
	return db, nil
}

func (cm *sqliteConnectionManager) CreateDatabaseFile() error {
	if cm.config.Path == MemoryPath {
		return nil
	}
	dir := filepath.Dir(cm.config.Path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return NewFileSystemError(dir, "create directory", err)
	}
	return nil
}
