// Package sqlite provides the SQLite-backed BookingStore.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const migrationDir = "migrations"

// Storage is a persistence.BookingStore on top of a SQLite database file.
type Storage struct {
	pool   *ConnectionPool
	repo   *BookingRepository
	retry  *RetryHelper
	logger *slog.Logger
}

// Open connects to the database described by cfg. Call Migrate before use.
func Open(ctx context.Context, cfg migration.SQLiteConfig, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	pool, err := NewConnectionPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Storage{
		pool:   pool,
		repo:   NewBookingRepository(pool),
		retry:  NewRetryHelper(DefaultRetryConfig()),
		logger: logger.With("component", "sqlite"),
	}, nil
}

// Migrate applies the embedded schema migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	manager := migration.NewMigrationManager(
		migration.NewFileScanner(migrationFiles),
		migration.NewSQLiteExecutor(s.pool.DB()),
		migrationDir,
		s.logger,
	)
	if err := manager.RunMigrations(ctx); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}

// Ping checks that the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// InsertBooking stores a new booking.
func (s *Storage) InsertBooking(ctx context.Context, booking persistence.Booking) (persistence.Booking, error) {
	return s.repo.InsertBooking(ctx, booking)
}

// FindBookingsByRoomAndDate returns the bookings of one room on one day.
func (s *Storage) FindBookingsByRoomAndDate(ctx context.Context, roomName string, date time.Time) ([]persistence.Booking, error) {
	return s.repo.FindBookingsByRoomAndDate(ctx, roomName, date)
}

// FindBookingsByDate returns every booking on the given day.
func (s *Storage) FindBookingsByDate(ctx context.Context, date time.Time) ([]persistence.Booking, error) {
	return s.repo.FindBookingsByDate(ctx, date)
}

// GetBooking retrieves a booking by id.
func (s *Storage) GetBooking(ctx context.Context, id int64) (persistence.Booking, error) {
	return s.repo.GetBooking(ctx, id)
}

// DeleteBooking removes a booking and reports whether it existed.
func (s *Storage) DeleteBooking(ctx context.Context, id int64) (bool, error) {
	return s.repo.DeleteBooking(ctx, id)
}

// WithinSlot runs fn inside a single write transaction. The pool opens
// transactions with BEGIN IMMEDIATE, so concurrent slots are serialized by the
// database write lock. A busy database is retried with backoff and reported as
// persistence.ErrLocked once the retry budget is spent.
func (s *Storage) WithinSlot(ctx context.Context, roomName string, date time.Time, fn persistence.SlotFunc) error {
	attempt := 0
	return s.retry.WithRetry(ctx, func() error {
		attempt++
		if attempt > 1 {
			s.logger.Debug("retrying slot transaction",
				"room_name", roomName,
				"date", date.Format(persistence.DateLayout),
				"attempt", attempt,
			)
		}
		return s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			return fn(newBookingRepository(tx))
		})
	})
}

var _ persistence.BookingStore = (*Storage)(nil)
