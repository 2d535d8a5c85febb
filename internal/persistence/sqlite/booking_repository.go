package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

const bookingColumns = `id, room_name, date, start_time, end_time, purpose, created_at`

// BookingRepository implements persistence.BookingRepository on a *sql.DB or
// on the transaction of a WithinSlot call.
type BookingRepository struct {
	q      queryer
	mapper *ErrorMapper
	now    func() time.Time
}

// NewBookingRepository creates a repository that issues statements on the pool.
func NewBookingRepository(pool *ConnectionPool) *BookingRepository {
	return newBookingRepository(pool.DB())
}

func newBookingRepository(q queryer) *BookingRepository {
	return &BookingRepository{q: q, mapper: NewErrorMapper(), now: time.Now}
}

// InsertBooking stores the booking and returns it with the generated id.
func (r *BookingRepository) InsertBooking(ctx context.Context, booking persistence.Booking) (persistence.Booking, error) {
	if booking.RoomName == "" || booking.StartTime == "" || booking.EndTime == "" || booking.Date.IsZero() {
		return persistence.Booking{}, persistence.ErrConstraintViolation
	}

	booking.Date = persistence.NormalizeDate(booking.Date)
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = r.now().UTC()
	}

	query := `
		INSERT INTO bookings (room_name, date, start_time, end_time, purpose, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := r.q.ExecContext(ctx, query,
		booking.RoomName,
		booking.DateKey(),
		booking.StartTime,
		booking.EndTime,
		booking.Purpose,
		booking.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return persistence.Booking{}, r.mapper.MapError(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return persistence.Booking{}, fmt.Errorf("failed to read inserted booking id: %w", err)
	}
	booking.ID = id
	return booking, nil
}

// FindBookingsByRoomAndDate returns the bookings of one room on one day ordered by start time.
func (r *BookingRepository) FindBookingsByRoomAndDate(ctx context.Context, roomName string, date time.Time) ([]persistence.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE room_name = ? AND date = ?
		ORDER BY start_time, id`
	return r.queryBookings(ctx, query, roomName, date.Format(persistence.DateLayout))
}

// FindBookingsByDate returns every booking on the given day ordered by start
// time, then room name, then id.
func (r *BookingRepository) FindBookingsByDate(ctx context.Context, date time.Time) ([]persistence.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE date = ?
		ORDER BY start_time, room_name, id`
	return r.queryBookings(ctx, query, date.Format(persistence.DateLayout))
}

// GetBooking retrieves a booking by id.
func (r *BookingRepository) GetBooking(ctx context.Context, id int64) (persistence.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`

	booking, err := scanBooking(r.q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.Booking{}, persistence.ErrNotFound
	}
	if err != nil {
		return persistence.Booking{}, r.mapper.MapError(err)
	}
	return booking, nil
}

// DeleteBooking removes a booking and reports whether a row was deleted.
func (r *BookingRepository) DeleteBooking(ctx context.Context, id int64) (bool, error) {
	result, err := r.q.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return false, r.mapper.MapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *BookingRepository) queryBookings(ctx context.Context, query string, args ...any) ([]persistence.Booking, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	bookings := make([]persistence.Booking, 0)
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return bookings, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (persistence.Booking, error) {
	var (
		booking            persistence.Booking
		dateStr, createdAt string
	)
	if err := row.Scan(
		&booking.ID,
		&booking.RoomName,
		&dateStr,
		&booking.StartTime,
		&booking.EndTime,
		&booking.Purpose,
		&createdAt,
	); err != nil {
		return persistence.Booking{}, err
	}

	date, err := time.Parse(persistence.DateLayout, dateStr)
	if err != nil {
		return persistence.Booking{}, fmt.Errorf("failed to parse date of booking %d: %w", booking.ID, err)
	}
	booking.Date = date

	created, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return persistence.Booking{}, fmt.Errorf("failed to parse created_at of booking %d: %w", booking.ID, err)
	}
	booking.CreatedAt = created
	return booking, nil
}

var _ persistence.BookingRepository = (*BookingRepository)(nil)
