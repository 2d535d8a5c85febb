package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/room-booking/internal/logging"
	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/scheduler"
)

// BookingRepository captures the persistence operations needed by the service.
type BookingRepository interface {
	InsertBooking(ctx context.Context, booking Booking) (Booking, error)
	FindBookingsByRoomAndDate(ctx context.Context, roomName string, date time.Time) ([]Booking, error)
	FindBookingsByDate(ctx context.Context, date time.Time) ([]Booking, error)
	GetBooking(ctx context.Context, id int64) (Booking, error)
	DeleteBooking(ctx context.Context, id int64) (bool, error)
}

// BookingStore is a BookingRepository that can run the conflict check and the
// insert for one (room, date) slot atomically.
type BookingStore interface {
	BookingRepository
	WithinSlot(ctx context.Context, roomName string, date time.Time, fn func(repo BookingRepository) error) error
}

// BookingService orchestrates validation, conflict detection, and persistence for bookings.
type BookingService struct {
	store  BookingStore
	now    func() time.Time
	logger *slog.Logger
}

// NewBookingService constructs a booking service with the provided store.
func NewBookingService(store BookingStore, now func() time.Time) *BookingService {
	return NewBookingServiceWithLogger(store, now, nil)
}

// NewBookingServiceWithLogger constructs a booking service with a specified logger.
func NewBookingServiceWithLogger(store BookingStore, now func() time.Time, logger *slog.Logger) *BookingService {
	if now == nil {
		now = time.Now
	}
	return &BookingService{store: store, now: now, logger: logging.OrDefault(logger)}
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// CreateBooking validates input and stores a booking unless its time range
// overlaps another booking of the same room on the same day.
func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (booking Booking, err error) {
	if s == nil || s.store == nil {
		err = fmt.Errorf("BookingService is not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateBooking",
		"room_name", input.RoomName,
		"date", input.Date,
		"start_time", input.StartTime,
		"end_time", input.EndTime,
	)
	defer func() {
		if err != nil {
			level := slog.LevelWarn
			if errors.Is(err, ErrStorage) || ErrorKind(err) == "unexpected" {
				level = slog.LevelError
			}
			logger.Log(ctx, level, "failed to create booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("booking_id", booking.ID).InfoContext(ctx, "booking created")
	}()

	// Format errors take precedence over structural ones.
	date, err := ParseDate(input.Date)
	if err != nil {
		return
	}

	interval, err := parseInterval(input.StartTime, input.EndTime)
	if err != nil {
		return
	}

	if vErr := validateCreateInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	candidate := Booking{
		RoomName:  input.RoomName,
		Date:      date,
		StartTime: interval.Start,
		EndTime:   interval.End,
		Purpose:   input.Purpose,
		CreatedAt: s.now().UTC(),
	}

	err = s.store.WithinSlot(ctx, candidate.RoomName, date, func(repo BookingRepository) error {
		existing, findErr := repo.FindBookingsByRoomAndDate(ctx, candidate.RoomName, date)
		if findErr != nil {
			return &StorageError{Op: "find bookings by room and date", Err: findErr}
		}
		if conflicts := scheduler.DetectConflicts(slotsOf(existing), interval); len(conflicts) > 0 {
			first := conflicts[0]
			return fmt.Errorf("%w: overlaps booking %d (%s-%s)",
				ErrTimeSlotConflict, first.WithID, first.Interval.Start, first.Interval.End)
		}

		stored, insertErr := repo.InsertBooking(ctx, candidate)
		if insertErr != nil {
			return &StorageError{Op: "insert booking", Err: insertErr}
		}
		booking = stored
		return nil
	})
	if err != nil {
		err = mapBookingStoreError("create booking", err)
	}
	return
}

// ListBookingsForDate returns the summaries of every booking on the given
// date. A date without bookings yields an empty, non-nil slice.
func (s *BookingService) ListBookingsForDate(ctx context.Context, dateValue string) (summaries []BookingSummary, err error) {
	if s == nil || s.store == nil {
		err = fmt.Errorf("BookingService is not configured")
		return
	}

	logger := s.loggerWith(ctx, "ListBookingsForDate", "date", dateValue)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "failed to list bookings", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "bookings listed", "count", len(summaries))
	}()

	date, err := ParseDate(dateValue)
	if err != nil {
		return
	}

	bookings, err := s.store.FindBookingsByDate(ctx, date)
	if err != nil {
		err = mapBookingStoreError("find bookings by date", err)
		return
	}

	summaries = make([]BookingSummary, 0, len(bookings))
	for _, b := range bookings {
		summaries = append(summaries, BookingSummary{
			ID:        b.ID,
			RoomName:  b.RoomName,
			StartTime: b.StartTime,
			EndTime:   b.EndTime,
			Purpose:   b.Purpose,
		})
	}
	return
}

// GetBooking returns one booking by id.
func (s *BookingService) GetBooking(ctx context.Context, id int64) (booking Booking, err error) {
	if s == nil || s.store == nil {
		err = fmt.Errorf("BookingService is not configured")
		return
	}

	logger := s.loggerWith(ctx, "GetBooking", "booking_id", id)
	defer func() {
		if err != nil && !errors.Is(err, ErrNotFound) {
			logger.ErrorContext(ctx, "failed to get booking", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	booking, err = s.store.GetBooking(ctx, id)
	if err != nil {
		err = mapBookingStoreError("get booking", err)
	}
	return
}

// DeleteBooking removes a booking. A booking that is missing, or that
// disappears between lookup and removal, yields ErrNotFound.
func (s *BookingService) DeleteBooking(ctx context.Context, id int64) (err error) {
	if s == nil || s.store == nil {
		err = fmt.Errorf("BookingService is not configured")
		return
	}

	logger := s.loggerWith(ctx, "DeleteBooking", "booking_id", id)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "failed to delete booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking deleted")
	}()

	if _, err = s.store.GetBooking(ctx, id); err != nil {
		err = mapBookingStoreError("get booking", err)
		return
	}

	deleted, err := s.store.DeleteBooking(ctx, id)
	if err != nil {
		err = mapBookingStoreError("delete booking", err)
		return
	}
	if !deleted {
		err = ErrNotFound
	}
	return
}

func parseInterval(start, end string) (scheduler.Interval, error) {
	interval, err := scheduler.NewInterval(start, end)
	if err != nil {
		return scheduler.Interval{}, fmt.Errorf("%w: %v", ErrInvalidTimeFormat, err)
	}
	if interval.Empty() {
		return scheduler.Interval{}, fmt.Errorf("%w: %s-%s", ErrInvalidTimeRange, interval.Start, interval.End)
	}
	return interval, nil
}

func slotsOf(bookings []Booking) []scheduler.Slot {
	slots := make([]scheduler.Slot, len(bookings))
	for i, b := range bookings {
		slots[i] = scheduler.Slot{ID: b.ID, Interval: b.Interval()}
	}
	return slots
}

// mapBookingStoreError translates store failures into service errors. Errors
// that already carry a service meaning pass through unchanged.
func mapBookingStoreError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrTimeSlotConflict), errors.Is(err, ErrStorage):
		return err
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return &StorageError{Op: op, Err: err}
	}
}
