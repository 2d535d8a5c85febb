// Package bookingstore adapts a persistence.BookingStore to the
// application.BookingStore used by the booking service.
package bookingstore

import (
	"context"
	"fmt"
	"time"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/scheduler"
)

// Store converts between application and persistence booking models.
type Store struct {
	backend persistence.BookingStore
}

// New wraps backend.
func New(backend persistence.BookingStore) *Store {
	return &Store{backend: backend}
}

// Ping checks the backend.
func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

func (s *Store) InsertBooking(ctx context.Context, booking application.Booking) (application.Booking, error) {
	return repository{s.backend}.InsertBooking(ctx, booking)
}

func (s *Store) FindBookingsByRoomAndDate(ctx context.Context, roomName string, date time.Time) ([]application.Booking, error) {
	return repository{s.backend}.FindBookingsByRoomAndDate(ctx, roomName, date)
}

func (s *Store) FindBookingsByDate(ctx context.Context, date time.Time) ([]application.Booking, error) {
	return repository{s.backend}.FindBookingsByDate(ctx, date)
}

func (s *Store) GetBooking(ctx context.Context, id int64) (application.Booking, error) {
	return repository{s.backend}.GetBooking(ctx, id)
}

func (s *Store) DeleteBooking(ctx context.Context, id int64) (bool, error) {
	return s.backend.DeleteBooking(ctx, id)
}

func (s *Store) WithinSlot(ctx context.Context, roomName string, date time.Time, fn func(application.BookingRepository) error) error {
	return s.backend.WithinSlot(ctx, roomName, date, func(repo persistence.BookingRepository) error {
		return fn(repository{repo})
	})
}

type repository struct {
	repo persistence.BookingRepository
}

func (r repository) InsertBooking(ctx context.Context, booking application.Booking) (application.Booking, error) {
	stored, err := r.repo.InsertBooking(ctx, toPersistence(booking))
	if err != nil {
		return application.Booking{}, err
	}
	return toApplication(stored)
}

func (r repository) FindBookingsByRoomAndDate(ctx context.Context, roomName string, date time.Time) ([]application.Booking, error) {
	bookings, err := r.repo.FindBookingsByRoomAndDate(ctx, roomName, date)
	if err != nil {
		return nil, err
	}
	return toApplicationSlice(bookings)
}

func (r repository) FindBookingsByDate(ctx context.Context, date time.Time) ([]application.Booking, error) {
	bookings, err := r.repo.FindBookingsByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	return toApplicationSlice(bookings)
}

func (r repository) GetBooking(ctx context.Context, id int64) (application.Booking, error) {
	booking, err := r.repo.GetBooking(ctx, id)
	if err != nil {
		return application.Booking{}, err
	}
	return toApplication(booking)
}

func (r repository) DeleteBooking(ctx context.Context, id int64) (bool, error) {
	return r.repo.DeleteBooking(ctx, id)
}

func toPersistence(b application.Booking) persistence.Booking {
	return persistence.Booking{
		ID:        b.ID,
		RoomName:  b.RoomName,
		Date:      persistence.NormalizeDate(b.Date),
		StartTime: b.StartTime.String(),
		EndTime:   b.EndTime.String(),
		Purpose:   b.Purpose,
		CreatedAt: b.CreatedAt,
	}
}

func toApplication(b persistence.Booking) (application.Booking, error) {
	start, err := scheduler.ParseClock(b.StartTime)
	if err != nil {
		return application.Booking{}, fmt.Errorf("booking %d start_time: %w", b.ID, err)
	}
	end, err := scheduler.ParseClock(b.EndTime)
	if err != nil {
		return application.Booking{}, fmt.Errorf("booking %d end_time: %w", b.ID, err)
	}
	return application.Booking{
		ID:        b.ID,
		RoomName:  b.RoomName,
		Date:      b.Date,
		StartTime: start,
		EndTime:   end,
		Purpose:   b.Purpose,
		CreatedAt: b.CreatedAt,
	}, nil
}

func toApplicationSlice(bookings []persistence.Booking) ([]application.Booking, error) {
	out := make([]application.Booking, 0, len(bookings))
	for _, b := range bookings {
		converted, err := toApplication(b)
		if err != nil {
			return nil, err
		}
		out = append(out, converted)
	}
	return out, nil
}

var _ application.BookingStore = (*Store)(nil)
