// Package memory provides a process-local BookingStore backed by maps.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

// Storage keeps bookings in memory. It is safe for concurrent use.
type Storage struct {
	mu       sync.RWMutex
	nextID   int64
	bookings map[int64]persistence.Booking
	now      func() time.Time
}

// Open returns an empty Storage.
func Open() *Storage {
	return &Storage{
		bookings: make(map[int64]persistence.Booking),
		now:      time.Now,
	}
}

// Close releases resources held by the storage. No-op for the in-memory implementation.
func (s *Storage) Close() error {
	return nil
}

// Ping always succeeds.
func (s *Storage) Ping(context.Context) error {
	return nil
}

// InsertBooking stores a new booking and assigns it the next id.
func (s *Storage) InsertBooking(ctx context.Context, booking persistence.Booking) (persistence.Booking, error) {
	if err := ctx.Err(); err != nil {
		return persistence.Booking{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(booking)
}

// FindBookingsByRoomAndDate returns the bookings of one room on one day.
func (s *Storage) FindBookingsByRoomAndDate(ctx context.Context, roomName string, date time.Time) ([]persistence.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterLocked(func(b persistence.Booking) bool {
		return b.RoomName == roomName && b.DateKey() == date.Format(persistence.DateLayout)
	}), nil
}

// FindBookingsByDate returns every booking on the given day.
func (s *Storage) FindBookingsByDate(ctx context.Context, date time.Time) ([]persistence.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	key := date.Format(persistence.DateLayout)
	return s.filterLocked(func(b persistence.Booking) bool {
		return b.DateKey() == key
	}), nil
}

// GetBooking retrieves a booking by id.
func (s *Storage) GetBooking(ctx context.Context, id int64) (persistence.Booking, error) {
	if err := ctx.Err(); err != nil {
		return persistence.Booking{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getLocked(id)
}

// DeleteBooking removes a booking and reports whether it existed.
func (s *Storage) DeleteBooking(ctx context.Context, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(id), nil
}

// WithinSlot runs fn while holding the storage write lock.
func (s *Storage) WithinSlot(ctx context.Context, _ string, _ time.Time, fn persistence.SlotFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(lockedView{s: s})
}

func (s *Storage) insertLocked(booking persistence.Booking) (persistence.Booking, error) {
	if booking.RoomName == "" || booking.StartTime == "" || booking.EndTime == "" || booking.Date.IsZero() {
		return persistence.Booking{}, persistence.ErrConstraintViolation
	}
	s.nextID++
	booking.ID = s.nextID
	booking.Date = persistence.NormalizeDate(booking.Date)
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = s.now().UTC()
	}
	s.bookings[booking.ID] = booking
	return booking, nil
}

func (s *Storage) getLocked(id int64) (persistence.Booking, error) {
	booking, ok := s.bookings[id]
	if !ok {
		return persistence.Booking{}, persistence.ErrNotFound
	}
	return booking, nil
}

func (s *Storage) deleteLocked(id int64) bool {
	if _, ok := s.bookings[id]; !ok {
		return false
	}
	delete(s.bookings, id)
	return true
}

func (s *Storage) filterLocked(match func(persistence.Booking) bool) []persistence.Booking {
	bookings := make([]persistence.Booking, 0)
	for _, booking := range s.bookings {
		if match(booking) {
			bookings = append(bookings, booking)
		}
	}

	sort.Slice(bookings, func(i, j int) bool {
		if bookings[i].StartTime != bookings[j].StartTime {
			return bookings[i].StartTime < bookings[j].StartTime
		}
		if bookings[i].RoomName != bookings[j].RoomName {
			return bookings[i].RoomName < bookings[j].RoomName
		}
		return bookings[i].ID < bookings[j].ID
	})

	return bookings
}

// lockedView exposes the storage to WithinSlot callers that already hold mu.
type lockedView struct {
	s *Storage
}

func (v lockedView) InsertBooking(ctx context.Context, booking persistence.Booking) (persistence.Booking, error) {
	if err := ctx.Err(); err != nil {
		return persistence.Booking{}, err
	}
	return v.s.insertLocked(booking)
}

func (v lockedView) FindBookingsByRoomAndDate(ctx context.Context, roomName string, date time.Time) ([]persistence.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := date.Format(persistence.DateLayout)
	return v.s.filterLocked(func(b persistence.Booking) bool {
		return b.RoomName == roomName && b.DateKey() == key
	}), nil
}

func (v lockedView) FindBookingsByDate(ctx context.Context, date time.Time) ([]persistence.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := date.Format(persistence.DateLayout)
	return v.s.filterLocked(func(b persistence.Booking) bool {
		return b.DateKey() == key
	}), nil
}

func (v lockedView) GetBooking(ctx context.Context, id int64) (persistence.Booking, error) {
	if err := ctx.Err(); err != nil {
		return persistence.Booking{}, err
	}
	return v.s.getLocked(id)
}

func (v lockedView) DeleteBooking(ctx context.Context, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return v.s.deleteLocked(id), nil
}

var _ persistence.BookingStore = (*Storage)(nil)
