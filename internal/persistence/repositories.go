package persistence

import (
	"context"
	"time"
)

// BookingRepository exposes the booking table operations.
type BookingRepository interface {
	InsertBooking(ctx context.Context, booking Booking) (Booking, error)
	FindBookingsByRoomAndDate(ctx context.Context, roomName string, date time.Time) ([]Booking, error)
	FindBookingsByDate(ctx context.Context, date time.Time) ([]Booking, error)
	GetBooking(ctx context.Context, id int64) (Booking, error)
	DeleteBooking(ctx context.Context, id int64) (bool, error)
}

// SlotFunc runs against a repository view scoped to one room and day.
type SlotFunc func(repo BookingRepository) error

// BookingStore is a BookingRepository that can serialize work on a single
// (room, date) slot. Reads and writes issued through the repository handed to
// fn are atomic with respect to other WithinSlot calls for the same key.
type BookingStore interface {
	BookingRepository
	WithinSlot(ctx context.Context, roomName string, date time.Time, fn SlotFunc) error
	Ping(ctx context.Context) error
	Close() error
}
