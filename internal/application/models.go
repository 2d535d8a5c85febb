package application

import (
	"time"

	"github.com/example/room-booking/internal/scheduler"
)

// Booking is a reservation of one room for a time range on one day.
type Booking struct {
	ID        int64
	RoomName  string
	Date      time.Time
	StartTime scheduler.Clock
	EndTime   scheduler.Clock
	Purpose   string
	CreatedAt time.Time
}

// Interval returns the booked time range.
func (b Booking) Interval() scheduler.Interval {
	return scheduler.Interval{Start: b.StartTime, End: b.EndTime}
}

// BookingSummary is the per-date listing view of a booking. It omits the date
// because every entry shares the one requested.
type BookingSummary struct {
	ID        int64
	RoomName  string
	StartTime scheduler.Clock
	EndTime   scheduler.Clock
	Purpose   string
}

// CreateBookingInput captures caller provided booking fields as received.
type CreateBookingInput struct {
	RoomName  string `json:"room_name" validate:"required"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Purpose   string `json:"purpose"`
}
