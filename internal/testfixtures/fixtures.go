package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/scheduler"
)

var bookingCounter uint64

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReferenceDate is the calendar day fixtures are booked on by default.
const ReferenceDate = "2024-05-20"

// Date parses a YYYY-MM-DD literal and panics on malformed input.
func Date(value string) time.Time {
	d, err := time.Parse(persistence.DateLayout, value)
	if err != nil {
		panic(fmt.Sprintf("testfixtures: bad date %q: %v", value, err))
	}
	return d
}

// BookingFixture represents a deterministic booking that can be materialised
// for application, persistence, or HTTP tests.
type BookingFixture struct {
	RoomName  string
	Date      string
	StartTime string
	EndTime   string
	Purpose   string
	CreatedAt time.Time
}

// BookingOption configures the generated booking fixture.
type BookingOption func(*BookingFixture)

// NewBookingFixture returns a one hour booking on ReferenceDate with optional
// overrides. Successive fixtures use distinct room names.
func NewBookingFixture(opts ...BookingOption) BookingFixture {
	idx := atomic.AddUint64(&bookingCounter, 1)
	fixture := BookingFixture{
		RoomName:  fmt.Sprintf("Phòng %03d", idx),
		Date:      ReferenceDate,
		StartTime: "09:00",
		EndTime:   "10:00",
		Purpose:   "Họp nhóm",
		CreatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithRoom overrides the room name.
func WithRoom(name string) BookingOption {
	return func(f *BookingFixture) {
		f.RoomName = name
	}
}

// WithDate overrides the booking date.
func WithDate(date string) BookingOption {
	return func(f *BookingFixture) {
		f.Date = date
	}
}

// WithTimes overrides the start and end times.
func WithTimes(start, end string) BookingOption {
	return func(f *BookingFixture) {
		f.StartTime = start
		f.EndTime = end
	}
}

// WithPurpose overrides the purpose text.
func WithPurpose(purpose string) BookingOption {
	return func(f *BookingFixture) {
		f.Purpose = purpose
	}
}

// Input converts the fixture into service input.
func (f BookingFixture) Input() application.CreateBookingInput {
	return application.CreateBookingInput{
		RoomName:  f.RoomName,
		Date:      f.Date,
		StartTime: f.StartTime,
		EndTime:   f.EndTime,
		Purpose:   f.Purpose,
	}
}

// Persistence converts the fixture into a storage row without an id.
func (f BookingFixture) Persistence() persistence.Booking {
	return persistence.Booking{
		RoomName:  f.RoomName,
		Date:      Date(f.Date),
		StartTime: f.StartTime,
		EndTime:   f.EndTime,
		Purpose:   f.Purpose,
		CreatedAt: f.CreatedAt,
	}
}

// Application converts the fixture into a service booking without an id.
func (f BookingFixture) Application() application.Booking {
	return application.Booking{
		RoomName:  f.RoomName,
		Date:      Date(f.Date),
		StartTime: scheduler.MustParseClock(f.StartTime),
		EndTime:   scheduler.MustParseClock(f.EndTime),
		Purpose:   f.Purpose,
		CreatedAt: f.CreatedAt,
	}
}
