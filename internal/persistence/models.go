package persistence

import "time"

// DateLayout is the storage encoding of booking dates.
const DateLayout = "2006-01-02"

// Booking represents a room reservation row.
//
// Date carries only the calendar day (UTC midnight). StartTime and EndTime
// hold zero-padded "HH:MM" text so that lexicographic order is time order.
type Booking struct {
	ID        int64
	RoomName  string
	Date      time.Time
	StartTime string
	EndTime   string
	Purpose   string
	CreatedAt time.Time
}

// DateKey renders the booking date in storage form.
func (b Booking) DateKey() string {
	return b.Date.Format(DateLayout)
}

// NormalizeDate strips the clock portion of t, keeping its calendar day.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
