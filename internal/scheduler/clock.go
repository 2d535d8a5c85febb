package scheduler

import (
	"errors"
	"fmt"
)

// ErrInvalidClock is returned when a time of day is not in 24-hour HH:MM form.
var ErrInvalidClock = errors.New("scheduler: invalid clock time")

// Clock is a time of day expressed as minutes since midnight.
type Clock int

// ParseClock parses a zero-padded 24-hour "HH:MM" string.
func ParseClock(value string) (Clock, error) {
	if len(value) != 5 || value[2] != ':' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	hours, ok := twoDigits(value[0], value[1])
	if !ok || hours > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	minutes, ok := twoDigits(value[3], value[4])
	if !ok || minutes > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	return Clock(hours*60 + minutes), nil
}

// MustParseClock is like ParseClock but panics on malformed input.
func MustParseClock(value string) Clock {
	c, err := ParseClock(value)
	if err != nil {
		panic(err)
	}
	return c
}

// String renders the clock as "HH:MM".
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

func twoDigits(hi, lo byte) (int, bool) {
	if hi < '0' || hi > '9' || lo < '0' || lo > '9' {
		return 0, false
	}
	return int(hi-'0')*10 + int(lo-'0'), true
}
