package application

import (
	"regexp"
	"time"
)

// DateLayout is the wire and storage form of booking dates.
const DateLayout = "2006-01-02"

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ParseDate parses a strict YYYY-MM-DD calendar date. Failures are returned as
// *DateError and match ErrInvalidDateFormat.
func ParseDate(value string) (time.Time, error) {
	if !datePattern.MatchString(value) {
		return time.Time{}, &DateError{Kind: DateMalformed, Input: value}
	}
	date, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, &DateError{Kind: DateImpossible, Input: value, Err: err}
	}
	return date, nil
}
