package application

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrNotFound is returned when the requested booking does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrInvalidDateFormat is returned when a date is not a real YYYY-MM-DD calendar date.
	ErrInvalidDateFormat = errors.New("application: invalid date format")
	// ErrInvalidTimeFormat is returned when a time of day is not HH:MM.
	ErrInvalidTimeFormat = errors.New("application: invalid time format")
	// ErrInvalidTimeRange is returned when the end time is not after the start time.
	ErrInvalidTimeRange = errors.New("application: end time must be after start time")
	// ErrTimeSlotConflict is returned when the requested range overlaps an existing booking.
	ErrTimeSlotConflict = errors.New("application: time slot already booked")
	// ErrStorage marks failures of the backing store.
	ErrStorage = errors.New("application: storage failure")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// Fields returns the names of the invalid fields in sorted order.
func (v *ValidationError) Fields() []string {
	if v == nil {
		return nil
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// DateErrorKind classifies why a date string was rejected.
type DateErrorKind int

const (
	// DateMalformed means the input is not shaped like YYYY-MM-DD.
	DateMalformed DateErrorKind = iota + 1
	// DateImpossible means the input is well shaped but names no calendar day.
	DateImpossible
)

func (k DateErrorKind) String() string {
	switch k {
	case DateMalformed:
		return "malformed"
	case DateImpossible:
		return "impossible"
	default:
		return "unknown"
	}
}

// DateError reports a rejected date. It matches ErrInvalidDateFormat.
type DateError struct {
	Kind  DateErrorKind
	Input string
	Err   error
}

func (e *DateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid date %q (%s): %v", e.Input, e.Kind, e.Err)
	}
	return fmt.Sprintf("invalid date %q (%s)", e.Input, e.Kind)
}

// Is reports whether target is ErrInvalidDateFormat.
func (e *DateError) Is(target error) bool {
	return target == ErrInvalidDateFormat
}

func (e *DateError) Unwrap() error {
	return e.Err
}

// StorageError wraps a backing store failure with the operation that hit it.
// It matches ErrStorage.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

// Is reports whether target is ErrStorage.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
