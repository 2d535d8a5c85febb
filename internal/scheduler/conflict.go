package scheduler

// Interval is a half-open [Start, End) range within a single day.
type Interval struct {
	Start Clock
	End   Clock
}

// NewInterval parses start and end clock strings into an Interval.
func NewInterval(start, end string) (Interval, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Interval{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return Interval{}, err
	}
	return Interval{Start: s, End: e}, nil
}

// Empty reports whether the interval contains no instant.
func (i Interval) Empty() bool {
	return i.End <= i.Start
}

// Overlaps reports whether two intervals share any instant. Touching
// boundaries do not overlap.
func (i Interval) Overlaps(other Interval) bool {
	return !(i.End <= other.Start || i.Start >= other.End)
}

// Slot is an already booked interval of a room on a given day.
type Slot struct {
	ID       int64
	Interval Interval
}

// Conflict identifies an existing slot that overlaps a candidate interval.
type Conflict struct {
	WithID   int64
	Interval Interval
}

// DetectConflicts returns every existing slot overlapping the candidate, in
// the order they were supplied.
func DetectConflicts(existing []Slot, candidate Interval) []Conflict {
	var conflicts []Conflict
	for _, slot := range existing {
		if slot.Interval.Overlaps(candidate) {
			conflicts = append(conflicts, Conflict{WithID: slot.ID, Interval: slot.Interval})
		}
	}
	return conflicts
}
