package generic

// =============================================================================
// PERIOD - A closed interval of days
// =============================================================================

// Period is the closed interval [Start, End]. Occupations, contract terms
// and deadline windows are all periods.
type Period struct {
	Start TimePoint
	End   TimePoint
}

// NewPeriod builds a period from two possibly-unknown dates. ok is false when
// either end is unknown.
func NewPeriod(start, end Date) (Period, bool) {
	if !start.Valid || !end.Valid {
		return Period{}, false
	}
	return Period{Start: start.Point, End: end.Point}, true
}

// Days returns the number of days in the period counting both ends.
// A reversed period has zero days.
func (p Period) Days() int {
	if p.End.Before(p.Start) {
		return 0
	}
	return InclusiveDaySpan(p.Start, p.End) + 1
}

// Reversed reports whether End precedes Start.
func (p Period) Reversed() bool {
	return p.End.Before(p.Start)
}

// Validate returns ErrInvalidPeriod for a reversed period.
func (p Period) Validate() error {
	if p.Reversed() {
		return ErrInvalidPeriod
	}
	return nil
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
