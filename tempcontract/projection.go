/*
projection.go - Legal term projection for new and extended occupations

PURPOSE:

	When a person is hired into a slot, the balance available at that moment
	fixes the last day the slot may legally be occupied. The signed contract
	may end earlier (a future extension will be needed) or, by mistake, later
	(the excess is void at the ceiling).

RULES:

	ProjectedFinalDate(start, remaining):
	  remaining <= 0 -> start itself (degenerate: no valid occupation)
	  otherwise      -> start + (remaining - 1) days

	IsExtensionRequired(agreedEnd, projected):
	  agreedEnd strictly before projected. Equal dates need no extension.

	The flag is stored on the occupation when it is created and recomputed
	whenever its end date changes.

EXAMPLE:

	Ceiling 730 days, previous occupant 2022-01-01..2023-01-01 (366 days):
	remaining 364, new start 2023-06-01 -> projected final 2024-05-29.

SEE ALSO:
  - ledger.go: RemainingBalance
  - service/service.go: Hire and ExtendOccupation use TermPlan and Extend
*/
package tempcontract

import "github.com/warp/slot-engine/generic"

// =============================================================================
// PROJECTION
// =============================================================================

// ProjectedFinalDate returns the last day a slot may legally be occupied by
// an occupation starting at start.
func ProjectedFinalDate(start generic.TimePoint, remaining int) generic.TimePoint {
	if remaining <= 0 {
		return start
	}
	return start.AddDays(remaining - 1)
}

// IsExtensionRequired is true iff agreedEnd strictly precedes projected.
func IsExtensionRequired(agreedEnd, projected generic.TimePoint) bool {
	return agreedEnd.Before(projected)
}

// =============================================================================
// TERM PLAN
// =============================================================================

// TermPlan is the projection for a prospective occupation.
type TermPlan struct {
	Start              generic.TimePoint
	AgreedEnd          generic.TimePoint
	RemainingBalance   int
	ProjectedFinalDate generic.TimePoint
	ExtensionRequired  bool
	ExceedsCeiling     bool
}

// PlanTerm projects a new occupation of the slot whose history is given.
func PlanTerm(group VacancyGroup, slotIndex int, history []Occupation, start, agreedEnd generic.TimePoint) (TermPlan, error) {
	if agreedEnd.Before(start) {
		return TermPlan{}, generic.ErrInvalidPeriod
	}
	balance := Balance(group.MaxTermDays, history)
	if balance.Exhausted() {
		return TermPlan{}, &ExhaustedSlotError{
			Slot:     generic.SlotKey{GroupID: group.ID, SlotIndex: slotIndex},
			Consumed: balance.Consumed,
			Max:      balance.Max,
		}
	}
	projected := ProjectedFinalDate(start, balance.Remaining())
	return TermPlan{
		Start:              start,
		AgreedEnd:          agreedEnd,
		RemainingBalance:   balance.Remaining(),
		ProjectedFinalDate: projected,
		ExtensionRequired:  IsExtensionRequired(agreedEnd, projected),
		ExceedsCeiling:     agreedEnd.After(projected),
	}, nil
}

// =============================================================================
// EXTENSION
// =============================================================================

// Extend moves the end date of an active occupation to newEnd and attaches
// the amendment reference. The projected final date is the ceiling; an end
// past it is rejected. ExtensionRequired is recomputed. An occupation without
// a projection is a MissingProjectionError; see Reproject.
func Extend(o Occupation, newEnd generic.TimePoint, amendmentRef string) (Occupation, error) {
	if !o.IsActive() {
		return Occupation{}, &OccupationStateError{Occupation: o.ID, Status: o.Status, Action: "extend"}
	}
	if !o.StartDate.Valid {
		return Occupation{}, &generic.ValidationError{Field: "start_date", Message: "unknown start date: " + o.StartDate.Raw}
	}
	if newEnd.Before(o.StartDate.Point) {
		return Occupation{}, generic.ErrInvalidPeriod
	}
	if !o.ProjectedFinalDate.Valid {
		return Occupation{}, &MissingProjectionError{Occupation: o.ID}
	}
	if newEnd.After(o.ProjectedFinalDate.Point) {
		return Occupation{}, &CeilingExceededError{
			Occupation:  o.ID,
			Requested:   newEnd,
			LastLegalAt: o.ProjectedFinalDate.Point,
		}
	}
	o.ExtensionRequired = IsExtensionRequired(newEnd, o.ProjectedFinalDate.Point)
	o.EndDate = generic.DateOf(newEnd)
	o.AmendmentRef = amendmentRef
	return o, nil
}

// Reproject recomputes the projected final date of o from the occupations
// that preceded it in its slot. Later occupants are ignored.
func Reproject(group VacancyGroup, history []Occupation, o Occupation) (Occupation, error) {
	if !o.StartDate.Valid {
		return Occupation{}, &generic.ValidationError{Field: "start_date", Message: "unknown start date: " + o.StartDate.Raw}
	}
	var prior []Occupation
	for _, h := range history {
		if h.ID != o.ID && h.SequenceOrder < o.SequenceOrder {
			prior = append(prior, h)
		}
	}
	remaining := RemainingBalance(group.MaxTermDays, prior)
	o.ProjectedFinalDate = generic.DateOf(ProjectedFinalDate(o.StartDate.Point, remaining))
	return o, nil
}

// End closes an active occupation on endDate.
func End(o Occupation, endDate generic.TimePoint) (Occupation, error) {
	if !o.IsActive() {
		return Occupation{}, &OccupationStateError{Occupation: o.ID, Status: o.Status, Action: "end"}
	}
	if o.StartDate.Valid && endDate.Before(o.StartDate.Point) {
		return Occupation{}, generic.ErrInvalidPeriod
	}
	o.EndDate = generic.DateOf(endDate)
	o.Status = OccupationEnded
	o.ExtensionRequired = false
	return o, nil
}
