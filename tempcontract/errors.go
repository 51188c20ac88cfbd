package tempcontract

import (
	"fmt"
	"strings"

	"github.com/warp/slot-engine/generic"
)

// DuplicateActiveOccupationError is returned when more than one active
// occupation exists for the same slot. The records need manual correction.
type DuplicateActiveOccupationError struct {
	Slot        generic.SlotKey
	Occupations []generic.OccupationID
}

func (e *DuplicateActiveOccupationError) Error() string {
	ids := make([]string, len(e.Occupations))
	for i, id := range e.Occupations {
		ids[i] = string(id)
	}
	return fmt.Sprintf("slot %s#%d has %d active occupations: %s",
		e.Slot.GroupID, e.Slot.SlotIndex, len(ids), strings.Join(ids, ", "))
}

func (e *DuplicateActiveOccupationError) Unwrap() error {
	return generic.ErrDataConsistency
}

// SlotOutOfRangeError is returned when an occupation references a slot index
// outside 1..SlotCount of its group.
type SlotOutOfRangeError struct {
	Occupation generic.OccupationID
	GroupID    generic.VacancyGroupID
	SlotIndex  int
	SlotCount  int
}

func (e *SlotOutOfRangeError) Error() string {
	return fmt.Sprintf("occupation %s references slot %d of group %s (slot count %d)",
		e.Occupation, e.SlotIndex, e.GroupID, e.SlotCount)
}

func (e *SlotOutOfRangeError) Unwrap() error {
	return generic.ErrDataConsistency
}

// ExhaustedSlotError is returned when a new occupation is planned on a slot
// with no remaining legal balance.
type ExhaustedSlotError struct {
	Slot     generic.SlotKey
	Consumed int
	Max      int
}

func (e *ExhaustedSlotError) Error() string {
	return fmt.Sprintf("slot %s#%d exhausted: %d of %d days consumed",
		e.Slot.GroupID, e.Slot.SlotIndex, e.Consumed, e.Max)
}

func (e *ExhaustedSlotError) Unwrap() error {
	return generic.ErrSlotExhausted
}

// CeilingExceededError is returned when an extension would run past the last
// legal day of the slot.
type CeilingExceededError struct {
	Occupation  generic.OccupationID
	Requested   generic.TimePoint
	LastLegalAt generic.TimePoint
}

func (e *CeilingExceededError) Error() string {
	return fmt.Sprintf("occupation %s: end %s is after last legal day %s",
		e.Occupation, e.Requested, e.LastLegalAt)
}

func (e *CeilingExceededError) Unwrap() error {
	return generic.ErrExceedsCeiling
}

// OccupationStateError is returned when an action needs an active occupation.
type OccupationStateError struct {
	Occupation generic.OccupationID
	Status     OccupationStatus
	Action     string
}

func (e *OccupationStateError) Error() string {
	return fmt.Sprintf("cannot %s occupation %s in status %s", e.Action, e.Occupation, e.Status)
}

func (e *OccupationStateError) Unwrap() error {
	return generic.ErrInvalidTransition
}

// MissingProjectionError is returned when an active occupation has no
// projected final date to bound an extension.
type MissingProjectionError struct {
	Occupation generic.OccupationID
}

func (e *MissingProjectionError) Error() string {
	return fmt.Sprintf("occupation %s has no projected final date", e.Occupation)
}

func (e *MissingProjectionError) Unwrap() error {
	return generic.ErrDataConsistency
}
