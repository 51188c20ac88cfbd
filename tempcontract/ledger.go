/*
ledger.go - Per-slot occupation history and legal balance

PURPOSE:

	A slot's ledger is its ordered history of occupations. From it we derive
	how many legally chargeable days have been consumed and how many remain
	before the statutory ceiling of the vacancy group.

INVARIANTS:
 1. At most one Active occupation per (group, slot). Two or more is a
    data-consistency error; nothing here silently picks one.
 2. SequenceOrder strictly increases within a slot.
 3. Remaining balance is never negative.

CONSUMPTION RULES:
  - Every occupation contributes its inclusive day count.
  - The active occupation contributes its declared dates, not clamped to
    today.
  - Reversed spans or unknown dates contribute 0.

EXHAUSTION:

	A slot with remaining balance 0 is permanently exhausted. It may be
	vacant, but it must never be offered for a new occupation.

EXAMPLE:

	history := tempcontract.SlotHistory(occupations, "vg-1", 2)
	consumed := tempcontract.ConsumedDays(history)
	remaining := tempcontract.RemainingBalance(group.MaxTermDays, history)

SEE ALSO:
  - projection.go: uses RemainingBalance to project the final legal day
  - substitution/matcher.go: uses Slots to find vacant slots
*/
package tempcontract

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/slot-engine/generic"
)

// =============================================================================
// HISTORY
// =============================================================================

// SlotHistory returns the occupations of one slot ordered by SequenceOrder.
func SlotHistory(occupations []Occupation, groupID generic.VacancyGroupID, slotIndex int) []Occupation {
	var history []Occupation
	for _, o := range occupations {
		if o.VacancyGroupID == groupID && o.SlotIndex == slotIndex {
			history = append(history, o)
		}
	}
	sortBySequence(history)
	return history
}

// GroupHistories splits the occupations of one group by slot index.
func GroupHistories(occupations []Occupation, groupID generic.VacancyGroupID) map[int][]Occupation {
	histories := make(map[int][]Occupation)
	for _, o := range occupations {
		if o.VacancyGroupID != groupID {
			continue
		}
		histories[o.SlotIndex] = append(histories[o.SlotIndex], o)
	}
	for _, h := range histories {
		sortBySequence(h)
	}
	return histories
}

func sortBySequence(history []Occupation) {
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].SequenceOrder < history[j].SequenceOrder
	})
}

// NextSequenceOrder returns the order the next occupant of the slot gets.
func NextSequenceOrder(history []Occupation) int {
	next := 1
	for _, o := range history {
		if o.SequenceOrder >= next {
			next = o.SequenceOrder + 1
		}
	}
	return next
}

// =============================================================================
// BALANCE
// =============================================================================

// ConsumedDays sums the inclusive day count of every occupation in history.
func ConsumedDays(history []Occupation) int {
	total := 0
	for _, o := range history {
		total += o.ChargeableDays()
	}
	return total
}

// RemainingBalance returns max(0, maxTermDays - ConsumedDays(history)).
func RemainingBalance(maxTermDays int, history []Occupation) int {
	return Balance(maxTermDays, history).Remaining()
}

// Balance returns the ceiling balance of a slot.
func Balance(maxTermDays int, history []Occupation) generic.CeilingBalance {
	return generic.CeilingBalance{Max: maxTermDays, Consumed: ConsumedDays(history)}
}

// =============================================================================
// ACTIVE OCCUPATION
// =============================================================================

// ActiveOccupation returns the single active occupation of a slot history, or
// nil when the slot is vacant. More than one active entry is reported as a
// DuplicateActiveOccupationError.
func ActiveOccupation(history []Occupation) (*Occupation, error) {
	var active []Occupation
	for _, o := range history {
		if o.IsActive() {
			active = append(active, o)
		}
	}
	switch len(active) {
	case 0:
		return nil, nil
	case 1:
		return &active[0], nil
	}
	ids := make([]generic.OccupationID, len(active))
	for i, o := range active {
		ids[i] = o.ID
	}
	return nil, &DuplicateActiveOccupationError{Slot: active[0].Key(), Occupations: ids}
}

// IsSlotVacant is true iff the slot has no active occupation.
func IsSlotVacant(group VacancyGroup, slotIndex int, occupations []Occupation) (bool, error) {
	active, err := ActiveOccupation(SlotHistory(occupations, group.ID, slotIndex))
	if err != nil {
		return false, err
	}
	return active == nil, nil
}

// LastQuotaCategory returns the category of the most recent occupant, or
// QuotaGeneral for an empty history. Replacements are drawn from this pool so
// a slot keeps its original reservation across occupants.
func LastQuotaCategory(history []Occupation) QuotaCategory {
	var last *Occupation
	for i := range history {
		if last == nil || history[i].SequenceOrder > last.SequenceOrder {
			last = &history[i]
		}
	}
	if last == nil || last.QuotaCategory == "" {
		return QuotaGeneral
	}
	return last.QuotaCategory
}

// =============================================================================
// SLOT STATUS
// =============================================================================

// SlotStatus is the derived view of one slot.
type SlotStatus struct {
	Group            VacancyGroup
	SlotIndex        int
	ConsumedDays     int
	RemainingBalance int
	Vacant           bool
	Exhausted        bool
	UsageRatio       decimal.Decimal
	RequiredCategory QuotaCategory
	Active           *Occupation
	History          []Occupation
}

// Key returns the slot key.
func (s SlotStatus) Key() generic.SlotKey {
	return generic.SlotKey{GroupID: s.Group.ID, SlotIndex: s.SlotIndex}
}

// Balance returns the slot's consumption against its group ceiling.
func (s SlotStatus) Balance() generic.CeilingBalance {
	return generic.CeilingBalance{Max: s.Group.MaxTermDays, Consumed: s.ConsumedDays}
}

// Offerable is true for a vacant slot with legal balance left.
func (s SlotStatus) Offerable() bool {
	return s.Vacant && !s.Exhausted
}

// Slots computes the status of every slot 1..SlotCount of group.
// Occupations of other groups are ignored; occupations of this group that
// reference a slot outside its range are a data-consistency error.
func Slots(group VacancyGroup, occupations []Occupation) ([]SlotStatus, error) {
	histories := GroupHistories(occupations, group.ID)
	for index, history := range histories {
		if !group.HasSlot(index) {
			return nil, &SlotOutOfRangeError{
				Occupation: history[0].ID,
				GroupID:    group.ID,
				SlotIndex:  index,
				SlotCount:  group.SlotCount,
			}
		}
	}

	statuses := make([]SlotStatus, 0, group.SlotCount)
	for index := 1; index <= group.SlotCount; index++ {
		history := histories[index]
		active, err := ActiveOccupation(history)
		if err != nil {
			return nil, err
		}
		balance := Balance(group.MaxTermDays, history)
		statuses = append(statuses, SlotStatus{
			Group:            group,
			SlotIndex:        index,
			ConsumedDays:     balance.Consumed,
			RemainingBalance: balance.Remaining(),
			Vacant:           active == nil,
			Exhausted:        balance.Exhausted(),
			UsageRatio:       balance.UsageRatio(),
			RequiredCategory: LastQuotaCategory(history),
			Active:           active,
			History:          history,
		})
	}
	return statuses, nil
}
