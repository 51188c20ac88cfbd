package tempcontract_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/slot-engine/generic"
	"github.com/warp/slot-engine/tempcontract"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func testGroup(maxDays, slots int) tempcontract.VacancyGroup {
	return tempcontract.VacancyGroup{
		ID:            "vg-1",
		Code:          "PROF-001",
		LegalBasis:    "substitute-teacher",
		MaxTermDays:   maxDays,
		SlotCount:     slots,
		WaitingListID: "wl-1",
	}
}

func occupation(id string, slot, seq int, start, end string, status tempcontract.OccupationStatus) tempcontract.Occupation {
	return tempcontract.Occupation{
		ID:             generic.OccupationID(id),
		VacancyGroupID: "vg-1",
		SlotIndex:      slot,
		SequenceOrder:  seq,
		PersonID:       generic.CandidateID("person-" + id),
		StartDate:      generic.ParseDate(start),
		EndDate:        generic.ParseDate(end),
		Status:         status,
		QuotaCategory:  tempcontract.QuotaGeneral,
	}
}

// =============================================================================
// CONSUMED DAYS
// =============================================================================

func TestConsumedDays_InclusiveSpan(t *testing.T) {
	// GIVEN: One ended occupation 2022-01-01..2023-01-01
	// WHEN: Counting consumed days
	// THEN: Both ends count, 366 days

	history := []tempcontract.Occupation{
		occupation("o1", 1, 1, "2022-01-01", "2023-01-01", tempcontract.OccupationEnded),
	}
	assert.Equal(t, 366, tempcontract.ConsumedDays(history))
}

func TestConsumedDays_SingleDayCountsOne(t *testing.T) {
	history := []tempcontract.Occupation{
		occupation("o1", 1, 1, "2024-03-10", "2024-03-10", tempcontract.OccupationEnded),
	}
	assert.Equal(t, 1, tempcontract.ConsumedDays(history))
}

func TestConsumedDays_MalformedAndReversedContributeZero(t *testing.T) {
	// GIVEN: A reversed span and an entry with a partial date
	// WHEN: Counting consumed days
	// THEN: Neither contributes, the valid entry still counts

	history := []tempcontract.Occupation{
		occupation("o1", 1, 1, "2024-05-10", "2024-05-01", tempcontract.OccupationEnded),
		occupation("o2", 1, 2, "2024-06-01", "06/2024", tempcontract.OccupationEnded),
		occupation("o3", 1, 3, "2024-07-01", "2024-07-10", tempcontract.OccupationActive),
	}
	assert.Equal(t, 10, tempcontract.ConsumedDays(history))
}

func TestConsumedDays_ActiveUsesDeclaredDates(t *testing.T) {
	// GIVEN: An active occupation ending far in the future
	// WHEN: Counting consumed days
	// THEN: The declared end is used, not today

	history := []tempcontract.Occupation{
		occupation("o1", 1, 1, "2030-01-01", "2030-12-31", tempcontract.OccupationActive),
	}
	assert.Equal(t, 365, tempcontract.ConsumedDays(history))
}

func TestConsumedDays_MonotoneAndBalanceIdentity(t *testing.T) {
	// GIVEN: A slot history built one occupation at a time
	// WHEN: Each occupation is appended
	// THEN: Consumed never decreases and remaining + consumed == max until exhausted

	const maxDays = 400
	entries := []tempcontract.Occupation{
		occupation("o1", 1, 1, "2022-01-01", "2022-03-31", tempcontract.OccupationEnded),
		occupation("o2", 1, 2, "2022-05-01", "2022-04-01", tempcontract.OccupationEnded),
		occupation("o3", 1, 3, "2022-06-01", "2022-12-31", tempcontract.OccupationEnded),
		occupation("o4", 1, 4, "2023-01-01", "2023-12-31", tempcontract.OccupationEnded),
	}

	var history []tempcontract.Occupation
	previous := 0
	for _, e := range entries {
		history = append(history, e)
		consumed := tempcontract.ConsumedDays(history)
		remaining := tempcontract.RemainingBalance(maxDays, history)

		assert.GreaterOrEqual(t, consumed, previous)
		assert.GreaterOrEqual(t, remaining, 0)
		if consumed <= maxDays {
			assert.Equal(t, maxDays, remaining+consumed)
		} else {
			assert.Equal(t, 0, remaining)
		}
		previous = consumed
	}
	assert.Greater(t, previous, maxDays, "fixture should end past the ceiling")
}

// =============================================================================
// REMAINING BALANCE
// =============================================================================

func TestRemainingBalance_Scenario730(t *testing.T) {
	history := []tempcontract.Occupation{
		occupation("o1", 1, 1, "2022-01-01", "2023-01-01", tempcontract.OccupationEnded),
	}
	assert.Equal(t, 364, tempcontract.RemainingBalance(730, history))
}

func TestRemainingBalance_NeverNegative(t *testing.T) {
	history := []tempcontract.Occupation{
		occupation("o1", 1, 1, "2020-01-01", "2023-12-31", tempcontract.OccupationEnded),
	}
	assert.Equal(t, 0, tempcontract.RemainingBalance(730, history))
	assert.Equal(t, 0, tempcontract.RemainingBalance(0, nil))
}

// =============================================================================
// ACTIVE OCCUPATION
// =============================================================================

func TestActiveOccupation_Vacant(t *testing.T) {
	history := []tempcontract.Occupation{
		occupation("o1", 1, 1, "2022-01-01", "2022-06-30", tempcontract.OccupationEnded),
	}
	active, err := tempcontract.ActiveOccupation(history)
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestActiveOccupation_DuplicateIsDataConsistencyError(t *testing.T) {
	// GIVEN: Two active occupations on the same slot
	// WHEN: Looking up the active occupation
	// THEN: A data-consistency error names both records

	history := []tempcontract.Occupation{
		occupation("o1", 2, 1, "2022-01-01", "2022-06-30", tempcontract.OccupationActive),
		occupation("o2", 2, 2, "2022-07-01", "2022-12-31", tempcontract.OccupationActive),
	}
	active, err := tempcontract.ActiveOccupation(history)

	assert.Nil(t, active)
	require.Error(t, err)
	assert.True(t, errors.Is(err, generic.ErrDataConsistency))
	var dup *tempcontract.DuplicateActiveOccupationError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, 2, dup.Slot.SlotIndex)
	assert.ElementsMatch(t, []generic.OccupationID{"o1", "o2"}, dup.Occupations)
}

func TestIsSlotVacant(t *testing.T) {
	group := testGroup(730, 2)
	occs := []tempcontract.Occupation{
		occupation("o1", 1, 1, "2024-01-01", "2024-12-31", tempcontract.OccupationActive),
		occupation("o2", 2, 1, "2023-01-01", "2023-12-31", tempcontract.OccupationEnded),
	}

	vacant, err := tempcontract.IsSlotVacant(group, 1, occs)
	require.NoError(t, err)
	assert.False(t, vacant)

	vacant, err = tempcontract.IsSlotVacant(group, 2, occs)
	require.NoError(t, err)
	assert.True(t, vacant)
}

// =============================================================================
// QUOTA CATEGORY AND SEQUENCE
// =============================================================================

func TestLastQuotaCategory(t *testing.T) {
	assert.Equal(t, tempcontract.QuotaGeneral, tempcontract.LastQuotaCategory(nil))

	first := occupation("o1", 1, 1, "2022-01-01", "2022-06-30", tempcontract.OccupationEnded)
	first.QuotaCategory = tempcontract.QuotaDisability
	second := occupation("o2", 1, 2, "2022-07-01", "2022-12-31", tempcontract.OccupationEnded)
	second.QuotaCategory = tempcontract.QuotaRacial

	// Out of order input: the highest sequence wins.
	assert.Equal(t, tempcontract.QuotaRacial,
		tempcontract.LastQuotaCategory([]tempcontract.Occupation{second, first}))
}

func TestSlotHistory_OrderedBySequence(t *testing.T) {
	occs := []tempcontract.Occupation{
		occupation("o3", 1, 3, "2024-01-01", "2024-02-01", tempcontract.OccupationActive),
		occupation("o1", 1, 1, "2022-01-01", "2022-02-01", tempcontract.OccupationEnded),
		occupation("x1", 2, 1, "2022-01-01", "2022-02-01", tempcontract.OccupationEnded),
		occupation("o2", 1, 2, "2023-01-01", "2023-02-01", tempcontract.OccupationEnded),
	}
	history := tempcontract.SlotHistory(occs, "vg-1", 1)

	require.Len(t, history, 3)
	assert.Equal(t, generic.OccupationID("o1"), history[0].ID)
	assert.Equal(t, generic.OccupationID("o2"), history[1].ID)
	assert.Equal(t, generic.OccupationID("o3"), history[2].ID)
	assert.Equal(t, 4, tempcontract.NextSequenceOrder(history))
	assert.Equal(t, 1, tempcontract.NextSequenceOrder(nil))
}

// =============================================================================
// SLOT STATUS
// =============================================================================

func TestSlots_ReportsEverySlot(t *testing.T) {
	// GIVEN: A 3-slot group with one occupied slot and one exhausted slot
	// WHEN: Computing slot statuses
	// THEN: Each slot is reported with vacancy and exhaustion flags

	group := testGroup(365, 3)
	occs := []tempcontract.Occupation{
		occupation("o1", 1, 1, "2024-01-01", "2024-06-30", tempcontract.OccupationActive),
		occupation("o2", 2, 1, "2023-01-01", "2023-12-31", tempcontract.OccupationEnded),
	}

	slots, err := tempcontract.Slots(group, occs)
	require.NoError(t, err)
	require.Len(t, slots, 3)

	assert.False(t, slots[0].Vacant)
	assert.NotNil(t, slots[0].Active)
	assert.Equal(t, 182, slots[0].ConsumedDays)
	assert.Equal(t, 183, slots[0].RemainingBalance)
	assert.False(t, slots[0].Offerable())

	assert.True(t, slots[1].Vacant)
	assert.True(t, slots[1].Exhausted)
	assert.False(t, slots[1].Offerable())
	assert.Equal(t, "1", slots[1].UsageRatio.String())

	assert.True(t, slots[2].Vacant)
	assert.Equal(t, 365, slots[2].RemainingBalance)
	assert.True(t, slots[2].Offerable())
	assert.Equal(t, tempcontract.QuotaGeneral, slots[2].RequiredCategory)
}

func TestSlots_OutOfRangeIsDataConsistencyError(t *testing.T) {
	group := testGroup(365, 1)
	occs := []tempcontract.Occupation{
		occupation("o1", 4, 1, "2024-01-01", "2024-06-30", tempcontract.OccupationActive),
	}

	_, err := tempcontract.Slots(group, occs)
	require.Error(t, err)
	assert.True(t, generic.IsDataConsistency(err))
	var oor *tempcontract.SlotOutOfRangeError
	require.ErrorAs(t, err, &oor)
	assert.Equal(t, 4, oor.SlotIndex)
}

func TestSlots_IgnoresOtherGroups(t *testing.T) {
	group := testGroup(365, 1)
	other := occupation("o9", 7, 1, "2024-01-01", "2024-06-30", tempcontract.OccupationActive)
	other.VacancyGroupID = "vg-2"

	slots, err := tempcontract.Slots(group, []tempcontract.Occupation{other})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.True(t, slots[0].Vacant)
}

// =============================================================================
// TYPES
// =============================================================================

func TestParseQuotaCategory(t *testing.T) {
	cases := map[string]tempcontract.QuotaCategory{
		"":     tempcontract.QuotaGeneral,
		"ac":   tempcontract.QuotaGeneral,
		" PCD": tempcontract.QuotaDisability,
		"ppp":  tempcontract.QuotaRacial,
		"IND":  tempcontract.QuotaIndigenous,
	}
	for in, want := range cases {
		got, err := tempcontract.ParseQuotaCategory(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := tempcontract.ParseQuotaCategory("VIP")
	assert.ErrorIs(t, err, generic.ErrValidation)
}

func TestVacancyGroup_Validate(t *testing.T) {
	assert.NoError(t, testGroup(730, 2).Validate())
	assert.ErrorIs(t, testGroup(0, 2).Validate(), generic.ErrValidation)
	assert.ErrorIs(t, testGroup(730, 0).Validate(), generic.ErrValidation)
}
