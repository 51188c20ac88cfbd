package tempcontract_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/slot-engine/generic"
	"github.com/warp/slot-engine/tempcontract"
)

// =============================================================================
// PROJECTED FINAL DATE
// =============================================================================

func TestProjectedFinalDate_Scenario730(t *testing.T) {
	// GIVEN: Ceiling 730, previous occupant consumed 366 days
	// WHEN: A new occupation starts on 2023-06-01
	// THEN: The last legal day is 2024-05-29

	history := []tempcontract.Occupation{
		occupation("o1", 1, 1, "2022-01-01", "2023-01-01", tempcontract.OccupationEnded),
	}
	remaining := tempcontract.RemainingBalance(730, history)
	require.Equal(t, 364, remaining)

	got := tempcontract.ProjectedFinalDate(generic.MustParseDate("2023-06-01"), remaining)
	assert.Equal(t, "2024-05-29", got.String())
}

func TestProjectedFinalDate_DegenerateBalance(t *testing.T) {
	start := generic.MustParseDate("2024-02-01")
	assert.True(t, tempcontract.ProjectedFinalDate(start, 0).Equal(start))
	assert.True(t, tempcontract.ProjectedFinalDate(start, -5).Equal(start))
	assert.True(t, tempcontract.ProjectedFinalDate(start, 1).Equal(start))
}

func TestProjectedFinalDate_RoundTrip(t *testing.T) {
	// GIVEN: Any positive balance
	// WHEN: Projecting and measuring the span back
	// THEN: The inclusive span reproduces the balance

	start := generic.MustParseDate("2024-02-27")
	for _, remaining := range []int{1, 2, 3, 28, 29, 30, 364, 365, 366, 730, 1460} {
		final := tempcontract.ProjectedFinalDate(start, remaining)
		assert.Equal(t, remaining, generic.InclusiveDaySpan(start, final)+1, "remaining=%d", remaining)
	}
}

// =============================================================================
// EXTENSION FLAG
// =============================================================================

func TestIsExtensionRequired_Strict(t *testing.T) {
	projected := generic.MustParseDate("2024-05-29")

	assert.True(t, tempcontract.IsExtensionRequired(generic.MustParseDate("2024-05-28"), projected))
	assert.False(t, tempcontract.IsExtensionRequired(projected, projected), "equal dates need no extension")
	assert.False(t, tempcontract.IsExtensionRequired(generic.MustParseDate("2024-05-30"), projected))
}

// =============================================================================
// TERM PLAN
// =============================================================================

func TestPlanTerm(t *testing.T) {
	group := testGroup(730, 1)
	history := []tempcontract.Occupation{
		occupation("o1", 1, 1, "2022-01-01", "2023-01-01", tempcontract.OccupationEnded),
	}

	plan, err := tempcontract.PlanTerm(group, 1, history,
		generic.MustParseDate("2023-06-01"), generic.MustParseDate("2023-12-31"))
	require.NoError(t, err)

	assert.Equal(t, 364, plan.RemainingBalance)
	assert.Equal(t, "2024-05-29", plan.ProjectedFinalDate.String())
	assert.True(t, plan.ExtensionRequired)
	assert.False(t, plan.ExceedsCeiling)
}

func TestPlanTerm_AgreedEndPastCeiling(t *testing.T) {
	group := testGroup(30, 1)

	plan, err := tempcontract.PlanTerm(group, 1, nil,
		generic.MustParseDate("2024-01-01"), generic.MustParseDate("2024-03-01"))
	require.NoError(t, err)

	assert.True(t, plan.ExceedsCeiling)
	assert.False(t, plan.ExtensionRequired)
	assert.Equal(t, "2024-01-30", plan.ProjectedFinalDate.String())
}

func TestPlanTerm_ExhaustedSlot(t *testing.T) {
	group := testGroup(365, 1)
	history := []tempcontract.Occupation{
		occupation("o1", 1, 1, "2023-01-01", "2023-12-31", tempcontract.OccupationEnded),
	}

	_, err := tempcontract.PlanTerm(group, 1, history,
		generic.MustParseDate("2024-01-01"), generic.MustParseDate("2024-02-01"))
	require.Error(t, err)
	assert.ErrorIs(t, err, generic.ErrSlotExhausted)
	var ex *tempcontract.ExhaustedSlotError
	require.ErrorAs(t, err, &ex)
	assert.Equal(t, 365, ex.Consumed)
}

func TestPlanTerm_ReversedPeriod(t *testing.T) {
	_, err := tempcontract.PlanTerm(testGroup(365, 1), 1, nil,
		generic.MustParseDate("2024-02-01"), generic.MustParseDate("2024-01-01"))
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)
}

// =============================================================================
// EXTEND AND END
// =============================================================================

func activeWithProjection() tempcontract.Occupation {
	o := occupation("o1", 1, 1, "2024-01-01", "2024-06-30", tempcontract.OccupationActive)
	o.ProjectedFinalDate = generic.ParseDate("2024-12-31")
	o.ExtensionRequired = true
	return o
}

func TestExtend_RecomputesFlag(t *testing.T) {
	// GIVEN: An active occupation ending before its projected final date
	// WHEN: Extending to the projected final date
	// THEN: No further extension is required and the amendment is attached

	o, err := tempcontract.Extend(activeWithProjection(), generic.MustParseDate("2024-12-31"), "TA-01/2024")
	require.NoError(t, err)

	assert.False(t, o.ExtensionRequired)
	assert.Equal(t, "2024-12-31", o.EndDate.ISO())
	assert.Equal(t, "TA-01/2024", o.AmendmentRef)

	o, err = tempcontract.Extend(activeWithProjection(), generic.MustParseDate("2024-09-30"), "TA-02/2024")
	require.NoError(t, err)
	assert.True(t, o.ExtensionRequired)
}

func TestExtend_PastCeilingRejected(t *testing.T) {
	_, err := tempcontract.Extend(activeWithProjection(), generic.MustParseDate("2025-01-01"), "TA-03/2024")

	require.Error(t, err)
	assert.ErrorIs(t, err, generic.ErrExceedsCeiling)
	var ce *tempcontract.CeilingExceededError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "2024-12-31", ce.LastLegalAt.String())
}

func TestExtend_EndedOccupationRejected(t *testing.T) {
	o := activeWithProjection()
	o.Status = tempcontract.OccupationEnded

	_, err := tempcontract.Extend(o, generic.MustParseDate("2024-09-30"), "TA-04/2024")
	assert.ErrorIs(t, err, generic.ErrInvalidTransition)
}

func TestExtend_MissingProjectionRejected(t *testing.T) {
	// GIVEN: An active occupation whose projected final date was never stored
	o := activeWithProjection()
	o.ProjectedFinalDate = generic.Date{}

	// WHEN: Extending it far into the future
	_, err := tempcontract.Extend(o, generic.MustParseDate("2030-01-01"), "TA-05/2024")

	// THEN: The ceiling cannot be checked, so the record needs correction
	assert.ErrorIs(t, err, generic.ErrDataConsistency)
	var mp *tempcontract.MissingProjectionError
	assert.ErrorAs(t, err, &mp)
}

func TestReproject(t *testing.T) {
	// GIVEN: Ceiling 730, a first occupant that consumed 366 days, and a
	// second occupant with no stored projection followed by a third
	group := testGroup(730, 1)
	second := occupation("o2", 1, 2, "2023-06-01", "2023-12-31", tempcontract.OccupationActive)
	history := []tempcontract.Occupation{
		occupation("o1", 1, 1, "2022-01-01", "2023-01-01", tempcontract.OccupationEnded),
		second,
		occupation("o3", 1, 3, "2024-06-01", "2024-06-30", tempcontract.OccupationEnded),
	}

	// WHEN: Recomputing the second occupant's projection
	got, err := tempcontract.Reproject(group, history, second)

	// THEN: Only the earlier occupant counts against the ceiling
	require.NoError(t, err)
	assert.Equal(t, "2024-05-29", got.ProjectedFinalDate.ISO())

	second.StartDate = generic.ParseDate("??/??/2023")
	_, err = tempcontract.Reproject(group, history, second)
	assert.ErrorIs(t, err, generic.ErrValidation)
}

func TestEnd(t *testing.T) {
	ended, err := tempcontract.End(activeWithProjection(), generic.MustParseDate("2024-05-15"))
	require.NoError(t, err)

	assert.Equal(t, tempcontract.OccupationEnded, ended.Status)
	assert.Equal(t, "2024-05-15", ended.EndDate.ISO())
	assert.False(t, ended.ExtensionRequired)

	_, err = tempcontract.End(ended, generic.MustParseDate("2024-05-20"))
	assert.ErrorIs(t, err, generic.ErrInvalidTransition)

	_, err = tempcontract.End(activeWithProjection(), generic.MustParseDate("2023-12-31"))
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)
}
