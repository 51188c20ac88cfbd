// Package storetest holds the behavioral suite every store.Backend must pass.
package storetest

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/slot-engine/generic"
	"github.com/warp/slot-engine/store"
	"github.com/warp/slot-engine/tempcontract"
	"github.com/warp/slot-engine/waitlist"
)

// Run exercises a backend created fresh for each subtest by newStore.
func Run(t *testing.T, newStore func(t *testing.T) store.Backend) {
	t.Run("LegalRulesUpsert", func(t *testing.T) { testLegalRules(t, newStore(t)) })
	t.Run("VacancyGroups", func(t *testing.T) { testVacancyGroups(t, newStore(t)) })
	t.Run("OneActiveOccupationPerSlot", func(t *testing.T) { testOneActive(t, newStore(t)) })
	t.Run("OccupationVersionCAS", func(t *testing.T) { testOccupationCAS(t, newStore(t)) })
	t.Run("UnknownDatesRoundTrip", func(t *testing.T) { testUnknownDates(t, newStore(t)) })
	t.Run("CandidatesAndNotices", func(t *testing.T) { testCandidates(t, newStore(t)) })
	t.Run("WithTxRollsBack", func(t *testing.T) { testRollback(t, newStore(t)) })
	t.Run("ConcurrentHiresOneWins", func(t *testing.T) { testConcurrentHires(t, newStore(t)) })
	t.Run("Reset", func(t *testing.T) { testReset(t, newStore(t)) })
}

// =============================================================================
// FIXTURES
// =============================================================================

func group(id string, listID string) tempcontract.VacancyGroup {
	return tempcontract.VacancyGroup{
		ID:            generic.VacancyGroupID(id),
		Code:          "CODE-" + id,
		LegalBasis:    "substitute-teacher",
		MaxTermDays:   730,
		SlotCount:     2,
		WaitingListID: generic.WaitingListID(listID),
	}
}

func occupation(id string, slot, seq int, status tempcontract.OccupationStatus) tempcontract.Occupation {
	return tempcontract.Occupation{
		ID:                 generic.OccupationID(id),
		VacancyGroupID:     "vg-1",
		SlotIndex:          slot,
		SequenceOrder:      seq,
		PersonID:           "p-" + generic.CandidateID(id),
		PersonName:         "Person " + id,
		StartDate:          generic.ParseDate("2024-01-01"),
		EndDate:            generic.ParseDate("2024-06-30"),
		ProjectedFinalDate: generic.ParseDate("2025-12-30"),
		Status:             status,
		QuotaCategory:      tempcontract.QuotaDisability,
		ExtensionRequired:  true,
		Version:            1,
	}
}

func candidate(id string, rank int) waitlist.Candidate {
	return waitlist.Candidate{
		ID:            generic.CandidateID(id),
		WaitingListID: "wl-1",
		CPF:           waitlist.MaskCPF("12345678909"),
		Name:          "Candidate " + id,
		QuotaCategory: tempcontract.QuotaGeneral,
		Rank:          rank,
		Status:        waitlist.StatusEligible,
		Version:       1,
	}
}

// =============================================================================
// CASES
// =============================================================================

func testLegalRules(t *testing.T, s store.Backend) {
	ctx := context.Background()
	require.NoError(t, s.SaveLegalRules(ctx, tempcontract.DefaultLegalTermRules()))

	changed := tempcontract.LegalTermRule{ID: "calamity", Label: "Calamity", MaxDays: 200, LawReference: "Lei local"}
	require.NoError(t, s.SaveLegalRules(ctx, []tempcontract.LegalTermRule{changed}))

	rules, err := s.ListLegalRules(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, len(tempcontract.DefaultLegalTermRules()))
	idx := tempcontract.IndexRules(rules)
	assert.Equal(t, 200, idx["calamity"].MaxDays)
}

func testVacancyGroups(t *testing.T, s store.Backend) {
	ctx := context.Background()
	require.NoError(t, s.CreateVacancyGroup(ctx, group("vg-2", "wl-1")))
	require.NoError(t, s.CreateVacancyGroup(ctx, group("vg-1", "wl-1")))
	require.NoError(t, s.CreateVacancyGroup(ctx, group("vg-3", "wl-2")))

	err := s.CreateVacancyGroup(ctx, group("vg-1", "wl-1"))
	assert.ErrorIs(t, err, generic.ErrAlreadyExists)

	g, err := s.GetVacancyGroup(ctx, "vg-1")
	require.NoError(t, err)
	assert.Equal(t, group("vg-1", "wl-1"), g)

	_, err = s.GetVacancyGroup(ctx, "missing")
	assert.True(t, generic.IsNotFound(err))

	groups, err := s.ListVacancyGroups(ctx, "wl-1")
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, generic.VacancyGroupID("vg-1"), groups[0].ID)

	all, err := s.ListVacancyGroups(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func testOneActive(t *testing.T, s store.Backend) {
	// GIVEN: Slot 1 holds an active occupation
	// WHEN: A second active occupation is created on the same slot
	// THEN: The store refuses with ErrSlotOccupied; other slots are unaffected

	ctx := context.Background()
	require.NoError(t, s.CreateVacancyGroup(ctx, group("vg-1", "wl-1")))
	require.NoError(t, s.CreateOccupation(ctx, occupation("o1", 1, 1, tempcontract.OccupationActive)))

	err := s.CreateOccupation(ctx, occupation("o2", 1, 2, tempcontract.OccupationActive))
	assert.ErrorIs(t, err, generic.ErrSlotOccupied)

	require.NoError(t, s.CreateOccupation(ctx, occupation("o3", 2, 1, tempcontract.OccupationActive)))

	err = s.CreateOccupation(ctx, occupation("o4", 2, 1, tempcontract.OccupationEnded))
	assert.ErrorIs(t, err, generic.ErrConcurrentModification, "sequence order reused")

	err = s.CreateOccupation(ctx, occupation("o1", 2, 5, tempcontract.OccupationEnded))
	assert.ErrorIs(t, err, generic.ErrAlreadyExists)

	occs, err := s.ListOccupations(ctx, "vg-1")
	require.NoError(t, err)
	assert.Len(t, occs, 2)
}

func testOccupationCAS(t *testing.T, s store.Backend) {
	// GIVEN: Two writers read the same occupation at version 1
	// WHEN: Both try to update it
	// THEN: The first wins, the second gets ErrConcurrentModification

	ctx := context.Background()
	require.NoError(t, s.CreateVacancyGroup(ctx, group("vg-1", "wl-1")))
	o := occupation("o1", 1, 1, tempcontract.OccupationActive)
	require.NoError(t, s.CreateOccupation(ctx, o))

	first, second := o, o
	first.AmendmentRef = "TA-1"
	second.AmendmentRef = "TA-2"

	require.NoError(t, s.UpdateOccupation(ctx, first))
	err := s.UpdateOccupation(ctx, second)
	assert.ErrorIs(t, err, generic.ErrConcurrentModification)

	stored, err := s.GetOccupation(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, "TA-1", stored.AmendmentRef)
	assert.Equal(t, 2, stored.Version)

	ghost := o
	ghost.ID = "missing"
	assert.True(t, generic.IsNotFound(s.UpdateOccupation(ctx, ghost)))
}

func testUnknownDates(t *testing.T, s store.Backend) {
	ctx := context.Background()
	require.NoError(t, s.CreateVacancyGroup(ctx, group("vg-1", "wl-1")))

	o := occupation("o1", 1, 1, tempcontract.OccupationEnded)
	o.EndDate = generic.ParseDate("06/2024")
	require.NoError(t, s.CreateOccupation(ctx, o))

	stored, err := s.GetOccupation(ctx, "o1")
	require.NoError(t, err)
	assert.False(t, stored.EndDate.Valid)
	assert.Equal(t, "06/2024", stored.EndDate.Display())
	assert.Equal(t, "2024-01-01", stored.StartDate.ISO())
	assert.Equal(t, tempcontract.QuotaDisability, stored.QuotaCategory)
	assert.True(t, stored.ExtensionRequired)
}

func testCandidates(t *testing.T, s store.Backend) {
	ctx := context.Background()
	require.NoError(t, s.CreateCandidate(ctx, candidate("c2", 2)))
	require.NoError(t, s.CreateCandidate(ctx, candidate("c1", 1)))
	assert.ErrorIs(t, s.CreateCandidate(ctx, candidate("c1", 5)), generic.ErrAlreadyExists)

	cs, err := s.ListCandidates(ctx, "wl-1")
	require.NoError(t, err)
	require.Len(t, cs, 2)
	assert.Equal(t, generic.CandidateID("c1"), cs[0].ID)
	assert.Equal(t, waitlist.MaskedCPF("***.456.789-**"), cs[0].CPF)

	called := cs[0]
	called.Status = waitlist.StatusCalled
	require.NoError(t, s.UpdateCandidate(ctx, called))
	assert.ErrorIs(t, s.UpdateCandidate(ctx, called), generic.ErrConcurrentModification)

	n := waitlist.CallNotice{
		ID: "n1", WaitingListID: "wl-1", CandidateID: "c1", CPF: called.CPF,
		CandidateName: called.Name, ActReference: "Edital 1/2024",
		IssuedOn:           generic.MustParseDate("2024-11-01"),
		PossessionDeadline: generic.MustParseDate("2024-12-02"),
		ExerciseDeadline:   generic.MustParseDate("2024-12-17"),
		Status:             waitlist.NoticeCalled,
	}
	require.NoError(t, s.CreateNotice(ctx, n))

	n.Status = waitlist.NoticeRevoked
	require.NoError(t, s.UpdateNotice(ctx, n))

	ns, err := s.ListNotices(ctx, "wl-1")
	require.NoError(t, err)
	require.Len(t, ns, 1)
	assert.Equal(t, waitlist.NoticeRevoked, ns[0].Status)
	assert.Equal(t, "2024-12-02", ns[0].PossessionDeadline.String())

	missing := n
	missing.ID = "n9"
	assert.True(t, generic.IsNotFound(s.UpdateNotice(ctx, missing)))
}

func testRollback(t *testing.T, s store.Backend) {
	// GIVEN: A transaction that writes a candidate and then fails
	// WHEN: WithTx returns the error
	// THEN: Nothing from the transaction is visible

	ctx := context.Background()
	err := s.WithTx(ctx, func(tx store.Store) error {
		if err := tx.CreateCandidate(ctx, candidate("c1", 1)); err != nil {
			return err
		}
		got, err := tx.GetCandidate(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, 1, got.Rank)
		return generic.ErrSlotOccupied
	})
	assert.ErrorIs(t, err, generic.ErrSlotOccupied)

	_, err = s.GetCandidate(ctx, "c1")
	assert.True(t, generic.IsNotFound(err))

	require.NoError(t, s.WithTx(ctx, func(tx store.Store) error {
		return tx.CreateCandidate(ctx, candidate("c1", 1))
	}))
	_, err = s.GetCandidate(ctx, "c1")
	assert.NoError(t, err)
}

func testConcurrentHires(t *testing.T, s store.Backend) {
	// GIVEN: A vacant slot
	// WHEN: Several writers create an active occupation on it at once
	// THEN: Exactly one succeeds

	ctx := context.Background()
	require.NoError(t, s.CreateVacancyGroup(ctx, group("vg-1", "wl-1")))

	const writers = 8
	var wg sync.WaitGroup
	results := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			o := occupation("o"+string(rune('a'+i)), 1, 1, tempcontract.OccupationActive)
			results[i] = s.WithTx(ctx, func(tx store.Store) error {
				return tx.CreateOccupation(ctx, o)
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, generic.IsConflict(err), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)
}

func testReset(t *testing.T, s store.Backend) {
	ctx := context.Background()
	require.NoError(t, s.CreateVacancyGroup(ctx, group("vg-1", "wl-1")))
	require.NoError(t, s.CreateOccupation(ctx, occupation("o1", 1, 1, tempcontract.OccupationActive)))
	require.NoError(t, s.CreateCandidate(ctx, candidate("c1", 1)))

	require.NoError(t, s.Reset(ctx))

	groups, err := s.ListVacancyGroups(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, groups)
	occs, err := s.ListOccupations(ctx)
	require.NoError(t, err)
	assert.Empty(t, occs)
}
