package waitlist_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/slot-engine/generic"
	"github.com/warp/slot-engine/tempcontract"
	"github.com/warp/slot-engine/waitlist"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func candidate(id string, rank int, cat tempcontract.QuotaCategory, status waitlist.CandidateStatus) waitlist.Candidate {
	return waitlist.Candidate{
		ID:            generic.CandidateID(id),
		WaitingListID: "wl-1",
		CPF:           waitlist.MaskCPF(fmt.Sprintf("000%06d00", rank)),
		Name:          "Candidate " + id,
		QuotaCategory: cat,
		Rank:          rank,
		Status:        status,
	}
}

func ids(cs []waitlist.Candidate) []generic.CandidateID {
	out := make([]generic.CandidateID, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}

// =============================================================================
// ELIGIBLE POOL
// =============================================================================

func TestEligiblePool_StatusFilterAndOrder(t *testing.T) {
	// GIVEN: Candidates in every status, unsorted
	// WHEN: Building the pool
	// THEN: Only Eligible and Requeued remain, by rank

	cs := []waitlist.Candidate{
		candidate("c5", 5, tempcontract.QuotaGeneral, waitlist.StatusRequeued),
		candidate("c2", 2, tempcontract.QuotaGeneral, waitlist.StatusDeclined),
		candidate("c1", 1, tempcontract.QuotaGeneral, waitlist.StatusEligible),
		candidate("c3", 3, tempcontract.QuotaGeneral, waitlist.StatusHired),
		candidate("c4", 4, tempcontract.QuotaGeneral, waitlist.StatusCalled),
	}

	pool := waitlist.EligiblePool(cs, nil)
	assert.Equal(t, []generic.CandidateID{"c1", "c5"}, ids(pool))
}

func TestEligiblePool_ExcludesActiveNotices(t *testing.T) {
	// GIVEN: An eligible candidate re-registered under a new ID, whose
	//        earlier record holds a Called notice with the same CPF and name
	// WHEN: Building the pool
	// THEN: The duplicate is excluded; revoked notices do not exclude

	dup := candidate("c1", 1, tempcontract.QuotaGeneral, waitlist.StatusEligible)
	other := candidate("c2", 2, tempcontract.QuotaGeneral, waitlist.StatusEligible)
	notices := []waitlist.CallNotice{
		{ID: "n1", WaitingListID: "wl-1", CandidateID: "old-c1", CPF: dup.CPF, CandidateName: "CANDIDATE C1", Status: waitlist.NoticeCalled},
		{ID: "n2", WaitingListID: "wl-1", CandidateID: "c2", Status: waitlist.NoticeRevoked},
		{ID: "n3", WaitingListID: "wl-9", CandidateID: "c2", Status: waitlist.NoticeHired},
	}

	pool := waitlist.EligiblePool([]waitlist.Candidate{dup, other}, notices)
	assert.Equal(t, []generic.CandidateID{"c2"}, ids(pool))
}

func TestEligiblePool_Empty(t *testing.T) {
	assert.Empty(t, waitlist.EligiblePool(nil, nil))
}

func TestNextRank(t *testing.T) {
	assert.Equal(t, 1, waitlist.NextRank(nil))
	cs := []waitlist.Candidate{
		candidate("c1", 4, tempcontract.QuotaGeneral, waitlist.StatusEligible),
		candidate("c2", 9, tempcontract.QuotaGeneral, waitlist.StatusDeclined),
		candidate("c3", 2, tempcontract.QuotaGeneral, waitlist.StatusEligible),
	}
	assert.Equal(t, 10, waitlist.NextRank(cs))
}

// =============================================================================
// TRANSITIONS
// =============================================================================

func TestLifecycle_CallHire(t *testing.T) {
	c := candidate("c1", 1, tempcontract.QuotaGeneral, waitlist.StatusEligible)

	called, err := waitlist.Call(c)
	require.NoError(t, err)
	assert.Equal(t, waitlist.StatusCalled, called.Status)

	hired, err := waitlist.Hire(called)
	require.NoError(t, err)
	assert.Equal(t, waitlist.StatusHired, hired.Status)

	_, err = waitlist.Hire(hired)
	assert.ErrorIs(t, err, generic.ErrInvalidTransition)
	_, err = waitlist.Call(hired)
	assert.ErrorIs(t, err, generic.ErrInvalidTransition)
}

func TestLifecycle_DeclineIsFinal(t *testing.T) {
	called, _ := waitlist.Call(candidate("c1", 1, tempcontract.QuotaGeneral, waitlist.StatusEligible))

	declined, err := waitlist.Decline(called)
	require.NoError(t, err)
	assert.Equal(t, waitlist.StatusDeclined, declined.Status)

	assert.Empty(t, waitlist.EligiblePool([]waitlist.Candidate{declined}, nil))

	var te *waitlist.InvalidTransitionError
	_, err = waitlist.Requeue(declined, 10)
	require.ErrorAs(t, err, &te)
	assert.Equal(t, waitlist.StatusDeclined, te.From)
}

func TestDecline_RequiresCalled(t *testing.T) {
	_, err := waitlist.Decline(candidate("c1", 1, tempcontract.QuotaGeneral, waitlist.StatusEligible))
	assert.ErrorIs(t, err, generic.ErrInvalidTransition)
}

func TestRequeue_BackOfLineKeepsCategory(t *testing.T) {
	// GIVEN: A called PCD candidate with rank 1 in a list whose max rank is 7
	// WHEN: Requeuing at NextRank
	// THEN: Rank becomes 8, category unchanged, candidate matchable again

	list := []waitlist.Candidate{
		candidate("c1", 1, tempcontract.QuotaDisability, waitlist.StatusCalled),
		candidate("c7", 7, tempcontract.QuotaGeneral, waitlist.StatusEligible),
	}

	requeued, err := waitlist.Requeue(list[0], waitlist.NextRank(list))
	require.NoError(t, err)

	assert.Equal(t, waitlist.StatusRequeued, requeued.Status)
	assert.Equal(t, 8, requeued.Rank)
	assert.Equal(t, tempcontract.QuotaDisability, requeued.QuotaCategory)

	pool := waitlist.EligiblePool([]waitlist.Candidate{requeued, list[1]}, nil)
	assert.Equal(t, []generic.CandidateID{"c7", "c1"}, ids(pool))

	_, err = waitlist.Requeue(list[0], 0)
	assert.ErrorIs(t, err, generic.ErrValidation)
}

func TestHire_DirectFromEligibleAndRequeued(t *testing.T) {
	for _, st := range []waitlist.CandidateStatus{waitlist.StatusEligible, waitlist.StatusRequeued} {
		hired, err := waitlist.Hire(candidate("c1", 1, tempcontract.QuotaGeneral, st))
		require.NoError(t, err, st)
		assert.Equal(t, waitlist.StatusHired, hired.Status)
	}
}

func TestParseCandidateStatus(t *testing.T) {
	st, err := waitlist.ParseCandidateStatus(" Requeued ")
	require.NoError(t, err)
	assert.Equal(t, waitlist.StatusRequeued, st)

	_, err = waitlist.ParseCandidateStatus("waiting")
	assert.ErrorIs(t, err, generic.ErrValidation)
}
