/*
queue.go - Ranked waiting-list queue

PURPOSE:

	Orders the candidates of one waiting list and moves them through the
	call cycle. All functions are pure: they take the current records and
	return updated copies for the caller to persist.

LIFECYCLE:

	Eligible -> Called -> Hired
	                   -> Declined             (never matched again this cycle)
	                   -> Requeued(new rank)   (back of the line, matchable)
	Eligible/Requeued -> Hired                 (direct hire without a notice)

	Requeue is the only way back into the pool after a call.

SEE ALSO:
  - substitution/matcher.go: consumes EligiblePool
*/
package waitlist

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
	"github.com/warp/slot-engine/generic"
)

// InvalidTransitionError is returned when an action is not allowed from the
// candidate's current status.
type InvalidTransitionError struct {
	Candidate generic.CandidateID
	From      CandidateStatus
	Action    string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s candidate %s in status %s", e.Action, e.Candidate, e.From)
}

func (e *InvalidTransitionError) Unwrap() error {
	return generic.ErrInvalidTransition
}

// =============================================================================
// POOL
// =============================================================================

// EligiblePool returns the matchable candidates of the list, excluding anyone
// already holding an active notice, ordered by rank. Candidates are assumed
// to belong to one waiting list; notices of other lists are ignored.
func EligiblePool(candidates []Candidate, notices []CallNotice) []Candidate {
	pool := lo.Filter(candidates, func(c Candidate, _ int) bool {
		if !c.Status.Matchable() {
			return false
		}
		return !lo.ContainsBy(ActiveNotices(notices, c.WaitingListID), func(n CallNotice) bool {
			return SameIdentity(c, n)
		})
	})
	SortByRank(pool)
	return pool
}

// SortByRank orders candidates by rank, then ID for equal ranks.
func SortByRank(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Rank != candidates[j].Rank {
			return candidates[i].Rank < candidates[j].Rank
		}
		return candidates[i].ID < candidates[j].ID
	})
}

// NextRank returns one past the highest rank in the list, or 1 when empty.
func NextRank(candidates []Candidate) int {
	if len(candidates) == 0 {
		return 1
	}
	return lo.MaxBy(candidates, func(a, b Candidate) bool { return a.Rank > b.Rank }).Rank + 1
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// Call summons an Eligible or Requeued candidate.
func Call(c Candidate) (Candidate, error) {
	if !c.Status.Matchable() {
		return Candidate{}, &InvalidTransitionError{Candidate: c.ID, From: c.Status, Action: "call"}
	}
	c.Status = StatusCalled
	return c, nil
}

// Hire marks the candidate Hired. Irreversible within the cycle.
func Hire(c Candidate) (Candidate, error) {
	switch c.Status {
	case StatusEligible, StatusCalled, StatusRequeued:
		c.Status = StatusHired
		return c, nil
	case StatusHired, StatusDeclined:
	}
	return Candidate{}, &InvalidTransitionError{Candidate: c.ID, From: c.Status, Action: "hire"}
}

// Decline records that a called candidate refused the position.
func Decline(c Candidate) (Candidate, error) {
	if c.Status != StatusCalled {
		return Candidate{}, &InvalidTransitionError{Candidate: c.ID, From: c.Status, Action: "decline"}
	}
	c.Status = StatusDeclined
	return c, nil
}

// Requeue sends a called candidate to newRank. The quota category is kept.
func Requeue(c Candidate, newRank int) (Candidate, error) {
	if c.Status != StatusCalled {
		return Candidate{}, &InvalidTransitionError{Candidate: c.ID, From: c.Status, Action: "requeue"}
	}
	if newRank < 1 {
		return Candidate{}, &generic.ValidationError{Field: "rank", Message: "must be at least 1"}
	}
	c.Status = StatusRequeued
	c.Rank = newRank
	return c, nil
}
