/*
matcher.go - Quota-aware substitution suggestions

PURPOSE:

	Pairs every vacant, non-exhausted slot of a waiting list's vacancy groups
	with the best queued candidate. The output is a suggestion; committing a
	hire is a separate action (service.Hire).

ALGORITHM:

 1. Enumerate (group, slot); keep vacant slots with remaining balance.

 2. Each slot requires the quota category of its last occupant (AC when
    the slot was never occupied).

 3. Pool = EligiblePool minus pending candidates, by rank.

 4. Walk slots by vacancy code, then slot index. Each slot takes the
    lowest-rank candidate of its category, else the lowest-rank candidate
    overall. A chosen candidate leaves the pool.

 5. When the pool runs dry the remaining slots stay unmatched.

    Greedy first-fit keeps rank priority absolute: a higher-ranked candidate
    of a category is never passed over for a lower-ranked one.

ERRORS:

	Duplicate active occupations abort the run with a data-consistency
	error. An empty pool or no vacancies yields an empty result.
*/
package substitution

import (
	"sort"

	"github.com/samber/lo"
	"github.com/warp/slot-engine/generic"
	"github.com/warp/slot-engine/tempcontract"
	"github.com/warp/slot-engine/waitlist"
)

// Input is a snapshot of one waiting list and its vacancy groups.
type Input struct {
	Groups      []tempcontract.VacancyGroup
	Occupations []tempcontract.Occupation
	Candidates  []waitlist.Candidate
	Notices     []waitlist.CallNotice
	Pending     []generic.CandidateID
}

// Proposal pairs a vacant slot with a candidate.
type Proposal struct {
	VacancyGroupID    generic.VacancyGroupID
	VacancyCode       string
	SlotIndex         int
	RequiredCategory  tempcontract.QuotaCategory
	CandidateID       generic.CandidateID
	CandidateName     string
	CandidateCategory tempcontract.QuotaCategory
	ProposedRank      int
	CategoryMatched   bool
}

// Result carries the proposals and the vacant slots left without one.
type Result struct {
	Proposals []Proposal
	Unmatched []tempcontract.SlotStatus
}

// Suggest returns the proposals of Match.
func Suggest(in Input) ([]Proposal, error) {
	res, err := Match(in)
	if err != nil {
		return nil, err
	}
	return res.Proposals, nil
}

// Match runs the greedy pairing.
func Match(in Input) (Result, error) {
	slots, err := OfferableSlots(in.Groups, in.Occupations)
	if err != nil {
		return Result{}, err
	}
	pool := Pool(in)

	var res Result
	for _, slot := range slots {
		if len(pool) == 0 {
			res.Unmatched = append(res.Unmatched, slot)
			continue
		}
		idx, matched := pick(pool, slot.RequiredCategory)
		chosen := pool[idx]
		pool = append(pool[:idx:idx], pool[idx+1:]...)

		res.Proposals = append(res.Proposals, Proposal{
			VacancyGroupID:    slot.Group.ID,
			VacancyCode:       slot.Group.Code,
			SlotIndex:         slot.SlotIndex,
			RequiredCategory:  slot.RequiredCategory,
			CandidateID:       chosen.ID,
			CandidateName:     chosen.Name,
			CandidateCategory: chosen.QuotaCategory,
			ProposedRank:      chosen.Rank,
			CategoryMatched:   matched,
		})
	}
	return res, nil
}

// pick returns the index of the first pool candidate of category, falling
// back to the head of the pool. The pool is rank-ordered.
func pick(pool []waitlist.Candidate, category tempcontract.QuotaCategory) (int, bool) {
	_, idx, found := lo.FindIndexOf(pool, func(c waitlist.Candidate) bool {
		return c.QuotaCategory == category
	})
	if found {
		return idx, true
	}
	return 0, false
}

// Pool returns the eligible candidates of the snapshot minus pending ones,
// ordered by rank.
func Pool(in Input) []waitlist.Candidate {
	pending := lo.SliceToMap(in.Pending, func(id generic.CandidateID) (generic.CandidateID, struct{}) {
		return id, struct{}{}
	})
	return lo.Filter(waitlist.EligiblePool(in.Candidates, in.Notices), func(c waitlist.Candidate, _ int) bool {
		_, isPending := pending[c.ID]
		return !isPending
	})
}

// OfferableSlots lists the vacant slots with balance left across groups,
// ordered by vacancy code then slot index.
func OfferableSlots(groups []tempcontract.VacancyGroup, occupations []tempcontract.Occupation) ([]tempcontract.SlotStatus, error) {
	ordered := append([]tempcontract.VacancyGroup(nil), groups...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Code != ordered[j].Code {
			return ordered[i].Code < ordered[j].Code
		}
		return ordered[i].ID < ordered[j].ID
	})

	var offerable []tempcontract.SlotStatus
	for _, g := range ordered {
		slots, err := tempcontract.Slots(g, occupations)
		if err != nil {
			return nil, err
		}
		for _, s := range slots {
			if s.Offerable() {
				offerable = append(offerable, s)
			}
		}
	}
	return offerable, nil
}
