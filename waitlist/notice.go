package waitlist

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/warp/slot-engine/generic"
)

// =============================================================================
// NOTICE STATUS
// =============================================================================

type NoticeStatus string

const (
	NoticeCalled   NoticeStatus = "called"
	NoticeHired    NoticeStatus = "hired"
	NoticeDeclined NoticeStatus = "declined"
	NoticeRevoked  NoticeStatus = "revoked"
)

func ParseNoticeStatus(s string) (NoticeStatus, error) {
	switch st := NoticeStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case NoticeCalled, NoticeHired, NoticeDeclined, NoticeRevoked:
		return st, nil
	}
	return "", &generic.ValidationError{Field: "status", Message: fmt.Sprintf("unknown notice status %q", s)}
}

// Active is true for Called and Hired notices; they keep the candidate out
// of the eligible pool.
func (s NoticeStatus) Active() bool {
	switch s {
	case NoticeCalled, NoticeHired:
		return true
	case NoticeDeclined, NoticeRevoked:
		return false
	}
	return false
}

// =============================================================================
// CALL NOTICE
// =============================================================================

// CallNotice is the official act summoning a candidate. The candidate must
// take possession by PossessionDeadline and enter exercise by
// ExerciseDeadline.
type CallNotice struct {
	ID                 generic.NoticeID
	WaitingListID      generic.WaitingListID
	CandidateID        generic.CandidateID
	CPF                MaskedCPF
	CandidateName      string
	ActReference       string
	IssuedOn           generic.TimePoint
	PossessionDeadline generic.TimePoint
	ExerciseDeadline   generic.TimePoint
	Status             NoticeStatus
}

// NoticeDeadlines are the statutory response windows in calendar days.
type NoticeDeadlines struct {
	PossessionDays int
	ExerciseDays   int
}

// DefaultNoticeDeadlines returns 30 days to take possession and 15 more to
// enter exercise.
func DefaultNoticeDeadlines() NoticeDeadlines {
	return NoticeDeadlines{PossessionDays: 30, ExerciseDays: 15}
}

// IssueNotice builds a Called notice for c. Each deadline is rolled past
// weekends; the exercise window counts from the possession deadline.
func IssueNotice(id generic.NoticeID, c Candidate, act string, issuedOn generic.TimePoint, d NoticeDeadlines) (CallNotice, error) {
	if strings.TrimSpace(act) == "" {
		return CallNotice{}, &generic.ValidationError{Field: "act_reference", Message: "required"}
	}
	possession := generic.ProjectDeadline(issuedOn, d.PossessionDays)
	return CallNotice{
		ID:                 id,
		WaitingListID:      c.WaitingListID,
		CandidateID:        c.ID,
		CPF:                c.CPF,
		CandidateName:      c.Name,
		ActReference:       act,
		IssuedOn:           issuedOn,
		PossessionDeadline: possession,
		ExerciseDeadline:   generic.ProjectDeadline(possession, d.ExerciseDays),
		Status:             NoticeCalled,
	}, nil
}

// =============================================================================
// NOTICE QUERIES AND UPDATES
// =============================================================================

// ActiveNotices filters notices of one list that are Called or Hired.
func ActiveNotices(notices []CallNotice, listID generic.WaitingListID) []CallNotice {
	return lo.Filter(notices, func(n CallNotice, _ int) bool {
		return n.WaitingListID == listID && n.Status.Active()
	})
}

// Pending returns the IDs of candidates holding a Called notice: summoned,
// not yet hired or declined.
func Pending(notices []CallNotice) []generic.CandidateID {
	called := lo.Filter(notices, func(n CallNotice, _ int) bool {
		return n.Status == NoticeCalled
	})
	return lo.Uniq(lo.Map(called, func(n CallNotice, _ int) generic.CandidateID {
		return n.CandidateID
	}))
}

// SettleNotices moves every Called notice of the candidate to status and
// returns the updated notices.
func SettleNotices(notices []CallNotice, candidateID generic.CandidateID, status NoticeStatus) []CallNotice {
	var changed []CallNotice
	for _, n := range notices {
		if n.CandidateID != candidateID || n.Status != NoticeCalled {
			continue
		}
		n.Status = status
		changed = append(changed, n)
	}
	return changed
}

// RevokeNotices revokes the candidate's outstanding call acts.
func RevokeNotices(notices []CallNotice, candidateID generic.CandidateID) []CallNotice {
	return SettleNotices(notices, candidateID, NoticeRevoked)
}
