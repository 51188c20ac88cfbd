/*
candidate.go - Waiting-list candidates and identity handling

PURPOSE:

	A candidate is one ranked entry of a public selection waiting list. The
	CPF (Brazilian taxpayer number) is masked exactly once, at ingress, by
	NewCandidate. Nothing downstream ever sees or accepts the raw value.

MASKING:

	"123.456.789-09" or "12345678909" -> "***.456.789-**"
	Masking an already masked value returns it unchanged.

IDENTITY:

	Two records refer to the same person when the IDs match, or when the
	masked CPF matches and the names are equal after dropping accents,
	case and repeated spaces. Masked CPFs alone collide too often to be used
	on their own.

SEE ALSO:
  - queue.go: status transitions and the eligible pool
  - notice.go: call notices that exclude candidates from the pool
*/
package waitlist

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/warp/slot-engine/generic"
	"github.com/warp/slot-engine/tempcontract"
)

// =============================================================================
// STATUS
// =============================================================================

type CandidateStatus string

const (
	StatusEligible CandidateStatus = "eligible"
	StatusCalled   CandidateStatus = "called"
	StatusHired    CandidateStatus = "hired"
	StatusDeclined CandidateStatus = "declined"
	StatusRequeued CandidateStatus = "requeued"
)

func ParseCandidateStatus(s string) (CandidateStatus, error) {
	switch st := CandidateStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusEligible, StatusCalled, StatusHired, StatusDeclined, StatusRequeued:
		return st, nil
	}
	return "", &generic.ValidationError{Field: "status", Message: fmt.Sprintf("unknown candidate status %q", s)}
}

// Matchable reports whether the status lets a candidate enter the pool.
// Requeued candidates re-enter at their new rank.
func (s CandidateStatus) Matchable() bool {
	switch s {
	case StatusEligible, StatusRequeued:
		return true
	case StatusCalled, StatusHired, StatusDeclined:
		return false
	}
	return false
}

// =============================================================================
// CPF MASKING
// =============================================================================

// MaskedCPF is a CPF with the first three and last two digits hidden.
type MaskedCPF string

var maskedPattern = regexp.MustCompile(`^\*\*\*\.\d{3}\.\d{3}-\*\*$`)

const fullyMasked MaskedCPF = "***.***.***-**"

// MaskCPF hides all but the middle six digits. It is idempotent. Inputs
// that are not 11 digits are masked entirely.
func MaskCPF(raw string) MaskedCPF {
	trimmed := strings.TrimSpace(raw)
	if maskedPattern.MatchString(trimmed) || MaskedCPF(trimmed) == fullyMasked {
		return MaskedCPF(trimmed)
	}
	digits := onlyDigits(trimmed)
	if len(digits) != 11 {
		return fullyMasked
	}
	return MaskedCPF("***." + digits[3:6] + "." + digits[6:9] + "-**")
}

// Known is false for a fully masked value.
func (m MaskedCPF) Known() bool {
	return m != "" && m != fullyMasked
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// =============================================================================
// CANDIDATE
// =============================================================================

// Candidate is one ranked entry of a waiting list. A lower Rank is a higher
// priority.
type Candidate struct {
	ID            generic.CandidateID
	WaitingListID generic.WaitingListID
	CPF           MaskedCPF
	Name          string
	QuotaCategory tempcontract.QuotaCategory
	Rank          int
	Status        CandidateStatus
	Version       int
}

// CandidateInput is the raw record received at ingress.
type CandidateInput struct {
	ID            generic.CandidateID
	WaitingListID generic.WaitingListID
	CPF           string
	Name          string
	QuotaCategory string
	Rank          int
}

// NewCandidate validates the input and masks its CPF. New candidates start
// Eligible.
func NewCandidate(in CandidateInput) (Candidate, error) {
	if in.ID == "" {
		return Candidate{}, &generic.ValidationError{Field: "id", Message: "required"}
	}
	if in.WaitingListID == "" {
		return Candidate{}, &generic.ValidationError{Field: "waiting_list_id", Message: "required"}
	}
	if strings.TrimSpace(in.Name) == "" {
		return Candidate{}, &generic.ValidationError{Field: "name", Message: "required"}
	}
	if in.Rank < 1 {
		return Candidate{}, &generic.ValidationError{Field: "rank", Message: "must be at least 1"}
	}
	cpf := MaskCPF(in.CPF)
	if !cpf.Known() {
		return Candidate{}, &generic.ValidationError{Field: "cpf", Message: "expected 11 digits"}
	}
	category, err := tempcontract.ParseQuotaCategory(in.QuotaCategory)
	if err != nil {
		return Candidate{}, err
	}
	return Candidate{
		ID:            in.ID,
		WaitingListID: in.WaitingListID,
		CPF:           cpf,
		Name:          strings.TrimSpace(in.Name),
		QuotaCategory: category,
		Rank:          in.Rank,
		Status:        StatusEligible,
	}, nil
}

// =============================================================================
// IDENTITY
// =============================================================================

// NormalizeName folds accents, case and whitespace.
// "  José  da SILVA " -> "jose da silva"
func NormalizeName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// SameIdentity reports whether the notice was issued to the candidate.
func SameIdentity(c Candidate, n CallNotice) bool {
	if n.CandidateID != "" && n.CandidateID == c.ID {
		return true
	}
	if !c.CPF.Known() || c.CPF != n.CPF {
		return false
	}
	return NormalizeName(c.Name) == NormalizeName(n.CandidateName)
}
