// Package tempcontract implements slot occupancy and legal-term tracking for
// temporary-employment contracts. It uses the generic engine for calendar
// arithmetic and ceiling balances.
package tempcontract

import (
	"fmt"
	"strings"

	"github.com/warp/slot-engine/generic"
)

// =============================================================================
// QUOTA CATEGORY
// =============================================================================

// QuotaCategory is the competition pool a candidate or a slot reservation
// belongs to.
type QuotaCategory string

const (
	QuotaGeneral    QuotaCategory = "AC"  // ampla concorrência, the default
	QuotaDisability QuotaCategory = "PCD" // persons with disability
	QuotaRacial     QuotaCategory = "PPP" // black and brown candidates
	QuotaIndigenous QuotaCategory = "IND" // indigenous candidates
)

// QuotaCategories lists every category in display order.
var QuotaCategories = []QuotaCategory{QuotaGeneral, QuotaDisability, QuotaRacial, QuotaIndigenous}

// ParseQuotaCategory accepts a category code case-insensitively. An empty
// string maps to QuotaGeneral.
func ParseQuotaCategory(s string) (QuotaCategory, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(QuotaGeneral):
		return QuotaGeneral, nil
	case string(QuotaDisability):
		return QuotaDisability, nil
	case string(QuotaRacial):
		return QuotaRacial, nil
	case string(QuotaIndigenous):
		return QuotaIndigenous, nil
	}
	return "", &generic.ValidationError{Field: "quota_category", Message: fmt.Sprintf("unknown category %q", s)}
}

func (q QuotaCategory) String() string { return string(q) }

// =============================================================================
// LEGAL TERM RULE
// =============================================================================

// LegalTermRule is immutable reference data: the statutory maximum term for
// one legal basis of temporary hiring.
type LegalTermRule struct {
	ID               generic.RuleID
	Label            string
	MaxDays          int
	LawReference     string
	ArticleReference string
}

// =============================================================================
// VACANCY GROUP
// =============================================================================

// VacancyGroup is one authorized job posting with SlotCount interchangeable
// positions. MaxTermDays applies to each slot, not to the group.
type VacancyGroup struct {
	ID            generic.VacancyGroupID
	Code          string
	LegalBasis    generic.RuleID
	MaxTermDays   int
	SlotCount     int
	WaitingListID generic.WaitingListID
	Description   string
}

// Validate checks the structural invariants of a group.
func (g VacancyGroup) Validate() error {
	if g.ID == "" {
		return &generic.ValidationError{Field: "id", Message: "required"}
	}
	if g.Code == "" {
		return &generic.ValidationError{Field: "code", Message: "required"}
	}
	if g.MaxTermDays <= 0 {
		return &generic.ValidationError{Field: "max_term_days", Message: "must be positive"}
	}
	if g.SlotCount < 1 {
		return &generic.ValidationError{Field: "slot_count", Message: "must be at least 1"}
	}
	return nil
}

// HasSlot reports whether index is inside 1..SlotCount.
func (g VacancyGroup) HasSlot(index int) bool {
	return index >= 1 && index <= g.SlotCount
}

// =============================================================================
// OCCUPATION
// =============================================================================

type OccupationStatus string

const (
	OccupationActive OccupationStatus = "active"
	OccupationEnded  OccupationStatus = "ended"
)

func ParseOccupationStatus(s string) (OccupationStatus, error) {
	switch OccupationStatus(strings.ToLower(strings.TrimSpace(s))) {
	case OccupationActive:
		return OccupationActive, nil
	case OccupationEnded:
		return OccupationEnded, nil
	}
	return "", &generic.ValidationError{Field: "status", Message: fmt.Sprintf("unknown occupation status %q", s)}
}

// Occupation is one contiguous period during which a person held a slot.
// SequenceOrder is 1 for the first occupant of a slot and strictly
// increases; values are never reused.
type Occupation struct {
	ID                 generic.OccupationID
	VacancyGroupID     generic.VacancyGroupID
	SlotIndex          int
	SequenceOrder      int
	PersonID           generic.CandidateID
	PersonName         string
	StartDate          generic.Date
	EndDate            generic.Date
	ProjectedFinalDate generic.Date
	Status             OccupationStatus
	QuotaCategory      QuotaCategory
	ExtensionRequired  bool
	AmendmentRef       string
	Version            int
}

// Key returns the slot the occupation belongs to.
func (o Occupation) Key() generic.SlotKey {
	return generic.SlotKey{GroupID: o.VacancyGroupID, SlotIndex: o.SlotIndex}
}

func (o Occupation) IsActive() bool { return o.Status == OccupationActive }

// Period returns the declared [StartDate, EndDate]; ok is false when either
// date is unknown.
func (o Occupation) Period() (generic.Period, bool) {
	return generic.NewPeriod(o.StartDate, o.EndDate)
}

// ChargeableDays is the inclusive length of the occupation. Unknown or
// reversed dates contribute 0.
func (o Occupation) ChargeableDays() int {
	p, ok := o.Period()
	if !ok {
		return 0
	}
	return p.Days()
}
