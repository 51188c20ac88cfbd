/*
Package generic provides the domain-agnostic building blocks of the slot
engine.

PURPOSE:

	Calendar arithmetic, closed day periods, balances against a fixed
	ceiling and the shared error taxonomy. Nothing here knows about vacancy
	groups, contracts or waiting lists; those live in tempcontract, waitlist
	and substitution.

KEY CONCEPTS:
  - TimePoint / Date: day-granular instants, the latter possibly unknown
  - Period: closed interval of days
  - CeilingBalance: consumed vs. maximum days
  - Sentinel errors shared by all packages

DESIGN PRINCIPLES:
 1. Pure functions: no I/O, no package-level mutable state
 2. Tolerance: malformed dates degrade to "unknown", never panic
 3. Type safety: typed IDs prevent mixing group/candidate identifiers

SEE ALSO:
  - time.go: TimePoint, Date, deadlines
  - period.go: Period
  - balance.go: CeilingBalance
  - errors.go: error taxonomy
*/
package generic

// =============================================================================
// IDENTIFIERS
// =============================================================================

type VacancyGroupID string
type OccupationID string
type CandidateID string
type WaitingListID string
type NoticeID string
type RuleID string

// SlotKey identifies one physical position inside a vacancy group.
type SlotKey struct {
	GroupID   VacancyGroupID
	SlotIndex int
}
