/*
Package store defines the persistence contract of the slot engine.

PURPOSE:

	The engine packages are pure; the service layer owns the authoritative
	collections and keeps them here. A Store is the system of record and the
	place where concurrent writers are serialized.

WRITE SERIALIZATION:

	Two operators hiring into the same slot at once must not both succeed.
	Implementations enforce:
	- One active occupation per (group, slot): CreateOccupation and
	  UpdateOccupation return generic.ErrSlotOccupied otherwise.
	- Optimistic locking on candidates and occupations: Update* succeeds
	  only when the stored Version equals the given one, then stores
	  Version+1. A mismatch is generic.ErrConcurrentModification.

	A stale read therefore yields a stale but consistent suggestion, never a
	corrupted record.

ATOMIC WRITES:

	WithTx runs fn against a transactional view. Hiring touches an
	occupation, a candidate and its notices; either all change or none do.

IMPLEMENTATIONS:
  - store/sqlite: SQLite via database/sql (production)
  - store/memory: maps behind a mutex (tests, demos)

SEE ALSO:
  - service/service.go: the only consumer
*/
package store

import (
	"context"

	"github.com/warp/slot-engine/generic"
	"github.com/warp/slot-engine/tempcontract"
	"github.com/warp/slot-engine/waitlist"
)

// =============================================================================
// STORE
// =============================================================================

// RuleStore holds the legal term table.
type RuleStore interface {
	// SaveLegalRules inserts or replaces rules by ID.
	SaveLegalRules(ctx context.Context, rules []tempcontract.LegalTermRule) error
	ListLegalRules(ctx context.Context) ([]tempcontract.LegalTermRule, error)
}

// GroupStore holds vacancy groups. Groups are never deleted.
type GroupStore interface {
	CreateVacancyGroup(ctx context.Context, g tempcontract.VacancyGroup) error
	GetVacancyGroup(ctx context.Context, id generic.VacancyGroupID) (tempcontract.VacancyGroup, error)
	// ListVacancyGroups returns the groups of one waiting list, or all
	// groups when listID is empty, ordered by code.
	ListVacancyGroups(ctx context.Context, listID generic.WaitingListID) ([]tempcontract.VacancyGroup, error)
}

// OccupationStore holds slot histories.
type OccupationStore interface {
	CreateOccupation(ctx context.Context, o tempcontract.Occupation) error
	UpdateOccupation(ctx context.Context, o tempcontract.Occupation) error
	GetOccupation(ctx context.Context, id generic.OccupationID) (tempcontract.Occupation, error)
	// ListOccupations returns the occupations of the given groups, or all of
	// them when none are given.
	ListOccupations(ctx context.Context, groupIDs ...generic.VacancyGroupID) ([]tempcontract.Occupation, error)
}

// CandidateStore holds waiting-list candidates.
type CandidateStore interface {
	CreateCandidate(ctx context.Context, c waitlist.Candidate) error
	UpdateCandidate(ctx context.Context, c waitlist.Candidate) error
	GetCandidate(ctx context.Context, id generic.CandidateID) (waitlist.Candidate, error)
	// ListCandidates returns the candidates of one list ordered by rank.
	ListCandidates(ctx context.Context, listID generic.WaitingListID) ([]waitlist.Candidate, error)
}

// NoticeStore holds call notices.
type NoticeStore interface {
	CreateNotice(ctx context.Context, n waitlist.CallNotice) error
	UpdateNotice(ctx context.Context, n waitlist.CallNotice) error
	ListNotices(ctx context.Context, listID generic.WaitingListID) ([]waitlist.CallNotice, error)
}

// Store is the full persistence contract.
type Store interface {
	RuleStore
	GroupStore
	OccupationStore
	CandidateStore
	NoticeStore

	// WithTx executes fn within a transaction.
	// If fn returns error, the transaction is rolled back.
	// If fn returns nil, it is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// Backend is a Store that owns its resources.
type Backend interface {
	Store

	// Reset clears all data (demo scenarios, tests).
	Reset(ctx context.Context) error
	Close() error
}
