// Package memory provides an in-memory store.Backend for tests and demos.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/slot-engine/generic"
	"github.com/warp/slot-engine/store"
	"github.com/warp/slot-engine/tempcontract"
	"github.com/warp/slot-engine/waitlist"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Memory struct {
	mu    sync.RWMutex
	state *state
}

type state struct {
	rules       map[generic.RuleID]tempcontract.LegalTermRule
	groups      map[generic.VacancyGroupID]tempcontract.VacancyGroup
	occupations map[generic.OccupationID]tempcontract.Occupation
	candidates  map[generic.CandidateID]waitlist.Candidate
	notices     map[generic.NoticeID]waitlist.CallNotice
}

var _ store.Backend = (*Memory)(nil)

func New() *Memory {
	return &Memory{state: newState()}
}

func newState() *state {
	return &state{
		rules:       make(map[generic.RuleID]tempcontract.LegalTermRule),
		groups:      make(map[generic.VacancyGroupID]tempcontract.VacancyGroup),
		occupations: make(map[generic.OccupationID]tempcontract.Occupation),
		candidates:  make(map[generic.CandidateID]waitlist.Candidate),
		notices:     make(map[generic.NoticeID]waitlist.CallNotice),
	}
}

func (m *Memory) read(fn func(*state)) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fn(m.state)
}

func (m *Memory) write(fn func(*state) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.state)
}

func (m *Memory) SaveLegalRules(_ context.Context, rules []tempcontract.LegalTermRule) error {
	return m.write(func(s *state) error { return s.saveLegalRules(rules) })
}

func (m *Memory) ListLegalRules(_ context.Context) (rules []tempcontract.LegalTermRule, err error) {
	m.read(func(s *state) { rules = s.listLegalRules() })
	return rules, nil
}

func (m *Memory) CreateVacancyGroup(_ context.Context, g tempcontract.VacancyGroup) error {
	return m.write(func(s *state) error { return s.createVacancyGroup(g) })
}

func (m *Memory) GetVacancyGroup(_ context.Context, id generic.VacancyGroupID) (g tempcontract.VacancyGroup, err error) {
	m.read(func(s *state) { g, err = s.getVacancyGroup(id) })
	return g, err
}

func (m *Memory) ListVacancyGroups(_ context.Context, listID generic.WaitingListID) (groups []tempcontract.VacancyGroup, err error) {
	m.read(func(s *state) { groups = s.listVacancyGroups(listID) })
	return groups, nil
}

func (m *Memory) CreateOccupation(_ context.Context, o tempcontract.Occupation) error {
	return m.write(func(s *state) error { return s.createOccupation(o) })
}

func (m *Memory) UpdateOccupation(_ context.Context, o tempcontract.Occupation) error {
	return m.write(func(s *state) error { return s.updateOccupation(o) })
}

func (m *Memory) GetOccupation(_ context.Context, id generic.OccupationID) (o tempcontract.Occupation, err error) {
	m.read(func(s *state) { o, err = s.getOccupation(id) })
	return o, err
}

func (m *Memory) ListOccupations(_ context.Context, groupIDs ...generic.VacancyGroupID) (occs []tempcontract.Occupation, err error) {
	m.read(func(s *state) { occs = s.listOccupations(groupIDs) })
	return occs, nil
}

func (m *Memory) CreateCandidate(_ context.Context, c waitlist.Candidate) error {
	return m.write(func(s *state) error { return s.createCandidate(c) })
}

func (m *Memory) UpdateCandidate(_ context.Context, c waitlist.Candidate) error {
	return m.write(func(s *state) error { return s.updateCandidate(c) })
}

func (m *Memory) GetCandidate(_ context.Context, id generic.CandidateID) (c waitlist.Candidate, err error) {
	m.read(func(s *state) { c, err = s.getCandidate(id) })
	return c, err
}

func (m *Memory) ListCandidates(_ context.Context, listID generic.WaitingListID) (cs []waitlist.Candidate, err error) {
	m.read(func(s *state) { cs = s.listCandidates(listID) })
	return cs, nil
}

func (m *Memory) CreateNotice(_ context.Context, n waitlist.CallNotice) error {
	return m.write(func(s *state) error { return s.createNotice(n) })
}

func (m *Memory) UpdateNotice(_ context.Context, n waitlist.CallNotice) error {
	return m.write(func(s *state) error { return s.updateNotice(n) })
}

func (m *Memory) ListNotices(_ context.Context, listID generic.WaitingListID) (ns []waitlist.CallNotice, err error) {
	m.read(func(s *state) { ns = s.listNotices(listID) })
	return ns, nil
}

// Reset clears all data.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = newState()
	return nil
}

func (m *Memory) Close() error { return nil }

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a transaction.
// For the memory store, this is a copy of the state that replaces the
// original only when fn succeeds.
func (m *Memory) WithTx(ctx context.Context, fn func(store.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	draft := m.state.clone()
	if err := fn(&txView{state: draft}); err != nil {
		return err
	}
	m.state = draft
	return nil
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.rules {
		c.rules[k] = v
	}
	for k, v := range s.groups {
		c.groups[k] = v
	}
	for k, v := range s.occupations {
		c.occupations[k] = v
	}
	for k, v := range s.candidates {
		c.candidates[k] = v
	}
	for k, v := range s.notices {
		c.notices[k] = v
	}
	return c
}

// txView operates on a draft state while the parent lock is held.
type txView struct {
	state *state
}

func (tv *txView) SaveLegalRules(_ context.Context, rules []tempcontract.LegalTermRule) error {
	return tv.state.saveLegalRules(rules)
}

func (tv *txView) ListLegalRules(_ context.Context) ([]tempcontract.LegalTermRule, error) {
	return tv.state.listLegalRules(), nil
}

func (tv *txView) CreateVacancyGroup(_ context.Context, g tempcontract.VacancyGroup) error {
	return tv.state.createVacancyGroup(g)
}

func (tv *txView) GetVacancyGroup(_ context.Context, id generic.VacancyGroupID) (tempcontract.VacancyGroup, error) {
	return tv.state.getVacancyGroup(id)
}

func (tv *txView) ListVacancyGroups(_ context.Context, listID generic.WaitingListID) ([]tempcontract.VacancyGroup, error) {
	return tv.state.listVacancyGroups(listID), nil
}

func (tv *txView) CreateOccupation(_ context.Context, o tempcontract.Occupation) error {
	return tv.state.createOccupation(o)
}

func (tv *txView) UpdateOccupation(_ context.Context, o tempcontract.Occupation) error {
	return tv.state.updateOccupation(o)
}

func (tv *txView) GetOccupation(_ context.Context, id generic.OccupationID) (tempcontract.Occupation, error) {
	return tv.state.getOccupation(id)
}

func (tv *txView) ListOccupations(_ context.Context, groupIDs ...generic.VacancyGroupID) ([]tempcontract.Occupation, error) {
	return tv.state.listOccupations(groupIDs), nil
}

func (tv *txView) CreateCandidate(_ context.Context, c waitlist.Candidate) error {
	return tv.state.createCandidate(c)
}

func (tv *txView) UpdateCandidate(_ context.Context, c waitlist.Candidate) error {
	return tv.state.updateCandidate(c)
}

func (tv *txView) GetCandidate(_ context.Context, id generic.CandidateID) (waitlist.Candidate, error) {
	return tv.state.getCandidate(id)
}

func (tv *txView) ListCandidates(_ context.Context, listID generic.WaitingListID) ([]waitlist.Candidate, error) {
	return tv.state.listCandidates(listID), nil
}

func (tv *txView) CreateNotice(_ context.Context, n waitlist.CallNotice) error {
	return tv.state.createNotice(n)
}

func (tv *txView) UpdateNotice(_ context.Context, n waitlist.CallNotice) error {
	return tv.state.updateNotice(n)
}

func (tv *txView) ListNotices(_ context.Context, listID generic.WaitingListID) ([]waitlist.CallNotice, error) {
	return tv.state.listNotices(listID), nil
}

// WithTx on a view joins the enclosing transaction.
func (tv *txView) WithTx(_ context.Context, fn func(store.Store) error) error {
	return fn(tv)
}

// =============================================================================
// STATE OPERATIONS (caller holds the lock)
// =============================================================================

func (s *state) saveLegalRules(rules []tempcontract.LegalTermRule) error {
	for _, r := range rules {
		s.rules[r.ID] = r
	}
	return nil
}

func (s *state) listLegalRules() []tempcontract.LegalTermRule {
	rules := make([]tempcontract.LegalTermRule, 0, len(s.rules))
	for _, r := range s.rules {
		rules = append(rules, r)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })
	return rules
}

func (s *state) createVacancyGroup(g tempcontract.VacancyGroup) error {
	if _, ok := s.groups[g.ID]; ok {
		return generic.ErrAlreadyExists
	}
	s.groups[g.ID] = g
	return nil
}

func (s *state) getVacancyGroup(id generic.VacancyGroupID) (tempcontract.VacancyGroup, error) {
	g, ok := s.groups[id]
	if !ok {
		return tempcontract.VacancyGroup{}, &generic.NotFoundError{Kind: "vacancy group", ID: string(id)}
	}
	return g, nil
}

func (s *state) listVacancyGroups(listID generic.WaitingListID) []tempcontract.VacancyGroup {
	var groups []tempcontract.VacancyGroup
	for _, g := range s.groups {
		if listID == "" || g.WaitingListID == listID {
			groups = append(groups, g)
		}
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Code != groups[j].Code {
			return groups[i].Code < groups[j].Code
		}
		return groups[i].ID < groups[j].ID
	})
	return groups
}

// activeConflict reports whether another active occupation holds o's slot.
func (s *state) activeConflict(o tempcontract.Occupation) bool {
	if !o.IsActive() {
		return false
	}
	for _, other := range s.occupations {
		if other.ID != o.ID && other.IsActive() && other.Key() == o.Key() {
			return true
		}
	}
	return false
}

func (s *state) createOccupation(o tempcontract.Occupation) error {
	if _, ok := s.occupations[o.ID]; ok {
		return generic.ErrAlreadyExists
	}
	if s.activeConflict(o) {
		return generic.ErrSlotOccupied
	}
	for _, other := range s.occupations {
		if other.Key() == o.Key() && other.SequenceOrder == o.SequenceOrder {
			return generic.ErrConcurrentModification
		}
	}
	s.occupations[o.ID] = o
	return nil
}

func (s *state) updateOccupation(o tempcontract.Occupation) error {
	current, ok := s.occupations[o.ID]
	if !ok {
		return &generic.NotFoundError{Kind: "occupation", ID: string(o.ID)}
	}
	if current.Version != o.Version {
		return generic.ErrConcurrentModification
	}
	if s.activeConflict(o) {
		return generic.ErrSlotOccupied
	}
	o.Version++
	s.occupations[o.ID] = o
	return nil
}

func (s *state) getOccupation(id generic.OccupationID) (tempcontract.Occupation, error) {
	o, ok := s.occupations[id]
	if !ok {
		return tempcontract.Occupation{}, &generic.NotFoundError{Kind: "occupation", ID: string(id)}
	}
	return o, nil
}

func (s *state) listOccupations(groupIDs []generic.VacancyGroupID) []tempcontract.Occupation {
	wanted := make(map[generic.VacancyGroupID]bool, len(groupIDs))
	for _, id := range groupIDs {
		wanted[id] = true
	}
	var occs []tempcontract.Occupation
	for _, o := range s.occupations {
		if len(wanted) == 0 || wanted[o.VacancyGroupID] {
			occs = append(occs, o)
		}
	}
	sort.Slice(occs, func(i, j int) bool {
		if occs[i].VacancyGroupID != occs[j].VacancyGroupID {
			return occs[i].VacancyGroupID < occs[j].VacancyGroupID
		}
		if occs[i].SlotIndex != occs[j].SlotIndex {
			return occs[i].SlotIndex < occs[j].SlotIndex
		}
		return occs[i].SequenceOrder < occs[j].SequenceOrder
	})
	return occs
}

func (s *state) createCandidate(c waitlist.Candidate) error {
	if _, ok := s.candidates[c.ID]; ok {
		return generic.ErrAlreadyExists
	}
	s.candidates[c.ID] = c
	return nil
}

func (s *state) updateCandidate(c waitlist.Candidate) error {
	current, ok := s.candidates[c.ID]
	if !ok {
		return &generic.NotFoundError{Kind: "candidate", ID: string(c.ID)}
	}
	if current.Version != c.Version {
		return generic.ErrConcurrentModification
	}
	c.Version++
	s.candidates[c.ID] = c
	return nil
}

func (s *state) getCandidate(id generic.CandidateID) (waitlist.Candidate, error) {
	c, ok := s.candidates[id]
	if !ok {
		return waitlist.Candidate{}, &generic.NotFoundError{Kind: "candidate", ID: string(id)}
	}
	return c, nil
}

func (s *state) listCandidates(listID generic.WaitingListID) []waitlist.Candidate {
	var cs []waitlist.Candidate
	for _, c := range s.candidates {
		if c.WaitingListID == listID {
			cs = append(cs, c)
		}
	}
	waitlist.SortByRank(cs)
	return cs
}

func (s *state) createNotice(n waitlist.CallNotice) error {
	if _, ok := s.notices[n.ID]; ok {
		return generic.ErrAlreadyExists
	}
	s.notices[n.ID] = n
	return nil
}

func (s *state) updateNotice(n waitlist.CallNotice) error {
	if _, ok := s.notices[n.ID]; !ok {
		return &generic.NotFoundError{Kind: "call notice", ID: string(n.ID)}
	}
	s.notices[n.ID] = n
	return nil
}

func (s *state) listNotices(listID generic.WaitingListID) []waitlist.CallNotice {
	var ns []waitlist.CallNotice
	for _, n := range s.notices {
		if n.WaitingListID == listID {
			ns = append(ns, n)
		}
	}
	sort.Slice(ns, func(i, j int) bool {
		if !ns[i].IssuedOn.Equal(ns[j].IssuedOn) {
			return ns[i].IssuedOn.Before(ns[j].IssuedOn)
		}
		return ns[i].ID < ns[j].ID
	})
	return ns
}
