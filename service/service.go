/*
Package service orchestrates the slot engine over a Store.

PURPOSE:

	The engine packages are pure functions over snapshots. The service
	loads whole-collection snapshots from the store, runs the engine and
	writes results back, one transaction per command. Side effects
	(logging, metrics, notifications) hang off the event bus.

READ PATH:

	SlotReport, RiskAlerts, Suggest: load -> compute -> return.
	Nothing derived is cached except the legal rule table, which is
	immutable reference data.

WRITE PATH:

	Hire, CallCandidate, DeclineCandidate, RequeueCandidate run inside
	Store.WithTx. The store rejects a second active occupation on a slot
	and stale versions, so two operators racing on one slot cannot both
	win; the loser receives generic.ErrSlotOccupied or
	generic.ErrConcurrentModification.

SEE ALSO:
  - store/store.go: persistence contract
  - events/events.go: published topics
  - api/handlers.go: HTTP surface
*/
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	log "github.com/sirupsen/logrus"
	"github.com/warp/slot-engine/events"
	"github.com/warp/slot-engine/generic"
	"github.com/warp/slot-engine/logging"
	"github.com/warp/slot-engine/metrics"
	"github.com/warp/slot-engine/store"
	"github.com/warp/slot-engine/substitution"
	"github.com/warp/slot-engine/tempcontract"
	"github.com/warp/slot-engine/waitlist"
)

// =============================================================================
// SERVICE
// =============================================================================

// Options tune a Service. Zero values take defaults.
type Options struct {
	Thresholds   tempcontract.RiskThresholds
	Deadlines    waitlist.NoticeDeadlines
	Publisher    events.Publisher
	Clock        func() generic.TimePoint
	NewID        func() string
	RuleCacheTTL time.Duration
	// Holidays, when set, extend the weekend roll of ProjectDeadline.
	Holidays generic.HolidayCalendar
}

type Service struct {
	store      store.Store
	rules      *gocache.Cache
	publisher  events.Publisher
	thresholds tempcontract.RiskThresholds
	deadlines  waitlist.NoticeDeadlines
	clock      func() generic.TimePoint
	newID      func() string
	holidays   generic.HolidayCalendar
}

const legalRulesKey = "legal_rules"

func New(st store.Store, opts Options) *Service {
	if opts.Thresholds == (tempcontract.RiskThresholds{}) {
		opts.Thresholds = tempcontract.DefaultRiskThresholds()
	}
	if opts.Deadlines == (waitlist.NoticeDeadlines{}) {
		opts.Deadlines = waitlist.DefaultNoticeDeadlines()
	}
	if opts.Publisher == nil {
		opts.Publisher = events.Discard{}
	}
	if opts.Clock == nil {
		opts.Clock = generic.Today
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.RuleCacheTTL <= 0 {
		opts.RuleCacheTTL = 10 * time.Minute
	}
	return &Service{
		store:      st,
		rules:      gocache.New(opts.RuleCacheTTL, 2*opts.RuleCacheTTL),
		publisher:  opts.Publisher,
		thresholds: opts.Thresholds,
		deadlines:  opts.Deadlines,
		clock:      opts.Clock,
		newID:      opts.NewID,
		holidays:   opts.Holidays,
	}
}

// Today is the service clock.
func (s *Service) Today() generic.TimePoint { return s.clock() }

func (s *Service) Thresholds() tempcontract.RiskThresholds { return s.thresholds }

// =============================================================================
// LEGAL RULES
// =============================================================================

// SaveLegalRules stores rules and drops the cached table.
func (s *Service) SaveLegalRules(ctx context.Context, rules []tempcontract.LegalTermRule) error {
	if err := s.store.SaveLegalRules(ctx, rules); err != nil {
		return fmt.Errorf("save legal rules: %w", err)
	}
	s.rules.Delete(legalRulesKey)
	return nil
}

// LegalRules returns the stored table, or the built-in one when the store
// has none.
func (s *Service) LegalRules(ctx context.Context) ([]tempcontract.LegalTermRule, error) {
	if cached, found := s.rules.Get(legalRulesKey); found {
		return cached.([]tempcontract.LegalTermRule), nil
	}

	rules, err := s.store.ListLegalRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("list legal rules: %w", err)
	}
	if len(rules) == 0 {
		rules = tempcontract.DefaultLegalTermRules()
	}
	s.rules.Set(legalRulesKey, rules, gocache.DefaultExpiration)
	return rules, nil
}

func (s *Service) RuleFor(ctx context.Context, basis generic.RuleID) (tempcontract.LegalTermRule, error) {
	rules, err := s.LegalRules(ctx)
	if err != nil {
		return tempcontract.LegalTermRule{}, err
	}
	return tempcontract.IndexRules(rules).Lookup(basis)
}

// =============================================================================
// VACANCY GROUPS
// =============================================================================

// CreateVacancyGroup assigns an ID when missing and resolves MaxTermDays
// from the legal basis when zero.
func (s *Service) CreateVacancyGroup(ctx context.Context, g tempcontract.VacancyGroup) (tempcontract.VacancyGroup, error) {
	if g.ID == "" {
		g.ID = generic.VacancyGroupID(s.newID())
	}
	rules, err := s.LegalRules(ctx)
	if err != nil {
		return tempcontract.VacancyGroup{}, err
	}
	if g, err = tempcontract.IndexRules(rules).ResolveMaxTerm(g); err != nil {
		return tempcontract.VacancyGroup{}, err
	}
	if err := g.Validate(); err != nil {
		return tempcontract.VacancyGroup{}, err
	}
	if err := s.store.CreateVacancyGroup(ctx, g); err != nil {
		return tempcontract.VacancyGroup{}, err
	}

	log.WithFields(log.Fields{
		"vacancy_group": g.ID,
		"code":          g.Code,
		"max_term_days": g.MaxTermDays,
		"slots":         g.SlotCount,
	}).Info("vacancy group created")
	return g, nil
}

func (s *Service) GetVacancyGroup(ctx context.Context, id generic.VacancyGroupID) (tempcontract.VacancyGroup, error) {
	return s.store.GetVacancyGroup(ctx, id)
}

func (s *Service) ListVacancyGroups(ctx context.Context, listID generic.WaitingListID) ([]tempcontract.VacancyGroup, error) {
	return s.store.ListVacancyGroups(ctx, listID)
}

// =============================================================================
// REPORTS
// =============================================================================

// SlotReport returns the ledger of every slot of a group.
func (s *Service) SlotReport(ctx context.Context, groupID generic.VacancyGroupID) ([]tempcontract.SlotStatus, error) {
	g, err := s.store.GetVacancyGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	occs, err := s.store.ListOccupations(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("list occupations: %w", err)
	}
	slots, err := tempcontract.Slots(g, occs)
	if err != nil {
		s.logInconsistency(err, log.Fields{"vacancy_group": groupID})
		return nil, err
	}
	return slots, nil
}

// RiskAlerts classifies every active occupation against today.
func (s *Service) RiskAlerts(ctx context.Context, today generic.TimePoint) ([]tempcontract.Alert, error) {
	groups, occs, err := s.snapshot(ctx, "")
	if err != nil {
		return nil, err
	}
	return tempcontract.ScanRisks(groups, occs, today, s.thresholds), nil
}

// Overdue lists active occupations whose end date already passed.
func (s *Service) Overdue(ctx context.Context, today generic.TimePoint) ([]tempcontract.Occupation, error) {
	_, occs, err := s.snapshot(ctx, "")
	if err != nil {
		return nil, err
	}
	return tempcontract.Overdue(occs, today), nil
}

// Suggest proposes candidates of one waiting list for its vacant slots.
// Candidates holding an unanswered call notice are skipped.
func (s *Service) Suggest(ctx context.Context, listID generic.WaitingListID) (substitution.Result, error) {
	groups, occs, err := s.snapshot(ctx, listID)
	if err != nil {
		return substitution.Result{}, err
	}
	candidates, err := s.store.ListCandidates(ctx, listID)
	if err != nil {
		return substitution.Result{}, fmt.Errorf("list candidates: %w", err)
	}
	notices, err := s.store.ListNotices(ctx, listID)
	if err != nil {
		return substitution.Result{}, fmt.Errorf("list notices: %w", err)
	}

	res, err := substitution.Match(substitution.Input{
		Groups:      groups,
		Occupations: occs,
		Candidates:  candidates,
		Notices:     notices,
		Pending:     waitlist.Pending(notices),
	})
	if err != nil {
		s.logInconsistency(err, log.Fields{"waiting_list": listID})
		return substitution.Result{}, err
	}

	for _, p := range res.Proposals {
		metrics.SuggestionsCounter.WithLabelValues(fmt.Sprint(p.CategoryMatched)).Inc()
	}
	log.WithFields(log.Fields{
		"waiting_list": listID,
		"proposals":    len(res.Proposals),
		"unmatched":    len(res.Unmatched),
	}).Debug("suggestions computed")
	return res, nil
}

// ProjectDeadline rolls base+days forward past weekends, and past the
// configured holidays when there are any.
func (s *Service) ProjectDeadline(base generic.TimePoint, days int) generic.TimePoint {
	if s.holidays != nil {
		return generic.ProjectDeadlineWithHolidays(base, days, s.holidays, "")
	}
	return generic.ProjectDeadline(base, days)
}

// snapshot loads the groups of a list (all when empty) and their
// occupations.
func (s *Service) snapshot(ctx context.Context, listID generic.WaitingListID) ([]tempcontract.VacancyGroup, []tempcontract.Occupation, error) {
	groups, err := s.store.ListVacancyGroups(ctx, listID)
	if err != nil {
		return nil, nil, fmt.Errorf("list vacancy groups: %w", err)
	}
	if len(groups) == 0 {
		return nil, nil, nil
	}
	ids := make([]generic.VacancyGroupID, len(groups))
	for i, g := range groups {
		ids[i] = g.ID
	}
	occs, err := s.store.ListOccupations(ctx, ids...)
	if err != nil {
		return nil, nil, fmt.Errorf("list occupations: %w", err)
	}
	return groups, occs, nil
}

func (s *Service) logInconsistency(err error, fields log.Fields) {
	if !generic.IsDataConsistency(err) {
		return
	}
	fields[logging.ErrorTypeField] = logging.ErrorTypeData
	log.WithFields(fields).WithError(err).Error("stored data needs manual correction")
}
