/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic data
	for demos. Every scenario goes through the service layer, so the data
	obeys the same ceilings and lifecycle rules as operator input.

AVAILABLE SCENARIOS:

	substitution:   Vacant PCD slot, fresh slots and a called candidate
	exhausted-slot: A slot that used its whole legal term next to an active one
	risk-dashboard: Active contracts at every distance from their end date

HOW SCENARIOS WORK:
 1. Reset the store and restore the legal term table
 2. Create vacancy groups
 3. Register candidates
 4. Replay hires and terminations through the service

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "substitution"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx)
 3. Add case to LoadScenario

NOTE:

	Scenarios reset the store. Only use in development/demo environments.
	Dates relative to today follow the service clock.

SEE ALSO:
  - handlers.go: Handler
  - service/service.go: operations replayed here
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/warp/slot-engine/generic"
	"github.com/warp/slot-engine/service"
	"github.com/warp/slot-engine/tempcontract"
	"github.com/warp/slot-engine/waitlist"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "substitution",
		Name:        "Substitution Round",
		Description: "Teacher slots: one vacated by a PCD hire, two fresh; one candidate already called",
	},
	{
		ID:          "exhausted-slot",
		Name:        "Exhausted Slot",
		Description: "Calamity group whose first slot consumed all 180 days; second slot active",
	},
	{
		ID:          "risk-dashboard",
		Name:        "Risk Dashboard",
		Description: "Health-emergency contracts ending in 5, 30, 31 and 90 days plus an overdue one",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	current := h.currentScenario
	h.mu.RUnlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current, Description: "Currently loaded scenario"})
}

// LoadScenario resets the store and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	ctx := r.Context()

	if err := h.reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	var err error
	switch req.ScenarioID {
	case "substitution":
		err = h.loadSubstitutionScenario(ctx)
	case "exhausted-slot":
		err = h.loadExhaustedSlotScenario(ctx)
	case "risk-dashboard":
		err = h.loadRiskDashboardScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.mu.Lock()
	h.currentScenario = req.ScenarioID
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// reset clears the store and restores the term table, which also drops the
// service's rule cache.
func (h *Handler) reset(ctx context.Context) error {
	if err := h.Store.Reset(ctx); err != nil {
		return err
	}
	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()
	return h.Service.SaveLegalRules(ctx, h.Rules)
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadSubstitutionScenario(ctx context.Context) error {
	const list = generic.WaitingListID("wl-prof")
	if err := h.createGroups(ctx,
		tempcontract.VacancyGroup{ID: "vg-prof", Code: "PROF-001", LegalBasis: "substitute-teacher", SlotCount: 3, WaitingListID: list, Description: "Substitute teachers, elementary"},
		tempcontract.VacancyGroup{ID: "vg-tec", Code: "TEC-001", LegalBasis: "technical-specialist", SlotCount: 1, WaitingListID: list, Description: "IT specialist"},
	); err != nil {
		return err
	}
	if err := h.registerCandidates(ctx, list, []waitlist.CandidateInput{
		{ID: "cand-fabio", CPF: "111.222.333-44", Name: "Fábio Souza", QuotaCategory: "PCD", Rank: 1},
		{ID: "cand-gabriela", CPF: "222.333.444-55", Name: "Gabriela Lima", QuotaCategory: "AC", Rank: 2},
		{ID: "cand-ana", CPF: "333.444.555-66", Name: "Ana Costa", QuotaCategory: "AC", Rank: 3},
		{ID: "cand-bruno", CPF: "444.555.666-77", Name: "Bruno Alves", QuotaCategory: "PCD", Rank: 4},
		{ID: "cand-carla", CPF: "555.666.777-88", Name: "Carla Santos", QuotaCategory: "PPP", Rank: 5},
		{ID: "cand-diego", CPF: "666.777.888-99", Name: "Diego Rocha", QuotaCategory: "AC", Rank: 6},
	}); err != nil {
		return err
	}

	today := h.Service.Today()
	ended := generic.MustParseDate("2023-12-20")
	if err := h.replay(ctx, "vg-prof", 1, "cand-fabio", generic.MustParseDate("2023-02-01"), ended, &ended); err != nil {
		return err
	}
	if err := h.replay(ctx, "vg-prof", 2, "cand-gabriela", today.AddDays(-300), today.AddDays(20), nil); err != nil {
		return err
	}
	_, err := h.Service.CallCandidate(ctx, "cand-ana", "Edital 04/2024", today)
	return err
}

func (h *Handler) loadExhaustedSlotScenario(ctx context.Context) error {
	const list = generic.WaitingListID("wl-cal")
	if err := h.createGroups(ctx,
		tempcontract.VacancyGroup{ID: "vg-cal", Code: "CAL-001", LegalBasis: "calamity", SlotCount: 2, WaitingListID: list, Description: "Flood response field agents"},
	); err != nil {
		return err
	}
	if err := h.registerCandidates(ctx, list, []waitlist.CandidateInput{
		{ID: "cand-helena", CPF: "101.202.303-40", Name: "Helena Prado", QuotaCategory: "AC", Rank: 1},
		{ID: "cand-igor", CPF: "202.303.404-50", Name: "Igor Mendes", QuotaCategory: "AC", Rank: 2},
		{ID: "cand-julia", CPF: "303.404.505-60", Name: "Júlia Ramos", QuotaCategory: "PCD", Rank: 3},
		{ID: "cand-kleber", CPF: "404.505.606-70", Name: "Kléber Dias", QuotaCategory: "AC", Rank: 4},
	}); err != nil {
		return err
	}

	// 91 + 89 days: the first slot reaches the 180-day ceiling.
	firstEnd := generic.MustParseDate("2024-03-31")
	if err := h.replay(ctx, "vg-cal", 1, "cand-helena", generic.MustParseDate("2024-01-01"), firstEnd, &firstEnd); err != nil {
		return err
	}
	secondEnd := generic.MustParseDate("2024-06-28")
	if err := h.replay(ctx, "vg-cal", 1, "cand-igor", generic.MustParseDate("2024-04-01"), secondEnd, &secondEnd); err != nil {
		return err
	}

	today := h.Service.Today()
	return h.replay(ctx, "vg-cal", 2, "cand-julia", today.AddDays(-30), today.AddDays(60), nil)
}

func (h *Handler) loadRiskDashboardScenario(ctx context.Context) error {
	const list = generic.WaitingListID("wl-saude")
	if err := h.createGroups(ctx,
		tempcontract.VacancyGroup{ID: "vg-saude", Code: "SAU-001", LegalBasis: "health-emergency", SlotCount: 6, WaitingListID: list, Description: "Nurses, emergency wards"},
	); err != nil {
		return err
	}

	type contract struct {
		candidate waitlist.CandidateInput
		startAgo  int
		endsIn    int
	}
	contracts := []contract{
		{waitlist.CandidateInput{ID: "cand-lucia", CPF: "010.020.030-40", Name: "Lúcia Nunes", QuotaCategory: "AC", Rank: 1}, 200, 5},
		{waitlist.CandidateInput{ID: "cand-marcos", CPF: "020.030.040-50", Name: "Marcos Pinto", QuotaCategory: "PCD", Rank: 2}, 200, 30},
		{waitlist.CandidateInput{ID: "cand-nadia", CPF: "030.040.050-60", Name: "Nádia Ferreira", QuotaCategory: "AC", Rank: 3}, 200, 31},
		{waitlist.CandidateInput{ID: "cand-otavio", CPF: "040.050.060-70", Name: "Otávio Reis", QuotaCategory: "PPP", Rank: 4}, 200, 90},
		{waitlist.CandidateInput{ID: "cand-paula", CPF: "050.060.070-80", Name: "Paula Vieira", QuotaCategory: "AC", Rank: 5}, 100, -3},
	}

	inputs := make([]waitlist.CandidateInput, len(contracts))
	for i, c := range contracts {
		inputs[i] = c.candidate
	}
	if err := h.registerCandidates(ctx, list, inputs); err != nil {
		return err
	}

	today := h.Service.Today()
	for i, c := range contracts {
		if err := h.replay(ctx, "vg-saude", i+1, c.candidate.ID, today.AddDays(-c.startAgo), today.AddDays(c.endsIn), nil); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) createGroups(ctx context.Context, groups ...tempcontract.VacancyGroup) error {
	for _, g := range groups {
		if _, err := h.Service.CreateVacancyGroup(ctx, g); err != nil {
			return fmt.Errorf("create group %s: %w", g.Code, err)
		}
	}
	return nil
}

func (h *Handler) registerCandidates(ctx context.Context, list generic.WaitingListID, inputs []waitlist.CandidateInput) error {
	for _, in := range inputs {
		in.WaitingListID = list
		if _, err := h.Service.RegisterCandidate(ctx, in); err != nil {
			return fmt.Errorf("register %s: %w", in.ID, err)
		}
	}
	return nil
}

// replay hires a candidate and, when endedOn is set, ends the occupation.
func (h *Handler) replay(ctx context.Context, group generic.VacancyGroupID, slot int, candidate generic.CandidateID, start, agreedEnd generic.TimePoint, endedOn *generic.TimePoint) error {
	res, err := h.Service.Hire(ctx, service.HireRequest{
		VacancyGroupID: group,
		SlotIndex:      slot,
		CandidateID:    candidate,
		Start:          start,
		AgreedEnd:      agreedEnd,
	})
	if err != nil {
		return fmt.Errorf("hire %s into %s#%d: %w", candidate, group, slot, err)
	}
	if endedOn == nil {
		return nil
	}
	if _, err := h.Service.EndOccupation(ctx, res.Occupation.ID, *endedOn); err != nil {
		return fmt.Errorf("end %s: %w", res.Occupation.ID, err)
	}
	return nil
}
