/*
handlers.go - HTTP API handlers for the slot engine

PURPOSE:

	Exposes the slot ledger, risk scan and substitution engine via REST.
	Handles HTTP request/response, JSON serialization, and delegates to the
	service layer.

ENDPOINTS:

	Legal rules:
	  GET    /api/legal-rules                          List the term table
	  PUT    /api/legal-rules                          Replace rules by ID

	Vacancy groups:
	  GET    /api/vacancy-groups?waiting_list=         List groups
	  POST   /api/vacancy-groups                       Create group
	  GET    /api/vacancy-groups/{id}                  Get group
	  GET    /api/vacancy-groups/{id}/slots            Slot ledger report
	  POST   /api/vacancy-groups/{id}/slots/{slot}/hire Hire into a slot

	Occupations:
	  POST   /api/occupations/{id}/end                 End the occupation
	  POST   /api/occupations/{id}/extend              Extend by amendment

	Risk:
	  GET    /api/alerts?today=                        Expiry alerts and overdue
	  POST   /api/alerts/scan                          Run the risk scan now

	Waiting lists:
	  GET    /api/waiting-lists/{id}/candidates        Ranked candidates
	  POST   /api/waiting-lists/{id}/candidates        Register candidate
	  GET    /api/waiting-lists/{id}/notices           Call notices
	  GET    /api/waiting-lists/{id}/suggestions       Substitution proposals
	  GET    /api/candidates/{id}                      Get candidate
	  POST   /api/candidates/{id}/call                 Issue a call notice
	  POST   /api/candidates/{id}/decline              Candidate declined
	  POST   /api/candidates/{id}/requeue              Send to end of queue

	Deadlines:
	  GET    /api/deadlines?base=&days=                Weekend-rolled deadline

	Scenarios:
	  GET    /api/scenarios                            List demo scenarios
	  GET    /api/scenarios/current                    Loaded scenario
	  POST   /api/scenarios/load                       Load a demo scenario
	  POST   /api/scenarios/reset                      Clear all data

ERROR HANDLING:

	Errors are returned as JSON with an HTTP status derived from the error
	category (see statusFor):
	- 400: validation, illegal transition, exhausted slot, ceiling
	- 404: record not found
	- 409: occupied slot, concurrent modification, duplicate ID
	- 422: stored data violates an invariant and needs correction
	- 500: internal errors

SECURITY NOTE:

	There is no authentication. Deploy behind the agency gateway.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"github.com/warp/slot-engine/factory"
	"github.com/warp/slot-engine/generic"
	"github.com/warp/slot-engine/logging"
	"github.com/warp/slot-engine/service"
	"github.com/warp/slot-engine/store"
	"github.com/warp/slot-engine/tempcontract"
	"github.com/warp/slot-engine/waitlist"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *service.Service
	Store   store.Backend

	// Rules is the term table restored after a reset.
	Rules []tempcontract.LegalTermRule

	// Scanner backs POST /api/alerts/scan. Optional.
	Scanner *RiskScanScheduler

	mu              sync.RWMutex
	currentScenario string
}

// NewHandler creates a new handler over the given service and backend.
func NewHandler(svc *service.Service, st store.Backend, rules []tempcontract.LegalTermRule) *Handler {
	if len(rules) == 0 {
		rules = tempcontract.DefaultLegalTermRules()
	}
	return &Handler{Service: svc, Store: st, Rules: rules}
}

// =============================================================================
// LEGAL RULES
// =============================================================================

func (h *Handler) ListLegalRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.Service.LegalRules(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to list legal rules", err)
		return
	}
	writeJSON(w, http.StatusOK, toLegalRuleDTOs(rules))
}

// SaveLegalRules replaces rules by ID. The body is the same JSON array the
// rules file holds.
func (h *Handler) SaveLegalRules(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	rules, err := factory.ParseLegalRules(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid legal rules", err)
		return
	}
	if err := h.Service.SaveLegalRules(r.Context(), rules); err != nil {
		writeServiceError(w, "Failed to save legal rules", err)
		return
	}
	writeJSON(w, http.StatusOK, toLegalRuleDTOs(rules))
}

// =============================================================================
// VACANCY GROUP HANDLERS
// =============================================================================

func (h *Handler) ListVacancyGroups(w http.ResponseWriter, r *http.Request) {
	listID := generic.WaitingListID(r.URL.Query().Get("waiting_list"))
	groups, err := h.Service.ListVacancyGroups(r.Context(), listID)
	if err != nil {
		writeServiceError(w, "Failed to list vacancy groups", err)
		return
	}
	writeJSON(w, http.StatusOK, lo.Map(groups, func(g tempcontract.VacancyGroup, _ int) VacancyGroupDTO {
		return toVacancyGroupDTO(g)
	}))
}

func (h *Handler) GetVacancyGroup(w http.ResponseWriter, r *http.Request) {
	g, err := h.Service.GetVacancyGroup(r.Context(), generic.VacancyGroupID(chi.URLParam(r, "id")))
	if err != nil {
		writeServiceError(w, "Failed to get vacancy group", err)
		return
	}
	writeJSON(w, http.StatusOK, toVacancyGroupDTO(g))
}

// CreateVacancyGroup creates a group. The ID is generated when omitted and
// max_term_days is resolved from legal_basis when zero.
func (h *Handler) CreateVacancyGroup(w http.ResponseWriter, r *http.Request) {
	var req CreateVacancyGroupRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	g, err := h.Service.CreateVacancyGroup(r.Context(), tempcontract.VacancyGroup{
		ID:            generic.VacancyGroupID(req.ID),
		Code:          strings.TrimSpace(req.Code),
		LegalBasis:    generic.RuleID(req.LegalBasis),
		MaxTermDays:   req.MaxTermDays,
		SlotCount:     req.SlotCount,
		WaitingListID: generic.WaitingListID(req.WaitingListID),
		Description:   req.Description,
	})
	if err != nil {
		writeServiceError(w, "Failed to create vacancy group", err)
		return
	}
	writeJSON(w, http.StatusCreated, toVacancyGroupDTO(g))
}

// GetSlots returns the ledger of every slot of a group.
func (h *Handler) GetSlots(w http.ResponseWriter, r *http.Request) {
	slots, err := h.Service.SlotReport(r.Context(), generic.VacancyGroupID(chi.URLParam(r, "id")))
	if err != nil {
		writeServiceError(w, "Failed to build slot report", err)
		return
	}
	writeJSON(w, http.StatusOK, lo.Map(slots, func(s tempcontract.SlotStatus, _ int) SlotDTO {
		return toSlotDTO(s)
	}))
}

// =============================================================================
// OCCUPATION HANDLERS
// =============================================================================

// Hire commits a candidate to a slot.
func (h *Handler) Hire(w http.ResponseWriter, r *http.Request) {
	slot, err := strconv.Atoi(chi.URLParam(r, "slot"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid slot index", err)
		return
	}
	var req HireRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	start, err := parseDay("start_date", req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date", err)
		return
	}
	end, err := parseDay("agreed_end_date", req.AgreedEndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid agreed_end_date", err)
		return
	}

	res, err := h.Service.Hire(r.Context(), service.HireRequest{
		VacancyGroupID: generic.VacancyGroupID(chi.URLParam(r, "id")),
		SlotIndex:      slot,
		CandidateID:    generic.CandidateID(req.CandidateID),
		Start:          start,
		AgreedEnd:      end,
	})
	if err != nil {
		writeServiceError(w, "Failed to hire", err)
		return
	}
	writeJSON(w, http.StatusCreated, HireResponse{
		Occupation:         toOccupationDTO(res.Occupation),
		RemainingDays:      res.Plan.RemainingBalance,
		ProjectedFinalDate: pointDTO(res.Plan.ProjectedFinalDate),
		ExtensionRequired:  res.Plan.ExtensionRequired,
	})
}

func (h *Handler) EndOccupation(w http.ResponseWriter, r *http.Request) {
	var req EndOccupationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	end, err := parseDay("end_date", req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date", err)
		return
	}
	o, err := h.Service.EndOccupation(r.Context(), generic.OccupationID(chi.URLParam(r, "id")), end)
	if err != nil {
		writeServiceError(w, "Failed to end occupation", err)
		return
	}
	writeJSON(w, http.StatusOK, toOccupationDTO(o))
}

func (h *Handler) ExtendOccupation(w http.ResponseWriter, r *http.Request) {
	var req ExtendOccupationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	end, err := parseDay("end_date", req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date", err)
		return
	}
	o, err := h.Service.ExtendOccupation(r.Context(), generic.OccupationID(chi.URLParam(r, "id")), end, req.AmendmentRef)
	if err != nil {
		writeServiceError(w, "Failed to extend occupation", err)
		return
	}
	writeJSON(w, http.StatusOK, toOccupationDTO(o))
}

// =============================================================================
// RISK HANDLERS
// =============================================================================

// GetAlerts classifies active occupations against ?today= (default: the
// service clock).
func (h *Handler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	today := h.Service.Today()
	if v := r.URL.Query().Get("today"); v != "" {
		parsed, err := parseDay("today", v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid today", err)
			return
		}
		today = parsed
	}

	alerts, err := h.Service.RiskAlerts(r.Context(), today)
	if err != nil {
		writeServiceError(w, "Failed to scan risks", err)
		return
	}
	overdue, err := h.Service.Overdue(r.Context(), today)
	if err != nil {
		writeServiceError(w, "Failed to list overdue occupations", err)
		return
	}
	writeJSON(w, http.StatusOK, AlertsResponse{
		Today:   pointDTO(today),
		Alerts:  lo.Map(alerts, func(a tempcontract.Alert, _ int) AlertDTO { return toAlertDTO(a) }),
		Overdue: toOccupationDTOs(overdue),
	})
}

// TriggerScan runs the risk scan outside its schedule.
func (h *Handler) TriggerScan(w http.ResponseWriter, r *http.Request) {
	if h.Scanner == nil {
		writeError(w, http.StatusServiceUnavailable, "Risk scanner not configured", nil)
		return
	}
	alerts, err := h.Scanner.RunOnce(r.Context())
	if err != nil {
		writeServiceError(w, "Risk scan failed", err)
		return
	}
	writeJSON(w, http.StatusOK, ScanResponse{Alerts: len(alerts)})
}

// =============================================================================
// WAITING LIST HANDLERS
// =============================================================================

func (h *Handler) ListCandidates(w http.ResponseWriter, r *http.Request) {
	candidates, err := h.Service.ListCandidates(r.Context(), generic.WaitingListID(chi.URLParam(r, "id")))
	if err != nil {
		writeServiceError(w, "Failed to list candidates", err)
		return
	}
	writeJSON(w, http.StatusOK, lo.Map(candidates, func(c waitlist.Candidate, _ int) CandidateDTO {
		return toCandidateDTO(c)
	}))
}

// RegisterCandidate appends a candidate. A zero rank takes the next free
// rank; the CPF is masked before anything is stored.
func (h *Handler) RegisterCandidate(w http.ResponseWriter, r *http.Request) {
	var req RegisterCandidateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	c, err := h.Service.RegisterCandidate(r.Context(), waitlist.CandidateInput{
		ID:            generic.CandidateID(req.ID),
		WaitingListID: generic.WaitingListID(chi.URLParam(r, "id")),
		CPF:           req.CPF,
		Name:          req.Name,
		QuotaCategory: req.QuotaCategory,
		Rank:          req.Rank,
	})
	if err != nil {
		writeServiceError(w, "Failed to register candidate", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCandidateDTO(c))
}

func (h *Handler) GetCandidate(w http.ResponseWriter, r *http.Request) {
	c, err := h.Service.GetCandidate(r.Context(), generic.CandidateID(chi.URLParam(r, "id")))
	if err != nil {
		writeServiceError(w, "Failed to get candidate", err)
		return
	}
	writeJSON(w, http.StatusOK, toCandidateDTO(c))
}

func (h *Handler) ListNotices(w http.ResponseWriter, r *http.Request) {
	notices, err := h.Service.ListNotices(r.Context(), generic.WaitingListID(chi.URLParam(r, "id")))
	if err != nil {
		writeServiceError(w, "Failed to list notices", err)
		return
	}
	writeJSON(w, http.StatusOK, lo.Map(notices, func(n waitlist.CallNotice, _ int) NoticeDTO {
		return toNoticeDTO(n)
	}))
}

// GetSuggestions proposes candidates for the vacant slots of a list.
func (h *Handler) GetSuggestions(w http.ResponseWriter, r *http.Request) {
	listID := generic.WaitingListID(chi.URLParam(r, "id"))
	res, err := h.Service.Suggest(r.Context(), listID)
	if err != nil {
		writeServiceError(w, "Failed to compute suggestions", err)
		return
	}
	writeJSON(w, http.StatusOK, toSuggestionsResponse(listID, res))
}

// CallCandidate issues a call notice. issued_on defaults to today.
func (h *Handler) CallCandidate(w http.ResponseWriter, r *http.Request) {
	var req CallCandidateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	issuedOn := h.Service.Today()
	if req.IssuedOn != "" {
		parsed, err := parseDay("issued_on", req.IssuedOn)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid issued_on", err)
			return
		}
		issuedOn = parsed
	}
	n, err := h.Service.CallCandidate(r.Context(), generic.CandidateID(chi.URLParam(r, "id")), req.ActReference, issuedOn)
	if err != nil {
		writeServiceError(w, "Failed to call candidate", err)
		return
	}
	writeJSON(w, http.StatusCreated, toNoticeDTO(n))
}

func (h *Handler) DeclineCandidate(w http.ResponseWriter, r *http.Request) {
	c, err := h.Service.DeclineCandidate(r.Context(), generic.CandidateID(chi.URLParam(r, "id")))
	if err != nil {
		writeServiceError(w, "Failed to decline candidate", err)
		return
	}
	writeJSON(w, http.StatusOK, toCandidateDTO(c))
}

func (h *Handler) RequeueCandidate(w http.ResponseWriter, r *http.Request) {
	c, err := h.Service.RequeueCandidate(r.Context(), generic.CandidateID(chi.URLParam(r, "id")))
	if err != nil {
		writeServiceError(w, "Failed to requeue candidate", err)
		return
	}
	writeJSON(w, http.StatusOK, toCandidateDTO(c))
}

// =============================================================================
// DEADLINES
// =============================================================================

// GetDeadline returns base+days rolled past weekends.
func (h *Handler) GetDeadline(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	base, err := parseDay("base", q.Get("base"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid base", err)
		return
	}
	days, err := strconv.Atoi(q.Get("days"))
	if err != nil || days < 0 {
		writeError(w, http.StatusBadRequest, "Invalid days", &generic.ValidationError{Field: "days", Message: "must be a non-negative integer"})
		return
	}
	writeJSON(w, http.StatusOK, DeadlineResponse{
		Base:     pointDTO(base),
		Days:     days,
		Deadline: pointDTO(h.Service.ProjectDeadline(base, days)),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithField(logging.ErrorTypeField, logging.ErrorTypeHTTP).WithError(err).Warn("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeServiceError maps an error category to its HTTP status. Lost
// optimistic-lock races are flagged retryable.
func writeServiceError(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.WithField(logging.ErrorTypeField, logging.ErrorTypeHTTP).WithError(err).Error(message)
	}
	resp := ErrorResponse{Error: message, Retryable: generic.IsRetryable(err)}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func statusFor(err error) int {
	switch {
	case generic.IsDataConsistency(err):
		return http.StatusUnprocessableEntity
	case generic.IsNotFound(err):
		return http.StatusNotFound
	case generic.IsConflict(err):
		return http.StatusConflict
	case generic.IsClientError(err):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// decodeAndValidate decodes the body into req and runs its validate tags.
// It writes the 400 itself and reports whether the handler may continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := factory.ValidateStruct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

// parseDay accepts yyyy-mm-dd or dd/mm/yyyy. Request dates must be known.
func parseDay(field, value string) (generic.TimePoint, error) {
	d := generic.ParseDate(value)
	if !d.Valid {
		return generic.TimePoint{}, &generic.ValidationError{Field: field, Message: fmt.Sprintf("unrecognized date %q", value)}
	}
	return d.Point, nil
}
