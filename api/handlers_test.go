/*
handlers_test.go - HTTP tests for the API handlers

Tests for:
- Vacancy group creation and validation
- Hiring through the slot endpoint and its error statuses
- End and extend
- Waiting-list lifecycle endpoints
- Deadline projection
- Write throttling
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/slot-engine/generic"
	"github.com/warp/slot-engine/service"
	"github.com/warp/slot-engine/store/sqlite"
	"github.com/warp/slot-engine/tempcontract"
)

var testToday = generic.MustParseDate("2024-11-01")

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	svc := service.New(st, service.Options{Clock: func() generic.TimePoint { return testToday }})
	h := NewHandler(svc, st, nil)
	require.NoError(t, h.reset(context.Background()))
	return h
}

func newTestRouter(t *testing.T) (*Handler, *chi.Mux) {
	t.Helper()
	h := newTestHandler(t)
	return h, NewRouter(h, RouterOptions{})
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// seedSubstituteSlots creates PROF-001 with two slots on wl-1 and registers
// two candidates.
func seedSubstituteSlots(t *testing.T, router http.Handler) {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/api/vacancy-groups", CreateVacancyGroupRequest{
		ID: "vg-1", Code: "PROF-001", LegalBasis: "substitute-teacher", SlotCount: 2, WaitingListID: "wl-1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	for _, c := range []RegisterCandidateRequest{
		{ID: "ana", CPF: "123.456.789-01", Name: "Ana Costa", QuotaCategory: "AC"},
		{ID: "bruno", CPF: "98765432100", Name: "Bruno Alves", QuotaCategory: "PCD"},
	} {
		rec := do(t, router, http.MethodPost, "/api/waiting-lists/wl-1/candidates", c)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
}

// =============================================================================
// VACANCY GROUPS
// =============================================================================

func TestCreateVacancyGroup_ResolvesMaxTerm(t *testing.T) {
	// GIVEN: The default legal term table
	_, router := newTestRouter(t)

	// WHEN: A group is created from its legal basis only
	rec := do(t, router, http.MethodPost, "/api/vacancy-groups", CreateVacancyGroupRequest{
		Code: "PROF-001", LegalBasis: "substitute-teacher", SlotCount: 2,
	})

	// THEN: The ceiling comes from the table and an ID is assigned
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	g := decode[VacancyGroupDTO](t, rec)
	assert.Equal(t, 730, g.MaxTermDays)
	assert.NotEmpty(t, g.ID)

	rec = do(t, router, http.MethodGet, "/api/vacancy-groups/"+g.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateVacancyGroup_Rejections(t *testing.T) {
	_, router := newTestRouter(t)

	tests := []struct {
		name   string
		req    CreateVacancyGroupRequest
		status int
	}{
		{"missing code", CreateVacancyGroupRequest{LegalBasis: "calamity", SlotCount: 1}, http.StatusBadRequest},
		{"no basis and no ceiling", CreateVacancyGroupRequest{Code: "X-1", SlotCount: 1}, http.StatusBadRequest},
		{"zero slots", CreateVacancyGroupRequest{Code: "X-2", LegalBasis: "calamity"}, http.StatusBadRequest},
		{"unknown basis", CreateVacancyGroupRequest{Code: "X-3", LegalBasis: "nope", SlotCount: 1}, http.StatusNotFound},
		{"unknown basis with ceiling", CreateVacancyGroupRequest{Code: "X-4", LegalBasis: "nope", MaxTermDays: 100, SlotCount: 1}, http.StatusNotFound},
		{"ceiling above statute", CreateVacancyGroupRequest{Code: "X-5", LegalBasis: "calamity", MaxTermDays: 181, SlotCount: 1}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/api/vacancy-groups", tt.req)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[ErrorResponse](t, rec).Error)
		})
	}
}

func TestCreateVacancyGroup_DuplicateIDConflicts(t *testing.T) {
	_, router := newTestRouter(t)
	seedSubstituteSlots(t, router)

	rec := do(t, router, http.MethodPost, "/api/vacancy-groups", CreateVacancyGroupRequest{
		ID: "vg-1", Code: "PROF-002", MaxTermDays: 100, SlotCount: 1,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetVacancyGroup_NotFound(t *testing.T) {
	_, router := newTestRouter(t)
	rec := do(t, router, http.MethodGet, "/api/vacancy-groups/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// HIRING
// =============================================================================

func TestHire_ReportsBalanceAndProjection(t *testing.T) {
	// GIVEN: A 730-day slot whose first occupant served 2024-01-01..2024-12-31
	_, router := newTestRouter(t)
	seedSubstituteSlots(t, router)

	rec := do(t, router, http.MethodPost, "/api/vacancy-groups/vg-1/slots/1/hire", HireRequest{
		CandidateID: "ana", StartDate: "2024-01-01", AgreedEndDate: "31/12/2024",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decode[HireResponse](t, rec)
	assert.Equal(t, 730, first.RemainingDays)

	rec = do(t, router, http.MethodPost, "/api/occupations/"+first.Occupation.ID+"/end", EndOccupationRequest{EndDate: "2024-12-31"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "ended", decode[OccupationDTO](t, rec).Status)

	// WHEN: The next candidate is hired from 2025-01-01
	rec = do(t, router, http.MethodPost, "/api/vacancy-groups/vg-1/slots/1/hire", HireRequest{
		CandidateID: "bruno", StartDate: "2025-01-01", AgreedEndDate: "2025-06-30",
	})

	// THEN: 364 days remain and the slot ends by 2025-12-30 at the latest
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	second := decode[HireResponse](t, rec)
	assert.Equal(t, 364, second.RemainingDays)
	assert.Equal(t, "2025-12-30", second.ProjectedFinalDate.ISO)
	assert.Equal(t, "30/12/2025", second.ProjectedFinalDate.Display)
	assert.True(t, second.ExtensionRequired)
	assert.Equal(t, "AC", second.Occupation.QuotaCategory, "slot keeps its reserved category")

	// AND: The slot report shows 366 consumed days
	rec = do(t, router, http.MethodGet, "/api/vacancy-groups/vg-1/slots", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	slots := decode[[]SlotDTO](t, rec)
	require.Len(t, slots, 2)
	assert.Equal(t, 366, slots[0].ConsumedDays)
	assert.Equal(t, 364, slots[0].RemainingDays)
	assert.Equal(t, "50.14", slots[0].UsagePercent.String())
	assert.False(t, slots[0].Vacant)
	assert.Len(t, slots[0].History, 2)
	assert.True(t, slots[1].Vacant)
}

func TestHire_ErrorStatuses(t *testing.T) {
	_, router := newTestRouter(t)
	seedSubstituteSlots(t, router)

	rec := do(t, router, http.MethodPost, "/api/vacancy-groups/vg-1/slots/1/hire", HireRequest{
		CandidateID: "ana", StartDate: "2024-01-01", AgreedEndDate: "2024-06-30",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	tests := []struct {
		name   string
		path   string
		req    HireRequest
		status int
	}{
		{"occupied slot", "/api/vacancy-groups/vg-1/slots/1/hire", HireRequest{CandidateID: "bruno", StartDate: "2024-02-01", AgreedEndDate: "2024-03-01"}, http.StatusConflict},
		{"already hired candidate", "/api/vacancy-groups/vg-1/slots/2/hire", HireRequest{CandidateID: "ana", StartDate: "2024-02-01", AgreedEndDate: "2024-03-01"}, http.StatusBadRequest},
		{"past the ceiling", "/api/vacancy-groups/vg-1/slots/2/hire", HireRequest{CandidateID: "bruno", StartDate: "2024-01-01", AgreedEndDate: "2026-01-01"}, http.StatusBadRequest},
		{"end before start", "/api/vacancy-groups/vg-1/slots/2/hire", HireRequest{CandidateID: "bruno", StartDate: "2024-05-01", AgreedEndDate: "2024-04-01"}, http.StatusBadRequest},
		{"unparsable date", "/api/vacancy-groups/vg-1/slots/2/hire", HireRequest{CandidateID: "bruno", StartDate: "06/2024", AgreedEndDate: "2024-04-01"}, http.StatusBadRequest},
		{"missing candidate", "/api/vacancy-groups/vg-1/slots/2/hire", HireRequest{StartDate: "2024-01-01", AgreedEndDate: "2024-04-01"}, http.StatusBadRequest},
		{"slot out of range", "/api/vacancy-groups/vg-1/slots/3/hire", HireRequest{CandidateID: "bruno", StartDate: "2024-01-01", AgreedEndDate: "2024-04-01"}, http.StatusBadRequest},
		{"unknown candidate", "/api/vacancy-groups/vg-1/slots/2/hire", HireRequest{CandidateID: "nobody", StartDate: "2024-01-01", AgreedEndDate: "2024-04-01"}, http.StatusNotFound},
		{"unknown group", "/api/vacancy-groups/vg-x/slots/1/hire", HireRequest{CandidateID: "bruno", StartDate: "2024-01-01", AgreedEndDate: "2024-04-01"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, tt.path, tt.req)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestExtendOccupation(t *testing.T) {
	// GIVEN: An occupation of a fresh 730-day slot starting 2024-01-01
	_, router := newTestRouter(t)
	seedSubstituteSlots(t, router)
	rec := do(t, router, http.MethodPost, "/api/vacancy-groups/vg-1/slots/1/hire", HireRequest{
		CandidateID: "ana", StartDate: "2024-01-01", AgreedEndDate: "2024-06-30",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	occ := decode[HireResponse](t, rec).Occupation
	assert.Equal(t, "2025-12-30", occ.ProjectedFinalDate.ISO)

	// WHEN: It is extended up to the projected final date
	rec = do(t, router, http.MethodPost, "/api/occupations/"+occ.ID+"/extend", ExtendOccupationRequest{
		EndDate: "2025-12-30", AmendmentRef: "TA-01/2024",
	})

	// THEN: The amendment is recorded and no further extension is needed
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	extended := decode[OccupationDTO](t, rec)
	assert.Equal(t, "2025-12-30", extended.EndDate.ISO)
	assert.Equal(t, "TA-01/2024", extended.AmendmentRef)
	assert.False(t, extended.ExtensionRequired)

	// AND: Going past it is rejected
	rec = do(t, router, http.MethodPost, "/api/occupations/"+occ.ID+"/extend", ExtendOccupationRequest{
		EndDate: "2025-12-31", AmendmentRef: "TA-02/2024",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// AND: A missing amendment reference fails validation
	rec = do(t, router, http.MethodPost, "/api/occupations/"+occ.ID+"/extend", ExtendOccupationRequest{EndDate: "2025-01-01"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Details, "amendment_ref")
}

func TestEndOccupation_Twice(t *testing.T) {
	_, router := newTestRouter(t)
	seedSubstituteSlots(t, router)
	rec := do(t, router, http.MethodPost, "/api/vacancy-groups/vg-1/slots/1/hire", HireRequest{
		CandidateID: "ana", StartDate: "2024-01-01", AgreedEndDate: "2024-06-30",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[HireResponse](t, rec).Occupation.ID

	rec = do(t, router, http.MethodPost, "/api/occupations/"+id+"/end", EndOccupationRequest{EndDate: "2024-03-31"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, router, http.MethodPost, "/api/occupations/"+id+"/end", EndOccupationRequest{EndDate: "2024-04-30"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/occupations/missing/end", EndOccupationRequest{EndDate: "2024-04-30"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// WAITING LIST
// =============================================================================

func TestRegisterCandidate_MasksCPF(t *testing.T) {
	_, router := newTestRouter(t)
	seedSubstituteSlots(t, router)

	rec := do(t, router, http.MethodGet, "/api/waiting-lists/wl-1/candidates", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	candidates := decode[[]CandidateDTO](t, rec)
	require.Len(t, candidates, 2)
	assert.Equal(t, "***.456.789-**", candidates[0].CPF)
	assert.Equal(t, 1, candidates[0].Rank)
	assert.Equal(t, 2, candidates[1].Rank)
	assert.NotContains(t, rec.Body.String(), "12345678901")

	rec = do(t, router, http.MethodPost, "/api/waiting-lists/wl-1/candidates", RegisterCandidateRequest{CPF: "123", Name: "Short CPF"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, router, http.MethodPost, "/api/waiting-lists/wl-1/candidates", RegisterCandidateRequest{CPF: "12345678901", Name: "X", QuotaCategory: "ZZ"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCandidateLifecycle(t *testing.T) {
	// GIVEN: Two candidates and two vacant slots
	_, router := newTestRouter(t)
	seedSubstituteSlots(t, router)

	// WHEN: Ana is called
	rec := do(t, router, http.MethodPost, "/api/candidates/ana/call", CallCandidateRequest{ActReference: "Edital 01/2024"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	notice := decode[NoticeDTO](t, rec)

	// THEN: The notice carries deadlines rolled past the weekend
	assert.Equal(t, "2024-11-01", notice.IssuedOn.ISO)
	assert.Equal(t, "called", notice.Status)
	assert.Equal(t, "***.456.789-**", notice.CPF)

	// AND: Ana is no longer suggested
	rec = do(t, router, http.MethodGet, "/api/waiting-lists/wl-1/suggestions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sugg := decode[SuggestionsResponse](t, rec)
	require.Len(t, sugg.Proposals, 1)
	assert.Equal(t, "bruno", sugg.Proposals[0].CandidateID)
	require.Len(t, sugg.Unmatched, 1)

	// WHEN: Ana declines
	rec = do(t, router, http.MethodPost, "/api/candidates/ana/decline", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "declined", decode[CandidateDTO](t, rec).Status)

	// THEN: Declining again is an illegal transition
	rec = do(t, router, http.MethodPost, "/api/candidates/ana/decline", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// AND: The notice is settled
	rec = do(t, router, http.MethodGet, "/api/waiting-lists/wl-1/notices", nil)
	notices := decode[[]NoticeDTO](t, rec)
	require.Len(t, notices, 1)
	assert.Equal(t, "declined", notices[0].Status)
}

func TestRequeueCandidate_MovesToEnd(t *testing.T) {
	_, router := newTestRouter(t)
	seedSubstituteSlots(t, router)

	rec := do(t, router, http.MethodPost, "/api/candidates/ana/call", CallCandidateRequest{ActReference: "Edital 01/2024", IssuedOn: "2024-10-01"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(t, router, http.MethodPost, "/api/candidates/ana/requeue", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	c := decode[CandidateDTO](t, rec)
	assert.Equal(t, "requeued", c.Status)
	assert.Equal(t, 3, c.Rank)

	rec = do(t, router, http.MethodGet, "/api/candidates/ana", nil)
	assert.Equal(t, 3, decode[CandidateDTO](t, rec).Rank)
	rec = do(t, router, http.MethodPost, "/api/candidates/nobody/requeue", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// LEGAL RULES AND DEADLINES
// =============================================================================

func TestLegalRules_ReplaceByID(t *testing.T) {
	_, router := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/api/legal-rules", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), len(tempcontract.DefaultLegalTermRules()))

	rec = do(t, router, http.MethodPut, "/api/legal-rules", []map[string]any{
		{"id": "calamity", "label": "Calamidade pública", "max_days": 365},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodPost, "/api/vacancy-groups", CreateVacancyGroupRequest{Code: "CAL-9", LegalBasis: "calamity", SlotCount: 1})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 365, decode[VacancyGroupDTO](t, rec).MaxTermDays)

	rec = do(t, router, http.MethodPut, "/api/legal-rules", []map[string]any{{"id": "broken"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetDeadline_RollsPastWeekend(t *testing.T) {
	_, router := newTestRouter(t)

	// 2024-11-01 is a Friday; +1 lands on Saturday.
	rec := do(t, router, http.MethodGet, "/api/deadlines?base=2024-11-01&days=1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "2024-11-04", decode[DeadlineResponse](t, rec).Deadline.ISO)

	rec = do(t, router, http.MethodGet, "/api/deadlines?base=2024-11-01&days=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, router, http.MethodGet, "/api/deadlines?base=garbage&days=1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

func TestRouter_ThrottlesWritesOnly(t *testing.T) {
	h := newTestHandler(t)
	router := NewRouter(h, RouterOptions{RateLimitRPS: 0.001, RateLimitBurst: 1})

	rec := do(t, router, http.MethodPost, "/api/scenarios/reset", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, router, http.MethodPost, "/api/scenarios/reset", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	for i := 0; i < 3; i++ {
		rec = do(t, router, http.MethodGet, "/api/scenarios", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRouter_ServesMetrics(t *testing.T) {
	_, router := newTestRouter(t)
	rec := do(t, router, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWriteServiceError_FlagsRetryableConflicts(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		retryable bool
	}{
		{"lost optimistic lock", fmt.Errorf("update candidate: %w", generic.ErrConcurrentModification), http.StatusConflict, true},
		{"slot occupied", generic.ErrSlotOccupied, http.StatusConflict, false},
		{"not found", &generic.NotFoundError{Kind: "candidate", ID: "x"}, http.StatusNotFound, false},
		{"unexpected", errors.New("disk full"), http.StatusInternalServerError, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(rec, "Failed", tt.err)

			assert.Equal(t, tt.status, rec.Code)
			resp := decode[ErrorResponse](t, rec)
			assert.Equal(t, tt.retryable, resp.Retryable)
			assert.Equal(t, tt.err.Error(), resp.Details)
		})
	}
}
