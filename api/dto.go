/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:

	Defines the JSON structures for API communication. These types decouple
	the engine types from the external contract: dates travel as
	yyyy-mm-dd plus a dd/mm/yyyy display form, unknown dates are echoed
	verbatim, CPFs are only ever masked.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:

	Request types carry validate tags checked with factory.ValidateStruct
	before any service call.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/factory.go: LegalRuleJSON, VacancyGroupJSON
*/
package api

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/warp/slot-engine/factory"
	"github.com/warp/slot-engine/generic"
	"github.com/warp/slot-engine/substitution"
	"github.com/warp/slot-engine/tempcontract"
	"github.com/warp/slot-engine/waitlist"
)

// =============================================================================
// VACANCY GROUPS AND SLOTS
// =============================================================================

type VacancyGroupDTO struct {
	ID            string `json:"id"`
	Code          string `json:"code"`
	LegalBasis    string `json:"legal_basis,omitempty"`
	MaxTermDays   int    `json:"max_term_days"`
	SlotCount     int    `json:"slot_count"`
	WaitingListID string `json:"waiting_list_id,omitempty"`
	Description   string `json:"description,omitempty"`
}

// CreateVacancyGroupRequest mirrors factory.VacancyGroupJSON with an
// optional ID.
type CreateVacancyGroupRequest struct {
	ID            string `json:"id"`
	Code          string `json:"code" validate:"required"`
	LegalBasis    string `json:"legal_basis" validate:"required_without=MaxTermDays"`
	MaxTermDays   int    `json:"max_term_days" validate:"gte=0"`
	SlotCount     int    `json:"slot_count" validate:"required,gte=1"`
	WaitingListID string `json:"waiting_list_id"`
	Description   string `json:"description"`
}

type SlotDTO struct {
	SlotIndex        int             `json:"slot_index"`
	MaxTermDays      int             `json:"max_term_days"`
	ConsumedDays     int             `json:"consumed_days"`
	RemainingDays    int             `json:"remaining_days"`
	UsageRatio       decimal.Decimal `json:"usage_ratio"`
	UsagePercent     decimal.Decimal `json:"usage_percent"`
	Vacant           bool            `json:"vacant"`
	Exhausted        bool            `json:"exhausted"`
	RequiredCategory string          `json:"required_category"`
	Active           *OccupationDTO  `json:"active,omitempty"`
	History          []OccupationDTO `json:"history"`
}

type OccupationDTO struct {
	ID                 string  `json:"id"`
	VacancyGroupID     string  `json:"vacancy_group_id"`
	SlotIndex          int     `json:"slot_index"`
	SequenceOrder      int     `json:"sequence_order"`
	PersonID           string  `json:"person_id"`
	PersonName         string  `json:"person_name"`
	StartDate          DateDTO `json:"start_date"`
	EndDate            DateDTO `json:"end_date"`
	ProjectedFinalDate DateDTO `json:"projected_final_date"`
	Status             string  `json:"status"`
	QuotaCategory      string  `json:"quota_category"`
	ChargeableDays     int     `json:"chargeable_days"`
	ExtensionRequired  bool    `json:"extension_required"`
	AmendmentRef       string  `json:"amendment_ref,omitempty"`
	Version            int     `json:"version"`
}

// DateDTO carries a possibly unknown date. Unknown dates keep their raw
// text in Display and leave ISO empty.
type DateDTO struct {
	ISO     string `json:"iso,omitempty"`
	Display string `json:"display"`
	Known   bool   `json:"known"`
}

type HireRequest struct {
	CandidateID   string `json:"candidate_id" validate:"required"`
	StartDate     string `json:"start_date" validate:"required"`
	AgreedEndDate string `json:"agreed_end_date" validate:"required"`
}

type HireResponse struct {
	Occupation         OccupationDTO `json:"occupation"`
	RemainingDays      int           `json:"remaining_days"`
	ProjectedFinalDate DateDTO       `json:"projected_final_date"`
	ExtensionRequired  bool          `json:"extension_required"`
}

type EndOccupationRequest struct {
	EndDate string `json:"end_date" validate:"required"`
}

type ExtendOccupationRequest struct {
	EndDate      string `json:"end_date" validate:"required"`
	AmendmentRef string `json:"amendment_ref" validate:"required"`
}

// =============================================================================
// RISK
// =============================================================================

type AlertDTO struct {
	VacancyGroupID string  `json:"vacancy_group_id"`
	VacancyCode    string  `json:"vacancy_code"`
	SlotIndex      int     `json:"slot_index"`
	OccupationID   string  `json:"occupation_id"`
	PersonName     string  `json:"person_name"`
	EndDate        DateDTO `json:"end_date"`
	Class          string  `json:"class"`
	DaysLeft       int     `json:"days_left"`
}

type AlertsResponse struct {
	Today   DateDTO         `json:"today"`
	Alerts  []AlertDTO      `json:"alerts"`
	Overdue []OccupationDTO `json:"overdue"`
}

// =============================================================================
// WAITING LIST
// =============================================================================

type CandidateDTO struct {
	ID            string `json:"id"`
	WaitingListID string `json:"waiting_list_id"`
	CPF           string `json:"cpf"`
	Name          string `json:"name"`
	QuotaCategory string `json:"quota_category"`
	Rank          int    `json:"rank"`
	Status        string `json:"status"`
	Version       int    `json:"version"`
}

type RegisterCandidateRequest struct {
	ID            string `json:"id"`
	CPF           string `json:"cpf" validate:"required"`
	Name          string `json:"name" validate:"required"`
	QuotaCategory string `json:"quota_category" validate:"omitempty,oneof=AC PCD PPP IND ac pcd ppp ind"`
	Rank          int    `json:"rank" validate:"gte=0"`
}

type CallCandidateRequest struct {
	ActReference string `json:"act_reference" validate:"required"`
	IssuedOn     string `json:"issued_on"`
}

type NoticeDTO struct {
	ID                 string  `json:"id"`
	WaitingListID      string  `json:"waiting_list_id"`
	CandidateID        string  `json:"candidate_id"`
	CPF                string  `json:"cpf"`
	CandidateName      string  `json:"candidate_name"`
	ActReference       string  `json:"act_reference"`
	IssuedOn           DateDTO `json:"issued_on"`
	PossessionDeadline DateDTO `json:"possession_deadline"`
	ExerciseDeadline   DateDTO `json:"exercise_deadline"`
	Status             string  `json:"status"`
}

type ProposalDTO struct {
	VacancyGroupID    string `json:"vacancy_group_id"`
	VacancyCode       string `json:"vacancy_code"`
	SlotIndex         int    `json:"slot_index"`
	RequiredCategory  string `json:"required_category"`
	CandidateID       string `json:"candidate_id"`
	CandidateName     string `json:"candidate_name"`
	CandidateCategory string `json:"candidate_category"`
	ProposedRank      int    `json:"proposed_rank"`
	CategoryMatched   bool   `json:"category_matched"`
}

type UnmatchedSlotDTO struct {
	VacancyGroupID   string `json:"vacancy_group_id"`
	VacancyCode      string `json:"vacancy_code"`
	SlotIndex        int    `json:"slot_index"`
	RequiredCategory string `json:"required_category"`
	RemainingDays    int    `json:"remaining_days"`
}

type SuggestionsResponse struct {
	WaitingListID string             `json:"waiting_list_id"`
	Proposals     []ProposalDTO      `json:"proposals"`
	Unmatched     []UnmatchedSlotDTO `json:"unmatched"`
}

// =============================================================================
// MISC
// =============================================================================

type DeadlineResponse struct {
	Base     DateDTO `json:"base"`
	Days     int     `json:"days"`
	Deadline DateDTO `json:"deadline"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

type ScanResponse struct {
	Alerts int `json:"alerts"`
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error     string `json:"error"`
	Details   string `json:"details,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toDateDTO(d generic.Date) DateDTO {
	if !d.Valid {
		return DateDTO{Display: d.Raw}
	}
	return DateDTO{ISO: d.ISO(), Display: d.Display(), Known: true}
}

func pointDTO(tp generic.TimePoint) DateDTO {
	return toDateDTO(generic.DateOf(tp))
}

func toVacancyGroupDTO(g tempcontract.VacancyGroup) VacancyGroupDTO {
	return VacancyGroupDTO{
		ID:            string(g.ID),
		Code:          g.Code,
		LegalBasis:    string(g.LegalBasis),
		MaxTermDays:   g.MaxTermDays,
		SlotCount:     g.SlotCount,
		WaitingListID: string(g.WaitingListID),
		Description:   g.Description,
	}
}

func toOccupationDTO(o tempcontract.Occupation) OccupationDTO {
	return OccupationDTO{
		ID:                 string(o.ID),
		VacancyGroupID:     string(o.VacancyGroupID),
		SlotIndex:          o.SlotIndex,
		SequenceOrder:      o.SequenceOrder,
		PersonID:           string(o.PersonID),
		PersonName:         o.PersonName,
		StartDate:          toDateDTO(o.StartDate),
		EndDate:            toDateDTO(o.EndDate),
		ProjectedFinalDate: toDateDTO(o.ProjectedFinalDate),
		Status:             string(o.Status),
		QuotaCategory:      string(o.QuotaCategory),
		ChargeableDays:     o.ChargeableDays(),
		ExtensionRequired:  o.ExtensionRequired,
		AmendmentRef:       o.AmendmentRef,
		Version:            o.Version,
	}
}

func toOccupationDTOs(occs []tempcontract.Occupation) []OccupationDTO {
	return lo.Map(occs, func(o tempcontract.Occupation, _ int) OccupationDTO { return toOccupationDTO(o) })
}

func toSlotDTO(s tempcontract.SlotStatus) SlotDTO {
	dto := SlotDTO{
		SlotIndex:        s.SlotIndex,
		MaxTermDays:      s.Group.MaxTermDays,
		ConsumedDays:     s.ConsumedDays,
		RemainingDays:    s.RemainingBalance,
		UsageRatio:       s.UsageRatio,
		UsagePercent:     s.Balance().UsagePercent(),
		Vacant:           s.Vacant,
		Exhausted:        s.Exhausted,
		RequiredCategory: string(s.RequiredCategory),
		History:          toOccupationDTOs(s.History),
	}
	if s.Active != nil {
		active := toOccupationDTO(*s.Active)
		dto.Active = &active
	}
	return dto
}

func toAlertDTO(a tempcontract.Alert) AlertDTO {
	return AlertDTO{
		VacancyGroupID: string(a.Group.ID),
		VacancyCode:    a.Group.Code,
		SlotIndex:      a.Occupation.SlotIndex,
		OccupationID:   string(a.Occupation.ID),
		PersonName:     a.Occupation.PersonName,
		EndDate:        toDateDTO(a.Occupation.EndDate),
		Class:          string(a.Class),
		DaysLeft:       a.DaysLeft,
	}
}

func toCandidateDTO(c waitlist.Candidate) CandidateDTO {
	return CandidateDTO{
		ID:            string(c.ID),
		WaitingListID: string(c.WaitingListID),
		CPF:           string(c.CPF),
		Name:          c.Name,
		QuotaCategory: string(c.QuotaCategory),
		Rank:          c.Rank,
		Status:        string(c.Status),
		Version:       c.Version,
	}
}

func toNoticeDTO(n waitlist.CallNotice) NoticeDTO {
	return NoticeDTO{
		ID:                 string(n.ID),
		WaitingListID:      string(n.WaitingListID),
		CandidateID:        string(n.CandidateID),
		CPF:                string(n.CPF),
		CandidateName:      n.CandidateName,
		ActReference:       n.ActReference,
		IssuedOn:           pointDTO(n.IssuedOn),
		PossessionDeadline: pointDTO(n.PossessionDeadline),
		ExerciseDeadline:   pointDTO(n.ExerciseDeadline),
		Status:             string(n.Status),
	}
}

func toSuggestionsResponse(listID generic.WaitingListID, res substitution.Result) SuggestionsResponse {
	return SuggestionsResponse{
		WaitingListID: string(listID),
		Proposals: lo.Map(res.Proposals, func(p substitution.Proposal, _ int) ProposalDTO {
			return ProposalDTO{
				VacancyGroupID:    string(p.VacancyGroupID),
				VacancyCode:       p.VacancyCode,
				SlotIndex:         p.SlotIndex,
				RequiredCategory:  string(p.RequiredCategory),
				CandidateID:       string(p.CandidateID),
				CandidateName:     p.CandidateName,
				CandidateCategory: string(p.CandidateCategory),
				ProposedRank:      p.ProposedRank,
				CategoryMatched:   p.CategoryMatched,
			}
		}),
		Unmatched: lo.Map(res.Unmatched, func(s tempcontract.SlotStatus, _ int) UnmatchedSlotDTO {
			return UnmatchedSlotDTO{
				VacancyGroupID:   string(s.Group.ID),
				VacancyCode:      s.Group.Code,
				SlotIndex:        s.SlotIndex,
				RequiredCategory: string(s.RequiredCategory),
				RemainingDays:    s.RemainingBalance,
			}
		}),
	}
}

func toLegalRuleDTOs(rules []tempcontract.LegalTermRule) []factory.LegalRuleJSON {
	return lo.Map(rules, func(r tempcontract.LegalTermRule, _ int) factory.LegalRuleJSON {
		return factory.LegalRuleToJSON(r)
	})
}
