/*
events.go - Domain events published by the service layer

PURPOSE:

	Decouples the write path from its side effects. The service publishes
	on an in-process bus; logging, metrics and future notifiers subscribe
	without the service knowing about them.

TOPICS:

	SlotVacatedTopic     an occupation ended; the slot may be offered again
	CandidateHiredTopic  a candidate took a slot
	RiskAlertTopic       a scheduled scan found an occupation near its end

	Each topic carries exactly one payload argument of the matching struct.
*/
package events

import (
	"github.com/warp/slot-engine/generic"
	"github.com/warp/slot-engine/tempcontract"
)

const (
	SlotVacatedTopic    = "slot:vacated"
	CandidateHiredTopic = "candidate:hired"
	RiskAlertTopic      = "risk:alert"
)

// Publisher is the subset of EventBus.Bus the service needs.
type Publisher interface {
	Publish(topic string, args ...interface{})
}

type SlotVacated struct {
	VacancyGroupID generic.VacancyGroupID
	VacancyCode    string
	SlotIndex      int
	OccupationID   generic.OccupationID
	EndDate        generic.Date
	RemainingDays  int
}

type CandidateHired struct {
	CandidateID    generic.CandidateID
	CandidateName  string
	WaitingListID  generic.WaitingListID
	VacancyGroupID generic.VacancyGroupID
	SlotIndex      int
	OccupationID   generic.OccupationID
	QuotaCategory  tempcontract.QuotaCategory
}

type RiskAlert struct {
	VacancyGroupID generic.VacancyGroupID
	VacancyCode    string
	SlotIndex      int
	OccupationID   generic.OccupationID
	PersonName     string
	Class          tempcontract.RiskClass
	DaysLeft       int
}

// NewRiskAlert flattens a scan result into its event payload.
func NewRiskAlert(a tempcontract.Alert) RiskAlert {
	return RiskAlert{
		VacancyGroupID: a.Group.ID,
		VacancyCode:    a.Group.Code,
		SlotIndex:      a.Occupation.SlotIndex,
		OccupationID:   a.Occupation.ID,
		PersonName:     a.Occupation.PersonName,
		Class:          a.Class,
		DaysLeft:       a.DaysLeft,
	}
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(string, ...interface{}) {}
