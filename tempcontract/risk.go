/*
risk.go - Expiry risk classification for active occupations

PURPOSE:

	Classifies each active occupation by how close its end date is, so the
	dashboard can show which contracts need an extension offer and which are
	about to terminate. Classification is recomputed on every read; nothing
	is persisted.

CLASSES (with default thresholds):

	daysLeft = DaysBetween(today, endDate)

	0  <= daysLeft <= 30  -> TerminationImminent (notify and/or terminate)
	31 <= daysLeft <= 90  -> ExtensionWindow     (offer fast-track extension)
	otherwise             -> None

	A negative daysLeft is an overdue record that data entry should correct.
	It is flagged Overdue but never escalated.

UNKNOWN DATA:

	Ended occupations and unknown end dates are always None.

SEE ALSO:
  - api/scheduler.go: periodic scan that logs and publishes alerts
*/
package tempcontract

import (
	"sort"

	"github.com/warp/slot-engine/generic"
)

// =============================================================================
// RISK CLASS
// =============================================================================

type RiskClass string

const (
	RiskNone                RiskClass = "none"
	RiskExtensionWindow     RiskClass = "extension_window"
	RiskTerminationImminent RiskClass = "termination_imminent"
)

// RiskThresholds are the inclusive upper bounds, in days, of each class.
type RiskThresholds struct {
	TerminationDays int
	ExtensionDays   int
}

// DefaultRiskThresholds returns the statutory 30/90 day windows.
func DefaultRiskThresholds() RiskThresholds {
	return RiskThresholds{TerminationDays: 30, ExtensionDays: 90}
}

// Assessment is the classification of one occupation on one day.
type Assessment struct {
	Class    RiskClass
	DaysLeft int
	Known    bool // false when the end date is unknown or the occupation ended
	Overdue  bool
}

// Classify evaluates one occupation against today.
func Classify(o Occupation, today generic.TimePoint, th RiskThresholds) Assessment {
	if !o.IsActive() || !o.EndDate.Valid {
		return Assessment{Class: RiskNone}
	}
	daysLeft := generic.DaysBetween(generic.DayOf(today.Time), o.EndDate.Point)
	return Assessment{
		Class:    ClassifyDaysLeft(daysLeft, th),
		DaysLeft: daysLeft,
		Known:    true,
		Overdue:  daysLeft < 0,
	}
}

// ClassifyDaysLeft maps a countdown to a class.
func ClassifyDaysLeft(daysLeft int, th RiskThresholds) RiskClass {
	switch {
	case daysLeft < 0:
		return RiskNone
	case daysLeft <= th.TerminationDays:
		return RiskTerminationImminent
	case daysLeft <= th.ExtensionDays:
		return RiskExtensionWindow
	}
	return RiskNone
}

// =============================================================================
// SCAN
// =============================================================================

// Alert is an occupation that needs attention.
type Alert struct {
	Group      VacancyGroup
	Occupation Occupation
	Class      RiskClass
	DaysLeft   int
}

// ScanRisks classifies every active occupation of the given groups and
// returns the non-None ones, most urgent first. Ties are broken by vacancy
// code, then slot index.
func ScanRisks(groups []VacancyGroup, occupations []Occupation, today generic.TimePoint, th RiskThresholds) []Alert {
	byID := make(map[generic.VacancyGroupID]VacancyGroup, len(groups))
	for _, g := range groups {
		byID[g.ID] = g
	}

	var alerts []Alert
	for _, o := range occupations {
		group, ok := byID[o.VacancyGroupID]
		if !ok {
			continue
		}
		a := Classify(o, today, th)
		if a.Class == RiskNone {
			continue
		}
		alerts = append(alerts, Alert{Group: group, Occupation: o, Class: a.Class, DaysLeft: a.DaysLeft})
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		if alerts[i].DaysLeft != alerts[j].DaysLeft {
			return alerts[i].DaysLeft < alerts[j].DaysLeft
		}
		if alerts[i].Group.Code != alerts[j].Group.Code {
			return alerts[i].Group.Code < alerts[j].Group.Code
		}
		return alerts[i].Occupation.SlotIndex < alerts[j].Occupation.SlotIndex
	})
	return alerts
}

// Overdue returns active occupations whose end date already passed. They are
// not alerts; callers surface them for data-entry correction.
func Overdue(occupations []Occupation, today generic.TimePoint) []Occupation {
	var result []Occupation
	for _, o := range occupations {
		if a := Classify(o, today, DefaultRiskThresholds()); a.Overdue {
			result = append(result, o)
		}
	}
	return result
}
