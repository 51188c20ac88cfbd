package events

import (
	"errors"
	"fmt"

	"github.com/asaskevich/EventBus"
	log "github.com/sirupsen/logrus"
	"github.com/warp/slot-engine/metrics"
)

// SubscribeDefaults attaches the logging and metrics subscribers to bus.
func SubscribeDefaults(bus EventBus.Bus) error {
	var errs []error
	if err := bus.Subscribe(SlotVacatedTopic, onSlotVacated); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", SlotVacatedTopic, err))
	}
	if err := bus.Subscribe(CandidateHiredTopic, onCandidateHired); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", CandidateHiredTopic, err))
	}
	if err := bus.Subscribe(RiskAlertTopic, onRiskAlert); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", RiskAlertTopic, err))
	}
	return errors.Join(errs...)
}

func onSlotVacated(e SlotVacated) {
	metrics.VacatedSlotsCounter.Inc()
	log.WithFields(log.Fields{
		"vacancy_code":   e.VacancyCode,
		"slot":           e.SlotIndex,
		"occupation_id":  e.OccupationID,
		"end_date":       e.EndDate.Display(),
		"remaining_days": e.RemainingDays,
	}).Info("slot vacated")
}

func onCandidateHired(e CandidateHired) {
	metrics.HiresCounter.WithLabelValues(string(e.QuotaCategory)).Inc()
	log.WithFields(log.Fields{
		"candidate_id":   e.CandidateID,
		"vacancy_group":  e.VacancyGroupID,
		"slot":           e.SlotIndex,
		"occupation_id":  e.OccupationID,
		"quota_category": e.QuotaCategory,
	}).Info("candidate hired")
}

func onRiskAlert(e RiskAlert) {
	log.WithFields(log.Fields{
		"vacancy_code":  e.VacancyCode,
		"slot":          e.SlotIndex,
		"occupation_id": e.OccupationID,
		"class":         e.Class,
		"days_left":     e.DaysLeft,
	}).Warn("occupation near end of term")
}
