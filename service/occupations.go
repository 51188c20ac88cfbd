package service

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/warp/slot-engine/events"
	"github.com/warp/slot-engine/generic"
	"github.com/warp/slot-engine/logging"
	"github.com/warp/slot-engine/store"
	"github.com/warp/slot-engine/tempcontract"
	"github.com/warp/slot-engine/waitlist"
)

// HireRequest commits a candidate to a slot for [Start, AgreedEnd].
type HireRequest struct {
	VacancyGroupID generic.VacancyGroupID
	SlotIndex      int
	CandidateID    generic.CandidateID
	Start          generic.TimePoint
	AgreedEnd      generic.TimePoint
}

// HireResult is the committed occupation with the plan it was created from.
type HireResult struct {
	Occupation tempcontract.Occupation
	Candidate  waitlist.Candidate
	Plan       tempcontract.TermPlan
}

// Hire creates the active occupation, marks the candidate Hired and settles
// its call notices, atomically. The new occupation inherits the slot's
// reserved quota category; a slot without history takes the candidate's.
func (s *Service) Hire(ctx context.Context, req HireRequest) (HireResult, error) {
	var res HireResult
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		g, err := tx.GetVacancyGroup(ctx, req.VacancyGroupID)
		if err != nil {
			return err
		}
		if !g.HasSlot(req.SlotIndex) {
			return &generic.ValidationError{Field: "slot_index", Message: fmt.Sprintf("must be within 1..%d", g.SlotCount)}
		}

		occs, err := tx.ListOccupations(ctx, g.ID)
		if err != nil {
			return err
		}
		history := tempcontract.SlotHistory(occs, g.ID, req.SlotIndex)
		active, err := tempcontract.ActiveOccupation(history)
		if err != nil {
			return err
		}
		if active != nil {
			return fmt.Errorf("slot %s#%d held by occupation %s: %w", g.Code, req.SlotIndex, active.ID, generic.ErrSlotOccupied)
		}

		plan, err := tempcontract.PlanTerm(g, req.SlotIndex, history, req.Start, req.AgreedEnd)
		if err != nil {
			return err
		}
		if plan.ExceedsCeiling {
			return &tempcontract.CeilingExceededError{
				Requested:   req.AgreedEnd,
				LastLegalAt: plan.ProjectedFinalDate,
			}
		}

		c, err := tx.GetCandidate(ctx, req.CandidateID)
		if err != nil {
			return err
		}
		if g.WaitingListID != "" && c.WaitingListID != g.WaitingListID {
			return &generic.ValidationError{
				Field:   "candidate_id",
				Message: fmt.Sprintf("candidate is on list %s, vacancy uses %s", c.WaitingListID, g.WaitingListID),
			}
		}
		hired, err := waitlist.Hire(c)
		if err != nil {
			return err
		}
		if err := tx.UpdateCandidate(ctx, hired); err != nil {
			return err
		}
		hired.Version++

		category := hired.QuotaCategory
		if len(history) > 0 {
			category = tempcontract.LastQuotaCategory(history)
		}
		occ := tempcontract.Occupation{
			ID:                 generic.OccupationID(s.newID()),
			VacancyGroupID:     g.ID,
			SlotIndex:          req.SlotIndex,
			SequenceOrder:      tempcontract.NextSequenceOrder(history),
			PersonID:           hired.ID,
			PersonName:         hired.Name,
			StartDate:          generic.DateOf(req.Start),
			EndDate:            generic.DateOf(req.AgreedEnd),
			ProjectedFinalDate: generic.DateOf(plan.ProjectedFinalDate),
			Status:             tempcontract.OccupationActive,
			QuotaCategory:      category,
			ExtensionRequired:  plan.ExtensionRequired,
			Version:            1,
		}
		if err := tx.CreateOccupation(ctx, occ); err != nil {
			return err
		}

		notices, err := tx.ListNotices(ctx, hired.WaitingListID)
		if err != nil {
			return err
		}
		for _, n := range waitlist.SettleNotices(notices, hired.ID, waitlist.NoticeHired) {
			if err := tx.UpdateNotice(ctx, n); err != nil {
				return err
			}
		}

		res = HireResult{Occupation: occ, Candidate: hired, Plan: plan}
		return nil
	})
	if err != nil {
		s.logWriteFailure("hire", err, log.Fields{
			"vacancy_group": req.VacancyGroupID,
			"slot":          req.SlotIndex,
			"candidate_id":  req.CandidateID,
		})
		return HireResult{}, err
	}

	s.publisher.Publish(events.CandidateHiredTopic, events.CandidateHired{
		CandidateID:    res.Candidate.ID,
		CandidateName:  res.Candidate.Name,
		WaitingListID:  res.Candidate.WaitingListID,
		VacancyGroupID: res.Occupation.VacancyGroupID,
		SlotIndex:      res.Occupation.SlotIndex,
		OccupationID:   res.Occupation.ID,
		QuotaCategory:  res.Occupation.QuotaCategory,
	})
	return res, nil
}

// EndOccupation closes an active occupation and publishes the vacancy.
func (s *Service) EndOccupation(ctx context.Context, id generic.OccupationID, endDate generic.TimePoint) (tempcontract.Occupation, error) {
	var (
		ended     tempcontract.Occupation
		group     tempcontract.VacancyGroup
		remaining int
	)
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		o, err := tx.GetOccupation(ctx, id)
		if err != nil {
			return err
		}
		if ended, err = tempcontract.End(o, endDate); err != nil {
			return err
		}
		if err := tx.UpdateOccupation(ctx, ended); err != nil {
			return err
		}
		ended.Version++

		if group, err = tx.GetVacancyGroup(ctx, o.VacancyGroupID); err != nil {
			return err
		}
		occs, err := tx.ListOccupations(ctx, group.ID)
		if err != nil {
			return err
		}
		remaining = tempcontract.RemainingBalance(group.MaxTermDays, tempcontract.SlotHistory(occs, group.ID, o.SlotIndex))
		return nil
	})
	if err != nil {
		s.logWriteFailure("end occupation", err, log.Fields{"occupation_id": id})
		return tempcontract.Occupation{}, err
	}

	s.publisher.Publish(events.SlotVacatedTopic, events.SlotVacated{
		VacancyGroupID: group.ID,
		VacancyCode:    group.Code,
		SlotIndex:      ended.SlotIndex,
		OccupationID:   ended.ID,
		EndDate:        ended.EndDate,
		RemainingDays:  remaining,
	})
	return ended, nil
}

// ExtendOccupation moves the end date of an active occupation within the
// slot's legal ceiling.
func (s *Service) ExtendOccupation(ctx context.Context, id generic.OccupationID, newEnd generic.TimePoint, amendmentRef string) (tempcontract.Occupation, error) {
	o, err := s.store.GetOccupation(ctx, id)
	if err != nil {
		return tempcontract.Occupation{}, err
	}
	if o.IsActive() && !o.ProjectedFinalDate.Valid {
		if o, err = s.reproject(ctx, o); err != nil {
			return tempcontract.Occupation{}, err
		}
	}
	extended, err := tempcontract.Extend(o, newEnd, amendmentRef)
	if err != nil {
		return tempcontract.Occupation{}, err
	}
	if err := s.store.UpdateOccupation(ctx, extended); err != nil {
		s.logWriteFailure("extend occupation", err, log.Fields{"occupation_id": id})
		return tempcontract.Occupation{}, err
	}
	extended.Version++

	log.WithFields(log.Fields{
		"occupation_id":      id,
		"end_date":           extended.EndDate.ISO(),
		"amendment":          amendmentRef,
		"extension_required": extended.ExtensionRequired,
	}).Info("occupation extended")
	return extended, nil
}

// reproject fills a missing projected final date from the slot history.
func (s *Service) reproject(ctx context.Context, o tempcontract.Occupation) (tempcontract.Occupation, error) {
	group, err := s.store.GetVacancyGroup(ctx, o.VacancyGroupID)
	if err != nil {
		return tempcontract.Occupation{}, err
	}
	occs, err := s.store.ListOccupations(ctx, group.ID)
	if err != nil {
		return tempcontract.Occupation{}, fmt.Errorf("list occupations: %w", err)
	}
	projected, err := tempcontract.Reproject(group, tempcontract.SlotHistory(occs, group.ID, o.SlotIndex), o)
	if err != nil {
		return tempcontract.Occupation{}, err
	}
	log.WithFields(log.Fields{
		"occupation_id":        o.ID,
		"projected_final_date": projected.ProjectedFinalDate.ISO(),
	}).Warn("occupation had no projected final date, recomputed from slot history")
	return projected, nil
}

func (s *Service) logWriteFailure(action string, err error, fields log.Fields) {
	switch {
	case generic.IsDataConsistency(err):
		s.logInconsistency(err, fields)
	case generic.IsConflict(err):
		fields[logging.ErrorTypeField] = logging.ErrorTypeConflict
		log.WithFields(fields).WithError(err).Warnf("%s lost a concurrent write", action)
	case generic.IsClientError(err), generic.IsNotFound(err):
		log.WithFields(fields).WithError(err).Debugf("%s rejected", action)
	default:
		fields[logging.ErrorTypeField] = logging.ErrorTypeDB
		log.WithFields(fields).WithError(err).Errorf("%s failed", action)
	}
}
