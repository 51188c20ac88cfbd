package service

import (
	"context"

	log "github.com/sirupsen/logrus"
	"github.com/warp/slot-engine/generic"
	"github.com/warp/slot-engine/store"
	"github.com/warp/slot-engine/waitlist"
)

// RegisterCandidate masks the CPF and appends the candidate to its list.
// A zero rank means the next free rank.
func (s *Service) RegisterCandidate(ctx context.Context, in waitlist.CandidateInput) (waitlist.Candidate, error) {
	if in.ID == "" {
		in.ID = generic.CandidateID(s.newID())
	}

	var created waitlist.Candidate
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		if in.Rank == 0 {
			existing, err := tx.ListCandidates(ctx, in.WaitingListID)
			if err != nil {
				return err
			}
			in.Rank = waitlist.NextRank(existing)
		}
		c, err := waitlist.NewCandidate(in)
		if err != nil {
			return err
		}
		c.Version = 1
		if err := tx.CreateCandidate(ctx, c); err != nil {
			return err
		}
		created = c
		return nil
	})
	if err != nil {
		return waitlist.Candidate{}, err
	}

	log.WithFields(log.Fields{
		"candidate_id":   created.ID,
		"waiting_list":   created.WaitingListID,
		"rank":           created.Rank,
		"quota_category": created.QuotaCategory,
	}).Info("candidate registered")
	return created, nil
}

func (s *Service) GetCandidate(ctx context.Context, id generic.CandidateID) (waitlist.Candidate, error) {
	return s.store.GetCandidate(ctx, id)
}

func (s *Service) ListCandidates(ctx context.Context, listID generic.WaitingListID) ([]waitlist.Candidate, error) {
	return s.store.ListCandidates(ctx, listID)
}

func (s *Service) ListNotices(ctx context.Context, listID generic.WaitingListID) ([]waitlist.CallNotice, error) {
	return s.store.ListNotices(ctx, listID)
}

// CallCandidate summons a candidate by act and issues the call notice with
// its possession and exercise deadlines.
func (s *Service) CallCandidate(ctx context.Context, id generic.CandidateID, act string, issuedOn generic.TimePoint) (waitlist.CallNotice, error) {
	var notice waitlist.CallNotice
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		c, err := tx.GetCandidate(ctx, id)
		if err != nil {
			return err
		}
		called, err := waitlist.Call(c)
		if err != nil {
			return err
		}
		if notice, err = waitlist.IssueNotice(generic.NoticeID(s.newID()), called, act, issuedOn, s.deadlines); err != nil {
			return err
		}
		if err := tx.UpdateCandidate(ctx, called); err != nil {
			return err
		}
		return tx.CreateNotice(ctx, notice)
	})
	if err != nil {
		s.logWriteFailure("call candidate", err, log.Fields{"candidate_id": id})
		return waitlist.CallNotice{}, err
	}

	log.WithFields(log.Fields{
		"candidate_id":        id,
		"act":                 act,
		"possession_deadline": notice.PossessionDeadline.String(),
	}).Info("candidate called")
	return notice, nil
}

// DeclineCandidate records a refusal and settles the call notice.
func (s *Service) DeclineCandidate(ctx context.Context, id generic.CandidateID) (waitlist.Candidate, error) {
	return s.settle(ctx, id, "decline", func(_ []waitlist.Candidate, c waitlist.Candidate) (waitlist.Candidate, waitlist.NoticeStatus, error) {
		declined, err := waitlist.Decline(c)
		return declined, waitlist.NoticeDeclined, err
	})
}

// RequeueCandidate sends a called candidate to the end of its list and
// revokes the prior call act.
func (s *Service) RequeueCandidate(ctx context.Context, id generic.CandidateID) (waitlist.Candidate, error) {
	return s.settle(ctx, id, "requeue", func(list []waitlist.Candidate, c waitlist.Candidate) (waitlist.Candidate, waitlist.NoticeStatus, error) {
		requeued, err := waitlist.Requeue(c, waitlist.NextRank(list))
		return requeued, waitlist.NoticeRevoked, err
	})
}

type settleFunc func(list []waitlist.Candidate, c waitlist.Candidate) (waitlist.Candidate, waitlist.NoticeStatus, error)

func (s *Service) settle(ctx context.Context, id generic.CandidateID, action string, fn settleFunc) (waitlist.Candidate, error) {
	var updated waitlist.Candidate
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		c, err := tx.GetCandidate(ctx, id)
		if err != nil {
			return err
		}
		list, err := tx.ListCandidates(ctx, c.WaitingListID)
		if err != nil {
			return err
		}
		next, status, err := fn(list, c)
		if err != nil {
			return err
		}
		if err := tx.UpdateCandidate(ctx, next); err != nil {
			return err
		}
		next.Version++

		notices, err := tx.ListNotices(ctx, c.WaitingListID)
		if err != nil {
			return err
		}
		for _, n := range waitlist.SettleNotices(notices, c.ID, status) {
			if err := tx.UpdateNotice(ctx, n); err != nil {
				return err
			}
		}
		updated = next
		return nil
	})
	if err != nil {
		s.logWriteFailure(action+" candidate", err, log.Fields{"candidate_id": id})
		return waitlist.Candidate{}, err
	}

	log.WithFields(log.Fields{
		"candidate_id": id,
		"status":       updated.Status,
		"rank":         updated.Rank,
	}).Infof("candidate %s", action)
	return updated, nil
}
