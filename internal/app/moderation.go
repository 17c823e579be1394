package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"scwatch/internal/adapters/observability"
	"scwatch/internal/domain"
	"scwatch/internal/validation"
)

type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

const (
	ItemProcessed = "processed"
	ItemSkipped   = "skipped"
)

type BulkItem struct {
	SubmissionID string `json:"submissionId"`
	Status       string `json:"status"` // processed|skipped
	Error        string `json:"error,omitempty"`
}

type BulkResult struct {
	Count   int        `json:"count"`
	Results []BulkItem `json:"results"`
}

// ModerationService moves pending submissions to approved or rejected.
type ModerationService struct {
	subs     domain.SubmissionRepository
	cache    domain.Cache
	notifier domain.Notifier
	rates    RateSource
	now      func() time.Time
}

func NewModerationService(subs domain.SubmissionRepository, cache domain.Cache, n domain.Notifier, rates RateSource) *ModerationService {
	return &ModerationService{subs: subs, cache: orNoCache(cache), notifier: n, rates: rates, now: time.Now}
}

func checkAction(action Action, reason string) error {
	switch action {
	case ActionApprove:
		return nil
	case ActionReject:
		return validation.RejectionReason(reason)
	default:
		verr := &domain.ValidationError{}
		verr.Add("action", "Action must be approve or reject")
		return verr
	}
}

// Review applies one moderation action.
func (s *ModerationService) Review(ctx context.Context, actor domain.Principal, id string, action Action, reason string) error {
	if err := checkAction(action, reason); err != nil {
		return err
	}
	err := s.apply(ctx, actor, id, action, reason)
	observability.ObserveModeration(string(action), resultLabel(err))
	return err
}

// BulkReview applies the same action to each id in order. Failed items are
// logged and reported as skipped; they never abort the batch.
func (s *ModerationService) BulkReview(ctx context.Context, actor domain.Principal, ids []string, action Action, reason string) (BulkResult, error) {
	if err := checkAction(action, reason); err != nil {
		return BulkResult{}, err
	}
	if len(ids) == 0 {
		verr := &domain.ValidationError{}
		verr.Add("submissionIds", "At least one submission id is required")
		return BulkResult{}, verr
	}

	out := BulkResult{Results: make([]BulkItem, 0, len(ids))}
	for _, id := range ids {
		err := s.apply(ctx, actor, id, action, reason)
		observability.ObserveModeration(string(action), resultLabel(err))
		if err != nil {
			log.Warn().Err(err).Str("submission_id", id).Str("action", string(action)).Msg("bulk review item skipped")
			out.Results = append(out.Results, BulkItem{SubmissionID: id, Status: ItemSkipped, Error: err.Error()})
			continue
		}
		out.Count++
		out.Results = append(out.Results, BulkItem{SubmissionID: id, Status: ItemProcessed})
	}
	return out, nil
}

func (s *ModerationService) apply(ctx context.Context, actor domain.Principal, id string, action Action, reason string) error {
	sub, err := s.subs.GetSubmission(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("submission %s: %w", id, domain.ErrNotFound)
		}
		return err
	}
	if sub.Status != domain.StatusPending {
		return domain.ErrInvalidTransition
	}
	if action == ActionReject {
		return s.reject(ctx, actor, sub, reason)
	}
	return s.approve(ctx, actor, sub)
}

func (s *ModerationService) approve(ctx context.Context, actor domain.Principal, sub domain.SubmissionWithHotel) error {
	if sub.Hotel.ID == "" || sub.Hotel.Status != domain.HotelActive {
		return domain.Conflict("Hotel is no longer active")
	}

	rate := s.rates.USDToMVR(ctx, sub.Month, sub.Year)
	at := s.now().UTC()
	reviewer := actor.UserID
	rec := domain.ServiceChargeRecord{
		ID:                 newID(),
		HotelID:            sub.HotelID,
		Month:              sub.Month,
		Year:               sub.Year,
		USDAmount:          sub.USDAmount,
		MVRAmount:          sub.MVRAmount,
		TotalUSD:           TotalUSD(sub.USDAmount, sub.MVRAmount, rate),
		VerificationStatus: domain.VerificationVerified,
		VerifiedAt:         &at,
		VerifiedBy:         &reviewer,
		CreatedAt:          at,
		UpdatedAt:          at,
	}
	if err := s.subs.ApproveSubmission(ctx, sub.ID, reviewer, rec); err != nil {
		return fmt.Errorf("approve %s: %w", sub.ID, err)
	}

	dropCached(ctx, s.cache, leaderboardKey(sub.Year, sub.Month), hotelKey(sub.HotelID))

	log.Info().
		Str("submission_id", sub.ID).
		Str("hotel_id", sub.HotelID).
		Float64("total_usd", rec.TotalUSD).
		Msg("submission approved")

	s.notify(ctx, "approved", sub.ID, func(ctx context.Context) error {
		return s.notifier.SubmissionApproved(ctx, domain.ApprovalNotice{
			To:        sub.SubmitterEmail,
			HotelName: sub.Hotel.Name,
			Month:     sub.Month,
			Year:      sub.Year,
			USDAmount: sub.USDAmount,
			MVRAmount: sub.MVRAmount,
			TotalUSD:  rec.TotalUSD,
		})
	})
	return nil
}

func (s *ModerationService) reject(ctx context.Context, actor domain.Principal, sub domain.SubmissionWithHotel, reason string) error {
	if err := s.subs.RejectSubmission(ctx, sub.ID, actor.UserID, reason, s.now().UTC()); err != nil {
		return fmt.Errorf("reject %s: %w", sub.ID, err)
	}
	log.Info().Str("submission_id", sub.ID).Str("hotel_id", sub.HotelID).Msg("submission rejected")

	s.notify(ctx, "rejected", sub.ID, func(ctx context.Context) error {
		return s.notifier.SubmissionRejected(ctx, domain.RejectionNotice{
			To:        sub.SubmitterEmail,
			HotelName: sub.Hotel.Name,
			Month:     sub.Month,
			Year:      sub.Year,
			Reason:    reason,
		})
	})
	return nil
}

// notify never fails the transition; errors are logged and counted.
func (s *ModerationService) notify(ctx context.Context, kind, id string, send func(context.Context) error) {
	if s.notifier == nil {
		return
	}
	err := send(ctx)
	observability.ObserveNotification(kind, err)
	if err != nil {
		log.Error().Err(err).Str("submission_id", id).Str("kind", kind).Msg("notification failed")
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}
