package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"scwatch/internal/domain"
	"scwatch/internal/validation"
)

// Profile is the signed-in worker's summary.
type Profile struct {
	UserID  string              `json:"userId"`
	Email   string              `json:"email"`
	IsAdmin bool                `json:"isAdmin"`
	Stats   domain.StatusCounts `json:"stats"`
	Total   int                 `json:"totalSubmissions"`
}

// SubmissionService handles worker-side intake and owner edits.
type SubmissionService struct {
	subs   domain.SubmissionRepository
	hotels domain.HotelRepository
	proofs domain.ProofStore
	now    func() time.Time
}

// NewSubmissionService accepts a nil ProofStore; uploads then fail.
func NewSubmissionService(subs domain.SubmissionRepository, hotels domain.HotelRepository, proofs domain.ProofStore) *SubmissionService {
	return &SubmissionService{subs: subs, hotels: hotels, proofs: proofs, now: time.Now}
}

func (s *SubmissionService) Create(ctx context.Context, p domain.Principal, payload validation.SubmissionPayload, proof *domain.ProofFile) (domain.Submission, error) {
	in, err := s.validate(ctx, payload, proof)
	if err != nil {
		return domain.Submission{}, err
	}
	now := s.now().UTC()
	proofURL, err := s.upload(ctx, p.UserID, proof, now)
	if err != nil {
		return domain.Submission{}, err
	}

	sub := domain.Submission{
		ID:              newID(),
		HotelID:         in.HotelID,
		Month:           in.Month,
		Year:            in.Year,
		USDAmount:       in.USDAmount,
		MVRAmount:       in.MVRAmount,
		Position:        in.Position,
		ProofURL:        proofURL,
		SubmitterEmail:  p.Email,
		SubmitterUserID: p.UserID,
		Status:          domain.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.subs.InsertSubmission(ctx, sub); err != nil {
		return domain.Submission{}, fmt.Errorf("insert submission: %w", err)
	}
	log.Info().Str("submission_id", sub.ID).Str("hotel_id", sub.HotelID).Msg("submission received")
	return sub, nil
}

// Update replaces the fields of the caller's own pending submission. The
// stored proof is kept unless a new file is supplied.
func (s *SubmissionService) Update(ctx context.Context, p domain.Principal, id string, payload validation.SubmissionPayload, proof *domain.ProofFile) (domain.Submission, error) {
	cur, err := s.owned(ctx, p, id)
	if err != nil {
		return domain.Submission{}, err
	}
	if cur.Status != domain.StatusPending {
		return domain.Submission{}, domain.Conflict("Only pending submissions can be edited")
	}
	in, err := s.validate(ctx, payload, proof)
	if err != nil {
		return domain.Submission{}, err
	}
	now := s.now().UTC()
	proofURL, err := s.upload(ctx, p.UserID, proof, now)
	if err != nil {
		return domain.Submission{}, err
	}

	next := cur.Submission
	next.HotelID = in.HotelID
	next.Month = in.Month
	next.Year = in.Year
	next.USDAmount = in.USDAmount
	next.MVRAmount = in.MVRAmount
	next.Position = in.Position
	if proofURL != nil {
		next.ProofURL = proofURL
	}
	next.UpdatedAt = now
	if err := s.subs.UpdatePendingSubmission(ctx, next); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			return domain.Submission{}, domain.Conflict("Only pending submissions can be edited")
		}
		return domain.Submission{}, fmt.Errorf("update submission: %w", err)
	}
	return next, nil
}

func (s *SubmissionService) Delete(ctx context.Context, p domain.Principal, id string) error {
	cur, err := s.owned(ctx, p, id)
	if err != nil {
		return err
	}
	if cur.Status != domain.StatusPending {
		return domain.Conflict("Only pending submissions can be deleted")
	}
	if err := s.subs.DeletePendingSubmission(ctx, id, p.UserID); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			return domain.Conflict("Only pending submissions can be deleted")
		}
		return err
	}
	return nil
}

func (s *SubmissionService) Mine(ctx context.Context, p domain.Principal) ([]domain.SubmissionWithHotel, error) {
	return s.subs.ListSubmissionsByUser(ctx, p.UserID)
}

func (s *SubmissionService) Profile(ctx context.Context, p domain.Principal, isAdmin bool) (Profile, error) {
	counts, err := s.subs.CountSubmissionsByStatus(ctx, p.UserID)
	if err != nil {
		return Profile{}, err
	}
	return Profile{UserID: p.UserID, Email: p.Email, IsAdmin: isAdmin, Stats: counts, Total: counts.Total()}, nil
}

func (s *SubmissionService) owned(ctx context.Context, p domain.Principal, id string) (domain.SubmissionWithHotel, error) {
	cur, err := s.subs.GetSubmission(ctx, id)
	if err != nil {
		return domain.SubmissionWithHotel{}, err
	}
	if cur.SubmitterUserID != p.UserID {
		return domain.SubmissionWithHotel{}, domain.ErrForbidden
	}
	return cur, nil
}

// validate runs payload, hotel and proof checks and reports every violation together.
func (s *SubmissionService) validate(ctx context.Context, payload validation.SubmissionPayload, proof *domain.ProofFile) (domain.SubmissionInput, error) {
	in, err := validation.Submission(payload)
	verr := &domain.ValidationError{}
	if err != nil {
		var ve *domain.ValidationError
		if !errors.As(err, &ve) {
			return domain.SubmissionInput{}, err
		}
		verr.Fields = append(verr.Fields, ve.Fields...)
	}
	if proof != nil {
		if _, perr := validation.Proof(*proof); perr != nil {
			var ve *domain.ValidationError
			if errors.As(perr, &ve) {
				verr.Fields = append(verr.Fields, ve.Fields...)
			}
		}
	}
	if !verr.Has("hotel_id") {
		h, herr := s.hotels.GetHotel(ctx, strings.TrimSpace(payload.HotelID))
		switch {
		case errors.Is(herr, domain.ErrNotFound):
			verr.Add("hotel_id", "Please select a hotel")
		case herr != nil:
			return domain.SubmissionInput{}, herr
		case h.Status != domain.HotelActive:
			verr.Add("hotel_id", "Hotel is no longer accepting submissions")
		}
	}
	if err := verr.Err(); err != nil {
		return domain.SubmissionInput{}, err
	}
	return in, nil
}

func (s *SubmissionService) upload(ctx context.Context, userID string, proof *domain.ProofFile, now time.Time) (*string, error) {
	if proof == nil || len(proof.Data) == 0 {
		return nil, nil
	}
	if s.proofs == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrProofUpload, domain.ErrStorageDisabled)
	}
	ext, err := validation.Proof(*proof)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("proofs/%s/%d.%s", userID, now.UnixMilli(), ext)
	ct := proof.ContentType
	if ct == "" {
		ct = contentTypeForExt(ext)
	}
	url, err := s.proofs.Put(ctx, key, ct, proof.Data)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("proof upload failed")
		return nil, fmt.Errorf("%w: %w", domain.ErrProofUpload, err)
	}
	return &url, nil
}

func contentTypeForExt(ext string) string {
	switch ext {
	case "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	case "pdf":
		return "application/pdf"
	}
	return "application/octet-stream"
}
