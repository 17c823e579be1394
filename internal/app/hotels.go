package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"scwatch/internal/domain"
	"scwatch/internal/validation"
)

type HotelList struct {
	Hotels []domain.Hotel `json:"hotels"`
	Count  int            `json:"count"`
}

// DeleteOutcome tells the caller whether the row was removed or closed.
type DeleteOutcome struct {
	Deleted bool          `json:"deleted"`
	Closed  bool          `json:"closed"`
	Hotel   *domain.Hotel `json:"hotel,omitempty"`
}

type HotelService struct {
	repo  domain.HotelRepository
	cache domain.Cache
	now   func() time.Time
}

func NewHotelService(r domain.HotelRepository, c domain.Cache) *HotelService {
	return &HotelService{repo: r, cache: orNoCache(c), now: time.Now}
}

func (s *HotelService) List(ctx context.Context, q domain.HotelsQuery) (HotelList, error) {
	hs, err := s.repo.ListHotels(ctx, q)
	if err != nil {
		return HotelList{}, err
	}
	return HotelList{Hotels: hs, Count: len(hs)}, nil
}

func (s *HotelService) Create(ctx context.Context, p validation.HotelPayload) (domain.Hotel, error) {
	in, err := validation.HotelCreate(p)
	if err != nil {
		return domain.Hotel{}, err
	}
	if err := s.ensureUniqueName(ctx, in.Name, ""); err != nil {
		return domain.Hotel{}, err
	}
	now := s.now().UTC()
	h := domain.Hotel{
		ID:         newID(),
		Name:       in.Name,
		Atoll:      in.Atoll,
		Type:       in.Type,
		StaffCount: in.StaffCount,
		Status:     in.Status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.InsertHotel(ctx, h); err != nil {
		return domain.Hotel{}, err
	}
	log.Info().Str("hotel_id", h.ID).Str("name", h.Name).Msg("hotel created")
	return h, nil
}

func (s *HotelService) Update(ctx context.Context, id string, p validation.HotelPayload) (domain.Hotel, error) {
	patch, err := validation.HotelUpdate(p)
	if err != nil {
		return domain.Hotel{}, err
	}
	h, err := s.repo.GetHotel(ctx, id)
	if err != nil {
		return domain.Hotel{}, err
	}
	if patch.Name != nil {
		if err := s.ensureUniqueName(ctx, *patch.Name, id); err != nil {
			return domain.Hotel{}, err
		}
		h.Name = *patch.Name
	}
	if patch.Atoll != nil {
		h.Atoll = *patch.Atoll
	}
	if patch.Type != nil {
		h.Type = *patch.Type
	}
	switch {
	case patch.StaffCount != nil:
		h.StaffCount = patch.StaffCount
	case patch.ClearStaffCount:
		h.StaffCount = nil
	}
	if patch.Status != nil {
		h.Status = *patch.Status
	}
	h.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateHotel(ctx, h); err != nil {
		return domain.Hotel{}, err
	}
	dropCached(ctx, s.cache, hotelKey(id))
	dropLeaderboards(ctx, s.cache)
	return h, nil
}

// Delete removes a hotel nothing refers to. A referenced hotel is closed
// instead so its history stays intact.
func (s *HotelService) Delete(ctx context.Context, id string) (DeleteOutcome, error) {
	h, err := s.repo.GetHotel(ctx, id)
	if err != nil {
		return DeleteOutcome{}, err
	}
	subs, recs, err := s.repo.CountHotelReferences(ctx, id)
	if err != nil {
		return DeleteOutcome{}, fmt.Errorf("count references: %w", err)
	}
	defer func() {
		dropCached(ctx, s.cache, hotelKey(id))
		dropLeaderboards(ctx, s.cache)
	}()

	if subs == 0 && recs == 0 {
		if err := s.repo.DeleteHotel(ctx, id); err != nil {
			return DeleteOutcome{}, err
		}
		log.Info().Str("hotel_id", id).Msg("hotel deleted")
		return DeleteOutcome{Deleted: true}, nil
	}

	h.Status = domain.HotelClosed
	h.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateHotel(ctx, h); err != nil {
		return DeleteOutcome{}, err
	}
	log.Info().Str("hotel_id", id).Int("submissions", subs).Int("records", recs).Msg("hotel closed")
	return DeleteOutcome{Closed: true, Hotel: &h}, nil
}

func (s *HotelService) ensureUniqueName(ctx context.Context, name, excludeID string) error {
	_, found, err := s.repo.FindHotelByName(ctx, name, excludeID)
	if err != nil {
		return err
	}
	if found {
		return domain.Conflict("A hotel with this name already exists")
	}
	return nil
}
