package app

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"scwatch/internal/domain"
)

const (
	profileRecords = 12
	maxCompare     = 3
	maxPerPage     = 100
	defaultPerPage = 20
	trendThreshold = 2.0 // percent
)

type QueryService struct {
	hotels   domain.HotelRepository
	records  domain.RecordRepository
	subs     domain.SubmissionRepository
	cache    domain.Cache
	cacheTTL time.Duration
	now      func() time.Time
}

func NewQueryService(h domain.HotelRepository, r domain.RecordRepository, s domain.SubmissionRepository, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{hotels: h, records: r, subs: s, cache: orNoCache(c), cacheTTL: ttl, now: time.Now}
}

// Leaderboard ranks active hotels by verified total for one period. The
// current UTC month is used when the period is unset. Only unfiltered
// boards are cached.
func (s *QueryService) Leaderboard(ctx context.Context, q domain.LeaderboardQuery) (domain.Leaderboard, error) {
	now := s.now().UTC()
	if q.Month < 1 || q.Month > 12 {
		q.Month = int(now.Month())
	}
	if q.Year == 0 {
		q.Year = now.Year()
	}
	cacheable := q.Atoll == "" && q.Type == ""
	key := leaderboardKey(q.Year, q.Month)

	var lb domain.Leaderboard
	if cacheable {
		if ok, _ := s.cache.Get(ctx, key, &lb); ok {
			return lb, nil
		}
	}

	rows, err := s.records.ListLeaderboard(ctx, q)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	lb = domain.Leaderboard{Month: q.Month, Year: q.Year, Entries: make([]domain.LeaderboardEntry, 0, len(rows))}
	var sum float64
	for i, r := range rows {
		lb.Entries = append(lb.Entries, domain.LeaderboardEntry{
			Rank:     i + 1,
			HotelID:  r.HotelID,
			Name:     r.Hotel.Name,
			Atoll:    r.Hotel.Atoll,
			Type:     string(r.Hotel.Type),
			USD:      r.USDAmount,
			MVR:      r.MVRAmount,
			TotalUSD: r.TotalUSD,
		})
		sum += r.TotalUSD
	}
	lb.Stats.TotalHotels = len(rows)
	if len(rows) > 0 {
		lb.Stats.TopPaying = &domain.TopPaying{Name: rows[0].Hotel.Name, Amount: rows[0].TotalUSD}
		lb.Stats.AverageSC = sum / float64(len(rows))
	}

	if cacheable {
		_ = s.cache.Set(ctx, key, lb, int(s.cacheTTL.Seconds()))
	}
	return lb, nil
}

func (s *QueryService) PublicHotels(ctx context.Context, q domain.HotelsQuery) (HotelList, error) {
	q.Status = string(domain.HotelActive)
	hs, err := s.hotels.ListHotels(ctx, q)
	if err != nil {
		return HotelList{}, err
	}
	return HotelList{Hotels: hs, Count: len(hs)}, nil
}

// HotelProfile returns a hotel with its last twelve verified periods.
func (s *QueryService) HotelProfile(ctx context.Context, id string) (domain.HotelProfile, error) {
	key := hotelKey(id)
	var hp domain.HotelProfile
	if ok, _ := s.cache.Get(ctx, key, &hp); ok {
		return hp, nil
	}

	h, err := s.hotels.GetHotel(ctx, id)
	if err != nil {
		return domain.HotelProfile{}, err
	}
	recs, err := s.records.ListHotelRecords(ctx, id, profileRecords)
	if err != nil {
		return domain.HotelProfile{}, err
	}
	now := s.now().UTC()
	hp = domain.HotelProfile{
		Hotel:   h,
		Records: copyRecords(recs),
		Stats:   recordStats(recs, int(now.Month()), now.Year()),
		Trend:   trend(recs),
	}

	// optional size guard
	if b, _ := json.Marshal(hp); len(b) < 1_000_000 {
		_ = s.cache.Set(ctx, key, hp, int(s.cacheTTL.Seconds()))
	}
	return hp, nil
}

// Compare builds up to three profiles side by side, in request order.
func (s *QueryService) Compare(ctx context.Context, ids []string) ([]domain.ComparisonEntry, error) {
	clean := make([]string, 0, len(ids))
	seen := map[string]bool{}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		clean = append(clean, id)
	}
	verr := &domain.ValidationError{}
	switch {
	case len(clean) == 0:
		verr.Add("hotels", "At least one hotel id is required")
	case len(clean) > maxCompare:
		verr.Add("hotels", "At most 3 hotels can be compared")
	}
	for _, id := range clean {
		if _, err := uuid.Parse(id); err != nil {
			verr.Add("hotels", "Invalid hotel id: "+id)
		}
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	out := make([]domain.ComparisonEntry, 0, len(clean))
	for _, id := range clean {
		hp, err := s.HotelProfile(ctx, id)
		if err != nil {
			return nil, err
		}
		e := domain.ComparisonEntry{Hotel: hp.Hotel, Stats: hp.Stats, Trend: hp.Trend, Records: len(hp.Records)}
		if len(hp.Records) > 0 {
			latest := hp.Records[0]
			e.Latest = &latest
		}
		out = append(out, e)
	}
	return out, nil
}

type Queue struct {
	domain.SubmissionPage
	Counts domain.StatusCounts `json:"counts"`
}

// AdminQueue lists submissions for moderation, oldest first.
func (s *QueryService) AdminQueue(ctx context.Context, q domain.SubmissionQuery) (Queue, error) {
	if q.Status == "" {
		q.Status = string(domain.StatusPending)
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = defaultPerPage
	}
	if q.PerPage > maxPerPage {
		q.PerPage = maxPerPage
	}
	page, err := s.subs.ListSubmissions(ctx, q)
	if err != nil {
		return Queue{}, err
	}
	counts, err := s.subs.CountSubmissionsByStatus(ctx, "")
	if err != nil {
		return Queue{}, err
	}
	return Queue{SubmissionPage: page, Counts: counts}, nil
}

// copy slice to avoid aliasing the repo's backing array
func copyRecords(in []domain.ServiceChargeRecord) []domain.ServiceChargeRecord {
	out := make([]domain.ServiceChargeRecord, len(in))
	copy(out, in)
	return out
}

func recordStats(recs []domain.ServiceChargeRecord, month, year int) domain.HotelStats {
	var st domain.HotelStats
	if len(recs) == 0 {
		return st
	}
	var sum float64
	for i, r := range recs {
		if r.Month == month && r.Year == year {
			st.CurrentAmount = r.TotalUSD
		}
		sum += r.TotalUSD
		if i == 0 || r.TotalUSD > st.HighestAmount {
			st.HighestAmount = r.TotalUSD
		}
		if i == 0 || r.TotalUSD < st.LowestAmount {
			st.LowestAmount = r.TotalUSD
		}
	}
	st.AverageAmount = sum / float64(len(recs))
	return st
}

// trend compares the two most recent periods; recs are newest first.
func trend(recs []domain.ServiceChargeRecord) string {
	if len(recs) < 2 || recs[1].TotalUSD == 0 {
		return "stable"
	}
	change := (recs[0].TotalUSD - recs[1].TotalUSD) / recs[1].TotalUSD * 100
	switch {
	case change > trendThreshold:
		return "up"
	case change < -trendThreshold:
		return "down"
	}
	return "stable"
}

// SubmissionsForExport lists submissions newest first, optionally by status.
func (s *QueryService) SubmissionsForExport(ctx context.Context, status string) ([]domain.SubmissionWithHotel, error) {
	return s.subs.ListSubmissionsForExport(ctx, status)
}

func (s *QueryService) RecordsForExport(ctx context.Context) ([]domain.RecordWithHotel, error) {
	return s.records.ListRecordsForExport(ctx)
}
