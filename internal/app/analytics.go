package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"scwatch/internal/analytics"
	"scwatch/internal/domain"
)

type AnalyticsService struct {
	subs    domain.SubmissionRepository
	records domain.RecordRepository
	hotels  domain.HotelRepository
	now     func() time.Time
}

func NewAnalyticsService(s domain.SubmissionRepository, r domain.RecordRepository, h domain.HotelRepository) *AnalyticsService {
	return &AnalyticsService{subs: s, records: r, hotels: h, now: time.Now}
}

// Report fetches the three inputs concurrently and aggregates them.
func (s *AnalyticsService) Report(ctx context.Context) (analytics.Report, error) {
	var in analytics.Input
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		acts, err := s.subs.ListSubmissionActivity(gctx)
		in.Activity = acts
		return err
	})
	g.Go(func() error {
		totals, err := s.records.ListVerifiedTotals(gctx)
		in.Totals = totals
		return err
	})
	g.Go(func() error {
		n, err := s.hotels.CountActiveHotels(gctx)
		in.ActiveHotels = n
		return err
	})
	if err := g.Wait(); err != nil {
		return analytics.Report{}, err
	}
	in.Now = s.now().UTC()
	return analytics.Build(in), nil
}
