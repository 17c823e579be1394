package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"scwatch/internal/domain"
)

// RateSyncService copies published USD->MVR rates into the exchange_rates table.
type RateSyncService struct {
	provider domain.RatesProvider
	repo     domain.ExchangeRateRepository
	source   string
	now      func() time.Time
}

func NewRateSyncService(p domain.RatesProvider, r domain.ExchangeRateRepository, source string) *RateSyncService {
	return &RateSyncService{provider: p, repo: r, source: source, now: time.Now}
}

// SyncDay stores the rate published for day. Days the provider does not
// know, or refuses to serve, are logged and skipped.
func (s *RateSyncService) SyncDay(ctx context.Context, day time.Time) error {
	payload, err := s.provider.RateOn(ctx, day)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			log.Warn().Str("date", day.Format("2006-01-02")).Msg("no rate published")
			return nil
		case errors.Is(err, domain.ErrUnauthenticated), errors.Is(err, domain.ErrForbidden):
			log.Warn().Err(err).Str("date", day.Format("2006-01-02")).Msg("rates api refused request")
			return nil
		}
		return err
	}

	x, ok := mapRate(day, payload, s.source)
	if !ok {
		log.Warn().Str("date", day.Format("2006-01-02")).Msg("rates payload had no MVR quote")
		return nil
	}
	x.CreatedAt = s.now().UTC()
	if err := s.repo.UpsertExchangeRate(ctx, x); err != nil {
		return fmt.Errorf("upsert rate for %s: %w", day.Format("2006-01-02"), err)
	}
	return nil
}

// SyncDays returns the month-end dates of the last n months, newest first.
// The current month contributes today instead of its last day.
func SyncDays(now time.Time, n int) []time.Time {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		if i == 0 {
			out = append(out, today)
			continue
		}
		// day 0 of month m is the last day of month m-1
		out = append(out, time.Date(now.Year(), now.Month()-time.Month(i-1), 0, 0, 0, 0, 0, time.UTC))
	}
	return out
}
