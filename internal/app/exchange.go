package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"scwatch/internal/domain"
)

// RateSource resolves the MVR-per-USD rate used to normalize a period.
type RateSource interface {
	USDToMVR(ctx context.Context, month, year int) float64
}

// FixedRate applies one configured rate to every period.
type FixedRate float64

func (f FixedRate) USDToMVR(context.Context, int, int) float64 { return float64(f) }

// TableRate uses the latest stored rate on or before the last day of the
// period and falls back to the fixed rate when the table has none.
type TableRate struct {
	repo     domain.ExchangeRateRepository
	fallback float64
}

func NewTableRate(repo domain.ExchangeRateRepository, fallback float64) *TableRate {
	return &TableRate{repo: repo, fallback: fallback}
}

func (t *TableRate) USDToMVR(ctx context.Context, month, year int) float64 {
	lastDay := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC)
	x, err := t.repo.LatestRateOnOrBefore(ctx, lastDay)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log.Warn().Err(err).Int("month", month).Int("year", year).Msg("exchange rate lookup failed; using fixed rate")
		}
		return t.fallback
	}
	if x.USDToMVR <= 0 {
		return t.fallback
	}
	return x.USDToMVR
}

// TotalUSD normalizes a payout to USD: usd + mvr/rate, rounded to cents.
func TotalUSD(usd float64, mvr *float64, rate float64) float64 {
	total := decimal.NewFromFloat(usd)
	if mvr != nil && *mvr != 0 && rate > 0 {
		total = total.Add(decimal.NewFromFloat(*mvr).Div(decimal.NewFromFloat(rate)))
	}
	f, _ := total.Round(2).Float64()
	return f
}

// ExchangeRateService backs the admin exchange-rate endpoints.
type ExchangeRateService struct {
	repo domain.ExchangeRateRepository
	now  func() time.Time
}

func NewExchangeRateService(repo domain.ExchangeRateRepository) *ExchangeRateService {
	return &ExchangeRateService{repo: repo, now: time.Now}
}

func (s *ExchangeRateService) List(ctx context.Context, limit int) ([]domain.ExchangeRate, error) {
	if limit <= 0 || limit > 365 {
		limit = 90
	}
	return s.repo.ListExchangeRates(ctx, limit)
}

// Add records a manually entered rate for a date, replacing any rate already
// stored for that date.
func (s *ExchangeRateService) Add(ctx context.Context, date time.Time, rate float64, source string) (domain.ExchangeRate, error) {
	verr := &domain.ValidationError{}
	if date.IsZero() {
		verr.Add("date", "Date is required (YYYY-MM-DD)")
	}
	if rate <= 0 || rate > 1000 {
		verr.Add("usd_to_mvr", "Rate must be between 0 and 1000")
	}
	if err := verr.Err(); err != nil {
		return domain.ExchangeRate{}, err
	}
	if source == "" {
		source = "manual"
	}
	x := domain.ExchangeRate{
		ID:        newID(),
		Date:      date.UTC().Truncate(24 * time.Hour),
		USDToMVR:  rate,
		Source:    &source,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.UpsertExchangeRate(ctx, x); err != nil {
		return domain.ExchangeRate{}, err
	}
	return x, nil
}
