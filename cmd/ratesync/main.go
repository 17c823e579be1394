package main

import (
	"context"
	"database/sql"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"scwatch/internal/adapters/observability"
	"scwatch/internal/adapters/ratesapi"
	"scwatch/internal/app"
	"scwatch/internal/shared"
	mysqlrepo "scwatch/internal/storage/mysql"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel, "scwatch-ratesync")

	log.Info().
		Str("base", cfg.RatesAPIURL).
		Int("workers", cfg.Workers).
		Int("months", cfg.BackfillMonths).
		Msg("ratesync starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)
	client := ratesapi.New(cfg.RatesAPIURL, cfg.RatesAPIKey)
	svc := app.NewRateSyncService(client, repo, sourceName(cfg.RatesAPIURL))

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	var (
		wg     sync.WaitGroup
		failed atomic.Int32
	)

	for _, day := range app.SyncDays(time.Now(), cfg.BackfillMonths) {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(day time.Time) {
			defer wg.Done()
			defer sem.Release(1)

			if err := svc.SyncDay(ctx, day); err != nil {
				failed.Add(1)
				log.Warn().Str("date", day.Format(time.DateOnly)).Err(err).Msg("rate sync failed")
				return
			}
			log.Info().Str("date", day.Format(time.DateOnly)).Msg("rate sync ok")
		}(day)
	}

	wg.Wait()
	if n := failed.Load(); n > 0 {
		log.Fatal().Int32("failed", n).Msg("rate sync completed with failures")
	}
	log.Info().Msg("rate sync completed")
}

// sourceName labels stored rows with the provider host.
func sourceName(base string) string {
	if u, err := url.Parse(base); err == nil && u.Host != "" {
		return u.Host
	}
	return "rates-api"
}
