package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	server "scwatch/internal/adapters/http_server"
	"scwatch/internal/adapters/identity"
	"scwatch/internal/adapters/mailer"
	"scwatch/internal/adapters/objectstore"
	"scwatch/internal/adapters/observability"
	redisad "scwatch/internal/adapters/redis"
	"scwatch/internal/app"
	"scwatch/internal/domain"
	"scwatch/internal/ratelimit"
	"scwatch/internal/shared"
	mysqlrepo "scwatch/internal/storage/mysql"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel, "scwatch-api")

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")
	repo := mysqlrepo.New(db)

	// redis backs the read cache and, optionally, the rate-limit counters
	var (
		rdb   *goredis.Client
		cache domain.Cache
	)
	if cfg.RedisAddr != "" {
		rdb = redisad.NewClient(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer rdb.Close()
		cache = redisad.New(rdb)
	}

	var counters ratelimit.CounterStore
	if cfg.RateLimitBackend == "redis" && rdb != nil {
		counters = redisad.NewCounterStore(rdb)
	} else {
		mem := ratelimit.NewMemoryStore()
		defer mem.Close()
		counters = mem
	}
	limiter := ratelimit.New(counters)

	var rates app.RateSource = app.FixedRate(cfg.USDToMVR)
	if cfg.ExchangeRateMode == "table" {
		rates = app.NewTableRate(repo, cfg.USDToMVR)
	}

	// adapters
	notifier := mailer.NewNotifier(newSender(cfg), cfg.AppBaseURL)

	var proofs domain.ProofStore
	if cfg.ProofBucket != "" {
		st, err := objectstore.New(ctx, cfg.ProofBucket, cfg.AWSRegion, cfg.AWSEndpoint, cfg.ProofPublicBaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("proof storage init failed")
		}
		proofs = st
	} else {
		log.Warn().Msg("PROOF_BUCKET is empty; submissions with proof files will fail")
	}

	var directory domain.IdentityDirectory
	if cfg.AuthURL != "" {
		dir, err := identity.New(cfg.AuthURL, cfg.AuthServiceKey)
		if err != nil {
			log.Fatal().Err(err).Msg("identity directory init failed")
		}
		directory = dir
	} else {
		log.Warn().Msg("AUTH_URL is empty; admins cannot be added")
	}

	// services
	admins := app.NewAdminService(repo, directory)
	h := &server.Handlers{
		Queries:     app.NewQueryService(repo, repo, repo, cache, cfg.CacheTTL),
		Submissions: app.NewSubmissionService(repo, repo, proofs),
		Moderation:  app.NewModerationService(repo, cache, notifier, rates),
		Hotels:      app.NewHotelService(repo, cache),
		Admins:      admins,
		Analytics:   app.NewAnalyticsService(repo, repo, repo),
		Rates:       app.NewExchangeRateService(repo),
	}

	// http
	srv := server.New()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(h, server.NewAuthenticator(cfg.JWTSecret, admins, limiter), limiter)

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown failed")
		}
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Str("rate_mode", cfg.ExchangeRateMode).Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}

// newSender picks Resend, then SMTP, then a logging no-op.
func newSender(cfg shared.Config) mailer.Sender {
	if cfg.ResendAPIKey != "" {
		s, err := mailer.NewResend(cfg.ResendBaseURL, cfg.ResendAPIKey, cfg.MailFrom, 2)
		if err == nil {
			return s
		}
		log.Warn().Err(err).Msg("resend sender disabled")
	}
	if cfg.SMTPHost != "" {
		s, err := mailer.NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom)
		if err == nil {
			return s
		}
		log.Warn().Err(err).Msg("smtp sender disabled")
	}
	log.Warn().Msg("no mail transport configured; notifications are logged only")
	return mailer.Nop{}
}
