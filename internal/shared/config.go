package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// DefaultUSDToMVR is the conversion used when no rate table lookup is configured.
const DefaultUSDToMVR = 15.42

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string

	RedisAddr        string
	RedisDB          int
	RedisPass        string
	RateLimitBackend string // memory|redis
	CacheTTL         time.Duration

	JWTSecret      string
	AuthURL        string
	AuthServiceKey string

	ResendAPIKey  string
	ResendBaseURL string
	MailFrom      string
	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	SMTPPass      string
	AppBaseURL    string

	ProofBucket        string
	AWSRegion          string
	AWSEndpoint        string
	ProofPublicBaseURL string

	USDToMVR         float64
	ExchangeRateMode string // fixed|table
	RatesAPIURL      string
	RatesAPIKey      string
	Workers          int
	BackfillMonths   int
}

// Load reads the environment, after merging an optional .env file.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg(".env could not be parsed")
	}

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	atof := func(k string, def float64) float64 {
		if v := os.Getenv(k); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
				return f
			}
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		LogLevel:    env("LOG_LEVEL", "info"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ""),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/scwatch?parseTime=true&charset=utf8mb4&loc=UTC"),

		RedisAddr:        env("REDIS_ADDR", ""),
		RedisPass:        env("REDIS_PASSWORD", ""),
		RedisDB:          atoi("REDIS_DB", 0),
		RateLimitBackend: env("RATE_LIMIT_BACKEND", "memory"),
		CacheTTL:         time.Duration(atoi("CACHE_TTL_SECONDS", 300)) * time.Second,

		JWTSecret:      env("AUTH_JWT_SECRET", ""),
		AuthURL:        env("AUTH_URL", ""),
		AuthServiceKey: env("AUTH_SERVICE_KEY", ""),

		ResendAPIKey:  env("RESEND_API_KEY", ""),
		ResendBaseURL: env("RESEND_BASE_URL", "https://api.resend.com"),
		MailFrom:      env("MAIL_FROM", "onboarding@resend.dev"),
		SMTPHost:      env("SMTP_HOST", ""),
		SMTPPort:      atoi("SMTP_PORT", 587),
		SMTPUser:      env("SMTP_USER", ""),
		SMTPPass:      env("SMTP_PASS", ""),
		AppBaseURL:    env("APP_BASE_URL", "http://localhost:3000"),

		ProofBucket:        env("PROOF_BUCKET", ""),
		AWSRegion:          env("AWS_REGION", "us-east-1"),
		AWSEndpoint:        env("AWS_ENDPOINT_URL", ""),
		ProofPublicBaseURL: env("PROOF_PUBLIC_BASE_URL", ""),

		USDToMVR:         atof("USD_MVR_RATE", DefaultUSDToMVR),
		ExchangeRateMode: env("EXCHANGE_RATE_MODE", "fixed"),
		RatesAPIURL:      env("RATES_API_URL", "https://api.exchangerate.host"),
		RatesAPIKey:      env("RATES_API_KEY", ""),
		Workers:          atoi("RATESYNC_WORKERS", 4),
		BackfillMonths:   atoi("RATESYNC_MONTHS", 12),
	}
	if c.JWTSecret == "" {
		log.Warn().Msg("AUTH_JWT_SECRET is empty; every authenticated route will answer 401")
	}
	if c.RateLimitBackend == "redis" && c.RedisAddr == "" {
		log.Warn().Msg("RATE_LIMIT_BACKEND=redis without REDIS_ADDR; using in-memory counters")
		c.RateLimitBackend = "memory"
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
