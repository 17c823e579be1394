package httpserver

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"scwatch/internal/adapters/observability"
	"scwatch/internal/ratelimit"
)

// KeyFunc picks the identifier a request is counted under.
type KeyFunc func(r *http.Request) string

func ByIP(r *http.Request) string { return "ip:" + ratelimit.ClientIP(r) }

// ByUser counts per authenticated user, falling back to the client IP.
func ByUser(r *http.Request) string {
	if p, ok := PrincipalFrom(r.Context()); ok && p.UserID != "" {
		return "user:" + p.UserID
	}
	return ByIP(r)
}

// RateLimit enforces cfg per key. A nil limiter disables the check and
// store errors let the request through.
func RateLimit(l *ratelimit.Limiter, cfg ratelimit.Config, key KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, err := l.Allow(r.Context(), cfg, key(r))
			if err != nil {
				log.Warn().Err(err).Str("limit", cfg.Name).Msg("rate limit store unavailable; allowing request")
				next.ServeHTTP(w, r)
				return
			}
			if !d.Allowed {
				tooMany(w, cfg, d)
				return
			}
			setLimitHeaders(w, d)
			next.ServeHTTP(w, r)
		})
	}
}

func setLimitHeaders(w http.ResponseWriter, d ratelimit.Decision) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.FormatInt(d.Limit, 10))
	h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
	if !d.ResetAt.IsZero() {
		h.Set("X-RateLimit-Reset", d.ResetAt.UTC().Format(time.RFC3339))
	}
}

type limitedBody struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter"`
}

func tooMany(w http.ResponseWriter, cfg ratelimit.Config, d ratelimit.Decision) {
	observability.ObserveRateLimited(cfg.Name)
	secs := int(math.Ceil(d.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	setLimitHeaders(w, d)
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	writeJSON(w, http.StatusTooManyRequests, limitedBody{
		Error:      "Too many requests",
		Message:    "Rate limit exceeded. Try again in " + strconv.Itoa(secs) + " seconds.",
		RetryAfter: secs,
	})
}
