// Package ratelimit implements fixed-window request counters over a pluggable store.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

// Config is one named limit: at most Max requests per Window.
type Config struct {
	Name   string
	Window time.Duration
	Max    int64
}

var (
	Auth       = Config{Name: "auth", Window: 15 * time.Minute, Max: 5}
	Submission = Config{Name: "submission", Window: time.Hour, Max: 10}
	Admin      = Config{Name: "admin", Window: time.Minute, Max: 60}
	API        = Config{Name: "api", Window: time.Minute, Max: 30}
)

// CounterStore holds fixed-window counters. Incr adds one to key, starting a new
// window of length ttl when the key is absent or expired, and returns the count
// together with the instant the window closes.
type CounterStore interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, time.Time, error)
	Get(ctx context.Context, key string) (int64, time.Time, bool, error)
	Reset(ctx context.Context, key string) error
}

type Decision struct {
	Allowed    bool
	Limit      int64
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

var ErrLimited = errors.New("too many requests")

type Limiter struct {
	store CounterStore
	now   func() time.Time
}

func New(store CounterStore) *Limiter {
	return &Limiter{store: store, now: time.Now}
}

// Allow counts one request for id under cfg.
func (l *Limiter) Allow(ctx context.Context, cfg Config, id string) (Decision, error) {
	count, resetAt, err := l.store.Incr(ctx, key(cfg, id), cfg.Window)
	if err != nil {
		return Decision{Allowed: true, Limit: cfg.Max, Remaining: cfg.Max}, err
	}
	d := Decision{Limit: cfg.Max, ResetAt: resetAt}
	if count > cfg.Max {
		d.RetryAfter = resetAt.Sub(l.now())
		if d.RetryAfter < time.Second {
			d.RetryAfter = time.Second
		}
		return d, nil
	}
	d.Allowed = true
	d.Remaining = cfg.Max - count
	return d, nil
}

// Reset clears the counter for id under cfg.
func (l *Limiter) Reset(ctx context.Context, cfg Config, id string) error {
	return l.store.Reset(ctx, key(cfg, id))
}

func key(cfg Config, id string) string { return "ratelimit:" + cfg.Name + ":" + id }
