package mailer

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"scwatch/internal/adapters/observability"
)

const DefaultResendURL = "https://api.resend.com"

var (
	ErrUnauthorized = errors.New("resend: unauthorized")
	ErrRejected     = errors.New("resend: message rejected")
)

// Resend sends mail through the Resend HTTP API.
type Resend struct {
	base string
	hc   *http.Client
	key  string
	from string
	rl   *rate.Limiter
}

func NewResend(base, key, from string, rps int) (*Resend, error) {
	if key == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if base == "" {
		base = DefaultResendURL
	}
	if rps <= 0 {
		rps = 2
	}
	return &Resend{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 20 * time.Second},
		key:  key,
		from: from,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

type resendEmail struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
}

func (c *Resend) Send(ctx context.Context, m Message) error {
	body, err := json.Marshal(resendEmail{From: c.from, To: []string{m.To}, Subject: m.Subject, HTML: m.HTML, Text: m.Text})
	if err != nil {
		return err
	}
	return c.post(ctx, c.base+"/emails", body)
}

const maxAttempts = 4

// post sends body with client-side rate limiting. Transient failures
// (transport errors, 429, 5xx) are retried with backoff or the server's
// Retry-After.
func (c *Resend) post(ctx context.Context, url string, body []byte) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}
	var err error
	for i := 0; i < maxAttempts; i++ {
		var (
			wait      time.Duration
			transient bool
		)
		wait, transient, err = c.attempt(ctx, url, body)
		if err == nil || !transient || i == maxAttempts-1 {
			break
		}
		if wait == 0 {
			wait = backoff(i)
		}
		if !sleepCtx(ctx, wait) {
			return ctx.Err()
		}
	}
	return err
}

// attempt performs one POST and classifies the outcome.
func (c *Resend) attempt(ctx context.Context, url string, body []byte) (time.Duration, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, false, err
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "scwatch/1.0")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("resend", "emails", 0, time.Since(start))
		if ctx.Err() != nil {
			return 0, false, ctx.Err()
		}
		return 0, true, err
	}
	defer resp.Body.Close()
	observability.ObserveExternal("resend", "emails", resp.StatusCode, time.Since(start))

	switch code := resp.StatusCode; {
	case code >= 200 && code < 300:
		_, _ = io.Copy(io.Discard, resp.Body)
		return 0, false, nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return 0, false, ErrUnauthorized
	case code == http.StatusTooManyRequests || code >= 500:
		return retryAfter(resp), true, fmt.Errorf("resend: remote %d", code)
	default:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, false, fmt.Errorf("%w: status %d: %s", ErrRejected, code, strings.TrimSpace(string(b)))
	}
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles from 200ms per attempt with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
