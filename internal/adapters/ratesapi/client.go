// Package ratesapi fetches historical USD->MVR quotes.
package ratesapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"scwatch/internal/adapters/observability"
	"scwatch/internal/domain"
)

type Client struct {
	http *resty.Client
	key  string
}

func New(baseURL, key string) *Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(20*time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(5*time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err == nil && (r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500)
		}).
		SetHeader("Accept", "application/json")
	return &Client{http: c, key: key}
}

// RateOn returns the raw provider payload for date. Mapping to a rate is
// left to the caller since providers disagree on shape.
func (c *Client) RateOn(ctx context.Context, date time.Time) (map[string]any, error) {
	req := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"date":       date.UTC().Format("2006-01-02"),
			"source":     "USD",
			"currencies": "MVR",
		})
	if c.key != "" {
		req.SetQueryParam("access_key", c.key)
	}
	var out map[string]any
	start := time.Now()
	resp, err := req.SetResult(&out).Get("/historical")
	if err != nil {
		observability.ObserveExternal("rates", "historical", 0, time.Since(start))
		return nil, fmt.Errorf("rates api: %w", err)
	}
	observability.ObserveExternal("rates", "historical", resp.StatusCode(), time.Since(start))
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, fmt.Errorf("rates for %s: %w", date.Format("2006-01-02"), domain.ErrNotFound)
	case resp.StatusCode() == http.StatusUnauthorized:
		return nil, fmt.Errorf("rates api: status 401: %w", domain.ErrUnauthenticated)
	case resp.StatusCode() == http.StatusForbidden:
		return nil, fmt.Errorf("rates api: status 403: %w", domain.ErrForbidden)
	case resp.IsError():
		return nil, fmt.Errorf("rates api: status %d", resp.StatusCode())
	}
	return out, nil
}
