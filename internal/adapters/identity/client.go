// Package identity looks up accounts in the hosted auth service's admin API.
package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"scwatch/internal/adapters/observability"
	"scwatch/internal/domain"
)

const perPage = 1000

type Client struct {
	http *resty.Client
}

func New(authURL, serviceKey string) (*Client, error) {
	if authURL == "" || serviceKey == "" {
		return nil, fmt.Errorf("AUTH_URL and AUTH_SERVICE_KEY are required")
	}
	c := resty.New().
		SetBaseURL(strings.TrimRight(authURL, "/")).
		SetTimeout(10*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(300*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("apikey", serviceKey).
		SetAuthToken(serviceKey).
		SetHeader("Accept", "application/json")
	return &Client{http: c}, nil
}

type usersPage struct {
	Users []struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"users"`
}

// FindByEmail pages through the admin user list and matches case-insensitively.
func (c *Client) FindByEmail(ctx context.Context, email string) (domain.Identity, error) {
	want := strings.ToLower(strings.TrimSpace(email))
	for page := 1; ; page++ {
		var out usersPage
		start := time.Now()
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParam("page", fmt.Sprint(page)).
			SetQueryParam("per_page", fmt.Sprint(perPage)).
			SetResult(&out).
			Get("/auth/v1/admin/users")
		if err != nil {
			observability.ObserveExternal("auth", "admin_users", 0, time.Since(start))
			return domain.Identity{}, fmt.Errorf("list users: %w", err)
		}
		observability.ObserveExternal("auth", "admin_users", resp.StatusCode(), time.Since(start))
		if resp.IsError() {
			return domain.Identity{}, fmt.Errorf("list users: status %d", resp.StatusCode())
		}
		for _, u := range out.Users {
			if strings.ToLower(u.Email) == want {
				return domain.Identity{ID: u.ID, Email: u.Email}, nil
			}
		}
		if len(out.Users) < perPage {
			return domain.Identity{}, fmt.Errorf("user %s: %w", want, domain.ErrNotFound)
		}
	}
}
