package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"scwatch/internal/domain"
	"scwatch/internal/ratelimit"
)

// SessionCookie carries the access token for browser clients.
const SessionCookie = "sb-access-token"

type AdminChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 access tokens issued by the hosted auth service.
// Failed verifications count against the AUTH limit of the calling IP.
type Authenticator struct {
	secret  []byte
	admins  AdminChecker
	limiter *ratelimit.Limiter
}

func NewAuthenticator(secret string, admins AdminChecker, lim *ratelimit.Limiter) *Authenticator {
	return &Authenticator{secret: []byte(secret), admins: admins, limiter: lim}
}

type principalKey struct{}

func withPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the caller attached by RequireUser.
func PrincipalFrom(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(domain.Principal)
	return p, ok
}

// Verify parses raw and returns the principal it names.
func (a *Authenticator) Verify(raw string) (domain.Principal, error) {
	if len(a.secret) == 0 || raw == "" {
		return domain.Principal{}, domain.ErrUnauthenticated
	}
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: %w", domain.ErrUnauthenticated, err)
	}
	if c.Subject == "" {
		return domain.Principal{}, fmt.Errorf("%w: token has no subject", domain.ErrUnauthenticated)
	}
	return domain.Principal{UserID: c.Subject, Email: c.Email}, nil
}

func tokenFrom(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if scheme, tok, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(tok)
		}
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// RequireUser rejects requests without a valid access token.
func (a *Authenticator) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := a.Verify(tokenFrom(r))
		if err != nil {
			if a.limiter != nil {
				d, lerr := a.limiter.Allow(r.Context(), ratelimit.Auth, "ip:"+ratelimit.ClientIP(r))
				if lerr != nil {
					log.Warn().Err(lerr).Msg("auth limiter unavailable")
				} else if !d.Allowed {
					tooMany(w, ratelimit.Auth, d)
					return
				}
			}
			if tokenFrom(r) != "" {
				log.Debug().Err(err).Str("remote", ratelimit.ClientIP(r)).Msg("token rejected")
			}
			writeMsg(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), p)))
	})
}

// RequireAdmin must run after RequireUser.
func (a *Authenticator) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFrom(r.Context())
		if !ok {
			writeMsg(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		isAdmin, err := a.admins.IsAdmin(r.Context(), p.UserID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !isAdmin {
			writeMsg(w, http.StatusForbidden, "Forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}
