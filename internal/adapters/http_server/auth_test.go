package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify(t *testing.T) {
	a := NewAuthenticator(testSecret, nil, nil)

	p, err := a.Verify(workerToken(t))
	require.NoError(t, err)
	assert.Equal(t, "user-1", p.UserID)
	assert.Equal(t, "worker@example.com", p.Email)

	cases := map[string]string{
		"empty":      "",
		"garbage":    "not.a.jwt",
		"wrong key":  signToken(t, "other", "user-1", "", time.Now().Add(time.Hour)),
		"expired":    signToken(t, testSecret, "user-1", "", time.Now().Add(-time.Minute)),
		"no subject": signToken(t, testSecret, "", "x@example.com", time.Now().Add(time.Hour)),
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := a.Verify(tok)
			assert.Error(t, err)
		})
	}

	t.Run("alg none", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodNone, claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}})
		raw, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = a.Verify(raw)
		assert.Error(t, err)
	})

	t.Run("no secret configured", func(t *testing.T) {
		_, err := NewAuthenticator("", nil, nil).Verify(workerToken(t))
		assert.Error(t, err)
	})
}

func TestRequireUser_CookieAndHeader(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(http.MethodGet, "/v1/me", "", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(http.MethodGet, "/v1/me", workerToken(t), "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var prof struct {
		UserID  string `json:"userId"`
		IsAdmin bool   `json:"isAdmin"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prof))
	assert.Equal(t, "user-1", prof.UserID)
	assert.False(t, prof.IsAdmin)

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: adminToken(t)})
	rr := httptest.NewRecorder()
	e.mux.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &prof))
	assert.True(t, prof.IsAdmin)
}

func TestRequireUser_FailedAttemptsAreLimited(t *testing.T) {
	e := newTestEnv(t)
	bad := signToken(t, "other", "user-1", "", time.Now().Add(time.Hour))

	for i := 0; i < 5; i++ {
		rec := e.do(http.MethodGet, "/v1/me", bad, "", "")
		require.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i+1)
	}
	rec := e.do(http.MethodGet, "/v1/me", bad, "", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// valid tokens are not counted against the failure budget
	rec = e.do(http.MethodGet, "/v1/me", workerToken(t), "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(http.MethodGet, "/v1/admin/submissions", workerToken(t), "", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(http.MethodGet, "/v1/admin/submissions", "", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
