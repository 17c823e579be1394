package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"scwatch/internal/app"
	"scwatch/internal/domain"
	"scwatch/internal/ratelimit"
)

const (
	testSecret = "test-secret"
	hotelID    = "6f1d7c3e-2a4b-4c5d-8e9f-0a1b2c3d4e5f"
)

// stubRepo overrides the repository methods the handlers under test reach.
// Anything else panics through the nil embedded interface.
type stubRepo struct {
	domain.HotelRepository
	domain.RecordRepository
	domain.SubmissionRepository
	domain.AdminRepository
	domain.ExchangeRateRepository

	hotels  map[string]domain.Hotel
	subs    map[string]domain.SubmissionWithHotel
	records []domain.RecordWithHotel
	admins  map[string]domain.AdminUser // by user id
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		hotels: map[string]domain.Hotel{
			hotelID: {ID: hotelID, Name: "Sun Island Resort", Atoll: "South Male Atoll", Type: domain.HotelTypeResort, Status: domain.HotelActive},
		},
		subs:   map[string]domain.SubmissionWithHotel{},
		admins: map[string]domain.AdminUser{"admin-1": {ID: "a1", UserID: "admin-1", Role: app.RoleAdmin}},
	}
}

func (r *stubRepo) GetHotel(_ context.Context, id string) (domain.Hotel, error) {
	h, ok := r.hotels[id]
	if !ok {
		return domain.Hotel{}, domain.ErrNotFound
	}
	return h, nil
}

func (r *stubRepo) ListHotels(_ context.Context, q domain.HotelsQuery) ([]domain.Hotel, error) {
	var out []domain.Hotel
	for _, h := range r.hotels {
		if q.Status != "" && string(h.Status) != q.Status {
			continue
		}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *stubRepo) InsertSubmission(_ context.Context, s domain.Submission) error {
	r.subs[s.ID] = domain.SubmissionWithHotel{Submission: s, Hotel: r.hotels[s.HotelID]}
	return nil
}

func (r *stubRepo) GetSubmission(_ context.Context, id string) (domain.SubmissionWithHotel, error) {
	s, ok := r.subs[id]
	if !ok {
		return domain.SubmissionWithHotel{}, domain.ErrNotFound
	}
	return s, nil
}

func (r *stubRepo) RejectSubmission(_ context.Context, id, reviewer, reason string, at time.Time) error {
	s := r.subs[id]
	s.Status = domain.StatusRejected
	s.RejectionReason = &reason
	s.ReviewedBy = &reviewer
	s.ReviewedAt = &at
	r.subs[id] = s
	return nil
}

func (r *stubRepo) ApproveSubmission(_ context.Context, id, reviewer string, rec domain.ServiceChargeRecord) error {
	s := r.subs[id]
	s.Status = domain.StatusApproved
	s.ReviewedBy = &reviewer
	r.subs[id] = s
	r.records = append(r.records, domain.RecordWithHotel{ServiceChargeRecord: rec, Hotel: s.Hotel})
	return nil
}

func (r *stubRepo) CountSubmissionsByStatus(_ context.Context, userID string) (domain.StatusCounts, error) {
	var c domain.StatusCounts
	for _, s := range r.subs {
		if userID != "" && s.SubmitterUserID != userID {
			continue
		}
		switch s.Status {
		case domain.StatusPending:
			c.Pending++
		case domain.StatusApproved:
			c.Approved++
		case domain.StatusRejected:
			c.Rejected++
		}
	}
	return c, nil
}

func (r *stubRepo) ListSubmissions(_ context.Context, q domain.SubmissionQuery) (domain.SubmissionPage, error) {
	items := []domain.SubmissionWithHotel{}
	for _, s := range r.subs {
		if string(s.Status) == q.Status {
			items = append(items, s)
		}
	}
	return domain.SubmissionPage{Items: items, Total: len(items), Page: q.Page, Per: q.PerPage}, nil
}

func (r *stubRepo) ListSubmissionsForExport(_ context.Context, status string) ([]domain.SubmissionWithHotel, error) {
	var out []domain.SubmissionWithHotel
	for _, s := range r.subs {
		if status == "" || string(s.Status) == status {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *stubRepo) ListLeaderboard(_ context.Context, q domain.LeaderboardQuery) ([]domain.RecordWithHotel, error) {
	var out []domain.RecordWithHotel
	for _, rec := range r.records {
		if rec.Month == q.Month && rec.Year == q.Year {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TotalUSD > out[j].TotalUSD })
	return out, nil
}

func (r *stubRepo) GetAdminByUserID(_ context.Context, userID string) (domain.AdminUser, error) {
	a, ok := r.admins[userID]
	if !ok {
		return domain.AdminUser{}, domain.ErrNotFound
	}
	return a, nil
}

type testEnv struct {
	repo *stubRepo
	mux  http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := newStubRepo()
	store := ratelimit.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })
	lim := ratelimit.New(store)

	admins := app.NewAdminService(repo, nil)
	h := &Handlers{
		Queries:     app.NewQueryService(repo, repo, repo, nil, time.Minute),
		Submissions: app.NewSubmissionService(repo, repo, nil),
		Moderation:  app.NewModerationService(repo, nil, nil, app.FixedRate(15.42)),
		Hotels:      app.NewHotelService(repo, nil),
		Admins:      admins,
		Analytics:   app.NewAnalyticsService(repo, repo, repo),
		Rates:       app.NewExchangeRateService(repo),
		Now:         func() time.Time { return time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC) },
	}
	s := New()
	s.MountHandlers(h, NewAuthenticator(testSecret, admins, lim), lim)
	return &testEnv{repo: repo, mux: s.Mux()}
}

func signToken(t *testing.T, secret, sub, email string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email:            email,
		RegisteredClaims: jwt.RegisteredClaims{Subject: sub, ExpiresAt: jwt.NewNumericDate(exp)},
	})
	s, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func workerToken(t *testing.T) string {
	return signToken(t, testSecret, "user-1", "worker@example.com", time.Now().Add(time.Hour))
}

func adminToken(t *testing.T) string {
	return signToken(t, testSecret, "admin-1", "admin@example.com", time.Now().Add(time.Hour))
}

// do serves one request; body may be nil and token may be empty.
func (e *testEnv) do(method, path, token, contentType string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	req.RemoteAddr = "192.0.2.10:40000"
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}
