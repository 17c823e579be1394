package app_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"scwatch/internal/domain"
)

// ---- in-memory store backing every repository port ----

type memStore struct {
	mu      sync.Mutex
	hotels  map[string]domain.Hotel
	subs    map[string]domain.Submission
	records map[string]domain.ServiceChargeRecord // hotel|month|year
	admins  map[string]domain.AdminUser
	rates   []domain.ExchangeRate

	approveErr error
}

func newMemStore() *memStore {
	return &memStore{
		hotels:  map[string]domain.Hotel{},
		subs:    map[string]domain.Submission{},
		records: map[string]domain.ServiceChargeRecord{},
		admins:  map[string]domain.AdminUser{},
	}
}

func recKey(hotelID string, month, year int) string {
	return fmt.Sprintf("%s|%d|%d", hotelID, month, year)
}

// hotels

func (m *memStore) ListHotels(ctx context.Context, q domain.HotelsQuery) ([]domain.Hotel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Hotel
	for _, h := range m.hotels {
		if q.Status != "" && string(h.Status) != q.Status {
			continue
		}
		if q.Search != "" && !strings.Contains(strings.ToLower(h.Name), strings.ToLower(q.Search)) {
			continue
		}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) GetHotel(ctx context.Context, id string) (domain.Hotel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hotels[id]
	if !ok {
		return domain.Hotel{}, domain.ErrNotFound
	}
	return h, nil
}

func (m *memStore) FindHotelByName(ctx context.Context, name, excludeID string) (domain.Hotel, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.hotels {
		if h.ID != excludeID && strings.EqualFold(h.Name, strings.TrimSpace(name)) {
			return h, true, nil
		}
	}
	return domain.Hotel{}, false, nil
}

func (m *memStore) InsertHotel(ctx context.Context, h domain.Hotel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hotels[h.ID] = h
	return nil
}

func (m *memStore) UpdateHotel(ctx context.Context, h domain.Hotel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.hotels[h.ID]; !ok {
		return domain.ErrNotFound
	}
	m.hotels[h.ID] = h
	return nil
}

func (m *memStore) DeleteHotel(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.hotels[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.hotels, id)
	return nil
}

func (m *memStore) CountHotelReferences(ctx context.Context, id string) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var subs, recs int
	for _, s := range m.subs {
		if s.HotelID == id {
			subs++
		}
	}
	for _, r := range m.records {
		if r.HotelID == id {
			recs++
		}
	}
	return subs, recs, nil
}

func (m *memStore) CountActiveHotels(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, h := range m.hotels {
		if h.Status == domain.HotelActive {
			n++
		}
	}
	return n, nil
}

// submissions

func (m *memStore) InsertSubmission(ctx context.Context, s domain.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[s.ID] = s
	return nil
}

func (m *memStore) UpdatePendingSubmission(ctx context.Context, s domain.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.subs[s.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Status != domain.StatusPending {
		return domain.ErrInvalidTransition
	}
	m.subs[s.ID] = s
	return nil
}

func (m *memStore) DeletePendingSubmission(ctx context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.subs[id]
	if !ok || cur.SubmitterUserID != userID {
		return domain.ErrNotFound
	}
	if cur.Status != domain.StatusPending {
		return domain.ErrInvalidTransition
	}
	delete(m.subs, id)
	return nil
}

func (m *memStore) RejectSubmission(ctx context.Context, id, reviewer, reason string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.subs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Status != domain.StatusPending {
		return domain.ErrInvalidTransition
	}
	cur.Status = domain.StatusRejected
	cur.RejectionReason = &reason
	cur.ReviewedBy = &reviewer
	cur.ReviewedAt = &at
	m.subs[id] = cur
	return nil
}

func (m *memStore) ApproveSubmission(ctx context.Context, id, reviewer string, rec domain.ServiceChargeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.approveErr != nil {
		return m.approveErr
	}
	cur, ok := m.subs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Status != domain.StatusPending {
		return domain.ErrInvalidTransition
	}
	k := recKey(rec.HotelID, rec.Month, rec.Year)
	if prev, ok := m.records[k]; ok {
		rec.ID = prev.ID
		rec.CreatedAt = prev.CreatedAt
		rec.VerificationCount = prev.VerificationCount + 1
	} else {
		rec.VerificationCount = 1
	}
	m.records[k] = rec
	cur.Status = domain.StatusApproved
	cur.ReviewedBy = &reviewer
	cur.ReviewedAt = rec.VerifiedAt
	m.subs[id] = cur
	return nil
}

func (m *memStore) withHotel(s domain.Submission) domain.SubmissionWithHotel {
	return domain.SubmissionWithHotel{Submission: s, Hotel: m.hotels[s.HotelID]}
}

func (m *memStore) GetSubmission(ctx context.Context, id string) (domain.SubmissionWithHotel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok {
		return domain.SubmissionWithHotel{}, domain.ErrNotFound
	}
	return m.withHotel(s), nil
}

func (m *memStore) ListSubmissionsByUser(ctx context.Context, userID string) ([]domain.SubmissionWithHotel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.SubmissionWithHotel
	for _, s := range m.subs {
		if s.SubmitterUserID == userID {
			out = append(out, m.withHotel(s))
		}
	}
	return out, nil
}

func (m *memStore) ListSubmissions(ctx context.Context, q domain.SubmissionQuery) (domain.SubmissionPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []domain.SubmissionWithHotel
	for _, s := range m.subs {
		if q.Status != "" && q.Status != "all" && string(s.Status) != q.Status {
			continue
		}
		all = append(all, m.withHotel(s))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	page := domain.SubmissionPage{Total: len(all), Page: q.Page, Per: q.PerPage}
	from := (q.Page - 1) * q.PerPage
	if from < len(all) {
		to := from + q.PerPage
		if to > len(all) {
			to = len(all)
		}
		page.Items = all[from:to]
	}
	return page, nil
}

func (m *memStore) ListSubmissionsForExport(ctx context.Context, status string) ([]domain.SubmissionWithHotel, error) {
	return nil, nil
}

func (m *memStore) CountSubmissionsByStatus(ctx context.Context, userID string) (domain.StatusCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var c domain.StatusCounts
	for _, s := range m.subs {
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

func (m *memStore) ListSubmissionActivity(ctx context.Context) ([]domain.SubmissionActivity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.SubmissionActivity
	for _, s := range m.subs {
		out = append(out, domain.SubmissionActivity{
			SubmitterUserID: s.SubmitterUserID,
			SubmitterEmail:  s.SubmitterEmail,
			Status:          s.Status,
			RejectionReason: s.RejectionReason,
			CreatedAt:       s.CreatedAt,
			ReviewedAt:      s.ReviewedAt,
		})
	}
	return out, nil
}

// records

func (m *memStore) GetRecord(ctx context.Context, hotelID string, month, year int) (domain.ServiceChargeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[recKey(hotelID, month, year)]
	if !ok {
		return domain.ServiceChargeRecord{}, domain.ErrNotFound
	}
	return r, nil
}

func (m *memStore) ListLeaderboard(ctx context.Context, q domain.LeaderboardQuery) ([]domain.RecordWithHotel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.RecordWithHotel
	for _, r := range m.records {
		h := m.hotels[r.HotelID]
		if r.Month != q.Month || r.Year != q.Year || h.Status != domain.HotelActive {
			continue
		}
		out = append(out, domain.RecordWithHotel{ServiceChargeRecord: r, Hotel: h})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TotalUSD > out[j].TotalUSD })
	return out, nil
}

func (m *memStore) ListHotelRecords(ctx context.Context, hotelID string, limit int) ([]domain.ServiceChargeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ServiceChargeRecord
	for _, r := range m.records {
		if r.HotelID == hotelID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Year*100+out[i].Month > out[j].Year*100+out[j].Month
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) ListRecordsForExport(ctx context.Context) ([]domain.RecordWithHotel, error) {
	return nil, nil
}

func (m *memStore) ListVerifiedTotals(ctx context.Context) ([]domain.RecordTotal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.RecordTotal
	for _, r := range m.records {
		out = append(out, domain.RecordTotal{Month: r.Month, Year: r.Year, TotalUSD: r.TotalUSD})
	}
	return out, nil
}

// admins

func (m *memStore) GetAdmin(ctx context.Context, id string) (domain.AdminUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.admins[id]
	if !ok {
		return domain.AdminUser{}, domain.ErrNotFound
	}
	return a, nil
}

func (m *memStore) GetAdminByUserID(ctx context.Context, userID string) (domain.AdminUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.admins {
		if a.UserID == userID {
			return a, nil
		}
	}
	return domain.AdminUser{}, domain.ErrNotFound
}

func (m *memStore) ListAdmins(ctx context.Context) ([]domain.AdminUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AdminUser
	for _, a := range m.admins {
		out = append(out, a)
	}
	return out, nil
}

func (m *memStore) InsertAdmin(ctx context.Context, a domain.AdminUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.admins[a.ID] = a
	return nil
}

func (m *memStore) DeleteAdmin(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.admins[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.admins, id)
	return nil
}

func (m *memStore) CountAdmins(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.admins), nil
}

// exchange rates

func (m *memStore) UpsertExchangeRate(ctx context.Context, x domain.ExchangeRate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.rates {
		if r.Date.Equal(x.Date) {
			m.rates[i].USDToMVR = x.USDToMVR
			m.rates[i].Source = x.Source
			return nil
		}
	}
	m.rates = append(m.rates, x)
	return nil
}

func (m *memStore) ListExchangeRates(ctx context.Context, limit int) ([]domain.ExchangeRate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ExchangeRate(nil), m.rates...), nil
}

func (m *memStore) LatestRateOnOrBefore(ctx context.Context, t time.Time) (domain.ExchangeRate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *domain.ExchangeRate
	for i := range m.rates {
		r := m.rates[i]
		if !r.Date.After(t) && (best == nil || r.Date.After(best.Date)) {
			best = &m.rates[i]
		}
	}
	if best == nil {
		return domain.ExchangeRate{}, domain.ErrNotFound
	}
	return *best, nil
}

// ---- other ports ----

type fakeCache struct {
	store      map[string]any
	dels       []string
	prefixDels []string
	delErr     error
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	if c.store == nil {
		return false, nil
	}
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	switch d := dst.(type) {
	case *domain.Leaderboard:
		*d = v.(domain.Leaderboard)
	case *domain.HotelProfile:
		*d = v.(domain.HotelProfile)
	}
	return true, nil
}
func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string]any{}
	}
	c.store[key] = v
	return nil
}
func (c *fakeCache) Del(ctx context.Context, key string) error {
	if c.delErr != nil {
		return c.delErr
	}
	c.dels = append(c.dels, key)
	delete(c.store, key)
	return nil
}
func (c *fakeCache) DelPrefix(ctx context.Context, prefix string) error {
	if c.delErr != nil {
		return c.delErr
	}
	c.prefixDels = append(c.prefixDels, prefix)
	for k := range c.store {
		if strings.HasPrefix(k, prefix) {
			delete(c.store, k)
		}
	}
	return nil
}

type fakeNotifier struct {
	approved []domain.ApprovalNotice
	rejected []domain.RejectionNotice
	err      error
}

func (n *fakeNotifier) SubmissionApproved(ctx context.Context, a domain.ApprovalNotice) error {
	n.approved = append(n.approved, a)
	return n.err
}
func (n *fakeNotifier) SubmissionRejected(ctx context.Context, r domain.RejectionNotice) error {
	n.rejected = append(n.rejected, r)
	return n.err
}

type fakeProofStore struct {
	keys []string
	err  error
}

func (p *fakeProofStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.keys = append(p.keys, key)
	return "https://proofs.example/" + key, nil
}

type fakeDirectory struct{ users map[string]domain.Identity }

func (d fakeDirectory) FindByEmail(ctx context.Context, email string) (domain.Identity, error) {
	if id, ok := d.users[strings.ToLower(email)]; ok {
		return id, nil
	}
	return domain.Identity{}, domain.ErrNotFound
}

type fakeRates struct {
	payload map[string]any
	err     error
	calls   []time.Time
}

func (f *fakeRates) RateOn(ctx context.Context, day time.Time) (map[string]any, error) {
	f.calls = append(f.calls, day)
	return f.payload, f.err
}

var errBoom = errors.New("boom")

// ---- fixtures ----

const (
	hotelA = "6f1f3a3e-8f7c-4c1e-9f7a-0d9b2f1a0001"
	hotelB = "6f1f3a3e-8f7c-4c1e-9f7a-0d9b2f1a0002"
)

var (
	worker = domain.Principal{UserID: "user-1", Email: "worker@example.com"}
	admin  = domain.Principal{UserID: "admin-1", Email: "admin@example.com"}
	t0     = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
)

func seedHotel(m *memStore, id, name string, status domain.HotelStatus) domain.Hotel {
	h := domain.Hotel{ID: id, Name: name, Atoll: "Baa Atoll", Type: domain.HotelTypeResort, Status: status, CreatedAt: t0, UpdatedAt: t0}
	m.hotels[id] = h
	return h
}

func seedSubmission(m *memStore, id, hotelID string, usd float64, mvr *float64) domain.Submission {
	s := domain.Submission{
		ID:              id,
		HotelID:         hotelID,
		Month:           3,
		Year:            2025,
		USDAmount:       usd,
		MVRAmount:       mvr,
		Position:        "Waiter",
		SubmitterEmail:  worker.Email,
		SubmitterUserID: worker.UserID,
		Status:          domain.StatusPending,
		CreatedAt:       t0,
		UpdatedAt:       t0,
	}
	m.subs[id] = s
	return s
}

func ptr[T any](v T) *T { return &v }
