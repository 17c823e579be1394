//go:build integration || !unit

package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-jwt/jwt/v5"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	server "scwatch/internal/adapters/http_server"
	"scwatch/internal/app"
	"scwatch/internal/domain"
	"scwatch/internal/ratelimit"
	mysqlrepo "scwatch/internal/storage/mysql"
)

const jwtSecret = "e2e-secret"

// ---------- helpers ----------
func mustEnv(t *testing.T, k string) string {
	t.Helper()
	v := os.Getenv(k)
	if v == "" {
		t.Skipf("%s not set; export it (e.g. MIGRATIONS_DIR=$(pwd)/migrations)", k)
	}
	return v
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := mustEnv(t, "MIGRATIONS_DIR")

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)
	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	mustEnv(t, "MIGRATIONS_DIR")

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env:        []string{"MYSQL_ROOT_PASSWORD=root", "MYSQL_DATABASE=scwatch"},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/scwatch?parseTime=true&multiStatements=true&charset=utf8mb4&loc=UTC",
		resource.GetPort("3306/tcp"))
	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)
	return db
}

func token(t *testing.T, sub, email string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   sub,
		"email": email,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString([]byte(jwtSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func call(t *testing.T, ts *httptest.Server, method, path, tok, contentType string, body []byte) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(res.Body)
	return res.StatusCode, buf.Bytes()
}

// ---------- the test ----------
func TestHTTP_EndToEnd_SubmitApproveLeaderboard(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()

	now := time.Now().UTC()
	hotel := domain.Hotel{
		ID: "6f1d7c3e-2a4b-4c5d-8e9f-0a1b2c3d4e5f", Name: "Sun Island Resort", Atoll: "South Male Atoll",
		Type: domain.HotelTypeResort, Status: domain.HotelActive, CreatedAt: now, UpdatedAt: now,
	}
	if err := repo.InsertHotel(ctx, hotel); err != nil {
		t.Fatalf("InsertHotel: %v", err)
	}
	if err := repo.InsertAdmin(ctx, domain.AdminUser{ID: "7a0c5b1e-3d2f-4a6b-9c8d-1e2f3a4b5c6d", UserID: "admin-1", Role: app.RoleAdmin, CreatedAt: now}); err != nil {
		t.Fatalf("InsertAdmin: %v", err)
	}

	store := ratelimit.NewMemoryStore()
	defer store.Close()
	lim := ratelimit.New(store)
	admins := app.NewAdminService(repo, nil)
	h := &server.Handlers{
		Queries:     app.NewQueryService(repo, repo, repo, nil, time.Minute),
		Submissions: app.NewSubmissionService(repo, repo, nil),
		Moderation:  app.NewModerationService(repo, nil, nil, app.FixedRate(15.42)),
		Hotels:      app.NewHotelService(repo, nil),
		Admins:      admins,
		Analytics:   app.NewAnalyticsService(repo, repo, repo),
		Rates:       app.NewExchangeRateService(repo),
	}
	srv := server.New()
	srv.MountHandlers(h, server.NewAuthenticator(jwtSecret, admins, lim), lim)
	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()

	worker := token(t, "user-1", "worker@example.com")
	admin := token(t, "admin-1", "admin@example.com")

	// worker submits
	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	for k, v := range map[string]string{
		"hotelId": hotel.ID, "month": "3", "year": "2025",
		"usdAmount": "2000", "mvrAmount": "10000", "position": "Chef de Partie",
	} {
		_ = mw.WriteField(k, v)
	}
	_ = mw.Close()
	status, body := call(t, ts, http.MethodPost, "/v1/submissions", worker, mw.FormDataContentType(), form.Bytes())
	if status != http.StatusCreated {
		t.Fatalf("submit: %d %s", status, body)
	}
	var created struct {
		Data domain.Submission `json:"data"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode submit: %v", err)
	}

	// worker cannot moderate
	status, _ = call(t, ts, http.MethodPost, "/v1/admin/review", worker, "application/json",
		[]byte(fmt.Sprintf(`{"submissionId":%q,"action":"approve"}`, created.Data.ID)))
	if status != http.StatusForbidden {
		t.Fatalf("worker review: want 403, got %d", status)
	}

	// admin approves
	status, body = call(t, ts, http.MethodPost, "/v1/admin/review", admin, "application/json",
		[]byte(fmt.Sprintf(`{"submissionId":%q,"action":"approve"}`, created.Data.ID)))
	if status != http.StatusOK {
		t.Fatalf("approve: %d %s", status, body)
	}

	// leaderboard shows the verified record
	status, body = call(t, ts, http.MethodGet, "/v1/leaderboard?month=3&year=2025", "", "", nil)
	if status != http.StatusOK {
		t.Fatalf("leaderboard: %d %s", status, body)
	}
	var lb domain.Leaderboard
	if err := json.Unmarshal(body, &lb); err != nil {
		t.Fatalf("decode leaderboard: %v", err)
	}
	if len(lb.Entries) != 1 || lb.Entries[0].HotelID != hotel.ID || lb.Entries[0].TotalUSD != 2648.51 {
		t.Fatalf("unexpected leaderboard: %+v", lb)
	}

	// referenced hotel is closed, not removed
	status, body = call(t, ts, http.MethodDelete, "/v1/admin/hotels/"+hotel.ID, admin, "", nil)
	if status != http.StatusOK {
		t.Fatalf("delete hotel: %d %s", status, body)
	}
	got, err := repo.GetHotel(ctx, hotel.ID)
	if err != nil || got.Status != domain.HotelClosed {
		t.Fatalf("hotel should be closed: %+v %v", got, err)
	}
}
