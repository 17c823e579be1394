package observability_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"scwatch/internal/adapters/observability"
)

func TestMetricsRegistryAndHandler(t *testing.T) {
	reg := observability.InitRegistry()

	// record one sample so counters are non-zero
	observability.ObserveHTTP("/test", "GET", 200, 12*time.Millisecond)
	observability.ObserveModeration("approve", "ok")
	observability.ObserveRateLimited("submission")

	mh := observability.MetricsHandler(reg)
	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	mh.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	out := string(body)
	for _, name := range []string{
		"scwatch_http_requests_total",
		`scwatch_moderation_actions_total{action="approve",result="ok"}`,
		`scwatch_ratelimit_rejections_total{limit="submission"}`,
	} {
		if !strings.Contains(out, name) {
			t.Fatalf("expected %s in output", name)
		}
	}
}
