package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"scwatch/internal/adapters/observability"
	"scwatch/internal/ratelimit"
)

func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, `{"error":"Request timed out"}`)
	}
}

// recorder remembers the status code and body size written downstream.
type recorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *recorder) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *recorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func (w *recorder) code() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// routeOf prefers the matched chi pattern so metrics stay low-cardinality.
func routeOf(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &recorder{ResponseWriter: w}
		next.ServeHTTP(rw, r)
		observability.ObserveHTTP(routeOf(r), r.Method, rw.code(), time.Since(start))
	})
}

// Logger writes one structured line per request.
func Logger(l zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &recorder{ResponseWriter: w}
			next.ServeHTTP(rw, r)

			ev := l.Info()
			if rw.code() >= 500 {
				ev = l.Error()
			}
			ev.Str("route", routeOf(r)).
				Str("method", r.Method).
				Int("status", rw.code()).
				Int("bytes", rw.bytes).
				Dur("duration", time.Since(start)).
				Str("remote", ratelimit.ClientIP(r)).
				Str("request_id", chimw.GetReqID(r.Context())).
				Str("ua", r.UserAgent()).
				Msg("http_request")
		})
	}
}
