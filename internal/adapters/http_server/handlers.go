package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"scwatch/internal/app"
	"scwatch/internal/domain"
	"scwatch/internal/ratelimit"
	"scwatch/internal/validation"
)

// maxUpload bounds a multipart submission: the proof plus form fields.
const maxUpload = validation.MaxProofBytes + 1<<20

type Handlers struct {
	Queries     *app.QueryService
	Submissions *app.SubmissionService
	Moderation  *app.ModerationService
	Hotels      *app.HotelService
	Admins      *app.AdminService
	Analytics   *app.AnalyticsService
	Rates       *app.ExchangeRateService

	Now func() time.Time
}

func (h *Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (s *Server) MountHandlers(h *Handlers, auth *Authenticator, lim *ratelimit.Limiter) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/v1", func(r chi.Router) {
		// public reads
		r.Group(func(r chi.Router) {
			r.Use(RateLimit(lim, ratelimit.API, ByIP))
			r.Get("/leaderboard", h.leaderboard)
			r.Get("/hotels", h.listHotels)
			r.Get("/hotels/{id}", h.getHotel)
			r.Get("/compare", h.compare)
		})

		// signed-in workers
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireUser)
			r.With(RateLimit(lim, ratelimit.Submission, ByUser)).Post("/submissions", h.createSubmission)
			r.Group(func(r chi.Router) {
				r.Use(RateLimit(lim, ratelimit.API, ByUser))
				r.Get("/me", h.me)
				r.Get("/submissions/mine", h.mySubmissions)
				r.Patch("/submissions/{id}", h.updateSubmission)
				r.Delete("/submissions/{id}", h.deleteSubmission)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireUser, auth.RequireAdmin)
			r.Use(RateLimit(lim, ratelimit.Admin, ByUser))
			r.Get("/submissions", h.adminQueue)
			r.Post("/review", h.review)
			r.Post("/bulk-review", h.bulkReview)
			r.Get("/hotels", h.adminHotels)
			r.Post("/hotels", h.createHotel)
			r.Put("/hotels/{id}", h.updateHotel)
			r.Delete("/hotels/{id}", h.deleteHotel)
			r.Get("/users", h.listAdmins)
			r.Post("/users", h.addAdmin)
			r.Delete("/users", h.removeAdmin)
			r.Get("/analytics", h.analytics)
			r.Get("/export/{kind}", h.export)
			r.Get("/exchange-rates", h.listRates)
			r.Post("/exchange-rates", h.addRate)
		})
	})
}

// queryInt reads an optional integer parameter, recording malformed values on verr.
func queryInt(r *http.Request, key string, verr *domain.ValidationError) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		verr.Add(key, "must be an integer")
	}
	return n
}

func queryFloat(r *http.Request, key string, verr *domain.ValidationError) *float64 {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		verr.Add(key, "must be a number")
		return nil
	}
	return &f
}

func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		verr := &domain.ValidationError{}
		verr.Add("body", "must be a valid JSON object")
		return verr
	}
	return nil
}

func principal(r *http.Request) domain.Principal {
	p, _ := PrincipalFrom(r.Context())
	return p
}

// ---- public ----

func (h *Handlers) leaderboard(w http.ResponseWriter, r *http.Request) {
	verr := &domain.ValidationError{}
	q := domain.LeaderboardQuery{
		Month: queryInt(r, "month", verr),
		Year:  queryInt(r, "year", verr),
		Atoll: r.URL.Query().Get("atoll"),
		Type:  r.URL.Query().Get("type"),
	}
	if err := verr.Err(); err != nil {
		writeError(w, r, err)
		return
	}
	lb, err := h.Queries.Leaderboard(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCacheable(w, r, lb)
}

func (h *Handlers) listHotels(w http.ResponseWriter, r *http.Request) {
	q := domain.HotelsQuery{
		Search: r.URL.Query().Get("search"),
		Atoll:  r.URL.Query().Get("atoll"),
		Type:   r.URL.Query().Get("type"),
	}
	out, err := h.Queries.PublicHotels(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCacheable(w, r, out)
}

func (h *Handlers) getHotel(w http.ResponseWriter, r *http.Request) {
	hp, err := h.Queries.HotelProfile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeMsg(w, http.StatusNotFound, "Hotel not found")
			return
		}
		writeError(w, r, err)
		return
	}
	writeCacheable(w, r, hp)
}

func (h *Handlers) compare(w http.ResponseWriter, r *http.Request) {
	ids := strings.Split(r.URL.Query().Get("hotels"), ",")
	out, err := h.Queries.Compare(r.Context(), ids)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCacheable(w, r, map[string]any{"hotels": out})
}

// ---- workers ----

func (h *Handlers) me(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	isAdmin, err := h.Admins.IsAdmin(r.Context(), p.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	prof, err := h.Submissions.Profile(r.Context(), p, isAdmin)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prof)
}

func (h *Handlers) createSubmission(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		verr := &domain.ValidationError{}
		if errors.As(err, &tooLarge) {
			verr.Add("proof_file", "must be 5MB or smaller")
		} else {
			verr.Add("body", "must be multipart/form-data")
		}
		writeError(w, r, verr)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	proof, err := proofFromForm(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sub, err := h.Submissions.Create(r.Context(), principal(r), validation.SubmissionFromForm(r.MultipartForm.Value), proof)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "data": sub})
}

// proofFromForm returns nil when no proof file was attached.
func proofFromForm(r *http.Request) (*domain.ProofFile, error) {
	f, hdr, err := r.FormFile("proofFile")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if hdr.Size == 0 {
		return nil, nil
	}
	data, err := io.ReadAll(io.LimitReader(f, validation.MaxProofBytes+1))
	if err != nil {
		return nil, err
	}
	return &domain.ProofFile{Name: hdr.Filename, ContentType: hdr.Header.Get("Content-Type"), Data: data}, nil
}

func (h *Handlers) mySubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.Submissions.Mine(r.Context(), principal(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if subs == nil {
		subs = []domain.SubmissionWithHotel{}
	}
	writeJSON(w, http.StatusOK, subs)
}

func (h *Handlers) updateSubmission(w http.ResponseWriter, r *http.Request) {
	var p validation.SubmissionPayload
	if err := decode(r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	sub, err := h.Submissions.Update(r.Context(), principal(r), chi.URLParam(r, "id"), p, nil)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": sub})
}

func (h *Handlers) deleteSubmission(w http.ResponseWriter, r *http.Request) {
	if err := h.Submissions.Delete(r.Context(), principal(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// ---- admin: moderation ----

func (h *Handlers) adminQueue(w http.ResponseWriter, r *http.Request) {
	verr := &domain.ValidationError{}
	q := domain.SubmissionQuery{
		Status:    r.URL.Query().Get("status"),
		HotelID:   r.URL.Query().Get("hotel"),
		Atoll:     r.URL.Query().Get("atoll"),
		Month:     queryInt(r, "month", verr),
		Year:      queryInt(r, "year", verr),
		MinAmount: queryFloat(r, "min_amount", verr),
		MaxAmount: queryFloat(r, "max_amount", verr),
		Page:      queryInt(r, "page", verr),
		PerPage:   queryInt(r, "per_page", verr),
	}
	if err := verr.Err(); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Queries.AdminQueue(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type reviewRequest struct {
	SubmissionID    string `json:"submissionId"`
	Action          string `json:"action"`
	RejectionReason string `json:"rejectionReason"`
}

func (h *Handlers) review(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.SubmissionID) == "" {
		verr := &domain.ValidationError{}
		verr.Add("submissionId", "Submission id is required")
		writeError(w, r, verr)
		return
	}
	err := h.Moderation.Review(r.Context(), principal(r), req.SubmissionID, app.Action(req.Action), req.RejectionReason)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeMsg(w, http.StatusNotFound, "Submission not found")
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

type bulkReviewRequest struct {
	SubmissionIDs   []string `json:"submissionIds"`
	Action          string   `json:"action"`
	RejectionReason string   `json:"rejectionReason"`
}

func (h *Handlers) bulkReview(w http.ResponseWriter, r *http.Request) {
	var req bulkReviewRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.Moderation.BulkReview(r.Context(), principal(r), req.SubmissionIDs, app.Action(req.Action), req.RejectionReason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   res.Count,
		"action":  req.Action,
		"results": res.Results,
	})
}

// ---- admin: hotels ----

func (h *Handlers) adminHotels(w http.ResponseWriter, r *http.Request) {
	q := domain.HotelsQuery{
		Search: r.URL.Query().Get("search"),
		Atoll:  r.URL.Query().Get("atoll"),
		Type:   r.URL.Query().Get("type"),
		Status: r.URL.Query().Get("status"),
	}
	out, err := h.Hotels.List(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) createHotel(w http.ResponseWriter, r *http.Request) {
	var p validation.HotelPayload
	if err := decode(r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	hotel, err := h.Hotels.Create(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "hotel": hotel, "message": "Hotel created successfully"})
}

func (h *Handlers) updateHotel(w http.ResponseWriter, r *http.Request) {
	var p validation.HotelPayload
	if err := decode(r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	hotel, err := h.Hotels.Update(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeMsg(w, http.StatusNotFound, "Hotel not found")
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "hotel": hotel, "message": "Hotel updated successfully"})
}

func (h *Handlers) deleteHotel(w http.ResponseWriter, r *http.Request) {
	out, err := h.Hotels.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeMsg(w, http.StatusNotFound, "Hotel not found")
			return
		}
		writeError(w, r, err)
		return
	}
	if out.Closed {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "hotel": out.Hotel, "message": "Hotel marked as closed (has existing data)"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Hotel deleted successfully"})
}

// ---- admin: users ----

func (h *Handlers) listAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := h.Admins.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if admins == nil {
		admins = []domain.AdminUser{}
	}
	writeJSON(w, http.StatusOK, admins)
}

func (h *Handlers) addAdmin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := h.Admins.Add(r.Context(), principal(r), req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeMsg(w, http.StatusNotFound, "User not found. They must sign up first.")
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "admin": a})
}

func (h *Handlers) removeAdmin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AdminID string `json:"adminId"`
	}
	if id := r.URL.Query().Get("id"); id != "" {
		req.AdminID = id
	} else if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Admins.Remove(r.Context(), principal(r), req.AdminID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeMsg(w, http.StatusNotFound, "Admin not found")
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// ---- admin: analytics & rates ----

func (h *Handlers) analytics(w http.ResponseWriter, r *http.Request) {
	rep, err := h.Analytics.Report(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *Handlers) listRates(w http.ResponseWriter, r *http.Request) {
	verr := &domain.ValidationError{}
	limit := queryInt(r, "limit", verr)
	if err := verr.Err(); err != nil {
		writeError(w, r, err)
		return
	}
	rates, err := h.Rates.List(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rates == nil {
		rates = []domain.ExchangeRate{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"rates": rates})
}

func (h *Handlers) addRate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date     string  `json:"date"`
		USDToMVR float64 `json:"usd_to_mvr"`
		Source   string  `json:"source"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	// an unparsable date is reported by the service as a zero date
	day, _ := time.Parse(time.DateOnly, strings.TrimSpace(req.Date))
	x, err := h.Rates.Add(r.Context(), day, req.USDToMVR, req.Source)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "rate": x})
}
