// Package validation checks worker and admin payloads before they reach the store.
package validation

import (
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"scwatch/internal/domain"
)

const (
	MinYear        = 2020
	MaxYear        = 2100
	MaxUSDAmount   = 100000
	MaxMVRAmount   = 2000000
	MaxPositionLen = 100
	MaxProofBytes  = 5 << 20
)

var proofTypes = map[string]string{
	"image/jpeg":      "jpg",
	"image/png":       "png",
	"image/webp":      "webp",
	"application/pdf": "pdf",
}

// SubmissionPayload is the raw worker payload. Numeric fields are nil when absent.
type SubmissionPayload struct {
	HotelID   string   `json:"hotel_id"`
	Month     *int     `json:"month"`
	Year      *int     `json:"year"`
	USDAmount *float64 `json:"usd_amount"`
	MVRAmount *float64 `json:"mvr_amount"`
	Position  string   `json:"position"`

	malformed []string
}

// SubmissionFromForm reads the multipart/urlencoded field names used by the
// submission form. Values that are present but not numbers are reported by Submission.
func SubmissionFromForm(form url.Values) SubmissionPayload {
	p := SubmissionPayload{
		HotelID:  strings.TrimSpace(form.Get("hotelId")),
		Position: form.Get("position"),
	}
	p.Month = p.intField(form, "month")
	p.Year = p.intField(form, "year")
	p.USDAmount = p.floatField(form, "usdAmount", "usd_amount")
	p.MVRAmount = p.floatField(form, "mvrAmount", "mvr_amount")
	return p
}

func (p *SubmissionPayload) intField(form url.Values, key string) *int {
	raw := strings.TrimSpace(form.Get(key))
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.malformed = append(p.malformed, key)
		return nil
	}
	return &n
}

func (p *SubmissionPayload) floatField(form url.Values, key, field string) *float64 {
	raw := strings.TrimSpace(form.Get(key))
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		p.malformed = append(p.malformed, field)
		return nil
	}
	return &f
}

func (p SubmissionPayload) isMalformed(field string) bool {
	for _, m := range p.malformed {
		if m == field {
			return true
		}
	}
	return false
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// Submission validates p and returns the normalized input, or a
// *domain.ValidationError naming every rejected field.
func Submission(p SubmissionPayload) (domain.SubmissionInput, error) {
	verr := &domain.ValidationError{}

	hotelID := strings.TrimSpace(p.HotelID)
	if _, err := uuid.Parse(hotelID); err != nil {
		verr.Add("hotel_id", "Please select a hotel")
	}

	switch {
	case p.isMalformed("month"):
		verr.Add("month", "must be a number")
	case p.Month == nil:
		verr.Add("month", "is required")
	case *p.Month < 1 || *p.Month > 12:
		verr.Add("month", "Invalid month")
	}

	switch {
	case p.isMalformed("year"):
		verr.Add("year", "must be a number")
	case p.Year == nil:
		verr.Add("year", "is required")
	case *p.Year < MinYear || *p.Year > MaxYear:
		verr.Add("year", "Invalid year")
	}

	switch {
	case p.isMalformed("usd_amount"):
		verr.Add("usd_amount", "must be a number")
	case p.USDAmount == nil:
		verr.Add("usd_amount", "is required")
	case !finite(*p.USDAmount):
		verr.Add("usd_amount", "must be a number")
	case *p.USDAmount < 0:
		verr.Add("usd_amount", "USD amount must be positive")
	case *p.USDAmount > MaxUSDAmount:
		verr.Add("usd_amount", "Amount seems unusually high")
	}

	switch {
	case p.isMalformed("mvr_amount"):
		verr.Add("mvr_amount", "must be a number")
	case p.MVRAmount == nil:
	case !finite(*p.MVRAmount):
		verr.Add("mvr_amount", "must be a number")
	case *p.MVRAmount < 0:
		verr.Add("mvr_amount", "MVR amount must be positive")
	case *p.MVRAmount > MaxMVRAmount:
		verr.Add("mvr_amount", "Amount seems unusually high")
	}

	position := strings.TrimSpace(p.Position)
	switch {
	case position == "":
		verr.Add("position", "Position is required")
	case utf8.RuneCountInString(position) > MaxPositionLen:
		verr.Add("position", "must be at most 100 characters")
	}

	if err := verr.Err(); err != nil {
		return domain.SubmissionInput{}, err
	}
	return domain.SubmissionInput{
		HotelID:   hotelID,
		Month:     *p.Month,
		Year:      *p.Year,
		USDAmount: *p.USDAmount,
		MVRAmount: p.MVRAmount,
		Position:  position,
	}, nil
}

// Proof checks an uploaded proof file and returns the file extension to store it under.
func Proof(f domain.ProofFile) (string, error) {
	verr := &domain.ValidationError{}
	if len(f.Data) > MaxProofBytes {
		verr.Add("proof_file", "must be 5MB or smaller")
		return "", verr
	}
	ct := http.DetectContentType(f.Data)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	ext, ok := proofTypes[ct]
	if !ok {
		verr.Add("proof_file", "must be a JPEG, PNG, WebP image or a PDF")
		return "", verr
	}
	return ext, nil
}
