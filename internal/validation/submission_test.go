package validation_test

import (
	"errors"
	"math"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scwatch/internal/domain"
	"scwatch/internal/validation"
)

const hotelID = "0b8f2a3e-4c1d-4f7a-9a51-6c2f0e7d1b23"

func ptr[T any](v T) *T { return &v }

func validPayload() validation.SubmissionPayload {
	return validation.SubmissionPayload{
		HotelID:   hotelID,
		Month:     ptr(3),
		Year:      ptr(2025),
		USDAmount: ptr(2000.0),
		MVRAmount: ptr(10000.0),
		Position:  "Bartender",
	}
}

func fieldsOf(t *testing.T, err error) []string {
	t.Helper()
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr), "expected *domain.ValidationError, got %v", err)
	out := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		out = append(out, f.Field)
	}
	return out
}

func TestSubmission_Valid(t *testing.T) {
	in, err := validation.Submission(validPayload())
	require.NoError(t, err)
	assert.Equal(t, hotelID, in.HotelID)
	assert.Equal(t, 3, in.Month)
	assert.Equal(t, 2025, in.Year)
	assert.Equal(t, 2000.0, in.USDAmount)
	require.NotNil(t, in.MVRAmount)
	assert.Equal(t, 10000.0, *in.MVRAmount)
}

func TestSubmission_Boundaries(t *testing.T) {
	p := validPayload()
	p.Month, p.Year = ptr(12), ptr(2100)
	p.USDAmount, p.MVRAmount = ptr(0.0), nil
	p.Position = strings.Repeat("x", 100)
	_, err := validation.Submission(p)
	assert.NoError(t, err)

	p.Month, p.Year = ptr(1), ptr(2020)
	p.USDAmount, p.MVRAmount = ptr(100000.0), ptr(2000000.0)
	_, err = validation.Submission(p)
	assert.NoError(t, err)
}

func TestSubmission_EachFieldOutOfRange(t *testing.T) {
	cases := []struct {
		field  string
		mutate func(*validation.SubmissionPayload)
	}{
		{"hotel_id", func(p *validation.SubmissionPayload) { p.HotelID = "not-a-uuid" }},
		{"month", func(p *validation.SubmissionPayload) { p.Month = ptr(0) }},
		{"month", func(p *validation.SubmissionPayload) { p.Month = ptr(13) }},
		{"year", func(p *validation.SubmissionPayload) { p.Year = ptr(2019) }},
		{"year", func(p *validation.SubmissionPayload) { p.Year = ptr(2101) }},
		{"usd_amount", func(p *validation.SubmissionPayload) { p.USDAmount = ptr(-1.0) }},
		{"usd_amount", func(p *validation.SubmissionPayload) { p.USDAmount = ptr(100000.01) }},
		{"usd_amount", func(p *validation.SubmissionPayload) { p.USDAmount = nil }},
		{"mvr_amount", func(p *validation.SubmissionPayload) { p.MVRAmount = ptr(-5.0) }},
		{"mvr_amount", func(p *validation.SubmissionPayload) { p.MVRAmount = ptr(2000000.5) }},
		{"position", func(p *validation.SubmissionPayload) { p.Position = "   " }},
		{"position", func(p *validation.SubmissionPayload) { p.Position = strings.Repeat("y", 101) }},
	}
	for _, tc := range cases {
		p := validPayload()
		tc.mutate(&p)
		_, err := validation.Submission(p)
		assert.Equal(t, []string{tc.field}, fieldsOf(t, err), "mutating %s", tc.field)
	}
}

func TestSubmission_ReportsEveryViolation(t *testing.T) {
	_, err := validation.Submission(validation.SubmissionPayload{})
	assert.ElementsMatch(t,
		[]string{"hotel_id", "month", "year", "usd_amount", "position"},
		fieldsOf(t, err))
}

func TestSubmissionFromForm(t *testing.T) {
	form := url.Values{
		"hotelId":   {hotelID},
		"month":     {"3"},
		"year":      {"2025"},
		"usdAmount": {"2000"},
		"mvrAmount": {""},
		"position":  {"Chef"},
	}
	in, err := validation.Submission(validation.SubmissionFromForm(form))
	require.NoError(t, err)
	assert.Nil(t, in.MVRAmount)
	assert.Equal(t, "Chef", in.Position)

	form.Set("usdAmount", "lots")
	_, err = validation.Submission(validation.SubmissionFromForm(form))
	assert.Equal(t, []string{"usd_amount"}, fieldsOf(t, err))

	for _, bad := range []string{"NaN", "nan", "Inf", "-Inf", "+infinity"} {
		form.Set("usdAmount", bad)
		form.Set("mvrAmount", bad)
		_, err = validation.Submission(validation.SubmissionFromForm(form))
		assert.Equal(t, []string{"usd_amount", "mvr_amount"}, fieldsOf(t, err), bad)
	}
}

func TestSubmission_NonFiniteAmounts(t *testing.T) {
	p := validPayload()
	p.USDAmount = ptr(math.NaN())
	p.MVRAmount = ptr(math.Inf(1))
	_, err := validation.Submission(p)
	assert.Equal(t, []string{"usd_amount", "mvr_amount"}, fieldsOf(t, err))
}

func TestProof(t *testing.T) {
	png := append([]byte("\x89PNG\x0D\x0A\x1A\x0A"), make([]byte, 32)...)
	ext, err := validation.Proof(domain.ProofFile{Name: "slip.png", Data: png})
	require.NoError(t, err)
	assert.Equal(t, "png", ext)

	pdf := []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")
	ext, err = validation.Proof(domain.ProofFile{Name: "slip.pdf", Data: pdf})
	require.NoError(t, err)
	assert.Equal(t, "pdf", ext)

	_, err = validation.Proof(domain.ProofFile{Name: "notes.txt", Data: []byte("hello world")})
	assert.Equal(t, []string{"proof_file"}, fieldsOf(t, err))

	big := make([]byte, validation.MaxProofBytes+1)
	_, err = validation.Proof(domain.ProofFile{Name: "big.png", Data: big})
	assert.Equal(t, []string{"proof_file"}, fieldsOf(t, err))
}
