package validation

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"scwatch/internal/domain"
)

const (
	MaxHotelNameLen = 200
	MaxStaffCount   = 100000
)

// HotelPayload is the admin create/update body. Absent fields are nil.
type HotelPayload struct {
	Name       *string `json:"name"`
	Atoll      *string `json:"atoll"`
	Type       *string `json:"type"`
	StaffCount *int    `json:"staff_count"`
	Status     *string `json:"status"`

	// ClearStaffCount is set when the body carries an explicit "staff_count": null.
	ClearStaffCount bool `json:"-"`
}

func (p *HotelPayload) UnmarshalJSON(b []byte) error {
	type plain HotelPayload
	if err := json.Unmarshal(b, (*plain)(p)); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if v, ok := raw["staff_count"]; ok && bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		p.ClearStaffCount = true
	}
	return nil
}

// HotelCreate requires name, atoll and type; status defaults to active.
func HotelCreate(p HotelPayload) (domain.HotelInput, error) {
	verr := &domain.ValidationError{}
	if p.Name == nil {
		verr.Add("name", "Hotel name is required")
	}
	if p.Atoll == nil {
		verr.Add("atoll", "Atoll is required")
	}
	if p.Type == nil {
		verr.Add("type", "Hotel type is required")
	}
	checkHotelFields(p, verr)
	if err := verr.Err(); err != nil {
		return domain.HotelInput{}, err
	}

	in := domain.HotelInput{
		Name:       strings.TrimSpace(*p.Name),
		Atoll:      *p.Atoll,
		Type:       domain.HotelType(*p.Type),
		StaffCount: p.StaffCount,
		Status:     domain.HotelActive,
	}
	if p.Status != nil {
		in.Status = domain.HotelStatus(*p.Status)
	}
	return in, nil
}

// HotelUpdate accepts any subset of fields, but at least one.
func HotelUpdate(p HotelPayload) (domain.HotelPatch, error) {
	verr := &domain.ValidationError{}
	if p.Name == nil && p.Atoll == nil && p.Type == nil && p.StaffCount == nil && p.Status == nil && !p.ClearStaffCount {
		verr.Add("body", "at least one field must be provided")
		return domain.HotelPatch{}, verr
	}
	checkHotelFields(p, verr)
	if err := verr.Err(); err != nil {
		return domain.HotelPatch{}, err
	}

	patch := domain.HotelPatch{Atoll: p.Atoll, StaffCount: p.StaffCount, ClearStaffCount: p.ClearStaffCount}
	if p.Name != nil {
		n := strings.TrimSpace(*p.Name)
		patch.Name = &n
	}
	if p.Type != nil {
		t := domain.HotelType(*p.Type)
		patch.Type = &t
	}
	if p.Status != nil {
		s := domain.HotelStatus(*p.Status)
		patch.Status = &s
	}
	return patch, nil
}

func checkHotelFields(p HotelPayload, verr *domain.ValidationError) {
	if p.Name != nil {
		n := strings.TrimSpace(*p.Name)
		switch {
		case n == "":
			verr.Add("name", "Hotel name is required")
		case utf8.RuneCountInString(n) > MaxHotelNameLen:
			verr.Add("name", "must be at most 200 characters")
		}
	}
	if p.Atoll != nil && !isAtoll(*p.Atoll) {
		verr.Add("atoll", "Invalid atoll")
	}
	if p.Type != nil && !isHotelType(*p.Type) {
		verr.Add("type", "must be one of resort, city_hotel, guesthouse")
	}
	if p.StaffCount != nil && (*p.StaffCount < 0 || *p.StaffCount > MaxStaffCount) {
		verr.Add("staff_count", "must be between 0 and 100000")
	}
	if p.Status != nil && *p.Status != string(domain.HotelActive) && *p.Status != string(domain.HotelClosed) {
		verr.Add("status", "must be active or closed")
	}
}

func isAtoll(a string) bool {
	for _, known := range domain.Atolls {
		if a == known {
			return true
		}
	}
	return false
}

func isHotelType(t string) bool {
	for _, known := range domain.HotelTypes {
		if t == string(known) {
			return true
		}
	}
	return false
}
