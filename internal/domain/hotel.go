package domain

import "time"

type HotelType string

const (
	HotelTypeResort     HotelType = "resort"
	HotelTypeCityHotel  HotelType = "city_hotel"
	HotelTypeGuesthouse HotelType = "guesthouse"
)

var HotelTypes = []HotelType{HotelTypeResort, HotelTypeCityHotel, HotelTypeGuesthouse}

type HotelStatus string

const (
	HotelActive HotelStatus = "active"
	HotelClosed HotelStatus = "closed"
)

// Atolls lists the administrative locations a hotel may be registered under.
var Atolls = []string{
	"Haa Alif Atoll",
	"Haa Dhaalu Atoll",
	"Shaviyani Atoll",
	"Noonu Atoll",
	"Raa Atoll",
	"Baa Atoll",
	"Lhaviyani Atoll",
	"Kaafu Atoll",
	"North Male Atoll",
	"South Male Atoll",
	"Vaavu Atoll",
	"Meemu Atoll",
	"Faafu Atoll",
	"Dhaalu Atoll",
	"Thaa Atoll",
	"Laamu Atoll",
	"Gaafu Alif Atoll",
	"Gaafu Dhaalu Atoll",
	"Gnaviyani Atoll",
	"Seenu Atoll",
	"Male",
	"Hulhumale",
}

type Hotel struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Atoll      string      `json:"atoll"`
	Type       HotelType   `json:"type"`
	StaffCount *int        `json:"staff_count"`
	Status     HotelStatus `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// HotelInput is the validated create payload.
type HotelInput struct {
	Name       string
	Atoll      string
	Type       HotelType
	StaffCount *int
	Status     HotelStatus
}

// HotelPatch carries only the fields present in an update request.
type HotelPatch struct {
	Name       *string
	Atoll      *string
	Type       *HotelType
	StaffCount *int
	Status     *HotelStatus

	ClearStaffCount bool
}

type HotelsQuery struct {
	Search string
	Atoll  string
	Type   string
	Status string
}
