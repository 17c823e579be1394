package domain

import "time"

const VerificationVerified = "verified"

// ServiceChargeRecord is the authoritative figure for one hotel and period.
type ServiceChargeRecord struct {
	ID                 string     `json:"id"`
	HotelID            string     `json:"hotel_id"`
	Month              int        `json:"month"`
	Year               int        `json:"year"`
	USDAmount          float64    `json:"usd_amount"`
	MVRAmount          *float64   `json:"mvr_amount"`
	TotalUSD           float64    `json:"total_usd"`
	VerificationStatus string     `json:"verification_status"`
	VerificationCount  int        `json:"verification_count"`
	VerifiedAt         *time.Time `json:"verified_at"`
	VerifiedBy         *string    `json:"verified_by"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

type RecordWithHotel struct {
	ServiceChargeRecord
	Hotel Hotel `json:"hotels"`
}

// RecordTotal is the projection used for industry trends.
type RecordTotal struct {
	Month    int
	Year     int
	TotalUSD float64
}

type LeaderboardQuery struct {
	Month int
	Year  int
	Atoll string
	Type  string
}

type LeaderboardEntry struct {
	Rank     int      `json:"rank"`
	HotelID  string   `json:"hotel_id"`
	Name     string   `json:"name"`
	Atoll    string   `json:"atoll"`
	Type     string   `json:"type"`
	USD      float64  `json:"usd_amount"`
	MVR      *float64 `json:"mvr_amount"`
	TotalUSD float64  `json:"total_usd"`
}

type TopPaying struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

type LeaderboardStats struct {
	TotalHotels int        `json:"totalHotels"`
	TopPaying   *TopPaying `json:"topPaying"`
	AverageSC   float64    `json:"averageSC"`
}

type Leaderboard struct {
	Month   int                `json:"month"`
	Year    int                `json:"year"`
	Entries []LeaderboardEntry `json:"entries"`
	Stats   LeaderboardStats   `json:"stats"`
}

type HotelStats struct {
	CurrentAmount float64 `json:"currentAmount"`
	AverageAmount float64 `json:"averageAmount"`
	HighestAmount float64 `json:"highestAmount"`
	LowestAmount  float64 `json:"lowestAmount"`
}

type HotelProfile struct {
	Hotel   Hotel                 `json:"hotel"`
	Records []ServiceChargeRecord `json:"records"`
	Stats   HotelStats            `json:"stats"`
	Trend   string                `json:"trend"` // up|down|stable
}

// ComparisonEntry is one column of the side-by-side hotel comparison.
type ComparisonEntry struct {
	Hotel   Hotel                `json:"hotel"`
	Latest  *ServiceChargeRecord `json:"latest"`
	Stats   HotelStats           `json:"stats"`
	Trend   string               `json:"trend"`
	Records int                  `json:"recordCount"`
}
