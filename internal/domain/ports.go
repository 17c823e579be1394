package domain

import (
	"context"
	"time"
)

type HotelRepository interface {
	ListHotels(ctx context.Context, q HotelsQuery) ([]Hotel, error)
	GetHotel(ctx context.Context, id string) (Hotel, error)
	// FindHotelByName matches case-insensitively, ignoring excludeID when set.
	FindHotelByName(ctx context.Context, name, excludeID string) (Hotel, bool, error)
	InsertHotel(ctx context.Context, h Hotel) error
	UpdateHotel(ctx context.Context, h Hotel) error
	DeleteHotel(ctx context.Context, id string) error
	CountHotelReferences(ctx context.Context, id string) (submissions, records int, err error)
	CountActiveHotels(ctx context.Context) (int, error)
}

type SubmissionRepository interface {
	// Write paths
	InsertSubmission(ctx context.Context, s Submission) error
	UpdatePendingSubmission(ctx context.Context, s Submission) error
	DeletePendingSubmission(ctx context.Context, id, userID string) error
	RejectSubmission(ctx context.Context, id, reviewer, reason string, at time.Time) error
	// ApproveSubmission upserts rec on (hotel_id, month, year) and marks the
	// submission approved in one transaction.
	ApproveSubmission(ctx context.Context, id, reviewer string, rec ServiceChargeRecord) error

	// Read paths
	GetSubmission(ctx context.Context, id string) (SubmissionWithHotel, error)
	ListSubmissionsByUser(ctx context.Context, userID string) ([]SubmissionWithHotel, error)
	ListSubmissions(ctx context.Context, q SubmissionQuery) (SubmissionPage, error)
	ListSubmissionsForExport(ctx context.Context, status string) ([]SubmissionWithHotel, error)
	// CountSubmissionsByStatus counts every submission when userID is empty.
	CountSubmissionsByStatus(ctx context.Context, userID string) (StatusCounts, error)
	ListSubmissionActivity(ctx context.Context) ([]SubmissionActivity, error)
}

type RecordRepository interface {
	GetRecord(ctx context.Context, hotelID string, month, year int) (ServiceChargeRecord, error)
	ListLeaderboard(ctx context.Context, q LeaderboardQuery) ([]RecordWithHotel, error)
	ListHotelRecords(ctx context.Context, hotelID string, limit int) ([]ServiceChargeRecord, error)
	ListRecordsForExport(ctx context.Context) ([]RecordWithHotel, error)
	ListVerifiedTotals(ctx context.Context) ([]RecordTotal, error)
}

type AdminRepository interface {
	GetAdmin(ctx context.Context, id string) (AdminUser, error)
	GetAdminByUserID(ctx context.Context, userID string) (AdminUser, error)
	ListAdmins(ctx context.Context) ([]AdminUser, error)
	InsertAdmin(ctx context.Context, a AdminUser) error
	DeleteAdmin(ctx context.Context, id string) error
	CountAdmins(ctx context.Context) (int, error)
}

type ExchangeRateRepository interface {
	UpsertExchangeRate(ctx context.Context, r ExchangeRate) error
	ListExchangeRates(ctx context.Context, limit int) ([]ExchangeRate, error)
	LatestRateOnOrBefore(ctx context.Context, t time.Time) (ExchangeRate, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
	DelPrefix(ctx context.Context, prefix string) error
}

// ProofStore persists uploaded proof files and returns their public URL.
type ProofStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// IdentityDirectory resolves accounts registered with the hosted auth service.
type IdentityDirectory interface {
	FindByEmail(ctx context.Context, email string) (Identity, error)
}

type Notifier interface {
	SubmissionApproved(ctx context.Context, n ApprovalNotice) error
	SubmissionRejected(ctx context.Context, n RejectionNotice) error
}

type ApprovalNotice struct {
	To        string
	HotelName string
	Month     int
	Year      int
	USDAmount float64
	MVRAmount *float64
	TotalUSD  float64
}

type RejectionNotice struct {
	To        string
	HotelName string
	Month     int
	Year      int
	Reason    string
}

// RatesProvider fetches the USD->MVR rate published for a date.
type RatesProvider interface {
	RateOn(ctx context.Context, date time.Time) (map[string]any, error)
}
