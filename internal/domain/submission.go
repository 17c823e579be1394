package domain

import "time"

type SubmissionStatus string

const (
	StatusPending  SubmissionStatus = "pending"
	StatusApproved SubmissionStatus = "approved"
	StatusRejected SubmissionStatus = "rejected"
)

type Submission struct {
	ID              string           `json:"id"`
	HotelID         string           `json:"hotel_id"`
	Month           int              `json:"month"`
	Year            int              `json:"year"`
	USDAmount       float64          `json:"usd_amount"`
	MVRAmount       *float64         `json:"mvr_amount"`
	Position        string           `json:"position"`
	ProofURL        *string          `json:"proof_url"`
	SubmitterEmail  string           `json:"submitter_email"`
	SubmitterUserID string           `json:"submitter_user_id"`
	Status          SubmissionStatus `json:"status"`
	RejectionReason *string          `json:"rejection_reason"`
	ReviewedBy      *string          `json:"reviewed_by"`
	ReviewedAt      *time.Time       `json:"reviewed_at"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// SubmissionWithHotel is a submission joined with its hotel row.
type SubmissionWithHotel struct {
	Submission
	Hotel Hotel `json:"hotels"`
}

// SubmissionInput is the validated worker payload shared by create and update.
type SubmissionInput struct {
	HotelID   string
	Month     int
	Year      int
	USDAmount float64
	MVRAmount *float64
	Position  string
}

// ProofFile is an uploaded payslip or receipt attached to a submission.
type ProofFile struct {
	Name        string
	ContentType string
	Data        []byte
}

type SubmissionQuery struct {
	Status    string
	HotelID   string
	Atoll     string
	Month     int
	Year      int
	MinAmount *float64
	MaxAmount *float64
	Page      int
	PerPage   int
}

type SubmissionPage struct {
	Items []SubmissionWithHotel `json:"submissions"`
	Total int                   `json:"total"`
	Page  int                   `json:"page"`
	Per   int                   `json:"per_page"`
}

type StatusCounts struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

func (c StatusCounts) Total() int { return c.Pending + c.Approved + c.Rejected }

// SubmissionActivity is the projection analytics reads from the submissions table.
type SubmissionActivity struct {
	SubmitterUserID string
	SubmitterEmail  string
	Status          SubmissionStatus
	RejectionReason *string
	CreatedAt       time.Time
	ReviewedAt      *time.Time
}
