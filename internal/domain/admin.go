package domain

import "time"

type AdminUser struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Email     *string   `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Identity is an account known to the hosted auth service.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID string
	Email  string
}
