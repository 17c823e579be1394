package domain

import "time"

type ExchangeRate struct {
	ID        string    `json:"id"`
	Date      time.Time `json:"date"`
	USDToMVR  float64   `json:"usd_to_mvr"`
	Source    *string   `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}
