package model

import "time"

// BalanceState is the last captured account balance and what this bot spent from it.
type BalanceState struct {
	Available  float64   `json:"available"`
	CapturedAt time.Time `json:"captured_at"`
	SpentToday float64   `json:"spent_today"`
	SpentDate  string    `json:"spent_date"`
	UpdatedAt  time.Time `json:"updated_at"`
}
