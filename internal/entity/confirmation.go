package entity

import "time"

type PendingConfirmation struct {
	ID        string    `json:"id"`
	Intent    Intent    `json:"intent"`
	Prompt    string    `json:"prompt"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (p PendingConfirmation) ExpiredAt(now time.Time) bool {
	return now.After(p.ExpiresAt)
}
