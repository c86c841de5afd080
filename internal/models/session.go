package models

import "time"

// Session связывает токен сессии с учётной записью.
type Session struct {
	ID         string    `json:"id"`
	AccountUID string    `json:"account_uid"`
	Email      string    `json:"email"`
	ExpiresAt  time.Time `json:"expires_at"`
}
