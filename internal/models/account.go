// Package models содержит доменные структуры сервиса: учётную запись
// пользователя с тарифом и состоянием дневной квоты, а также события,
// которыми сервисы обмениваются через брокер сообщений.
package models

import "time"

// Entitlement тариф учётной записи.
type Entitlement string

const (
	// EntitlementFree бесплатный тариф с дневной квотой загрузок.
	EntitlementFree Entitlement = "free"
	// EntitlementPremium платный тариф без ограничений.
	EntitlementPremium Entitlement = "premium"
)

// Account представляет зарегистрированного пользователя.
//
// UploadsInWindow имеет смысл только для бесплатного тарифа. QuotaWindowStart
// и UploadsInWindow всегда изменяются вместе.
type Account struct {
	UID              string      `json:"uid"`
	Email            string      `json:"email"`
	PasswordHash     string      `json:"-"`
	Entitlement      Entitlement `json:"entitlement"`
	QuotaWindowStart time.Time   `json:"quota_window_start"`
	UploadsInWindow  int         `json:"uploads_in_window"`
	CreatedAt        time.Time   `json:"created_at"`
}

// IsPremium сообщает, освобождена ли учётная запись от квоты.
func (a *Account) IsPremium() bool {
	return a.Entitlement == EntitlementPremium
}
