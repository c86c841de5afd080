package models

import "time"

// PremiumActivated публикуется в брокер при первом переходе аккаунта на premium.
type PremiumActivated struct {
	AccountUID  string    `json:"account_uid"`
	Email       string    `json:"email"`
	Trigger     string    `json:"trigger"`
	ActivatedAt time.Time `json:"activated_at"`
}
