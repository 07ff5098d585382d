package models

import "time"

// Referral tracks room-join referrals and first-join bonuses
type Referral struct {
	ID         string `gorm:"primaryKey;type:uuid" json:"id"`
	ReferrerID string `gorm:"index;not null" json:"referrer_id"`       // ExternalUserID
	ReferredID string `gorm:"uniqueIndex;not null" json:"referred_id"` // ExternalUserID

	ReferralCodeUsed string     `gorm:"not null" json:"referral_code_used"`
	RoomID           string     `gorm:"index" json:"room_id,omitempty"` // room whose join triggered the referral
	BonusMinor       int64      `json:"bonus_minor" gorm:"default:0"`
	BonusAwarded     bool       `json:"bonus_awarded" gorm:"default:false"`
	AwardedAt        *time.Time `json:"awarded_at,omitempty"`

	Timestamps
}
