package models

import (
	"time"

	"gorm.io/gorm"
)

// ArenaUser is a local snapshot of user data needed for tap races.
// Owned and managed solely by this service.
// Populated via sync worker from the Profile Service.
type ArenaUser struct {
	ID                string    `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID    string    `gorm:"uniqueIndex;not null" json:"external_user_id"` // The profile service's UUID
	Username          string    `gorm:"index;not null" json:"username"`
	Email             string    `json:"email,omitempty"`
	ProfilePictureURL *string   `json:"profile_picture_url,omitempty"`
	ReferralCode      string    `gorm:"index" json:"referral_code,omitempty"` // looked up at room join
	CreatedAt         time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	LastSeen *time.Time `json:"last_seen,omitempty"`
	IsBanned bool       `json:"is_banned" gorm:"default:false"` // local arena ban

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
