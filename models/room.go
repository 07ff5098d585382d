package models

import "time"

// RoomCategory determines the payout split applied on contest close
type RoomCategory string

const (
	RoomCategoryHero     RoomCategory = "hero"
	RoomCategoryStandard RoomCategory = "standard"
	RoomCategoryBonus    RoomCategory = "bonus"
)

// RoomStatus tracks the room lifecycle: open → playing → finished
type RoomStatus string

const (
	RoomStatusOpen     RoomStatus = "open"
	RoomStatusPlaying  RoomStatus = "playing"
	RoomStatusFinished RoomStatus = "finished"
)

// Room is the lobby a tap race runs in. The contest engine only reads
// category/entry fee/creator and flips Status to finished on close;
// everything else belongs to the room endpoints.
type Room struct {
	ID            string       `gorm:"primaryKey;type:uuid" json:"id"`
	Name          string       `gorm:"not null" json:"name"`
	Slug          string       `gorm:"uniqueIndex;not null" json:"slug"`
	Category      RoomCategory `gorm:"type:varchar(16);not null;default:'standard'" json:"category"`
	EntryFeeMinor int64        `gorm:"not null;default:0" json:"entry_fee_minor"` // minor units (cents)
	CreatorID     string       `gorm:"index;not null" json:"creator_id"`          // ExternalUserID
	MaxPlayers    int          `gorm:"default:0" json:"max_players"`              // 0 = unlimited
	RoundSeconds  int          `gorm:"default:60" json:"round_seconds"`           // contest length, enforced by the expiry sweeper
	Status        RoomStatus   `gorm:"type:varchar(16);not null;default:'open';index" json:"status"`
	CoverPhotoURL string       `gorm:"type:text" json:"cover_photo_url,omitempty"`

	// Calculated fields (not stored in DB)
	MembersCount int64 `json:"members_count,omitempty" gorm:"-"`

	Timestamps
}

// RoomMember records who joined and paid into the prize pool.
// The pool for a contest is EntryFeeMinor × member count.
type RoomMember struct {
	ID               string    `gorm:"primaryKey;type:uuid" json:"id"`
	RoomID           string    `gorm:"uniqueIndex:idx_room_participant;not null" json:"room_id"`
	ParticipantID    string    `gorm:"uniqueIndex:idx_room_participant;not null" json:"participant_id"` // ExternalUserID
	ReferralCodeUsed string    `gorm:"type:varchar(64)" json:"referral_code_used,omitempty"`
	JoinedAt         time.Time `json:"joined_at" gorm:"autoCreateTime"`
}
