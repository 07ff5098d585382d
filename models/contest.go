package models

import "time"

// Contest is one timed tap race inside a room. A contest is active iff
// EndTime is nil. A contest that detected a near-simultaneous crossing
// stays open with HasTiebreaker=true while the spawned child resolves;
// the child's close propagates its end time and winner back up the
// parent chain. Contests are never deleted.
type Contest struct {
	ID              string     `gorm:"primaryKey;type:uuid" json:"id"`
	RoomID          string     `gorm:"index;not null" json:"room_id"`
	StartTime       time.Time  `gorm:"not null" json:"start_time"`
	EndTime         *time.Time `gorm:"index" json:"end_time,omitempty"`
	WinnerID        *string    `json:"winner_id,omitempty"`
	IsTiebreaker    bool       `gorm:"default:false" json:"is_tiebreaker"`
	ParentContestID *string    `gorm:"index" json:"parent_contest_id,omitempty"`
	HasTiebreaker   bool       `gorm:"default:false" json:"has_tiebreaker"`

	// Calculated fields (not stored in DB)
	Totals []ParticipantTotal `json:"totals,omitempty" gorm:"-"`

	Timestamps
}

// ParticipantTotal is one participant's running total in a contest
type ParticipantTotal struct {
	ParticipantID string    `json:"participant_id"`
	Total         int64     `json:"total"`
	LastTapAt     time.Time `json:"last_tap_at"`
}

// Tap is one atomic tap-count submission. Rows are immutable: never
// updated, never deleted. A participant's running total is the sum of
// Count over their rows in a contest, always computed server-side.
type Tap struct {
	ID            string    `gorm:"primaryKey;type:uuid" json:"id"`
	ContestID     string    `gorm:"index;not null" json:"contest_id"`
	ParticipantID string    `gorm:"index;not null" json:"participant_id"` // ExternalUserID
	Count         int       `gorm:"not null;check:count > 0" json:"count"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"` // set from the engine clock, not autoCreateTime
}
