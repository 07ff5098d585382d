package services

import (
	"time"

	"tap-race-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// appendTap writes one immutable tap row and returns the participant's
// new running total. The caller holds the contest row lock and has
// already verified the contest is active.
func appendTap(tx *gorm.DB, contest *models.Contest, participantID string, count int, at time.Time) (*models.Tap, int64, error) {
	if count <= 0 {
		return nil, 0, ErrInvalidTapCount
	}

	tap := &models.Tap{
		ID:            uuid.NewString(),
		ContestID:     contest.ID,
		ParticipantID: participantID,
		Count:         count,
		CreatedAt:     at,
	}
	if err := tx.Create(tap).Error; err != nil {
		return nil, 0, err
	}

	total, err := participantTotal(tx, contest.ID, participantID)
	if err != nil {
		return nil, 0, err
	}
	return tap, total, nil
}

// participantTotal sums one participant's taps server-side. Client
// cumulative counts are never trusted.
func participantTotal(tx *gorm.DB, contestID, participantID string) (int64, error) {
	var total int64
	err := tx.Model(&models.Tap{}).
		Where("contest_id = ? AND participant_id = ?", contestID, participantID).
		Select("COALESCE(SUM(count), 0)").
		Scan(&total).Error
	return total, err
}

// contestTotals returns every participant's total for a contest,
// highest first; equal totals rank the earlier last tap first. That
// ordering is also the expiry tie-break rule.
func contestTotals(tx *gorm.DB, contestID string) ([]models.ParticipantTotal, error) {
	var totals []models.ParticipantTotal
	err := tx.Model(&models.Tap{}).
		Select("participant_id, SUM(count) AS total, MAX(created_at) AS last_tap_at").
		Where("contest_id = ?", contestID).
		Group("participant_id").
		Order("total DESC, last_tap_at ASC").
		Scan(&totals).Error
	return totals, err
}
