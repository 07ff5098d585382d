package services

import (
	"time"

	"tap-race-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// findTiePartners returns the other participants whose total has
// reached the threshold AND whose last contributing tap landed inside
// the trailing window. Recency is what ties, not totals: a participant
// who qualified earlier but whose last tap has gone stale is not a
// partner even though their total still clears the threshold.
func (s *ContestService) findTiePartners(tx *gorm.DB, contestID, winnerID string, now time.Time) ([]string, error) {
	cutoff := now.Add(-s.TieWindow)
	var partners []string
	err := tx.Model(&models.Tap{}).
		Where("contest_id = ? AND participant_id <> ?", contestID, winnerID).
		Group("participant_id").
		Having("SUM(count) >= ? AND MAX(created_at) >= ?", TapThreshold, cutoff).
		Pluck("participant_id", &partners).Error
	return partners, err
}

// spawnTiebreaker creates the child contest the tied participants race
// in and flags the parent. The parent stays open with no winner
// recorded (the near-simultaneous crossing is preserved for audit); its
// prize flow now rides on the child's outcome.
func (s *ContestService) spawnTiebreaker(tx *gorm.DB, parent *models.Contest, now time.Time) (*models.Contest, error) {
	child := &models.Contest{
		ID:              uuid.NewString(),
		RoomID:          parent.RoomID,
		StartTime:       now,
		IsTiebreaker:    true,
		ParentContestID: &parent.ID,
	}
	if err := tx.Create(child).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&models.Contest{}).
		Where("id = ?", parent.ID).
		Update("has_tiebreaker", true).Error; err != nil {
		return nil, err
	}
	parent.HasTiebreaker = true
	return child, nil
}
