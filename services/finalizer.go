package services

import (
	"time"

	"tap-race-system/models"

	"gorm.io/gorm"
)

// closeByThreshold ends an active contest with the given winner. The
// caller holds the contest row lock and has verified the contest is
// still active.
func (s *ContestService) closeByThreshold(tx *gorm.DB, contest *models.Contest, winnerID string) error {
	return s.closeContest(tx, contest, &winnerID, s.Clock.Now())
}

// closeByExpiry ends an expired contest on the highest total; equal
// totals go to the earlier last tap. Zero taps closes with no winner
// and no payout.
func (s *ContestService) closeByExpiry(tx *gorm.DB, contest *models.Contest) error {
	totals, err := contestTotals(tx, contest.ID)
	if err != nil {
		return err
	}
	var winnerID *string
	if len(totals) > 0 {
		winnerID = &totals[0].ParticipantID
	}
	return s.closeContest(tx, contest, winnerID, s.Clock.Now())
}

// closeContest is the single finalize path: stamp end time + winner,
// propagate the result up the parent chain, flip the room to finished
// and settle the prize. The guarded UPDATE on end_time IS NULL makes
// check-and-set indivisible even if a concurrent closer slipped past
// the row lock.
func (s *ContestService) closeContest(tx *gorm.DB, contest *models.Contest, winnerID *string, now time.Time) error {
	updates := map[string]interface{}{
		"end_time":  now,
		"winner_id": winnerID,
	}

	res := tx.Model(&models.Contest{}).
		Where("id = ? AND end_time IS NULL", contest.ID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrContestEnded
	}
	contest.EndTime = &now
	contest.WinnerID = winnerID

	// A tiebreaker child settles the whole chain: every still-open
	// ancestor gets the same end time and winner but no payout of its
	// own; the room pool is distributed exactly once, on the child.
	parentID := contest.ParentContestID
	for parentID != nil {
		var parent models.Contest
		if err := tx.First(&parent, "id = ?", *parentID).Error; err != nil {
			return err
		}
		if parent.EndTime == nil {
			if err := tx.Model(&models.Contest{}).
				Where("id = ? AND end_time IS NULL", parent.ID).
				Updates(updates).Error; err != nil {
				return err
			}
		}
		parentID = parent.ParentContestID
	}

	var room models.Room
	if err := tx.First(&room, "id = ?", contest.RoomID).Error; err != nil {
		return err
	}
	if err := tx.Model(&models.Room{}).
		Where("id = ?", room.ID).
		Update("status", models.RoomStatusFinished).Error; err != nil {
		return err
	}

	if winnerID == nil {
		return nil
	}
	return s.Prizes.Settle(tx, contest, &room, *winnerID)
}
