// workers/expiry_worker.go
package workers

import (
	"errors"
	"log"
	"time"

	"tap-race-system/models"
	"tap-race-system/services"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// ExpiryWorker force-ends contests whose room round length has elapsed.
// It is the external caller of the engine's ForceEnd; the engine itself
// holds no timers. Contests waiting on a tiebreaker child are skipped —
// they close when the child does.
type ExpiryWorker struct {
	db       *gorm.DB
	contests *services.ContestService
	interval time.Duration
}

func NewExpiryWorker(db *gorm.DB, contests *services.ContestService) *ExpiryWorker {
	return &ExpiryWorker{
		db:       db,
		contests: contests,
		interval: 5 * time.Second,
	}
}

func (w *ExpiryWorker) Start() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	if _, err := sched.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(w.sweep),
	); err != nil {
		return err
	}

	sched.Start()
	log.Println("✅ Contest expiry sweeper running (every 5s)")
	return nil
}

func (w *ExpiryWorker) sweep() {
	var contests []models.Contest
	if err := w.db.
		Where("end_time IS NULL AND has_tiebreaker = ?", false).
		Find(&contests).Error; err != nil {
		log.Printf("[EXPIRY] DB error listing active contests: %v", err)
		return
	}

	now := time.Now()
	for _, contest := range contests {
		var room models.Room
		if err := w.db.Select("id, round_seconds").First(&room, "id = ?", contest.RoomID).Error; err != nil {
			log.Printf("[EXPIRY] ⚠️ Room lookup failed for contest %s: %v", contest.ID, err)
			continue
		}

		deadline := contest.StartTime.Add(time.Duration(room.RoundSeconds) * time.Second)
		if now.Before(deadline) {
			continue
		}

		closed, err := w.contests.ForceEnd(contest.ID)
		if err != nil {
			// Lost the race to a threshold winner or a freshly spawned
			// tiebreaker — nothing to do.
			if errors.Is(err, services.ErrContestEnded) || errors.Is(err, services.ErrAwaitingTiebreaker) {
				continue
			}
			log.Printf("[EXPIRY] ❌ Force-end of contest %s failed: %v", contest.ID, err)
			continue
		}

		winner := "none"
		if closed.WinnerID != nil {
			winner = *closed.WinnerID
		}
		log.Printf("[EXPIRY] ✅ Contest %s force-ended after %ds round (winner: %s)",
			contest.ID, room.RoundSeconds, winner)
	}
}
