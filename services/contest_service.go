package services

import (
	"errors"
	"time"

	"tap-race-system/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TapThreshold is the running total that ends a contest instantly.
const TapThreshold int64 = 200

// DefaultTieWindow bounds how far apart two threshold-crossing taps can
// land and still count as simultaneous.
const DefaultTieWindow = 1 * time.Second

// reachedThreshold is the win detector. Pure, no state.
func reachedThreshold(total int64) bool {
	return total >= TapThreshold
}

// ContestService is the game session engine. Every SubmitTap/ForceEnd
// call runs as one DB transaction that takes the contest row lock
// first, so the active check, the win/tie decision and the close/settle
// are indivisible with respect to concurrent callers on the same
// contest. The service holds no timers: contest expiry is driven by the
// sweeper worker calling ForceEnd.
type ContestService struct {
	DB        *gorm.DB
	Prizes    *PrizeService
	Notifier  *Notifier
	Clock     clockwork.Clock
	TieWindow time.Duration
}

func NewContestService(db *gorm.DB, prizes *PrizeService, notifier *Notifier, clock clockwork.Clock) *ContestService {
	return &ContestService{
		DB:        db,
		Prizes:    prizes,
		Notifier:  notifier,
		Clock:     clock,
		TieWindow: DefaultTieWindow,
	}
}

// TapOutcomeKind tells the caller what their tap triggered
type TapOutcomeKind string

const (
	OutcomeContinuing TapOutcomeKind = "continuing"
	OutcomeWon        TapOutcomeKind = "won"
	OutcomeTied       TapOutcomeKind = "tied"
)

// TapOutcome is the result of one SubmitTap call
type TapOutcome struct {
	Kind           TapOutcomeKind `json:"outcome"`
	Tap            *models.Tap    `json:"tap"`
	RunningTotal   int64          `json:"running_total"`
	ChildContestID string         `json:"child_contest_id,omitempty"`
	TiedIDs        []string       `json:"tied_participant_ids,omitempty"`
}

// lockContest loads the contest row FOR UPDATE so the active check and
// any state change stay indivisible across concurrent writers. sqlite
// (used in tests) has no row locks; its single-writer model serializes
// there instead.
func lockContest(tx *gorm.DB, contestID string) (*models.Contest, error) {
	q := tx
	if tx.Dialector.Name() == "postgres" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var contest models.Contest
	if err := q.First(&contest, "id = ?", contestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContestNotFound
		}
		return nil, err
	}
	return &contest, nil
}

// SubmitTap records a tap and runs the full win/tie pipeline under one
// atomic unit: append → total → win check → tie check → close → settle.
// Any failure rolls the whole unit back and leaves the contest state
// untouched.
func (s *ContestService) SubmitTap(contestID, participantID string, count int) (*TapOutcome, error) {
	if participantID == "" {
		return nil, ErrInvalidTapCount
	}
	if count <= 0 {
		return nil, ErrInvalidTapCount
	}

	out := &TapOutcome{}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		contest, err := lockContest(tx, contestID)
		if err != nil {
			return err
		}
		if contest.EndTime != nil {
			return ErrContestEnded
		}

		now := s.Clock.Now()
		tap, total, err := appendTap(tx, contest, participantID, count, now)
		if err != nil {
			return err
		}
		out.Tap = tap
		out.RunningTotal = total

		if !reachedThreshold(total) {
			out.Kind = OutcomeContinuing
			return nil
		}

		// A parent awaiting its tiebreaker never finalizes on its own;
		// resolution rides on the child contest.
		if contest.HasTiebreaker {
			out.Kind = OutcomeContinuing
			return nil
		}

		partners, err := s.findTiePartners(tx, contest.ID, participantID, now)
		if err != nil {
			return err
		}
		if len(partners) > 0 {
			child, err := s.spawnTiebreaker(tx, contest, now)
			if err != nil {
				return err
			}
			out.Kind = OutcomeTied
			out.ChildContestID = child.ID
			out.TiedIDs = append([]string{participantID}, partners...)
			return nil
		}

		if err := s.closeByThreshold(tx, contest, participantID); err != nil {
			return err
		}
		out.Kind = OutcomeWon
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishOutcome(contestID, participantID, out)
	return out, nil
}

// ForceEnd closes an active contest by expiry, picking the winner by
// highest total. The caller is external (sweeper or admin); the engine
// never expires contests on its own. A parent awaiting its tiebreaker
// is rejected: it settles exactly once, when the child closes — ending
// it here would pay the pool out twice.
func (s *ContestService) ForceEnd(contestID string) (*models.Contest, error) {
	var closed *models.Contest
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		contest, err := lockContest(tx, contestID)
		if err != nil {
			return err
		}
		if contest.EndTime != nil {
			return ErrContestEnded
		}
		if contest.HasTiebreaker {
			return ErrAwaitingTiebreaker
		}
		if err := s.closeByExpiry(tx, contest); err != nil {
			return err
		}
		closed = contest
		return nil
	})
	if err != nil {
		return nil, err
	}

	winner := ""
	if closed.WinnerID != nil {
		winner = *closed.WinnerID
	}
	s.Notifier.Publish(closed.RoomID, EventContestFinished, map[string]interface{}{
		"contest_id": closed.ID,
		"winner_id":  winner,
		"reason":     "expired",
	})
	return closed, nil
}

// StartContest opens a new contest for a room whose match is starting
// and flips the room to playing. Used by the room start endpoint.
func (s *ContestService) StartContest(roomID string) (*models.Contest, error) {
	var contest *models.Contest
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var room models.Room
		if err := tx.First(&room, "id = ?", roomID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoomNotFound
			}
			return err
		}

		c := &models.Contest{
			ID:        uuid.NewString(),
			RoomID:    room.ID,
			StartTime: s.Clock.Now(),
		}
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		if room.Status != models.RoomStatusPlaying {
			if err := tx.Model(&models.Room{}).
				Where("id = ?", room.ID).
				Update("status", models.RoomStatusPlaying).Error; err != nil {
				return err
			}
		}
		contest = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Notifier.Publish(roomID, EventContestStarted, map[string]interface{}{
		"contest_id": contest.ID,
		"start_time": contest.StartTime,
	})
	return contest, nil
}

// GetActiveContest returns the room's open contest with every
// participant's running total, highest first.
func (s *ContestService) GetActiveContest(roomID string) (*models.Contest, error) {
	var contest models.Contest
	err := s.DB.
		Where("room_id = ? AND end_time IS NULL", roomID).
		Order("start_time DESC").
		First(&contest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveContest
		}
		return nil, err
	}

	totals, err := contestTotals(s.DB, contest.ID)
	if err != nil {
		return nil, err
	}
	contest.Totals = totals
	return &contest, nil
}

// publishOutcome emits the post-commit room event for a tap. Publish is
// fire-and-forget; it never affects the committed transaction.
func (s *ContestService) publishOutcome(contestID, participantID string, out *TapOutcome) {
	var contest models.Contest
	if err := s.DB.Select("room_id").First(&contest, "id = ?", contestID).Error; err != nil {
		return
	}

	switch out.Kind {
	case OutcomeWon:
		s.Notifier.Publish(contest.RoomID, EventContestWon, map[string]interface{}{
			"contest_id": contestID,
			"winner_id":  participantID,
			"total":      out.RunningTotal,
		})
	case OutcomeTied:
		s.Notifier.Publish(contest.RoomID, EventTiebreakerStarted, map[string]interface{}{
			"contest_id":           contestID,
			"child_contest_id":     out.ChildContestID,
			"tied_participant_ids": out.TiedIDs,
		})
	default:
		s.Notifier.Publish(contest.RoomID, EventTapRecorded, map[string]interface{}{
			"contest_id":     contestID,
			"participant_id": participantID,
			"running_total":  out.RunningTotal,
		})
	}
}
