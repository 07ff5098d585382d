package services

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"tap-race-system/models"
	"tap-race-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// referralBonusMinor is the first-join bonus credited to the referrer.
const referralBonusMinor int64 = 500

// RoomService owns room lifecycle outside the contest engine: create,
// list, join (with entry-fee debit and referral bookkeeping) and start.
type RoomService struct {
	DB       *gorm.DB
	Contests *ContestService
}

func NewRoomService(db *gorm.DB, contests *ContestService) *RoomService {
	return &RoomService{DB: db, Contests: contests}
}

// CreateRoom creates a room from a multipart form with an optional
// cover photo uploaded to R2.
func (s *RoomService) CreateRoom(c *fiber.Ctx) error {
	creatorID, _ := c.Locals("user_id").(string)
	if creatorID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing user context"})
	}

	name := strings.TrimSpace(c.FormValue("name"))
	if name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name is required"})
	}

	category := models.RoomCategory(c.FormValue("category", string(models.RoomCategoryStandard)))
	switch category {
	case models.RoomCategoryHero, models.RoomCategoryStandard, models.RoomCategoryBonus:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "category must be hero, standard or bonus"})
	}

	entryFee, err := strconv.ParseInt(c.FormValue("entry_fee_minor", "0"), 10, 64)
	if err != nil || entryFee < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "entry_fee_minor must be a non-negative integer"})
	}
	maxPlayers, err := strconv.Atoi(c.FormValue("max_players", "0"))
	if err != nil || maxPlayers < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "max_players must be a non-negative integer"})
	}
	roundSeconds, err := strconv.Atoi(c.FormValue("round_seconds", "60"))
	if err != nil || roundSeconds <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "round_seconds must be a positive integer"})
	}

	room := &models.Room{
		ID:            uuid.NewString(),
		Name:          name,
		Slug:          makeRoomSlug(name),
		Category:      category,
		EntryFeeMinor: entryFee,
		CreatorID:     creatorID,
		MaxPlayers:    maxPlayers,
		RoundSeconds:  roundSeconds,
		Status:        models.RoomStatusOpen,
	}

	if cover, err := c.FormFile("cover_photo"); err == nil && cover.Size > 0 {
		key := fmt.Sprintf("rooms/%s/cover_%s", room.ID, cover.Filename)
		url, err := utils.UploadFileToR2(cover, key)
		if err != nil {
			log.Printf("R2 upload failed for room cover: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to upload cover photo"})
		}
		room.CoverPhotoURL = url
	}

	if err := s.DB.Create(room).Error; err != nil {
		log.Printf("DB Error creating room: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create room"})
	}

	return c.Status(fiber.StatusCreated).JSON(room)
}

// makeRoomSlug builds a join-slug from the room name plus a short
// random suffix so duplicate names stay unique.
func makeRoomSlug(name string) string {
	return slug.Make(name) + "-" + uuid.NewString()[:8]
}

// GetOpenRooms lists rooms still accepting players, newest first.
func (s *RoomService) GetOpenRooms(c *fiber.Ctx) error {
	var rooms []models.Room
	if err := s.DB.
		Where("status = ?", models.RoomStatusOpen).
		Order("created_at DESC").
		Limit(100).
		Find(&rooms).Error; err != nil {
		log.Printf("DB Error listing rooms: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list rooms"})
	}

	for i := range rooms {
		if err := s.DB.Model(&models.RoomMember{}).
			Where("room_id = ?", rooms[i].ID).
			Count(&rooms[i].MembersCount).Error; err != nil {
			log.Printf("DB Error counting members for room %s: %v", rooms[i].ID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
		}
	}
	return c.JSON(rooms)
}

// FindRoom resolves a room by id or join-slug. The id column is typed
// uuid on postgres, so a slug literal must never reach an id compare —
// the param's shape decides which column to query.
func (s *RoomService) FindRoom(idOrSlug string) (*models.Room, error) {
	q := s.DB
	if uuid.Validate(idOrSlug) == nil {
		q = q.Where("id = ?", idOrSlug)
	} else {
		q = q.Where("slug = ?", idOrSlug)
	}

	var room models.Room
	if err := q.First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return &room, nil
}

// GetRoom fetches a room by id or join-slug.
func (s *RoomService) GetRoom(c *fiber.Ctx) error {
	idOrSlug := c.Params("id")
	room, err := s.FindRoom(idOrSlug)
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "room not found"})
		}
		log.Printf("DB Error fetching room %s: %v", idOrSlug, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	if err := s.DB.Model(&models.RoomMember{}).
		Where("room_id = ?", room.ID).
		Count(&room.MembersCount).Error; err != nil {
		log.Printf("DB Error counting members for room %s: %v", room.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(room)
}

// JoinRoom adds the authenticated user to a room, debits the entry fee
// and applies an optional referral code.
func (s *RoomService) JoinRoom(c *fiber.Ctx) error {
	participantID, _ := c.Locals("user_id").(string)
	if participantID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing user context"})
	}

	var req struct {
		ReferralCode string `json:"referral_code,omitempty"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
		}
	}

	member, err := s.Join(c.Params("id"), participantID, strings.TrimSpace(req.ReferralCode))
	if err != nil {
		switch {
		case errors.Is(err, ErrRoomNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, ErrRoomNotOpen), errors.Is(err, ErrRoomFull), errors.Is(err, ErrAlreadyJoined):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		default:
			log.Printf("DB Error joining room: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to join room"})
		}
	}
	return c.Status(fiber.StatusCreated).JSON(member)
}

// Join is the transactional join path: membership row, entry-fee debit
// and referral bookkeeping commit or roll back together.
func (s *RoomService) Join(roomID, participantID, referralCode string) (*models.RoomMember, error) {
	var member *models.RoomMember
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		q := tx
		if tx.Dialector.Name() == "postgres" {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var room models.Room
		if err := q.First(&room, "id = ?", roomID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoomNotFound
			}
			return err
		}
		if room.Status != models.RoomStatusOpen {
			return ErrRoomNotOpen
		}

		var memberCount int64
		if err := tx.Model(&models.RoomMember{}).
			Where("room_id = ?", room.ID).
			Count(&memberCount).Error; err != nil {
			return err
		}
		if room.MaxPlayers > 0 && memberCount >= int64(room.MaxPlayers) {
			return ErrRoomFull
		}

		var dup int64
		if err := tx.Model(&models.RoomMember{}).
			Where("room_id = ? AND participant_id = ?", room.ID, participantID).
			Count(&dup).Error; err != nil {
			return err
		}
		if dup > 0 {
			return ErrAlreadyJoined
		}

		m := &models.RoomMember{
			ID:               uuid.NewString(),
			RoomID:           room.ID,
			ParticipantID:    participantID,
			ReferralCodeUsed: referralCode,
		}
		if err := tx.Create(m).Error; err != nil {
			return err
		}

		if room.EntryFeeMinor > 0 {
			debit := &models.LedgerTransaction{
				ID:            uuid.NewString(),
				ParticipantID: participantID,
				AmountMinor:   -room.EntryFeeMinor,
				Type:          models.TransactionTypeEntryFee,
				Description: fmt.Sprintf("Entry fee of %s for room %s",
					FormatMinor(room.EntryFeeMinor), room.Name),
			}
			if err := tx.Create(debit).Error; err != nil {
				return err
			}
		}

		if referralCode != "" {
			if err := s.applyReferral(tx, &room, participantID, referralCode); err != nil {
				return err
			}
		}

		member = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// applyReferral awards the first-join bonus to the code's owner.
// Unknown or self-referencing codes are ignored rather than failing
// the join; only the first join ever awards a bonus per referred user.
func (s *RoomService) applyReferral(tx *gorm.DB, room *models.Room, participantID, code string) error {
	var referrer models.ArenaUser
	if err := tx.First(&referrer, "referral_code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("⚠️ Unknown referral code %q used joining room %s", code, room.ID)
			return nil
		}
		return err
	}
	if referrer.ExternalUserID == participantID {
		return nil
	}

	var existing int64
	if err := tx.Model(&models.Referral{}).
		Where("referred_id = ?", participantID).
		Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}

	now := time.Now()
	referral := &models.Referral{
		ID:               uuid.NewString(),
		ReferrerID:       referrer.ExternalUserID,
		ReferredID:       participantID,
		ReferralCodeUsed: code,
		RoomID:           room.ID,
		BonusMinor:       referralBonusMinor,
		BonusAwarded:     true,
		AwardedAt:        &now,
	}
	if err := tx.Create(referral).Error; err != nil {
		return err
	}

	bonus := &models.LedgerTransaction{
		ID:            uuid.NewString(),
		ParticipantID: referrer.ExternalUserID,
		AmountMinor:   referralBonusMinor,
		Type:          models.TransactionTypeReferralBonus,
		Description: fmt.Sprintf("Referral bonus of %s for code %s",
			FormatMinor(referralBonusMinor), code),
	}
	return tx.Create(bonus).Error
}

// StartMatch starts the room's tap race. Creator only; the room flips
// to playing and a fresh contest opens.
func (s *RoomService) StartMatch(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	roomID := c.Params("id")

	var room models.Room
	if err := s.DB.First(&room, "id = ?", roomID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "room not found"})
		}
		log.Printf("DB Error fetching room %s: %v", roomID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	if room.CreatorID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": ErrNotCreator.Error()})
	}
	if room.Status != models.RoomStatusOpen {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "room is not open"})
	}

	var memberCount int64
	s.DB.Model(&models.RoomMember{}).Where("room_id = ?", room.ID).Count(&memberCount)
	if memberCount == 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "room has no members"})
	}

	contest, err := s.Contests.StartContest(room.ID)
	if err != nil {
		log.Printf("DB Error starting contest for room %s: %v", room.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to start match"})
	}
	return c.Status(fiber.StatusCreated).JSON(contest)
}

// GetRoomLeaderboard orders the room's participants by total in the
// room's most recent contest.
func (s *RoomService) GetRoomLeaderboard(c *fiber.Ctx) error {
	roomID := c.Params("id")

	var contest models.Contest
	if err := s.DB.
		Where("room_id = ?", roomID).
		Order("start_time DESC").
		First(&contest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON([]models.ParticipantTotal{})
		}
		log.Printf("DB Error fetching contest for leaderboard: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	totals, err := contestTotals(s.DB, contest.ID)
	if err != nil {
		log.Printf("DB Error computing leaderboard for contest %s: %v", contest.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	type LeaderboardRow struct {
		ParticipantID string    `json:"participant_id"`
		Username      string    `json:"username,omitempty"`
		Total         int64     `json:"total"`
		LastTapAt     time.Time `json:"last_tap_at"`
	}
	rows := make([]LeaderboardRow, len(totals))
	for i, t := range totals {
		rows[i] = LeaderboardRow{
			ParticipantID: t.ParticipantID,
			Total:         t.Total,
			LastTapAt:     t.LastTapAt,
		}
		var user models.ArenaUser
		if err := s.DB.Select("username").First(&user, "external_user_id = ?", t.ParticipantID).Error; err == nil {
			rows[i].Username = user.Username
		}
	}

	return c.JSON(fiber.Map{
		"contest_id": contest.ID,
		"ended":      contest.EndTime != nil,
		"entries":    rows,
	})
}
