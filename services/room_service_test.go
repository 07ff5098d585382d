package services_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"tap-race-system/models"
	"tap-race-system/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedOpenRoom(t *testing.T, db *gorm.DB, feeMinor int64, maxPlayers int) *models.Room {
	t.Helper()

	room := &models.Room{
		ID:            uuid.NewString(),
		Name:          "Friday Night Race",
		Slug:          "friday-night-race-" + uuid.NewString()[:8],
		Category:      models.RoomCategoryStandard,
		EntryFeeMinor: feeMinor,
		CreatorID:     "creator",
		MaxPlayers:    maxPlayers,
		RoundSeconds:  60,
		Status:        models.RoomStatusOpen,
	}
	require.NoError(t, db.Create(room).Error)
	return room
}

func seedArenaUser(t *testing.T, db *gorm.DB, externalID, username, referralCode string) {
	t.Helper()

	require.NoError(t, db.Create(&models.ArenaUser{
		ID:             uuid.NewString(),
		ExternalUserID: externalID,
		Username:       username,
		ReferralCode:   referralCode,
	}).Error)
}

func TestFindRoomResolvesIDAndSlug(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	rooms := services.NewRoomService(db, nil)
	room := seedOpenRoom(t, db, 0, 0)

	// uuid param hits the id column, anything else the slug column —
	// a slug literal must never be compared against the uuid-typed id
	byID, err := rooms.FindRoom(room.ID)
	require.NoError(t, err)
	assert.Equal(t, room.ID, byID.ID)

	bySlug, err := rooms.FindRoom(room.Slug)
	require.NoError(t, err)
	assert.Equal(t, room.ID, bySlug.ID)

	_, err = rooms.FindRoom("no-such-room")
	assert.ErrorIs(t, err, services.ErrRoomNotFound)

	_, err = rooms.FindRoom(uuid.NewString())
	assert.ErrorIs(t, err, services.ErrRoomNotFound)
}

func TestGetRoomHandlerServesSlugLookups(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	rooms := services.NewRoomService(db, nil)
	room := seedOpenRoom(t, db, 0, 0)
	require.NoError(t, db.Create(&models.RoomMember{
		ID:            uuid.NewString(),
		RoomID:        room.ID,
		ParticipantID: "p1",
	}).Error)

	app := fiber.New()
	app.Get("/rooms/:id", rooms.GetRoom)

	for _, key := range []string{room.ID, room.Slug} {
		resp, err := app.Test(httptest.NewRequest("GET", "/rooms/"+key, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var got models.Room
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, room.ID, got.ID)
		assert.Equal(t, int64(1), got.MembersCount)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/rooms/nope", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestGetOpenRoomsReportsMemberCounts(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	rooms := services.NewRoomService(db, nil)
	room := seedOpenRoom(t, db, 0, 0)

	_, err := rooms.Join(room.ID, "p1", "")
	require.NoError(t, err)
	_, err = rooms.Join(room.ID, "p2", "")
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/rooms", rooms.GetOpenRooms)

	resp, err := app.Test(httptest.NewRequest("GET", "/rooms", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var listed []models.Room
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listed))
	require.Len(t, listed, 1)
	assert.Equal(t, room.ID, listed[0].ID)
	assert.Equal(t, int64(2), listed[0].MembersCount)
}

func TestJoinDebitsEntryFeeOnce(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	rooms := services.NewRoomService(db, nil)
	wallet := services.NewWalletService(db)
	room := seedOpenRoom(t, db, 1000, 0)

	member, err := rooms.Join(room.ID, "p1", "")
	require.NoError(t, err)
	assert.Equal(t, room.ID, member.RoomID)
	assert.Equal(t, "p1", member.ParticipantID)

	var debits []models.LedgerTransaction
	require.NoError(t, db.
		Where("participant_id = ? AND type = ?", "p1", models.TransactionTypeEntryFee).
		Find(&debits).Error)
	require.Len(t, debits, 1)
	assert.Equal(t, int64(-1000), debits[0].AmountMinor)

	balance, err := wallet.Balance("p1")
	require.NoError(t, err)
	assert.Equal(t, int64(-1000), balance)
}

func TestJoinFreeRoomPostsNoDebit(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	rooms := services.NewRoomService(db, nil)
	room := seedOpenRoom(t, db, 0, 0)

	_, err := rooms.Join(room.ID, "p1", "")
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.LedgerTransaction{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestJoinRejectsDuplicates(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	rooms := services.NewRoomService(db, nil)
	room := seedOpenRoom(t, db, 1000, 0)

	_, err := rooms.Join(room.ID, "p1", "")
	require.NoError(t, err)
	_, err = rooms.Join(room.ID, "p1", "")
	assert.ErrorIs(t, err, services.ErrAlreadyJoined)

	// the failed join must not debit a second fee
	var count int64
	require.NoError(t, db.Model(&models.LedgerTransaction{}).
		Where("participant_id = ?", "p1").
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestJoinRejectsFullRoom(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	rooms := services.NewRoomService(db, nil)
	room := seedOpenRoom(t, db, 0, 1)

	_, err := rooms.Join(room.ID, "p1", "")
	require.NoError(t, err)
	_, err = rooms.Join(room.ID, "p2", "")
	assert.ErrorIs(t, err, services.ErrRoomFull)
}

func TestJoinRejectsClosedOrMissingRoom(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	rooms := services.NewRoomService(db, nil)
	room := seedOpenRoom(t, db, 0, 0)
	require.NoError(t, db.Model(&models.Room{}).
		Where("id = ?", room.ID).
		Update("status", models.RoomStatusPlaying).Error)

	_, err := rooms.Join(room.ID, "p1", "")
	assert.ErrorIs(t, err, services.ErrRoomNotOpen)

	_, err = rooms.Join("no-such-room", "p1", "")
	assert.ErrorIs(t, err, services.ErrRoomNotFound)
}

func TestReferralBonusAwardedOnFirstJoinOnly(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	rooms := services.NewRoomService(db, nil)
	wallet := services.NewWalletService(db)
	seedArenaUser(t, db, "ref-user", "referrer", "GOLD")

	first := seedOpenRoom(t, db, 1000, 0)
	second := seedOpenRoom(t, db, 0, 0)

	_, err := rooms.Join(first.ID, "p1", "GOLD")
	require.NoError(t, err)

	balance, err := wallet.Balance("ref-user")
	require.NoError(t, err)
	assert.Equal(t, int64(500), balance)

	var referral models.Referral
	require.NoError(t, db.First(&referral, "referred_id = ?", "p1").Error)
	assert.Equal(t, "ref-user", referral.ReferrerID)
	assert.Equal(t, first.ID, referral.RoomID)
	assert.True(t, referral.BonusAwarded)

	// same code on a later join awards nothing more
	_, err = rooms.Join(second.ID, "p1", "GOLD")
	require.NoError(t, err)

	balance, err = wallet.Balance("ref-user")
	require.NoError(t, err)
	assert.Equal(t, int64(500), balance)

	var referrals int64
	require.NoError(t, db.Model(&models.Referral{}).
		Where("referred_id = ?", "p1").
		Count(&referrals).Error)
	assert.Equal(t, int64(1), referrals)
}

func TestReferralUnknownOrSelfCodeIgnored(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	rooms := services.NewRoomService(db, nil)
	seedArenaUser(t, db, "p1", "racer", "MINE")

	first := seedOpenRoom(t, db, 0, 0)
	second := seedOpenRoom(t, db, 0, 0)

	_, err := rooms.Join(first.ID, "p1", "NOPE")
	require.NoError(t, err, "unknown code must not fail the join")

	_, err = rooms.Join(second.ID, "p1", "MINE")
	require.NoError(t, err, "self-referral must not fail the join")

	var referrals int64
	require.NoError(t, db.Model(&models.Referral{}).Count(&referrals).Error)
	assert.Zero(t, referrals)
}

func TestWalletBalanceIsSignedSum(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	wallet := services.NewWalletService(db)

	for _, row := range []models.LedgerTransaction{
		{ID: uuid.NewString(), ParticipantID: "p1", AmountMinor: -1000, Type: models.TransactionTypeEntryFee},
		{ID: uuid.NewString(), ParticipantID: "p1", AmountMinor: 3600, Type: models.TransactionTypePayout},
		{ID: uuid.NewString(), ParticipantID: "p1", AmountMinor: 500, Type: models.TransactionTypeReferralBonus},
		{ID: uuid.NewString(), ParticipantID: "p2", AmountMinor: -1000, Type: models.TransactionTypeEntryFee},
	} {
		require.NoError(t, db.Create(&row).Error)
	}

	balance, err := wallet.Balance("p1")
	require.NoError(t, err)
	assert.Equal(t, int64(3100), balance)

	balance, err = wallet.Balance("nobody")
	require.NoError(t, err)
	assert.Zero(t, balance)
}
