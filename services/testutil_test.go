package services_test

import (
	"testing"
	"time"

	"tap-race-system/models"
	"tap-race-system/services"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a fresh in-memory sqlite database with the full
// schema. One connection only: :memory: databases are per-connection.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Room{},
		&models.RoomMember{},
		&models.Contest{},
		&models.Tap{},
		&models.LedgerTransaction{},
		&models.ArenaUser{},
		&models.Referral{},
	))
	return db
}

func newTestEngine(t *testing.T) (*services.ContestService, *clockwork.FakeClock, *gorm.DB) {
	t.Helper()

	db := newTestDB(t)
	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	engine := services.NewContestService(db, services.NewPrizeService(db), nil, clock)
	return engine, clock, db
}

func seedRoom(t *testing.T, db *gorm.DB, category models.RoomCategory, feeMinor int64, creatorID string, participants ...string) *models.Room {
	t.Helper()

	room := &models.Room{
		ID:            uuid.NewString(),
		Name:          "Test Arena",
		Slug:          "test-arena-" + uuid.NewString()[:8],
		Category:      category,
		EntryFeeMinor: feeMinor,
		CreatorID:     creatorID,
		RoundSeconds:  60,
		Status:        models.RoomStatusPlaying,
	}
	require.NoError(t, db.Create(room).Error)

	for _, p := range participants {
		require.NoError(t, db.Create(&models.RoomMember{
			ID:            uuid.NewString(),
			RoomID:        room.ID,
			ParticipantID: p,
		}).Error)
	}
	return room
}

func seedContest(t *testing.T, db *gorm.DB, room *models.Room, at time.Time) *models.Contest {
	t.Helper()

	contest := &models.Contest{
		ID:        uuid.NewString(),
		RoomID:    room.ID,
		StartTime: at,
	}
	require.NoError(t, db.Create(contest).Error)
	return contest
}

// seedTaps writes a committed tap row directly, standing in for counts
// that landed outside this engine instance (bulk ingestion, a
// concurrent submission that committed first).
func seedTaps(t *testing.T, db *gorm.DB, contestID, participantID string, count int, at time.Time) {
	t.Helper()

	require.NoError(t, db.Create(&models.Tap{
		ID:            uuid.NewString(),
		ContestID:     contestID,
		ParticipantID: participantID,
		Count:         count,
		CreatedAt:     at,
	}).Error)
}

// payouts returns every payout ledger row, biggest share first.
func payouts(t *testing.T, db *gorm.DB) []models.LedgerTransaction {
	t.Helper()

	var rows []models.LedgerTransaction
	require.NoError(t, db.
		Where("type = ?", models.TransactionTypePayout).
		Order("amount_minor DESC").
		Find(&rows).Error)
	return rows
}

func reloadContest(t *testing.T, db *gorm.DB, id string) *models.Contest {
	t.Helper()

	var contest models.Contest
	require.NoError(t, db.First(&contest, "id = ?", id).Error)
	return &contest
}

func reloadRoom(t *testing.T, db *gorm.DB, id string) *models.Room {
	t.Helper()

	var room models.Room
	require.NoError(t, db.First(&room, "id = ?", id).Error)
	return &room
}
