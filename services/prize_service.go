package services

import (
	"fmt"

	"tap-race-system/models"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gorm.io/gorm"
)

// Payout shares in basis points so the floor math stays integral.
const (
	winnerShareBps  = 9000 // 90% to the winner, all categories
	creatorShareBps = 700  // 7% to the room creator, hero rooms only
)

var amountPrinter = message.NewPrinter(language.English)

// FormatMinor renders an amount in minor units as a grouped decimal
// string, e.g. 1234567 → "12,345.67".
func FormatMinor(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return sign + amountPrinter.Sprintf("%d.%02d", amount/100, amount%100)
}

// PrizeSplit is the category split applied to a contest's pool.
// WinnerMinor + CreatorMinor + RetainedMinor == PoolMinor always holds;
// the retained share (nominal cut plus rounding dust) is posted to no
// one.
type PrizeSplit struct {
	PoolMinor     int64 `json:"pool_minor"`
	WinnerMinor   int64 `json:"winner_minor"`
	CreatorMinor  int64 `json:"creator_minor"`
	RetainedMinor int64 `json:"retained_minor"`
}

// SplitPool computes the payout split for a pool by room category.
func SplitPool(category models.RoomCategory, poolMinor int64) PrizeSplit {
	split := PrizeSplit{PoolMinor: poolMinor}
	split.WinnerMinor = poolMinor * winnerShareBps / 10000
	if category == models.RoomCategoryHero {
		split.CreatorMinor = poolMinor * creatorShareBps / 10000
	}
	split.RetainedMinor = poolMinor - split.WinnerMinor - split.CreatorMinor
	return split
}

// PrizeService posts payout ledger rows when a contest closes with a
// winner. It never touches a payment network; balances derive from the
// ledger downstream.
type PrizeService struct {
	DB *gorm.DB
}

func NewPrizeService(db *gorm.DB) *PrizeService {
	return &PrizeService{DB: db}
}

// Settle computes pool = entry fee × member count and posts the payout
// rows inside the caller's transaction. On hero rooms the creator share
// is a second, separate row — two distinct rows land on the same
// participant when the creator wins. Any error aborts the whole close
// so the contest stays active and unsettled for retry.
func (p *PrizeService) Settle(tx *gorm.DB, contest *models.Contest, room *models.Room, winnerID string) error {
	var memberCount int64
	if err := tx.Model(&models.RoomMember{}).
		Where("room_id = ?", room.ID).
		Count(&memberCount).Error; err != nil {
		return err
	}

	split := SplitPool(room.Category, room.EntryFeeMinor*memberCount)

	// Free rooms (and hero pools too small for a creator cut) produce
	// zero shares; no row is posted for a zero amount.
	if split.WinnerMinor > 0 {
		winnerRow := &models.LedgerTransaction{
			ID:            uuid.NewString(),
			ParticipantID: winnerID,
			AmountMinor:   split.WinnerMinor,
			Type:          models.TransactionTypePayout,
			Description: fmt.Sprintf("Winner payout of %s for contest %s (%s room)",
				FormatMinor(split.WinnerMinor), contest.ID, room.Category),
		}
		if err := tx.Create(winnerRow).Error; err != nil {
			return err
		}
	}

	if room.Category == models.RoomCategoryHero && split.CreatorMinor > 0 {
		creatorRow := &models.LedgerTransaction{
			ID:            uuid.NewString(),
			ParticipantID: room.CreatorID,
			AmountMinor:   split.CreatorMinor,
			Type:          models.TransactionTypePayout,
			Description: fmt.Sprintf("Creator payout of %s for contest %s (hero room)",
				FormatMinor(split.CreatorMinor), contest.ID),
		}
		if err := tx.Create(creatorRow).Error; err != nil {
			return err
		}
	}

	return nil
}
