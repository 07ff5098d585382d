package services

import (
	"log"
	"strconv"

	"tap-race-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// WalletService exposes read-only views over the ledger. Balances are
// derived, never stored; withdrawals and payment-network settlement
// live in the external wallet service.
type WalletService struct {
	DB *gorm.DB
}

func NewWalletService(db *gorm.DB) *WalletService {
	return &WalletService{DB: db}
}

// Balance returns the signed sum of a participant's ledger rows.
func (s *WalletService) Balance(participantID string) (int64, error) {
	var balance int64
	err := s.DB.Model(&models.LedgerTransaction{}).
		Where("participant_id = ?", participantID).
		Select("COALESCE(SUM(amount_minor), 0)").
		Scan(&balance).Error
	return balance, err
}

// GetBalance returns the authenticated user's derived balance.
func (s *WalletService) GetBalance(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing user context"})
	}

	balance, err := s.Balance(userID)
	if err != nil {
		log.Printf("DB Error computing balance for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	return c.JSON(fiber.Map{
		"participant_id": userID,
		"balance_minor":  balance,
		"balance":        FormatMinor(balance),
	})
}

// GetTransactions returns the authenticated user's ledger history,
// newest first, with page/limit pagination and an optional type filter.
func (s *WalletService) GetTransactions(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing user context"})
	}

	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.Query("limit", "50"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 50
	}

	query := s.DB.Model(&models.LedgerTransaction{}).Where("participant_id = ?", userID)
	if txType := c.Query("type"); txType != "" {
		query = query.Where("type = ?", txType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		log.Printf("DB Error counting transactions for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var transactions []models.LedgerTransaction
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&transactions).Error; err != nil {
		log.Printf("DB Error fetching transactions for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	return c.JSON(fiber.Map{
		"page":         page,
		"limit":        limit,
		"total":        total,
		"transactions": transactions,
	})
}
