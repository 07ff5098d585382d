package services

import (
	"strconv"
	"strings"

	"tap-race-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type UserService struct {
	DB *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

// SearchUsers searches the local ArenaUser mirror.
func (s *UserService) SearchUsers(c *fiber.Ctx) error {
	query := c.Query("q", "")
	limit, err := strconv.Atoi(c.Query("limit", "50"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 50
	}

	db := s.DB.Model(&models.ArenaUser{}).Limit(limit)
	if query != "" {
		searchTerm := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
		db = db.Where("LOWER(username) LIKE ? OR LOWER(email) LIKE ?", searchTerm, searchTerm)
	}

	var users []models.ArenaUser
	if err := db.Find(&users).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "search failed", "details": err.Error()})
	}

	// Expose only the fields external consumers need; ExternalUserID is
	// the identifier the rest of the platform keys on.
	type UserSummary struct {
		ExternalUserID string `json:"external_user_id"`
		Username       string `json:"username"`
		ReferralCode   string `json:"referral_code,omitempty"`
	}
	res := make([]UserSummary, len(users))
	for i, u := range users {
		res[i] = UserSummary{
			ExternalUserID: u.ExternalUserID,
			Username:       u.Username,
			ReferralCode:   u.ReferralCode,
		}
	}

	return c.JSON(res)
}
