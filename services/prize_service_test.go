package services_test

import (
	"testing"

	"tap-race-system/models"
	"tap-race-system/services"

	"github.com/stretchr/testify/assert"
)

func TestSplitPoolConservesEveryCent(t *testing.T) {
	t.Parallel()

	categories := []models.RoomCategory{
		models.RoomCategoryHero,
		models.RoomCategoryStandard,
		models.RoomCategoryBonus,
	}
	pools := []int64{0, 1, 99, 100, 12345, 999999, 1000000}

	for _, category := range categories {
		for _, pool := range pools {
			split := services.SplitPool(category, pool)
			assert.Equal(t, pool, split.WinnerMinor+split.CreatorMinor+split.RetainedMinor,
				"category %s pool %d leaks money", category, pool)
			assert.GreaterOrEqual(t, split.RetainedMinor, int64(0))
			if category != models.RoomCategoryHero {
				assert.Zero(t, split.CreatorMinor)
			}
		}
	}
}

func TestSplitPoolShares(t *testing.T) {
	t.Parallel()

	split := services.SplitPool(models.RoomCategoryStandard, 4000)
	assert.Equal(t, int64(3600), split.WinnerMinor)
	assert.Equal(t, int64(0), split.CreatorMinor)
	assert.Equal(t, int64(400), split.RetainedMinor)

	split = services.SplitPool(models.RoomCategoryHero, 5000)
	assert.Equal(t, int64(4500), split.WinnerMinor)
	assert.Equal(t, int64(350), split.CreatorMinor)
	assert.Equal(t, int64(150), split.RetainedMinor)

	// floor math on an awkward pool: rounding dust stays retained
	split = services.SplitPool(models.RoomCategoryHero, 99)
	assert.Equal(t, int64(89), split.WinnerMinor)
	assert.Equal(t, int64(6), split.CreatorMinor)
	assert.Equal(t, int64(4), split.RetainedMinor)
}

func TestFormatMinor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0.00", services.FormatMinor(0))
	assert.Equal(t, "0.05", services.FormatMinor(5))
	assert.Equal(t, "36.00", services.FormatMinor(3600))
	assert.Equal(t, "12,345.67", services.FormatMinor(1234567))
	assert.Equal(t, "-25.00", services.FormatMinor(-2500))
}
