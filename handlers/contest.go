package handlers

import (
	"errors"
	"log"

	"tap-race-system/middleware"
	"tap-race-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupContestRoutes(app *fiber.App, contestService *services.ContestService) {
	secured := app.Group("/", middleware.UserContextMiddleware())

	// submitTap — body: {"count": n}; participant comes from the gateway
	// user context, never from the body.
	secured.Post("/contests/:id/taps", func(c *fiber.Ctx) error {
		var req struct {
			Count int `json:"count"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
		}

		participantID, _ := c.Locals("user_id").(string)
		outcome, err := contestService.SubmitTap(c.Params("id"), participantID, req.Count)
		if err != nil {
			return contestError(c, err)
		}
		return c.JSON(outcome)
	})

	// forceEnd — admin/sweeper surface for caller-driven expiry. Role
	// gated: a participant in the lead must not be able to lock in the
	// pool early. The in-process sweeper calls ForceEnd directly and
	// never passes through this route.
	secured.Post("/contests/:id/end", middleware.RequireRole("admin", "service"), func(c *fiber.Ctx) error {
		contest, err := contestService.ForceEnd(c.Params("id"))
		if err != nil {
			return contestError(c, err)
		}
		winnerID := ""
		if contest.WinnerID != nil {
			winnerID = *contest.WinnerID
		}
		return c.JSON(fiber.Map{
			"contest":   contest,
			"winner_id": winnerID,
		})
	})

	secured.Get("/rooms/:id/contest", func(c *fiber.Ctx) error {
		contest, err := contestService.GetActiveContest(c.Params("id"))
		if err != nil {
			return contestError(c, err)
		}
		return c.JSON(contest)
	})
}

// contestError maps engine errors onto HTTP statuses. Unknown errors
// mean the whole unit rolled back, so the caller may safely retry.
func contestError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidTapCount):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrContestNotFound),
		errors.Is(err, services.ErrNoActiveContest),
		errors.Is(err, services.ErrRoomNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrContestEnded),
		errors.Is(err, services.ErrAwaitingTiebreaker):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	default:
		log.Printf("DB Error in contest handler: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error, safe to retry"})
	}
}
