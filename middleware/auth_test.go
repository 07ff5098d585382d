package middleware_test

import (
	"net/http/httptest"
	"testing"

	"tap-race-system/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRoleGatedApp() *fiber.App {
	app := fiber.New()
	secured := app.Group("/", middleware.UserContextMiddleware())
	secured.Post("/admin-only", middleware.RequireRole("admin", "service"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestUserContextMiddlewareRejectsMissingUser(t *testing.T) {
	t.Parallel()

	app := newRoleGatedApp()
	resp, err := app.Test(httptest.NewRequest("POST", "/admin-only", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRequireRoleRejectsPlainParticipants(t *testing.T) {
	t.Parallel()

	app := newRoleGatedApp()
	req := httptest.NewRequest("POST", "/admin-only", nil)
	req.Header.Set("X-User-ID", "p1")
	req.Header.Set("X-User-Roles", "player")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestRequireRoleRejectsEmptyRoles(t *testing.T) {
	t.Parallel()

	app := newRoleGatedApp()
	req := httptest.NewRequest("POST", "/admin-only", nil)
	req.Header.Set("X-User-ID", "p1")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestRequireRoleAdmitsAllowedRole(t *testing.T) {
	t.Parallel()

	app := newRoleGatedApp()
	req := httptest.NewRequest("POST", "/admin-only", nil)
	req.Header.Set("X-User-ID", "ops-1")
	req.Header.Set("X-User-Roles", "player, admin")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
