package handlers

import (
	"tap-race-system/middleware"
	"tap-race-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupWalletRoutes(app *fiber.App, walletService *services.WalletService, userService *services.UserService) {
	// 🔓 Public user search over the local mirror
	app.Get("/users/search", userService.SearchUsers)

	// 🔐 Authenticated wallet views
	secured := app.Group("/", middleware.UserContextMiddleware())
	secured.Get("/wallet/balance", walletService.GetBalance)
	secured.Get("/wallet/transactions", walletService.GetTransactions)
}
