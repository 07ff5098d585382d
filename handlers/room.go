package handlers

import (
	"tap-race-system/middleware"
	"tap-race-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupRoomRoutes(app *fiber.App, roomService *services.RoomService, authClient *services.AuthServiceClient) {
	// 🔓 Public routes
	app.Get("/rooms", roomService.GetOpenRooms)
	app.Get("/rooms/:id", roomService.GetRoom)

	// SSE stream authenticates via query params (EventSource cannot set headers)
	app.Get("/rooms/:id/stream", middleware.SSEAuthMiddleware(authClient), roomService.StreamRoomEventsSSE)

	// 🔐 Authenticated routes
	secured := app.Group("/", middleware.UserContextMiddleware())
	secured.Post("/rooms", roomService.CreateRoom)
	secured.Post("/rooms/:id/join", roomService.JoinRoom)
	secured.Post("/rooms/:id/start", roomService.StartMatch)
	secured.Get("/rooms/:id/leaderboard", roomService.GetRoomLeaderboard)
}
