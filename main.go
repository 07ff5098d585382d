package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"tap-race-system/handlers"
	"tap-race-system/middleware"
	"tap-race-system/models"
	"tap-race-system/services"
	"tap-race-system/utils"
	"tap-race-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 20 * 1024 * 1024, // 20MB — room cover photos
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	// Load allowed origins from environment variable
	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID, X-User-Roles, X-Service-Token, X-Device-ID",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Room{},
		&models.RoomMember{},
		&models.Contest{},
		&models.Tap{},
		&models.LedgerTransaction{},
		&models.ArenaUser{},
		&models.Referral{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	// Realtime notifier is optional: without NATS_URL room events are
	// simply not published, nothing else changes.
	var notifier *services.Notifier
	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		notifier, err = services.NewNotifier(natsURL)
		if err != nil {
			log.Fatal("failed to connect to NATS:", err)
		}
		defer notifier.Close()
	} else {
		log.Println("⚠️  NATS_URL not set — room event publishing disabled")
	}

	prizeService := services.NewPrizeService(db)
	contestService := services.NewContestService(db, prizeService, notifier, clockwork.NewRealClock())
	roomService := services.NewRoomService(db, contestService)
	walletService := services.NewWalletService(db)
	userService := services.NewUserService(db)

	// --- Profile sync configuration ---
	syncServiceURL := os.Getenv("SYNC_SERVICE_URL")
	if syncServiceURL == "" {
		log.Fatal("SYNC_SERVICE_URL environment variable not set")
	}
	serviceToken := os.Getenv("ARENA_SERVICE_TOKEN")
	if serviceToken == "" {
		log.Fatal("ARENA_SERVICE_TOKEN environment variable not set")
	}

	authServiceURL := os.Getenv("AUTH_SERVICE_URL")
	if authServiceURL == "" {
		log.Fatal("AUTH_SERVICE_URL environment variable not set")
	}
	authClient := services.NewAuthServiceClient(authServiceURL, serviceToken)

	syncWorker := workers.NewArenaUserSyncWorker(db, syncServiceURL, "/api/v1/public/profiles", serviceToken)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Println("Starting Arena User Sync Worker...")
		syncWorker.Start(ctx)
	}()

	// The sweeper is the external caller that expires contests; the
	// engine itself never schedules timers.
	expiryWorker := workers.NewExpiryWorker(db, contestService)
	if err := expiryWorker.Start(); err != nil {
		log.Fatal("failed to start expiry sweeper:", err)
	}

	// ✅ Setup routes — enforced Gateway auth on everything
	handlers.SetupContestRoutes(app, contestService)
	handlers.SetupRoomRoutes(app, roomService, authClient)
	handlers.SetupWalletRoutes(app, walletService, userService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Arena User Sync Worker running")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
