// Package routes wires repositories, services, and handlers onto the fiber
// application.
package routes

import (
	"time"

	"boltcard/internal/config"
	"boltcard/internal/handlers"
	"boltcard/internal/lightning"
	"boltcard/internal/middleware"
	"boltcard/internal/repositories"
	"boltcard/internal/services/auth"
	cardsvc "boltcard/internal/services/card"
	"boltcard/internal/services/limits"
	"boltcard/internal/services/provision"
	"boltcard/internal/services/settlement"
	"boltcard/internal/services/tap"
	"boltcard/internal/services/withdraw"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SetupRoutes builds the dependency graph and registers all routes. The
// returned settlement listener is owned by the caller: start it after the
// server is up, stop it on shutdown.
func SetupRoutes(app *fiber.App, db *gorm.DB, engine lightning.Engine, log *logrus.Logger) *settlement.Listener {
	cardRepo := repositories.NewCardRepository(db, repositories.CacheService)
	hitRepo := repositories.NewHitRepository(db)
	refundRepo := repositories.NewRefundRepository(db)

	limitService := limits.NewService(cardRepo, hitRepo, engine)
	tapService := tap.NewService(cardRepo)
	withdrawService := withdraw.NewService(cardRepo, hitRepo, limitService, engine, log)
	provisionService := provision.NewService(cardRepo)
	cardService := cardsvc.NewService(cardRepo, hitRepo, refundRepo)

	authService := auth.NewService(auth.Config{
		Username:     config.GetEnv("OPERATOR_USER", "admin"),
		PasswordHash: config.GetEnv("OPERATOR_PASSWORD_HASH", ""),
		JWTSecret:    config.GetEnv("JWT_SECRET", "boltcard"),
		TokenTTL:     config.GetDurationEnv("JWT_TTL", 24*time.Hour),
	})
	authMiddleware := middleware.NewAuthMiddleware(authService)

	lnurlHandler := handlers.NewLNURLHandler(tapService, withdrawService, engine)
	provisionHandler := handlers.NewProvisionHandler(provisionService)
	cardHandler := handlers.NewCardHandler(cardService, config.GetEnv("WALLET_ID", "default"))
	authHandler := handlers.NewAuthHandler(authService)

	app.Get("/health", handlers.HealthCheck)

	api := app.Group("/api/v1")

	// Card-facing endpoints. No auth: the tap payload is the credential.
	api.Get("/scan/:external_id", lnurlHandler.Scan)
	api.Get("/balance/:external_id", lnurlHandler.Balance)
	api.Get("/lnurl/cb/:hit_id", lnurlHandler.Callback)
	api.Get("/lnurlp/:hit_id", lnurlHandler.PayOffer)
	api.Get("/lnurlp/cb/:hit_id", lnurlHandler.PayCallback)

	// Device provisioning. Rate-limited: OTPs are guessable in principle.
	authLimiter := limiter.New(limiter.Config{
		Max:        10,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"detail": "Too many requests. Please try again later.",
			})
		},
	})
	api.Get("/auth", authLimiter, provisionHandler.Auth)
	api.Post("/auth", authLimiter, provisionHandler.AuthPost)

	// Operator API.
	api.Post("/login", authHandler.Login)

	admin := api.Group("/cards", authMiddleware.Handler)
	admin.Get("/", cardHandler.List)
	admin.Post("/", cardHandler.Create)
	admin.Put("/:card_id", cardHandler.Update)
	admin.Delete("/:card_id", cardHandler.Delete)
	admin.Get("/enable/:card_id/:enable", cardHandler.SetEnabled)

	api.Get("/hits", authMiddleware.Handler, cardHandler.Hits)
	api.Get("/refunds", authMiddleware.Handler, cardHandler.Refunds)

	return settlement.NewListener(engine, hitRepo, refundRepo, log)
}
