package routes

import (
	"github.com/fitstack/fitstack-backend/internal/config"
	"github.com/fitstack/fitstack-backend/internal/handlers"
	"github.com/fitstack/fitstack-backend/internal/middleware"
	"github.com/fitstack/fitstack-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	blacklist services.TokenBlacklist,
) {
	api := app.Group("/api")

	// Coarse per-IP request ceiling for the whole API, on top of the
	// per-endpoint failure lockouts applied inside the auth service.
	general := cfg.Policy(config.EndpointGeneral)
	api.Use(limiter.New(limiter.Config{
		Max:               general.MaxAttempts,
		Expiration:        general.Lockout,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	users := api.Group("/users")
	users.Post("/register", authHandler.Register)
	users.Post("/login", authHandler.Login)
	users.Post("/oauth/google", authHandler.GoogleAuth)
	users.Post("/refresh", authHandler.Refresh)

	// Protected routes: signature+expiry gate, then revocation check.
	protected := []fiber.Handler{
		middleware.JWTProtected(cfg),
		middleware.BlacklistGuard(blacklist),
	}
	users.Post("/logout", append(protected, authHandler.Logout)...)
	users.Delete("/account", append(protected, authHandler.DeleteAccount)...)
}
