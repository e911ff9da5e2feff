package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/pongarena/backend/internal/config"
	"github.com/pongarena/backend/internal/handlers"
	"github.com/pongarena/backend/internal/middleware"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	friendHandler *handlers.FriendHandler,
	profileHandler *handlers.ProfileHandler,
	healthHandler *handlers.HealthHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	// Auth — public, with a stricter rate limit: 10 req/min per IP
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/signup", authHandler.Signup)
	auth.Post("/signup/oauth", authHandler.SignupOAuth)
	auth.Post("/login", authHandler.Login)
	auth.Post("/login/oauth", authHandler.LoginOAuth)
	auth.Post("/verify-2fa", authHandler.VerifyTwoFactor)
	auth.Post("/refresh", authHandler.Refresh)
	auth.Post("/password-reset", authHandler.RequestPasswordReset)
	auth.Post("/password-reset/confirm", authHandler.ConfirmPasswordReset)

	// Protected auth routes (JWT required)
	api.Post("/auth/logout", middleware.JWTProtected(cfg), authHandler.Logout)
	api.Delete("/auth/account", middleware.JWTProtected(cfg), authHandler.DeleteAccount)

	// Friends (protected)
	api.Post("/friends", middleware.JWTProtected(cfg), friendHandler.Request)
	api.Get("/friends", middleware.JWTProtected(cfg), friendHandler.List)
	api.Post("/friends/:user_id/approve", middleware.JWTProtected(cfg), friendHandler.Approve)
	api.Post("/friends/:user_id/deny", middleware.JWTProtected(cfg), friendHandler.Deny)

	// Profiles
	api.Get("/users/:username", profileHandler.GetByUsername)
	api.Patch("/users/me/username", middleware.JWTProtected(cfg), profileHandler.ChangeUsername)
	api.Patch("/users/me/password", middleware.JWTProtected(cfg), profileHandler.ChangePassword)
	api.Patch("/users/me/image", middleware.JWTProtected(cfg), profileHandler.UpdateImage)
	api.Patch("/users/me/language", middleware.JWTProtected(cfg), profileHandler.SetLanguage)
	api.Patch("/users/me/two-factor", middleware.JWTProtected(cfg), profileHandler.SetTwoFactor)
}
