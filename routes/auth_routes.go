package routes

import (
	"github.com/anjiri1684/tutor_booking/handlers"
	"github.com/anjiri1684/tutor_booking/middleware"
	"github.com/gofiber/fiber/v2"
)

func AuthRoutes(app *fiber.App, limiter *middleware.RateLimiter) {
	api := app.Group("/api/v1")

	auth := api.Group("/auth")
	auth.Post("/register", middleware.RateLimit(limiter), handlers.RegisterUser)
	auth.Post("/login", middleware.RateLimit(limiter), handlers.LoginUser)
	auth.Post("/logout", middleware.Protected(), handlers.Logout)
	auth.Get("/session", middleware.Protected(), handlers.GetSession)
}
