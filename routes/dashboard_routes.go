package routes

import (
	"github.com/anjiri1684/tutor_booking/handlers"
	"github.com/anjiri1684/tutor_booking/middleware"
	"github.com/gofiber/fiber/v2"
)

func DashboardRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	api.Get("/dashboard", middleware.Protected(), handlers.GetDashboard)

	toasts := api.Group("/toasts", middleware.Protected())
	toasts.Get("", handlers.ListToasts)
	toasts.Delete("/:toastId", handlers.DismissToast)
}
