package routes

import (
	"github.com/anjiri1684/tutor_booking/handlers"
	"github.com/anjiri1684/tutor_booking/middleware"
	"github.com/gofiber/fiber/v2"
)

func AdminRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	admin := api.Group("/admin", middleware.Protected(), middleware.AdminRequired())
	admin.Get("/teachers", handlers.ListTeachers)
	admin.Post("/teachers", handlers.CreateTeacher)
	admin.Get("/appointments/pending", handlers.ListPendingRequests)
}
