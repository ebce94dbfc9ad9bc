package routes

import (
	"github.com/anjiri1684/tutor_booking/handlers"
	"github.com/anjiri1684/tutor_booking/middleware"
	"github.com/gofiber/fiber/v2"
)

func BookingRoutes(app *fiber.App, limiter *middleware.RateLimiter) {
	api := app.Group("/api/v1")

	appointments := api.Group("/appointments", middleware.Protected())
	appointments.Get("", handlers.GetMyAppointments)
	appointments.Post("", middleware.StudentRequired(), middleware.RateLimit(limiter), handlers.CreateAppointment)
	appointments.Post("/:appointmentId/confirm", middleware.TeacherRequired(), handlers.ConfirmAppointment)
	appointments.Post("/:appointmentId/reject", middleware.TeacherRequired(), handlers.RejectAppointment)
}
