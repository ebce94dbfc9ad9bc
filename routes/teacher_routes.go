package routes

import (
	"github.com/anjiri1684/tutor_booking/handlers"
	"github.com/anjiri1684/tutor_booking/middleware"
	"github.com/gofiber/fiber/v2"
)

func TeacherRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	teachers := api.Group("/teachers", middleware.Protected())
	teachers.Get("", middleware.StudentRequired(), handlers.SearchTeachers)
	teachers.Get("/:teacherId", handlers.GetTeacherProfile)
	teachers.Get("/:teacherId/slots", handlers.GetBookableSlots)

	schedule := api.Group("/teacher/schedule", middleware.Protected(), middleware.TeacherRequired())
	schedule.Get("", handlers.GetMySchedule)
	schedule.Put("", handlers.SaveMySchedule)
	schedule.Patch("/slot", handlers.ToggleSlot)
	schedule.Put("/note", handlers.SaveScheduleNote)
}
