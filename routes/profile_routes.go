package routes

import (
	"github.com/anjiri1684/tutor_booking/handlers"
	"github.com/anjiri1684/tutor_booking/middleware"
	"github.com/gofiber/fiber/v2"
)

func ProfileRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	profile := api.Group("/profile", middleware.Protected())
	profile.Get("", handlers.GetProfile)
	profile.Put("", handlers.UpdateProfile)
	profile.Post("/picture", handlers.UploadProfilePicture)
	profile.Delete("/picture", handlers.RemoveProfilePicture)

	academic := profile.Group("/academic", middleware.StudentRequired())
	academic.Get("", handlers.GetAcademicRecord)
	academic.Put("", handlers.SubmitAcademicRecord)
}
