package handlers

import (
	"time"

	config "github.com/anjiri1684/tutor_booking/configs"
	"github.com/anjiri1684/tutor_booking/services"
	"github.com/gofiber/fiber/v2"
)

const uploadFolder = "tutor_booking_profiles"

// GenerateUploadSignature creates a secure signature for a frontend upload.
func GenerateUploadSignature(c *fiber.Ctx) error {
	cloudinaryURL := config.Config("CLOUDINARY_URL")
	if cloudinaryURL == "" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Uploads are not configured"})
	}
	sig, err := services.SignUpload(cloudinaryURL, uploadFolder, time.Now())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(sig)
}
