package handlers

import (
	"github.com/anjiri1684/tutor_booking/services"
	"github.com/gofiber/fiber/v2"
)

const maxPictureSize = 5 << 20

func GetProfile(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	user, err := services.GetProfile(c.UserContext(), userID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(user)
}

func UpdateProfile(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req services.ProfileUpdate
	if ok, err := parse(c, &req); !ok {
		return err
	}

	user, err := services.UpdateProfile(c.UserContext(), userID, req)
	if err != nil {
		return failAction(c, userID, "Failed to update profile.", err)
	}
	toastSuccess(userID, "Profile updated successfully!")
	return c.JSON(user)
}

// UploadProfilePicture expects a multipart form with the image under
// "picture".
func UploadProfilePicture(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	header, err := c.FormFile("picture")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing picture file"})
	}
	if header.Size > maxPictureSize {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "Picture must be 5MB or smaller"})
	}
	file, err := header.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot read picture file"})
	}
	defer file.Close()

	user, err := services.SetProfilePicture(c.UserContext(), userID, file)
	if err != nil {
		return failAction(c, userID, "Failed to upload picture.", err)
	}
	toastSuccess(userID, "Profile picture updated!")
	return c.JSON(user)
}

func RemoveProfilePicture(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	user, err := services.RemoveProfilePicture(c.UserContext(), userID)
	if err != nil {
		return failAction(c, userID, "Failed to remove picture.", err)
	}
	toastSuccess(userID, "Profile picture removed.")
	return c.JSON(user)
}

func GetAcademicRecord(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	record, err := services.GetAcademicRecord(c.UserContext(), userID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(record)
}

func SubmitAcademicRecord(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req services.AcademicInput
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}

	record, err := services.SubmitAcademicRecord(c.UserContext(), userID, req)
	if err != nil {
		return failAction(c, userID, "Failed to save academic details.", err)
	}
	toastSuccess(userID, "Academic details saved!")
	return c.JSON(record)
}
