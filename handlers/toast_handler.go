package handlers

import (
	"github.com/anjiri1684/tutor_booking/notifications"
	"github.com/gofiber/fiber/v2"
)

func ListToasts(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(notifications.Toasts.Active(userID))
}

func DismissToast(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	toastID, ok := paramID(c, "toastId")
	if !ok {
		return badID(c, "toast")
	}
	if !notifications.Toasts.Dismiss(userID, toastID) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Toast not found or already dismissed"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
