package handlers

import (
	"github.com/anjiri1684/tutor_booking/services"
	"github.com/gofiber/fiber/v2"
)

// GetDashboard returns the caller's role-specific dashboard. Individual
// metrics that fail or time out are reported inside the body; the request
// itself still succeeds.
func GetDashboard(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	account, err := services.Resolve(c.UserContext(), userID)
	if err != nil {
		return fail(c, err)
	}

	switch a := account.(type) {
	case *services.StudentAccount:
		return c.JSON(services.StudentDashboard(c.UserContext(), &a.User))
	case *services.TeacherAccount:
		return c.JSON(services.TeacherDashboard(c.UserContext(), &a.User))
	}
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "No dashboard for this role"})
}
