package handlers

import (
	"github.com/anjiri1684/tutor_booking/services"
	"github.com/gofiber/fiber/v2"
)

// CreateTeacher provisions a teacher account on behalf of an admin.
func CreateTeacher(c *fiber.Ctx) error {
	adminID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req services.ProvisionTeacherInput
	if ok, err := parse(c, &req); !ok {
		return err
	}

	teacher, err := services.ProvisionTeacher(c.UserContext(), req)
	if err != nil {
		return failAction(c, adminID, "Failed to create teacher.", err)
	}
	toastSuccess(adminID, "Teacher account created for "+teacher.Email)
	return c.Status(fiber.StatusCreated).JSON(teacher)
}

func ListTeachers(c *fiber.Ctx) error {
	teachers, err := services.ListTeachers(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(teachers)
}

// ListPendingRequests shows unanswered requests for a day, tomorrow by default.
func ListPendingRequests(c *fiber.Ctx) error {
	pending, err := services.PendingOn(c.UserContext(), c.Query("date", services.Tomorrow()))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(pending)
}
