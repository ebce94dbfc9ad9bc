package handlers

import (
	"github.com/anjiri1684/tutor_booking/services"
	"github.com/gofiber/fiber/v2"
)

func SearchTeachers(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	teachers, err := services.SearchTeachers(c.UserContext(), userID, c.Query("q"), c.Query("subject", services.AllSubjects))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(teachers)
}

func GetTeacherProfile(c *fiber.Ctx) error {
	teacherID, ok := paramID(c, "teacherId")
	if !ok {
		return badID(c, "teacher")
	}
	teacher, err := services.GetTeacher(c.UserContext(), teacherID)
	if err != nil {
		return fail(c, err)
	}
	template, err := services.GetWeeklyTemplate(c.UserContext(), teacherID)
	if err != nil {
		return fail(c, err)
	}
	note, err := services.GetScheduleNote(c.UserContext(), teacherID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"teacher":       teacher,
		"subjects":      services.TeacherSubjects(teacher),
		"availability":  template,
		"schedule_note": note,
	})
}

// GetBookableSlots lists the free slots of a teacher on ?date=YYYY-MM-DD.
func GetBookableSlots(c *fiber.Ctx) error {
	teacherID, ok := paramID(c, "teacherId")
	if !ok {
		return badID(c, "teacher")
	}
	date := c.Query("date")
	if date == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "date query parameter is required"})
	}
	slots, err := services.ComputeBookableSlots(c.UserContext(), teacherID, date)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"date": date, "slots": slots})
}

func GetMySchedule(c *fiber.Ctx) error {
	teacherID, err := currentUser(c)
	if err != nil {
		return err
	}
	template, err := services.GetWeeklyTemplate(c.UserContext(), teacherID)
	if err != nil {
		return fail(c, err)
	}
	note, err := services.GetScheduleNote(c.UserContext(), teacherID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"availability": template,
		"note":         note,
		"days":         services.Days,
		"slots":        services.SlotVocabulary,
	})
}

type ScheduleNoteRequest struct {
	Note string `json:"note"`
}

func SaveScheduleNote(c *fiber.Ctx) error {
	teacherID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req ScheduleNoteRequest
	if ok, err := parse(c, &req); !ok {
		return err
	}

	note, err := services.SaveScheduleNote(c.UserContext(), teacherID, req.Note)
	if err != nil {
		return failAction(c, teacherID, "Failed to update schedule note.", err)
	}
	toastSuccess(teacherID, "Schedule note saved.")
	return c.JSON(fiber.Map{"note": note})
}

func SaveMySchedule(c *fiber.Ctx) error {
	teacherID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req struct {
		Availability services.WeeklyTemplate `json:"availability" validate:"required"`
	}
	if ok, err := parse(c, &req); !ok {
		return err
	}

	template, err := services.SaveTemplate(c.UserContext(), teacherID, req.Availability)
	if err != nil {
		return failAction(c, teacherID, "Failed to update schedule.", err)
	}
	toastSuccess(teacherID, "Schedule updated successfully!")
	return c.JSON(fiber.Map{"availability": template})
}

type ToggleSlotRequest struct {
	Day       string `json:"day" validate:"required"`
	Slot      string `json:"slot" validate:"required"`
	Available bool   `json:"available"`
}

func ToggleSlot(c *fiber.Ctx) error {
	teacherID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req ToggleSlotRequest
	if ok, err := parse(c, &req); !ok {
		return err
	}

	template, err := services.SetSlot(c.UserContext(), teacherID, req.Day, req.Slot, req.Available)
	if err != nil {
		return failAction(c, teacherID, "Failed to update schedule.", err)
	}
	return c.JSON(fiber.Map{"availability": template})
}
