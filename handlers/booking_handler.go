package handlers

import (
	"github.com/anjiri1684/tutor_booking/models"
	"github.com/anjiri1684/tutor_booking/services"
	"github.com/anjiri1684/tutor_booking/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type CreateAppointmentRequest struct {
	TeacherID   string `json:"teacher_id" validate:"required,uuid"`
	Subject     string `json:"subject"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	MeetingType string `json:"meeting_type"`
}

func CreateAppointment(c *fiber.Ctx) error {
	studentID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req CreateAppointmentRequest
	if ok, err := parse(c, &req); !ok {
		return err
	}
	teacherID, _ := uuid.Parse(req.TeacherID)

	appointment, err := services.CreateAppointment(c.UserContext(), services.CreateAppointmentInput{
		StudentID:   studentID,
		TeacherID:   teacherID,
		Subject:     req.Subject,
		Date:        req.Date,
		Time:        req.Time,
		MeetingType: models.Modality(req.MeetingType),
	})
	if err != nil {
		return failAction(c, studentID, "Failed to send request. Please try again.", err)
	}

	toastSuccess(studentID, "Appointment request sent successfully!")
	return c.Status(fiber.StatusCreated).JSON(appointment)
}

// GetMyAppointments returns the caller's appointments grouped for display.
func GetMyAppointments(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	appointments, err := services.ListForUser(c.UserContext(), userID, utils.CurrentRole(c))
	if err != nil {
		return fail(c, err)
	}
	today := services.Today()
	return c.JSON(fiber.Map{
		"today":   today,
		"buckets": services.Bucketize(appointments, today),
	})
}

func ConfirmAppointment(c *fiber.Ctx) error {
	teacherID, err := currentUser(c)
	if err != nil {
		return err
	}
	appointmentID, ok := paramID(c, "appointmentId")
	if !ok {
		return badID(c, "appointment")
	}

	appointment, err := services.ConfirmAppointment(c.UserContext(), teacherID, appointmentID)
	if err != nil {
		return failAction(c, teacherID, "Failed to accept appointment.", err)
	}
	toastSuccess(teacherID, "Appointment accepted!")
	return c.JSON(appointment)
}

type RejectAppointmentRequest struct {
	Reason string `json:"reason"`
}

func RejectAppointment(c *fiber.Ctx) error {
	teacherID, err := currentUser(c)
	if err != nil {
		return err
	}
	appointmentID, ok := paramID(c, "appointmentId")
	if !ok {
		return badID(c, "appointment")
	}
	var req RejectAppointmentRequest
	if ok, err := parse(c, &req); !ok {
		return err
	}

	appointment, err := services.RejectAppointment(c.UserContext(), teacherID, appointmentID, req.Reason)
	if err != nil {
		return failAction(c, teacherID, "Failed to reject appointment.", err)
	}
	toastSuccess(teacherID, "Appointment rejected.")
	return c.JSON(appointment)
}
