package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/anjiri1684/tutor_booking/database"
	"github.com/anjiri1684/tutor_booking/models"
	"github.com/anjiri1684/tutor_booking/notifications"
	"github.com/anjiri1684/tutor_booking/services"
	"github.com/google/uuid"
)

type mailer func(toName, toEmail, subject, html string)

// SendAppointmentReminders emails both parties of every confirmed
// appointment scheduled for tomorrow.
func SendAppointmentReminders() {
	log.Println("Running job: SendAppointmentReminders...")
	n, err := remindUpcoming(context.Background(), services.Tomorrow(), notifications.SendEmail)
	if err != nil {
		log.Printf("Error sending appointment reminders: %v", err)
		return
	}
	if n > 0 {
		log.Printf("Sent reminders for %d appointments", n)
	}
}

func remindUpcoming(ctx context.Context, date string, send mailer) (int, error) {
	appointments, err := services.UpcomingOn(ctx, date)
	if err != nil {
		return 0, err
	}
	if len(appointments) == 0 {
		return 0, nil
	}

	ids := make([]uuid.UUID, 0, len(appointments)*2)
	for _, a := range appointments {
		ids = append(ids, a.StudentID, a.TeacherID)
	}
	var users []models.User
	if err := database.DB.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return 0, err
	}
	byID := make(map[uuid.UUID]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	for _, a := range appointments {
		log.Printf("Sending reminder for appointment ID: %s", a.ID)

		subject := "Reminder: You Have a Class Tomorrow"
		body := fmt.Sprintf(
			"<h1>Class Reminder</h1><p>Hi there,</p><p>Your %s session (%s) between %s and %s is scheduled for %s at %s.</p>",
			a.Subject, a.MeetingType, a.StudentName, a.TeacherName, a.Date, a.Time,
		)
		for _, id := range []uuid.UUID{a.StudentID, a.TeacherID} {
			if u, ok := byID[id]; ok {
				send(u.FullName, u.Email, subject, body)
			}
		}
	}
	return len(appointments), nil
}
