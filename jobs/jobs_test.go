package jobs

import (
	"context"
	"testing"

	"github.com/anjiri1684/tutor_booking/database"
	"github.com/anjiri1684/tutor_booking/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUser(t *testing.T, name string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{
		FullName: name,
		Surname:  "Test",
		Email:    name + "@example.com",
		Password: "x",
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, database.DB.Create(u).Error)
	return u
}

func TestRemindUpcomingEmailsBothParties(t *testing.T) {
	require.NoError(t, database.ConnectSQLite(":memory:"))
	require.NoError(t, database.AutoMigrate())

	student := seedUser(t, "amina", models.RoleStudent)
	teacher := seedUser(t, "juma", models.RoleTeacher)
	for _, a := range []models.Appointment{
		{Time: "10:00 AM", Status: models.StatusUpcoming},
		{Time: "11:00 AM", Status: models.StatusPending},
		{Time: "12:00 PM", Status: models.StatusRejected},
	} {
		a.StudentID, a.StudentName = student.ID, "amina Test"
		a.TeacherID, a.TeacherName = teacher.ID, "juma Test"
		a.Subject, a.Date, a.MeetingType = "Maths", "2026-03-03", models.ModalityOnline
		require.NoError(t, database.DB.Create(&a).Error)
	}

	var sent []string
	n, err := remindUpcoming(context.Background(), "2026-03-03", func(_, email, _, _ string) {
		sent = append(sent, email)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.ElementsMatch(t, []string{"amina@example.com", "juma@example.com"}, sent)

	n, err = remindUpcoming(context.Background(), "2026-03-04", func(string, string, string, string) {
		t.Fatal("no appointments that day")
	})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNudgePendingEmailsTeachersOnly(t *testing.T) {
	require.NoError(t, database.ConnectSQLite(":memory:"))
	require.NoError(t, database.AutoMigrate())

	student := seedUser(t, "amina", models.RoleStudent)
	teacher := seedUser(t, "juma", models.RoleTeacher)
	other := seedUser(t, "wanjiru", models.RoleTeacher)
	for _, a := range []models.Appointment{
		{TeacherID: teacher.ID, Time: "10:00 AM", Status: models.StatusPending},
		{TeacherID: teacher.ID, Time: "11:00 AM", Status: models.StatusPending},
		{TeacherID: other.ID, Time: "10:00 AM", Status: models.StatusUpcoming},
	} {
		a.StudentID, a.StudentName = student.ID, "amina Test"
		a.TeacherName = "Test"
		a.Subject, a.Date, a.MeetingType = "Maths", "2026-03-03", models.ModalityOnline
		require.NoError(t, database.DB.Create(&a).Error)
	}

	var sent []string
	n, err := nudgePending(context.Background(), "2026-03-03", func(_, email, _, body string) {
		sent = append(sent, email)
		assert.Contains(t, body, "2 unanswered")
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"juma@example.com"}, sent)

	var stillPending int64
	require.NoError(t, database.DB.Model(&models.Appointment{}).
		Where("status = ?", models.StatusPending).Count(&stillPending).Error)
	assert.EqualValues(t, 2, stillPending)
}

func TestNewSchedulerRegistersJobs(t *testing.T) {
	t.Setenv("TIMEZONE", "UTC")
	c, err := NewScheduler()
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 2)

	t.Setenv("PENDING_CRON", "every now and then")
	_, err = NewScheduler()
	assert.Error(t, err)
}
