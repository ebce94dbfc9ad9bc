package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/anjiri1684/tutor_booking/database"
	"github.com/anjiri1684/tutor_booking/models"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

// Monday 2 March 2026, mid-morning UTC.
var fixedNow = time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)

const (
	yesterday  = "2026-03-01"
	today      = "2026-03-02"
	tomorrow   = "2026-03-03"
	nextMonday = "2026-03-09"
)

func setup(t *testing.T) context.Context {
	t.Helper()
	t.Setenv("TIMEZONE", "UTC")
	require.NoError(t, database.ConnectSQLite(":memory:"))
	require.NoError(t, database.AutoMigrate())
	pinClock(t, fixedNow)
	return context.Background()
}

func pinClock(t *testing.T, at time.Time) {
	t.Helper()
	prev := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = prev })
}

func newUser(t *testing.T, role models.Role, name string, subjects ...string) *models.User {
	t.Helper()
	user := &models.User{
		FullName: name,
		Surname:  "Test",
		Email:    name + "@example.com",
		Password: "x",
		Role:     role,
		City:     "Nairobi",
		State:    "Nairobi",
		Country:  "Kenya",
		IsActive: true,
	}
	if len(subjects) > 0 {
		raw, err := json.Marshal(subjects)
		require.NoError(t, err)
		user.Subjects = datatypes.JSON(raw)
	}
	require.NoError(t, database.DB.Create(user).Error)
	return user
}

func newStudent(t *testing.T, name string) *models.User {
	return newUser(t, models.RoleStudent, name)
}

func newTeacher(t *testing.T, name string, subjects ...string) *models.User {
	if len(subjects) == 0 {
		subjects = []string{"Maths", "Physics"}
	}
	return newUser(t, models.RoleTeacher, name, subjects...)
}

// insertAppointment writes a row directly, bypassing booking rules.
func insertAppointment(t *testing.T, student, teacher *models.User, date, slot string, status models.AppointmentStatus) *models.Appointment {
	t.Helper()
	a := &models.Appointment{
		StudentID:   student.ID,
		StudentName: student.DisplayName(),
		TeacherID:   teacher.ID,
		TeacherName: teacher.DisplayName(),
		Subject:     "Maths",
		Date:        date,
		Time:        slot,
		MeetingType: models.ModalityOnline,
		Status:      status,
		CreatedAt:   database.ServerTimestamp(),
	}
	require.NoError(t, database.DB.Create(a).Error)
	return a
}

func offer(t *testing.T, ctx context.Context, teacher *models.User, day string, slots ...string) {
	t.Helper()
	for _, s := range slots {
		_, err := SetSlot(ctx, teacher.ID, day, s, true)
		require.NoError(t, err)
	}
}
