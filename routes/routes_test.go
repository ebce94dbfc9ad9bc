package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anjiri1684/tutor_booking/database"
	"github.com/anjiri1684/tutor_booking/models"
	"github.com/anjiri1684/tutor_booking/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("RATE_LIMIT_BURST", "100")
	require.NoError(t, database.ConnectSQLite(":memory:"))
	require.NoError(t, database.AutoMigrate())
	return NewApp()
}

func call(t *testing.T, app *fiber.App, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func register(t *testing.T, app *fiber.App, name string) (string, string) {
	t.Helper()
	status, body := call(t, app, http.MethodPost, "/api/v1/auth/register", "", fiber.Map{
		"full_name": name,
		"surname":   "Test",
		"email":     name + "@example.com",
		"password":  "secret1",
		"role":      "student",
		"city":      "Nairobi",
		"state":     "Nairobi",
		"country":   "Kenya",
	})
	require.Equal(t, http.StatusCreated, status, body)
	user := body["user"].(map[string]any)
	return body["token"].(string), user["id"].(string)
}

func provisionTeacher(t *testing.T, app *fiber.App, name string) (string, string) {
	t.Helper()
	teacher, err := services.ProvisionTeacher(context.Background(), services.ProvisionTeacherInput{
		FullName: name,
		Surname:  "Test",
		Email:    name + "@example.com",
		Password: "secret1",
		City:     "Nairobi",
		State:    "Nairobi",
		Country:  "Kenya",
		Subjects: "Maths, Physics",
	})
	require.NoError(t, err)

	status, body := call(t, app, http.MethodPost, "/api/v1/auth/login", "", fiber.Map{
		"email": teacher.Email, "password": "secret1",
	})
	require.Equal(t, http.StatusOK, status, body)
	return body["token"].(string), teacher.ID.String()
}

func TestHealthAndMetrics(t *testing.T) {
	app := newTestApp(t)

	status, body := call(t, app, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	status, _ = call(t, app, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	app := newTestApp(t)

	status, _ := call(t, app, http.MethodGet, "/api/v1/appointments", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, app, http.MethodGet, "/api/v1/appointments", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestLoginWithWrongPassword(t *testing.T) {
	app := newTestApp(t)
	register(t, app, "amina")

	status, body := call(t, app, http.MethodPost, "/api/v1/auth/login", "", fiber.Map{
		"email": "amina@example.com", "password": "wrong-one",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid email or password", body["error"])
}

func TestSessionSuggestsHome(t *testing.T) {
	app := newTestApp(t)
	token, _ := register(t, app, "amina")

	status, body := call(t, app, http.MethodGet, "/api/v1/auth/session?from=/auth/login", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "student", body["role"])
	assert.Equal(t, "/student/home", body["redirect"])

	status, body = call(t, app, http.MethodGet, "/api/v1/auth/session?from=/student/messages", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.NotContains(t, body, "redirect")
}

func TestBookingFlow(t *testing.T) {
	app := newTestApp(t)
	studentToken, _ := register(t, app, "amina")
	teacherToken, teacherID := provisionTeacher(t, app, "juma")

	date := time.Now().UTC().AddDate(0, 0, 2)
	day := services.Days[date.Weekday()]
	dateStr := date.Format("2006-01-02")

	status, body := call(t, app, http.MethodPut, "/api/v1/teacher/schedule", teacherToken, fiber.Map{
		"availability": fiber.Map{day: []string{"10:00 AM"}},
	})
	require.Equal(t, http.StatusOK, status, body)

	status, body = call(t, app, http.MethodPut, "/api/v1/teacher/schedule/note", teacherToken, fiber.Map{"note": "Bring past papers"})
	require.Equal(t, http.StatusOK, status, body)

	status, body = call(t, app, http.MethodGet, "/api/v1/teachers/"+teacherID, studentToken, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "Bring past papers", body["schedule_note"])
	assert.Equal(t, []any{"10:00 AM"}, body["availability"].(map[string]any)[day])

	status, body = call(t, app, http.MethodGet, "/api/v1/teachers/"+teacherID+"/slots?date="+dateStr, studentToken, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, []any{"10:00 AM"}, body["slots"])

	request := fiber.Map{
		"teacher_id":   teacherID,
		"subject":      "maths",
		"date":         dateStr,
		"time":         "10:00 AM",
		"meeting_type": "online",
	}
	status, body = call(t, app, http.MethodPost, "/api/v1/appointments", studentToken, request)
	require.Equal(t, http.StatusCreated, status, body)
	appointmentID := body["id"].(string)
	assert.Equal(t, "pending", body["status"])

	status, _ = call(t, app, http.MethodPost, "/api/v1/appointments", studentToken, request)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = call(t, app, http.MethodPost, "/api/v1/appointments/"+appointmentID+"/confirm", studentToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = call(t, app, http.MethodPost, "/api/v1/appointments/"+appointmentID+"/confirm", teacherToken, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "upcoming", body["status"])

	status, body = call(t, app, http.MethodGet, "/api/v1/appointments", studentToken, nil)
	require.Equal(t, http.StatusOK, status)
	buckets := body["buckets"].(map[string]any)
	assert.Len(t, buckets["upcoming"], 1)
	assert.Empty(t, buckets["pending"])

	status, body = call(t, app, http.MethodGet, "/api/v1/toasts", studentToken, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestMessagingBetweenContacts(t *testing.T) {
	app := newTestApp(t)
	studentToken, studentID := register(t, app, "amina")
	teacherToken, teacherID := provisionTeacher(t, app, "juma")

	status, _ := call(t, app, http.MethodPost, "/api/v1/conversations/"+teacherID+"/messages", studentToken, fiber.Map{"text": "hello"})
	assert.Equal(t, http.StatusForbidden, status)

	date := time.Now().UTC().AddDate(0, 0, 3).Format("2006-01-02")
	require.NoError(t, database.DB.Create(&models.Appointment{
		StudentID:   uuid.MustParse(studentID),
		StudentName: "amina Test",
		TeacherID:   uuid.MustParse(teacherID),
		TeacherName: "juma Test",
		Subject:     "Maths",
		Date:        date,
		Time:        "09:00 AM",
		MeetingType: models.ModalityOnline,
		Status:      models.StatusUpcoming,
	}).Error)

	status, body := call(t, app, http.MethodPost, "/api/v1/conversations/"+teacherID+"/messages", studentToken, fiber.Map{"text": "  hello  "})
	require.Equal(t, http.StatusCreated, status, body)
	messageID := body["id"].(string)

	status, _ = call(t, app, http.MethodPost, "/api/v1/conversations/"+teacherID+"/messages", studentToken, fiber.Map{"text": "   "})
	assert.Equal(t, http.StatusNoContent, status)

	status, body = call(t, app, http.MethodGet, "/api/v1/messages/unread", teacherToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["unread"])

	status, _ = call(t, app, http.MethodPut, "/api/v1/messages/"+messageID, teacherToken, fiber.Map{"text": "edited"})
	assert.Equal(t, http.StatusForbidden, status)

	status, body = call(t, app, http.MethodPost, "/api/v1/conversations/"+studentID+"/read", teacherToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["marked_read"])

	status, body = call(t, app, http.MethodGet, "/api/v1/conversations/"+studentID+"/messages", teacherToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["messages"], 1)
}

func TestAdminOnlyRoutes(t *testing.T) {
	app := newTestApp(t)
	studentToken, _ := register(t, app, "amina")

	status, _ := call(t, app, http.MethodGet, "/api/v1/admin/teachers", studentToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = call(t, app, http.MethodGet, "/api/v1/admin/appointments/pending", studentToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
}
