package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/anjiri1684/tutor_booking/database"
	"github.com/anjiri1684/tutor_booking/metrics"
	"github.com/anjiri1684/tutor_booking/models"
	"github.com/anjiri1684/tutor_booking/notifications"
	"github.com/anjiri1684/tutor_booking/realtime"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CreateAppointmentInput struct {
	StudentID   uuid.UUID
	TeacherID   uuid.UUID
	Subject     string
	Date        string
	Time        string
	MeetingType models.Modality
}

// ComputeBookableSlots returns the template slots for the weekday of date
// that have no non-rejected appointment, in template order.
func ComputeBookableSlots(ctx context.Context, teacherID uuid.UUID, date string) ([]string, error) {
	day, err := parseDate(date)
	if err != nil {
		return nil, invalid("date", "expected YYYY-MM-DD")
	}

	template, err := GetWeeklyTemplate(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	offered := template.SlotsFor(day)
	if len(offered) == 0 {
		return []string{}, nil
	}

	var taken []string
	err = database.DB.WithContext(ctx).Model(&models.Appointment{}).
		Where("teacher_id = ? AND date = ? AND status <> ?", teacherID, date, models.StatusRejected).
		Pluck("time", &taken).Error
	if err != nil {
		return nil, storeErr("load booked slots", "", err)
	}

	booked := make(map[string]bool, len(taken))
	for _, t := range taken {
		booked[t] = true
	}
	free := make([]string, 0, len(offered))
	for _, s := range offered {
		if !booked[s] {
			free = append(free, s)
		}
	}
	return free, nil
}

func (in CreateAppointmentInput) validate(today string) error {
	if strings.TrimSpace(in.Subject) == "" {
		return invalid("subject", "please select a subject")
	}
	if in.Date == "" {
		return invalid("date", "please select a date")
	}
	if in.Time == "" {
		return invalid("time", "please select a time slot")
	}
	if _, err := parseDate(in.Date); err != nil {
		return invalid("date", "expected YYYY-MM-DD")
	}
	if in.Date <= today {
		return invalid("date", "appointments can only be booked for a future date")
	}
	if !IsSlot(in.Time) {
		return invalid("time", "unknown slot "+in.Time)
	}
	if in.MeetingType != models.ModalityOnline && in.MeetingType != models.ModalityOffline {
		return invalid("meeting_type", "must be online or offline")
	}
	return nil
}

func loadUser(ctx context.Context, db *gorm.DB, id uuid.UUID, role models.Role, entity string) (*models.User, error) {
	var user models.User
	if err := db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, storeErr("load "+entity, entity, err)
	}
	if user.Role != role {
		return nil, notFound(entity, id)
	}
	return &user, nil
}

// CreateAppointment books a pending request. The slot check and the insert
// run in one transaction and the partial unique index on
// (teacher_id, date, time) backs it up, so two students racing for the same
// slot cannot both win.
func CreateAppointment(ctx context.Context, in CreateAppointmentInput) (*models.Appointment, error) {
	in.Subject = strings.TrimSpace(in.Subject)
	if err := in.validate(Today()); err != nil {
		return nil, err
	}

	student, err := loadUser(ctx, database.DB, in.StudentID, models.RoleStudent, "student")
	if err != nil {
		return nil, err
	}
	teacher, err := loadUser(ctx, database.DB, in.TeacherID, models.RoleTeacher, "teacher")
	if err != nil {
		return nil, err
	}
	if !containsFold(TeacherSubjects(teacher), in.Subject) {
		return nil, invalid("subject", fmt.Sprintf("%s does not teach %s", teacher.DisplayName(), in.Subject))
	}

	template, err := GetWeeklyTemplate(ctx, teacher.ID)
	if err != nil {
		return nil, err
	}
	day, _ := parseDate(in.Date)
	if !contains(template.SlotsFor(day), in.Time) {
		return nil, invalid("time", "the teacher is not available at this time")
	}

	appointment := models.Appointment{
		StudentID:   student.ID,
		StudentName: student.DisplayName(),
		TeacherID:   teacher.ID,
		TeacherName: teacher.DisplayName(),
		Subject:     in.Subject,
		Date:        in.Date,
		Time:        in.Time,
		MeetingType: in.MeetingType,
		Status:      models.StatusPending,
		CreatedAt:   database.ServerTimestamp(),
	}

	err = database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureSlotFree(tx, teacher.ID, in.Date, in.Time, uuid.Nil); err != nil {
			return err
		}
		return tx.Create(&appointment).Error
	})
	if err != nil {
		if isUnique(err) {
			err = slotTaken()
		}
		if _, ok := err.(*ConflictError); ok {
			metrics.BookingConflicts.Inc()
		}
		return nil, storeErr("create appointment", "", err)
	}

	metrics.AppointmentsCreated.Inc()
	publishAppointment("appointment.created", &appointment)
	go notifications.SendEmail(
		teacher.FullName,
		teacher.Email,
		"New Appointment Request",
		fmt.Sprintf("<h1>New Request</h1><p>%s asked for a %s session (%s) on %s at %s.</p>",
			appointment.StudentName, appointment.Subject, appointment.MeetingType, appointment.Date, appointment.Time),
	)
	return &appointment, nil
}

func slotTaken() error {
	return &ConflictError{Message: "this slot has just been booked, please pick another one"}
}

// ensureSlotFree fails with ConflictError when another non-rejected
// appointment holds the slot. except excludes the appointment being changed.
func ensureSlotFree(tx *gorm.DB, teacherID uuid.UUID, date, slot string, except uuid.UUID) error {
	q := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Model(&models.Appointment{}).
		Where("teacher_id = ? AND date = ? AND time = ? AND status <> ?", teacherID, date, slot, models.StatusRejected)
	if except != uuid.Nil {
		q = q.Where("id <> ?", except)
	}
	var ids []uuid.UUID
	if err := q.Limit(1).Pluck("id", &ids).Error; err != nil {
		return err
	}
	if len(ids) > 0 {
		return slotTaken()
	}
	return nil
}

// transition moves a pending appointment owned by teacherID to status. apply
// runs inside the transaction after the status guard.
func transition(ctx context.Context, teacherID, appointmentID uuid.UUID, to models.AppointmentStatus, apply func(tx *gorm.DB, a *models.Appointment) error) (*models.Appointment, error) {
	var appointment models.Appointment
	err := database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&appointment, "id = ?", appointmentID).Error; err != nil {
			return err
		}
		if appointment.TeacherID != teacherID {
			return &PermissionError{Message: "only the teacher of this appointment can change it"}
		}
		if appointment.Status != models.StatusPending {
			return &InvalidTransitionError{From: string(appointment.Status), To: string(to)}
		}
		return apply(tx, &appointment)
	})
	if err != nil {
		if isUnique(err) {
			err = slotTaken()
		}
		return nil, storeErr("update appointment", "appointment", err)
	}

	metrics.AppointmentTransitions.WithLabelValues(string(to)).Inc()
	publishAppointment("appointment."+string(to), &appointment)
	return &appointment, nil
}

// ConfirmAppointment accepts a pending request. The slot is checked again so
// that a stale request cannot be confirmed on top of another booking.
func ConfirmAppointment(ctx context.Context, teacherID, appointmentID uuid.UUID) (*models.Appointment, error) {
	today := Today()
	appointment, err := transition(ctx, teacherID, appointmentID, models.StatusUpcoming, func(tx *gorm.DB, a *models.Appointment) error {
		if a.Date <= today {
			return invalid("date", "this appointment date has already passed")
		}
		if err := ensureSlotFree(tx, a.TeacherID, a.Date, a.Time, a.ID); err != nil {
			return err
		}
		a.Status = models.StatusUpcoming
		return tx.Model(a).Update("status", a.Status).Error
	})
	if err != nil {
		return nil, err
	}

	notifyStudent(ctx, appointment, "Appointment Confirmed",
		fmt.Sprintf("<h1>Confirmed</h1><p>%s accepted your %s session on %s at %s.</p>",
			appointment.TeacherName, appointment.Subject, appointment.Date, appointment.Time))
	return appointment, nil
}

// RejectAppointment declines a pending request. The reason is required.
func RejectAppointment(ctx context.Context, teacherID, appointmentID uuid.UUID, reason string) (*models.Appointment, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, invalid("reason", "please provide a reason for rejection")
	}

	appointment, err := transition(ctx, teacherID, appointmentID, models.StatusRejected, func(tx *gorm.DB, a *models.Appointment) error {
		a.Status = models.StatusRejected
		a.RejectionReason = &reason
		return tx.Model(a).Updates(map[string]any{"status": a.Status, "rejection_reason": reason}).Error
	})
	if err != nil {
		return nil, err
	}

	notifyStudent(ctx, appointment, "Appointment Request Declined",
		fmt.Sprintf("<h1>Request Declined</h1><p>%s could not take your session on %s at %s.</p><p>Reason: %s</p>",
			appointment.TeacherName, appointment.Date, appointment.Time, reason))
	return appointment, nil
}

func notifyStudent(ctx context.Context, a *models.Appointment, subject, html string) {
	var student models.User
	if err := database.DB.WithContext(ctx).Select("full_name", "email").First(&student, "id = ?", a.StudentID).Error; err != nil {
		return
	}
	go notifications.SendEmail(student.FullName, student.Email, subject, html)
}

func publishAppointment(eventType string, a *models.Appointment) {
	realtime.Default.Publish(realtime.AppointmentsTopic(a.StudentID), eventType, a)
	realtime.Default.Publish(realtime.AppointmentsTopic(a.TeacherID), eventType, a)
}

// AppointmentFilter selects the appointments of one participant. Exactly one
// of the ids must be set.
type AppointmentFilter struct {
	StudentID uuid.UUID
	TeacherID uuid.UUID
	Status    models.AppointmentStatus
}

func ListAppointments(ctx context.Context, filter AppointmentFilter) ([]models.Appointment, error) {
	q := database.DB.WithContext(ctx).Model(&models.Appointment{})
	switch {
	case filter.StudentID != uuid.Nil && filter.TeacherID == uuid.Nil:
		q = q.Where("student_id = ?", filter.StudentID)
	case filter.TeacherID != uuid.Nil && filter.StudentID == uuid.Nil:
		q = q.Where("teacher_id = ?", filter.TeacherID)
	default:
		return nil, invalid("filter", "filter by exactly one of student or teacher")
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	appointments := []models.Appointment{}
	if err := q.Order("date ASC").Order("created_at ASC").Find(&appointments).Error; err != nil {
		return nil, storeErr("list appointments", "", err)
	}
	return appointments, nil
}

// ListForUser lists the appointments of a principal on the side its role
// takes part in.
func ListForUser(ctx context.Context, userID uuid.UUID, role models.Role) ([]models.Appointment, error) {
	switch role {
	case models.RoleStudent:
		return ListAppointments(ctx, AppointmentFilter{StudentID: userID})
	case models.RoleTeacher:
		return ListAppointments(ctx, AppointmentFilter{TeacherID: userID})
	}
	return []models.Appointment{}, nil
}

// Buckets groups appointments for display. Upcoming holds only dates after
// today; confirmed appointments dated today go to Today and earlier ones to
// Past.
type Buckets struct {
	Pending  []models.Appointment `json:"pending"`
	Upcoming []models.Appointment `json:"upcoming"`
	Today    []models.Appointment `json:"today"`
	Rejected []models.Appointment `json:"rejected"`
	Past     []models.Appointment `json:"past"`
}

func Bucketize(appointments []models.Appointment, today string) Buckets {
	b := Buckets{
		Pending:  []models.Appointment{},
		Upcoming: []models.Appointment{},
		Today:    []models.Appointment{},
		Rejected: []models.Appointment{},
		Past:     []models.Appointment{},
	}
	for _, a := range appointments {
		switch a.Status {
		case models.StatusPending:
			b.Pending = append(b.Pending, a)
		case models.StatusRejected:
			b.Rejected = append(b.Rejected, a)
		case models.StatusUpcoming:
			switch {
			case a.Date > today:
				b.Upcoming = append(b.Upcoming, a)
			case a.Date == today:
				b.Today = append(b.Today, a)
			default:
				b.Past = append(b.Past, a)
			}
		}
	}
	sortByDate(b.Pending, true)
	sortByDate(b.Upcoming, true)
	sortByDate(b.Today, true)
	sortByDate(b.Rejected, false)
	sortByDate(b.Past, false)
	return b
}

func sortByDate(list []models.Appointment, ascending bool) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Date != b.Date {
			return (a.Date < b.Date) == ascending
		}
		if a.Time != b.Time {
			return (slotRank[a.Time] < slotRank[b.Time]) == ascending
		}
		return false
	})
}

// PendingOn returns the unanswered requests dated date across all teachers.
// Requests whose date passes unanswered stay pending; confirmation refuses
// them from then on.
func PendingOn(ctx context.Context, date string) ([]models.Appointment, error) {
	if _, err := parseDate(date); err != nil {
		return nil, invalid("date", "expected YYYY-MM-DD")
	}
	var appointments []models.Appointment
	err := database.DB.WithContext(ctx).
		Where("status = ? AND date = ?", models.StatusPending, date).
		Order("teacher_id ASC").Find(&appointments).Error
	if err != nil {
		return nil, storeErr("load pending requests", "", err)
	}
	sortByDate(appointments, true)
	return appointments, nil
}

// UpcomingOn returns the confirmed appointments on date across all users.
func UpcomingOn(ctx context.Context, date string) ([]models.Appointment, error) {
	var appointments []models.Appointment
	err := database.DB.WithContext(ctx).
		Where("status = ? AND date = ?", models.StatusUpcoming, date).
		Order("time ASC").Find(&appointments).Error
	if err != nil {
		return nil, storeErr("load upcoming appointments", "", err)
	}
	return appointments, nil
}

func Tomorrow() string { return addDays(Today(), 1) }

func TeacherSubjects(u *models.User) []string {
	if len(u.Subjects) == 0 {
		return []string{}
	}
	var subjects []string
	if err := json.Unmarshal(u.Subjects, &subjects); err != nil {
		return []string{}
	}
	return subjects
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
