package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AppointmentStatus string

const (
	StatusPending  AppointmentStatus = "pending"
	StatusUpcoming AppointmentStatus = "upcoming"
	StatusRejected AppointmentStatus = "rejected"
)

type Modality string

const (
	ModalityOnline  Modality = "online"
	ModalityOffline Modality = "offline"
)

// DateLayout is the storage format of Appointment.Date. It sorts
// chronologically as a string.
const DateLayout = "2006-01-02"

// Appointment is one booking request. StudentName and TeacherName are
// copied at creation and never refreshed.
//
// idx_appointments_slot is unique only among non-rejected rows, which is what
// makes a second booking of the same teacher/date/time fail at the store.
type Appointment struct {
	ID              uuid.UUID         `gorm:"type:uuid;primary_key" json:"id"`
	StudentID       uuid.UUID         `gorm:"type:uuid;not null;index" json:"student_id"`
	StudentName     string            `gorm:"size:255;not null" json:"student_name"`
	TeacherID       uuid.UUID         `gorm:"type:uuid;not null;index;uniqueIndex:idx_appointments_slot,where:status <> 'rejected'" json:"teacher_id"`
	TeacherName     string            `gorm:"size:255;not null" json:"teacher_name"`
	Subject         string            `gorm:"size:120;not null" json:"subject"`
	Date            string            `gorm:"size:10;not null;uniqueIndex:idx_appointments_slot,where:status <> 'rejected'" json:"date"`
	Time            string            `gorm:"size:10;not null;uniqueIndex:idx_appointments_slot,where:status <> 'rejected'" json:"time"`
	MeetingType     Modality          `gorm:"size:10;not null" json:"meeting_type"`
	Status          AppointmentStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	RejectionReason *string           `gorm:"type:text" json:"rejection_reason,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Counterpart returns the other participant from the point of view of userID.
func (a *Appointment) Counterpart(userID uuid.UUID) uuid.UUID {
	if a.StudentID == userID {
		return a.TeacherID
	}
	return a.StudentID
}
