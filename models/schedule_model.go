package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// TeacherSchedule stores the weekly availability template as a JSON object
// of day name to slot labels, plus a free-text note shown to students.
// Availability and Note are saved separately and never overwrite each other.
type TeacherSchedule struct {
	TeacherID    uuid.UUID      `gorm:"type:uuid;primary_key" json:"teacher_id"`
	Availability datatypes.JSON `json:"availability"`
	Note         string         `gorm:"type:text" json:"note,omitempty"`
	UpdatedAt    time.Time      `json:"updated_at"`
}
