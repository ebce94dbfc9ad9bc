package models

import (
	"time"

	"github.com/google/uuid"
)

type EducationLevel string

const (
	EducationCollege EducationLevel = "college"
	EducationSchool  EducationLevel = "school"
	EducationDropper EducationLevel = "dropper"
)

// AcademicRecord holds exactly one of three shapes, selected by
// EducationLevel. Columns that belong to the other shapes are kept empty.
type AcademicRecord struct {
	StudentID      uuid.UUID      `gorm:"type:uuid;primary_key" json:"student_id"`
	EducationLevel EducationLevel `gorm:"size:20;not null" json:"education_level"`

	Institution string `gorm:"size:255" json:"institution,omitempty"`
	City        string `gorm:"size:120" json:"city,omitempty"`
	State       string `gorm:"size:120" json:"state,omitempty"`

	Degree      string `gorm:"size:120" json:"degree,omitempty"`
	Course      string `gorm:"size:120" json:"course,omitempty"`
	PassingYear int    `json:"passing_year,omitempty"`

	ClassName string `gorm:"size:60" json:"class_name,omitempty"`
	Stream    string `gorm:"size:120" json:"stream,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}
