package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// User is the profile record of a principal. Teacher-only fields stay zero
// for the other roles.
type User struct {
	ID                uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	FullName          string    `gorm:"size:255;not null" json:"full_name"`
	Surname           string    `gorm:"size:255;not null" json:"surname"`
	Email             string    `gorm:"size:255;not null;unique" json:"email"`
	Password          string    `gorm:"not null" json:"-"`
	Role              Role      `gorm:"size:20;not null;default:'student';index" json:"role"`
	City              string    `gorm:"size:120;index:idx_users_region" json:"city"`
	State             string    `gorm:"size:120;index:idx_users_region" json:"state"`
	Country           string    `gorm:"size:120;index:idx_users_region" json:"country"`
	ProfilePictureURL *string   `gorm:"size:512" json:"profile_picture_url"`

	Subjects          datatypes.JSON `json:"subjects,omitempty"`
	YearsOfExperience int            `gorm:"default:0" json:"years_of_experience,omitempty"`
	Qualifications    string         `gorm:"type:text" json:"qualifications,omitempty"`

	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (u *User) DisplayName() string {
	if u.Surname == "" {
		return u.FullName
	}
	return u.FullName + " " + u.Surname
}
