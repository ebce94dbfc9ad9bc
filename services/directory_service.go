package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/anjiri1684/tutor_booking/database"
	"github.com/anjiri1684/tutor_booking/models"
	"github.com/anjiri1684/tutor_booking/notifications"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AllSubjects disables the subject filter of a search.
const AllSubjects = "All"

type ProvisionTeacherInput struct {
	FullName          string `json:"full_name" validate:"required"`
	Surname           string `json:"surname" validate:"required"`
	Email             string `json:"email" validate:"required,email"`
	Password          string `json:"password" validate:"required,min=6"`
	City              string `json:"city" validate:"required"`
	State             string `json:"state" validate:"required"`
	Country           string `json:"country" validate:"required"`
	Subjects          string `json:"subjects" validate:"required"`
	YearsOfExperience int    `json:"years_of_experience" validate:"min=0,max=80"`
	Qualifications    string `json:"qualifications"`
}

// ProvisionTeacher creates a teacher account on behalf of an admin.
func ProvisionTeacher(ctx context.Context, in ProvisionTeacherInput) (*models.User, error) {
	if err := validate.Struct(in); err != nil {
		return nil, validationFailed(err)
	}
	subjects := SplitSubjects(in.Subjects)
	if len(subjects) == 0 {
		return nil, invalid("subjects", "list at least one subject")
	}

	teacher, err := createUser(ctx, SignUpInput{
		FullName: in.FullName,
		Surname:  in.Surname,
		Email:    in.Email,
		Password: in.Password,
		Role:     models.RoleTeacher,
		City:     in.City,
		State:    in.State,
		Country:  in.Country,
	}, subjects)
	if err != nil {
		return nil, err
	}

	teacher.YearsOfExperience = in.YearsOfExperience
	teacher.Qualifications = strings.TrimSpace(in.Qualifications)
	if teacher.YearsOfExperience != 0 || teacher.Qualifications != "" {
		err := database.DB.WithContext(ctx).Model(teacher).
			Select("years_of_experience", "qualifications").Updates(teacher).Error
		if err != nil {
			return nil, storeErr("save teacher details", "", err)
		}
	}

	go notifications.SendEmail(
		teacher.FullName,
		teacher.Email,
		"Your Teacher Account Is Ready",
		fmt.Sprintf("<h1>Welcome, %s!</h1><p>An administrator created your teacher account. Sign in with this email address and the password you were given, then set your weekly availability.</p>", teacher.FullName),
	)
	return teacher, nil
}

func ListTeachers(ctx context.Context) ([]models.User, error) {
	teachers := []models.User{}
	err := database.DB.WithContext(ctx).Where("role = ?", models.RoleTeacher).
		Order("created_at DESC").Find(&teachers).Error
	if err != nil {
		return nil, storeErr("list teachers", "", err)
	}
	return teachers, nil
}

func GetTeacher(ctx context.Context, teacherID uuid.UUID) (*models.User, error) {
	return loadUser(ctx, database.DB, teacherID, models.RoleTeacher, "teacher")
}

func regionQuery(ctx context.Context, city, state, country string) *gorm.DB {
	return database.DB.WithContext(ctx).Model(&models.User{}).
		Where("role = ? AND is_active = ?", models.RoleTeacher, true).
		Where("city = ? AND state = ? AND country = ?", city, state, country)
}

// SearchTeachers lists active teachers in the student's own city, state and
// country. term matches name, surname or any subject; subject must be one
// of the teacher's subjects unless it is empty or AllSubjects.
func SearchTeachers(ctx context.Context, studentID uuid.UUID, term, subject string) ([]models.User, error) {
	student, err := GetProfile(ctx, studentID)
	if err != nil {
		return nil, err
	}

	var teachers []models.User
	err = regionQuery(ctx, student.City, student.State, student.Country).
		Order("full_name ASC").Find(&teachers).Error
	if err != nil {
		return nil, storeErr("search teachers", "", err)
	}

	term = strings.ToLower(strings.TrimSpace(term))
	subject = strings.TrimSpace(subject)
	matches := []models.User{}
	for _, t := range teachers {
		subjects := TeacherSubjects(&t)
		if subject != "" && subject != AllSubjects && !containsFold(subjects, subject) {
			continue
		}
		if term != "" && !matchesTerm(&t, subjects, term) {
			continue
		}
		matches = append(matches, t)
	}
	return matches, nil
}

func matchesTerm(t *models.User, subjects []string, term string) bool {
	if strings.Contains(strings.ToLower(t.FullName), term) || strings.Contains(strings.ToLower(t.Surname), term) {
		return true
	}
	for _, s := range subjects {
		if strings.Contains(strings.ToLower(s), term) {
			return true
		}
	}
	return false
}

func containsFold(list []string, value string) bool {
	for _, v := range list {
		if strings.EqualFold(v, value) {
			return true
		}
	}
	return false
}

func CountTeachersInRegion(ctx context.Context, city, state, country string) (int64, error) {
	var count int64
	if err := regionQuery(ctx, city, state, country).Count(&count).Error; err != nil {
		return 0, storeErr("count teachers", "", err)
	}
	return count, nil
}
