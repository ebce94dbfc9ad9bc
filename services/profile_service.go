package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/anjiri1684/tutor_booking/database"
	"github.com/anjiri1684/tutor_booking/models"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm/clause"
)

var validate = validator.New()

// validationFailed turns validator output into a ValidationError naming the
// first offending field.
func validationFailed(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return invalid(fe.Field(), "failed on "+fe.Tag())
	}
	return invalid("", err.Error())
}

func GetProfile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := database.DB.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, storeErr("load profile", "profile", err)
	}
	return &user, nil
}

// ProfileUpdate carries the editable profile fields. Nil fields are left
// unchanged; role and email are not editable.
type ProfileUpdate struct {
	FullName          *string  `json:"full_name" validate:"omitempty,min=1"`
	Surname           *string  `json:"surname"`
	City              *string  `json:"city"`
	State             *string  `json:"state"`
	Country           *string  `json:"country"`
	Subjects          []string `json:"subjects"`
	YearsOfExperience *int     `json:"years_of_experience" validate:"omitempty,min=0,max=80"`
	Qualifications    *string  `json:"qualifications"`
}

func UpdateProfile(ctx context.Context, userID uuid.UUID, in ProfileUpdate) (*models.User, error) {
	if err := validate.Struct(in); err != nil {
		return nil, validationFailed(err)
	}
	user, err := GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	teacherOnly := in.Subjects != nil || in.YearsOfExperience != nil || in.Qualifications != nil
	if teacherOnly && user.Role != models.RoleTeacher {
		return nil, invalid("subjects", "only teachers list subjects, experience and qualifications")
	}

	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&user.FullName, in.FullName)
	set(&user.Surname, in.Surname)
	set(&user.City, in.City)
	set(&user.State, in.State)
	set(&user.Country, in.Country)
	set(&user.Qualifications, in.Qualifications)
	if in.YearsOfExperience != nil {
		user.YearsOfExperience = *in.YearsOfExperience
	}
	if in.Subjects != nil {
		if err := setSubjects(user, in.Subjects); err != nil {
			return nil, err
		}
	}

	err = database.DB.WithContext(ctx).Model(user).Select(
		"full_name", "surname", "city", "state", "country",
		"subjects", "years_of_experience", "qualifications", "updated_at",
	).Updates(user).Error
	if err != nil {
		return nil, storeErr("update profile", "", err)
	}
	return user, nil
}

// SplitSubjects parses a comma-separated subject list.
func SplitSubjects(value string) []string {
	return cleanSubjects(strings.Split(value, ","))
}

func cleanSubjects(subjects []string) []string {
	out := make([]string, 0, len(subjects))
	seen := make(map[string]bool, len(subjects))
	for _, s := range subjects {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

func setSubjects(user *models.User, subjects []string) error {
	encoded, err := json.Marshal(cleanSubjects(subjects))
	if err != nil {
		return &StoreError{Op: "encode subjects", Err: err}
	}
	user.Subjects = datatypes.JSON(encoded)
	return nil
}

// ObjectStorage stores binary objects by path and serves them publicly.
type ObjectStorage interface {
	Upload(ctx context.Context, path string, data io.Reader) (string, error)
	PublicURL(handle string) (string, error)
	Remove(ctx context.Context, handle string) error
}

// Storage is set at startup when CLOUDINARY_URL is configured.
var Storage ObjectStorage

func profilePicturePath(userID uuid.UUID) string {
	return "profilePictures/" + userID.String()
}

// SetProfilePicture uploads data as the user's picture and stores its public
// URL on the profile.
func SetProfilePicture(ctx context.Context, userID uuid.UUID, data io.Reader) (*models.User, error) {
	if Storage == nil {
		return nil, &StoreError{Op: "upload picture", Err: errors.New("object storage is not configured")}
	}
	user, err := GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	handle, err := Storage.Upload(ctx, profilePicturePath(userID), data)
	if err != nil {
		return nil, &StoreError{Op: "upload picture", Err: err}
	}
	publicURL, err := Storage.PublicURL(handle)
	if err != nil {
		return nil, &StoreError{Op: "resolve picture url", Err: err}
	}

	if err := database.DB.WithContext(ctx).Model(user).Update("profile_picture_url", publicURL).Error; err != nil {
		return nil, storeErr("save picture", "", err)
	}
	user.ProfilePictureURL = &publicURL
	return user, nil
}

func RemoveProfilePicture(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.ProfilePictureURL == nil {
		return user, nil
	}
	if Storage != nil {
		if err := Storage.Remove(ctx, profilePicturePath(userID)); err != nil {
			return nil, &StoreError{Op: "remove picture", Err: err}
		}
	}
	if err := database.DB.WithContext(ctx).Model(user).Update("profile_picture_url", nil).Error; err != nil {
		return nil, storeErr("clear picture", "", err)
	}
	user.ProfilePictureURL = nil
	return user, nil
}

type CloudinaryStorage struct {
	cld *cloudinary.Cloudinary
}

func NewCloudinaryStorage(cloudinaryURL string) (*CloudinaryStorage, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, err
	}
	return &CloudinaryStorage{cld: cld}, nil
}

func (s *CloudinaryStorage) Upload(ctx context.Context, path string, data io.Reader) (string, error) {
	res, err := s.cld.Upload.Upload(ctx, data, uploader.UploadParams{
		PublicID:       path,
		Overwrite:      api.Bool(true),
		UniqueFilename: api.Bool(false),
		Invalidate:     api.Bool(true),
	})
	if err != nil {
		return "", err
	}
	if res.Error.Message != "" {
		return "", errors.New(res.Error.Message)
	}
	return res.PublicID, nil
}

func (s *CloudinaryStorage) PublicURL(handle string) (string, error) {
	img, err := s.cld.Image(handle)
	if err != nil {
		return "", err
	}
	return img.String()
}

func (s *CloudinaryStorage) Remove(ctx context.Context, handle string) error {
	_, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: handle, Invalidate: api.Bool(true)})
	return err
}

type UploadSignature struct {
	Signature string `json:"signature"`
	Timestamp int64  `json:"timestamp"`
	APIKey    string `json:"api_key"`
	CloudName string `json:"cloud_name"`
	Folder    string `json:"folder"`
}

// SignUpload returns signed parameters that let a browser upload straight to
// Cloudinary into folder.
func SignUpload(cloudinaryURL, folder string, at time.Time) (*UploadSignature, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	parsedURL, err := url.Parse(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Cloudinary URL: %w", err)
	}
	secret, _ := parsedURL.User.Password()

	paramsToSign, err := api.StructToParams(uploader.UploadParams{Folder: folder})
	if err != nil {
		return nil, fmt.Errorf("failed to prepare signature params: %w", err)
	}
	timestamp := at.Unix()
	paramsToSign.Set("timestamp", strconv.FormatInt(timestamp, 10))

	signature, err := api.SignParameters(paramsToSign, secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign upload params: %w", err)
	}

	return &UploadSignature{
		Signature: signature,
		Timestamp: timestamp,
		APIKey:    cld.Config.Cloud.APIKey,
		CloudName: cld.Config.Cloud.CloudName,
		Folder:    folder,
	}, nil
}

// AcademicInput is the onboarding form. Which fields are required depends on
// EducationLevel; fields of the other shapes are discarded.
type AcademicInput struct {
	EducationLevel models.EducationLevel `json:"education_level" validate:"required,oneof=college school dropper"`
	Institution    string                `json:"institution" validate:"required_unless=EducationLevel dropper"`
	City           string                `json:"city" validate:"required_unless=EducationLevel dropper"`
	State          string                `json:"state" validate:"required_unless=EducationLevel dropper"`
	Degree         string                `json:"degree" validate:"required_if=EducationLevel college"`
	Course         string                `json:"course" validate:"required_if=EducationLevel college"`
	PassingYear    int                   `json:"passing_year" validate:"required_if=EducationLevel college"`
	ClassName      string                `json:"class_name" validate:"required_if=EducationLevel school"`
	Stream         string                `json:"stream" validate:"required_if=EducationLevel school"`
}

func (in AcademicInput) record(studentID uuid.UUID) models.AcademicRecord {
	r := models.AcademicRecord{StudentID: studentID, EducationLevel: in.EducationLevel}
	switch in.EducationLevel {
	case models.EducationCollege:
		r.Institution, r.City, r.State = in.Institution, in.City, in.State
		r.Degree, r.Course, r.PassingYear = in.Degree, in.Course, in.PassingYear
	case models.EducationSchool:
		r.Institution, r.City, r.State = in.Institution, in.City, in.State
		r.ClassName, r.Stream = in.ClassName, in.Stream
	}
	return r
}

// SubmitAcademicRecord stores the student's academic record, replacing any
// earlier one entirely.
func SubmitAcademicRecord(ctx context.Context, studentID uuid.UUID, in AcademicInput) (*models.AcademicRecord, error) {
	if err := validate.Struct(in); err != nil {
		return nil, validationFailed(err)
	}
	if _, err := loadUser(ctx, database.DB, studentID, models.RoleStudent, "student"); err != nil {
		return nil, err
	}

	record := in.record(studentID)
	err := database.DB.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&record).Error
	if err != nil {
		return nil, storeErr("save academic record", "", err)
	}
	return &record, nil
}

func GetAcademicRecord(ctx context.Context, studentID uuid.UUID) (*models.AcademicRecord, error) {
	var record models.AcademicRecord
	if err := database.DB.WithContext(ctx).First(&record, "student_id = ?", studentID).Error; err != nil {
		return nil, storeErr("load academic record", "academic record", err)
	}
	return &record, nil
}

// NeedsOnboarding reports whether a student still has to pick an education
// level.
func NeedsOnboarding(ctx context.Context, studentID uuid.UUID) (bool, error) {
	var count int64
	err := database.DB.WithContext(ctx).Model(&models.AcademicRecord{}).
		Where("student_id = ?", studentID).Count(&count).Error
	if err != nil {
		return false, storeErr("check onboarding", "", err)
	}
	return count == 0, nil
}
