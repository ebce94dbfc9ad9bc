package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	config "github.com/anjiri1684/tutor_booking/configs"
	"github.com/anjiri1684/tutor_booking/database"
	"github.com/anjiri1684/tutor_booking/models"
	"github.com/anjiri1684/tutor_booking/realtime"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("auth/invalid-credential: invalid email or password")

type SignUpInput struct {
	FullName string
	Surname  string
	Email    string
	Password string
	Role     models.Role
	City     string
	State    string
	Country  string
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", &StoreError{Op: "hash password", Err: err}
	}
	return string(hashed), nil
}

// SignUp creates a student or teacher account. Admins are never
// self-registered.
func SignUp(ctx context.Context, in SignUpInput) (*models.User, error) {
	if in.Role != models.RoleStudent && in.Role != models.RoleTeacher {
		return nil, invalid("role", "choose student or teacher")
	}
	return createUser(ctx, in, nil)
}

func createUser(ctx context.Context, in SignUpInput, subjects []string) (*models.User, error) {
	email := NormalizeEmail(in.Email)
	if email == "" || strings.TrimSpace(in.FullName) == "" {
		return nil, invalid("email", "name and email are required")
	}
	if len(in.Password) < 6 {
		return nil, invalid("password", "password should be at least 6 characters")
	}

	hashed, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := models.User{
		FullName: strings.TrimSpace(in.FullName),
		Surname:  strings.TrimSpace(in.Surname),
		Email:    email,
		Password: hashed,
		Role:     in.Role,
		City:     strings.TrimSpace(in.City),
		State:    strings.TrimSpace(in.State),
		Country:  strings.TrimSpace(in.Country),
		IsActive: true,
	}
	if subjects != nil {
		if err := setSubjects(&user, subjects); err != nil {
			return nil, err
		}
	}

	if err := database.DB.WithContext(ctx).Create(&user).Error; err != nil {
		if isUnique(err) {
			return nil, &ConflictError{Message: "auth/email-already-in-use: email already exists"}
		}
		return nil, storeErr("create user", "", err)
	}
	return &user, nil
}

func SignIn(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	res := database.DB.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).Limit(1).Find(&user)
	if res.Error != nil {
		return nil, storeErr("sign in", "", res.Error)
	}
	if res.RowsAffected == 0 || !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

func IssueToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID.String(),
		"role":    string(user.Role),
		"exp":     now().Add(config.Duration("TOKEN_TTL", 72*time.Hour)).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.Config("JWT_SECRET")))
}

// VerifyToken checks a token issued by IssueToken and returns its subject.
func VerifyToken(tokenString string) (uuid.UUID, models.Role, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(config.Config("JWT_SECRET")), nil
	})
	if err != nil {
		return uuid.Nil, "", err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return uuid.Nil, "", errors.New("invalid token")
	}
	raw, _ := claims["user_id"].(string)
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("invalid user id in token: %w", err)
	}
	role, _ := claims["role"].(string)
	return userID, models.Role(role), nil
}

// SignOut detaches every live subscription of the principal.
func SignOut(userID uuid.UUID) int {
	return realtime.Default.ReleaseOwner(userID)
}

// Account is the resolved identity of a signed-in principal. The set of
// implementations is closed: StudentAccount, TeacherAccount, AdminAccount.
type Account interface {
	Profile() *models.User
	account()
}

type StudentAccount struct {
	User            models.User            `json:"profile"`
	Academic        *models.AcademicRecord `json:"academic_record,omitempty"`
	NeedsOnboarding bool                   `json:"needs_onboarding"`
}

type TeacherAccount struct {
	User     models.User `json:"profile"`
	Subjects []string    `json:"subjects"`
}

type AdminAccount struct {
	User models.User `json:"profile"`
}

func (a *StudentAccount) Profile() *models.User { return &a.User }
func (a *TeacherAccount) Profile() *models.User { return &a.User }
func (a *AdminAccount) Profile() *models.User { return &a.User }

func (*StudentAccount) account() {}
func (*TeacherAccount) account() {}
func (*AdminAccount) account() {}

// Resolve loads the profile behind a principal. A principal without a
// profile is an inconsistent session: its subscriptions are released and
// ErrInconsistentSession is returned so the caller signs it out.
func Resolve(ctx context.Context, userID uuid.UUID) (Account, error) {
	var user models.User
	res := database.DB.WithContext(ctx).Where("id = ?", userID).Limit(1).Find(&user)
	if res.Error != nil {
		return nil, storeErr("resolve account", "", res.Error)
	}
	if res.RowsAffected == 0 || !user.IsActive {
		SignOut(userID)
		return nil, ErrInconsistentSession
	}

	switch user.Role {
	case models.RoleStudent:
		record, err := GetAcademicRecord(ctx, user.ID)
		var nf *NotFoundError
		if err != nil && !errors.As(err, &nf) {
			return nil, err
		}
		return &StudentAccount{User: user, Academic: record, NeedsOnboarding: record == nil}, nil
	case models.RoleTeacher:
		return &TeacherAccount{User: user, Subjects: TeacherSubjects(&user)}, nil
	case models.RoleAdmin:
		return &AdminAccount{User: user}, nil
	}
	SignOut(userID)
	return nil, ErrInconsistentSession
}

func HomePath(a Account) string {
	switch a.(type) {
	case *StudentAccount:
		return "/student/home"
	case *TeacherAccount:
		return "/teacher/home"
	case *AdminAccount:
		return "/admin"
	}
	return "/"
}

// LandingRedirect returns the home path of the account when currentPath is a
// public entry point. Interior pages are never redirected, so deep links
// survive a fresh sign-in.
func LandingRedirect(currentPath string, a Account) (string, bool) {
	if currentPath != "/" && !strings.HasPrefix(currentPath, "/auth") {
		return "", false
	}
	return HomePath(a), true
}

// HumanizeAuthError strips the identity provider prefix from an auth error.
func HumanizeAuthError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	msg = strings.TrimPrefix(msg, config.Get("AUTH_ERROR_PREFIX", "Firebase: "))
	if i := strings.Index(msg, ": "); i > 0 && strings.HasPrefix(msg, "auth/") {
		msg = msg[i+2:]
	}
	if msg == "" {
		return msg
	}
	r, size := utf8.DecodeRuneInString(msg)
	return string(unicode.ToUpper(r)) + msg[size:]
}
