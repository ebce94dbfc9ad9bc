package services

import (
	"errors"
	"testing"
	"time"

	"github.com/anjiri1684/tutor_booking/database"
	"github.com/anjiri1684/tutor_booking/models"
	"github.com/anjiri1684/tutor_booking/realtime"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignUpNormalizesEmailAndHashesPassword(t *testing.T) {
	ctx := setup(t)

	user, err := SignUp(ctx, SignUpInput{
		FullName: "Brian", Surname: "Otieno", Email: "  Brian@Example.COM ",
		Password: "secret1", Role: models.RoleStudent,
	})
	require.NoError(t, err)
	assert.Equal(t, "brian@example.com", user.Email)
	assert.NotEqual(t, "secret1", user.Password)

	_, err = SignUp(ctx, SignUpInput{
		FullName: "Other", Email: "BRIAN@example.com", Password: "secret2", Role: models.RoleTeacher,
	})
	var cerr *ConflictError
	assert.ErrorAs(t, err, &cerr)

	signedIn, err := SignIn(ctx, "brian@EXAMPLE.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, signedIn.ID)

	_, err = SignIn(ctx, "brian@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = SignIn(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignUpRefusesAdminsAndWeakPasswords(t *testing.T) {
	ctx := setup(t)

	_, err := SignUp(ctx, SignUpInput{FullName: "Root", Email: "root@example.com", Password: "secret1", Role: models.RoleAdmin})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = SignUp(ctx, SignUpInput{FullName: "Weak", Email: "weak@example.com", Password: "123", Role: models.RoleStudent})
	assert.ErrorAs(t, err, &verr)
}

func TestIssueTokenCarriesIdentity(t *testing.T) {
	setup(t)
	t.Setenv("JWT_SECRET", "test-secret")
	user := newTeacher(t, "amina")

	signed, err := IssueToken(user)
	require.NoError(t, err)

	token, err := jwt.Parse(signed, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	}, jwt.WithoutClaimsValidation())
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, user.ID.String(), claims["user_id"])
	assert.Equal(t, "teacher", claims["role"])
}

func TestResolveReturnsRoleVariant(t *testing.T) {
	ctx := setup(t)
	student := newStudent(t, "brian")
	teacher := newTeacher(t, "amina", "Maths", "Chemistry")
	admin := newUser(t, models.RoleAdmin, "root")

	account, err := Resolve(ctx, student.ID)
	require.NoError(t, err)
	sa, ok := account.(*StudentAccount)
	require.True(t, ok)
	assert.True(t, sa.NeedsOnboarding)
	assert.Equal(t, "/student/home", HomePath(account))

	account, err = Resolve(ctx, teacher.ID)
	require.NoError(t, err)
	ta, ok := account.(*TeacherAccount)
	require.True(t, ok)
	assert.Equal(t, []string{"Maths", "Chemistry"}, ta.Subjects)
	assert.Equal(t, "/teacher/home", HomePath(account))

	account, err = Resolve(ctx, admin.ID)
	require.NoError(t, err)
	_, ok = account.(*AdminAccount)
	require.True(t, ok)
	assert.Equal(t, "/admin", HomePath(account))
	assert.Equal(t, admin.ID, account.Profile().ID)
}

func TestResolveFailsClosedWithoutProfile(t *testing.T) {
	ctx := setup(t)
	ghost := uuid.New()
	sub := realtime.Default.Subscribe(ghost, realtime.UnreadTopic(ghost))

	_, err := Resolve(ctx, ghost)
	assert.True(t, errors.Is(err, ErrInconsistentSession))

	select {
	case <-sub.Done():
	default:
		t.Fatal("subscriptions of an inconsistent session must be released")
	}
}

func TestResolveStudentAfterOnboarding(t *testing.T) {
	ctx := setup(t)
	student := newStudent(t, "brian")
	_, err := SubmitAcademicRecord(ctx, student.ID, AcademicInput{EducationLevel: models.EducationDropper})
	require.NoError(t, err)

	account, err := Resolve(ctx, student.ID)
	require.NoError(t, err)
	sa := account.(*StudentAccount)
	assert.False(t, sa.NeedsOnboarding)
	require.NotNil(t, sa.Academic)
	assert.Equal(t, models.EducationDropper, sa.Academic.EducationLevel)
}

func TestLandingRedirectOnlyFromPublicPages(t *testing.T) {
	account := &TeacherAccount{User: models.User{Role: models.RoleTeacher}}

	for _, path := range []string{"/", "/auth", "/auth/login"} {
		to, ok := LandingRedirect(path, account)
		assert.True(t, ok, path)
		assert.Equal(t, "/teacher/home", to)
	}
	for _, path := range []string{"/teacher/messages", "/student/home", "/admin"} {
		_, ok := LandingRedirect(path, account)
		assert.False(t, ok, path)
	}
}

func TestHumanizeAuthError(t *testing.T) {
	t.Setenv("AUTH_ERROR_PREFIX", "Firebase: ")
	assert.Equal(t, "", HumanizeAuthError(nil))
	assert.Equal(t, "Invalid email or password", HumanizeAuthError(ErrInvalidCredentials))
	assert.Equal(t, "Password should be at least 6 characters",
		HumanizeAuthError(errors.New("Firebase: password should be at least 6 characters")))
	assert.Equal(t, "Élève inconnu", HumanizeAuthError(errors.New("Firebase: auth/user-not-found: élève inconnu")))
	assert.Equal(t, "Ñ", HumanizeAuthError(errors.New("ñ")))
}

func TestInactiveUserCannotSignIn(t *testing.T) {
	ctx := setup(t)
	user, err := SignUp(ctx, SignUpInput{FullName: "Gone", Email: "gone@example.com", Password: "secret1", Role: models.RoleStudent})
	require.NoError(t, err)
	require.NoError(t, database.DB.Model(user).Update("is_active", false).Error)

	_, err = SignIn(ctx, "gone@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyToken(t *testing.T) {
	setup(t)
	t.Setenv("JWT_SECRET", "test-secret")
	pinClock(t, time.Now())
	user := newStudent(t, "brian")

	signed, err := IssueToken(user)
	require.NoError(t, err)
	id, role, err := VerifyToken(signed)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)
	assert.Equal(t, models.RoleStudent, role)

	t.Setenv("JWT_SECRET", "rotated")
	_, _, err = VerifyToken(signed)
	assert.Error(t, err)
}
