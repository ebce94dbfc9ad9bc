package services

import (
	"testing"

	"github.com/anjiri1684/tutor_booking/database"
	"github.com/anjiri1684/tutor_booking/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSubjects(t *testing.T) {
	assert.Equal(t, []string{"Maths", "Physics"}, SplitSubjects(" Maths, Physics ,, maths"))
	assert.Empty(t, SplitSubjects(" , "))
}

func TestProvisionTeacher(t *testing.T) {
	ctx := setup(t)

	teacher, err := ProvisionTeacher(ctx, ProvisionTeacherInput{
		FullName: "Amina", Surname: "Wanjiru", Email: "Amina@School.org", Password: "initial1",
		City: "Nairobi", State: "Nairobi", Country: "Kenya",
		Subjects: "Maths, Physics", YearsOfExperience: 5, Qualifications: "BEd",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, teacher.Role)
	assert.Equal(t, "amina@school.org", teacher.Email)

	stored, err := GetTeacher(ctx, teacher.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Maths", "Physics"}, TeacherSubjects(stored))
	assert.Equal(t, 5, stored.YearsOfExperience)
	assert.Equal(t, "BEd", stored.Qualifications)

	_, err = SignIn(ctx, "amina@school.org", "initial1")
	assert.NoError(t, err)

	_, err = ProvisionTeacher(ctx, ProvisionTeacherInput{
		FullName: "X", Surname: "Y", Email: "x@example.com", Password: "initial1",
		City: "a", State: "b", Country: "c", Subjects: " , ",
	})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	teachers, err := ListTeachers(ctx)
	require.NoError(t, err)
	assert.Len(t, teachers, 1)
}

func TestSearchTeachersInStudentRegion(t *testing.T) {
	ctx := setup(t)
	student := newStudent(t, "brian")
	maths := newTeacher(t, "amina", "Maths", "Physics")
	newTeacher(t, "dan", "English")
	far := newTeacher(t, "eve", "Maths")
	require.NoError(t, database.DB.Model(far).Update("city", "Kisumu").Error)
	inactive := newTeacher(t, "fay", "Maths")
	require.NoError(t, database.DB.Model(inactive).Update("is_active", false).Error)

	all, err := SearchTeachers(ctx, student.ID, "", AllSubjects)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	bySubject, err := SearchTeachers(ctx, student.ID, "", "physics")
	require.NoError(t, err)
	require.Len(t, bySubject, 1)
	assert.Equal(t, maths.ID, bySubject[0].ID)

	byTerm, err := SearchTeachers(ctx, student.ID, "ENG", "")
	require.NoError(t, err)
	require.Len(t, byTerm, 1)
	assert.Equal(t, "dan", byTerm[0].FullName)

	none, err := SearchTeachers(ctx, student.ID, "dan", "Maths")
	require.NoError(t, err)
	assert.Empty(t, none)

	count, err := CountTeachersInRegion(ctx, "Nairobi", "Nairobi", "Kenya")
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}
