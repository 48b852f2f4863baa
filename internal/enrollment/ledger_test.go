package enrollment

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var openRegistration = date(2023, time.December, 15, 0)

func TestRegisterAppliesAllMutations(t *testing.T) {
	course := newCourse("c1", 2)
	user := newUser("u1")

	require.NoError(t, Register(user, course, openRegistration))

	assert.Equal(t, 1, course.CurrentEnrollment)
	require.Len(t, course.RegisteredUsers, 1)
	assert.Equal(t, "u1", course.RegisteredUsers[0].UserID)
	assert.True(t, course.RegisteredUsers[0].RegisteredAt.Equal(openRegistration))
	require.Len(t, user.TrainingInfo, 1)
	assert.Equal(t, "c1", user.TrainingInfo[0].CourseID)
	assert.True(t, user.TrainingInfo[0].CourseDate.Equal(course.CourseDate))
}

func TestRegisterCourseFull(t *testing.T) {
	course := newCourse("c1", 1)

	require.NoError(t, Register(newUser("u1"), course, openRegistration))
	assert.Equal(t, 1, course.CurrentEnrollment)

	second := newUser("u2")
	err := Register(second, course, openRegistration)
	require.ErrorIs(t, err, ErrCourseFull)
	assert.Equal(t, 1, course.CurrentEnrollment)
	assert.Empty(t, second.TrainingInfo)
}

func TestRegisterRejections(t *testing.T) {
	t.Run("missing course", func(t *testing.T) {
		require.ErrorIs(t, Register(newUser("u1"), nil, openRegistration), ErrCourseNotFound)
	})
	t.Run("missing user", func(t *testing.T) {
		require.ErrorIs(t, Register(nil, newCourse("c1", 1), openRegistration), ErrUserNotFound)
	})
	t.Run("before window", func(t *testing.T) {
		err := Register(newUser("u1"), newCourse("c1", 1), date(2023, time.November, 30, 0))
		require.ErrorIs(t, err, ErrRegistrationClosed)
	})
	t.Run("after window", func(t *testing.T) {
		err := Register(newUser("u1"), newCourse("c1", 1), date(2023, time.December, 31, 1))
		require.ErrorIs(t, err, ErrRegistrationClosed)
	})
	t.Run("window bounds inclusive", func(t *testing.T) {
		course := newCourse("c1", 5)
		require.NoError(t, Register(newUser("u1"), course, course.ApplicationPeriod.StartDate))
		require.NoError(t, Register(newUser("u2"), course, course.ApplicationPeriod.EndDate))
	})
	t.Run("already registered", func(t *testing.T) {
		course := newCourse("c1", 5)
		user := newUser("u1")
		require.NoError(t, Register(user, course, openRegistration))
		require.ErrorIs(t, Register(user, course, openRegistration), ErrAlreadyRegistered)
		assert.Equal(t, 1, course.CurrentEnrollment)
	})
	t.Run("same start instant", func(t *testing.T) {
		user := newUser("u1")
		require.NoError(t, Register(user, newCourse("c1", 5), openRegistration))
		require.ErrorIs(t, Register(user, newCourse("c2", 5), openRegistration), ErrScheduleConflict)
	})
	t.Run("overlap without equal start is allowed", func(t *testing.T) {
		user := newUser("u1")
		require.NoError(t, Register(user, newCourse("c1", 5), openRegistration))
		other := newCourse("c2", 5)
		other.CourseDate = other.CourseDate.Add(30 * time.Minute)
		require.NoError(t, Register(user, other, openRegistration))
	})
}

func TestRegisterNeverExceedsLimit(t *testing.T) {
	course := newCourse("c1", 3)
	succeeded := 0
	for i := 0; i < 10; i++ {
		if err := Register(newUser(fmt.Sprintf("u%d", i)), course, openRegistration); err == nil {
			succeeded++
		}
		require.LessOrEqual(t, course.CurrentEnrollment, course.EnrollmentLimit)
	}
	assert.Equal(t, 3, succeeded)
	assert.Equal(t, succeeded, course.CurrentEnrollment)
	assert.Len(t, course.RegisteredUsers, succeeded)
}
