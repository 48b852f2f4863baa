package enrollment

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursekit/course-service/internal/domain"
)

func utcAttendance(codes ...string) Attendance {
	return Attendance{Source: &fixedCodes{codes: codes}}
}

func TestGenerateCodeWindow(t *testing.T) {
	att := utcAttendance("4821")

	course := newCourse("c1", 10)
	_, err := att.Generate(course, date(2024, time.January, 1, 8), nil)
	require.ErrorIs(t, err, ErrOutOfWindow)
	assert.Nil(t, course.ActiveCode)

	code, err := att.Generate(course, date(2024, time.January, 1, 10), nil)
	require.NoError(t, err)
	assert.Equal(t, "4821", code.Code)
	assert.True(t, code.IssuedAt.Equal(date(2024, time.January, 1, 10)))
	assert.True(t, code.ExpiresAt.Equal(date(2024, time.January, 1, 11)))

	late := newCourse("c2", 10)
	_, err = att.Generate(late, date(2024, time.January, 1, 11).Add(time.Second), nil)
	require.ErrorIs(t, err, ErrWindowExpired)
}

func TestGenerateCodeBoundariesAreInclusive(t *testing.T) {
	att := utcAttendance("1000")

	course := newCourse("c1", 10)
	_, err := att.Generate(course, course.CourseDate, nil)
	require.NoError(t, err)

	course = newCourse("c2", 10)
	_, err = att.Generate(course, course.SessionEnd(), nil)
	require.NoError(t, err)
}

func TestGenerateCodeAppliesOffset(t *testing.T) {
	att := utcAttendance("2222")
	att.Offset = 7 * time.Hour
	course := newCourse("c1", 10)

	// 02:30 UTC is 09:30 in the course's local time.
	_, err := att.Generate(course, date(2024, time.January, 1, 2).Add(30*time.Minute), nil)
	require.NoError(t, err)

	course = newCourse("c2", 10)
	_, err = att.Generate(course, date(2024, time.January, 1, 1), nil)
	require.ErrorIs(t, err, ErrOutOfWindow)
}

func TestGenerateCodeRefusesWhileActive(t *testing.T) {
	att := utcAttendance("1111", "2222")
	course := newCourse("c1", 10)

	_, err := att.Generate(course, date(2024, time.January, 1, 9), nil)
	require.NoError(t, err)

	_, err = att.Generate(course, date(2024, time.January, 1, 10), nil)
	require.ErrorIs(t, err, ErrCodeAlreadyActive)
	assert.Equal(t, "1111", course.ActiveCode.Code)
}

func TestGenerateCodeReplacesPreviousSessionCode(t *testing.T) {
	att := utcAttendance("3333")
	course := newCourse("c1", 10)
	course.ActiveCode = &domain.AttendanceCode{
		Code:     "9999",
		IssuedAt: date(2023, time.December, 20, 9),
	}

	code, err := att.Generate(course, date(2024, time.January, 1, 9), nil)
	require.NoError(t, err)
	assert.Equal(t, "3333", code.Code)
}

func TestGenerateCodeSkipsCodesInUse(t *testing.T) {
	att := utcAttendance("1234", "1234", "5678")
	course := newCourse("c1", 10)

	code, err := att.Generate(course, date(2024, time.January, 1, 9), func(code string) (bool, error) {
		return code == "1234", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "5678", code.Code)
}

func TestGenerateCodeGivesUpWhenEveryDrawCollides(t *testing.T) {
	att := utcAttendance("1234")
	att.MaxDraws = 3
	course := newCourse("c1", 10)

	_, err := att.Generate(course, date(2024, time.January, 1, 9), func(string) (bool, error) { return true, nil })
	require.ErrorIs(t, err, ErrCodeSpaceExhausted)
	assert.Nil(t, course.ActiveCode)

	boom := errors.New("boom")
	_, err = att.Generate(course, date(2024, time.January, 1, 9), func(string) (bool, error) { return false, boom })
	require.ErrorIs(t, err, boom)
}

func TestCryptoCodeSourceRange(t *testing.T) {
	source := NewCodeSource()
	for i := 0; i < 500; i++ {
		code, err := source.NextCode()
		require.NoError(t, err)
		require.Len(t, code, 4)
		require.GreaterOrEqual(t, code, "1000")
		require.LessOrEqual(t, code, "9999")
	}
}

func activeCourse(t *testing.T, att Attendance) *domain.Course {
	t.Helper()
	course := newCourse("c1", 10)
	_, err := att.Generate(course, date(2024, time.January, 1, 9), nil)
	require.NoError(t, err)
	return course
}

func TestValidateCodeAddsWaitingEntry(t *testing.T) {
	att := utcAttendance("4821")
	course := activeCourse(t, att)
	user := newUser("u1")
	course.RegisteredUsers = append(course.RegisteredUsers, domain.UserSummary{UserID: user.ID})
	now := date(2024, time.January, 1, 10)

	entry, err := att.Validate(course, " 4821 ", user, now)
	require.NoError(t, err)
	assert.Equal(t, domain.WaitingEntry{UserID: "u1", Email: "u1@example.com", Timestamp: now}, *entry)
	require.Len(t, course.WaitingList, 1)

	_, err = att.Validate(course, "4821", user, now)
	require.ErrorIs(t, err, ErrAlreadyPending)
	assert.Len(t, course.WaitingList, 1)
}

func TestValidateCodeFailures(t *testing.T) {
	att := utcAttendance("4821")
	now := date(2024, time.January, 1, 10)
	registered := newUser("u1")
	stranger := newUser("u2")

	cases := []struct {
		name    string
		course  func() *domain.Course
		code    string
		user    *domain.User
		now     time.Time
		wantErr error
	}{
		{"empty code", func() *domain.Course { return activeCourse(t, att) }, "  ", registered, now, ErrCodeRequired},
		{"missing course", func() *domain.Course { return nil }, "4821", registered, now, ErrCourseNotFound},
		{"no active code", func() *domain.Course { return newCourse("c1", 10) }, "4821", registered, now, ErrCodeMismatch},
		{"wrong code", func() *domain.Course { return activeCourse(t, att) }, "1111", registered, now, ErrCodeMismatch},
		{"not registered", func() *domain.Course { return activeCourse(t, att) }, "4821", stranger, now, ErrNotRegistered},
		{"after session", func() *domain.Course { return activeCourse(t, att) }, "4821", registered, date(2024, time.January, 1, 12), ErrWindowExpired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			course := tc.course()
			if course != nil {
				course.RegisteredUsers = []domain.UserSummary{{UserID: registered.ID}}
			}
			_, err := att.Validate(course, tc.code, tc.user, tc.now)
			require.ErrorIs(t, err, tc.wantErr)
			if course != nil {
				assert.Empty(t, course.WaitingList)
			}
		})
	}
}
