package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursekit/course-service/internal/domain"
	"github.com/coursekit/course-service/internal/enrollment"
	apperrors "github.com/coursekit/course-service/pkg/util/errorutil"
)

func validCourseInput() CourseInput {
	return CourseInput{
		Name:             " CPR Basics ",
		Location:         "Hall A",
		EnrollmentLimit:  20,
		CourseDate:       at(2024, time.March, 1, 9),
		Hours:            3,
		ApplicationStart: at(2024, time.February, 1, 0),
		ApplicationEnd:   at(2024, time.February, 20, 0),
	}
}

func TestCreateCourse(t *testing.T) {
	h := newHarness(at(2024, time.January, 1, 0))
	svc := NewCourseService(h.deps, "THB")

	course, err := svc.Create(context.Background(), "admin", validCourseInput())
	require.NoError(t, err)
	assert.NotEmpty(t, course.ID)
	assert.Equal(t, "CPR Basics", course.Name)
	assert.Equal(t, "THB", course.Currency)
	assert.Zero(t, course.CurrentEnrollment)
	assert.Nil(t, course.ActiveCode)

	got, err := svc.Get(context.Background(), course.ID)
	require.NoError(t, err)
	assert.Equal(t, course.ApplicationPeriod, got.ApplicationPeriod)

	history, err := svc.History(context.Background(), course.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.ChangeTypeCreated, history[0].ChangeType)
}

func TestCreateCourseValidation(t *testing.T) {
	h := newHarness(at(2024, time.January, 1, 0))
	input := validCourseInput()
	input.Name = ""
	input.EnrollmentLimit = 0
	input.ApplicationEnd = input.ApplicationStart

	_, err := NewCourseService(h.deps, "THB").Create(context.Background(), "admin", input)
	require.Error(t, err)
	de := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.KindValidation, de.Kind)
	assert.Contains(t, de.Details, "name")
	assert.Contains(t, de.Details, "enrollment_limit")
	assert.Contains(t, de.Details, "application_period")
}

func TestUpdateCourseKeepsLedger(t *testing.T) {
	h := newHarness(at(2024, time.January, 1, 0))
	seedRegistered(h, "c1", "u1", "u2")
	svc := NewCourseService(h.deps, "THB")

	input := validCourseInput()
	input.EnrollmentLimit = 1
	_, err := svc.Update(context.Background(), "admin", "c1", input)
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))

	input.EnrollmentLimit = 2
	input.Currency = "usd"
	course, err := svc.Update(context.Background(), "admin", "c1", input)
	require.NoError(t, err)
	assert.Equal(t, "USD", course.Currency)
	assert.Equal(t, 2, course.CurrentEnrollment)
	assert.Len(t, course.RegisteredUsers, 2)
	assert.Equal(t, []domain.CourseChangeType{domain.ChangeTypeUpdated}, h.store.historyTypes("c1"))

	_, err = svc.Update(context.Background(), "admin", "missing", input)
	assert.ErrorIs(t, err, enrollment.ErrCourseNotFound)
}

func TestUpdateCourseMovingSessionDropsCodeAndSyncsTraining(t *testing.T) {
	h := newHarness(at(2023, time.December, 15, 0))
	seedCourse(h.store, "c1", 5)
	seedUser(h.store, "u1")
	_, err := NewEnrollmentService(h.deps).Register(context.Background(), "u1", "c1")
	require.NoError(t, err)

	c := h.store.course("c1")
	c.ActiveCode = &domain.AttendanceCode{Code: "4821", IssuedAt: c.CourseDate, ExpiresAt: c.CourseDate.Add(2 * time.Hour)}
	h.store.putCourse(c)
	svc := NewCourseService(h.deps, "THB")

	same := validCourseInput()
	same.CourseDate = c.CourseDate
	same.Hours = c.Hours
	course, err := svc.Update(context.Background(), "admin", "c1", same)
	require.NoError(t, err)
	require.NotNil(t, course.ActiveCode)
	assert.Equal(t, "4821", course.ActiveCode.Code)

	moved := validCourseInput()
	course, err = svc.Update(context.Background(), "admin", "c1", moved)
	require.NoError(t, err)
	assert.Nil(t, course.ActiveCode)
	assert.Nil(t, h.store.course("c1").ActiveCode)

	training := h.store.user("u1").TrainingInfo
	require.Len(t, training, 1)
	assert.True(t, training[0].CourseDate.Equal(moved.CourseDate))
	assert.Equal(t, moved.Hours, training[0].Hours)
}

func TestListCourses(t *testing.T) {
	h := newHarness(at(2024, time.January, 1, 0))
	svc := NewCourseService(h.deps, "THB")

	courses, err := svc.List(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.NotNil(t, courses)
	assert.Empty(t, courses)

	seedCourse(h.store, "c1", 1)
	seedCourse(h.store, "c2", 1)
	courses, err = svc.List(context.Background(), 1, 1)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "c2", courses[0].ID)
}
