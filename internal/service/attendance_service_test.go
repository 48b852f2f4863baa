package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursekit/course-service/internal/domain"
	"github.com/coursekit/course-service/internal/enrollment"
	"github.com/coursekit/course-service/internal/events"
	apperrors "github.com/coursekit/course-service/pkg/util/errorutil"
)

func seedRegistered(h *harness, courseID string, userIDs ...string) {
	c := seedCourse(h.store, courseID, 10)
	for _, id := range userIDs {
		u := seedUser(h.store, id)
		c.RegisteredUsers = append(c.RegisteredUsers, domain.UserSummary{UserID: u.ID, Name: u.Name, Email: u.Email})
		c.CurrentEnrollment++
	}
	h.store.putCourse(c)
}

func TestGenerateCodeSessionWindow(t *testing.T) {
	h := newHarness(at(2024, time.January, 1, 8))
	seedCourse(h.store, "c1", 10)
	svc := NewAttendanceService(h.deps, h.attendance("4821"), nil)

	_, err := svc.GenerateCode(context.Background(), "admin", "c1")
	assert.ErrorIs(t, err, enrollment.ErrOutOfWindow)
	assert.Nil(t, h.store.course("c1").ActiveCode)

	h.clock.Set(at(2024, time.January, 1, 10))
	code, err := svc.GenerateCode(context.Background(), "admin", "c1")
	require.NoError(t, err)
	assert.Equal(t, "4821", code.Code)
	assert.Equal(t, at(2024, time.January, 1, 11), code.ExpiresAt)
	assert.Equal(t, "4821", h.store.course("c1").ActiveCode.Code)

	_, err = svc.GenerateCode(context.Background(), "admin", "c1")
	assert.ErrorIs(t, err, enrollment.ErrCodeAlreadyActive)

	h.clock.Set(at(2024, time.January, 1, 12))
	_, err = svc.GenerateCode(context.Background(), "admin", "c1")
	assert.ErrorIs(t, err, enrollment.ErrWindowExpired)

	assert.Equal(t, []domain.CourseChangeType{domain.ChangeTypeCodeGenerated}, h.store.historyTypes("c1"))
	assert.Equal(t, []events.EventType{events.EventAttendanceCodeIssued}, h.events.types())
}

func TestGenerateCodeAppliesOffset(t *testing.T) {
	// 02:30 UTC is 09:30 at UTC+7, inside a 09:00 session.
	h := newHarness(time.Date(2024, time.January, 1, 2, 30, 0, 0, time.UTC))
	seedCourse(h.store, "c1", 10)
	attendance := h.attendance("4821")
	attendance.Offset = 7 * time.Hour

	code, err := NewAttendanceService(h.deps, attendance, nil).GenerateCode(context.Background(), "admin", "c1")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.January, 1, 9, 30, 0, 0, time.UTC), code.IssuedAt)
}

func TestGenerateCodeSkipsCodesHeldElsewhere(t *testing.T) {
	h := newHarness(at(2024, time.January, 1, 10))
	seedCourse(h.store, "c1", 10)
	other := seedCourse(h.store, "c2", 10)
	other.ActiveCode = &domain.AttendanceCode{Code: "1111", IssuedAt: at(2024, time.January, 1, 9), ExpiresAt: at(2024, time.January, 1, 11)}
	h.store.putCourse(other)

	code, err := NewAttendanceService(h.deps, h.attendance("1111", "2222"), nil).GenerateCode(context.Background(), "admin", "c1")
	require.NoError(t, err)
	assert.Equal(t, "2222", code.Code)
}

func TestGenerateCodeSpaceExhausted(t *testing.T) {
	h := newHarness(at(2024, time.January, 1, 10))
	seedCourse(h.store, "c1", 10)
	other := seedCourse(h.store, "c2", 10)
	other.ActiveCode = &domain.AttendanceCode{Code: "1111", IssuedAt: at(2024, time.January, 1, 9), ExpiresAt: at(2024, time.January, 1, 11)}
	h.store.putCourse(other)

	_, err := NewAttendanceService(h.deps, h.attendance("1111"), nil).GenerateCode(context.Background(), "admin", "c1")
	assert.ErrorIs(t, err, enrollment.ErrCodeSpaceExhausted)
	assert.Nil(t, h.store.course("c1").ActiveCode)
}

func TestValidateCodeJoinsWaitingList(t *testing.T) {
	h := newHarness(at(2024, time.January, 1, 10))
	seedRegistered(h, "c1", "u1")
	limiter := &fakeLimiter{limit: 5}
	svc := NewAttendanceService(h.deps, h.attendance("4821"), limiter)
	_, err := svc.GenerateCode(context.Background(), "admin", "c1")
	require.NoError(t, err)

	entry, err := svc.ValidateCode(context.Background(), "u1", "c1", " 4821 ")
	require.NoError(t, err)
	assert.Equal(t, "u1", entry.UserID)
	assert.Equal(t, "u1@example.com", entry.Email)
	assert.Equal(t, 1, limiter.resets)

	course := h.store.course("c1")
	require.Len(t, course.WaitingList, 1)
	assert.Equal(t, "u1", course.WaitingList[0].UserID)

	_, err = svc.ValidateCode(context.Background(), "u1", "c1", "4821")
	assert.ErrorIs(t, err, enrollment.ErrAlreadyPending)
	assert.Len(t, h.store.course("c1").WaitingList, 1)
}

func TestValidateCodeResolvesCourseFromCode(t *testing.T) {
	h := newHarness(at(2024, time.January, 1, 10))
	seedRegistered(h, "c1", "u1")
	svc := NewAttendanceService(h.deps, h.attendance("4821"), nil)
	_, err := svc.GenerateCode(context.Background(), "admin", "c1")
	require.NoError(t, err)

	_, err = svc.ValidateCode(context.Background(), "u1", "", "4821")
	require.NoError(t, err)
	assert.Len(t, h.store.course("c1").WaitingList, 1)

	_, err = svc.ValidateCode(context.Background(), "u1", "", "9999")
	assert.ErrorIs(t, err, enrollment.ErrCourseNotFound)
}

func TestValidateCodeRejections(t *testing.T) {
	h := newHarness(at(2024, time.January, 1, 10))
	seedRegistered(h, "c1", "u1")
	seedUser(h.store, "outsider")
	svc := NewAttendanceService(h.deps, h.attendance("4821"), nil)
	_, err := svc.GenerateCode(context.Background(), "admin", "c1")
	require.NoError(t, err)

	_, err = svc.ValidateCode(context.Background(), "outsider", "c1", "4821")
	assert.ErrorIs(t, err, enrollment.ErrNotRegistered)

	_, err = svc.ValidateCode(context.Background(), "u1", "c1", "0000")
	assert.ErrorIs(t, err, enrollment.ErrCodeMismatch)

	_, err = svc.ValidateCode(context.Background(), "u1", "c1", "   ")
	assert.ErrorIs(t, err, enrollment.ErrCodeRequired)

	_, err = svc.ValidateCode(context.Background(), "u1", "missing", "4821")
	assert.ErrorIs(t, err, enrollment.ErrCourseNotFound)

	h.clock.Set(at(2024, time.January, 1, 12))
	_, err = svc.ValidateCode(context.Background(), "u1", "c1", "4821")
	assert.ErrorIs(t, err, enrollment.ErrWindowExpired)

	assert.Empty(t, h.store.course("c1").WaitingList)
}

func TestValidateCodeRateLimited(t *testing.T) {
	h := newHarness(at(2024, time.January, 1, 10))
	seedRegistered(h, "c1", "u1")
	svc := NewAttendanceService(h.deps, h.attendance("4821"), &fakeLimiter{limit: 2})
	_, err := svc.GenerateCode(context.Background(), "admin", "c1")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = svc.ValidateCode(context.Background(), "u1", "c1", "0000")
		assert.ErrorIs(t, err, enrollment.ErrCodeMismatch)
	}
	_, err = svc.ValidateCode(context.Background(), "u1", "c1", "4821")
	require.Error(t, err)
	de := apperrors.ToDomainError(err)
	assert.Equal(t, "TOO_MANY_ATTEMPTS", de.Code)
	assert.Equal(t, 42, de.Details["retry_after_seconds"])
	assert.Empty(t, h.store.course("c1").WaitingList)
}

func TestValidateCodeLimiterOutageFailsOpen(t *testing.T) {
	h := newHarness(at(2024, time.January, 1, 10))
	seedRegistered(h, "c1", "u1")
	svc := NewAttendanceService(h.deps, h.attendance("4821"), &fakeLimiter{failing: errors.New("redis down")})
	_, err := svc.GenerateCode(context.Background(), "admin", "c1")
	require.NoError(t, err)

	_, err = svc.ValidateCode(context.Background(), "u1", "c1", "4821")
	assert.NoError(t, err)
}
