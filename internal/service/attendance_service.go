package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/coursekit/course-service/internal/domain"
	"github.com/coursekit/course-service/internal/enrollment"
	"github.com/coursekit/course-service/internal/events"
	"github.com/coursekit/course-service/internal/repository"
	apperrors "github.com/coursekit/course-service/pkg/util/errorutil"
)

// AttemptLimiter throttles repeated attempts per key.
type AttemptLimiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
	Reset(ctx context.Context, key string) error
}

// AttendanceService issues attendance codes and records code submissions.
type AttendanceService struct {
	deps       Dependencies
	attendance enrollment.Attendance
	limiter    AttemptLimiter
}

// NewAttendanceService constructs the service. limiter may be nil.
func NewAttendanceService(deps Dependencies, attendance enrollment.Attendance, limiter AttemptLimiter) *AttendanceService {
	return &AttendanceService{deps: deps.withDefaults(), attendance: attendance, limiter: limiter}
}

// GenerateCode issues the attendance code for the session of courseID that
// is running now.
func (s *AttendanceService) GenerateCode(ctx context.Context, actorID, courseID string) (*domain.AttendanceCode, error) {
	now := s.deps.Clock.Now()

	var (
		course *domain.Course
		code   *domain.AttendanceCode
	)
	err := s.deps.Store.WithTx(ctx, func(repos repository.Repositories) error {
		var err error
		if course, err = repos.Courses.GetByIDForUpdate(ctx, courseID); err != nil {
			return notFoundAs(err, enrollment.ErrCourseNotFound)
		}
		inUse := func(candidate string) (bool, error) {
			return repos.Courses.ActiveCodeInUse(ctx, candidate, course.ID, s.attendance.Adjust(now))
		}
		if code, err = s.attendance.Generate(course, now, inUse); err != nil {
			return err
		}
		if err := repos.Courses.Update(ctx, course); err != nil {
			return err
		}
		return repos.History.Create(ctx, historyEntry(course.ID, actorID, "", domain.ChangeTypeCodeGenerated, map[string]any{
			"issued_at":  code.IssuedAt,
			"expires_at": code.ExpiresAt,
		}))
	})
	if err := s.deps.record("generate_code", err); err != nil {
		return nil, err
	}

	s.deps.publish(ctx, events.Event{
		Type:     events.EventAttendanceCodeIssued,
		CourseID: course.ID,
		ActorID:  actorID,
		Payload:  events.CodeIssuedPayload{Code: code.Code, ExpiresAt: code.ExpiresAt},
	})
	return code, nil
}

// ValidateCode checks the code entered by userID. When courseID is empty the
// course is resolved from the code itself. On success the user joins the
// course's waiting list.
func (s *AttendanceService) ValidateCode(ctx context.Context, userID, courseID, code string) (*domain.WaitingEntry, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, s.deps.record("validate_code", enrollment.ErrCodeRequired)
	}
	if err := s.allow(ctx, userID); err != nil {
		return nil, s.deps.record("validate_code", err)
	}

	now := s.deps.Clock.Now()
	var (
		course *domain.Course
		user   *domain.User
		entry  *domain.WaitingEntry
	)
	err := s.deps.Store.WithTx(ctx, func(repos repository.Repositories) error {
		var err error
		if courseID != "" {
			course, err = repos.Courses.GetByIDForUpdate(ctx, courseID)
		} else {
			course, err = repos.Courses.GetByActiveCodeForUpdate(ctx, code)
		}
		if err != nil {
			return notFoundAs(err, enrollment.ErrCourseNotFound)
		}
		if user, err = repos.Users.GetByID(ctx, userID); err != nil {
			return notFoundAs(err, enrollment.ErrUserNotFound)
		}
		if entry, err = s.attendance.Validate(course, code, user, now); err != nil {
			return err
		}
		if err := repos.Courses.Update(ctx, course); err != nil {
			return err
		}
		return repos.History.Create(ctx, historyEntry(course.ID, userID, userID, domain.ChangeTypeCodeValidated, nil))
	})
	if err := s.deps.record("validate_code", err); err != nil {
		return nil, err
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, userID); err != nil {
			s.deps.Logger.Warn("reset attempt counter failed", zap.Error(err))
		}
	}
	s.deps.publish(ctx, events.Event{
		Type:     events.EventAttendanceValidated,
		CourseID: course.ID,
		ActorID:  userID,
		Payload:  events.DecisionPayload{UserID: user.ID, Email: user.Email, CourseName: course.Name},
	})
	return entry, nil
}

func (s *AttendanceService) allow(ctx context.Context, userID string) error {
	if s.limiter == nil {
		return nil
	}
	ok, retryAfter, err := s.limiter.Allow(ctx, userID)
	if err != nil {
		// Limiter outages must not block attendance.
		s.deps.Logger.Warn("attempt limiter unavailable", zap.Error(err))
		return nil
	}
	if !ok {
		return apperrors.NewRateLimited("too many attendance code attempts", map[string]any{
			"retry_after_seconds": int(retryAfter.Seconds()),
		})
	}
	return nil
}
