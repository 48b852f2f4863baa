package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5"

	"github.com/coursekit/course-service/internal/domain"
	"github.com/coursekit/course-service/internal/enrollment"
	"github.com/coursekit/course-service/internal/events"
	"github.com/coursekit/course-service/internal/repository"
	apperrors "github.com/coursekit/course-service/pkg/util/errorutil"
)

// ErrPaymentRequired is returned when a priced course is registered without a completed payment.
var ErrPaymentRequired = apperrors.NewDomainError(apperrors.KindConflict, "PAYMENT_REQUIRED", "course fee must be paid before registering", http.StatusPaymentRequired, nil)

// EnrollmentService registers users into courses and reports their status.
type EnrollmentService struct {
	deps Dependencies
}

// NewEnrollmentService constructs the service.
func NewEnrollmentService(deps Dependencies) *EnrollmentService {
	return &EnrollmentService{deps: deps.withDefaults()}
}

// Register enrolls userID in courseID. The course and user rows are locked and
// written in one transaction so the two denormalized copies never diverge.
func (s *EnrollmentService) Register(ctx context.Context, userID, courseID string) (*domain.Course, error) {
	now := s.deps.Clock.Now()

	var (
		course *domain.Course
		user   *domain.User
	)
	err := s.deps.Store.WithTx(ctx, func(repos repository.Repositories) error {
		var err error
		if course, err = repos.Courses.GetByIDForUpdate(ctx, courseID); err != nil {
			return notFoundAs(err, enrollment.ErrCourseNotFound)
		}
		if user, err = repos.Users.GetByIDForUpdate(ctx, userID); err != nil {
			return notFoundAs(err, enrollment.ErrUserNotFound)
		}
		if err := enrollment.Register(user, course, now); err != nil {
			return err
		}
		if course.PriceCents > 0 {
			if _, err := repos.Payments.GetCompleted(ctx, userID, courseID); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return ErrPaymentRequired
				}
				return err
			}
		}
		if err := repos.Courses.Update(ctx, course); err != nil {
			return err
		}
		if err := repos.Users.Update(ctx, user); err != nil {
			return err
		}
		return repos.History.Create(ctx, historyEntry(course.ID, userID, userID, domain.ChangeTypeRegistered, map[string]any{
			"current_enrollment": course.CurrentEnrollment,
			"enrollment_limit":   course.EnrollmentLimit,
		}))
	})
	if err := s.deps.record("register", err); err != nil {
		return nil, err
	}

	s.deps.publish(ctx, events.Event{
		Type:     events.EventUserRegistered,
		CourseID: course.ID,
		ActorID:  userID,
		Payload: events.RegistrationPayload{
			UserID:     user.ID,
			Email:      user.Email,
			Name:       user.Name,
			CourseName: course.Name,
			CourseDate: course.CourseDate,
			Location:   course.Location,
		},
	})
	return course, nil
}

// Profile returns the user with freshly computed remaining-time strings.
func (s *EnrollmentService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.deps.Store.Repos().Users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundAs(err, enrollment.ErrUserNotFound)
	}
	enrollment.RefreshRemaining(user, s.deps.Clock.Now())
	return user, nil
}
