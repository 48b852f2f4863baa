package service

import (
	"context"

	"github.com/coursekit/course-service/internal/domain"
	"github.com/coursekit/course-service/internal/enrollment"
	"github.com/coursekit/course-service/internal/events"
	"github.com/coursekit/course-service/internal/repository"
)

// DecisionResult reports the outcome of an approval decision.
type DecisionResult struct {
	Decision enrollment.Decision
	User     *domain.User
	Course   *domain.Course
}

// ApprovalService lets administrators resolve the waiting list.
type ApprovalService struct {
	deps Dependencies
}

// NewApprovalService constructs the service.
func NewApprovalService(deps Dependencies) *ApprovalService {
	return &ApprovalService{deps: deps.withDefaults()}
}

// WaitingList returns the users awaiting a decision on courseID.
func (s *ApprovalService) WaitingList(ctx context.Context, courseID string) ([]domain.WaitingEntry, error) {
	course, err := s.deps.Store.Repos().Courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, notFoundAs(err, enrollment.ErrCourseNotFound)
	}
	return course.WaitingList, nil
}

// Decide approves or rejects userID's waiting entry on courseID. Approval
// extends the user's certification window; both outcomes clear the entry.
func (s *ApprovalService) Decide(ctx context.Context, actorID, courseID, userID, rawAction string) (*DecisionResult, error) {
	action, err := enrollment.ParseAction(rawAction)
	if err != nil {
		return nil, s.deps.record("decide", err)
	}
	now := s.deps.Clock.Now()

	result := &DecisionResult{}
	err = s.deps.Store.WithTx(ctx, func(repos repository.Repositories) error {
		course, err := repos.Courses.GetByIDForUpdate(ctx, courseID)
		if err != nil {
			return notFoundAs(err, enrollment.ErrUserOrCourseNotFound)
		}
		user, err := repos.Users.GetByIDForUpdate(ctx, userID)
		if err != nil {
			return notFoundAs(err, enrollment.ErrUserOrCourseNotFound)
		}

		decision, err := enrollment.Decide(user, course, action, now)
		if err != nil {
			return err
		}
		if action == enrollment.ActionApprove {
			if err := repos.Users.Update(ctx, user); err != nil {
				return err
			}
		}
		if err := repos.Courses.Update(ctx, course); err != nil {
			return err
		}

		change := domain.ChangeTypeRejected
		details := map[string]any{"removed": decision.Removed}
		if action == enrollment.ActionApprove {
			change = domain.ChangeTypeApproved
			details["status_end_date"] = decision.StatusEnd
			details["training_added"] = decision.TrainingAdded
		}
		if err := repos.History.Create(ctx, historyEntry(course.ID, actorID, user.ID, change, details)); err != nil {
			return err
		}

		result.Decision, result.User, result.Course = decision, user, course
		return nil
	})
	if err := s.deps.record("decide", err); err != nil {
		return nil, err
	}

	eventType := events.EventAttendanceRejected
	payload := events.DecisionPayload{UserID: result.User.ID, Email: result.User.Email, CourseName: result.Course.Name}
	if action == enrollment.ActionApprove {
		eventType = events.EventAttendanceApproved
		payload.StatusEndDate = result.User.StatusEndDate
		payload.StatusExpiration = result.User.StatusExpiration
	}
	s.deps.publish(ctx, events.Event{Type: eventType, CourseID: courseID, ActorID: actorID, Payload: payload})
	return result, nil
}
