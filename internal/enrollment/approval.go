package enrollment

import (
	"strings"
	"time"

	"github.com/coursekit/course-service/internal/domain"
)

// Action is an admin decision on a waiting entry.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// ParseAction normalizes raw input into an Action.
func ParseAction(raw string) (Action, error) {
	switch action := Action(strings.ToLower(strings.TrimSpace(raw))); action {
	case ActionApprove, ActionReject:
		return action, nil
	default:
		return "", ErrInvalidAction
	}
}

// Decision describes what Decide changed.
type Decision struct {
	Action        Action
	Removed       bool
	TrainingAdded bool
	StatusEnd     *time.Time
}

// Decide resolves the user's waiting entry on course.
//
// Approving again re-extends the certification window but never duplicates
// the training record.
func Decide(user *domain.User, course *domain.Course, action Action, now time.Time) (Decision, error) {
	if action != ActionApprove && action != ActionReject {
		return Decision{}, ErrInvalidAction
	}
	if user == nil || course == nil {
		return Decision{}, ErrUserOrCourseNotFound
	}

	decision := Decision{Action: action}
	if action == ActionApprove {
		ApplyStatus(user, now)
		decision.StatusEnd = user.StatusEndDate
		if !user.HasTraining(course.ID) {
			user.TrainingInfo = append(user.TrainingInfo, course.TrainingRecord())
			decision.TrainingAdded = true
		}
	}
	decision.Removed = removeWaiting(course, user.ID)
	return decision, nil
}

func removeWaiting(course *domain.Course, userID string) bool {
	kept := course.WaitingList[:0]
	removed := false
	for _, entry := range course.WaitingList {
		if entry.UserID == userID {
			removed = true
			continue
		}
		kept = append(kept, entry)
	}
	course.WaitingList = kept
	return removed
}
