package enrollment

import (
	"time"

	"github.com/coursekit/course-service/internal/domain"
)

// Register enrolls user in course. On success the user's training info, the
// course's registered users and the enrollment counter have all changed; the
// caller must persist both records in one transaction.
func Register(user *domain.User, course *domain.Course, now time.Time) error {
	if course == nil {
		return ErrCourseNotFound
	}
	if user == nil {
		return ErrUserNotFound
	}
	if !course.ApplicationPeriod.Contains(now) {
		return ErrRegistrationClosed
	}
	if user.HasTraining(course.ID) || course.IsRegistered(user.ID) {
		return ErrAlreadyRegistered
	}
	// Only an identical start instant counts; overlapping sessions are allowed.
	for _, record := range user.TrainingInfo {
		if record.CourseDate.Equal(course.CourseDate) {
			return ErrScheduleConflict
		}
	}
	if course.CurrentEnrollment >= course.EnrollmentLimit {
		return ErrCourseFull
	}

	user.TrainingInfo = append(user.TrainingInfo, course.TrainingRecord())
	course.RegisteredUsers = append(course.RegisteredUsers, domain.UserSummary{
		UserID:       user.ID,
		Name:         user.Name,
		Email:        user.Email,
		RegisteredAt: now,
	})
	course.CurrentEnrollment++
	return nil
}
