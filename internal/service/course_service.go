package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/coursekit/course-service/internal/domain"
	"github.com/coursekit/course-service/internal/enrollment"
	"github.com/coursekit/course-service/internal/repository"
	apperrors "github.com/coursekit/course-service/pkg/util/errorutil"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// CourseInput describes the mutable fields of a course.
type CourseInput struct {
	Name             string
	Description      string
	Location         string
	PriceCents       int64
	Currency         string
	EnrollmentLimit  int
	CourseDate       time.Time
	Hours            float64
	ApplicationStart time.Time
	ApplicationEnd   time.Time
}

func (in CourseInput) validate() error {
	details := map[string]any{}
	if strings.TrimSpace(in.Name) == "" {
		details["name"] = "required"
	}
	if in.EnrollmentLimit < 1 {
		details["enrollment_limit"] = "must be at least 1"
	}
	if in.Hours <= 0 {
		details["hours"] = "must be positive"
	}
	if in.PriceCents < 0 {
		details["price_cents"] = "must not be negative"
	}
	if in.CourseDate.IsZero() {
		details["course_date"] = "required"
	}
	if !in.ApplicationStart.Before(in.ApplicationEnd) {
		details["application_period"] = "start must be before end"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid course", details)
	}
	return nil
}

func (in CourseInput) apply(course *domain.Course, defaultCurrency string) {
	course.Name = strings.TrimSpace(in.Name)
	course.Description = strings.TrimSpace(in.Description)
	course.Location = strings.TrimSpace(in.Location)
	course.PriceCents = in.PriceCents
	course.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if course.Currency == "" {
		course.Currency = defaultCurrency
	}
	course.EnrollmentLimit = in.EnrollmentLimit
	course.CourseDate = in.CourseDate.UTC()
	course.Hours = in.Hours
	course.ApplicationPeriod = domain.ApplicationPeriod{
		StartDate: in.ApplicationStart.UTC(),
		EndDate:   in.ApplicationEnd.UTC(),
	}
}

// CourseService manages the course catalog.
type CourseService struct {
	deps            Dependencies
	defaultCurrency string
}

// NewCourseService constructs the service.
func NewCourseService(deps Dependencies, defaultCurrency string) *CourseService {
	if defaultCurrency == "" {
		defaultCurrency = "THB"
	}
	return &CourseService{deps: deps.withDefaults(), defaultCurrency: defaultCurrency}
}

// Create adds a course to the catalog.
func (s *CourseService) Create(ctx context.Context, actorID string, input CourseInput) (*domain.Course, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	course := &domain.Course{
		RegisteredUsers: []domain.UserSummary{},
		WaitingList:     []domain.WaitingEntry{},
	}
	input.apply(course, s.defaultCurrency)

	err := s.deps.Store.WithTx(ctx, func(repos repository.Repositories) error {
		if err := repos.Courses.Create(ctx, course); err != nil {
			return err
		}
		return repos.History.Create(ctx, historyEntry(course.ID, actorID, "", domain.ChangeTypeCreated, map[string]any{
			"name": course.Name,
		}))
	})
	if err != nil {
		return nil, err
	}
	return course, nil
}

// Update changes the catalog fields of a course. Counters and the ledger are
// left untouched. Moving the session (date or hours) drops the active code and
// rewrites the session copy in every registered user's training info.
func (s *CourseService) Update(ctx context.Context, actorID, courseID string, input CourseInput) (*domain.Course, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	var course *domain.Course
	err := s.deps.Store.WithTx(ctx, func(repos repository.Repositories) error {
		var err error
		if course, err = repos.Courses.GetByIDForUpdate(ctx, courseID); err != nil {
			return notFoundAs(err, enrollment.ErrCourseNotFound)
		}
		if input.EnrollmentLimit < course.CurrentEnrollment {
			return apperrors.NewConflict("enrollment limit is below current enrollment", map[string]any{
				"current_enrollment": course.CurrentEnrollment,
			})
		}
		moved := !course.CourseDate.Equal(input.CourseDate) || course.Hours != input.Hours
		input.apply(course, s.defaultCurrency)
		if moved {
			course.ActiveCode = nil
		}
		if err := repos.Courses.Update(ctx, course); err != nil {
			return err
		}
		if moved {
			if err := syncTrainingRecords(ctx, repos, course); err != nil {
				return err
			}
		}
		return repos.History.Create(ctx, historyEntry(course.ID, actorID, "", domain.ChangeTypeUpdated, map[string]any{
			"enrollment_limit": course.EnrollmentLimit,
			"course_date":      course.CourseDate,
			"session_moved":    moved,
		}))
	})
	if err != nil {
		return nil, err
	}
	return course, nil
}

// syncTrainingRecords copies the session of course into the training info of
// each registered user. The course row must already be locked.
func syncTrainingRecords(ctx context.Context, repos repository.Repositories, course *domain.Course) error {
	for _, member := range course.RegisteredUsers {
		user, err := repos.Users.GetByIDForUpdate(ctx, member.UserID)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return err
		}
		changed := false
		for i := range user.TrainingInfo {
			if rec := &user.TrainingInfo[i]; rec.CourseID == course.ID {
				rec.CourseDate = course.CourseDate
				rec.Hours = course.Hours
				changed = true
			}
		}
		if !changed {
			continue
		}
		if err := repos.Users.Update(ctx, user); err != nil {
			return err
		}
	}
	return nil
}

// Get returns a single course.
func (s *CourseService) Get(ctx context.Context, courseID string) (*domain.Course, error) {
	course, err := s.deps.Store.Repos().Courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, notFoundAs(err, enrollment.ErrCourseNotFound)
	}
	return course, nil
}

// List returns a page of courses ordered by course date.
func (s *CourseService) List(ctx context.Context, limit, offset int) ([]domain.Course, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	courses, err := s.deps.Store.Repos().Courses.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	if courses == nil {
		courses = []domain.Course{}
	}
	return courses, nil
}

// History returns the audit trail of a course.
func (s *CourseService) History(ctx context.Context, courseID string) ([]domain.CourseHistory, error) {
	repos := s.deps.Store.Repos()
	if _, err := repos.Courses.GetByID(ctx, courseID); err != nil {
		return nil, notFoundAs(err, enrollment.ErrCourseNotFound)
	}
	history, err := repos.History.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []domain.CourseHistory{}
	}
	return history, nil
}
