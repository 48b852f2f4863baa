package enrollment

import (
	"time"

	"github.com/coursekit/course-service/internal/domain"
)

type fixedCodes struct {
	codes []string
	next  int
}

func (f *fixedCodes) NextCode() (string, error) {
	code := f.codes[f.next%len(f.codes)]
	f.next++
	return code, nil
}

func date(year int, month time.Month, day, hour int) time.Time {
	return time.Date(year, month, day, hour, 0, 0, 0, time.UTC)
}

func newCourse(id string, limit int) *domain.Course {
	return &domain.Course{
		ID:              id,
		Name:            "First Aid " + id,
		Location:        "Room 1",
		EnrollmentLimit: limit,
		CourseDate:      date(2024, time.January, 1, 9),
		Hours:           2,
		ApplicationPeriod: domain.ApplicationPeriod{
			StartDate: date(2023, time.December, 1, 0),
			EndDate:   date(2023, time.December, 31, 0),
		},
	}
}

func newUser(id string) *domain.User {
	return &domain.User{ID: id, Name: "User " + id, Email: id + "@example.com", Role: domain.RoleUser}
}
