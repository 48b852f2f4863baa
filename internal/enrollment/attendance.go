package enrollment

import (
	"strings"
	"time"

	"github.com/coursekit/course-service/internal/domain"
)

const defaultMaxDraws = 20

// CodeInUse reports whether a code is already active on another course.
type CodeInUse func(code string) (bool, error)

// Attendance issues and checks per-session attendance codes.
//
// Course dates are stored as local wall time, so Offset is added to the
// current instant before any comparison against the session window.
type Attendance struct {
	Offset   time.Duration
	Source   CodeSource
	MaxDraws int
}

// NewAttendance returns an Attendance using the crypto code source.
func NewAttendance(offset time.Duration) Attendance {
	return Attendance{Offset: offset, Source: NewCodeSource(), MaxDraws: defaultMaxDraws}
}

// Adjust shifts now into the timezone course dates are expressed in.
func (a Attendance) Adjust(now time.Time) time.Time {
	return now.Add(a.Offset)
}

// Generate issues a fresh code for the running session of course, replacing
// any code left over from an earlier session. inUse may be nil; when set it
// is consulted so that no two courses hold the same active code.
func (a Attendance) Generate(course *domain.Course, now time.Time, inUse CodeInUse) (*domain.AttendanceCode, error) {
	if course == nil {
		return nil, ErrCourseNotFound
	}
	adjusted := a.Adjust(now)
	if adjusted.Before(course.CourseDate) {
		return nil, ErrOutOfWindow
	}
	end := course.SessionEnd()
	if adjusted.After(end) {
		return nil, ErrWindowExpired
	}
	if course.ActiveCode != nil && course.InSession(course.ActiveCode.IssuedAt) {
		return nil, ErrCodeAlreadyActive
	}

	code, err := a.draw(inUse)
	if err != nil {
		return nil, err
	}
	course.ActiveCode = &domain.AttendanceCode{
		Code:      code,
		IssuedAt:  adjusted,
		ExpiresAt: end,
	}
	return course.ActiveCode, nil
}

func (a Attendance) draw(inUse CodeInUse) (string, error) {
	source := a.Source
	if source == nil {
		source = NewCodeSource()
	}
	draws := a.MaxDraws
	if draws <= 0 {
		draws = defaultMaxDraws
	}
	for i := 0; i < draws; i++ {
		code, err := source.NextCode()
		if err != nil {
			return "", err
		}
		if inUse == nil {
			return code, nil
		}
		taken, err := inUse(code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}

// Validate checks an attendance code entered by user and, on success, puts
// the user on the course's waiting list.
func (a Attendance) Validate(course *domain.Course, entered string, user *domain.User, now time.Time) (*domain.WaitingEntry, error) {
	entered = strings.TrimSpace(entered)
	if entered == "" {
		return nil, ErrCodeRequired
	}
	if course == nil {
		return nil, ErrCourseNotFound
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if course.ActiveCode == nil || course.ActiveCode.Code != entered {
		return nil, ErrCodeMismatch
	}
	if !course.IsRegistered(user.ID) {
		return nil, ErrNotRegistered
	}
	if !course.InSession(a.Adjust(now)) {
		return nil, ErrWindowExpired
	}
	if course.IsPending(user.ID) {
		return nil, ErrAlreadyPending
	}

	entry := domain.WaitingEntry{UserID: user.ID, Email: user.Email, Timestamp: now}
	course.WaitingList = append(course.WaitingList, entry)
	return &entry, nil
}
