package enrollment

import (
	"fmt"
	"time"

	"github.com/coursekit/course-service/internal/domain"
)

const (
	statusTermYears    = 1
	statusCeilingYears = 2
)

// Status is a certification validity window.
type Status struct {
	Start time.Time
	End   time.Time
}

// InitialStatus opens a one-year window starting at now.
func InitialStatus(now time.Time) Status {
	return Status{Start: now, End: now.AddDate(statusTermYears, 0, 0)}
}

// StatusCeiling is the latest end a window opened at start can ever reach.
func StatusCeiling(start time.Time) time.Time {
	return start.AddDate(statusCeilingYears, 0, 0)
}

// ExtendStatus returns the new end of a window after one more approval.
// A missing or lapsed end restarts the term from now; otherwise the end
// moves forward one year. The result never passes StatusCeiling(start).
func ExtendStatus(start time.Time, end *time.Time, now time.Time) time.Time {
	var next time.Time
	if end == nil || !end.After(now) {
		next = now.AddDate(statusTermYears, 0, 0)
	} else {
		next = end.AddDate(statusTermYears, 0, 0)
	}
	if ceiling := StatusCeiling(start); next.After(ceiling) {
		next = ceiling
	}
	return next
}

// Remaining is a calendar decomposition of the time left on a window.
type Remaining struct {
	Years  int
	Months int
	Days   int
}

func (r Remaining) String() string {
	return fmt.Sprintf("%d ปี %d เดือน %d วัน", r.Years, r.Months, r.Days)
}

// FormatRemaining splits [now, end) into whole years, months and days using
// calendar arithmetic. A window that already ended yields zero everywhere.
func FormatRemaining(end, now time.Time) Remaining {
	now = now.In(end.Location())
	if !end.After(now) {
		return Remaining{}
	}

	years := end.Year() - now.Year()
	for years > 0 && now.AddDate(years, 0, 0).After(end) {
		years--
	}
	anchor := now.AddDate(years, 0, 0)

	months := (end.Year()-anchor.Year())*12 + int(end.Month()) - int(anchor.Month())
	for months > 0 && anchor.AddDate(0, months, 0).After(end) {
		months--
	}
	anchor = anchor.AddDate(0, months, 0)

	days := int(end.Sub(anchor) / (24 * time.Hour))
	return Remaining{Years: years, Months: months, Days: days}
}

// ApplyStatus opens or extends the user's certification window and refreshes
// the derived remaining-time fields. now must be the single instant captured
// for the whole approval.
func ApplyStatus(user *domain.User, now time.Time) {
	if user.StatusStartDate == nil {
		status := InitialStatus(now)
		user.StatusStartDate = &status.Start
		user.StatusEndDate = &status.End
	} else {
		end := ExtendStatus(*user.StatusStartDate, user.StatusEndDate, now)
		user.StatusEndDate = &end
	}
	remaining := FormatRemaining(*user.StatusEndDate, now).String()
	user.StatusDuration = remaining
	user.StatusExpiration = remaining
}

// RefreshRemaining recomputes the derived remaining-time fields without
// touching the window itself.
func RefreshRemaining(user *domain.User, now time.Time) {
	if user.StatusEndDate == nil {
		user.StatusDuration = ""
		user.StatusExpiration = ""
		return
	}
	remaining := FormatRemaining(*user.StatusEndDate, now).String()
	user.StatusDuration = remaining
	user.StatusExpiration = remaining
}
