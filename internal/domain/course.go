package domain

import "time"

// ApplicationPeriod is the registration window of a course.
type ApplicationPeriod struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// Contains reports whether t falls inside the window, bounds included.
func (p ApplicationPeriod) Contains(t time.Time) bool {
	return !t.Before(p.StartDate) && !t.After(p.EndDate)
}

// AttendanceCode is the active attendance code of a course. A nil
// *AttendanceCode on a course means no code has been issued.
type AttendanceCode struct {
	Code      string    `json:"code"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserSummary is the denormalized user entry kept on a course.
type UserSummary struct {
	UserID       string    `json:"user_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	RegisteredAt time.Time `json:"registered_at"`
}

// WaitingEntry is a user awaiting an admin decision after validating a code.
type WaitingEntry struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Timestamp time.Time `json:"timestamp"`
}

// Course is the catalog aggregate and owner of the registration ledger.
type Course struct {
	ID                string
	Name              string
	Description       string
	Location          string
	ImageURL          string
	PriceCents        int64
	Currency          string
	EnrollmentLimit   int
	CurrentEnrollment int
	CourseDate        time.Time
	Hours             float64
	ApplicationPeriod ApplicationPeriod
	ActiveCode        *AttendanceCode
	RegisteredUsers   []UserSummary
	WaitingList       []WaitingEntry
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// SessionEnd returns the instant the in-person session finishes.
func (c *Course) SessionEnd() time.Time {
	return c.CourseDate.Add(time.Duration(c.Hours * float64(time.Hour)))
}

// InSession reports whether t lies within [CourseDate, SessionEnd].
func (c *Course) InSession(t time.Time) bool {
	return !t.Before(c.CourseDate) && !t.After(c.SessionEnd())
}

// IsRegistered reports whether userID appears in the registered users.
func (c *Course) IsRegistered(userID string) bool {
	for _, u := range c.RegisteredUsers {
		if u.UserID == userID {
			return true
		}
	}
	return false
}

// IsPending reports whether userID is waiting for approval.
func (c *Course) IsPending(userID string) bool {
	for _, entry := range c.WaitingList {
		if entry.UserID == userID {
			return true
		}
	}
	return false
}

// TrainingRecord builds the denormalized summary stored on a user.
func (c *Course) TrainingRecord() TrainingRecord {
	return TrainingRecord{
		CourseID:    c.ID,
		Name:        c.Name,
		Description: c.Description,
		Location:    c.Location,
		ImageURL:    c.ImageURL,
		CourseDate:  c.CourseDate,
		Hours:       c.Hours,
	}
}
