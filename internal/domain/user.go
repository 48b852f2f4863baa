package domain

import "time"

// UserStatus represents lifecycle states for an account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// UserRole separates learners from administrators.
type UserRole string

const (
	RoleUser  UserRole = "USER"
	RoleAdmin UserRole = "ADMIN"
)

// TrainingRecord is the denormalized course summary kept on a user.
type TrainingRecord struct {
	CourseID    string    `json:"course_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	ImageURL    string    `json:"image_url"`
	CourseDate  time.Time `json:"course_date"`
	Hours       float64   `json:"hours"`
}

// User is the account aggregate, including certification status.
type User struct {
	ID               string
	Name             string
	Email            string
	PasswordHash     string
	Role             UserRole
	Status           UserStatus
	TrainingInfo     []TrainingRecord
	StatusStartDate  *time.Time
	StatusEndDate    *time.Time
	StatusDuration   string
	StatusExpiration string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// HasTraining reports whether the user already holds a record for courseID.
func (u *User) HasTraining(courseID string) bool {
	for _, record := range u.TrainingInfo {
		if record.CourseID == courseID {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the account may run administrative workflows.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
