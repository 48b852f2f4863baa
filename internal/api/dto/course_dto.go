package dto

import (
	"time"

	"github.com/coursekit/course-service/internal/domain"
)

// ApplicationPeriodRequest is the registration window of a course.
type ApplicationPeriodRequest struct {
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required,gtfield=StartDate"`
}

// CourseRequest creates or replaces the catalog fields of a course.
type CourseRequest struct {
	Name              string                   `json:"name" validate:"required,max=200"`
	Description       string                   `json:"description" validate:"max=4000"`
	Location          string                   `json:"location" validate:"max=200"`
	PriceCents        int64                    `json:"price_cents" validate:"gte=0"`
	Currency          string                   `json:"currency" validate:"omitempty,len=3"`
	EnrollmentLimit   int                      `json:"enrollment_limit" validate:"gte=1"`
	CourseDate        time.Time                `json:"course_date" validate:"required"`
	Hours             float64                  `json:"hours" validate:"gt=0"`
	ApplicationPeriod ApplicationPeriodRequest `json:"application_period"`
}

// CourseResponse is the catalog view of a course. The ledger lists are only
// filled for administrators.
type CourseResponse struct {
	ID                string                   `json:"id"`
	Name              string                   `json:"name"`
	Description       string                   `json:"description"`
	Location          string                   `json:"location"`
	ImageURL          string                   `json:"image_url,omitempty"`
	PriceCents        int64                    `json:"price_cents"`
	Currency          string                   `json:"currency"`
	EnrollmentLimit   int                      `json:"enrollment_limit"`
	CurrentEnrollment int                      `json:"current_enrollment"`
	CourseDate        time.Time                `json:"course_date"`
	Hours             float64                  `json:"hours"`
	ApplicationPeriod domain.ApplicationPeriod `json:"application_period"`
	RegisteredUsers   []domain.UserSummary     `json:"registered_users,omitempty"`
	WaitingList       []domain.WaitingEntry    `json:"waiting_list,omitempty"`
	CreatedAt         time.Time                `json:"created_at"`
	UpdatedAt         time.Time                `json:"updated_at"`
}

// HistoryResponse is one audit trail entry.
type HistoryResponse struct {
	ID         string         `json:"id"`
	ChangeType string         `json:"change_type"`
	ActorID    *string        `json:"actor_id,omitempty"`
	SubjectID  *string        `json:"subject_id,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// AssetResponse describes an uploaded course image.
type AssetResponse struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	FileName  string    `json:"file_name"`
	MimeType  string    `json:"mime_type"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}
