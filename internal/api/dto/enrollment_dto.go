package dto

import (
	"time"

	"github.com/coursekit/course-service/internal/domain"
)

// ValidateCodeRequest submits an attendance code. CourseID is optional.
type ValidateCodeRequest struct {
	CourseID string `json:"course_id" validate:"omitempty,uuid"`
	Code     string `json:"code" validate:"required,max=16"`
}

// DecisionRequest resolves a waiting entry.
type DecisionRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	Action string `json:"action" validate:"required"`
}

// CheckoutRequest pays a course fee with a tokenized card.
type CheckoutRequest struct {
	SourceID string `json:"source_id" validate:"required,max=255"`
}

// CodeResponse is a freshly issued attendance code.
type CodeResponse struct {
	Code      string    `json:"code"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DecisionResponse reports an approval decision.
type DecisionResponse struct {
	UserID           string     `json:"user_id"`
	Action           string     `json:"action"`
	Removed          bool       `json:"removed"`
	StatusStartDate  *time.Time `json:"status_start_date,omitempty"`
	StatusEndDate    *time.Time `json:"status_end_date,omitempty"`
	StatusExpiration string     `json:"status_expiration,omitempty"`
}

// ProfileResponse is the caller's certification status and training history.
type ProfileResponse struct {
	UserResponse
	TrainingInfo     []domain.TrainingRecord `json:"training_info"`
	StatusStartDate  *time.Time              `json:"status_start_date"`
	StatusEndDate    *time.Time              `json:"status_end_date"`
	StatusDuration   string                  `json:"status_duration"`
	StatusExpiration string                  `json:"status_expiration"`
}

// PaymentResponse reports a checkout.
type PaymentResponse struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"course_id"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	ReceiptURL  string    `json:"receipt_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
