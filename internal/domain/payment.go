package domain

import "time"

// PaymentStatus mirrors the provider's payment lifecycle.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// Payment records a checkout attempt for a course.
type Payment struct {
	ID                string
	UserID            string
	CourseID          string
	AmountCents       int64
	Currency          string
	Status            PaymentStatus
	ProviderPaymentID string
	IdempotencyKey    string
	ReceiptURL        string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
