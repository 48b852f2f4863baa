package events

import (
	"time"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered         EventType = "course_user_registered"
	EventAttendanceCodeIssued   EventType = "attendance_code_issued"
	EventAttendanceValidated    EventType = "attendance_validated"
	EventAttendanceApproved     EventType = "attendance_approved"
	EventAttendanceRejected     EventType = "attendance_rejected"
	EventPaymentCompleted       EventType = "payment_completed"
	EventPasswordResetRequested EventType = "password_reset_requested"
)

// Event represents a domain event emitted by services after commit.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	CourseID  string      `json:"course_id,omitempty"`
	ActorID   string      `json:"actor_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// RegistrationPayload payload.
type RegistrationPayload struct {
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	CourseName string    `json:"course_name"`
	CourseDate time.Time `json:"course_date"`
	Location   string    `json:"location"`
}

// CodeIssuedPayload payload.
type CodeIssuedPayload struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DecisionPayload is shared by validation, approval and rejection events.
type DecisionPayload struct {
	UserID           string     `json:"user_id"`
	Email            string     `json:"email"`
	CourseName       string     `json:"course_name"`
	StatusEndDate    *time.Time `json:"status_end_date,omitempty"`
	StatusExpiration string     `json:"status_expiration,omitempty"`
}

// PaymentPayload payload.
type PaymentPayload struct {
	PaymentID   string `json:"payment_id"`
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	ReceiptURL  string `json:"receipt_url,omitempty"`
}

// PasswordResetPayload payload.
type PasswordResetPayload struct {
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
