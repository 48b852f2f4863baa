package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/coursekit/course-service/internal/api/dto"
	"github.com/coursekit/course-service/internal/domain"
	"github.com/coursekit/course-service/internal/service"
)

// Enrollment registers users and reports their status.
type Enrollment interface {
	Register(ctx context.Context, userID, courseID string) (*domain.Course, error)
	Profile(ctx context.Context, userID string) (*domain.User, error)
}

// Attendance issues and checks attendance codes.
type Attendance interface {
	GenerateCode(ctx context.Context, actorID, courseID string) (*domain.AttendanceCode, error)
	ValidateCode(ctx context.Context, userID, courseID, code string) (*domain.WaitingEntry, error)
}

// Approvals resolves the waiting list.
type Approvals interface {
	WaitingList(ctx context.Context, courseID string) ([]domain.WaitingEntry, error)
	Decide(ctx context.Context, actorID, courseID, userID, action string) (*service.DecisionResult, error)
}

// Checkout charges course fees.
type Checkout interface {
	Checkout(ctx context.Context, userID, courseID, sourceID string) (*domain.Payment, error)
}

// EnrollmentHandler exposes registration, attendance and approval endpoints.
type EnrollmentHandler struct {
	enrollment Enrollment
	attendance Attendance
	approvals  Approvals
	checkout   Checkout
}

// NewEnrollmentHandler constructs handler.
func NewEnrollmentHandler(enrollment Enrollment, attendance Attendance, approvals Approvals, checkout Checkout) *EnrollmentHandler {
	return &EnrollmentHandler{
		enrollment: enrollment,
		attendance: attendance,
		approvals:  approvals,
		checkout:   checkout,
	}
}

// Register POST /courses/:id/register.
func (h *EnrollmentHandler) Register(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := courseID(c)
	if err != nil {
		return err
	}
	course, err := h.enrollment.Register(c.UserContext(), p.UserID(), id)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": fiber.Map{
		"course_id":          course.ID,
		"current_enrollment": course.CurrentEnrollment,
		"enrollment_limit":   course.EnrollmentLimit,
	}})
}

// Me GET /me.
func (h *EnrollmentHandler) Me(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	user, err := h.enrollment.Profile(c.UserContext(), p.UserID())
	if err != nil {
		return err
	}
	training := user.TrainingInfo
	if training == nil {
		training = []domain.TrainingRecord{}
	}
	return c.JSON(fiber.Map{"data": dto.ProfileResponse{
		UserResponse:     userResponse(user),
		TrainingInfo:     training,
		StatusStartDate:  user.StatusStartDate,
		StatusEndDate:    user.StatusEndDate,
		StatusDuration:   user.StatusDuration,
		StatusExpiration: user.StatusExpiration,
	}})
}

// GenerateCode POST /courses/:id/code.
func (h *EnrollmentHandler) GenerateCode(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := courseID(c)
	if err != nil {
		return err
	}
	code, err := h.attendance.GenerateCode(c.UserContext(), p.UserID(), id)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.CodeResponse{
		Code:      code.Code,
		IssuedAt:  code.IssuedAt,
		ExpiresAt: code.ExpiresAt,
	}})
}

// ValidateCode POST /attendance/validate.
func (h *EnrollmentHandler) ValidateCode(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.ValidateCodeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	entry, err := h.attendance.ValidateCode(c.UserContext(), p.UserID(), req.CourseID, req.Code)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"status":    "waiting_for_approval",
		"user_id":   entry.UserID,
		"timestamp": entry.Timestamp,
	}})
}

// Waiting GET /courses/:id/waiting.
func (h *EnrollmentHandler) Waiting(c *fiber.Ctx) error {
	id, err := courseID(c)
	if err != nil {
		return err
	}
	waiting, err := h.approvals.WaitingList(c.UserContext(), id)
	if err != nil {
		return err
	}
	if waiting == nil {
		waiting = []domain.WaitingEntry{}
	}
	return c.JSON(fiber.Map{"data": waiting})
}

// Decide POST /courses/:id/decisions.
func (h *EnrollmentHandler) Decide(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.DecisionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	id, err := courseID(c)
	if err != nil {
		return err
	}
	result, err := h.approvals.Decide(c.UserContext(), p.UserID(), id, req.UserID, req.Action)
	if err != nil {
		return err
	}
	resp := dto.DecisionResponse{
		UserID:  result.User.ID,
		Action:  string(result.Decision.Action),
		Removed: result.Decision.Removed,
	}
	if result.Decision.StatusEnd != nil {
		resp.StatusStartDate = result.User.StatusStartDate
		resp.StatusEndDate = result.User.StatusEndDate
		resp.StatusExpiration = result.User.StatusExpiration
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Checkout POST /courses/:id/checkout.
func (h *EnrollmentHandler) Checkout(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.CheckoutRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	id, err := courseID(c)
	if err != nil {
		return err
	}
	payment, err := h.checkout.Checkout(c.UserContext(), p.UserID(), id, req.SourceID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.PaymentResponse{
		ID:          payment.ID,
		CourseID:    payment.CourseID,
		AmountCents: payment.AmountCents,
		Currency:    payment.Currency,
		Status:      string(payment.Status),
		ReceiptURL:  payment.ReceiptURL,
		CreatedAt:   payment.CreatedAt,
	}})
}
