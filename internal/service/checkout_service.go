package service

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/coursekit/course-service/internal/domain"
	"github.com/coursekit/course-service/internal/enrollment"
	"github.com/coursekit/course-service/internal/events"
	"github.com/coursekit/course-service/internal/payments"
	"github.com/coursekit/course-service/internal/repository"
	apperrors "github.com/coursekit/course-service/pkg/util/errorutil"
)

var (
	// ErrCheckoutUnavailable is returned when no payment gateway is configured.
	ErrCheckoutUnavailable = apperrors.NewDomainError(apperrors.KindInternal, "CHECKOUT_UNAVAILABLE", "payments are not configured", http.StatusServiceUnavailable, nil)
	ErrCheckoutInProgress  = apperrors.NewDomainError(apperrors.KindConflict, "CHECKOUT_IN_PROGRESS", "another payment for this course is still being processed", http.StatusConflict, nil)
)

// CheckoutService charges course fees ahead of registration.
type CheckoutService struct {
	deps    Dependencies
	gateway payments.Gateway
}

// NewCheckoutService constructs the service. gateway may be nil when payments
// are not configured.
func NewCheckoutService(deps Dependencies, gateway payments.Gateway) *CheckoutService {
	return &CheckoutService{deps: deps.withDefaults(), gateway: gateway}
}

// Checkout charges sourceID for courseID on behalf of userID. The user must be
// eligible to register right now, otherwise no charge is attempted. Retrying
// with the same source reuses the same idempotency key. A pending payment is
// claimed under the course lock before the gateway is called, so at most one
// charge per user and course is ever in flight.
func (s *CheckoutService) Checkout(ctx context.Context, userID, courseID, sourceID string) (*domain.Payment, error) {
	if s.gateway == nil {
		return nil, ErrCheckoutUnavailable
	}
	sourceID = strings.TrimSpace(sourceID)
	if sourceID == "" {
		return nil, apperrors.NewValidationError("source id is required", map[string]any{"source_id": "required"})
	}

	claim, err := s.claim(ctx, userID, courseID, sourceID)
	if err != nil {
		return nil, s.deps.record("checkout", err)
	}
	if claim.payment.Status == domain.PaymentStatusCompleted {
		return claim.payment, nil
	}
	return s.charge(ctx, claim, sourceID)
}

type checkoutClaim struct {
	payment *domain.Payment
	course  *domain.Course
	user    *domain.User
}

// claim returns the payment the caller may charge, or the completed payment
// the user already holds.
func (s *CheckoutService) claim(ctx context.Context, userID, courseID, sourceID string) (*checkoutClaim, error) {
	key := idempotencyKey(userID, courseID, sourceID)
	var claim checkoutClaim
	err := s.deps.Store.WithTx(ctx, func(repos repository.Repositories) error {
		course, err := repos.Courses.GetByIDForUpdate(ctx, courseID)
		if err != nil {
			return notFoundAs(err, enrollment.ErrCourseNotFound)
		}
		if course.PriceCents <= 0 {
			return apperrors.NewValidationError("course is free", map[string]any{"price_cents": course.PriceCents})
		}
		user, err := repos.Users.GetByID(ctx, userID)
		if err != nil {
			return notFoundAs(err, enrollment.ErrUserNotFound)
		}
		claim.course, claim.user = course, user

		open, err := repos.Payments.GetOpen(ctx, userID, courseID)
		switch {
		case err == nil:
			if open.Status == domain.PaymentStatusPending && open.IdempotencyKey != key {
				return ErrCheckoutInProgress
			}
			claim.payment = open
			return nil
		case !errors.Is(err, pgx.ErrNoRows):
			return err
		}

		// Dry run against copies so a closed or full course is never charged.
		if err := enrollment.Register(cloneUser(user), cloneCourse(course), s.deps.Clock.Now()); err != nil {
			return err
		}

		// With open payments excluded, a known key can only be a failed attempt.
		if _, err := repos.Payments.GetByIdempotencyKey(ctx, key); err == nil {
			return payments.ErrPaymentDeclined
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		claim.payment = &domain.Payment{
			UserID:         userID,
			CourseID:       courseID,
			AmountCents:    course.PriceCents,
			Currency:       course.Currency,
			Status:         domain.PaymentStatusPending,
			IdempotencyKey: key,
		}
		return repos.Payments.Create(ctx, claim.payment)
	})
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

func (s *CheckoutService) charge(ctx context.Context, claim *checkoutClaim, sourceID string) (*domain.Payment, error) {
	payment := claim.payment
	repos := s.deps.Store.Repos()

	result, chargeErr := s.gateway.Charge(ctx, payments.ChargeParams{
		AmountCents:    payment.AmountCents,
		Currency:       payment.Currency,
		SourceID:       sourceID,
		IdempotencyKey: payment.IdempotencyKey,
		ReferenceID:    payment.CourseID,
		Note:           claim.course.Name,
	})
	if chargeErr != nil {
		// Transport failures keep the claim pending; a retry with the same
		// source resolves it through the provider's idempotency key.
		if apperrors.CodeOf(chargeErr) == payments.ErrPaymentDeclined.Code {
			payment.Status = domain.PaymentStatusFailed
			if err := repos.Payments.UpdateStatus(ctx, payment); err != nil {
				s.deps.Logger.Warn("mark payment failed", zap.String("payment_id", payment.ID), zap.Error(err))
			}
		}
		return nil, s.deps.record("checkout", chargeErr)
	}

	payment.ProviderPaymentID = result.PaymentID
	payment.ReceiptURL = result.ReceiptURL
	switch result.Status {
	case "COMPLETED", "APPROVED":
		payment.Status = domain.PaymentStatusCompleted
	case "FAILED", "CANCELED":
		payment.Status = domain.PaymentStatusFailed
	default:
		payment.Status = domain.PaymentStatusPending
	}
	if err := repos.Payments.UpdateStatus(ctx, payment); err != nil {
		return nil, err
	}
	s.deps.record("checkout", nil)

	if payment.Status == domain.PaymentStatusCompleted {
		s.deps.publish(ctx, events.Event{
			Type:     events.EventPaymentCompleted,
			CourseID: payment.CourseID,
			ActorID:  payment.UserID,
			Payload: events.PaymentPayload{
				PaymentID:   payment.ID,
				UserID:      payment.UserID,
				Email:       claim.user.Email,
				AmountCents: payment.AmountCents,
				Currency:    payment.Currency,
				ReceiptURL:  payment.ReceiptURL,
			},
		})
	}
	return payment, nil
}

func idempotencyKey(userID, courseID, sourceID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("checkout:"+userID+":"+courseID+":"+sourceID)).String()
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	c.TrainingInfo = append([]domain.TrainingRecord(nil), u.TrainingInfo...)
	return &c
}

func cloneCourse(course *domain.Course) *domain.Course {
	c := *course
	c.RegisteredUsers = append([]domain.UserSummary(nil), course.RegisteredUsers...)
	c.WaitingList = append([]domain.WaitingEntry(nil), course.WaitingList...)
	if course.ActiveCode != nil {
		code := *course.ActiveCode
		c.ActiveCode = &code
	}
	return &c
}
