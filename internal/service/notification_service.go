package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/coursekit/course-service/internal/events"
	"github.com/coursekit/course-service/internal/notify"
)

// NotificationService turns domain events into emails.
type NotificationService struct {
	dispatcher events.Dispatcher
	mailer     notify.Mailer
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, mailer notify.Mailer, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		mailer:     mailer,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil || n.mailer == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventUserRegistered, n.handleRegistered)
	n.dispatcher.Subscribe(events.EventAttendanceApproved, n.handleApproved)
	n.dispatcher.Subscribe(events.EventAttendanceRejected, n.handleRejected)
	n.dispatcher.Subscribe(events.EventPaymentCompleted, n.handlePaymentCompleted)
	n.dispatcher.Subscribe(events.EventPasswordResetRequested, n.handlePasswordReset)
}

func (n *NotificationService) handleRegistered(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.RegistrationPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	return n.send(ctx, event, notify.Message{
		ToName:  payload.Name,
		ToEmail: payload.Email,
		Subject: "Registered: " + payload.CourseName,
		Text: fmt.Sprintf("You are registered for %s on %s at %s.",
			payload.CourseName, payload.CourseDate.Format("2006-01-02 15:04"), payload.Location),
	})
}

func (n *NotificationService) handleApproved(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.DecisionPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	text := fmt.Sprintf("Your attendance for %s was approved.", payload.CourseName)
	if payload.StatusEndDate != nil {
		text += fmt.Sprintf(" Your certification is valid until %s (%s remaining).",
			payload.StatusEndDate.Format("2006-01-02"), payload.StatusExpiration)
	}
	return n.send(ctx, event, notify.Message{
		ToEmail: payload.Email,
		Subject: "Attendance approved: " + payload.CourseName,
		Text:    text,
	})
}

func (n *NotificationService) handleRejected(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.DecisionPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	return n.send(ctx, event, notify.Message{
		ToEmail: payload.Email,
		Subject: "Attendance not approved: " + payload.CourseName,
		Text:    fmt.Sprintf("Your attendance for %s was not approved.", payload.CourseName),
	})
}

func (n *NotificationService) handlePaymentCompleted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.PaymentPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	text := fmt.Sprintf("We received your payment of %d.%02d %s.",
		payload.AmountCents/100, payload.AmountCents%100, payload.Currency)
	if payload.ReceiptURL != "" {
		text += " Receipt: " + payload.ReceiptURL
	}
	return n.send(ctx, event, notify.Message{
		ToEmail: payload.Email,
		Subject: "Payment received",
		Text:    text,
	})
}

func (n *NotificationService) handlePasswordReset(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.PasswordResetPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	return n.send(ctx, event, notify.Message{
		ToName:  payload.Name,
		ToEmail: payload.Email,
		Subject: "Password reset",
		Text: fmt.Sprintf("Use this token to reset your password: %s (valid until %s).",
			payload.Token, payload.ExpiresAt.Format("2006-01-02 15:04 MST")),
	})
}

func (n *NotificationService) send(ctx context.Context, event events.Event, msg notify.Message) error {
	if err := n.mailer.Send(ctx, msg); err != nil {
		n.logger.Warn("notification failed",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID),
			zap.Error(err))
		return err
	}
	n.logger.Debug("notification sent",
		zap.String("event_type", string(event.Type)),
		zap.String("course_id", event.CourseID))
	return nil
}

func unexpectedPayload(event events.Event) error {
	return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
}
