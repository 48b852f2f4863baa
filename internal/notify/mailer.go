// Package notify delivers transactional email.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

const sendEndpoint = "/v3/mail/send"

// Message is a single outbound email.
type Message struct {
	ToName  string
	ToEmail string
	Subject string
	Text    string
	HTML    string
}

// Mailer sends email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SendGridMailer sends mail through the SendGrid v3 API.
type SendGridMailer struct {
	apiKey   string
	host     string
	fromName string
	fromAddr string
	logger   *zap.Logger
}

// NewSendGridMailer builds a mailer. host may be empty to use the public API.
func NewSendGridMailer(apiKey, host, fromName, fromAddr string, logger *zap.Logger) *SendGridMailer {
	return &SendGridMailer{apiKey: apiKey, host: host, fromName: fromName, fromAddr: fromAddr, logger: logger}
}

// Send delivers msg. A fresh client is built per call since the SDK client
// stores the request body on itself.
func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.ToEmail) == "" {
		return errors.New("recipient email required")
	}

	request := sendgrid.GetRequest(m.apiKey, sendEndpoint, m.host)
	request.Method = "POST"
	client := &sendgrid.Client{Request: request}

	email := buildMail(m.fromName, m.fromAddr, msg)
	resp, err := client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	m.logger.Debug("email sent", zap.String("subject", msg.Subject), zap.Int("status", resp.StatusCode))
	return nil
}

func buildMail(fromName, fromAddr string, msg Message) *mail.SGMailV3 {
	from := mail.NewEmail(fromName, fromAddr)
	to := mail.NewEmail(msg.ToName, msg.ToEmail)
	text := msg.Text
	if text == "" {
		text = msg.Subject
	}
	return mail.NewSingleEmail(from, msg.Subject, to, text, msg.HTML)
}

// LogMailer only logs messages. Used when no SendGrid key is configured.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer returns a mailer that writes to logger.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send implements Mailer.
func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("email suppressed", zap.String("to", msg.ToEmail), zap.String("subject", msg.Subject))
	return nil
}
