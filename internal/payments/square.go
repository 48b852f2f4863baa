// Package payments charges course fees through Square.
package payments

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	sq "github.com/square/square-go-sdk"
	sqclient "github.com/square/square-go-sdk/client"
	sqcore "github.com/square/square-go-sdk/core"
	sqoption "github.com/square/square-go-sdk/option"
	"go.uber.org/zap"

	"github.com/coursekit/course-service/internal/config"
	apperrors "github.com/coursekit/course-service/pkg/util/errorutil"
)

const (
	sandboxEnv    = "sandbox"
	productionEnv = "production"
)

var baseURLs = map[string]string{
	sandboxEnv:    "https://connect.squareupsandbox.com",
	productionEnv: "https://connect.squareup.com",
}

var (
	errAccessTokenRequired = errors.New("square access token is required")
	errLocationRequired    = errors.New("square location id is required")
	errInvalidEnv          = fmt.Errorf("square environment must be %q or %q", sandboxEnv, productionEnv)

	// ErrPaymentDeclined is returned when Square rejects the charge.
	ErrPaymentDeclined = apperrors.NewDomainError(apperrors.KindConflict, "PAYMENT_DECLINED", "payment was declined", http.StatusPaymentRequired, nil)
	// ErrPaymentUnavailable is returned when Square cannot be reached.
	ErrPaymentUnavailable = apperrors.NewDomainError(apperrors.KindInternal, "PAYMENT_PROVIDER_UNAVAILABLE", "payment provider unavailable", http.StatusBadGateway, nil)
)

// ChargeParams describes a single course payment.
type ChargeParams struct {
	AmountCents    int64
	Currency       string
	SourceID       string
	IdempotencyKey string
	ReferenceID    string
	Note           string
}

// ChargeResult is the provider's view of a created payment.
type ChargeResult struct {
	PaymentID  string
	Status     string
	ReceiptURL string
}

// Gateway charges a payment source.
type Gateway interface {
	Charge(ctx context.Context, params ChargeParams) (*ChargeResult, error)
}

// SquareGateway wraps the Square SDK.
type SquareGateway struct {
	sdk        *sqclient.Client
	locationID string
	logger     *zap.Logger
}

// NewSquareGateway validates cfg and builds the gateway. baseURL overrides the
// environment's endpoint when non-empty.
func NewSquareGateway(cfg config.SquareConfig, baseURL string, logger *zap.Logger) (*SquareGateway, error) {
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		return nil, errAccessTokenRequired
	}
	location := strings.TrimSpace(cfg.LocationID)
	if location == "" {
		return nil, errLocationRequired
	}
	if baseURL == "" {
		env, err := normalizeEnv(cfg.Env)
		if err != nil {
			return nil, err
		}
		baseURL = baseURLs[env]
	}

	sdk := sqclient.NewClient(
		sqoption.WithBaseURL(baseURL),
		sqoption.WithToken(token),
	)
	return &SquareGateway{sdk: sdk, locationID: location, logger: logger}, nil
}

// Charge creates a Square payment for params.
func (g *SquareGateway) Charge(ctx context.Context, params ChargeParams) (*ChargeResult, error) {
	if params.AmountCents <= 0 {
		return nil, apperrors.NewValidationError("amount must be positive", nil)
	}
	req := &sq.CreatePaymentRequest{
		IdempotencyKey: params.IdempotencyKey,
		SourceID:       params.SourceID,
		LocationID:     ptrString(g.locationID),
		AmountMoney:    moneyPtr(params.AmountCents, params.Currency),
		ReferenceID:    ptrString(params.ReferenceID),
		Note:           ptrString(params.Note),
	}

	g.logger.Info("square create_payment",
		zap.String("reference_id", params.ReferenceID),
		zap.Int64("amount", params.AmountCents),
		zap.String("currency", params.Currency))

	resp, err := g.sdk.Payments.Create(ctx, req)
	if err != nil {
		g.logger.Warn("square create_payment failed", zap.Error(err))
		return nil, mapSquareError(err)
	}

	payment := resp.GetPayment()
	if payment == nil {
		return nil, ErrPaymentUnavailable
	}
	result := &ChargeResult{
		PaymentID:  stringValue(payment.GetID()),
		Status:     stringValue(payment.GetStatus()),
		ReceiptURL: stringValue(payment.GetReceiptURL()),
	}
	g.logger.Info("square create_payment ok", zap.String("payment_id", result.PaymentID), zap.String("status", result.Status))
	return result, nil
}

func mapSquareError(err error) error {
	var apiErr *sqcore.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 && apiErr.StatusCode != http.StatusUnauthorized {
			return &apperrors.DomainError{
				Kind:       ErrPaymentDeclined.Kind,
				Code:       ErrPaymentDeclined.Code,
				Message:    ErrPaymentDeclined.Message,
				HTTPStatus: ErrPaymentDeclined.HTTPStatus,
				Err:        err,
			}
		}
	}
	return &apperrors.DomainError{
		Kind:       ErrPaymentUnavailable.Kind,
		Code:       ErrPaymentUnavailable.Code,
		Message:    ErrPaymentUnavailable.Message,
		HTTPStatus: ErrPaymentUnavailable.HTTPStatus,
		Err:        err,
	}
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = sandboxEnv
	}
	if _, ok := baseURLs[env]; !ok {
		return "", errInvalidEnv
	}
	return env, nil
}

func ptrString(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}

func moneyPtr(amount int64, currency string) *sq.Money {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		code = "THB"
	}
	c := sq.Currency(code)
	return &sq.Money{Amount: &amount, Currency: &c}
}

func stringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
