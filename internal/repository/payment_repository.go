package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/coursekit/course-service/internal/domain"
)

// PaymentRepository persists checkout attempts.
type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	UpdateStatus(ctx context.Context, payment *domain.Payment) error
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Payment, error)
	// GetCompleted returns the latest completed payment of userID for courseID.
	GetCompleted(ctx context.Context, userID, courseID string) (*domain.Payment, error)
	// GetOpen returns the pending or completed payment of userID for courseID.
	GetOpen(ctx context.Context, userID, courseID string) (*domain.Payment, error)
}

type paymentRepository struct {
	db DBTX
}

// NewPaymentRepository constructs repository.
func NewPaymentRepository(db DBTX) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	const query = `
        INSERT INTO payments (user_id, course_id, amount_cents, currency, status, idempotency_key)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		payment.UserID,
		payment.CourseID,
		payment.AmountCents,
		payment.Currency,
		payment.Status,
		payment.IdempotencyKey,
	).Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
}

func (r *paymentRepository) UpdateStatus(ctx context.Context, payment *domain.Payment) error {
	const query = `
        UPDATE payments SET status=$1, provider_payment_id=$2, receipt_url=$3, updated_at=NOW()
        WHERE id=$4
        RETURNING updated_at`
	return r.db.QueryRow(ctx, query,
		payment.Status,
		payment.ProviderPaymentID,
		payment.ReceiptURL,
		payment.ID,
	).Scan(&payment.UpdatedAt)
}

const paymentColumns = `id, user_id, course_id, amount_cents, currency, status, provider_payment_id,
            idempotency_key, receipt_url, created_at, updated_at`

func (r *paymentRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Payment, error) {
	return scanPayment(r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE idempotency_key=$1`, key))
}

func (r *paymentRepository) GetCompleted(ctx context.Context, userID, courseID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments
        WHERE user_id=$1 AND course_id=$2 AND status=$3
        ORDER BY created_at DESC LIMIT 1`
	return scanPayment(r.db.QueryRow(ctx, query, userID, courseID, domain.PaymentStatusCompleted))
}

func (r *paymentRepository) GetOpen(ctx context.Context, userID, courseID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments
        WHERE user_id=$1 AND course_id=$2 AND status IN ($3, $4)
        ORDER BY created_at DESC LIMIT 1`
	return scanPayment(r.db.QueryRow(ctx, query, userID, courseID,
		domain.PaymentStatusPending, domain.PaymentStatusCompleted))
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var payment domain.Payment
	if err := row.Scan(
		&payment.ID,
		&payment.UserID,
		&payment.CourseID,
		&payment.AmountCents,
		&payment.Currency,
		&payment.Status,
		&payment.ProviderPaymentID,
		&payment.IdempotencyKey,
		&payment.ReceiptURL,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &payment, nil
}
