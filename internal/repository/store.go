package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the query surface shared by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repositories groups every repository bound to the same connection or
// transaction.
type Repositories struct {
	Users          UserRepository
	Courses        CourseRepository
	History        CourseHistoryRepository
	Payments       PaymentRepository
	Assets         AssetRepository
	PasswordResets PasswordResetRepository
}

// Store hands out repositories and runs units of work in a transaction.
type Store interface {
	Repos() Repositories
	WithTx(ctx context.Context, fn func(Repositories) error) error
}

// ErrNoDatabase is returned when the store has no connection pool.
var ErrNoDatabase = errors.New("postgres pool not configured")

type pgStore struct {
	pool  *pgxpool.Pool
	repos Repositories
}

// NewStore returns a Postgres-backed Store.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool, repos: newRepositories(pool)}
}

func newRepositories(db DBTX) Repositories {
	return Repositories{
		Users:          NewUserRepository(db),
		Courses:        NewCourseRepository(db),
		History:        NewCourseHistoryRepository(db),
		Payments:       NewPaymentRepository(db),
		Assets:         NewAssetRepository(db),
		PasswordResets: NewPasswordResetRepository(db),
	}
}

func (s *pgStore) Repos() Repositories {
	return s.repos
}

// WithTx commits when fn returns nil and rolls back otherwise.
func (s *pgStore) WithTx(ctx context.Context, fn func(Repositories) error) error {
	if s.pool == nil {
		return ErrNoDatabase
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(newRepositories(tx))
	})
}

// marshalList encodes a slice for a JSONB array column, never producing null.
func marshalList[T any](items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	return json.Marshal(items)
}

func unmarshalList[T any](raw []byte) ([]T, error) {
	items := []T{}
	if len(raw) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
