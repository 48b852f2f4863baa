package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/coursekit/course-service/internal/auth"
	"github.com/coursekit/course-service/internal/config"
	"github.com/coursekit/course-service/internal/domain"
	"github.com/coursekit/course-service/internal/events"
	"github.com/coursekit/course-service/internal/repository"
	apperrors "github.com/coursekit/course-service/pkg/util/errorutil"
)

var (
	ErrEmailTaken         = apperrors.NewDomainError(apperrors.KindConflict, "EMAIL_TAKEN", "email already registered", http.StatusConflict, nil)
	ErrInvalidCredentials = apperrors.NewDomainError(apperrors.KindUnauthorized, "INVALID_CREDENTIALS", "invalid credentials", http.StatusUnauthorized, nil)
	ErrResetTokenInvalid  = apperrors.NewDomainError(apperrors.KindValidation, "RESET_TOKEN_INVALID", "reset token expired or used", http.StatusBadRequest, nil)
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	deps       Dependencies
	tokenMgr   *auth.TokenManager
	bcryptCost int
	resetTTL   time.Duration
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps Dependencies) *AuthService {
	return &AuthService{
		deps:       deps.withDefaults(),
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost: cfg.BcryptCost,
		resetTTL:   time.Duration(cfg.PasswordResetTTLMinutes) * time.Minute,
	}
}

// RegisterUser creates a new learner account.
func (s *AuthService) RegisterUser(ctx context.Context, name, email, password string) (*domain.User, string, *domain.Token, error) {
	user, err := s.createUser(ctx, name, email, password, domain.RoleUser)
	if err != nil {
		return nil, "", nil, err
	}
	token, meta, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, "", nil, err
	}
	return user, token, meta, nil
}

// EnsureAdmin creates an administrator account unless the email already exists.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.createUser(ctx, "Administrator", email, password, domain.RoleAdmin)
	if errors.Is(err, ErrEmailTaken) {
		return s.deps.Store.Repos().Users.GetByEmail(ctx, normalizeEmail(email))
	}
	return user, err
}

func (s *AuthService) createUser(ctx context.Context, name, email, password string, role domain.UserRole) (*domain.User, error) {
	email = normalizeEmail(email)
	users := s.deps.Store.Repos().Users
	if _, err := users.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Status:       domain.UserStatusActive,
		TrainingInfo: []domain.TrainingRecord{},
	}
	if err := users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// LoginUser authenticates an account.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (*domain.User, string, *domain.Token, error) {
	user, err := s.deps.Store.Repos().Users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", nil, ErrInvalidCredentials
		}
		return nil, "", nil, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", nil, ErrInvalidCredentials
	}
	if user.Status != domain.UserStatusActive {
		return nil, "", nil, apperrors.NewForbidden("account is not active")
	}
	if auth.NeedsRehash(user.PasswordHash, s.bcryptCost) {
		s.rehash(ctx, user, password)
	}
	token, meta, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, "", nil, err
	}
	return user, token, meta, nil
}

// rehash upgrades a stored hash after a successful login. Failures only cost
// another rehash on the next login.
func (s *AuthService) rehash(ctx context.Context, user *domain.User, password string) {
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err == nil {
		user.PasswordHash = hash
		err = s.deps.Store.Repos().Users.Update(ctx, user)
	}
	if err != nil {
		s.deps.Logger.Warn("password rehash failed", zap.String("user_id", user.ID), zap.Error(err))
	}
}

// RequestPasswordReset persists a reset token and emits an event carrying it.
// Unknown emails succeed silently.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	repos := s.deps.Store.Repos()
	user, err := repos.Users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}

	token := &domain.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: s.deps.Clock.Now().Add(s.resetTTL),
	}
	if err := repos.PasswordResets.Create(ctx, token); err != nil {
		return err
	}

	s.deps.publish(ctx, events.Event{
		Type:    events.EventPasswordResetRequested,
		ActorID: user.ID,
		Payload: events.PasswordResetPayload{
			Email:     user.Email,
			Name:      user.Name,
			Token:     token.Token,
			ExpiresAt: token.ExpiresAt,
		},
	})
	return nil
}

// ConfirmPasswordReset validates the reset token and updates password.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, tokenStr, newPassword string) error {
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	now := s.deps.Clock.Now()

	return s.deps.Store.WithTx(ctx, func(repos repository.Repositories) error {
		token, err := repos.PasswordResets.GetByToken(ctx, tokenStr)
		if err != nil {
			return notFoundAs(err, ErrResetTokenInvalid)
		}
		if token.UsedAt != nil || now.After(token.ExpiresAt) {
			return ErrResetTokenInvalid
		}
		user, err := repos.Users.GetByIDForUpdate(ctx, token.UserID)
		if err != nil {
			return err
		}
		user.PasswordHash = hash
		if err := repos.Users.Update(ctx, user); err != nil {
			return err
		}
		return repos.PasswordResets.MarkUsed(ctx, token.ID)
	})
}

// ChangePassword verifies current password before updating to new hash.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	return s.deps.Store.WithTx(ctx, func(repos repository.Repositories) error {
		user, err := repos.Users.GetByIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
			return ErrInvalidCredentials
		}
		hash, err := auth.HashPassword(newPassword, s.bcryptCost)
		if err != nil {
			return err
		}
		user.PasswordHash = hash
		return repos.Users.Update(ctx, user)
	})
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
