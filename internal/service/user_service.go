package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/credit-line-service/internal/domain"
	"github.com/spec-kit/credit-line-service/internal/repository"
	apperrors "github.com/spec-kit/credit-line-service/pkg/util/errorutil"
)

const pgUniqueViolation = "23505"

// UserService handles borrower provisioning and profile updates.
type UserService struct {
	users repository.UserRepository
}

// NewUserService constructs the service.
func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

// UserCreateInput describes user provisioning payload.
type UserCreateInput struct {
	FirstName   string
	LastName    string
	Email       string
	CreditLimit int64
	IsAdmin     bool
}

// UserPatch carries optional fields for partial updates.
type UserPatch struct {
	FirstName   *string
	LastName    *string
	Email       *string
	CreditLimit *int64
	IsAdmin     *bool
}

// Create provisions a new user.
func (s *UserService) Create(ctx context.Context, input UserCreateInput) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, apperrors.NewValidationError("email required", nil)
	}
	if input.CreditLimit < 0 {
		return nil, apperrors.NewValidationError("credit_limit must be non-negative", map[string]any{
			"credit_limit": input.CreditLimit,
		})
	}
	if err := s.checkEmailFree(ctx, email, ""); err != nil {
		return nil, err
	}

	user := &domain.User{
		FirstName:   strings.TrimSpace(input.FirstName),
		LastName:    strings.TrimSpace(input.LastName),
		Email:       email,
		CreditLimit: input.CreditLimit,
		IsAdmin:     input.IsAdmin,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, mapUserWriteError(err, email)
	}
	return user, nil
}

// GetByID fetches a single user.
func (s *UserService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreError("user", id, err)
	}
	return user, nil
}

// Update applies a partial patch to a user.
func (s *UserService) Update(ctx context.Context, id string, patch UserPatch) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreError("user", id, err)
	}

	if patch.FirstName != nil {
		user.FirstName = strings.TrimSpace(*patch.FirstName)
	}
	if patch.LastName != nil {
		user.LastName = strings.TrimSpace(*patch.LastName)
	}
	if patch.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*patch.Email))
		if email == "" {
			return nil, apperrors.NewValidationError("email required", nil)
		}
		if err := s.checkEmailFree(ctx, email, user.ID); err != nil {
			return nil, err
		}
		user.Email = email
	}
	if patch.CreditLimit != nil {
		if *patch.CreditLimit < 0 {
			return nil, apperrors.NewValidationError("credit_limit must be non-negative", map[string]any{
				"credit_limit": *patch.CreditLimit,
			})
		}
		user.CreditLimit = *patch.CreditLimit
	}
	if patch.IsAdmin != nil {
		user.IsAdmin = *patch.IsAdmin
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, mapUserWriteError(err, user.Email)
	}
	return user, nil
}

// List returns users, newest first.
func (s *UserService) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	return s.users.List(ctx, limit, offset)
}

// checkEmailFree reports Conflict when another user already holds the email.
// The unique constraint still backs this up under concurrent writes; see
// mapUserWriteError.
func (s *UserService) checkEmailFree(ctx context.Context, email, selfID string) error {
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}
	if existing.ID == selfID {
		return nil
	}
	return apperrors.NewConflict("email already registered", map[string]any{"email": email})
}

func mapUserWriteError(err error, email string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return apperrors.NewConflict("email already registered", map[string]any{"email": email})
	}
	return err
}
