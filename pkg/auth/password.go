package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/haulware/dispatch-core/pkg/domain"
	"github.com/haulware/dispatch-core/pkg/repository"
)

// PasswordService handles password authentication.
type PasswordService struct {
	users  *repository.UsersRepository
	policy *PasswordPolicy
}

// NewPasswordService creates a new password service.
func NewPasswordService(users *repository.UsersRepository, policy *PasswordPolicy) *PasswordService {
	if policy == nil {
		policy = DefaultPasswordPolicy()
	}
	return &PasswordService{users: users, policy: policy}
}

// ValidateNewPassword checks a candidate password against the policy.
func (s *PasswordService) ValidateNewPassword(password string) error {
	return s.policy.ValidatePassword(password)
}

// Authenticate verifies email and password, returning the user on success.
// A missing user and a wrong password fail identically so callers cannot
// probe which emails exist.
func (s *PasswordService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	creds, err := s.users.GetPassword(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	if !VerifyPassword(password, creds.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	return user, nil
}

// ChangePassword sets a new password for a user.
func (s *PasswordService) ChangePassword(ctx context.Context, db repository.Querier, userID uuid.UUID, newPassword string) error {
	if err := s.policy.ValidatePassword(newPassword); err != nil {
		return err
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.users.SetPasswordTx(ctx, db, userID, hash)
}

// NormalizeEmail lowercases and validates an email address.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return "", domain.ErrInvalidEmail
	}
	return email, nil
}
