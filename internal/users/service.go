package users

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cobalthq/cobalt/internal/auth"
	"github.com/cobalthq/cobalt/internal/platform/apperr"
	"github.com/cobalthq/cobalt/internal/platform/ctxutil"
	"github.com/cobalthq/cobalt/internal/platform/validate"
	"github.com/cobalthq/cobalt/pkg/pagination"
)

// Service exposes profile operations for the authenticated account.
type Service struct {
	users     auth.UserRepository
	passwords auth.PasswordHasher
	sessions  *auth.Service
}

func NewService(users auth.UserRepository, passwords auth.PasswordHasher, sessions *auth.Service) *Service {
	return &Service{
		users:     users,
		passwords: passwords,
		sessions:  sessions,
	}
}

func (service *Service) Profile(ctx context.Context, userID string) (*auth.User, error) {
	return service.users.FindByID(ctx, userID)
}

// List returns a page of accounts for the admin directory.
func (service *Service) List(ctx context.Context, params pagination.Params) ([]*auth.User, int, error) {
	return service.users.List(ctx, params)
}

// DeleteAccount disables the caller's own account and revokes every live
// session. The row is kept so owned content and audit history survive.
func (service *Service) DeleteAccount(ctx context.Context, userID string) error {
	if err := service.users.Deactivate(ctx, userID); err != nil {
		return err
	}

	revoked, err := service.sessions.LogoutAll(ctx, userID)
	if err != nil {
		return err
	}

	ctxutil.GetLogger(ctx).InfoContext(ctx, "account_deleted",
		slog.String("user_id", userID),
		slog.Int64("tokens_revoked", revoked),
	)
	return nil
}

// Deactivate disables another user's account. Admin operation; the target's
// sessions are revoked so the lockout is immediate.
func (service *Service) Deactivate(ctx context.Context, targetID string) error {
	if err := service.users.Deactivate(ctx, targetID); err != nil {
		return err
	}

	revoked, err := service.sessions.LogoutAll(ctx, targetID)
	if err != nil {
		return err
	}

	ctxutil.GetLogger(ctx).InfoContext(ctx, "account_deactivated",
		slog.String("user_id", targetID),
		slog.Int64("tokens_revoked", revoked),
	)
	return nil
}

// UpdateProfileInput holds the mutable profile fields.
type UpdateProfileInput struct {
	FirstName *string
	LastName  *string
}

func (service *Service) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*auth.User, error) {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.FirstName != nil {
		user.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		user.LastName = *input.LastName
	}

	if err := service.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("users_service_update_failed: %w", err)
	}

	return user, nil
}

// ChangePassword replaces the caller's credential after re-verifying the
// current password, then revokes every live session.
func (service *Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if !service.passwords.Verify(ctx, currentPassword, user.PasswordHash) {
		return apperr.Unauthorized("Current password is incorrect")
	}

	if ok, violations := service.passwords.ValidateStrength(newPassword); !ok {
		v := &validate.Validator{}
		v.Violations("new_password", violations)
		return v.Err()
	}

	hashed, err := service.passwords.Hash(ctx, newPassword)
	if err != nil {
		return fmt.Errorf("users_service_hash_failed: %w", err)
	}

	if err := service.users.UpdatePassword(ctx, userID, hashed); err != nil {
		return fmt.Errorf("users_service_update_password_failed: %w", err)
	}

	// A password change invalidates every outstanding refresh token.
	revoked, err := service.sessions.LogoutAll(ctx, userID)
	if err != nil {
		return err
	}

	ctxutil.GetLogger(ctx).InfoContext(ctx, "password_changed",
		slog.String("user_id", userID),
		slog.Int64("tokens_revoked", revoked),
	)

	return nil
}
