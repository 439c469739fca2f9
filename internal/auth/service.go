// Copyright (c) 2026 Cobalt. All rights reserved.

// Token rotation engine and authentication use cases.
//
// # Architecture
//
// The service orchestrates domain entities and talks to repositories through
// interfaces. It is technology-agnostic: no HTTP, no SQL, no signing-library
// types cross this boundary.
//
// # State Machine
//
// A refresh-token chain moves through these states:
//
//	Active          — valid, not yet exchanged
//	Rotated         — revoked because a newer token in the family was issued
//	RevokedExplicit — logged out
//	RevokedReuse    — revoked because a rotated token was replayed (theft)
//	Expired         — terminal, time-based, detected lazily at lookup
//
// Stored state is just the monotonic revoked flag; the distinction between
// the revoked variants lives in the transition that set the flag, which is
// what the engine logs.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cobalthq/cobalt/internal/platform/apperr"
	"github.com/cobalthq/cobalt/internal/platform/constants"
	"github.com/cobalthq/cobalt/internal/platform/ctxutil"
	"github.com/cobalthq/cobalt/internal/platform/sec"
	"github.com/cobalthq/cobalt/internal/platform/validate"
	"github.com/cobalthq/cobalt/pkg/uuid"
)

// genericCredentialMessage is the single message for every login failure.
// Unknown email, wrong password, and deactivated account are never
// distinguished to the client.
const genericCredentialMessage = "Invalid login credentials"

// genericRefreshMessage covers every refresh rejection: unknown, expired,
// revoked, and reused tokens all read the same from outside.
const genericRefreshMessage = "Invalid or expired refresh token"

// TokenProvider defines the contract for minting signed tokens.
// Satisfied by [sec.TokenCodec].
type TokenProvider interface {
	Encode(identity sec.Identity, kind sec.TokenKind, timeToLive time.Duration) (string, error)
}

// PasswordHasher defines the contract for credential hashing and policy.
// Satisfied by [sec.PasswordService].
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Verify(ctx context.Context, password, encodedHash string) bool
	NeedsRehash(encodedHash string) bool
	ValidateStrength(password string) (bool, []string)
}

// TokenPair is the credential bundle returned to a successfully
// authenticated client.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// Service implements the token-lifecycle use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, rotation,
// or reuse-detection logic must be reviewed by the security team.
type Service struct {
	userRepository  UserRepository
	tokenRepository RefreshTokenRepository
	resetTokens     ResetTokenRepository
	tokenProvider   TokenProvider
	passwords       PasswordHasher
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
}

// NewService constructs the auth [Service] with its dependencies.
func NewService(
	userRepo UserRepository,
	tokenRepo RefreshTokenRepository,
	resetTokens ResetTokenRepository,
	tokenProv TokenProvider,
	passwords PasswordHasher,
	accessTokenTTL time.Duration,
	refreshTokenTTL time.Duration,
) *Service {
	return &Service{
		userRepository:  userRepo,
		tokenRepository: tokenRepo,
		resetTokens:     resetTokens,
		tokenProvider:   tokenProv,
		passwords:       passwords,
		accessTokenTTL:  accessTokenTTL,
		refreshTokenTTL: refreshTokenTTL,
	}
}

// RegisterInput holds the data required to enroll a new account.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Register validates, hashes, and persists a brand new user account, then
// issues its first token pair.
//
// # Parameters
//   - ctx: Context for the database operation.
//   - input: The user-provided registration details.
//
// # Returns
//   - The created [*User] and its initial [*TokenPair].
//   - Returns [apperr.ValidationError] (422) listing every violated
//     password rule, or [apperr.Conflict] (409) if the email is taken.
//
// # Business Rules
//   - Emails must be unique.
//   - Default role is always 'user'.
//   - New accounts start active.
func (service *Service) Register(ctx context.Context, input RegisterInput) (*User, *TokenPair, error) {
	// ── 1. Password Policy ────────────────────────────────────────────────

	// Every violated rule is reported, not just the first.
	if ok, violations := service.passwords.ValidateStrength(input.Password); !ok {
		v := &validate.Validator{}
		v.Violations("password", violations)
		return nil, nil, v.Err()
	}

	// ── 2. Uniqueness Check ───────────────────────────────────────────────

	// Fast-fail on duplicate email. The unique index on users.account is the
	// real guard; this check only produces a friendlier error path.
	if _, err := service.userRepository.FindByEmail(ctx, input.Email); err == nil {
		return nil, nil, apperr.Conflict("Email is already registered")
	}

	// ── 3. Security ───────────────────────────────────────────────────────

	hashedPassword, err := service.passwords.Hash(ctx, input.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	// ── 4. Entity Construction & Persistence ──────────────────────────────

	user := &User{
		ID:           uuid.New(), // Time-sortable ID to prevent PG index fragmentation.
		Email:        input.Email,
		PasswordHash: hashedPassword,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         sec.RoleUser, // Rule: default role is always User
		IsActive:     true,
	}

	if err := service.userRepository.Create(ctx, user); err != nil {
		return nil, nil, err
	}

	// ── 5. First Token Pair ───────────────────────────────────────────────

	pair, err := service.issuePair(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	return user, pair, nil
}

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Email    string
	Password string
}

// Login validates user credentials and issues a fresh token pair.
//
// # Parameters
//   - ctx: Context for the database operation.
//   - input: Contains Email and plain-text Password.
//
// # Returns
//   - The authenticated [*User] and a new [*TokenPair].
//   - Returns [apperr.Unauthorized] with a single generic message on any
//     credential failure.
//
// # Flow
//  1. Lookup user by email.
//  2. Verify password against the stored Argon2id credential.
//  3. Transparently upgrade the stored hash if cost parameters changed.
//  4. Issue an access/refresh pair in a brand-new token family.
func (service *Service) Login(ctx context.Context, input LoginInput) (*User, *TokenPair, error) {
	// ── 1. Fetch User Profile ─────────────────────────────────────────────

	user, err := service.userRepository.FindByEmail(ctx, input.Email)
	if err != nil {
		// Generic message to prevent email enumeration attacks.
		return nil, nil, apperr.Unauthorized(genericCredentialMessage)
	}

	// ── 2. Security Verification ──────────────────────────────────────────

	if !service.passwords.Verify(ctx, input.Password, user.PasswordHash) {
		return nil, nil, apperr.Unauthorized(genericCredentialMessage)
	}

	// A deactivated account verifies fine but gets the same generic answer.
	if !user.IsActive {
		return nil, nil, apperr.Unauthorized(genericCredentialMessage)
	}

	// ── 3. Online Credential Upgrade ──────────────────────────────────────

	// If the configured Argon2id cost parameters have been raised since this
	// hash was stored, re-hash now while we hold the plain text. Best
	// effort: a failure here must never block a valid login.
	if service.passwords.NeedsRehash(user.PasswordHash) {
		if upgraded, hashErr := service.passwords.Hash(ctx, input.Password); hashErr == nil {
			if updateErr := service.userRepository.UpdatePassword(ctx, user.ID, upgraded); updateErr != nil {
				ctxutil.GetLogger(ctx).WarnContext(ctx, "credential_upgrade_failed",
					slog.String("user_id", user.ID),
					slog.Any("error", updateErr),
				)
			}
		}
	}

	// ── 4. Token Issuance ─────────────────────────────────────────────────

	pair, err := service.issuePair(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	return user, pair, nil
}

// issuePair mints an access/refresh pair and persists the refresh record in
// a brand-new token family. This is the only path that creates a family.
func (service *Service) issuePair(ctx context.Context, user *User) (*TokenPair, error) {
	identity := user.Identity()

	// Access tokens are short-lived to reduce the impact window if leaked.
	accessToken, err := service.tokenProvider.Encode(identity, sec.TokenKindAccess, service.accessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("auth_service_access_token_failed: %w", err)
	}

	// The refresh token is signed too, but the server will never decode it:
	// on presentation only its hash is compared against the store.
	refreshToken, err := service.tokenProvider.Encode(identity, sec.TokenKindRefresh, service.refreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_token_failed: %w", err)
	}

	record := &RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: sec.HashToken(refreshToken),
		FamilyID:  uuid.New(),
		ExpiresAt: time.Now().Add(service.refreshTokenTTL),
		IsRevoked: false,
	}

	if err := service.tokenRepository.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("auth_service_token_record_failed: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
	}, nil
}

/*
Refresh implements one step of the rotation state machine.

Description: Exchanges a valid refresh token for a new access/refresh pair in
the same family, retiring the presented token. Presenting an already-revoked
token is treated as reuse: the entire family is revoked before the generic
Unauthorized is returned.

Parameters:
  - ctx: context.Context
  - rawRefreshToken: string (opaque to the server; only its hash is used)

Returns:
  - *User: Owner of the chain
  - *TokenPair: Replacement pair, same family
  - error: apperr.Unauthorized on any rejection; wrapped store errors otherwise
*/
func (service *Service) Refresh(ctx context.Context, rawRefreshToken string) (*User, *TokenPair, error) {
	logger := ctxutil.GetLogger(ctx)

	// ── 1. Lookup ─────────────────────────────────────────────────────────

	record, err := service.tokenRepository.FindByHash(ctx, sec.HashToken(rawRefreshToken))
	if err != nil {
		// Never existed, or purged by the maintenance sweep.
		return nil, nil, apperr.Unauthorized(genericRefreshMessage)
	}

	// ── 2. Expiry (lazy, exclusive comparison) ────────────────────────────

	if record.Expired(time.Now()) {
		return nil, nil, apperr.Unauthorized(genericRefreshMessage)
	}

	// ── 3. Reuse Detection ────────────────────────────────────────────────

	// A revoked token being presented again means the legitimate client
	// already rotated it — someone is replaying a captured token. Kill every
	// descendant of the original login before answering.
	if record.IsRevoked {
		if err := service.punishFamily(ctx, record, "replayed_revoked_token"); err != nil {
			return nil, nil, err
		}
		return nil, nil, apperr.Unauthorized(genericRefreshMessage)
	}

	// ── 4. Owner Check ────────────────────────────────────────────────────

	user, err := service.userRepository.FindByID(ctx, record.UserID)
	if err != nil || !user.IsActive {
		return nil, nil, apperr.Unauthorized(genericRefreshMessage)
	}

	// ── 5. Mint Successor ─────────────────────────────────────────────────

	identity := user.Identity()

	accessToken, err := service.tokenProvider.Encode(identity, sec.TokenKindAccess, service.accessTokenTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("auth_service_refresh_access_token_failed: %w", err)
	}

	newRefreshToken, err := service.tokenProvider.Encode(identity, sec.TokenKindRefresh, service.refreshTokenTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("auth_service_refresh_mint_failed: %w", err)
	}

	successor := &RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: sec.HashToken(newRefreshToken),
		FamilyID:  record.FamilyID, // Rotation stays within the family.
		ExpiresAt: time.Now().Add(service.refreshTokenTTL),
		IsRevoked: false,
	}

	// ── 6. Atomic Rotation ────────────────────────────────────────────────

	rotated, err := service.tokenRepository.Rotate(ctx, record.ID, successor)
	if err != nil {
		return nil, nil, fmt.Errorf("auth_service_rotate_failed: %w", err)
	}

	// Losing the conditional write means a concurrent refresh already
	// rotated this record. For the loser that is indistinguishable from
	// replaying a rotated token, so the same family lockout applies.
	if !rotated {
		if err := service.punishFamily(ctx, record, "lost_rotation_race"); err != nil {
			return nil, nil, err
		}
		return nil, nil, apperr.Unauthorized(genericRefreshMessage)
	}

	logger.InfoContext(ctx, "refresh_token_rotated",
		slog.String("user_id", user.ID),
		slog.String("family_id", record.FamilyID),
	)

	return user, &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		TokenType:    "Bearer",
	}, nil
}

// punishFamily revokes every token descended from the record's original
// login. The full revocation must complete before the caller returns its
// Unauthorized — reuse handling is security behavior, not an error path.
func (service *Service) punishFamily(ctx context.Context, record *RefreshToken, reason string) error {
	revoked, err := service.tokenRepository.RevokeFamily(ctx, record.FamilyID)
	if err != nil {
		return fmt.Errorf("auth_service_family_revocation_failed: %w", err)
	}

	ctxutil.GetLogger(ctx).WarnContext(ctx, "refresh_token_reuse_detected",
		slog.String("reason", reason),
		slog.String("user_id", record.UserID),
		slog.String("family_id", record.FamilyID),
		slog.Int64("tokens_revoked", revoked),
	)

	return nil
}

// Logout permanently revokes the presented refresh token.
//
// Idempotent by design: revoking an unknown or already-revoked token is not
// an error, so the endpoint leaks no existence information.
func (service *Service) Logout(ctx context.Context, rawRefreshToken string) error {
	record, err := service.tokenRepository.FindByHash(ctx, sec.HashToken(rawRefreshToken))
	if err != nil {
		return nil
	}

	if record.IsRevoked {
		return nil
	}

	if err := service.tokenRepository.Revoke(ctx, record.ID); err != nil {
		return fmt.Errorf("auth_service_logout_failed: %w", err)
	}

	return nil
}

// LogoutAll revokes every live refresh token owned by the user and returns
// the number of tokens revoked.
func (service *Service) LogoutAll(ctx context.Context, userID string) (int64, error) {
	revoked, err := service.tokenRepository.RevokeAllForUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("auth_service_logout_all_failed: %w", err)
	}

	ctxutil.GetLogger(ctx).InfoContext(ctx, "all_sessions_revoked",
		slog.String("user_id", userID),
		slog.Int64("tokens_revoked", revoked),
	)

	return revoked, nil
}

// ForgotPassword issues a volatile reset token for the account, if any.
//
// The outcome is identical for known and unknown emails; only the server
// logs reveal whether a token was actually issued.
func (service *Service) ForgotPassword(ctx context.Context, email string) error {
	logger := ctxutil.GetLogger(ctx)

	user, err := service.userRepository.FindByEmail(ctx, email)
	if err != nil {
		// Silently succeed so the endpoint cannot be used for enumeration.
		logger.InfoContext(ctx, "password_reset_requested_unknown_email")
		return nil
	}

	token, err := sec.GenerateSecureToken(constants.ResetTokenLength)
	if err != nil {
		return fmt.Errorf("auth_service_reset_token_failed: %w", err)
	}

	if err := service.resetTokens.Set(ctx, token, user.ID, constants.ResetTokenTTL); err != nil {
		return fmt.Errorf("auth_service_reset_token_store_failed: %w", err)
	}

	// TODO: hand the token to the mailer once the notification service lands.
	logger.InfoContext(ctx, "password_reset_token_issued",
		slog.String("user_id", user.ID),
	)

	return nil
}

// ResetPassword consumes a reset token and replaces the account credential.
//
// On success every live refresh token of the user is revoked: a password
// reset is assumed to be a response to compromise.
func (service *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	// ── 1. Resolve Token ──────────────────────────────────────────────────

	userID, err := service.resetTokens.Get(ctx, token)
	if err != nil {
		return apperr.Unauthorized("Invalid or expired reset token")
	}

	// ── 2. Password Policy ────────────────────────────────────────────────

	if ok, violations := service.passwords.ValidateStrength(newPassword); !ok {
		v := &validate.Validator{}
		v.Violations("new_password", violations)
		return v.Err()
	}

	// ── 3. Replace Credential ─────────────────────────────────────────────

	hashedPassword, err := service.passwords.Hash(ctx, newPassword)
	if err != nil {
		return fmt.Errorf("auth_service_reset_hash_failed: %w", err)
	}

	if err := service.userRepository.UpdatePassword(ctx, userID, hashedPassword); err != nil {
		return fmt.Errorf("auth_service_reset_update_failed: %w", err)
	}

	// ── 4. Cleanup & Session Invalidation ─────────────────────────────────

	// Single-use: the token must never work twice.
	if err := service.resetTokens.Delete(ctx, token); err != nil {
		ctxutil.GetLogger(ctx).WarnContext(ctx, "reset_token_delete_failed",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}

	if _, err := service.LogoutAll(ctx, userID); err != nil {
		return err
	}

	return nil
}
