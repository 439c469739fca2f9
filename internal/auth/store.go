// Copyright (c) 2026 Cobalt. All rights reserved.

package auth

import (
	"context"
	"time"

	"github.com/cobalthq/cobalt/pkg/pagination"
)

// UserRepository defines the data access contract for user accounts.
//
// # Review Process
//
// This interface is placed in a separate file from user.go so entity changes
// and storage-contract changes can be reviewed independently by the team.
//
// # Implementations
//
// The canonical implementation is PostgreSQL (store_postgres.go).
type UserRepository interface {
	// FindByID returns the account with the given ID.
	//
	// Returns [apperr.NotFound] if the account does not exist.
	FindByID(ctx context.Context, id string) (*User, error)

	// FindByEmail returns the account with the given email.
	//
	// Returns [apperr.NotFound] if no user is registered with this email.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// Create persists a brand-new user account to the storage.
	//
	// Returns [apperr.Conflict] if the email unique constraint fails.
	Create(ctx context.Context, user *User) error

	// Update persists changes to mutable profile fields (FirstName, LastName).
	// Passwords must be updated via [UpdatePassword].
	Update(ctx context.Context, user *User) error

	// UpdatePassword replaces only the user's password hash.
	// This is separate from [Update] to prevent accidental overwrites
	// during unrelated profile updates.
	UpdatePassword(ctx context.Context, userID, newHash string) error

	// List returns a page of accounts, newest first, plus the total count.
	List(ctx context.Context, params pagination.Params) ([]*User, int, error)

	// Deactivate clears the account's active flag. An inactive account
	// fails every credential and refresh check; the caller is responsible
	// for revoking outstanding sessions.
	Deactivate(ctx context.Context, userID string) error
}

// RefreshTokenRepository defines the data access contract for refresh-token
// records. It is the single durable source of truth for rotation state; no
// in-memory cache of token validity exists anywhere in the process.
//
// # Uniqueness
//
// Implementations must enforce token-hash uniqueness across all records.
// A hash collision on insert implies forgery or reuse and is rejected.
type RefreshTokenRepository interface {
	// Create persists a new Active record for a fresh login or registration.
	Create(ctx context.Context, token *RefreshToken) error

	// FindByHash returns the record matching the token hash regardless of
	// its revocation or expiry state — the rotation engine needs to observe
	// revoked records to detect reuse.
	//
	// Returns [apperr.NotFound] only if no such record ever existed (or it
	// was purged by the maintenance sweep).
	FindByHash(ctx context.Context, tokenHash string) (*RefreshToken, error)

	// Rotate atomically revokes the old record and inserts its successor in
	// a single transaction. The revocation is conditional on the old record
	// still being un-revoked; if another rotation won the race, Rotate
	// reports rotated=false without inserting anything.
	//
	// This conditional write is the guard that makes two concurrent refresh
	// calls with the same raw token resolve to exactly one winner.
	Rotate(ctx context.Context, oldID string, successor *RefreshToken) (rotated bool, err error)

	// Revoke marks a single record as revoked. Revoking an already-revoked
	// record is a no-op, not an error.
	Revoke(ctx context.Context, id string) error

	// RevokeFamily revokes every non-revoked record in the family and
	// returns the number of records affected. All-or-nothing: a partial
	// failure surfaces as an error, never as a truncated count.
	RevokeFamily(ctx context.Context, familyID string) (int64, error)

	// RevokeAllForUser revokes every non-revoked record owned by the user
	// and returns the count for observability ("logout all").
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)

	// DeleteExpired physically removes records whose ExpiresAt is in the
	// past. Called by the periodic maintenance sweep, never on the request
	// path.
	DeleteExpired(ctx context.Context) (int64, error)
}

// ResetTokenRepository defines the contract for storing volatile password
// reset tokens. Backed by Redis, where the store itself enforces the TTL.
type ResetTokenRepository interface {
	// Set stores a reset token associated with a userID for a limited duration.
	Set(ctx context.Context, token string, userID string, ttl time.Duration) error

	// Get retrieves the userID associated with a given reset token.
	Get(ctx context.Context, token string) (string, error)

	// Delete removes a reset token after successful use.
	Delete(ctx context.Context, token string) error
}
