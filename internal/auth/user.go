// Copyright (c) 2026 Cobalt. All rights reserved.

// Package auth implements the authentication and token-lifecycle core.
//
// # Architecture
//
// Entities in this file represent the "Truth" of the subsystem. They have no
// dependencies on outer layers (databases, HTTP, signing libraries), which
// keeps the lifecycle rules testable with plain in-memory fakes.
package auth

import (
	"time"

	"github.com/cobalthq/cobalt/internal/platform/sec"
)

// User represents a registered account.
//
// # Rules
//   - Email is unique and validated at the boundary.
//   - PasswordHash is produced exclusively by [sec.PasswordService]; it is
//     replaced wholesale on password change, never patched in place.
//   - IsActive gates token issuance: a deactivated account can hold no live
//     credentials.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Explicitly omitted from JSON for security.
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Role         sec.Role  `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Identity projects the user into the minimal shape the token codec needs.
func (u *User) Identity() sec.Identity {
	return sec.Identity{
		UserID: u.ID,
		Email:  u.Email,
		Role:   u.Role,
	}
}

// RefreshToken is the durable record tracking one link of a rotation chain.
//
// # Security Concept
//
// Access tokens are stateless and cannot be revoked before they expire. To
// mitigate this, Cobalt pairs short-lived access tokens with long-lived
// refresh tokens tracked here. Only a one-way hash of the raw token is
// stored; the raw string exists solely in the client's hands.
//
// # Token Families
//
// FamilyID is shared by every token descended from one original login
// through successive rotations. Presenting an already-rotated token is a
// theft signal, and the response is to revoke the whole family.
type RefreshToken struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	TokenHash string     `json:"-"` // Hashed value of the refresh token. Omitted for security.
	FamilyID  string     `json:"family_id"`
	ExpiresAt time.Time  `json:"expires_at"`
	IsRevoked bool       `json:"is_revoked"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Expired reports whether the record's lifetime has strictly passed.
//
// The comparison is exclusive: a token is live at exactly ExpiresAt.
func (t *RefreshToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Valid reports whether the record can still be exchanged: not expired and
// not revoked. Revocation is monotonic, so false is terminal.
func (t *RefreshToken) Valid(now time.Time) bool {
	return !t.IsRevoked && !t.Expired(now)
}
