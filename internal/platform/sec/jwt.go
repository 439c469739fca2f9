// Copyright (c) 2026 Cobalt. All rights reserved.

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. It acts as an Infrastructure service injected into the
// Application layer via small interfaces defined by consumers.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cobalthq/cobalt/pkg/uuid"
)

// # Token Kinds

// TokenKind discriminates access tokens from refresh tokens at the codec
// layer, so a refresh token can never be accepted where an access token is
// required even if a verifier is pointed at the wrong decode path.
type TokenKind string

const (
	// TokenKindAccess marks short-lived, stateless credentials.
	TokenKindAccess TokenKind = "access"

	// TokenKindRefresh marks long-lived credentials tracked server-side.
	TokenKindRefresh TokenKind = "refresh"
)

// # Error Kinds

var (
	// ErrTokenExpired is returned when a token's exp claim has passed.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid is returned for any other rejection: bad signature,
	// malformed payload, or a token-kind mismatch. A token is either fully
	// valid or rejected; no partial-validity state exists.
	ErrTokenInvalid = errors.New("token invalid")
)

// # Claims

// AuthClaims is the payload embedded inside a signed Cobalt token.
//
// It is a fixed-shape immutable value produced only by [TokenCodec.Decode];
// handlers must never construct it ad hoc.
//
// # Why custom claims?
//
// By embedding identity and authorization data directly inside the JWT, the
// authorization middleware can evaluate every protected request WITHOUT a
// database round trip. Access tokens are short-lived precisely because they
// cannot be revoked server-side.
type AuthClaims struct {
	jwt.RegisteredClaims

	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	Permissions  []string  `json:"permissions"`
	IsSuperAdmin bool      `json:"is_super_admin"`
	TokenType    TokenKind `json:"type"`
}

// UserID returns the subject claim: the owning user's id string.
func (c *AuthClaims) UserID() string {
	return c.Subject
}

// HasPermission reports whether the claim set carries the given permission.
// Super admins pass regardless of the minted grant set.
func (c *AuthClaims) HasPermission(permission string) bool {
	if c.IsSuperAdmin {
		return true
	}
	for _, granted := range c.Permissions {
		if granted == permission {
			return true
		}
	}
	return false
}

// # Token Identity Input

// Identity is the minimal user projection the codec needs to mint claims.
type Identity struct {
	UserID string
	Email  string
	Role   Role
}

// # Token Codec

// TokenCodec encodes and decodes signed, expiring claim sets using HS256.
//
// It is stateless and safe for concurrent use.
type TokenCodec struct {
	secret []byte
	issuer string
}

// NewTokenCodec creates a new TokenCodec signing with the given symmetric secret.
func NewTokenCodec(secret, issuer string) *TokenCodec {
	return &TokenCodec{
		secret: []byte(secret),
		issuer: issuer,
	}
}

/*
Encode mints a signed token for the identity.

Description: Embeds issued-at = now and expires-at = now+ttl, stamps the
token-kind discriminator, and derives the permission set from the role.

Parameters:
  - identity: Identity (user id, email, role)
  - kind: TokenKind ("access" or "refresh")
  - timeToLive: time.Duration

Returns:
  - string: Signed compact JWT
  - error: Signing failures
*/
func (codec *TokenCodec) Encode(identity Identity, kind TokenKind, timeToLive time.Duration) (string, error) {
	currentTime := time.Now()

	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			// Unique per mint: without a jti, two tokens for the same identity
			// issued within one second would be byte-identical, and a rotation
			// successor could collide with the token it replaces.
			ID:        uuid.New(),
			Subject:   identity.UserID,
			Issuer:    codec.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
		},
		Email:        identity.Email,
		Role:         identity.Role,
		Permissions:  identity.Role.Permissions(),
		IsSuperAdmin: identity.Role.IsSuperAdmin(),
		TokenType:    kind,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(codec.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, nil
}

/*
Decode verifies a token string and returns its claims.

Description: Enforces signature validity, expiry, and the expected
token-kind marker. Error kinds are matched explicitly by callers instead of
relying on the signing library's error hierarchy.

Parameters:
  - tokenString: string
  - expectedKind: TokenKind

Returns:
  - *AuthClaims: Fully validated claim set
  - error: ErrTokenExpired or ErrTokenInvalid
*/
func (codec *TokenCodec) Decode(tokenString string, expectedKind TokenKind) (*AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return codec.secret, nil
	})

	if err != nil {
		// Expiry is surfaced distinctly so callers can log the specific
		// cause; everything else collapses into ErrTokenInvalid.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	// Kind mismatch is a hard rejection, not a fallback.
	if claims.TokenType != expectedKind {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
