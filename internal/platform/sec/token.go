// Copyright (c) 2026 Cobalt. All rights reserved.

package sec

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// # Opaque Tokens
//
// Password-reset tokens are opaque random strings with no embedded claims;
// their authority lives entirely server-side. Refresh tokens carry a signed
// payload on the wire but are treated as opaque here too: the verifier never
// decodes them, it only hashes the raw bytes and compares against the store,
// because a self-contained signed claim cannot be revoked without state.

// GenerateSecureToken returns a URL-safe random token of byteLength entropy bytes.
func GenerateSecureToken(byteLength int) (string, error) {
	raw := make([]byte, byteLength)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("sec: failed to generate secure token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// HashToken computes the hex-encoded SHA-256 digest of a raw token string.
//
// The digest is what gets stored; a database dump therefore never yields a
// usable refresh token.
func HashToken(rawToken string) string {
	digest := sha256.Sum256([]byte(rawToken))
	return hex.EncodeToString(digest[:])
}
