// Copyright (c) 2026 Cobalt. All rights reserved.

package sec_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cobalthq/cobalt/internal/platform/sec"
)

const testSecret = "test-secret-key-needs-32-bytes!!"

func testIdentity() sec.Identity {
	return sec.Identity{
		UserID: "0192aef5-7b3a-7cc0-8a7e-2f1d3c4b5a69",
		Email:  "dev@cobalt.dev",
		Role:   sec.RoleAdmin,
	}
}

/*
TestTokenCodec_RoundTrip verifies that a minted access token decodes back to
the original identity with derived authorization data.
*/
func TestTokenCodec_RoundTrip(t *testing.T) {
	codec := sec.NewTokenCodec(testSecret, "cobalt.dev")
	identity := testIdentity()

	token, err := codec.Encode(identity, sec.TokenKindAccess, 15*time.Minute)
	require.NoError(t, err)

	claims, err := codec.Decode(token, sec.TokenKindAccess)
	require.NoError(t, err)

	assert.Equal(t, identity.UserID, claims.UserID())
	assert.Equal(t, identity.Email, claims.Email)
	assert.Equal(t, sec.RoleAdmin, claims.Role)
	assert.Equal(t, sec.RoleAdmin.Permissions(), claims.Permissions)
	assert.False(t, claims.IsSuperAdmin)
	assert.Equal(t, sec.TokenKindAccess, claims.TokenType)
	assert.Equal(t, "cobalt.dev", claims.Issuer)
}

/*
TestTokenCodec_KindMismatch ensures a refresh token can never pass where an
access token is required, and vice versa.
*/
func TestTokenCodec_KindMismatch(t *testing.T) {
	codec := sec.NewTokenCodec(testSecret, "cobalt.dev")

	accessToken, err := codec.Encode(testIdentity(), sec.TokenKindAccess, time.Minute)
	require.NoError(t, err)
	refreshToken, err := codec.Encode(testIdentity(), sec.TokenKindRefresh, time.Minute)
	require.NoError(t, err)

	_, err = codec.Decode(accessToken, sec.TokenKindRefresh)
	assert.ErrorIs(t, err, sec.ErrTokenInvalid)

	_, err = codec.Decode(refreshToken, sec.TokenKindAccess)
	assert.ErrorIs(t, err, sec.ErrTokenInvalid)
}

/*
TestTokenCodec_Expired verifies the distinct expiry error kind.
*/
func TestTokenCodec_Expired(t *testing.T) {
	codec := sec.NewTokenCodec(testSecret, "cobalt.dev")

	// Negative TTL mints an already-expired token.
	token, err := codec.Encode(testIdentity(), sec.TokenKindAccess, -time.Second)
	require.NoError(t, err)

	_, err = codec.Decode(token, sec.TokenKindAccess)
	assert.ErrorIs(t, err, sec.ErrTokenExpired)
}

/*
TestTokenCodec_Invalid covers forged and malformed tokens: everything that
is not expiry collapses into the single invalid kind.
*/
func TestTokenCodec_Invalid(t *testing.T) {
	codec := sec.NewTokenCodec(testSecret, "cobalt.dev")
	forger := sec.NewTokenCodec("attacker-controlled-32-byte-key!", "cobalt.dev")

	forged, err := forger.Encode(testIdentity(), sec.TokenKindAccess, time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"forged_signature", forged},
		{"garbage", "not.a.token"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Decode(tt.token, sec.TokenKindAccess)
			assert.ErrorIs(t, err, sec.ErrTokenInvalid)
		})
	}
}

/*
TestRole_Permissions pins the role/permission grants the gate relies on.
*/
func TestRole_Permissions(t *testing.T) {
	assert.True(t, sec.RoleSuperAdmin.IsSuperAdmin())
	assert.False(t, sec.RoleAdmin.IsSuperAdmin())

	assert.Contains(t, sec.RoleUser.Permissions(), sec.PermItemsRead)
	assert.Contains(t, sec.RoleUser.Permissions(), sec.PermItemsWrite)
	assert.NotContains(t, sec.RoleUser.Permissions(), sec.PermUsersManage)
	assert.Contains(t, sec.RoleAdmin.Permissions(), sec.PermUsersManage)

	assert.False(t, sec.Role("intruder").IsValid())
	assert.True(t, sec.RoleUser.IsValid())

	// Permissions returns a copy; mutating it must not poison the table.
	granted := sec.RoleUser.Permissions()
	granted[0] = "items:nuke"
	assert.NotContains(t, sec.RoleUser.Permissions(), "items:nuke")
}

/*
TestHashToken pins the digest behavior the refresh-token store depends on.
*/
func TestHashToken(t *testing.T) {
	first := sec.HashToken("some-raw-token")
	second := sec.HashToken("some-raw-token")
	other := sec.HashToken("other-raw-token")

	assert.Equal(t, first, second)
	assert.NotEqual(t, first, other)
	assert.Len(t, first, 64) // hex-encoded SHA-256

	raw, err := sec.GenerateSecureToken(32)
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
	assert.NotContains(t, raw, "=")
}
