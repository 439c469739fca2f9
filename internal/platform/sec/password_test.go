// Copyright (c) 2026 Cobalt. All rights reserved.

package sec_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cobalthq/cobalt/internal/platform/sec"
)

// testParams uses low costs so the suite stays fast; the algorithm path is
// identical to production.
func testParams() sec.PasswordParams {
	return sec.PasswordParams{
		TimeCost:    1,
		MemoryCost:  1024,
		Parallelism: 1,
		MinLength:   8,
		Workers:     2,
	}
}

/*
TestPasswordService_HashAndVerify covers the fundamental credential
round-trip properties.
*/
func TestPasswordService_HashAndVerify(t *testing.T) {
	service := sec.NewPasswordService(testParams())
	ctx := context.Background()

	hash, err := service.Hash(ctx, "Correct-Horse-7!")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))

	assert.True(t, service.Verify(ctx, "Correct-Horse-7!", hash))
	assert.False(t, service.Verify(ctx, "Wrong-Horse-7!", hash))
}

/*
TestPasswordService_SaltUniqueness verifies that two hashes of the same
password never match byte-for-byte.
*/
func TestPasswordService_SaltUniqueness(t *testing.T) {
	service := sec.NewPasswordService(testParams())
	ctx := context.Background()

	first, err := service.Hash(ctx, "Correct-Horse-7!")
	require.NoError(t, err)
	second, err := service.Hash(ctx, "Correct-Horse-7!")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)

	// Both still verify despite differing encodings.
	assert.True(t, service.Verify(ctx, "Correct-Horse-7!", first))
	assert.True(t, service.Verify(ctx, "Correct-Horse-7!", second))
}

/*
TestPasswordService_Verify_Malformed ensures corrupted stored strings read
as a mismatch, never as an error.
*/
func TestPasswordService_Verify_Malformed(t *testing.T) {
	service := sec.NewPasswordService(testParams())
	ctx := context.Background()

	tests := []struct {
		name    string
		encoded string
	}{
		{"empty", ""},
		{"garbage", "not-a-credential"},
		{"wrong_algorithm", "$bcrypt$v=19$m=1024,t=1,p=1$c2FsdA$ZGlnZXN0"},
		{"truncated", "$argon2id$v=19$m=1024,t=1,p=1"},
		{"bad_base64_salt", "$argon2id$v=19$m=1024,t=1,p=1$!!!$ZGlnZXN0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, service.Verify(ctx, "whatever", tt.encoded))
		})
	}
}

/*
TestPasswordService_NeedsRehash checks the online credential upgrade signal.
*/
func TestPasswordService_NeedsRehash(t *testing.T) {
	oldService := sec.NewPasswordService(testParams())
	ctx := context.Background()

	hash, err := oldService.Hash(ctx, "Correct-Horse-7!")
	require.NoError(t, err)

	// Same parameters: no upgrade needed.
	assert.False(t, oldService.NeedsRehash(hash))

	// Raised time cost: upgrade needed.
	raised := testParams()
	raised.TimeCost = 3
	assert.True(t, sec.NewPasswordService(raised).NeedsRehash(hash))

	// Malformed strings must also be replaced.
	assert.True(t, oldService.NeedsRehash("garbage"))
}

/*
TestPasswordService_ValidateStrength exercises the policy checklist: every
violated rule is reported, not just the first.
*/
func TestPasswordService_ValidateStrength(t *testing.T) {
	service := sec.NewPasswordService(testParams())

	tests := []struct {
		name          string
		password      string
		ok            bool
		minViolations int
	}{
		{"all_rules_pass", "Abcdef1!", true, 0},
		{"weak_short_no_classes", "weak", false, 4},
		{"missing_special_only", "Abcdefg1", false, 1},
		{"missing_upper_and_digit", "abcdefg!", false, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, violations := service.ValidateStrength(tt.password)
			assert.Equal(t, tt.ok, ok)
			assert.GreaterOrEqual(t, len(violations), tt.minViolations)
			if tt.ok {
				assert.Empty(t, violations)
			}
		})
	}

	// Deny-listed passwords are rejected even when shaped acceptably;
	// matching is case-insensitive.
	t.Run("common_password", func(t *testing.T) {
		ok, violations := service.ValidateStrength("Password123")
		assert.False(t, ok)
		assert.Contains(t, violations, "Password is too common")
	})
}

/*
TestGenerateTempPassword verifies length, uniqueness, and the error path.
*/
func TestGenerateTempPassword(t *testing.T) {
	first, err := sec.GenerateTempPassword(16)
	require.NoError(t, err)
	assert.Len(t, first, 16)

	second, err := sec.GenerateTempPassword(16)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	_, err = sec.GenerateTempPassword(0)
	assert.Error(t, err)
}
