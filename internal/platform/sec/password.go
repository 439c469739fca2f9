// Copyright (c) 2026 Cobalt. All rights reserved.

package sec

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/crypto/argon2"
)

// # Hashing Parameters

const (
	// argon2Algorithm is the PHC algorithm identifier embedded in every hash.
	argon2Algorithm = "argon2id"

	// argon2SaltLength is the fixed salt length in bytes.
	argon2SaltLength = 16

	// argon2KeyLength is the fixed digest length in bytes.
	argon2KeyLength = 32
)

// ErrHashingFailure is returned when the hashing primitive itself fails
// (entropy exhaustion, resource limits). Mismatches are NOT errors.
var ErrHashingFailure = errors.New("password hashing failure")

// tempPasswordAlphabet is the mixed alphabet for administrative resets.
const tempPasswordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*"

// commonPasswords is a small deny-list of passwords rejected outright.
var commonPasswords = map[string]struct{}{
	"password":    {},
	"123456":      {},
	"password123": {},
	"admin":       {},
	"qwerty":      {},
}

// # Password Service

// PasswordParams holds the Argon2id cost configuration.
//
// Cost parameters bound worst-case hashing latency by configuration rather
// than by input.
type PasswordParams struct {
	TimeCost    uint32
	MemoryCost  uint32
	Parallelism uint8

	// MinLength is the minimum accepted password length for strength checks.
	MinLength int

	// Workers bounds concurrent hash computations. Argon2 is deliberately
	// CPU- and memory-hard; an unbounded number of concurrent logins would
	// starve every other request in the process.
	Workers int
}

// PasswordService performs one-way password hashing and verification using
// Argon2id with per-call random salts.
//
// # Concurrency
//
// All hash computations are funneled through a bounded semaphore so the
// service can be shared safely across request goroutines.
type PasswordService struct {
	params    PasswordParams
	semaphore chan struct{}
}

// NewPasswordService constructs a [PasswordService] with the given costs.
func NewPasswordService(params PasswordParams) *PasswordService {
	if params.Workers < 1 {
		params.Workers = 1
	}
	if params.MinLength < 1 {
		params.MinLength = 8
	}
	return &PasswordService{
		params:    params,
		semaphore: make(chan struct{}, params.Workers),
	}
}

// acquire blocks until a hashing slot is free or the context is done.
func (service *PasswordService) acquire(ctx context.Context) error {
	select {
	case service.semaphore <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrHashingFailure, ctx.Err())
	}
}

func (service *PasswordService) release() {
	<-service.semaphore
}

/*
Hash derives an Argon2id credential string from a plain-text password.

Description: Draws a fresh random salt per call, so two hashes of the same
password never match byte-for-byte. The output is a self-describing PHC
string embedding the algorithm, version, costs, salt, and digest.

Parameters:
  - ctx: context.Context (bounds the wait for a hashing slot)
  - password: string

Returns:
  - string: PHC-encoded credential
  - error: ErrHashingFailure on primitive failure
*/
func (service *PasswordService) Hash(ctx context.Context, password string) (string, error) {
	if err := service.acquire(ctx); err != nil {
		return "", err
	}
	defer service.release()

	salt := make([]byte, argon2SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("%w: %v", ErrHashingFailure, err)
	}

	digest := argon2.IDKey(
		[]byte(password),
		salt,
		service.params.TimeCost,
		service.params.MemoryCost,
		service.params.Parallelism,
		argon2KeyLength,
	)

	encoded := fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2Algorithm,
		argon2.Version,
		service.params.MemoryCost,
		service.params.TimeCost,
		service.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	)

	return encoded, nil
}

/*
Verify checks a plain-text password against a stored credential string.

Description: Recomputes the digest using the parameters embedded in the
stored string and compares in constant time. Returns false — never an
error — on mismatch or a malformed stored string, so storage corruption
cannot be distinguished from a wrong password by a caller (or an attacker).

Parameters:
  - ctx: context.Context
  - password: string
  - encodedHash: string

Returns:
  - bool: true iff the password matches
*/
func (service *PasswordService) Verify(ctx context.Context, password, encodedHash string) bool {
	parsed, err := parseCredential(encodedHash)
	if err != nil {
		return false
	}

	if err := service.acquire(ctx); err != nil {
		return false
	}
	defer service.release()

	computed := argon2.IDKey(
		[]byte(password),
		parsed.salt,
		parsed.timeCost,
		parsed.memoryCost,
		parsed.parallelism,
		uint32(len(parsed.digest)),
	)

	return subtle.ConstantTimeCompare(computed, parsed.digest) == 1
}

/*
NeedsRehash reports whether a stored credential uses outdated cost parameters.

Description: Called after a successful Verify to upgrade credentials online
when security parameters are increased. A malformed stored string also
reports true so it gets replaced on the next successful login.
*/
func (service *PasswordService) NeedsRehash(encodedHash string) bool {
	parsed, err := parseCredential(encodedHash)
	if err != nil {
		return true
	}

	return parsed.timeCost != service.params.TimeCost ||
		parsed.memoryCost != service.params.MemoryCost ||
		parsed.parallelism != service.params.Parallelism ||
		len(parsed.digest) != argon2KeyLength
}

/*
ValidateStrength enforces the platform password policy.

Description: Checks minimum length, character-class coverage (upper, lower,
digit, special), and a small deny-list of common passwords. Every violated
rule is returned — not just the first — so clients can present the full
checklist to the user.

Returns:
  - bool: true iff no rules were violated
  - []string: Human-readable violations
*/
func (service *PasswordService) ValidateStrength(password string) (bool, []string) {
	var violations []string

	if len(password) < service.params.MinLength {
		violations = append(violations,
			fmt.Sprintf("Password must be at least %d characters", service.params.MinLength))
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	if !hasUpper {
		violations = append(violations, "Password must contain at least one uppercase letter")
	}
	if !hasLower {
		violations = append(violations, "Password must contain at least one lowercase letter")
	}
	if !hasDigit {
		violations = append(violations, "Password must contain at least one digit")
	}
	if !hasSpecial {
		violations = append(violations, "Password must contain at least one special character")
	}

	if _, found := commonPasswords[strings.ToLower(password)]; found {
		violations = append(violations, "Password is too common")
	}

	return len(violations) == 0, violations
}

// GenerateTempPassword returns a cryptographically secure random password
// from a mixed alphanumeric+symbol alphabet, for administrative resets.
func GenerateTempPassword(length int) (string, error) {
	if length < 1 {
		return "", fmt.Errorf("sec: temp password length must be positive, got %d", length)
	}

	alphabetSize := big.NewInt(int64(len(tempPasswordAlphabet)))
	out := make([]byte, length)

	for i := range out {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrHashingFailure, err)
		}
		out[i] = tempPasswordAlphabet[n.Int64()]
	}

	return string(out), nil
}

// # Credential Parsing

// parsedCredential is the decoded form of a PHC Argon2id string.
type parsedCredential struct {
	memoryCost  uint32
	timeCost    uint32
	parallelism uint8
	salt        []byte
	digest      []byte
}

// parseCredential splits and validates a PHC-format credential string:
//
//	$argon2id$v=19$m=65536,t=2,p=2$<salt>$<digest>
func parseCredential(encodedHash string) (*parsedCredential, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, errors.New("sec: malformed credential string")
	}
	if parts[1] != argon2Algorithm {
		return nil, errors.New("sec: unsupported hashing algorithm")
	}

	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || version != argon2.Version {
		return nil, errors.New("sec: unsupported argon2 version")
	}

	parsed := &parsedCredential{}
	var memory, timeCost uint64
	var parallelism uint64

	for _, pair := range strings.Split(parts[3], ",") {
		key, value, found := strings.Cut(pair, "=")
		if !found {
			return nil, errors.New("sec: malformed cost parameters")
		}
		switch key {
		case "m":
			memory, err = strconv.ParseUint(value, 10, 32)
		case "t":
			timeCost, err = strconv.ParseUint(value, 10, 32)
		case "p":
			parallelism, err = strconv.ParseUint(value, 10, 8)
		default:
			return nil, errors.New("sec: unknown cost parameter")
		}
		if err != nil {
			return nil, errors.New("sec: malformed cost parameters")
		}
	}

	if memory == 0 || timeCost == 0 || parallelism == 0 {
		return nil, errors.New("sec: missing cost parameters")
	}

	parsed.memoryCost = uint32(memory)
	parsed.timeCost = uint32(timeCost)
	parsed.parallelism = uint8(parallelism)

	parsed.salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(parsed.salt) == 0 {
		return nil, errors.New("sec: malformed salt")
	}

	parsed.digest, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(parsed.digest) == 0 {
		return nil, errors.New("sec: malformed digest")
	}

	return parsed, nil
}
