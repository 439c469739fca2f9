// Copyright (c) 2026 Cobalt. All rights reserved.

// PostgreSQL implementations of the auth storage contracts.
//
// # Architecture
//
// Repositories here are strictly separated from domain logic. They implement
// the interfaces in store.go using the [pgxpool.Pool] connection manager.
//
// # Error Mapping
//
// Storage-specific errors (like pgx.ErrNoRows) are mapped to domain-friendly
// [apperr.AppError] types to avoid leaking storage implementation details.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cobalthq/cobalt/internal/platform/apperr"
	"github.com/cobalthq/cobalt/internal/platform/dberr"
	"github.com/cobalthq/cobalt/pkg/pagination"
)

// PostgresUserRepository implements the UserRepository interface using pgx.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record into the users.account table.
//
// # Parameters
//   - ctx: Context for the database operation.
//   - user: The user entity to persist.
func (repository *PostgresUserRepository) Create(ctx context.Context, user *User) error {
	const query = `
		INSERT INTO users.account (
			id, email, passwordhash, firstname, lastname, role, isactive, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := repository.pool.Exec(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Role,
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		// Unique-constraint failures on email become client-safe 409s.
		return dberr.Wrap(err, "Email")
	}

	return nil
}

// FindByEmail retrieves a user record by their unique email address.
//
// # Returns
//
// Returns [*User] if found, or [apperr.NotFound] if no account exists.
func (repository *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	const query = `
		SELECT id, email, passwordhash, firstname, lastname, role, isactive, createdat, updatedat
		FROM users.account
		WHERE email = $1`

	return repository.scanOne(ctx, query, email)
}

// FindByID retrieves a user record by their unique ID.
func (repository *PostgresUserRepository) FindByID(ctx context.Context, id string) (*User, error) {
	const query = `
		SELECT id, email, passwordhash, firstname, lastname, role, isactive, createdat, updatedat
		FROM users.account
		WHERE id = $1`

	return repository.scanOne(ctx, query, id)
}

// scanOne executes a single-row account query and maps the result.
func (repository *PostgresUserRepository) scanOne(ctx context.Context, query string, arg any) (*User, error) {
	user := &User{}
	err := repository.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("postgres_user_repo_find_failed: %w", err)
	}

	return user, nil
}

// Update persists changes to a user's mutable profile fields.
func (repository *PostgresUserRepository) Update(ctx context.Context, user *User) error {
	const query = `
		UPDATE users.account
		SET firstname = $2, lastname = $3, updatedat = $4
		WHERE id = $1`

	user.UpdatedAt = time.Now()
	_, err := repository.pool.Exec(ctx, query,
		user.ID,
		user.FirstName,
		user.LastName,
		user.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("postgres_user_repo_update_failed: %w", err)
	}

	return nil
}

// UpdatePassword updates only the password hash for a specific user.
func (repository *PostgresUserRepository) UpdatePassword(ctx context.Context, userID, newHash string) error {
	const query = `
		UPDATE users.account
		SET passwordhash = $2, updatedat = $3
		WHERE id = $1`

	_, err := repository.pool.Exec(ctx, query, userID, newHash, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_update_password_failed: %w", err)
	}

	return nil
}

// List returns a page of accounts ordered by creation time, newest first.
func (repository *PostgresUserRepository) List(ctx context.Context, params pagination.Params) ([]*User, int, error) {
	const countQuery = "SELECT COUNT(*) FROM users.account"
	const listQuery = `
		SELECT id, email, passwordhash, firstname, lastname, role, isactive, createdat, updatedat
		FROM users.account
		ORDER BY createdat DESC
		LIMIT $1 OFFSET $2`

	var total int
	if err := repository.pool.QueryRow(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("postgres_user_repo_count_failed: %w", err)
	}

	rows, err := repository.pool.Query(ctx, listQuery, params.Limit, params.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_user_repo_list_failed: %w", err)
	}
	defer rows.Close()

	users := make([]*User, 0, params.Limit)
	for rows.Next() {
		user := &User{}
		if err := rows.Scan(
			&user.ID,
			&user.Email,
			&user.PasswordHash,
			&user.FirstName,
			&user.LastName,
			&user.Role,
			&user.IsActive,
			&user.CreatedAt,
			&user.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("postgres_user_repo_scan_failed: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("postgres_user_repo_rows_failed: %w", err)
	}

	return users, total, nil
}

// Deactivate clears the account's active flag.
func (repository *PostgresUserRepository) Deactivate(ctx context.Context, userID string) error {
	const query = `
		UPDATE users.account
		SET isactive = FALSE, updatedat = $2
		WHERE id = $1`

	tag, err := repository.pool.Exec(ctx, query, userID, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_deactivate_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("User")
	}

	return nil
}

// ── Refresh Token Repository ─────────────────────────────────────────────────

// PostgresRefreshTokenRepository implements the RefreshTokenRepository interface.
type PostgresRefreshTokenRepository struct {
	pool *pgxpool.Pool
}

// NewRefreshTokenRepository creates a new PostgreSQL implementation of RefreshTokenRepository.
func NewRefreshTokenRepository(pool *pgxpool.Pool) *PostgresRefreshTokenRepository {
	return &PostgresRefreshTokenRepository{pool: pool}
}

const insertTokenQuery = `
	INSERT INTO users.refreshtoken (
		id, userid, tokenhash, familyid, expiresat, isrevoked, revokedat, createdat
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// Create persists a new refresh-token record into the users.refreshtoken table.
func (repository *PostgresRefreshTokenRepository) Create(ctx context.Context, token *RefreshToken) error {
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}

	_, err := repository.pool.Exec(ctx, insertTokenQuery,
		token.ID,
		token.UserID,
		token.TokenHash,
		token.FamilyID,
		token.ExpiresAt,
		token.IsRevoked,
		token.RevokedAt,
		token.CreatedAt,
	)

	if err != nil {
		// A tokenhash collision means forgery or a replayed insert, not an
		// ordinary storage failure.
		if dberr.IsUniqueViolation(err) {
			return apperr.Conflict("Refresh token already exists")
		}
		return fmt.Errorf("postgres_token_repo_create_failed: %w", err)
	}

	return nil
}

// FindByHash retrieves a refresh-token record by its unique token hash.
//
// Revoked and expired rows are returned as-is: the rotation engine inspects
// their state to distinguish reuse from ordinary invalidity.
func (repository *PostgresRefreshTokenRepository) FindByHash(ctx context.Context, tokenHash string) (*RefreshToken, error) {
	const query = `
		SELECT id, userid, tokenhash, familyid, expiresat, isrevoked, revokedat, createdat
		FROM users.refreshtoken
		WHERE tokenhash = $1`

	token := &RefreshToken{}
	err := repository.pool.QueryRow(ctx, query, tokenHash).Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.FamilyID,
		&token.ExpiresAt,
		&token.IsRevoked,
		&token.RevokedAt,
		&token.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Refresh token")
		}
		return nil, fmt.Errorf("postgres_token_repo_find_failed: %w", err)
	}

	return token, nil
}

/*
Rotate atomically retires the old record and persists its successor.

Description: Runs inside a single transaction. The revocation UPDATE is
conditional on isrevoked = FALSE; when a concurrent rotation already claimed
the record, zero rows are affected and the transaction rolls back without
inserting the successor. The caller then treats the loss as a reuse signal.

Parameters:
  - ctx: context.Context
  - oldID: string (record being retired)
  - successor: *RefreshToken (new Active record, same family)

Returns:
  - bool: true if this call won the rotation
  - error: Transaction or execution failures
*/
func (repository *PostgresRefreshTokenRepository) Rotate(ctx context.Context, oldID string, successor *RefreshToken) (bool, error) {
	transaction, err := repository.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("postgres_token_repo_rotate_begin_failed: %w", err)
	}
	defer func() { _ = transaction.Rollback(ctx) }()

	const revokeQuery = `
		UPDATE users.refreshtoken
		SET isrevoked = TRUE, revokedat = $2
		WHERE id = $1 AND isrevoked = FALSE`

	tag, err := transaction.Exec(ctx, revokeQuery, oldID, time.Now())
	if err != nil {
		return false, fmt.Errorf("postgres_token_repo_rotate_revoke_failed: %w", err)
	}

	// Zero affected rows: a concurrent rotation or revocation got there first.
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if successor.CreatedAt.IsZero() {
		successor.CreatedAt = time.Now()
	}

	_, err = transaction.Exec(ctx, insertTokenQuery,
		successor.ID,
		successor.UserID,
		successor.TokenHash,
		successor.FamilyID,
		successor.ExpiresAt,
		successor.IsRevoked,
		successor.RevokedAt,
		successor.CreatedAt,
	)
	if err != nil {
		if dberr.IsUniqueViolation(err) {
			return false, apperr.Conflict("Refresh token already exists")
		}
		return false, fmt.Errorf("postgres_token_repo_rotate_insert_failed: %w", err)
	}

	if err := transaction.Commit(ctx); err != nil {
		return false, fmt.Errorf("postgres_token_repo_rotate_commit_failed: %w", err)
	}

	return true, nil
}

// Revoke marks a single refresh-token record as revoked. Idempotent.
func (repository *PostgresRefreshTokenRepository) Revoke(ctx context.Context, id string) error {
	const query = `
		UPDATE users.refreshtoken
		SET isrevoked = TRUE, revokedat = $2
		WHERE id = $1 AND isrevoked = FALSE`

	_, err := repository.pool.Exec(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_token_repo_revoke_failed: %w", err)
	}
	return nil
}

// RevokeFamily revokes every live token in a rotation family.
//
// A single UPDATE statement keeps the operation all-or-nothing.
func (repository *PostgresRefreshTokenRepository) RevokeFamily(ctx context.Context, familyID string) (int64, error) {
	const query = `
		UPDATE users.refreshtoken
		SET isrevoked = TRUE, revokedat = $2
		WHERE familyid = $1 AND isrevoked = FALSE`

	tag, err := repository.pool.Exec(ctx, query, familyID, time.Now())
	if err != nil {
		return 0, fmt.Errorf("postgres_token_repo_revoke_family_failed: %w", err)
	}
	return tag.RowsAffected(), nil
}

// RevokeAllForUser revokes every live token owned by a user ("logout all").
func (repository *PostgresRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	const query = `
		UPDATE users.refreshtoken
		SET isrevoked = TRUE, revokedat = $2
		WHERE userid = $1 AND isrevoked = FALSE`

	tag, err := repository.pool.Exec(ctx, query, userID, time.Now())
	if err != nil {
		return 0, fmt.Errorf("postgres_token_repo_revoke_all_failed: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteExpired permanently removes all records past their expiration date.
func (repository *PostgresRefreshTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	const query = "DELETE FROM users.refreshtoken WHERE expiresat <= NOW()"

	tag, err := repository.pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("postgres_token_repo_delete_expired_failed: %w", err)
	}
	return tag.RowsAffected(), nil
}
