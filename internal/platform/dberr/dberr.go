// Copyright (c) 2026 Cobalt. All rights reserved.

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
//
// It hides internal database details from the client while classifying the
// error type, so storage-specific failures never leak into API responses.
package dberr

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cobalthq/cobalt/internal/platform/apperr"
)

// Wrap inspects a database error and wraps it into a meaningful [apperr.AppError].
//
// Mapping:
//   - pgx.ErrNoRows → 404 NotFound for the named resource
//   - SQLSTATE 23505 (unique_violation) → 409 Conflict
//   - anything else → 500 Internal (cause retained for logging)
func Wrap(err error, resource string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(resource)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return apperr.Conflict(resource + " already exists")
	}

	return apperr.Internal(err)
}

// IsUniqueViolation reports whether err is a Postgres unique-constraint failure.
//
// The refresh-token store uses this to distinguish a token-hash collision
// (forgery signal) from ordinary connectivity errors.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
