// Copyright (c) 2026 Cobalt. All rights reserved.

package dberr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cobalthq/cobalt/internal/platform/apperr"
	"github.com/cobalthq/cobalt/internal/platform/dberr"
)

func uniqueViolation() error {
	return &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "refreshtoken_tokenhash_key"}
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, dberr.IsUniqueViolation(uniqueViolation()))

	// Detection must survive wrapping, since repositories annotate errors.
	assert.True(t, dberr.IsUniqueViolation(fmt.Errorf("insert failed: %w", uniqueViolation())))

	assert.False(t, dberr.IsUniqueViolation(nil))
	assert.False(t, dberr.IsUniqueViolation(errors.New("connection refused")))
	assert.False(t, dberr.IsUniqueViolation(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}))
	assert.False(t, dberr.IsUniqueViolation(pgx.ErrNoRows))
}

func TestWrap(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{"no_rows", pgx.ErrNoRows, http.StatusNotFound, "User not found"},
		{"unique_violation", uniqueViolation(), http.StatusConflict, "User already exists"},
		{"other", errors.New("connection refused"), http.StatusInternalServerError, "An unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := dberr.Wrap(tt.err, "User")
			appError := apperr.As(wrapped)
			require.NotNil(t, appError)
			assert.Equal(t, tt.wantStatus, appError.HTTPStatus)
			assert.Equal(t, tt.wantMessage, appError.Message)
		})
	}

	assert.NoError(t, dberr.Wrap(nil, "User"))
}
