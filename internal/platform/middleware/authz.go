// Copyright (c) 2026 Cobalt. All rights reserved.

package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/cobalthq/cobalt/internal/platform/apperr"
	"github.com/cobalthq/cobalt/internal/platform/constants"
	"github.com/cobalthq/cobalt/internal/platform/ctxutil"
	"github.com/cobalthq/cobalt/internal/platform/respond"
	"github.com/cobalthq/cobalt/internal/platform/sec"
)

// # Token Decoding Contract

// TokenDecoder verifies a compact token string of the expected kind.
// Satisfied by [sec.TokenCodec].
type TokenDecoder interface {
	Decode(tokenString string, expectedKind sec.TokenKind) (*sec.AuthClaims, error)
}

// # Authorization Gate

// Gate holds the token decoder shared by the authentication middlewares.
//
// Failure responses are deliberately generic: the caller learns that the
// credential was rejected, never WHY (missing vs malformed vs forged vs
// expired). The specific cause is logged server-side instead.
type Gate struct {
	decoder TokenDecoder
}

// NewGate constructs the authorization gate around a token decoder.
func NewGate(decoder TokenDecoder) *Gate {
	return &Gate{decoder: decoder}
}

/*
Authenticate requires a valid access token on every request it wraps.

Description: Extracts the bearer credential from the Authorization header,
verifies it as an access token, and injects the resulting claims into the
request context. Any failure (missing header, malformed scheme, invalid or
expired token, refresh token presented as access) yields 401 with an
identical generic message.

Returns:
  - func(http.Handler) http.Handler: Middleware
*/
func (gate *Gate) Authenticate() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			claims, reason := gate.resolveClaims(request)
			if claims == nil {
				logger := ctxutil.GetLogger(request.Context())
				logger.WarnContext(request.Context(), "auth_rejected",
					slog.String("reason", reason),
					slog.String("path", request.URL.Path),
				)
				respond.Error(writer, request, apperr.Unauthorized("Invalid or expired token"))
				return
			}

			ctx := ctxutil.WithClaims(request.Context(), claims)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

/*
AuthenticateOptional resolves the caller's identity when possible and
proceeds anonymously otherwise.

Description: Identical extraction and verification to Authenticate, but a
failed or absent credential never blocks the request; downstream handlers
observe a nil claim set. Used by endpoints whose response varies for
authenticated callers without requiring authentication.

Returns:
  - func(http.Handler) http.Handler: Middleware
*/
func (gate *Gate) AuthenticateOptional() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			claims, _ := gate.resolveClaims(request)
			if claims == nil {
				next.ServeHTTP(writer, request)
				return
			}

			ctx := ctxutil.WithClaims(request.Context(), claims)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// resolveClaims extracts and verifies the bearer credential.
//
// The Authorization value must split into exactly two whitespace-separated
// parts with a case-insensitive "Bearer" scheme. On rejection it returns a
// nil claim set plus an internal reason string for logging.
func (gate *Gate) resolveClaims(request *http.Request) (*sec.AuthClaims, string) {
	header := request.Header.Get(constants.HeaderAuthorization)
	if header == "" {
		return nil, "missing_header"
	}

	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, "malformed_header"
	}

	claims, err := gate.decoder.Decode(parts[1], sec.TokenKindAccess)
	if err != nil {
		if err == sec.ErrTokenExpired {
			return nil, "token_expired"
		}
		return nil, "token_invalid"
	}

	return claims, ""
}

// # Role & Permission Guards

/*
RequirePermission allows only callers whose claim set carries the permission.

Description: Must be mounted AFTER Authenticate. A super admin bypasses the
permission check entirely. An unauthenticated request yields 401; an
authenticated request lacking the permission yields 403.

Parameters:
  - permission: string (e.g. sec.PermItemsWrite)

Returns:
  - func(http.Handler) http.Handler: Middleware
*/
func RequirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			claims := ctxutil.GetClaims(request.Context())
			if claims == nil {
				respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
				return
			}

			if claims.HasPermission(permission) {
				next.ServeHTTP(writer, request)
				return
			}

			respond.Error(writer, request, apperr.Forbidden("Insufficient permissions"))
		})
	}
}

// RequireRole allows only callers holding one of the listed roles.
// A super admin always passes. Mount AFTER Authenticate.
func RequireRole(roles ...sec.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			claims := ctxutil.GetClaims(request.Context())
			if claims == nil {
				respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
				return
			}

			if claims.IsSuperAdmin {
				next.ServeHTTP(writer, request)
				return
			}

			for _, role := range roles {
				if claims.Role == role {
					next.ServeHTTP(writer, request)
					return
				}
			}

			respond.Error(writer, request, apperr.Forbidden("Insufficient role"))
		})
	}
}
