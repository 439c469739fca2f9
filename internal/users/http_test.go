package users_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cobalthq/cobalt/internal/auth"
	"github.com/cobalthq/cobalt/internal/platform/apperr"
	"github.com/cobalthq/cobalt/internal/platform/middleware"
	"github.com/cobalthq/cobalt/internal/platform/sec"
	"github.com/cobalthq/cobalt/internal/users"
	"github.com/cobalthq/cobalt/pkg/pagination"
)

const usersTestSecret = "test-secret-key-needs-32-bytes!!"

type memUserRepo struct {
	byID map[string]*auth.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: make(map[string]*auth.User)}
}

func (r *memUserRepo) FindByID(_ context.Context, id string) (*auth.User, error) {
	user, ok := r.byID[id]
	if !ok {
		return nil, apperr.NotFound("User")
	}
	copied := *user
	return &copied, nil
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	for _, user := range r.byID {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (r *memUserRepo) Create(_ context.Context, user *auth.User) error {
	copied := *user
	r.byID[user.ID] = &copied
	return nil
}

func (r *memUserRepo) Update(_ context.Context, user *auth.User) error {
	stored, ok := r.byID[user.ID]
	if !ok {
		return apperr.NotFound("User")
	}
	stored.FirstName = user.FirstName
	stored.LastName = user.LastName
	return nil
}

func (r *memUserRepo) UpdatePassword(_ context.Context, userID, newHash string) error {
	stored, ok := r.byID[userID]
	if !ok {
		return apperr.NotFound("User")
	}
	stored.PasswordHash = newHash
	return nil
}

func (r *memUserRepo) List(_ context.Context, _ pagination.Params) ([]*auth.User, int, error) {
	all := make([]*auth.User, 0, len(r.byID))
	for _, user := range r.byID {
		copied := *user
		all = append(all, &copied)
	}
	return all, len(all), nil
}

func (r *memUserRepo) Deactivate(_ context.Context, userID string) error {
	stored, ok := r.byID[userID]
	if !ok {
		return apperr.NotFound("User")
	}
	stored.IsActive = false
	return nil
}

// memTokenRepo only tracks live-session counts; the session lifecycle itself
// is covered by the auth package tests.
type memTokenRepo struct {
	live map[string]int64
}

func newMemTokenRepo() *memTokenRepo {
	return &memTokenRepo{live: make(map[string]int64)}
}

func (r *memTokenRepo) Create(_ context.Context, token *auth.RefreshToken) error {
	r.live[token.UserID]++
	return nil
}

func (r *memTokenRepo) FindByHash(_ context.Context, _ string) (*auth.RefreshToken, error) {
	return nil, apperr.NotFound("Refresh token")
}

func (r *memTokenRepo) Rotate(_ context.Context, _ string, successor *auth.RefreshToken) (bool, error) {
	r.live[successor.UserID]++
	return true, nil
}

func (r *memTokenRepo) Revoke(_ context.Context, _ string) error { return nil }

func (r *memTokenRepo) RevokeFamily(_ context.Context, _ string) (int64, error) { return 0, nil }

func (r *memTokenRepo) RevokeAllForUser(_ context.Context, userID string) (int64, error) {
	revoked := r.live[userID]
	r.live[userID] = 0
	return revoked, nil
}

func (r *memTokenRepo) DeleteExpired(_ context.Context) (int64, error) { return 0, nil }

type memResetRepo struct{}

func (memResetRepo) Set(_ context.Context, _, _ string, _ time.Duration) error { return nil }
func (memResetRepo) Get(_ context.Context, _ string) (string, error) {
	return "", apperr.NotFound("Reset token")
}
func (memResetRepo) Delete(_ context.Context, _ string) error { return nil }

type stubHasher struct{}

func (stubHasher) Hash(_ context.Context, password string) (string, error) {
	return "hashed::" + password, nil
}
func (stubHasher) Verify(_ context.Context, password, encodedHash string) bool {
	return "hashed::"+password == encodedHash
}
func (stubHasher) NeedsRehash(_ string) bool { return false }
func (stubHasher) ValidateStrength(password string) (bool, []string) {
	if len(password) < 8 {
		return false, []string{"Password must be at least 8 characters long"}
	}
	return true, nil
}

type usersHarness struct {
	repo   *memUserRepo
	tokens *memTokenRepo
	codec  *sec.TokenCodec
	router http.Handler
}

func newUsersHarness() *usersHarness {
	repo := newMemUserRepo()
	tokens := newMemTokenRepo()
	codec := sec.NewTokenCodec(usersTestSecret, "cobalt.dev")

	sessions := auth.NewService(repo, tokens, memResetRepo{}, codec, stubHasher{}, 15*time.Minute, 720*time.Hour)
	service := users.NewService(repo, stubHasher{}, sessions)
	handler := users.NewHandler(service, middleware.NewGate(codec))

	return &usersHarness{repo: repo, tokens: tokens, codec: codec, router: handler.Routes()}
}

func (h *usersHarness) seedUser(t *testing.T, id, email string, role sec.Role) string {
	t.Helper()
	require.NoError(t, h.repo.Create(context.Background(), &auth.User{
		ID:           id,
		Email:        email,
		PasswordHash: "hashed::Correct-Horse-7!",
		Role:         role,
		IsActive:     true,
	}))
	h.tokens.live[id] = 1

	token, err := h.codec.Encode(sec.Identity{UserID: id, Email: email, Role: role}, sec.TokenKindAccess, time.Minute)
	require.NoError(t, err)
	return token
}

func (h *usersHarness) do(t *testing.T, method, target, token string) *httptest.ResponseRecorder {
	t.Helper()
	request := httptest.NewRequest(method, target, nil)
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	h.router.ServeHTTP(recorder, request)
	return recorder
}

const (
	memberID = "0192aef5-7b3a-7cc0-8a7e-2f1d3c4b5a69"
	adminID  = "0192aef5-7b3a-7cc0-8a7e-2f1d3c4b5a70"
)

func TestUsersHandler_AdminListing(t *testing.T) {
	h := newUsersHarness()
	member := h.seedUser(t, memberID, "member@cobalt.dev", sec.RoleUser)
	admin := h.seedUser(t, adminID, "admin@cobalt.dev", sec.RoleAdmin)

	recorder := h.do(t, http.MethodGet, "/", admin)
	require.Equal(t, http.StatusOK, recorder.Code)
	body := recorder.Body.String()
	assert.Contains(t, body, "member@cobalt.dev")
	assert.Contains(t, body, "admin@cobalt.dev")
	assert.Contains(t, body, `"total":2`)

	// The directory is role-gated: regular members get 403, anonymous 401.
	recorder = h.do(t, http.MethodGet, "/", member)
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	recorder = h.do(t, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestUsersHandler_GetByID(t *testing.T) {
	h := newUsersHarness()
	member := h.seedUser(t, memberID, "member@cobalt.dev", sec.RoleUser)
	admin := h.seedUser(t, adminID, "admin@cobalt.dev", sec.RoleAdmin)

	// users:read is an admin grant.
	recorder := h.do(t, http.MethodGet, "/"+memberID, admin)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "member@cobalt.dev")

	recorder = h.do(t, http.MethodGet, "/"+adminID, member)
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	recorder = h.do(t, http.MethodGet, "/not-a-uuid", admin)
	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)

	recorder = h.do(t, http.MethodGet, "/0192aef5-7b3a-7cc0-8a7e-2f1d3c4b5a99", admin)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestUsersHandler_DeleteMe(t *testing.T) {
	h := newUsersHarness()
	member := h.seedUser(t, memberID, "member@cobalt.dev", sec.RoleUser)

	recorder := h.do(t, http.MethodDelete, "/me", member)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Account deleted successfully")

	// The account is disabled, not erased, and its sessions are gone.
	stored, err := h.repo.FindByID(context.Background(), memberID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
	assert.Zero(t, h.tokens.live[memberID])
}

func TestUsersHandler_AdminDeactivate(t *testing.T) {
	h := newUsersHarness()
	member := h.seedUser(t, memberID, "member@cobalt.dev", sec.RoleUser)
	admin := h.seedUser(t, adminID, "admin@cobalt.dev", sec.RoleAdmin)

	// users:manage is required: members cannot disable each other.
	recorder := h.do(t, http.MethodPost, "/"+adminID+"/deactivate", member)
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	recorder = h.do(t, http.MethodPost, "/"+memberID+"/deactivate", admin)
	require.Equal(t, http.StatusOK, recorder.Code)

	stored, err := h.repo.FindByID(context.Background(), memberID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
	assert.Zero(t, h.tokens.live[memberID])
}
