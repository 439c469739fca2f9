package items_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cobalthq/cobalt/internal/items"
	"github.com/cobalthq/cobalt/internal/platform/middleware"
	"github.com/cobalthq/cobalt/internal/platform/sec"
)

const itemsTestSecret = "test-secret-key-needs-32-bytes!!"

type webHarness struct {
	repo    *fakeRepo
	service *items.Service
	codec   *sec.TokenCodec
	router  http.Handler
}

func newWebHarness() *webHarness {
	repo := newFakeRepo()
	service := items.NewService(repo)
	codec := sec.NewTokenCodec(itemsTestSecret, "cobalt.dev")
	handler := items.NewHandler(service, middleware.NewGate(codec))

	return &webHarness{
		repo:    repo,
		service: service,
		codec:   codec,
		router:  handler.Routes(),
	}
}

func (h *webHarness) token(t *testing.T, userID string, role sec.Role) string {
	t.Helper()
	token, err := h.codec.Encode(sec.Identity{
		UserID: userID,
		Email:  userID + "@cobalt.dev",
		Role:   role,
	}, sec.TokenKindAccess, time.Minute)
	require.NoError(t, err)
	return token
}

func (h *webHarness) do(t *testing.T, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	request := httptest.NewRequest(method, target, reader)
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	h.router.ServeHTTP(recorder, request)
	return recorder
}

// decodeData unwraps the response envelope and returns its "data" field.
func decodeData(t *testing.T, recorder *httptest.ResponseRecorder) any {
	t.Helper()
	var envelope map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	return envelope["data"]
}

func TestItemsHandler_Lifecycle(t *testing.T) {
	h := newWebHarness()
	owner := h.token(t, "owner-1", sec.RoleUser)

	recorder := h.do(t, http.MethodPost, "/", owner, map[string]string{"title": "Launch post"})
	require.Equal(t, http.StatusCreated, recorder.Code)

	created := decodeData(t, recorder).(map[string]any)
	itemID := created["id"].(string)
	assert.Equal(t, "draft", created["status"])

	recorder = h.do(t, http.MethodPost, "/"+itemID+"/activate", owner, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "active", decodeData(t, recorder).(map[string]any)["status"])

	recorder = h.do(t, http.MethodPost, "/"+itemID+"/archive", owner, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "archived", decodeData(t, recorder).(map[string]any)["status"])

	// Transitions require ownership.
	stranger := h.token(t, "stranger", sec.RoleUser)
	recorder = h.do(t, http.MethodPost, "/"+itemID+"/activate", stranger, nil)
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	// And an access token.
	recorder = h.do(t, http.MethodPost, "/"+itemID+"/activate", "", nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestItemsHandler_ListStatusFilter(t *testing.T) {
	h := newWebHarness()
	ctx := context.Background()

	_, err := h.service.Create(ctx, "owner-1", items.CreateInput{Title: "Draft"})
	require.NoError(t, err)
	published, err := h.service.Create(ctx, "owner-1", items.CreateInput{Title: "Published"})
	require.NoError(t, err)
	_, err = h.service.Activate(ctx, claimsFor("owner-1", sec.RoleUser), published.ID)
	require.NoError(t, err)

	// Listing is public; the filter narrows to one lifecycle state.
	recorder := h.do(t, http.MethodGet, "/?status=active", "", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	listed := decodeData(t, recorder).([]any)
	require.Len(t, listed, 1)
	assert.Equal(t, published.ID, listed[0].(map[string]any)["id"])

	recorder = h.do(t, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Len(t, decodeData(t, recorder).([]any), 2)

	// Unknown states are rejected, naming the valid values.
	recorder = h.do(t, http.MethodGet, "/?status=published", "", nil)
	require.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Must be one of: draft, active, archived")
}

func TestItemsHandler_Search(t *testing.T) {
	h := newWebHarness()
	ctx := context.Background()

	for _, title := range []string{"Weather station", "Wealth tracker", "Chess clock"} {
		_, err := h.service.Create(ctx, "owner-1", items.CreateInput{Title: title})
		require.NoError(t, err)
	}

	recorder := h.do(t, http.MethodGet, "/search?q=wea", "", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Len(t, decodeData(t, recorder).([]any), 2)

	recorder = h.do(t, http.MethodGet, "/search?q=wea&limit=1", "", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Len(t, decodeData(t, recorder).([]any), 1)

	// The query term is mandatory.
	recorder = h.do(t, http.MethodGet, "/search", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
}

func TestItemsHandler_DeletePermissions(t *testing.T) {
	h := newWebHarness()
	ctx := context.Background()

	item, err := h.service.Create(ctx, "owner-1", items.CreateInput{Title: "Doomed"})
	require.NoError(t, err)

	// A non-owner without items:delete cannot remove it.
	recorder := h.do(t, http.MethodDelete, "/"+item.ID, h.token(t, "stranger", sec.RoleUser), nil)
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	// An admin carries items:delete and can.
	recorder = h.do(t, http.MethodDelete, "/"+item.ID, h.token(t, "moderator", sec.RoleAdmin), nil)
	assert.Equal(t, http.StatusNoContent, recorder.Code)

	// Owners remove their own items without any special grant.
	mine, err := h.service.Create(ctx, "owner-1", items.CreateInput{Title: "Mine"})
	require.NoError(t, err)
	recorder = h.do(t, http.MethodDelete, "/"+mine.ID, h.token(t, "owner-1", sec.RoleUser), nil)
	assert.Equal(t, http.StatusNoContent, recorder.Code)
}
