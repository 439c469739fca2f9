// Copyright (c) 2026 Cobalt. All rights reserved.

package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cobalthq/cobalt/internal/platform/middleware"
)

type corsConfig struct {
	development  bool
	extraOrigins []string
}

func (c corsConfig) IsDevelopment() bool           { return c.development }
func (c corsConfig) ExtraAllowedOrigins() []string { return c.extraOrigins }

func serveCORS(t *testing.T, cfg corsConfig, method, origin string) *httptest.ResponseRecorder {
	t.Helper()

	handler := middleware.CORS(cfg)(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusOK)
	}))

	request := httptest.NewRequest(method, "/", nil)
	if origin != "" {
		request.Header.Set("Origin", origin)
	}

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func TestCORS_OriginAllowList(t *testing.T) {
	production := corsConfig{extraOrigins: []string{"https://partner.example.com"}}

	tests := []struct {
		name    string
		cfg     corsConfig
		origin  string
		allowed bool
	}{
		{"development_allows_anything", corsConfig{development: true}, "https://anything.test", true},
		{"production_allows_first_party", production, "https://app.cobalt.dev", true},
		{"production_allows_extra_origin", production, "https://partner.example.com", true},
		{"production_blocks_unknown", production, "https://evil.example.com", false},
		{"extra_origin_is_exact_match", production, "https://sub.partner.example.com", false},
		{"no_extra_origins_configured", corsConfig{}, "https://partner.example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := serveCORS(t, tt.cfg, http.MethodGet, tt.origin)

			allowHeader := recorder.Header().Get("Access-Control-Allow-Origin")
			if tt.allowed {
				assert.Equal(t, tt.origin, allowHeader)
			} else {
				assert.Empty(t, allowHeader)
			}
		})
	}
}

func TestCORS_Preflight(t *testing.T) {
	cfg := corsConfig{extraOrigins: []string{"https://partner.example.com"}}

	recorder := serveCORS(t, cfg, http.MethodOptions, "https://partner.example.com")

	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Equal(t, "https://partner.example.com", recorder.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, recorder.Header().Get("Access-Control-Allow-Methods"))
}

func TestCORS_NoOriginHeaderPassesThrough(t *testing.T) {
	recorder := serveCORS(t, corsConfig{}, http.MethodGet, "")

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Empty(t, recorder.Header().Get("Access-Control-Allow-Origin"))
}
