// Copyright (c) 2026 Cobalt. All rights reserved.

package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cobalthq/cobalt/internal/platform/config"
)

func TestConfig_ExtraAllowedOrigins(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"empty", "", nil},
		{"single", "https://partner.example.com", []string{"https://partner.example.com"}},
		{
			"multiple_with_whitespace",
			" https://a.example.com , https://b.example.com ",
			[]string{"https://a.example.com", "https://b.example.com"},
		},
		{"dangling_commas", ",https://a.example.com,,", []string{"https://a.example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{ExtraOrigins: tt.raw}
			assert.Equal(t, tt.want, cfg.ExtraAllowedOrigins())
		})
	}
}
