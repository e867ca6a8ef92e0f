// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvironment_Get(t *testing.T) {
	tests := []struct {
		env      Environment
		expected string
	}{
		{PRODUCTION, "production"},
		{DEVELOPMENT, "development"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.env.Get())
		})
	}
}

func TestFromEnvironmentStr(t *testing.T) {
	tests := []struct {
		input    string
		expected Environment
	}{
		{"production", PRODUCTION},
		{"PRODUCTION", PRODUCTION},
		{"prod", PRODUCTION},
		{"development", DEVELOPMENT},
		{"DEVELOPMENT", DEVELOPMENT},
		{"invalid", DEVELOPMENT}, // defaults to development
		{"", DEVELOPMENT},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, FromEnvironmentStr(tt.input))
		})
	}
	assert.True(t, PRODUCTION.IsProduction())
	assert.False(t, DEVELOPMENT.IsProduction())
}
