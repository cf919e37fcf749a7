// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ffmpeg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandTemplate(t *testing.T) {
	tests := []struct {
		name string
		tmpl string
		want string
	}{
		{"all placeholders", "{channel}/{date}/{time}", "Arte/20260714/090503"},
		{"repeated", "{channel}-{channel}", "Arte-Arte"},
		{"no placeholders", "recordings/static", "recordings/static"},
		{"escaped braces", "{{channel}}/{channel}", "{channel}/Arte"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandTemplate(tt.tmpl, "Arte", fixedNow)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpandTemplateErrors(t *testing.T) {
	tests := []struct {
		name        string
		tmpl        string
		placeholder string
	}{
		{"unknown placeholder", "rec/{month}", "month"},
		{"empty placeholder", "rec/{}", ""},
		{"unclosed", "rec/{channel", ""},
		{"stray close", "rec/channel}", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExpandTemplate(tt.tmpl, "Arte", fixedNow)
			var te *TemplateError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, tt.placeholder, te.Placeholder)
			assert.Equal(t, tt.tmpl, te.Template)
		})
	}
}

func TestExpandTemplateNormalizesName(t *testing.T) {
	// "e" followed by a combining acute accent composes to U+00E9.
	got, err := ExpandTemplate("{channel}", "Te\u0301le\u0301", fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "T\u00e9l\u00e9", got)
}
