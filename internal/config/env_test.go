// SPDX-License-Identifier: MIT

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseEnv(t *testing.T) {
	t.Setenv("IPTX_TEST_STR", "value")
	t.Setenv("IPTX_TEST_EMPTY", "")
	t.Setenv("IPTX_TEST_INT", "42")
	t.Setenv("IPTX_TEST_BAD_INT", "forty-two")
	t.Setenv("IPTX_TEST_DUR", "90s")
	t.Setenv("IPTX_TEST_BOOL", "Yes")
	t.Setenv("IPTX_TEST_BAD_BOOL", "maybe")
	t.Setenv("IPTX_TEST_FLOAT", "0.25")

	assert.Equal(t, "value", ParseString("IPTX_TEST_STR", "def"))
	assert.Equal(t, "def", ParseString("IPTX_TEST_EMPTY", "def"))
	assert.Equal(t, "def", ParseString("IPTX_TEST_UNSET", "def"))
	assert.Equal(t, 42, ParseInt("IPTX_TEST_INT", 1))
	assert.Equal(t, 1, ParseInt("IPTX_TEST_BAD_INT", 1))
	assert.Equal(t, 90*time.Second, ParseDuration("IPTX_TEST_DUR", time.Second))
	assert.True(t, ParseBool("IPTX_TEST_BOOL", false))
	assert.True(t, ParseBool("IPTX_TEST_BAD_BOOL", true))
	assert.Equal(t, 0.25, ParseFloat("IPTX_TEST_FLOAT", 1))
}

func TestIsSensitiveKey(t *testing.T) {
	assert.True(t, isSensitiveKey("IPTX_STATUS_REDIS_PASSWORD"))
	assert.True(t, isSensitiveKey("api_token"))
	assert.False(t, isSensitiveKey("IPTX_STATUS_REDIS_ADDR"))
}
