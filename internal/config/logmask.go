// SPDX-License-Identifier: MIT

package config

import (
	"strings"
)

// sensitiveKeywords mark keys whose values never reach the logs.
var sensitiveKeywords = []string{
	"password",
	"passwd",
	"secret",
	"token",
	"credential",
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, kw := range sensitiveKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Redacted returns a copy of cfg that is safe to log.
func (c Config) Redacted() Config {
	if c.Status.Redis.Password != "" {
		c.Status.Redis.Password = "***"
	}
	return c
}
