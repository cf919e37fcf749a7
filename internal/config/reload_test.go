// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReloadKeepsOldConfigOnError(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "media_root: "+dir+"\nlog:\n  level: info\n")
	l := NewLoader(path, "")
	cfg, err := l.Load()
	require.NoError(t, err)

	h := NewConfigHolder(cfg, l)
	updates := make(chan Config, 1)
	h.RegisterListener(updates)

	require.NoError(t, os.WriteFile(path, []byte("media_root: "+dir+"\nlog:\n  level: warn\n"), 0o600))
	require.NoError(t, h.Reload(context.Background()))
	assert.Equal(t, "warn", h.Get().Log.Level)
	assert.Equal(t, "warn", (<-updates).Log.Level)

	require.NoError(t, os.WriteFile(path, []byte("media_root: "+dir+"\nlog:\n  level: loud\n"), 0o600))
	assert.Error(t, h.Reload(context.Background()))
	assert.Equal(t, "warn", h.Get().Log.Level)
	assert.Empty(t, updates)
}

func TestWatchReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "media_root: "+dir+"\nenforcer:\n  interval: 5s\n")
	l := NewLoader(path, "")
	cfg, err := l.Load()
	require.NoError(t, err)

	h := NewConfigHolder(cfg, l)
	h.debounce = 20 * time.Millisecond
	updates := make(chan Config, 4)
	h.RegisterListener(updates)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Watch(ctx) }()

	// The watcher may not be registered yet; keep writing until a reload lands.
	body := []byte("media_root: " + dir + "\nenforcer:\n  interval: 1s\n")
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, body, 0o600)
		return h.Get().Enforcer.Interval == time.Second
	}, 5*time.Second, 50*time.Millisecond)
	assert.Equal(t, time.Second, (<-updates).Enforcer.Interval)

	cancel()
	require.NoError(t, <-done)
}

func TestWatchWithoutFile(t *testing.T) {
	h := NewConfigHolder(Defaults(), NewLoader("", ""))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, h.Watch(ctx))
}
