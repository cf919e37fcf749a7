// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// SPDX-License-Identifier: MIT
package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	shellquote "github.com/kballard/go-shellquote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/iptranscoder/internal/model"
	"github.com/ManuGH/iptranscoder/internal/store"
)

func TestDispatchUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"help", []string{"help"}, 0},
		{"version", []string{"version"}, 0},
		{"unknown command", []string{"frobnicate"}, 2},
		{"store help", []string{"store"}, 0},
		{"store unknown", []string{"store", "compact"}, 2},
		{"verify bad mode", []string{"store", "verify", "--mode", "deep"}, 2},
		{"import without file", []string{"store", "import"}, 2},
		{"run without channel", []string{"run"}, 2},
		{"run bad channel", []string{"run", "abc"}, 2},
		{"run zero channel", []string{"run", "0"}, 2},
		{"command extra args", []string{"command", "1", "2"}, 2},
		{"enforce bad flag", []string{"--nope"}, 2},
		{"enforce version", []string{"--version"}, 0},
		{"enforce help", []string{"-h"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dispatch(tt.args))
		})
	}
}

// writeConfig creates a config file with a sqlite store in a temp dir.
func writeConfig(t *testing.T) (cfgPath, dbPath, mediaRoot string) {
	t.Helper()
	dir := t.TempDir()
	dbPath = filepath.Join(dir, "store.db")
	mediaRoot = filepath.Join(dir, "media")
	cfgPath = filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`
log:
  level: warn
media_root: %s
timezone: UTC
store:
  backend: sqlite
  path: %s
maintenance:
  verify_schedule: ""
`, mediaRoot, dbPath)
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o600))
	return cfgPath, dbPath, mediaRoot
}

func TestCommandPrintsQuotedArgv(t *testing.T) {
	cfgPath, dbPath, mediaRoot := writeConfig(t)

	ctx := context.Background()
	st, err := store.Open(ctx, store.BackendSQLite, dbPath)
	require.NoError(t, err)
	ch := model.Channel{
		Name:                    "Morning News",
		InputType:               model.InputRTSP,
		InputURL:                "rtsp://cam.local/stream",
		OutputType:              model.OutputUDPTS,
		OutputTarget:            "udp://10.0.0.1:5000",
		RecordingPathTemplate:   "rec/{channel}",
		RecordingSegmentMinutes: 15,
		VideoMode:               model.VideoCopy,
		AudioMode:               model.AudioCopy,
	}
	require.NoError(t, st.SaveChannel(ctx, &ch))
	require.NoError(t, st.Close())

	var out bytes.Buffer
	code := runCommand([]string{"--config", cfgPath, "--purpose", "record", fmt.Sprint(ch.ID)}, &out)
	require.Equal(t, 0, code)
	argv, err := shellquote.Split(out.String())
	require.NoError(t, err)
	assert.Equal(t, "ffmpeg", argv[0])
	assert.Contains(t, argv, "rtsp://cam.local/stream")
	assert.Equal(t, filepath.Join(mediaRoot, "rec", "Morning News", "Morning News_%05d.ts"), argv[len(argv)-1])
	assert.NoDirExists(t, filepath.Join(mediaRoot, "rec"))

	out.Reset()
	assert.Equal(t, 1, runCommand([]string{"--config", cfgPath, "99"}, &out))
	assert.Equal(t, 1, runCommand([]string{"--config", cfgPath, "--purpose", "playback", fmt.Sprint(ch.ID)}, &out))
	assert.Empty(t, out.String())
}

func TestStoreImportAndVerify(t *testing.T) {
	cfgPath, dbPath, _ := writeConfig(t)
	seedPath := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(seedPath, []byte(testSeed), 0o600))

	require.Equal(t, 0, dispatch([]string{"store", "import", "--config", cfgPath, "-f", seedPath}))
	require.Equal(t, 0, dispatch([]string{"store", "verify", "--config", cfgPath, "--mode", "full"}))

	ctx := context.Background()
	st, err := store.Open(ctx, store.BackendSQLite, dbPath)
	require.NoError(t, err)
	defer func() { _ = st.Close() }()

	channels, err := st.Channels(ctx)
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Equal(t, "news", channels[0].Name)

	rs, err := st.EnabledRecurringSchedules(ctx)
	require.NoError(t, err)
	require.Len(t, rs, 1)
	require.NotNil(t, rs[0].Channel)
	assert.Equal(t, "news", rs[0].Channel.Name)

	assert.Equal(t, 1, dispatch([]string{"store", "import", "--config", cfgPath, "-f", filepath.Join(t.TempDir(), "missing.yaml")}))
}
